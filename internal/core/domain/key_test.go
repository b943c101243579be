// Package domain defines the core domain models for LexMesh.
package domain

import (
	"strings"
	"testing"
)

func TestNewEncryptionKey(t *testing.T) {
	secret := make([]byte, 32)
	key, err := NewEncryptionKey("7", secret)
	if err != nil {
		t.Fatalf("NewEncryptionKey() error = %v", err)
	}

	if key.Ref != "7" {
		t.Errorf("Ref = %q, want %q", key.Ref, "7")
	}
	if !strings.HasPrefix(key.ID, KeyIDPrefix) {
		t.Errorf("ID = %q, want prefix %q", key.ID, KeyIDPrefix)
	}
	if !ValidateKeyID(key.ID) {
		t.Errorf("ValidateKeyID(%q) = false", key.ID)
	}
	if key.CreatedAt == 0 {
		t.Error("CreatedAt should be set")
	}
}

func TestNewEncryptionKey_Validation(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		secret []byte
	}{
		{"non-numeric ref", "alpha", make([]byte, 32)},
		{"negative ref", "-1", make([]byte, 32)},
		{"secret too short", "1", make([]byte, 8)},
		{"secret too long", "1", make([]byte, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEncryptionKey(tt.ref, tt.secret); err == nil {
				t.Error("NewEncryptionKey() should return error")
			}
		})
	}
}

func TestParseKeyRef(t *testing.T) {
	n, err := ParseKeyRef("7")
	if err != nil {
		t.Fatalf("ParseKeyRef(7) error = %v", err)
	}
	if n != 7 {
		t.Errorf("ParseKeyRef(7) = %d", n)
	}

	if _, err := ParseKeyRef("seven"); !IsDomainError(err, "LM-KEY-4000") {
		t.Errorf("ParseKeyRef(seven) error = %v, want LM-KEY-4000", err)
	}

	if got := FormatKeyRef(7); got != "7" {
		t.Errorf("FormatKeyRef(7) = %q", got)
	}
}

func TestGenerateKeyID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateKeyID()
		if err != nil {
			t.Fatalf("GenerateKeyID() error = %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate key ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValidateKeyID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"lmk_01hqv3s25ze5kg2bnm6yc4rnkq", true},
		{"lmk_", false},
		{"tmss-01hqv3s25ze5kg2bnm6yc4rnkq", false},
		{"lmk_not-a-ulid-at-all-xxxxxxxxxx", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidateKeyID(tt.id); got != tt.valid {
			t.Errorf("ValidateKeyID(%q) = %v, want %v", tt.id, got, tt.valid)
		}
	}
}
