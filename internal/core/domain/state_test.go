// Package domain defines the core domain models for LexMesh.
package domain

import "testing"

func TestEncryptionState_Valid(t *testing.T) {
	for _, s := range []EncryptionState{StateComplete, StateBusy, StateTimeout, StateError} {
		if !s.Valid() {
			t.Errorf("Valid(%q) = false", s)
		}
	}

	for _, s := range []EncryptionState{"", "pending", "COMPLETE"} {
		if s.Valid() {
			t.Errorf("Valid(%q) = true", s)
		}
	}
}

func TestEncryptionState_Values(t *testing.T) {
	// Wire values are part of the response protocol and must not drift.
	tests := []struct {
		state EncryptionState
		value string
	}{
		{StateComplete, "complete"},
		{StateBusy, "busy"},
		{StateTimeout, "timeout"},
		{StateError, "error"},
	}

	for _, tt := range tests {
		if string(tt.state) != tt.value {
			t.Errorf("state = %q, want %q", tt.state, tt.value)
		}
	}
}
