package index

import (
	"bytes"
	"context"
	"testing"

	"github.com/yndnr/lexmesh-go/internal/keystore"
	"github.com/yndnr/lexmesh-go/pkg/crypto/seekable"
)

func newTestStore(t *testing.T) *keystore.Store {
	t.Helper()
	store, err := keystore.New(keystore.Config{}, nil)
	if err != nil {
		t.Fatalf("keystore.New() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDirectory_CommitRoundTrip(t *testing.T) {
	store := newTestStore(t)
	dir, err := NewDirectory("products", t.TempDir(), store, seekable.NewFactory())
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	if ref := dir.ActiveKeyRef(); ref != "" {
		t.Fatalf("ActiveKeyRef() = %q, want empty before commit", ref)
	}

	err = dir.Commit(map[string]string{
		CommitActiveKeyRef: "7",
		"segments":         "12",
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if ref := dir.ActiveKeyRef(); ref != "7" {
		t.Fatalf("ActiveKeyRef() = %q, want %q", ref, "7")
	}

	// A fresh Directory over the same path sees the persisted commit.
	reopened, err := NewDirectory("products", dir.path, store, seekable.NewFactory())
	if err != nil {
		t.Fatalf("NewDirectory() reopen error = %v", err)
	}
	data := reopened.LatestCommitData()
	if data["segments"] != "12" {
		t.Fatalf("LatestCommitData()[segments] = %q, want %q", data["segments"], "12")
	}
	if ActiveKeyRefFromCommit(data) != "7" {
		t.Fatalf("ActiveKeyRefFromCommit() = %q, want %q", ActiveKeyRefFromCommit(data), "7")
	}
}

func TestDirectory_SetActiveKeyRef(t *testing.T) {
	store := newTestStore(t)
	dir, err := NewDirectory("orders", "", store, seekable.NewFactory())
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	if err := dir.SetActiveKeyRef("3"); err != nil {
		t.Fatalf("SetActiveKeyRef() error = %v", err)
	}
	if ref := dir.ActiveKeyRef(); ref != "3" {
		t.Fatalf("ActiveKeyRef() = %q, want %q", ref, "3")
	}

	if err := dir.SetActiveKeyRef(""); err != nil {
		t.Fatalf("SetActiveKeyRef(\"\") error = %v", err)
	}
	if ref := dir.ActiveKeyRef(); ref != "" {
		t.Fatalf("ActiveKeyRef() = %q, want empty after clearing", ref)
	}
}

func TestDirectory_KeySecret(t *testing.T) {
	store := newTestStore(t)
	key, err := store.CreateKey(context.Background())
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}

	dir, err := NewDirectory("products", "", store, seekable.NewFactory())
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	got, err := dir.KeySecret(context.Background(), key.Ref)
	if err != nil {
		t.Fatalf("KeySecret() error = %v", err)
	}
	if !bytes.Equal(got, key.Secret) {
		t.Fatalf("KeySecret() mismatch")
	}
}

func TestDirectory_CheckEncryptionOnRead(t *testing.T) {
	store := newTestStore(t)
	dir, err := NewDirectory("products", "", store, seekable.NewFactory())
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	if dir.CheckEncryptionOnRead() {
		t.Fatal("CheckEncryptionOnRead() = true, want false on a fresh directory")
	}
	dir.SetCheckEncryptionOnRead(true)
	if !dir.CheckEncryptionOnRead() {
		t.Fatal("CheckEncryptionOnRead() = false after SetCheckEncryptionOnRead(true)")
	}
}

func TestSupplier_RefCounting(t *testing.T) {
	store := newTestStore(t)
	dir, err := NewDirectory("products", "", store, seekable.NewFactory())
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	sup := NewSupplier(dir)

	got, err := sup.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != dir {
		t.Fatal("Get() returned a different directory")
	}
	if sup.Refs() != 1 {
		t.Fatalf("Refs() = %d, want 1", sup.Refs())
	}

	if err := sup.Close(); err == nil {
		t.Fatal("Close() with outstanding acquisition should fail")
	}

	if err := sup.Release(dir); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := sup.Release(dir); err == nil {
		t.Fatal("unbalanced Release() should fail")
	}

	if err := sup.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := sup.Get(); err == nil {
		t.Fatal("Get() after Close() should fail")
	}
}

func TestRegistry(t *testing.T) {
	store := newTestStore(t)
	dir, err := NewDirectory("products", "", store, seekable.NewFactory())
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	reg := NewRegistry()
	if reg.Core("products") != nil {
		t.Fatal("Core() on empty registry should return nil")
	}

	sup := NewSupplier(dir)
	reg.Add("products", sup)
	if reg.Core("products") != sup {
		t.Fatal("Core() did not return the registered supplier")
	}
	if names := reg.CoreNames(); len(names) != 1 || names[0] != "products" {
		t.Fatalf("CoreNames() = %v, want [products]", names)
	}

	reg.Remove("products")
	if reg.Core("products") != nil {
		t.Fatal("Core() after Remove() should return nil")
	}
}
