// Package index models the per-core index directory state consumed by
// the encryption layers.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yndnr/lexmesh-go/internal/keystore"
	"github.com/yndnr/lexmesh-go/pkg/crypto/seekable"
)

// CommitActiveKeyRef is the commit metadata property naming the key
// reference designated for encrypting new writes. Absent when the core
// is not marked for encryption.
const CommitActiveKeyRef = "encryption.active_key_ref"

// commitFileName is the on-disk commit metadata file within a core's
// data directory.
const commitFileName = "commit.json"

// ActiveKeyRefFromCommit extracts the active key reference from commit
// metadata. Returns "" when the core is not marked for encryption.
func ActiveKeyRefFromCommit(commitData map[string]string) string {
	return commitData[CommitActiveKeyRef]
}

// Directory is the encryption-relevant view of one search core's data
// directory: its latest commit metadata, the key supplier bound to the
// core, and the cipher factory used for its files.
//
// The CheckEncryptionOnRead flag is scoped to this directory object;
// it tells readers of the core's transaction log to probe files for an
// encryption header.
type Directory struct {
	coreName string
	path     string
	keys     keystore.Supplier
	factory  seekable.Factory

	mu                    sync.Mutex
	commitData            map[string]string
	checkEncryptionOnRead bool
}

// NewDirectory creates a Directory for one core. path may be empty for
// an in-memory directory (tests); otherwise commit metadata is loaded
// from and persisted to path.
func NewDirectory(coreName, path string, keys keystore.Supplier, factory seekable.Factory) (*Directory, error) {
	d := &Directory{
		coreName:   coreName,
		path:       path,
		keys:       keys,
		factory:    factory,
		commitData: make(map[string]string),
	}

	if path != "" {
		if err := d.loadCommit(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// CoreName returns the owning core's name.
func (d *Directory) CoreName() string {
	return d.coreName
}

// LatestCommitData returns a copy of the latest commit metadata.
func (d *Directory) LatestCommitData() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	data := make(map[string]string, len(d.commitData))
	for k, v := range d.commitData {
		data[k] = v
	}
	return data
}

// Commit replaces the commit metadata and persists it.
func (d *Directory) Commit(data map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = v
	}
	d.commitData = copied

	if d.path == "" {
		return nil
	}
	return d.saveCommitLocked()
}

// SetActiveKeyRef updates only the active key reference in the commit
// metadata. An empty ref removes the encryption mark.
func (d *Directory) SetActiveKeyRef(keyRef string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if keyRef == "" {
		delete(d.commitData, CommitActiveKeyRef)
	} else {
		d.commitData[CommitActiveKeyRef] = keyRef
	}

	if d.path == "" {
		return nil
	}
	return d.saveCommitLocked()
}

// ActiveKeyRef returns the active key reference from the latest commit,
// or "" when the core is not marked for encryption.
func (d *Directory) ActiveKeyRef() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commitData[CommitActiveKeyRef]
}

// KeySecret resolves key material through the core's key supplier.
func (d *Directory) KeySecret(ctx context.Context, keyRef string) ([]byte, error) {
	return d.keys.KeySecret(ctx, keyRef)
}

// KeySupplier returns the key supplier bound to this core.
func (d *Directory) KeySupplier() keystore.Supplier {
	return d.keys
}

// EncrypterFactory returns the cipher factory used for this core's files.
func (d *Directory) EncrypterFactory() seekable.Factory {
	return d.factory
}

// CheckEncryptionOnRead reports whether log readers must probe files
// for an encryption header.
func (d *Directory) CheckEncryptionOnRead() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checkEncryptionOnRead
}

// SetCheckEncryptionOnRead sets the header probe flag.
func (d *Directory) SetCheckEncryptionOnRead(check bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkEncryptionOnRead = check
}

func (d *Directory) loadCommit() error {
	raw, err := os.ReadFile(filepath.Join(d.path, commitFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("index: read commit: %w", err)
	}
	if err := json.Unmarshal(raw, &d.commitData); err != nil {
		return fmt.Errorf("index: decode commit: %w", err)
	}
	return nil
}

func (d *Directory) saveCommitLocked() error {
	raw, err := json.Marshal(d.commitData)
	if err != nil {
		return fmt.Errorf("index: encode commit: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.path, commitFileName), raw, 0600); err != nil {
		return fmt.Errorf("index: write commit: %w", err)
	}
	return nil
}
