// Package keystore provides Badger-based storage of encryption key versions.
package keystore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/lexmesh-go/internal/core/domain"
	"github.com/yndnr/lexmesh-go/pkg/cmap"
)

// Cookie field names. A cookie is the opaque parameter map minted for a
// key ID; callers attach it to subsequent key lookups.
const (
	CookieKeyID    = "key_id"
	CookieID       = "cookie_id"
	CookieMintedAt = "minted_at"
)

// keyRefPrefix is the Badger key prefix for key versions, indexed by
// numeric reference.
const keyRefPrefix = "keyref/"

// Common errors
var (
	ErrClosed = errors.New("keystore: closed")
)

// Supplier is the key lookup contract consumed by the encryption layers.
type Supplier interface {
	// KeySecret resolves the key material for a textual key reference.
	KeySecret(ctx context.Context, keyRef string) ([]byte, error)

	// KeyCookie mints a cookie for the given key ID, merging the
	// caller-supplied parameters.
	KeyCookie(ctx context.Context, keyID string, params map[string]string) (map[string]string, error)
}

// Config configures the keystore.
type Config struct {
	// Dir is the Badger data directory. Empty selects an in-memory
	// store, used by tests.
	Dir string

	// CacheShards is the shard count of the secret read cache.
	CacheShards int
}

// Store is a Badger-backed Supplier holding all key versions of a node.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// cache avoids a Badger read per log open; invalidated on writes.
	cache *cmap.Map[string, []byte]

	metricsLookups prometheus.Counter
	metricsMisses  prometheus.Counter

	closed atomic.Bool
}

// New creates a keystore.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	if cfg.Dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("keystore: open db: %w", err)
	}

	shards := cfg.CacheShards
	if shards == 0 {
		shards = cmap.DefaultShardCount
	}

	s := &Store{
		db:     db,
		logger: logger,
		cache:  cmap.NewWithShards[string, []byte](shards),
		metricsLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lexmesh_keystore_lookups_total",
			Help: "Total key secret lookups.",
		}),
		metricsMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lexmesh_keystore_cache_misses_total",
			Help: "Key secret lookups served from Badger rather than the cache.",
		}),
	}

	logger.Info("keystore started", "dir", cfg.Dir, "in_memory", cfg.Dir == "")
	return s, nil
}

// Describe implements prometheus.Collector.
func (s *Store) Describe(ch chan<- *prometheus.Desc) {
	s.metricsLookups.Describe(ch)
	s.metricsMisses.Describe(ch)
}

// Collect implements prometheus.Collector.
func (s *Store) Collect(ch chan<- prometheus.Metric) {
	s.metricsLookups.Collect(ch)
	s.metricsMisses.Collect(ch)
}

// StoreKey persists a key version.
func (s *Store) StoreKey(ctx context.Context, key *domain.EncryptionKey) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := domain.ParseKeyRef(key.Ref); err != nil {
		return err
	}

	value, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("keystore: marshal key: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyRefPrefix+key.Ref), value)
	})
	if err != nil {
		return fmt.Errorf("keystore: store key: %w", err)
	}

	s.cache.Delete(key.Ref)
	s.logger.Info("key version stored", "key_id", key.ID, "key_ref", key.Ref)
	return nil
}

// CreateKey generates fresh key material under the next free reference
// and persists it.
func (s *Store) CreateKey(ctx context.Context) (*domain.EncryptionKey, error) {
	ref, err := s.nextRef()
	if err != nil {
		return nil, err
	}

	secret := make([]byte, domain.MaxSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("keystore: generate secret: %w", err)
	}

	key, err := domain.NewEncryptionKey(ref, secret)
	if err != nil {
		return nil, err
	}
	if err := s.StoreKey(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Key retrieves a full key version by its textual reference.
func (s *Store) Key(ctx context.Context, keyRef string) (*domain.EncryptionKey, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyRefPrefix + keyRef))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrKeyNotFound.WithDetails(keyRef)
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	var key domain.EncryptionKey
	if err := json.Unmarshal(value, &key); err != nil {
		return nil, fmt.Errorf("keystore: unmarshal key: %w", err)
	}
	return &key, nil
}

// KeySecret resolves the key material for a textual key reference.
func (s *Store) KeySecret(ctx context.Context, keyRef string) ([]byte, error) {
	s.metricsLookups.Inc()

	if secret, ok := s.cache.Get(keyRef); ok {
		return secret, nil
	}
	s.metricsMisses.Inc()

	key, err := s.Key(ctx, keyRef)
	if err != nil {
		return nil, err
	}

	s.cache.Set(keyRef, key.Secret)
	return key.Secret, nil
}

// KeyCookie mints a cookie for the given key ID, merging the
// caller-supplied parameters.
func (s *Store) KeyCookie(ctx context.Context, keyID string, params map[string]string) (map[string]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if !domain.ValidateKeyID(keyID) {
		return nil, domain.ErrKeyValidation.WithDetails("malformed key id: " + keyID)
	}

	cookie := make(map[string]string, len(params)+3)
	for k, v := range params {
		cookie[k] = v
	}
	cookie[CookieKeyID] = keyID
	cookie[CookieID] = "lmkc_" + strings.ToLower(ulid.Make().String())
	cookie[CookieMintedAt] = time.Now().UTC().Format(time.RFC3339)
	return cookie, nil
}

// Close closes the underlying Badger store.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cache.Clear()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("keystore: close db: %w", err)
	}
	return nil
}

// nextRef scans existing references and returns max+1, starting at "1".
func (s *Store) nextRef() (string, error) {
	var max uint32
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyRefPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ref := string(it.Item().Key()[len(keyRefPrefix):])
			n, err := domain.ParseKeyRef(ref)
			if err != nil {
				continue
			}
			if n > max {
				max = n
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("keystore: scan refs: %w", err)
	}
	return domain.FormatKeyRef(max + 1), nil
}

// badgerLogger adapts slog to the Badger logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}
