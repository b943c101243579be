// Package service provides domain services for LexMesh.
//
// EncryptionService tracks the encryption lifecycle of this node's
// cores and answers local status queries.
package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yndnr/lexmesh-go/internal/core/domain"
	"github.com/yndnr/lexmesh-go/internal/index"
	"github.com/yndnr/lexmesh-go/internal/keystore"
	"github.com/yndnr/lexmesh-go/pkg/token"
)

// EncryptionService owns the per-core encryption state machine.
//
// A core starts complete. Activating a key marks it busy until the
// re-encryption of its existing files finishes, which moves it back to
// complete or, on failure, to error. Queries for unknown cores fail
// with domain.ErrCoreNotFound.
//
// @design DS-0103
type EncryptionService struct {
	cores  *index.Registry
	keys   *keystore.Store
	logger *slog.Logger

	mu     sync.Mutex
	states map[string]domain.EncryptionState
}

// NewEncryptionService creates an EncryptionService over the node's
// core registry and keystore.
func NewEncryptionService(cores *index.Registry, keys *keystore.Store, logger *slog.Logger) *EncryptionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EncryptionService{
		cores:  cores,
		keys:   keys,
		logger: logger,
		states: make(map[string]domain.EncryptionState),
	}
}

// RegisterCore adds a core to the service. A freshly registered core is
// complete: it has no rotation in flight.
func (s *EncryptionService) RegisterCore(coreName string, sup *index.Supplier) {
	s.cores.Add(coreName, sup)

	s.mu.Lock()
	s.states[coreName] = domain.StateComplete
	s.mu.Unlock()

	s.logger.Info("core registered", "core", coreName)
}

// Cores lists the registered core names.
func (s *EncryptionService) Cores() []string {
	return s.cores.CoreNames()
}

// State returns the local encryption state of coreName.
func (s *EncryptionService) State(ctx context.Context, coreName string) (domain.EncryptionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[coreName]
	if !ok {
		return "", domain.ErrCoreNotFound.WithDetails(coreName)
	}
	return state, nil
}

// ActivateKey designates keyRef as the active encryption key of
// coreName and marks the core busy until re-encryption completes.
func (s *EncryptionService) ActivateKey(ctx context.Context, coreName, keyRef string) error {
	sup := s.cores.Core(coreName)
	if sup == nil {
		return domain.ErrCoreNotFound.WithDetails(coreName)
	}

	// The key must resolve before it is committed anywhere.
	secret, err := s.keys.KeySecret(ctx, keyRef)
	if err != nil {
		return err
	}
	// Fingerprint identifies the key material in logs without exposing it.
	fingerprint := token.Fingerprint(secret)

	dir, err := sup.Get()
	if err != nil {
		return domain.ErrInternalServer.WithCause(err)
	}
	defer func() {
		if rerr := sup.Release(dir); rerr != nil {
			s.logger.Error("release directory after key activation", "core", coreName, "error", rerr)
		}
	}()

	if err := dir.SetActiveKeyRef(keyRef); err != nil {
		return domain.ErrInternalServer.WithCause(err)
	}
	dir.SetCheckEncryptionOnRead(true)

	s.mu.Lock()
	s.states[coreName] = domain.StateBusy
	s.mu.Unlock()

	s.logger.Info("encryption key activated", "core", coreName, "key_ref", keyRef, "key_fingerprint", fingerprint)
	return nil
}

// MarkComplete records that coreName finished re-encrypting.
func (s *EncryptionService) MarkComplete(coreName string) {
	s.setState(coreName, domain.StateComplete)
}

// MarkError records that re-encryption of coreName failed.
func (s *EncryptionService) MarkError(coreName string) {
	s.setState(coreName, domain.StateError)
}

func (s *EncryptionService) setState(coreName string, state domain.EncryptionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[coreName]; !ok {
		return
	}
	s.states[coreName] = state
	s.logger.Info("core encryption state changed", "core", coreName, "state", state)
}
