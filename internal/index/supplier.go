package index

import (
	"fmt"
	"sync"
)

// Supplier hands out a core's Directory for the duration of one
// operation. Every successful Get must be paired with a Release, even
// when the operation between them fails.
type Supplier struct {
	dir *Directory

	mu     sync.Mutex
	refs   int
	closed bool
}

// NewSupplier wraps dir in a ref-counting supplier.
func NewSupplier(dir *Directory) *Supplier {
	return &Supplier{dir: dir}
}

// Get acquires the directory.
func (s *Supplier) Get() (*Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("index: supplier for core %q is closed", s.dir.coreName)
	}
	s.refs++
	return s.dir, nil
}

// Release returns a directory acquired with Get.
func (s *Supplier) Release(dir *Directory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir != s.dir {
		return fmt.Errorf("index: release of foreign directory %q", dir.coreName)
	}
	if s.refs == 0 {
		return fmt.Errorf("index: unbalanced release for core %q", s.dir.coreName)
	}
	s.refs--
	return nil
}

// Refs reports the number of outstanding acquisitions.
func (s *Supplier) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Close marks the supplier closed once no acquisitions are outstanding.
func (s *Supplier) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs != 0 {
		return fmt.Errorf("index: close with %d outstanding acquisitions for core %q", s.refs, s.dir.coreName)
	}
	s.closed = true
	return nil
}

// Registry tracks the open directories of this node's cores.
type Registry struct {
	mu    sync.RWMutex
	cores map[string]*Supplier
}

// NewRegistry creates an empty core registry.
func NewRegistry() *Registry {
	return &Registry{cores: make(map[string]*Supplier)}
}

// Add registers a core's supplier. Replaces any previous registration.
func (r *Registry) Add(coreName string, s *Supplier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cores[coreName] = s
}

// Remove drops a core's registration.
func (r *Registry) Remove(coreName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cores, coreName)
}

// Core returns the supplier for coreName, or nil when unknown.
func (r *Registry) Core(coreName string) *Supplier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cores[coreName]
}

// CoreNames lists the registered cores.
func (r *Registry) CoreNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.cores))
	for name := range r.cores {
		names = append(names, name)
	}
	return names
}
