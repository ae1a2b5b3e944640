package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/datapipe/logger"
)

// Factory creates a Storage implementation from its configuration.
type Factory func(cfg Config, log *logger.Logger) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a storage backend factory for the given provider name.
// Implementation packages call this in an init function.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates a Storage implementation based on the given Config.
// Ensure the provider package has been imported (e.g.
// _ "github.com/kbukum/datapipe/storage/local") so its factory is registered.
func New(cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	l := log.WithComponent("storage")
	l.Debug("initializing storage", logger.Fields("provider", cfg.Provider))
	return f(cfg, l)
}

// Stores is a set of named stores.
type Stores struct {
	mu     sync.RWMutex
	stores map[string]Storage
}

// NewStores creates an empty store set.
func NewStores() *Stores {
	return &Stores{stores: make(map[string]Storage)}
}

// Open builds every configured store.
func Open(cfgs map[string]Config, log *logger.Logger) (*Stores, error) {
	s := NewStores()
	for name, cfg := range cfgs {
		st, err := New(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("storage %q: %w", name, err)
		}
		s.Add(name, st)
	}
	return s, nil
}

// Add registers st under name, replacing any previous store.
func (s *Stores) Add(name string, st Storage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[name] = st
}

// Get returns the store registered under name.
func (s *Stores) Get(name string) (Storage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stores[name]
	return st, ok
}

// Names returns the registered store names in sorted order.
func (s *Stores) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
