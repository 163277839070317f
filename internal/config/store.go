package config

import (
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

// Watcher is notified after a config update has been committed.
type Watcher func(newCfg *Config, changed map[string]bool)

// Validator may veto an update before it is committed.
type Validator func(newCfg *Config, changed map[string]bool) error

// Store holds the live configuration and fans out changes.
type Store struct {
	v          atomic.Value // *Config
	mu         sync.RWMutex
	nextID     int
	watchers   map[int]Watcher
	validators map[int]Validator
}

func NewStore(cfg *Config) *Store {
	s := &Store{watchers: map[int]Watcher{}, validators: map[int]Validator{}}
	s.v.Store(cfg)
	return s
}

func (s *Store) Get() *Config {
	return s.v.Load().(*Config)
}

// Update commits newCfg without validation and notifies watchers.
func (s *Store) Update(newCfg *Config, changed map[string]bool) {
	s.v.Store(newCfg)
	s.mu.RLock()
	ws := lo.Values(s.watchers)
	s.mu.RUnlock()
	for _, w := range ws {
		w(newCfg, changed)
	}
}

// Watch registers w and returns a function that unregisters it.
func (s *Store) Watch(w Watcher) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// AddValidator registers a validator. If any validator returns error on update, the update will be discarded.
func (s *Store) AddValidator(v Validator) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.validators[id] = v
	return func() {
		s.mu.Lock()
		delete(s.validators, id)
		s.mu.Unlock()
	}
}

// UpdateValidated runs Config.Validate and the registered validators before
// committing. If any of them fails, no change is applied.
func (s *Store) UpdateValidated(newCfg *Config, changed map[string]bool) bool {
	if err := newCfg.Validate(); err != nil {
		configLogger.Sugar().Warnf("config update rejected: %v", err)
		return false
	}
	s.mu.RLock()
	vals := lo.Values(s.validators)
	s.mu.RUnlock()
	for _, v := range vals {
		if err := v(newCfg, changed); err != nil {
			configLogger.Sugar().Warnf("config update rejected: %v", err)
			return false
		}
	}
	s.Update(newCfg, changed)
	return true
}

func cloneConfig(in *Config) *Config {
	out := *in
	return &out
}
