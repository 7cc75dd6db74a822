// Package storage provides the durable key-value stores behind persisted
// client state.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned by Store.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// Store is a durable key-value store.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases the store's resources.
	Close() error
}

// Slot is one logical record of a Store. It is read whole and written whole.
type Slot struct {
	store Store
	key   string
}

// NewSlot binds key of store.
func NewSlot(store Store, key string) Slot {
	return Slot{store: store, key: key}
}

// Key returns the slot key.
func (s Slot) Key() string { return s.key }

// Load returns the stored record, or nil when the slot was never written.
func (s Slot) Load(ctx context.Context) ([]byte, error) {
	data, err := s.store.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", s.key, err)
	}
	return data, nil
}

// Save overwrites the record.
func (s Slot) Save(ctx context.Context, data []byte) error {
	if err := s.store.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.key, err)
	}
	return nil
}

// Config selects and configures a Store backend.
type Config struct {
	Driver   string `yaml:"driver" validate:"oneof=sqlite badger redis memory"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
}

// Open creates the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		return NewSQLite(cfg.Path)
	case "badger":
		return NewBadger(cfg.Path)
	case "redis":
		return NewRedis(ctx, cfg.RedisURL)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Memory is a process-local Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error { return nil }
