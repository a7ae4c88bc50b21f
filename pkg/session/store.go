// Package session persists the logged-in user between runs.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
	"xhstoolbox/pkg/config"
	"xhstoolbox/pkg/logger"
)

var (
	// ErrNotFound is returned by Load and Delete for an absent key
	ErrNotFound = stderrors.New("session key not found")
	// ErrStoreUnavailable means the backing store cannot be used here
	ErrStoreUnavailable = stderrors.New("session store unavailable")
	// ErrCorrupt means stored data exists but cannot be decoded, for example
	// a damaged file or one encrypted under another passphrase
	ErrCorrupt = stderrors.New("session store corrupt")
)

// Store is a small key/value store for session state
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// NewStore creates the store selected by cfg
func NewStore(cfg *config.SessionConfig, log logger.Logger) (Store, error) {
	switch cfg.Store {
	case config.StoreFile, "":
		path := cfg.File
		if path == "" {
			dir, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "session.enc")
		}
		return NewFileStore(path)
	case config.StoreKeyring:
		return NewKeyringStore(KeyringService)
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logger.OrGlobal(log).DebugWithFields("Using redis session store", map[string]interface{}{
			"addr":   cfg.RedisAddr,
			"db":     cfg.RedisDB,
			"prefix": cfg.RedisPrefix,
		})
		return NewRedisStore(client, cfg.RedisPrefix, 0), nil
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

// DefaultDir returns the directory holding local session files
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	dir := filepath.Join(base, "xhstoolbox")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}
	return dir, nil
}

// MemoryStore keeps values in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return ErrNotFound
	}
	delete(m.data, key)
	return nil
}
