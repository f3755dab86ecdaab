// Package images stores record photos and derives the blurred variant shown on
// public found-document listings.
package images

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docufind/pkg/platform/sentinel"
)

// Storage is an object store addressed by key.
type Storage interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	// URL returns a time-limited address clients can fetch the object from.
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MemoryStorage keeps objects in a map for tests and local development.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *MemoryStorage) Put(_ context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), body...)
	m.types[key] = contentType
	return nil
}

func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, sentinel.ErrNotFound)
	}
	return append([]byte(nil), body...), nil
}

func (m *MemoryStorage) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("object %s: %w", key, sentinel.ErrNotFound)
	}
	return "memory://" + key, nil
}
