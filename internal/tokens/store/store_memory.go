package store

import (
	"context"
	"sync"
	"time"

	"docufind/internal/tokens/models"
)

// InMemoryStore keeps tokens in a map guarded by one mutex.
type InMemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*models.Token
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]*models.Token)}
}

func (s *InMemoryStore) Save(_ context.Context, t *models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.Hash] = clone(t)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, hash string) (*models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok {
		return nil, notFound()
	}
	return clone(t), nil
}

// Redeem validates and consumes the token under the store lock.
func (s *InMemoryStore) Redeem(_ context.Context, hash string, expect models.Expectation, now time.Time) (*models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[hash]
	if !ok {
		return nil, notFound()
	}
	if err := t.Validate(expect, now); err != nil {
		return nil, translateValidation(err)
	}
	if t.Purpose.DeletedOnUse() {
		delete(s.tokens, hash)
	} else {
		t.MarkConsumed(now)
	}
	return clone(t), nil
}

// DeleteExpired removes tokens whose expiry is older than cutoff.
func (s *InMemoryStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for hash, t := range s.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(s.tokens, hash)
			deleted++
		}
	}
	return deleted, nil
}
