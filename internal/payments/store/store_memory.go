package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docufind/internal/payments/models"
	id "docufind/pkg/domain"
	"docufind/pkg/platform/sentinel"
)

// InMemoryStore keeps payments and grants in maps guarded by one mutex.
type InMemoryStore struct {
	mu          sync.RWMutex
	payments    map[id.PaymentID]*models.PaymentRequest
	byReference map[string]id.PaymentID
	grants      map[id.PaymentID]*models.AccessGrant
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		payments:    make(map[id.PaymentID]*models.PaymentRequest),
		byReference: make(map[string]id.PaymentID),
		grants:      make(map[id.PaymentID]*models.AccessGrant),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; ok {
		return fmt.Errorf("payment %s: %w", p.ID, sentinel.ErrConflict)
	}
	if _, ok := s.byReference[p.ReferenceID]; ok {
		return fmt.Errorf("reference %s: %w", p.ReferenceID, sentinel.ErrConflict)
	}
	s.payments[p.ID] = clonePayment(p)
	s.byReference[p.ReferenceID] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, pid id.PaymentID) (*models.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[pid]
	if !ok {
		return nil, paymentNotFound(pid)
	}
	return clonePayment(p), nil
}

func (s *InMemoryStore) FindByReference(_ context.Context, ref string) (*models.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.byReference[ref]
	if !ok {
		return nil, fmt.Errorf("reference %s: %w", ref, sentinel.ErrNotFound)
	}
	return clonePayment(s.payments[pid]), nil
}

// Complete applies o when the payment is still pending.
func (s *InMemoryStore) Complete(_ context.Context, pid id.PaymentID, o models.Outcome, now time.Time) (*models.PaymentRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[pid]
	if !ok {
		return nil, false, paymentNotFound(pid)
	}
	changed, err := p.Complete(o, now)
	if err != nil {
		return nil, false, err
	}
	return clonePayment(p), changed, nil
}

func (s *InMemoryStore) CreateGrant(_ context.Context, g *models.AccessGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[g.PaymentID]; !ok {
		return paymentNotFound(g.PaymentID)
	}
	if _, ok := s.grants[g.PaymentID]; ok {
		return fmt.Errorf("grant for payment %s: %w", g.PaymentID, sentinel.ErrConflict)
	}
	s.grants[g.PaymentID] = cloneGrant(g)
	return nil
}

func (s *InMemoryStore) FindGrantByPayment(_ context.Context, pid id.PaymentID) (*models.AccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[pid]
	if !ok {
		return nil, grantNotFound(pid)
	}
	return cloneGrant(g), nil
}

// ActivateGrant stamps the grant once.
func (s *InMemoryStore) ActivateGrant(_ context.Context, pid id.PaymentID, now time.Time) (*models.AccessGrant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[pid]
	if !ok {
		return nil, false, grantNotFound(pid)
	}
	changed := g.Grant(now)
	return cloneGrant(g), changed, nil
}

// ListPending returns pending payments created before cutoff, oldest first.
func (s *InMemoryStore) ListPending(_ context.Context, cutoff time.Time, limit int) ([]*models.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PaymentRequest
	for _, p := range s.payments {
		if p.Status == models.StatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, clonePayment(p))
		}
	}
	sortByCreated(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
