package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"docufind/internal/records/models"
	id "docufind/pkg/domain"
	"docufind/pkg/platform/sentinel"
)

// Error Contract:
// - Return ErrNotFound when the requested record, contact or payment link does not exist
// - Return ErrAlreadyUsed when a removal is confirmed on an already removed record
// - Return ErrInvalidState when the record is removed or the removal token is not the latest
// - Return nil for successful operations
//
// InMemoryStore keeps records, contacts, document types and matches in maps for
// tests and local development. Returned records are copies.
type InMemoryStore struct {
	mu         sync.RWMutex
	records    map[id.RecordID]*models.Record
	contacts   map[id.ContactID]*models.Contact
	contactIdx map[string]id.ContactID
	docTypes   map[int]models.DocumentType
	matches    map[[2]id.RecordID]*models.Match
}

// NewInMemory constructs an empty in-memory record store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records:    make(map[id.RecordID]*models.Record),
		contacts:   make(map[id.ContactID]*models.Contact),
		contactIdx: make(map[string]id.ContactID),
		docTypes:   make(map[int]models.DocumentType),
		matches:    make(map[[2]id.RecordID]*models.Match),
	}
}

func contactKey(c *models.Contact) string {
	return c.FullName + "\x00" + c.Phone + "\x00" + c.Email
}

func (s *InMemoryStore) UpsertDocumentTypes(_ context.Context, types []models.DocumentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dt := range types {
		s.docTypes[dt.ID] = dt
	}
	return nil
}

func (s *InMemoryStore) DocumentTypes(_ context.Context) ([]models.DocumentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DocumentType, 0, len(s.docTypes))
	for _, dt := range s.docTypes {
		out = append(out, dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) FindOrCreateContact(_ context.Context, c *models.Contact) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.contactIdx[contactKey(c)]; ok {
		return s.contacts[existing], nil
	}
	created := *c
	s.contacts[created.ID] = &created
	s.contactIdx[contactKey(c)] = created.ID
	return &created, nil
}

func (s *InMemoryStore) Create(_ context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return fmt.Errorf("record %s: %w", r.ID, sentinel.ErrConflict)
	}
	dt, ok := s.docTypes[r.DocumentTypeID]
	if !ok {
		return fmt.Errorf("document type %d: %w", r.DocumentTypeID, sentinel.ErrNotFound)
	}
	if _, ok := s.contacts[r.ContactID]; !ok {
		return fmt.Errorf("contact %s: %w", r.ContactID, sentinel.ErrNotFound)
	}
	stored := *r
	stored.DocumentType = dt.Name
	stored.Contact = nil
	s.records[r.ID] = &stored
	return nil
}

// hydrate copies a stored record and attaches its contact and type name.
// Caller holds the lock.
func (s *InMemoryStore) hydrate(r *models.Record) *models.Record {
	out := *r
	out.Contact = s.contacts[r.ContactID]
	if dt, ok := s.docTypes[r.DocumentTypeID]; ok {
		out.DocumentType = dt.Name
	}
	return &out
}

func (s *InMemoryStore) FindByRef(_ context.Context, ref models.Ref) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[ref.ID]
	if !ok || r.Kind != ref.Kind {
		return nil, fmt.Errorf("record %s: %w", ref, sentinel.ErrNotFound)
	}
	return s.hydrate(r), nil
}

func (s *InMemoryStore) List(_ context.Context, q models.ListQuery) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	var out []*models.Record
	for _, r := range s.records {
		if r.Kind != q.Kind || r.Removed {
			continue
		}
		if q.DocumentTypeID != 0 && r.DocumentTypeID != q.DocumentTypeID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Name), search) &&
			!strings.Contains(strings.ToLower(r.DocumentNumber), search) {
			continue
		}
		out = append(out, s.hydrate(r))
	}
	SortForListing(out, q.Kind, q.Now)

	if q.Offset >= len(out) {
		return []*models.Record{}, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// SortForListing orders lost records premium-first then newest-first, and found
// records newest-first. Ties on created_at fall back to id for a stable page order.
func SortForListing(records []*models.Record, kind id.RecordKind, now time.Time) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if kind == id.RecordKindLost {
			pa, pb := a.PremiumActive(now), b.PremiumActive(now)
			if pa != pb {
				return pa
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func (s *InMemoryStore) DemoteExpiredPremium(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	demoted := 0
	for _, r := range s.records {
		if r.PremiumLapsed(now) {
			r.IsPremium = false
			demoted++
		}
	}
	return demoted, nil
}

func (s *InMemoryStore) FindMatchCandidates(_ context.Context, q models.MatchQuery) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records {
		if q.Matches(r) {
			out = append(out, s.hydrate(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateImage(_ context.Context, ref models.Ref, img models.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[ref.ID]
	if !ok || r.Kind != ref.Kind {
		return fmt.Errorf("record %s: %w", ref, sentinel.ErrNotFound)
	}
	r.Image = img
	return nil
}

func (s *InMemoryStore) ListMissingDerivedImage(_ context.Context, limit int) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records {
		if r.Kind == id.RecordKindFound && r.Image.Original != "" && r.Image.Blurred == "" {
			out = append(out, s.hydrate(r))
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) SetPendingRemoval(_ context.Context, ref models.Ref, pending models.PendingRemoval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[ref.ID]
	if !ok || r.Kind != ref.Kind {
		return fmt.Errorf("record %s: %w", ref, sentinel.ErrNotFound)
	}
	if !r.CanRequestRemoval() {
		return fmt.Errorf("record %s already removed: %w", ref, sentinel.ErrInvalidState)
	}
	p := pending
	r.Pending = &p
	return nil
}

func (s *InMemoryStore) ConfirmRemoval(_ context.Context, ref models.Ref, tokenHash string, now time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[ref.ID]
	if !ok || r.Kind != ref.Kind {
		return nil, fmt.Errorf("record %s: %w", ref, sentinel.ErrNotFound)
	}
	if r.Removed {
		return nil, fmt.Errorf("record %s: %w", ref, sentinel.ErrAlreadyUsed)
	}
	if r.Pending == nil || r.Pending.TokenHash != tokenHash {
		return nil, fmt.Errorf("removal token superseded: %w", sentinel.ErrInvalidState)
	}
	r.ApplyRemoval(now)
	return s.hydrate(r), nil
}

func (s *InMemoryStore) AttachPremiumPayment(_ context.Context, recordID id.RecordID, prev *id.PaymentID, paymentID id.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok || r.Kind != id.RecordKindLost {
		return fmt.Errorf("lost record %s: %w", recordID, sentinel.ErrNotFound)
	}
	switch {
	case prev == nil && r.PremiumPaymentID != nil,
		prev != nil && (r.PremiumPaymentID == nil || *r.PremiumPaymentID != *prev):
		return fmt.Errorf("record %s premium payment changed: %w", recordID, sentinel.ErrConflict)
	}
	pid := paymentID
	r.PremiumPaymentID = &pid
	return nil
}

func (s *InMemoryStore) ActivatePremiumByPayment(_ context.Context, paymentID id.PaymentID, now time.Time, window time.Duration) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first *models.Record
	for _, r := range s.records {
		if r.PremiumPaymentID == nil || *r.PremiumPaymentID != paymentID {
			continue
		}
		if first == nil || r.CreatedAt.Before(first.CreatedAt) {
			first = r
		}
	}
	if first == nil {
		return nil, fmt.Errorf("no record for payment %s: %w", paymentID, sentinel.ErrNotFound)
	}
	first.ActivatePremium(now, window)
	return s.hydrate(first), nil
}

func (s *InMemoryStore) FindByPremiumPayment(_ context.Context, paymentID id.PaymentID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var first *models.Record
	for _, r := range s.records {
		if r.PremiumPaymentID != nil && *r.PremiumPaymentID == paymentID {
			if first == nil || r.CreatedAt.Before(first.CreatedAt) {
				first = r
			}
		}
	}
	if first == nil {
		return nil, fmt.Errorf("no record for payment %s: %w", paymentID, sentinel.ErrNotFound)
	}
	return s.hydrate(first), nil
}

func (s *InMemoryStore) SaveMatch(_ context.Context, m *models.Match) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]id.RecordID{m.LostID, m.FoundID}
	if _, ok := s.matches[key]; ok {
		return false, nil
	}
	stored := *m
	s.matches[key] = &stored
	return true, nil
}

func (s *InMemoryStore) Stats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st models.Stats
	for _, r := range s.records {
		if r.Kind == id.RecordKindLost {
			st.TotalLost++
		} else {
			st.TotalFound++
		}
	}
	matchedLost := make(map[id.RecordID]struct{})
	for key := range s.matches {
		matchedLost[key[0]] = struct{}{}
	}
	st.TotalMatched = len(s.matches)
	st.SuccessRate = successRate(len(matchedLost), st.TotalLost)
	return st, nil
}

func successRate(matchedLost, totalLost int) int {
	if totalLost == 0 {
		return 0
	}
	return matchedLost * 100 / totalLost
}
