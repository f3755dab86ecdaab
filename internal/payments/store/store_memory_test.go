package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docufind/internal/payments/models"
	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	"docufind/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) payment() *models.PaymentRequest {
	p := models.NewPaymentRequest(models.PurposeContactAccess, "250788000000", 2000, "RWF", s.now)
	s.Require().NoError(s.store.Create(s.ctx, p))
	return p
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	p := s.payment()

	got, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ReferenceID, got.ReferenceID)

	byRef, err := s.store.FindByReference(s.ctx, p.ReferenceID)
	s.Require().NoError(err)
	s.Equal(p.ID, byRef.ID)

	dup := *p
	dup.ID = id.NewPaymentID()
	s.ErrorIs(s.store.Create(s.ctx, &dup), sentinel.ErrConflict)

	_, err = s.store.FindByID(s.ctx, id.NewPaymentID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestCompleteTransitionsOnce() {
	p := s.payment()

	var changedCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := s.store.Complete(s.ctx, p.ID, models.Outcome{Status: models.StatusSuccessful, TransactionID: "tx"}, s.now)
			if err == nil && changed {
				changedCount.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), changedCount.Load())

	got, changed, err := s.store.Complete(s.ctx, p.ID, models.Outcome{Status: models.StatusFailed}, s.now)
	s.Require().NoError(err)
	s.False(changed)
	s.Equal(models.StatusSuccessful, got.Status)
}

func (s *InMemoryStoreSuite) TestGrantLifecycle() {
	p := s.payment()
	g := &models.AccessGrant{
		ID:             id.NewGrantID(),
		PaymentID:      p.ID,
		Subject:        recmodels.Ref{Kind: id.RecordKindFound, ID: id.NewRecordID()},
		RequesterEmail: "me@example.com",
		CreatedAt:      s.now,
	}
	s.Require().NoError(s.store.CreateGrant(s.ctx, g))
	s.ErrorIs(s.store.CreateGrant(s.ctx, g), sentinel.ErrConflict)

	got, changed, err := s.store.ActivateGrant(s.ctx, p.ID, s.now)
	s.Require().NoError(err)
	s.True(changed)
	s.True(got.Granted())

	_, changed, err = s.store.ActivateGrant(s.ctx, p.ID, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.False(changed)

	stored, err := s.store.FindGrantByPayment(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(s.now, *stored.GrantedAt)

	err = s.store.CreateGrant(s.ctx, &models.AccessGrant{ID: id.NewGrantID(), PaymentID: id.NewPaymentID()})
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *InMemoryStoreSuite) TestListPending() {
	old := s.payment()
	done := s.payment()
	_, _, err := s.store.Complete(s.ctx, done.ID, models.Outcome{Status: models.StatusFailed}, s.now)
	s.Require().NoError(err)
	fresh := models.NewPaymentRequest(models.PurposePremiumUpgrade, "250788000001", 500, "RWF", s.now.Add(time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, fresh))

	pending, err := s.store.ListPending(s.ctx, s.now.Add(time.Minute), 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(old.ID, pending[0].ID)
}
