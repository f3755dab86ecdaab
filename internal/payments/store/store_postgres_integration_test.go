//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docufind/internal/payments/models"
	"docufind/internal/payments/store"
	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	"docufind/pkg/platform/sentinel"
	"docufind/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "access_grants", "payment_requests"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) TestPaymentRoundTrip() {
	ctx := context.Background()
	p := models.NewPaymentRequest(models.PurposePremiumUpgrade, "250788000000", 500, "RWF", s.now)
	s.Require().NoError(s.store.Create(ctx, p))
	s.ErrorIs(s.store.Create(ctx, p), sentinel.ErrConflict)

	got, err := s.store.FindByReference(ctx, p.ReferenceID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal(models.StatusPending, got.Status)
	s.Nil(got.CompletedAt)
}

func (s *PostgresStoreSuite) TestConcurrentCompleteChangesOnce() {
	ctx := context.Background()
	p := models.NewPaymentRequest(models.PurposeContactAccess, "250788000000", 2000, "RWF", s.now)
	s.Require().NoError(s.store.Create(ctx, p))

	var changedCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := s.store.Complete(ctx, p.ID, models.Outcome{Status: models.StatusSuccessful, TransactionID: "tx"}, s.now)
			if err == nil && changed {
				changedCount.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), changedCount.Load())

	got, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSuccessful, got.Status)
	s.Equal("tx", got.TransactionID)
}

func (s *PostgresStoreSuite) TestGrantActivatesOnce() {
	ctx := context.Background()
	p := models.NewPaymentRequest(models.PurposeContactAccess, "250788000000", 2000, "RWF", s.now)
	s.Require().NoError(s.store.Create(ctx, p))
	subject := recmodels.Ref{Kind: id.RecordKindFound, ID: id.NewRecordID()}
	s.Require().NoError(s.store.CreateGrant(ctx, &models.AccessGrant{
		ID: id.NewGrantID(), PaymentID: p.ID, Subject: subject, RequesterEmail: "me@example.com", CreatedAt: s.now,
	}))

	g, changed, err := s.store.ActivateGrant(ctx, p.ID, s.now)
	s.Require().NoError(err)
	s.True(changed)
	s.Equal(subject, g.Subject)

	_, changed, err = s.store.ActivateGrant(ctx, p.ID, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.False(changed)
}
