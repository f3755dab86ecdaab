//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docufind/internal/records/models"
	"docufind/internal/records/store"
	id "docufind/pkg/domain"
	"docufind/pkg/platform/sentinel"
	txcontext "docufind/pkg/platform/tx"
	"docufind/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	contact  *models.Contact
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "matches", "access_grants", "payment_requests", "records", "contacts", "document_types"))
	s.Require().NoError(s.store.UpsertDocumentTypes(ctx, []models.DocumentType{{ID: 1, Name: "National ID"}, {ID: 2, Name: "Passport"}}))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	c, err := s.store.FindOrCreateContact(ctx, &models.Contact{ID: id.NewContactID(), FullName: "Jane Doe", Phone: "0788000000", Email: "jane@example.com", CreatedAt: s.now})
	s.Require().NoError(err)
	s.contact = c
}

func (s *PostgresStoreSuite) create(kind id.RecordKind, name, number string, createdAt time.Time) *models.Record {
	r := &models.Record{
		ID: id.NewRecordID(), Kind: kind, DocumentTypeID: 1, Name: name, DocumentNumber: number,
		ContactID: s.contact.ID, CreatedAt: createdAt,
	}
	s.Require().NoError(s.store.Create(context.Background(), r))
	return r
}

func (s *PostgresStoreSuite) TestContactGetOrCreate() {
	again, err := s.store.FindOrCreateContact(context.Background(), &models.Contact{ID: id.NewContactID(), FullName: "Jane Doe", Phone: "0788000000", Email: "jane@example.com", CreatedAt: s.now})
	s.Require().NoError(err)
	s.Equal(s.contact.ID, again.ID)
}

func (s *PostgresStoreSuite) TestListingOrder() {
	ctx := context.Background()
	older := s.create(id.RecordKindLost, "A", "1", s.now.Add(-3*time.Hour))
	newer := s.create(id.RecordKindLost, "B", "2", s.now.Add(-1*time.Hour))
	premium := s.create(id.RecordKindLost, "C", "3", s.now.Add(-5*time.Hour))
	pid := id.NewPaymentID()
	s.Require().NoError(s.store.AttachPremiumPayment(ctx, premium.ID, nil, pid))
	_, err := s.store.ActivatePremiumByPayment(ctx, pid, s.now.Add(-7*24*time.Hour+time.Hour), 7*24*time.Hour)
	s.Require().NoError(err)

	got, err := s.store.List(ctx, models.ListQuery{Kind: id.RecordKindLost, Limit: 10, Now: s.now})
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal([]id.RecordID{premium.ID, newer.ID, older.ID}, []id.RecordID{got[0].ID, got[1].ID, got[2].ID})
}

func (s *PostgresStoreSuite) TestSearchEscapesWildcards() {
	ctx := context.Background()
	s.create(id.RecordKindFound, "Jean Bosco", "PC1234", s.now)

	got, err := s.store.List(ctx, models.ListQuery{Kind: id.RecordKindFound, Search: "%", Limit: 10, Now: s.now})
	s.Require().NoError(err)
	s.Empty(got)

	got, err = s.store.List(ctx, models.ListQuery{Kind: id.RecordKindFound, Search: "pc12", Limit: 10, Now: s.now})
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *PostgresStoreSuite) TestMatchCandidates() {
	lost := s.create(id.RecordKindLost, "Jane Doe", "AB123", s.now)
	found := s.create(id.RecordKindFound, "JANE DOE", "ab123", s.now)
	s.create(id.RecordKindFound, "Jane Doe", "", s.now)

	q, ok := models.MatchQueryFor(lost)
	s.Require().True(ok)
	got, err := s.store.FindMatchCandidates(context.Background(), q)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(found.ID, got[0].ID)
}

func (s *PostgresStoreSuite) TestConfirmRemovalIsConditional() {
	ctx := context.Background()
	r := s.create(id.RecordKindFound, "A", "1", s.now)
	s.Require().NoError(s.store.SetPendingRemoval(ctx, r.Ref(), models.PendingRemoval{TokenHash: "hash-1", ExpiresAt: s.now.Add(24 * time.Hour), Reason: id.RemovalReasonDuplicate}))

	_, err := s.store.ConfirmRemoval(ctx, r.Ref(), "other", s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	removed, err := s.store.ConfirmRemoval(ctx, r.Ref(), "hash-1", s.now)
	s.Require().NoError(err)
	s.True(removed.Removed)
	s.Nil(removed.Pending)
	s.Equal(id.RemovalReasonDuplicate, removed.RemovalReason)

	_, err = s.store.ConfirmRemoval(ctx, r.Ref(), "hash-1", s.now)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestRollbackUndoesPremiumActivation() {
	ctx := context.Background()
	r := s.create(id.RecordKindLost, "A", "1", s.now)
	pid := id.NewPaymentID()
	s.Require().NoError(s.store.AttachPremiumPayment(ctx, r.ID, nil, pid))

	runner := txcontext.NewSQLRunner(s.postgres.DB)
	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.ActivatePremiumByPayment(ctx, pid, s.now, 7*24*time.Hour); err != nil {
			return err
		}
		return sentinel.ErrUnavailable
	})
	s.ErrorIs(err, sentinel.ErrUnavailable)

	got, err := s.store.FindByRef(ctx, r.Ref())
	s.Require().NoError(err)
	s.False(got.IsPremium)
}

func (s *PostgresStoreSuite) TestAttachPremiumPaymentComparesPrevious() {
	ctx := context.Background()
	r := s.create(id.RecordKindLost, "A", "1", s.now)
	first, second := id.NewPaymentID(), id.NewPaymentID()

	s.Require().NoError(s.store.AttachPremiumPayment(ctx, r.ID, nil, first))
	s.ErrorIs(s.store.AttachPremiumPayment(ctx, r.ID, nil, second), sentinel.ErrConflict)
	s.Require().NoError(s.store.AttachPremiumPayment(ctx, r.ID, &first, second))

	got, err := s.store.FindByRef(ctx, r.Ref())
	s.Require().NoError(err)
	s.Equal(second, *got.PremiumPaymentID)

	s.ErrorIs(s.store.AttachPremiumPayment(ctx, id.NewRecordID(), nil, first), sentinel.ErrNotFound)
}
