package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"docufind/internal/audit"
	"docufind/internal/images"
	"docufind/internal/jobs"
	"docufind/internal/records/models"
	"docufind/internal/records/store"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/requestcontext"
)

type RecordServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	storage *images.MemoryStorage
	broker  *jobs.ChannelBroker
	audit   *audit.InMemoryStore
	service *Service
	now     time.Time
}

func TestRecordServiceSuite(t *testing.T) {
	suite.Run(t, new(RecordServiceSuite))
}

func (s *RecordServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = store.NewInMemory()
	s.storage = images.NewMemoryStorage()
	s.broker = jobs.NewChannelBroker(8)
	s.audit = audit.NewInMemoryStore()
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.service = New(s.store,
		images.NewService(s.storage, images.GaussianBlurrer{Sigma: 2}, images.WithLogger(logger)),
		s.broker,
		WithLogger(logger),
		WithAuditor(audit.NewPublisher(s.audit, logger)),
	)
	_, err := s.service.SeedDocumentTypes(context.Background(), nil)
	s.Require().NoError(err)
}

func (s *RecordServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (s *RecordServiceSuite) lostRequest() CreateRequest {
	return CreateRequest{
		Kind:            id.RecordKindLost,
		DocumentTypeID:  1,
		Name:            "Jane Doe",
		DocumentNumber:  "1199880012345678",
		Location:        "Kigali",
		ContactFullName: "Jane Doe",
		ContactPhone:    "0788000001",
		ContactEmail:    "jane@example.com",
	}
}

func (s *RecordServiceSuite) foundRequest() CreateRequest {
	return CreateRequest{
		Kind:            id.RecordKindFound,
		DocumentTypeID:  1,
		Name:            "Jane Doe",
		DocumentNumber:  "1199880012345678",
		ContactFullName: "Good Finder",
		ContactPhone:    "0788000002",
		Image:           &images.Upload{Data: pngBytes(s.T()), ContentType: "image/png"},
	}
}

func (s *RecordServiceSuite) TestCreateFoundStoresImagesAndQueuesMatching() {
	created, err := s.service.Create(s.ctxAt(s.now), s.foundRequest())
	s.Require().NoError(err)

	s.Equal("J**e D.", created.View.Name)
	s.Equal("11************78", created.View.DocumentNumber)
	s.Equal("National ID", created.View.DocumentType)
	s.NotEmpty(created.View.ImageURL)

	r, err := s.store.FindByRef(context.Background(), created.Ref)
	s.Require().NoError(err)
	s.NotEmpty(r.Image.Original)
	s.NotEmpty(r.Image.Blurred)
	s.Equal("Good Finder", r.Contact.FullName)

	s.Require().Equal(1, s.broker.Len())
	d, err := s.broker.Next(context.Background())
	s.Require().NoError(err)
	s.Equal(jobs.KindMatchRecord, d.Job.Kind)
	var ref models.Ref
	s.Require().NoError(d.Job.Decode(&ref))
	s.Equal(created.Ref, ref)
}

func (s *RecordServiceSuite) TestCreateValidation() {
	s.Run("found without photo", func() {
		req := s.foundRequest()
		req.Image = nil
		_, err := s.service.Create(s.ctxAt(s.now), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("lost without owner name", func() {
		req := s.lostRequest()
		req.Name = "  "
		_, err := s.service.Create(s.ctxAt(s.now), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("unknown document type", func() {
		req := s.lostRequest()
		req.DocumentTypeID = 99
		_, err := s.service.Create(s.ctxAt(s.now), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("bad email", func() {
		req := s.lostRequest()
		req.ContactEmail = "nope"
		_, err := s.service.Create(s.ctxAt(s.now), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Equal(0, s.broker.Len())
}

func (s *RecordServiceSuite) TestCreateSanitizesDescription() {
	req := s.lostRequest()
	req.Description = `<script>alert(1)</script>Lost near <b>the market</b>`
	created, err := s.service.Create(s.ctxAt(s.now), req)
	s.Require().NoError(err)
	s.Equal("Lost near the market", created.View.Description)
}

func (s *RecordServiceSuite) TestCreateSurvivesEnqueueFailure() {
	s.broker.Close()
	created, err := s.service.Create(s.ctxAt(s.now), s.lostRequest())
	s.Require().NoError(err)

	_, err = s.store.FindByRef(context.Background(), created.Ref)
	s.NoError(err)
}

func (s *RecordServiceSuite) TestLostListingDemotesExpiredPremium() {
	older, err := s.service.Create(s.ctxAt(s.now.Add(-2*time.Hour)), s.lostRequest())
	s.Require().NoError(err)
	newer, err := s.service.Create(s.ctxAt(s.now.Add(-time.Hour)), s.lostRequest())
	s.Require().NoError(err)

	pid := id.NewPaymentID()
	s.Require().NoError(s.store.AttachPremiumPayment(context.Background(), older.Ref.ID, nil, pid))
	_, err = s.store.ActivatePremiumByPayment(context.Background(), pid, s.now, 7*24*time.Hour)
	s.Require().NoError(err)

	views, err := s.service.List(s.ctxAt(s.now), models.ListQuery{Kind: id.RecordKindLost})
	s.Require().NoError(err)
	s.Require().Len(views, 2)
	s.Equal(older.Ref.ID, views[0].ID, "active premium first")
	s.True(views[0].IsPremium)

	views, err = s.service.List(s.ctxAt(s.now.Add(8*24*time.Hour)), models.ListQuery{Kind: id.RecordKindLost})
	s.Require().NoError(err)
	s.Require().Len(views, 2)
	s.Equal(newer.Ref.ID, views[0].ID, "newest first once premium lapsed")
	s.False(views[1].IsPremium)

	r, err := s.store.FindByRef(context.Background(), older.Ref)
	s.Require().NoError(err)
	s.False(r.IsPremium, "lapsed flag cleared")
}

func (s *RecordServiceSuite) TestListRejectsUnknownKind() {
	_, err := s.service.List(s.ctxAt(s.now), models.ListQuery{Kind: "stolen"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *RecordServiceSuite) TestGet() {
	created, err := s.service.Create(s.ctxAt(s.now), s.lostRequest())
	s.Require().NoError(err)

	view, err := s.service.Get(s.ctxAt(s.now), created.Ref)
	s.Require().NoError(err)
	s.Equal("J**e D.", view.Name)

	s.Require().NoError(s.store.SetPendingRemoval(context.Background(), created.Ref, models.PendingRemoval{
		TokenHash: "h", ExpiresAt: s.now.Add(time.Hour), Reason: id.RemovalReasonFound,
	}))
	_, err = s.store.ConfirmRemoval(context.Background(), created.Ref, "h", s.now)
	s.Require().NoError(err)

	_, err = s.service.Get(s.ctxAt(s.now), created.Ref)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Get(s.ctxAt(s.now), models.Ref{Kind: id.RecordKindFound, ID: created.Ref.ID})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "kind is part of the reference")
}

func (s *RecordServiceSuite) TestVerifyInput() {
	created, err := s.service.Create(s.ctxAt(s.now), s.lostRequest())
	s.Require().NoError(err)

	view, err := s.service.VerifyInput(s.ctxAt(s.now), created.Ref, " JANE DOE ")
	s.Require().NoError(err)
	s.Equal("Jane Doe", view.Name)
	s.Equal("1199880012345678", view.DocumentNumber)
	s.Nil(view.Contact, "contact stays behind the payment gate")

	_, err = s.service.VerifyInput(s.ctxAt(s.now), created.Ref, "John")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	events, err := s.audit.ListRecent(context.Background(), 10)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, string(audit.EventInstantVerified))
	s.Contains(actions, string(audit.EventVerificationDenied))
}

func (s *RecordServiceSuite) TestEnsureDerivedImages() {
	created, err := s.service.Create(s.ctxAt(s.now), s.foundRequest())
	s.Require().NoError(err)
	r, err := s.store.FindByRef(context.Background(), created.Ref)
	s.Require().NoError(err)
	s.Require().NoError(s.store.UpdateImage(context.Background(), created.Ref, models.Image{Original: r.Image.Original}))

	repaired, err := s.service.EnsureDerivedImages(context.Background(), 10)
	s.Require().NoError(err)
	s.Equal(1, repaired)

	r, err = s.store.FindByRef(context.Background(), created.Ref)
	s.Require().NoError(err)
	s.NotEmpty(r.Image.Blurred)

	repaired, err = s.service.EnsureDerivedImages(context.Background(), 10)
	s.Require().NoError(err)
	s.Equal(0, repaired)
}

func (s *RecordServiceSuite) TestStatsAndDocumentTypes() {
	_, err := s.service.Create(s.ctxAt(s.now), s.lostRequest())
	s.Require().NoError(err)
	_, err = s.service.Create(s.ctxAt(s.now), s.foundRequest())
	s.Require().NoError(err)

	st, err := s.service.Stats(context.Background())
	s.Require().NoError(err)
	s.Equal(1, st.TotalLost)
	s.Equal(1, st.TotalFound)
	s.Equal(0, st.TotalMatched)

	types, err := s.service.DocumentTypes(context.Background())
	s.Require().NoError(err)
	s.Len(types, 8)
	s.Equal("National ID", types[0].Name)
}

func TestParseDocumentTypes(t *testing.T) {
	types, err := ParseDocumentTypes([]byte("document_types:\n  - id: 3\n    name: ' Passport '\n"))
	require.NoError(t, err)
	assert.Equal(t, []models.DocumentType{{ID: 3, Name: "Passport"}}, types)

	_, err = ParseDocumentTypes([]byte("document_types:\n  - id: 1\n    name: A\n  - id: 1\n    name: B\n"))
	assert.Error(t, err)

	_, err = ParseDocumentTypes([]byte("document_types:\n  - name: A\n"))
	assert.Error(t, err)

	_, err = ParseDocumentTypes([]byte("document_types: [:"))
	assert.Error(t, err)
}
