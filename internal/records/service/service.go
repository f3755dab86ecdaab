// Package service runs the public lost-and-found registry: report submission,
// masked listings, instant ownership checks and registry statistics.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"docufind/internal/audit"
	"docufind/internal/images"
	"docufind/internal/jobs"
	"docufind/internal/matching"
	"docufind/internal/platform/metrics"
	"docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/platform/sentinel"
	"docufind/pkg/requestcontext"
)

// Store is the record repository.
type Store interface {
	UpsertDocumentTypes(ctx context.Context, types []models.DocumentType) error
	DocumentTypes(ctx context.Context) ([]models.DocumentType, error)
	FindOrCreateContact(ctx context.Context, c *models.Contact) (*models.Contact, error)
	Create(ctx context.Context, r *models.Record) error
	FindByRef(ctx context.Context, ref models.Ref) (*models.Record, error)
	List(ctx context.Context, q models.ListQuery) ([]*models.Record, error)
	DemoteExpiredPremium(ctx context.Context, now time.Time) (int, error)
	UpdateImage(ctx context.Context, ref models.Ref, img models.Image) error
	ListMissingDerivedImage(ctx context.Context, limit int) ([]*models.Record, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// Images stores photos and addresses their public variants.
type Images interface {
	Store(ctx context.Context, ref models.Ref, upload images.Upload) (models.Image, error)
	EnsureDerived(ctx context.Context, r *models.Record) (models.Image, bool, error)
	PublicURL(ctx context.Context, r *models.Record) string
}

// Service is the registry front door.
type Service struct {
	records   Store
	images    Images
	queue     jobs.Enqueuer
	sanitizer *bluemonday.Policy
	auditor   *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(records Store, imgs Images, queue jobs.Enqueuer, opts ...Option) *Service {
	s := &Service{
		records:   records,
		images:    imgs,
		queue:     queue,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Created is the outcome of a successful submission.
type Created struct {
	Ref  models.Ref
	View models.PublicView
}

// Create stores a report and queues matching against the opposite kind.
// Matching never runs in the caller's request.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	contact, err := s.records.FindOrCreateContact(ctx, &models.Contact{
		ID:        id.NewContactID(),
		FullName:  req.ContactFullName,
		Phone:     req.ContactPhone,
		Email:     req.ContactEmail,
		CreatedAt: now,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store contact")
	}

	r := &models.Record{
		ID:             id.NewRecordID(),
		Kind:           req.Kind,
		DocumentTypeID: req.DocumentTypeID,
		Name:           req.Name,
		DocumentNumber: req.DocumentNumber,
		IssueDate:      req.IssueDate,
		EventDate:      req.EventDate,
		Location:       req.Location,
		Description:    strings.TrimSpace(s.sanitizer.Sanitize(req.Description)),
		ContactID:      contact.ID,
		CreatedAt:      now,
	}
	if req.Image != nil {
		img, err := s.images.Store(ctx, r.Ref(), *req.Image)
		if err != nil {
			return nil, err
		}
		r.Image = img
	}

	if err := s.records.Create(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown document type")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store report")
	}
	r.Contact = contact

	s.metrics.IncRecordCreated(r.Kind.String())
	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventRecordCreated),
		Subject: r.Ref().String(),
		Actor:   contact.Email,
	})
	s.logger.InfoContext(ctx, "report created",
		"request_id", requestcontext.RequestID(ctx),
		"record", r.Ref().String(),
	)
	s.enqueueMatch(ctx, r.Ref())

	return &Created{Ref: r.Ref(), View: r.ToPublic(s.images.PublicURL(ctx, r), now)}, nil
}

// enqueueMatch queues matching for ref. A failure leaves the record stored and
// unmatched until a later submission on the opposite side pairs with it.
func (s *Service) enqueueMatch(ctx context.Context, ref models.Ref) {
	job, err := matching.NewMatchJob(ref)
	if err == nil {
		err = s.queue.Enqueue(ctx, job)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue matching",
			"request_id", requestcontext.RequestID(ctx),
			"record", ref.String(),
			"error", err,
		)
	}
}

// List returns one page of live reports of q.Kind with personal fields masked.
// Lapsed premium flags on lost reports are cleared before ordering.
func (s *Service) List(ctx context.Context, q models.ListQuery) ([]models.PublicView, error) {
	if q.Kind != id.RecordKindLost && q.Kind != id.RecordKindFound {
		return nil, dErrors.New(dErrors.CodeValidation, "report type must be lost or found")
	}
	now := requestcontext.Now(ctx)
	if q.Kind == id.RecordKindLost {
		if n, err := s.records.DemoteExpiredPremium(ctx, now); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh featured listings")
		} else if n > 0 {
			s.logger.InfoContext(ctx, "premium listings expired", "count", n)
		}
	}
	q.Now = now
	q.Normalize()

	records, err := s.records.List(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reports")
	}
	out := make([]models.PublicView, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToPublic(s.images.PublicURL(ctx, r), now))
	}
	return out, nil
}

// Get returns the masked view of one live report.
func (s *Service) Get(ctx context.Context, ref models.Ref) (*models.PublicView, error) {
	r, err := s.findLive(ctx, ref)
	if err != nil {
		return nil, err
	}
	view := r.ToPublic(s.images.PublicURL(ctx, r), requestcontext.Now(ctx))
	return &view, nil
}

// VerifyInput is the instant ownership check. A caller who knows the owner name
// or the document number sees the stored values; the contact stays behind the
// payment gate.
func (s *Service) VerifyInput(ctx context.Context, ref models.Ref, input string) (*models.VerifiedView, error) {
	r, err := s.findLive(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !r.MatchesVerification(input) {
		s.auditor.Emit(ctx, audit.Event{
			Action:  string(audit.EventVerificationDenied),
			Subject: ref.String(),
			Detail:  "instant verification",
		})
		return nil, dErrors.New(dErrors.CodeForbidden, "verification details do not match this report")
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventInstantVerified),
		Subject: ref.String(),
	})
	view := r.ToVerified(false)
	return &view, nil
}

func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	st, err := s.records.Stats(ctx)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute statistics")
	}
	return st, nil
}

func (s *Service) DocumentTypes(ctx context.Context) ([]models.DocumentType, error) {
	types, err := s.records.DocumentTypes(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document types")
	}
	return types, nil
}

// EnsureDerivedImages recreates missing blurred variants for up to limit found
// reports and returns how many were repaired.
func (s *Service) EnsureDerivedImages(ctx context.Context, limit int) (int, error) {
	pending, err := s.records.ListMissingDerivedImage(ctx, limit)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list images to derive")
	}
	repaired := 0
	for _, r := range pending {
		img, changed, err := s.images.EnsureDerived(ctx, r)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to derive image",
				"record", r.Ref().String(),
				"error", err,
			)
			continue
		}
		if !changed {
			continue
		}
		if err := s.records.UpdateImage(ctx, r.Ref(), img); err != nil {
			s.logger.ErrorContext(ctx, "failed to save derived image",
				"record", r.Ref().String(),
				"error", err,
			)
			continue
		}
		repaired++
	}
	return repaired, nil
}

func (s *Service) findLive(ctx context.Context, ref models.Ref) (*models.Record, error) {
	r, err := s.records.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	if r.Removed {
		return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
	}
	return r, nil
}
