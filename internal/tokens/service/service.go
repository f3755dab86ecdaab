// Package service issues and redeems single-purpose tokens and runs the claim,
// protected-image and removal flows built on them.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"docufind/internal/audit"
	"docufind/internal/notify"
	recmodels "docufind/internal/records/models"
	"docufind/internal/tokens/metrics"
	"docufind/internal/tokens/models"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/platform/sentinel"
	"docufind/pkg/requestcontext"
)

// Store persists tokens. Redeem must validate and consume atomically.
type Store interface {
	Save(ctx context.Context, t *models.Token) error
	Find(ctx context.Context, hash string) (*models.Token, error)
	Redeem(ctx context.Context, hash string, expect models.Expectation, now time.Time) (*models.Token, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// RecordStore is the slice of the record repository the token flows need.
type RecordStore interface {
	FindByRef(ctx context.Context, ref recmodels.Ref) (*recmodels.Record, error)
	SetPendingRemoval(ctx context.Context, ref recmodels.Ref, pending recmodels.PendingRemoval) error
	ConfirmRemoval(ctx context.Context, ref recmodels.Ref, tokenHash string, now time.Time) (*recmodels.Record, error)
}

// ImageURLs addresses original photos once access has been proven.
type ImageURLs interface {
	OriginalURL(ctx context.Context, r *recmodels.Record) (string, time.Time, error)
}

// Service is the token authority.
type Service struct {
	tokens    Store
	records   RecordStore
	images    ImageURLs
	notifier  notify.Dispatcher
	links     notify.Links
	auditor   *audit.Publisher
	metrics   *metrics.Metrics
	ttls      models.TTLs
	retention time.Duration
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTTLs(ttls models.TTLs) Option {
	return func(s *Service) { s.ttls = ttls }
}

// WithRetention sets how long expired tokens are kept before PurgeExpired drops them.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.retention = d
		}
	}
}

func WithLinks(links notify.Links) Option {
	return func(s *Service) { s.links = links }
}

func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(tokens Store, records RecordStore, images ImageURLs, notifier notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		tokens:    tokens,
		records:   records,
		images:    images,
		notifier:  notifier,
		ttls:      models.DefaultTTLs(),
		retention: 24 * time.Hour,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Redemption is the outcome of a successful Redeem: the consumed token and the
// unmasked record it was scoped to.
type Redemption struct {
	Token  *models.Token
	Record *recmodels.Record
}

// Issue mints a token for purpose on subject. The returned secret is the only
// copy of the raw identifier.
func (s *Service) Issue(ctx context.Context, purpose models.Purpose, subject recmodels.Ref, holder string, payload models.Payload) (*models.Issued, error) {
	if !purpose.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown token purpose: "+purpose.String())
	}
	if payload == nil {
		payload = models.EmptyPayload(purpose)
	}
	if payload.Purpose() != purpose {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payload does not match token purpose")
	}

	secret, err := models.GenerateSecret()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token")
	}
	now := requestcontext.Now(ctx)
	tok := &models.Token{
		Hash:      models.HashSecret(secret),
		Purpose:   purpose,
		Subject:   subject,
		Holder:    holder,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttls.For(purpose)),
	}
	if err := s.tokens.Save(ctx, tok); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store token")
	}
	s.metrics.IncIssued(purpose.String())
	return &models.Issued{Secret: secret, Token: tok}, nil
}

// Redeem consumes the token identified by secret if it satisfies expect and
// returns the unmasked record it was scoped to. Failed redemptions leave the
// token in place.
func (s *Service) Redeem(ctx context.Context, secret string, expect models.Expectation) (*Redemption, error) {
	tok, err := s.consume(ctx, secret, expect)
	if err != nil {
		return nil, err
	}
	rec, err := s.findLive(ctx, tok.Subject)
	if err != nil {
		return nil, err
	}
	return &Redemption{Token: tok, Record: rec}, nil
}

// consume runs the atomic store redemption and records its outcome.
func (s *Service) consume(ctx context.Context, secret string, expect models.Expectation) (*models.Token, error) {
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "token not found")
	}
	now := requestcontext.Now(ctx)
	tok, err := s.tokens.Redeem(ctx, models.HashSecret(secret), expect, now)
	if err != nil {
		return nil, s.rejected(ctx, expect, err)
	}
	s.metrics.IncRedeemed(expect.Purpose.String(), metrics.OutcomeOK)
	return tok, nil
}

// TokenPreview describes a usable token without spending it. Email links
// land on a preview; the token is only redeemed by an explicit confirmation.
type TokenPreview struct {
	Purpose   models.Purpose `json:"purpose"`
	Subject   recmodels.Ref  `json:"-"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Inspect checks secret against purpose and leaves the token in place.
func (s *Service) Inspect(ctx context.Context, secret string, purpose models.Purpose) (*TokenPreview, error) {
	tok, err := s.check(ctx, secret, models.ExpectPurpose(purpose))
	if err != nil {
		return nil, err
	}
	return &TokenPreview{Purpose: tok.Purpose, Subject: tok.Subject, ExpiresAt: tok.ExpiresAt}, nil
}

// check runs the redemption checks without consuming the token.
func (s *Service) check(ctx context.Context, secret string, expect models.Expectation) (*models.Token, error) {
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "token not found")
	}
	tok, err := s.tokens.Find(ctx, models.HashSecret(secret))
	if err != nil {
		return nil, s.rejected(ctx, expect, err)
	}
	if err := tok.Validate(expect, requestcontext.Now(ctx)); err != nil {
		return nil, s.rejected(ctx, expect, err)
	}
	return tok, nil
}

func (s *Service) rejected(ctx context.Context, expect models.Expectation, err error) error {
	var (
		outcome string
		derr    error
	)
	switch {
	case errors.Is(err, sentinel.ErrNotFound), dErrors.HasCode(err, dErrors.CodeNotFound):
		outcome, derr = metrics.OutcomeNotFound, dErrors.New(dErrors.CodeNotFound, "token not found")
	case errors.Is(err, sentinel.ErrExpired), dErrors.HasCode(err, dErrors.CodeExpired):
		outcome, derr = metrics.OutcomeExpired, dErrors.New(dErrors.CodeExpired, "token expired")
	case errors.Is(err, sentinel.ErrAlreadyUsed), dErrors.HasCode(err, dErrors.CodeAlreadyUsed):
		outcome, derr = metrics.OutcomeUsed, dErrors.New(dErrors.CodeAlreadyUsed, "token already used")
	case errors.Is(err, sentinel.ErrScopeMismatch), dErrors.HasCode(err, dErrors.CodeForbidden):
		outcome, derr = metrics.OutcomeForbidden, dErrors.New(dErrors.CodeForbidden, "token not valid for this resource")
	default:
		s.metrics.IncRedeemed(expect.Purpose.String(), metrics.OutcomeError)
		s.logger.ErrorContext(ctx, "token redemption failed",
			"request_id", requestcontext.RequestID(ctx),
			"purpose", expect.Purpose,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to redeem token")
	}

	s.metrics.IncRedeemed(expect.Purpose.String(), outcome)
	subject := ""
	if expect.Subject != nil {
		subject = expect.Subject.String()
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventTokenRejected),
		Subject: subject,
		Detail:  expect.Purpose.String() + ": " + outcome,
	})
	return derr
}

// findLive loads a record that has not been removed.
func (s *Service) findLive(ctx context.Context, ref recmodels.Ref) (*recmodels.Record, error) {
	rec, err := s.records.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	if rec.Removed {
		return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
	}
	return rec, nil
}

// PurgeExpired deletes tokens that expired more than the retention period ago.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-s.retention)
	n, err := s.tokens.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge expired tokens")
	}
	s.metrics.AddPurged(n)
	if n > 0 {
		s.logger.InfoContext(ctx, "purged expired tokens", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

func expiresHours(ttl time.Duration) string {
	return strconv.Itoa(int(ttl / time.Hour))
}
