// Package matching pairs a newly created record with existing records of the
// opposite kind and tells the lost-side owner by email.
//
// A match requires the same document type, the same name and the same document
// number, compared case-insensitively after trimming. Records without a document
// number never match. The engine runs from the worker pool, never inside the
// submission request.
package matching

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docufind/internal/masking"
	"docufind/internal/notify"
	recmodels "docufind/internal/records/models"
	tokmodels "docufind/internal/tokens/models"
	id "docufind/pkg/domain"
	"docufind/pkg/requestcontext"
)

// RecordStore finds candidates and persists discovered matches.
type RecordStore interface {
	FindByRef(ctx context.Context, ref recmodels.Ref) (*recmodels.Record, error)
	FindMatchCandidates(ctx context.Context, q recmodels.MatchQuery) ([]*recmodels.Record, error)
	SaveMatch(ctx context.Context, m *recmodels.Match) (bool, error)
}

// TokenIssuer mints claim-verification tokens for notified owners.
type TokenIssuer interface {
	Issue(ctx context.Context, purpose tokmodels.Purpose, subject recmodels.Ref, holder string, payload tokmodels.Payload) (*tokmodels.Issued, error)
}

// Engine is the exact-match fan-out.
type Engine struct {
	records  RecordStore
	tokens   TokenIssuer
	notifier notify.Dispatcher
	links    notify.Links
	claimTTL time.Duration
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithLinks(links notify.Links) Option {
	return func(e *Engine) { e.links = links }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClaimTTL sets the lifetime quoted in the email. It must agree with the
// token issuer's claim TTL.
func WithClaimTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.claimTTL = ttl
		}
	}
}

func New(records RecordStore, tokens TokenIssuer, notifier notify.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		records:  records,
		tokens:   tokens,
		notifier: notifier,
		claimTTL: tokmodels.DefaultTTLs().For(tokmodels.PurposeClaimVerification),
		logger:   slog.Default(),
		tracer:   otel.Tracer("docufind/matching"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run matches r against the opposite set and returns how many owners were
// notified. Per-candidate failures are logged and never stop the fan-out; only a
// failed candidate lookup is returned as an error.
func (e *Engine) Run(ctx context.Context, r *recmodels.Record) (int, error) {
	ctx, span := e.tracer.Start(ctx, "matching.Run", trace.WithAttributes(
		attribute.String("record.kind", r.Kind.String()),
		attribute.String("record.id", r.ID.String()),
	))
	defer span.End()
	start := time.Now()
	defer func() { e.metrics.observeRun(time.Since(start).Seconds()) }()

	q, ok := recmodels.MatchQueryFor(r)
	if !ok {
		span.SetAttributes(attribute.Bool("match.skipped", true))
		return 0, nil
	}
	candidates, err := e.records.FindMatchCandidates(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "candidate lookup failed")
		return 0, err
	}
	e.metrics.candidates(len(candidates))
	span.SetAttributes(attribute.Int("match.candidates", len(candidates)))

	sent := 0
	for _, candidate := range candidates {
		if candidate.ID == r.ID {
			continue
		}
		lost, found := r, candidate
		if r.Kind == id.RecordKindFound {
			lost, found = candidate, r
		}
		if e.notifyOwner(ctx, lost, found) {
			sent++
		}
	}
	span.SetAttributes(attribute.Int("match.notified", sent))
	if sent > 0 {
		e.logger.InfoContext(ctx, "match notifications sent",
			"record", r.Ref().String(),
			"candidates", len(candidates),
			"notified", sent,
		)
	}
	return sent, nil
}

// RunRef loads the record behind ref and matches it.
func (e *Engine) RunRef(ctx context.Context, ref recmodels.Ref) (int, error) {
	r, err := e.records.FindByRef(ctx, ref)
	if err != nil {
		return 0, err
	}
	if r.Removed {
		return 0, nil
	}
	return e.Run(ctx, r)
}

func (e *Engine) notifyOwner(ctx context.Context, lost, found *recmodels.Record) bool {
	ctx, span := e.tracer.Start(ctx, "matching.notifyOwner", trace.WithAttributes(
		attribute.String("lost.id", lost.ID.String()),
		attribute.String("found.id", found.ID.String()),
	))
	defer span.End()

	email := lost.ContactEmail()
	if email == "" {
		e.metrics.notification("skipped_no_email")
		e.logger.InfoContext(ctx, "match without owner email",
			"lost", lost.ID.String(),
			"found", found.ID.String(),
		)
		return false
	}

	payload := tokmodels.ClaimPayload{}
	if lost.Contact != nil {
		payload.Phone = lost.Contact.Phone
	}
	issued, err := e.tokens.Issue(ctx, tokmodels.PurposeClaimVerification, found.Ref(), email, payload)
	if err != nil {
		e.fail(ctx, span, "issue_failed", lost, found, err)
		return false
	}

	msg := notify.Message{
		Template: notify.TemplateMatchFound,
		To:       email,
		Data: map[string]string{
			"owner_name":      lost.Name,
			"document_type":   found.DocumentType,
			"document_number": masking.Identifier(found.DocumentNumber),
			"verify_url":      e.links.Verify(issued.Secret),
			"expires_hours":   strconv.Itoa(int(e.claimTTL / time.Hour)),
		},
	}
	if err := e.notifier.Send(ctx, msg); err != nil {
		e.fail(ctx, span, "send_failed", lost, found, err)
		return false
	}
	e.metrics.notification("sent")

	match := &recmodels.Match{
		ID:              id.NewMatchID(),
		LostID:          lost.ID,
		FoundID:         found.ID,
		NotifiedAddress: email,
		NotifiedAt:      requestcontext.Now(ctx),
	}
	if _, err := e.records.SaveMatch(ctx, match); err != nil {
		e.logger.WarnContext(ctx, "failed to persist match",
			"lost", lost.ID.String(),
			"found", found.ID.String(),
			"error", err,
		)
	}
	return true
}

func (e *Engine) fail(ctx context.Context, span trace.Span, outcome string, lost, found *recmodels.Record, err error) {
	e.metrics.notification(outcome)
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	e.logger.ErrorContext(ctx, "match notification failed",
		"outcome", outcome,
		"lost", lost.ID.String(),
		"found", found.ID.String(),
		"error", err,
	)
}
