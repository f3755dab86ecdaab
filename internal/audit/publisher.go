package audit

import (
	"context"
	"log/slog"
	"time"

	"docufind/pkg/requestcontext"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher enriches events with request metadata before storing them. A failed
// append is logged and never fails the caller's operation.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{store: store, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, base Event) {
	if p == nil {
		return
	}
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now().UTC()
	}
	base.Category = AuditEvent(base.Action).Category()
	if base.RequestID == "" {
		base.RequestID = requestcontext.RequestID(ctx)
	}
	if base.ClientIP == "" {
		base.ClientIP = requestcontext.ClientIP(ctx)
	}
	if base.Client == "" {
		if ua := requestcontext.UserAgent(ctx); ua != "" {
			base.Client = DescribeClient(ua)
		}
	}
	if err := p.store.Append(requestcontext.Detach(ctx), base); err != nil {
		p.logger.ErrorContext(ctx, "failed to append audit event",
			"action", base.Action,
			"subject", base.Subject,
			"error", err,
		)
	}
}

// Recent lists the newest events first.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]Event, error) {
	return p.store.ListRecent(ctx, limit)
}
