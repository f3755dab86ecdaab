package gateway

import (
	"context"
	"log/slog"

	"docufind/pkg/platform/circuit"
)

// Guarded puts a circuit breaker in front of a Gateway. Only retryable failures
// count against the provider; a rejected payment is a healthy answer.
type Guarded struct {
	next    Gateway
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(next Gateway, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

func (g *Guarded) RequestToPay(ctx context.Context, req PayRequest) error {
	return g.call(ctx, "request_to_pay", func(ctx context.Context) error {
		return g.next.RequestToPay(ctx, req)
	})
}

func (g *Guarded) Status(ctx context.Context, referenceID string) (*StatusResult, error) {
	var result *StatusResult
	err := g.call(ctx, "status", func(ctx context.Context) error {
		var err error
		result, err = g.next.Status(ctx, referenceID)
		return err
	})
	return result, err
}

// Open reports whether calls are currently short-circuited.
func (g *Guarded) Open() bool {
	return g.breaker.IsOpen()
}

func (g *Guarded) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if !g.breaker.Allow() {
		return NewError(CategoryCircuitOpen, op, "payment gateway temporarily disabled", nil)
	}
	err := fn(ctx)
	if err != nil && IsRetryable(err) {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "payment gateway circuit opened",
				"breaker", g.breaker.Name(),
				"op", op,
				"error", err,
			)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "payment gateway circuit closed",
			"breaker", g.breaker.Name(),
		)
	}
	return err
}
