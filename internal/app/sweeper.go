package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"docufind/pkg/requestcontext"
)

// SweepReport counts what one maintenance pass did.
type SweepReport struct {
	TokensPurged    int `json:"tokens_purged"`
	PaymentsSettled int `json:"payments_settled"`
	ImagesDerived   int `json:"images_derived"`
}

// Sweep runs one maintenance pass over expired tokens, stale pending payments
// and missing blurred photos. The steps run independently; the first error is
// returned once all of them finish.
func (a *App) Sweep(ctx context.Context) (SweepReport, error) {
	ctx = requestcontext.WithTime(ctx, time.Now())
	cfg := a.Config.Sweep

	var report SweepReport
	var g errgroup.Group
	g.Go(func() error {
		n, err := a.Tokens.PurgeExpired(ctx)
		report.TokensPurged = n
		return err
	})
	g.Go(func() error {
		n, err := a.Payments.Reconcile(ctx, cfg.ReconcileAfter, cfg.BatchSize)
		report.PaymentsSettled = n
		return err
	})
	g.Go(func() error {
		n, err := a.Records.EnsureDerivedImages(ctx, cfg.BatchSize)
		report.ImagesDerived = n
		return err
	})
	err := g.Wait()
	return report, err
}

// RunSweeper repeats Sweep every interval until ctx is cancelled.
func (a *App) RunSweeper(ctx context.Context) error {
	interval := a.Config.Sweep.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := a.Sweep(ctx)
			if err != nil {
				a.Logger.ErrorContext(ctx, "sweep failed", "error", err)
				continue
			}
			a.Logger.InfoContext(ctx, "sweep finished",
				"tokens_purged", report.TokensPurged,
				"payments_settled", report.PaymentsSettled,
				"images_derived", report.ImagesDerived,
			)
		}
	}
}
