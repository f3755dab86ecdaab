package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pool runs N workers that pull from a Broker and dispatch by job kind.
type Pool struct {
	broker  Broker
	workers int
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.RWMutex
	handlers map[Kind]Handler
}

type PoolOption func(*Pool)

func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) { p.logger = logger }
}

func WithMetrics(m *Metrics) PoolOption {
	return func(p *Pool) { p.metrics = m }
}

func NewPool(broker Broker, opts ...PoolOption) *Pool {
	p := &Pool{
		broker:   broker,
		workers:  4,
		logger:   slog.Default(),
		handlers: make(map[Kind]Handler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register routes jobs of kind to h, replacing any earlier handler.
func (p *Pool) Register(kind Kind, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = h
}

// Run blocks until ctx is cancelled or the broker closes.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error { return p.work(ctx, worker) })
	}
	return g.Wait()
}

func (p *Pool) work(ctx context.Context, worker int) error {
	for {
		d, err := p.broker.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			p.logger.ErrorContext(ctx, "job broker receive failed", "worker", worker, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		p.Process(ctx, d)
	}
}

// Process handles one delivery and always acknowledges it.
func (p *Pool) Process(ctx context.Context, d Delivery) {
	start := time.Now()
	job := d.Job
	defer func() {
		if d.Ack != nil {
			d.Ack()
		}
	}()

	p.mu.RLock()
	h, ok := p.handlers[job.Kind]
	p.mu.RUnlock()
	if !ok {
		p.logger.WarnContext(ctx, "no handler for job kind, dropping",
			"job_id", job.ID,
			"kind", job.Kind,
		)
		p.metrics.observe(job.Kind, "unhandled", start)
		return
	}

	if err := p.safeHandle(ctx, h, job); err != nil {
		p.logger.ErrorContext(ctx, "job failed",
			"job_id", job.ID,
			"kind", job.Kind,
			"error", err,
		)
		p.metrics.observe(job.Kind, "failed", start)
		return
	}
	p.metrics.observe(job.Kind, "ok", start)
}

func (p *Pool) safeHandle(ctx context.Context, h Handler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, job)
}
