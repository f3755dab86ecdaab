package jobs

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueFull is returned when the buffer stayed full for the whole enqueue
// wait.
var ErrQueueFull = errors.New("jobs: queue full")

const defaultEnqueueWait = 2 * time.Second

// ChannelBroker is an in-process broker over a buffered channel. Jobs still
// queued when the process exits are lost.
type ChannelBroker struct {
	queue     chan Job
	done      chan struct{}
	closeOnce sync.Once
	wait      time.Duration
}

type ChannelOption func(*ChannelBroker)

// WithEnqueueWait bounds how long Enqueue waits for room in the buffer.
func WithEnqueueWait(d time.Duration) ChannelOption {
	return func(b *ChannelBroker) {
		if d > 0 {
			b.wait = d
		}
	}
}

func NewChannelBroker(size int, opts ...ChannelOption) *ChannelBroker {
	if size <= 0 {
		size = 64
	}
	b := &ChannelBroker{
		queue: make(chan Job, size),
		done:  make(chan struct{}),
		wait:  defaultEnqueueWait,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Enqueue waits for room in the buffer for at most the enqueue wait, then
// gives up with ErrQueueFull. Workers enqueue follow-up jobs into the same
// buffer they drain, so an unbounded wait could stall every worker.
func (b *ChannelBroker) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case b.queue <- job:
		return nil
	default:
	}

	timer := time.NewTimer(b.wait)
	defer timer.Stop()
	select {
	case b.queue <- job:
		return nil
	case <-timer.C:
		return ErrQueueFull
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *ChannelBroker) Next(ctx context.Context) (Delivery, error) {
	select {
	case job := <-b.queue:
		return Delivery{Job: job, Ack: func() {}}, nil
	case <-b.done:
		return Delivery{}, ErrClosed
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

// Len reports the number of queued jobs.
func (b *ChannelBroker) Len() int { return len(b.queue) }

func (b *ChannelBroker) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
