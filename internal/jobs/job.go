// Package jobs moves background work (matching runs, outbound email) off the
// request path. A Broker transports jobs; a Pool of workers drains it.
//
// Delivery is at-least-once. Handlers must tolerate duplicates; failures are
// logged and acknowledged, never retried.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind selects the handler a job is routed to.
type Kind string

const (
	KindMatchRecord Kind = "match_record"
	KindSendEmail   Kind = "send_email"
)

// ErrClosed is returned by Next once the broker has shut down.
var ErrClosed = errors.New("jobs: broker closed")

// Job is one unit of background work.
type Job struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// New wraps payload into a job of the given kind.
func New(kind Kind, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into v.
func (j Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.Kind, err)
	}
	return nil
}

// Delivery is a received job. Ack must be called once processing finished,
// whatever the outcome.
type Delivery struct {
	Job Job
	Ack func()
}

// Enqueuer is the producer side, all most services need.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Broker transports jobs between producers and the worker pool.
type Broker interface {
	Enqueuer
	Next(ctx context.Context) (Delivery, error)
	Close()
}

// Handler processes one job kind.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }
