package notify

import (
	"context"
	"fmt"
	"log/slog"

	"docufind/internal/jobs"
)

// Transport delivers a rendered message.
type Transport interface {
	Deliver(ctx context.Context, to string, msg Rendered) error
}

// DirectDispatcher renders and delivers in the caller's goroutine.
type DirectDispatcher struct {
	renderer  *Renderer
	transport Transport
}

func NewDirectDispatcher(renderer *Renderer, transport Transport) *DirectDispatcher {
	return &DirectDispatcher{renderer: renderer, transport: transport}
}

func (d *DirectDispatcher) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("notify %s: empty recipient", msg.Template)
	}
	rendered, err := d.renderer.Render(msg)
	if err != nil {
		return err
	}
	if err := d.transport.Deliver(ctx, msg.To, rendered); err != nil {
		return fmt.Errorf("deliver %s: %w", msg.Template, err)
	}
	return nil
}

// QueuedDispatcher turns each message into a send_email job so request handlers
// never wait on SMTP.
type QueuedDispatcher struct {
	queue jobs.Enqueuer
}

func NewQueuedDispatcher(queue jobs.Enqueuer) *QueuedDispatcher {
	return &QueuedDispatcher{queue: queue}
}

func (q *QueuedDispatcher) Send(ctx context.Context, msg Message) error {
	job, err := jobs.New(jobs.KindSendEmail, msg)
	if err != nil {
		return err
	}
	return q.queue.Enqueue(ctx, job)
}

// EmailJobHandler delivers queued messages.
type EmailJobHandler struct {
	direct *DirectDispatcher
	logger *slog.Logger
}

func NewEmailJobHandler(direct *DirectDispatcher, logger *slog.Logger) *EmailJobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailJobHandler{direct: direct, logger: logger}
}

func (h *EmailJobHandler) Handle(ctx context.Context, job jobs.Job) error {
	var msg Message
	if err := job.Decode(&msg); err != nil {
		return err
	}
	if err := h.direct.Send(ctx, msg); err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "email sent", "template", msg.Template, "job_id", job.ID)
	return nil
}
