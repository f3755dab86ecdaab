package notify

import (
	"context"
	"log/slog"
)

// LogTransport writes emails to the log instead of sending them. Used when SMTP
// is not configured.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Deliver(ctx context.Context, to string, msg Rendered) error {
	t.logger.InfoContext(ctx, "email (log transport)",
		"to", to,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}
