package audit

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "docufind/pkg/platform/tx"
)

// PostgresStore appends to audit_events, joining a transaction in ctx if any.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e Event) error {
	_, err := txcontext.ExecerFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_events (action, subject, actor, request_id, client, client_ip, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.Action, e.Subject, e.Actor, e.RequestID, e.Client, e.ClientIP, e.Detail, e.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := txcontext.ExecerFrom(ctx, s.db).QueryContext(ctx, `
		SELECT action, subject, actor, request_id, client, client_ip, detail, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Action, &e.Subject, &e.Actor, &e.RequestID, &e.Client, &e.ClientIP, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = AuditEvent(e.Action).Category()
		out = append(out, e)
	}
	return out, rows.Err()
}
