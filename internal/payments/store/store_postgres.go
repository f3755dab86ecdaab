package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docufind/internal/payments/models"
	"docufind/internal/platform/postgres"
	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	"docufind/pkg/platform/sentinel"
	txcontext "docufind/pkg/platform/tx"
)

// PostgresStore persists payments in payment_requests and grants in
// access_grants. Methods join a transaction carried in ctx.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Execer {
	return txcontext.ExecerFrom(ctx, s.db)
}

const paymentColumns = `id, reference_id, purpose, payer_phone, amount, currency, status,
	failure_reason, transaction_id, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.PaymentRequest, error) {
	var (
		p           models.PaymentRequest
		pid         uuid.UUID
		purpose     string
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(&pid, &p.ReferenceID, &purpose, &p.PayerPhone, &p.Amount, &p.Currency, &status,
		&p.FailureReason, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	p.ID = id.PaymentID(pid)
	p.Purpose = models.Purpose(purpose)
	p.Status = models.Status(status)
	if completedAt.Valid {
		at := completedAt.Time
		p.CompletedAt = &at
	}
	return &p, nil
}

func (s *PostgresStore) Create(ctx context.Context, p *models.PaymentRequest) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO payment_requests (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, uuid.UUID(p.ID), p.ReferenceID, string(p.Purpose), p.PayerPhone, p.Amount, p.Currency, string(p.Status),
		p.FailureReason, p.TransactionID, p.CreatedAt, p.UpdatedAt, p.CompletedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("payment %s: %w", p.ReferenceID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, pid id.PaymentID) (*models.PaymentRequest, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_requests WHERE id = $1`, uuid.UUID(pid))
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, paymentNotFound(pid)
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByReference(ctx context.Context, ref string) (*models.PaymentRequest, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_requests WHERE reference_id = $1`, ref)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reference %s: %w", ref, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find payment by reference: %w", err)
	}
	return p, nil
}

// Complete moves a pending payment to o.Status. The WHERE clause makes the
// transition happen for exactly one caller; the rest read back the stored row
// with changed=false.
func (s *PostgresStore) Complete(ctx context.Context, pid id.PaymentID, o models.Outcome, now time.Time) (*models.PaymentRequest, bool, error) {
	if !o.Status.IsTerminal() {
		return nil, false, fmt.Errorf("complete payment into %s: %w", o.Status, sentinel.ErrInvalidState)
	}
	row := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE payment_requests
		SET status = $2, transaction_id = $3, failure_reason = $4, updated_at = $5, completed_at = $5
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+paymentColumns,
		uuid.UUID(pid), string(o.Status), o.TransactionID, o.Reason, now)
	p, err := scanPayment(row)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("complete payment: %w", err)
	}
	current, err := s.FindByID(ctx, pid)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (s *PostgresStore) CreateGrant(ctx context.Context, g *models.AccessGrant) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO access_grants (id, payment_id, subject_kind, subject_id, requester_email, created_at, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(g.ID), uuid.UUID(g.PaymentID), g.Subject.Kind.String(), uuid.UUID(g.Subject.ID),
		g.RequesterEmail, g.CreatedAt, g.GrantedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("grant for payment %s: %w", g.PaymentID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

const grantColumns = `id, payment_id, subject_kind, subject_id, requester_email, created_at, granted_at`

func scanGrant(row rowScanner) (*models.AccessGrant, error) {
	var (
		g         models.AccessGrant
		gid       uuid.UUID
		pid       uuid.UUID
		kind      string
		subjectID uuid.UUID
		grantedAt sql.NullTime
	)
	if err := row.Scan(&gid, &pid, &kind, &subjectID, &g.RequesterEmail, &g.CreatedAt, &grantedAt); err != nil {
		return nil, err
	}
	g.ID = id.GrantID(gid)
	g.PaymentID = id.PaymentID(pid)
	g.Subject = recmodels.Ref{Kind: id.RecordKind(kind), ID: id.RecordID(subjectID)}
	if grantedAt.Valid {
		at := grantedAt.Time
		g.GrantedAt = &at
	}
	return &g, nil
}

func (s *PostgresStore) FindGrantByPayment(ctx context.Context, pid id.PaymentID) (*models.AccessGrant, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+grantColumns+` FROM access_grants WHERE payment_id = $1`, uuid.UUID(pid))
	g, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, grantNotFound(pid)
		}
		return nil, fmt.Errorf("find grant: %w", err)
	}
	return g, nil
}

// ActivateGrant stamps granted_at when it is still empty.
func (s *PostgresStore) ActivateGrant(ctx context.Context, pid id.PaymentID, now time.Time) (*models.AccessGrant, bool, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE access_grants SET granted_at = $2
		WHERE payment_id = $1 AND granted_at IS NULL
		RETURNING `+grantColumns, uuid.UUID(pid), now)
	g, err := scanGrant(row)
	if err == nil {
		return g, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("activate grant: %w", err)
	}
	current, err := s.FindGrantByPayment(ctx, pid)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, cutoff time.Time, limit int) ([]*models.PaymentRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payment_requests
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()
	var out []*models.PaymentRequest
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
