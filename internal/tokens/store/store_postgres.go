package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	recmodels "docufind/internal/records/models"
	"docufind/internal/tokens/models"
	id "docufind/pkg/domain"
	txcontext "docufind/pkg/platform/tx"
)

// PostgresStore persists tokens in the tokens table. Redeem locks the row with
// SELECT ... FOR UPDATE inside a transaction.
type PostgresStore struct {
	db *sql.DB
	tx *txcontext.SQLRunner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: txcontext.NewSQLRunner(db)}
}

const tokenSelect = `
	SELECT token_hash, purpose, subject_kind, subject_id, holder, payload,
		created_at, expires_at, consumed_at
	FROM tokens`

func scanToken(row interface{ Scan(...any) error }) (*models.Token, error) {
	var (
		t           models.Token
		purpose     string
		subjectKind string
		subjectID   uuid.UUID
		payload     []byte
		consumedAt  sql.NullTime
	)
	if err := row.Scan(&t.Hash, &purpose, &subjectKind, &subjectID, &t.Holder, &payload,
		&t.CreatedAt, &t.ExpiresAt, &consumedAt); err != nil {
		return nil, err
	}
	t.Purpose = models.Purpose(purpose)
	t.Subject = recmodels.Ref{Kind: id.RecordKind(subjectKind), ID: id.RecordID(subjectID)}
	decoded, err := models.DecodePayload(t.Purpose, payload)
	if err != nil {
		return nil, err
	}
	t.Payload = decoded
	if consumedAt.Valid {
		at := consumedAt.Time
		t.ConsumedAt = &at
	}
	return &t, nil
}

func (s *PostgresStore) Save(ctx context.Context, t *models.Token) error {
	payload, err := models.EncodePayload(t.Payload)
	if err != nil {
		return err
	}
	_, err = txcontext.ExecerFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO tokens (token_hash, purpose, subject_kind, subject_id, holder, payload, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.Hash, string(t.Purpose), string(t.Subject.Kind), uuid.UUID(t.Subject.ID), t.Holder, payload, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, hash string) (*models.Token, error) {
	t, err := scanToken(txcontext.ExecerFrom(ctx, s.db).QueryRowContext(ctx, tokenSelect+` WHERE token_hash = $1`, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) Redeem(ctx context.Context, hash string, expect models.Expectation, now time.Time) (*models.Token, error) {
	var redeemed *models.Token
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.ExecerFrom(ctx, s.db)
		t, err := scanToken(exec.QueryRowContext(ctx, tokenSelect+` WHERE token_hash = $1 FOR UPDATE`, hash))
		if errors.Is(err, sql.ErrNoRows) {
			return notFound()
		}
		if err != nil {
			return fmt.Errorf("lock token: %w", err)
		}
		if err := t.Validate(expect, now); err != nil {
			return translateValidation(err)
		}
		if t.Purpose.DeletedOnUse() {
			_, err = exec.ExecContext(ctx, `DELETE FROM tokens WHERE token_hash = $1`, hash)
		} else {
			t.MarkConsumed(now)
			_, err = exec.ExecContext(ctx, `UPDATE tokens SET consumed_at = $2 WHERE token_hash = $1`, hash, now)
		}
		if err != nil {
			return fmt.Errorf("consume token: %w", err)
		}
		redeemed = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redeemed, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := txcontext.ExecerFrom(ctx, s.db).ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens rows: %w", err)
	}
	return int(n), nil
}
