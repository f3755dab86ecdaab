package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"docufind/internal/platform/postgres"
	"docufind/internal/records/models"
	id "docufind/pkg/domain"
	"docufind/pkg/platform/sentinel"
	txcontext "docufind/pkg/platform/tx"
)

// PostgresStore persists records, contacts, document types and matches.
// Every method joins a transaction carried in ctx when one is present.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Execer {
	return txcontext.ExecerFrom(ctx, s.db)
}

const recordSelect = `
	SELECT r.id, r.kind, r.document_type_id, dt.name, r.name, r.document_number,
		r.issue_date, r.event_date, r.location, r.description,
		r.image_original, r.image_blurred,
		c.id, c.full_name, c.phone, c.email, c.created_at,
		r.created_at, r.removed, r.removed_at, r.removal_reason,
		r.removal_token_hash, r.removal_token_expires_at, r.removal_requested_reason,
		r.is_premium, r.premium_expires_at, r.premium_payment_id
	FROM records r
	JOIN document_types dt ON dt.id = r.document_type_id
	JOIN contacts c ON c.id = r.contact_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		r                models.Record
		recordID         uuid.UUID
		contactID        uuid.UUID
		kind             string
		contact          models.Contact
		issueDate        sql.NullTime
		eventDate        sql.NullTime
		removedAt        sql.NullTime
		removalReason    string
		pendingHash      sql.NullString
		pendingExpires   sql.NullTime
		pendingReason    string
		premiumExpiresAt sql.NullTime
		premiumPaymentID uuid.NullUUID
	)
	err := row.Scan(
		&recordID, &kind, &r.DocumentTypeID, &r.DocumentType, &r.Name, &r.DocumentNumber,
		&issueDate, &eventDate, &r.Location, &r.Description,
		&r.Image.Original, &r.Image.Blurred,
		&contactID, &contact.FullName, &contact.Phone, &contact.Email, &contact.CreatedAt,
		&r.CreatedAt, &r.Removed, &removedAt, &removalReason,
		&pendingHash, &pendingExpires, &pendingReason,
		&r.IsPremium, &premiumExpiresAt, &premiumPaymentID,
	)
	if err != nil {
		return nil, err
	}
	r.ID = id.RecordID(recordID)
	r.Kind = id.RecordKind(kind)
	r.ContactID = id.ContactID(contactID)
	contact.ID = r.ContactID
	r.Contact = &contact
	r.IssueDate = nullTime(issueDate)
	r.EventDate = nullTime(eventDate)
	r.RemovedAt = nullTime(removedAt)
	r.RemovalReason = id.RemovalReason(removalReason)
	if pendingHash.Valid {
		r.Pending = &models.PendingRemoval{
			TokenHash: pendingHash.String,
			ExpiresAt: pendingExpires.Time,
			Reason:    id.RemovalReason(pendingReason),
		}
	}
	r.PremiumExpiresAt = nullTime(premiumExpiresAt)
	if premiumPaymentID.Valid {
		pid := id.PaymentID(premiumPaymentID.UUID)
		r.PremiumPaymentID = &pid
	}
	return &r, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// UpsertDocumentTypes writes the seed set in one round trip.
func (s *PostgresStore) UpsertDocumentTypes(ctx context.Context, types []models.DocumentType) error {
	if len(types) == 0 {
		return nil
	}
	ids := make([]int64, len(types))
	names := make([]string, len(types))
	for i, dt := range types {
		ids[i] = int64(dt.ID)
		names[i] = dt.Name
	}
	query := `
		INSERT INTO document_types (id, name)
		SELECT * FROM unnest($1::int[], $2::text[])
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, pq.Array(ids), pq.Array(names)); err != nil {
		return fmt.Errorf("upsert document types: %w", err)
	}
	// Keep the serial ahead of seeded ids so ad-hoc inserts do not collide.
	if _, err := s.execer(ctx).ExecContext(ctx,
		`SELECT setval(pg_get_serial_sequence('document_types', 'id'), (SELECT MAX(id) FROM document_types))`,
	); err != nil {
		return fmt.Errorf("advance document type sequence: %w", err)
	}
	return nil
}

func (s *PostgresStore) DocumentTypes(ctx context.Context) ([]models.DocumentType, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT id, name FROM document_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	defer rows.Close()
	var out []models.DocumentType
	for rows.Next() {
		var dt models.DocumentType
		if err := rows.Scan(&dt.ID, &dt.Name); err != nil {
			return nil, fmt.Errorf("scan document type: %w", err)
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}

// FindOrCreateContact inserts the contact or returns the existing row with the
// same name, phone and email.
func (s *PostgresStore) FindOrCreateContact(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	query := `
		WITH ins AS (
			INSERT INTO contacts (id, full_name, phone, email, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (full_name, phone, email) DO NOTHING
			RETURNING id, created_at
		)
		SELECT id, created_at FROM ins
		UNION ALL
		SELECT id, created_at FROM contacts WHERE full_name = $2 AND phone = $3 AND email = $4
		LIMIT 1
	`
	var (
		contactID uuid.UUID
		createdAt time.Time
	)
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(c.ID), c.FullName, c.Phone, c.Email, c.CreatedAt,
	).Scan(&contactID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("find or create contact: %w", err)
	}
	out := *c
	out.ID = id.ContactID(contactID)
	out.CreatedAt = createdAt
	return &out, nil
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Record) error {
	query := `
		INSERT INTO records (
			id, kind, document_type_id, name, document_number, issue_date, event_date,
			location, description, image_original, image_blurred, contact_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID), string(r.Kind), r.DocumentTypeID, r.Name, r.DocumentNumber,
		timeOrNil(r.IssueDate), timeOrNil(r.EventDate),
		r.Location, r.Description, r.Image.Original, r.Image.Blurred,
		uuid.UUID(r.ContactID), r.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("record %s: %w", r.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByRef(ctx context.Context, ref models.Ref) (*models.Record, error) {
	row := s.execer(ctx).QueryRowContext(ctx, recordSelect+` WHERE r.id = $1 AND r.kind = $2`,
		uuid.UUID(ref.ID), string(ref.Kind))
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", ref, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return r, nil
}

// escapeLike escapes LIKE metacharacters so user search terms match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) List(ctx context.Context, q models.ListQuery) ([]*models.Record, error) {
	query := recordSelect + `
		WHERE r.kind = $1 AND NOT r.removed
			AND ($2 = 0 OR r.document_type_id = $2)
			AND ($3 = '' OR r.name ILIKE '%' || $3 || '%' OR r.document_number ILIKE '%' || $3 || '%')
		ORDER BY
			CASE WHEN r.kind = 'lost' AND r.is_premium AND r.premium_expires_at > $4 THEN 0 ELSE 1 END,
			r.created_at DESC,
			r.id
		LIMIT $5 OFFSET $6
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query,
		string(q.Kind), q.DocumentTypeID, escapeLike(q.Search), q.Now, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]*models.Record, error) {
	defer rows.Close()
	out := []*models.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DemoteExpiredPremium(ctx context.Context, now time.Time) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE records SET is_premium = FALSE
		WHERE is_premium AND (premium_expires_at IS NULL OR premium_expires_at <= $1)
	`, now)
	if err != nil {
		return 0, fmt.Errorf("demote expired premium: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("demote expired premium rows: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) FindMatchCandidates(ctx context.Context, q models.MatchQuery) ([]*models.Record, error) {
	query := recordSelect + `
		WHERE r.kind = $1 AND NOT r.removed
			AND r.document_type_id = $2
			AND r.document_number <> ''
			AND lower(r.name) = lower($3)
			AND lower(r.document_number) = lower($4)
		ORDER BY r.created_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(q.Kind), q.DocumentTypeID, q.Name, q.DocumentNumber)
	if err != nil {
		return nil, fmt.Errorf("find match candidates: %w", err)
	}
	return collectRecords(rows)
}

func (s *PostgresStore) UpdateImage(ctx context.Context, ref models.Ref, img models.Image) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE records SET image_original = $3, image_blurred = $4 WHERE id = $1 AND kind = $2`,
		uuid.UUID(ref.ID), string(ref.Kind), img.Original, img.Blurred)
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	return requireRow(res, ref)
}

func (s *PostgresStore) ListMissingDerivedImage(ctx context.Context, limit int) ([]*models.Record, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, recordSelect+`
		WHERE r.kind = 'found' AND r.image_original <> '' AND r.image_blurred = ''
		ORDER BY r.created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list missing derived images: %w", err)
	}
	return collectRecords(rows)
}

func requireRow(res sql.Result, ref models.Ref) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", ref, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) SetPendingRemoval(ctx context.Context, ref models.Ref, pending models.PendingRemoval) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE records
		SET removal_token_hash = $3, removal_token_expires_at = $4, removal_requested_reason = $5
		WHERE id = $1 AND kind = $2 AND NOT removed
	`, uuid.UUID(ref.ID), string(ref.Kind), pending.TokenHash, pending.ExpiresAt, string(pending.Reason))
	if err != nil {
		return fmt.Errorf("set pending removal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set pending removal rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.FindByRef(ctx, ref); err != nil {
		return err
	}
	return fmt.Errorf("record %s already removed: %w", ref, sentinel.ErrInvalidState)
}

// ConfirmRemoval removes the record only if tokenHash is the pending removal on
// file, clearing the pending fields in the same statement.
func (s *PostgresStore) ConfirmRemoval(ctx context.Context, ref models.Ref, tokenHash string, now time.Time) (*models.Record, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE records
		SET removed = TRUE,
			removed_at = $4,
			removal_reason = removal_requested_reason,
			removal_token_hash = NULL,
			removal_token_expires_at = NULL,
			removal_requested_reason = ''
		WHERE id = $1 AND kind = $2 AND NOT removed AND removal_token_hash = $3
	`, uuid.UUID(ref.ID), string(ref.Kind), tokenHash, now)
	if err != nil {
		return nil, fmt.Errorf("confirm removal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("confirm removal rows: %w", err)
	}
	current, findErr := s.FindByRef(ctx, ref)
	if findErr != nil {
		return nil, findErr
	}
	if n == 1 {
		return current, nil
	}
	if current.Removed {
		return nil, fmt.Errorf("record %s: %w", ref, sentinel.ErrAlreadyUsed)
	}
	return nil, fmt.Errorf("removal token superseded: %w", sentinel.ErrInvalidState)
}

// AttachPremiumPayment points a lost record at paymentID, provided the record
// still references prev (nil for none). A changed reference is ErrConflict.
func (s *PostgresStore) AttachPremiumPayment(ctx context.Context, recordID id.RecordID, prev *id.PaymentID, paymentID id.PaymentID) error {
	var expected any
	if prev != nil {
		expected = uuid.UUID(*prev)
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE records SET premium_payment_id = $2
		WHERE id = $1 AND kind = 'lost' AND premium_payment_id IS NOT DISTINCT FROM $3::uuid
	`, uuid.UUID(recordID), uuid.UUID(paymentID), expected)
	if err != nil {
		return fmt.Errorf("attach premium payment: %w", err)
	}
	ref := models.Ref{Kind: id.RecordKindLost, ID: recordID}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.FindByRef(ctx, ref); err != nil {
		return err
	}
	return fmt.Errorf("record %s premium payment changed: %w", ref, sentinel.ErrConflict)
}

// ActivatePremiumByPayment opens the premium window on the oldest record
// referencing paymentID.
func (s *PostgresStore) ActivatePremiumByPayment(ctx context.Context, paymentID id.PaymentID, now time.Time, window time.Duration) (*models.Record, error) {
	var recordID uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE records SET is_premium = TRUE, premium_expires_at = $2
		WHERE id = (
			SELECT id FROM records WHERE premium_payment_id = $1
			ORDER BY created_at LIMIT 1
		)
		RETURNING id
	`, uuid.UUID(paymentID), now.Add(window)).Scan(&recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no record for payment %s: %w", paymentID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("activate premium: %w", err)
	}
	return s.FindByRef(ctx, models.Ref{Kind: id.RecordKindLost, ID: id.RecordID(recordID)})
}

func (s *PostgresStore) FindByPremiumPayment(ctx context.Context, paymentID id.PaymentID) (*models.Record, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		recordSelect+` WHERE r.premium_payment_id = $1 ORDER BY r.created_at LIMIT 1`, uuid.UUID(paymentID))
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no record for payment %s: %w", paymentID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find record by payment: %w", err)
	}
	return r, nil
}

// SaveMatch records a pair once; created is false if it was already known.
func (s *PostgresStore) SaveMatch(ctx context.Context, m *models.Match) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO matches (id, lost_id, found_id, notified_address, notified_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lost_id, found_id) DO NOTHING
	`, uuid.UUID(m.ID), uuid.UUID(m.LostID), uuid.UUID(m.FoundID), m.NotifiedAddress, m.NotifiedAt)
	if err != nil {
		return false, fmt.Errorf("save match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save match rows: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (models.Stats, error) {
	var (
		st          models.Stats
		matchedLost int
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM records WHERE kind = 'lost'),
			(SELECT COUNT(*) FROM records WHERE kind = 'found'),
			(SELECT COUNT(*) FROM matches),
			(SELECT COUNT(DISTINCT lost_id) FROM matches)
	`).Scan(&st.TotalLost, &st.TotalFound, &st.TotalMatched, &matchedLost)
	if err != nil {
		return models.Stats{}, fmt.Errorf("load stats: %w", err)
	}
	st.SuccessRate = successRate(matchedLost, st.TotalLost)
	return st, nil
}
