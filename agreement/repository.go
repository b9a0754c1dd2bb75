package agreement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketmapper/auth"
	"marketmapper/db"
)

// Repository is the data access used by Service. Methods taking a db.DBTX
// run inside the caller's transaction.
type Repository interface {
	Create(ctx context.Context, q db.DBTX, params CreateParams) (Agreement, error)
	// LockByID reads the agreement and holds its row lock until q ends.
	LockByID(ctx context.Context, q db.DBTX, agreementID string) (Agreement, error)
	UpdateStatus(ctx context.Context, q db.DBTX, params UpdateStatusParams) (Agreement, error)
	AppendEvent(ctx context.Context, q db.DBTX, ev Event) (Event, error)

	GetByID(ctx context.Context, agreementID string) (Agreement, error)
	ListForUser(ctx context.Context, userID string) ([]Agreement, error)
	CountForUser(ctx context.Context, userID string) (int, error)
	Events(ctx context.Context, agreementID string) ([]Event, error)
}

// CreateParams are the columns written for a new agreement.
type CreateParams struct {
	ProposeParams
	SenderID   string
	ReceiverID string
}

// UpdateStatusParams moves an agreement to Next. DisputeReason is stored
// only when Next is StatusDisputed.
type UpdateStatusParams struct {
	AgreementID   string
	Next          Status
	DisputeReason string
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const agreementColumns = `id::text, title, description, amount::float8, deadline, payment_terms,
	sender_id::text, receiver_id::text, status::text, dispute_reason, disputed_at, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, q db.DBTX, params CreateParams) (Agreement, error) {
	const insertSQL = `
		INSERT INTO agreements (title, description, amount, deadline, payment_terms, sender_id, receiver_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'Pending')
		RETURNING ` + agreementColumns

	a, err := scanAgreement(q.QueryRow(ctx, insertSQL,
		params.Title,
		params.Description,
		params.Amount,
		params.Deadline,
		params.PaymentTerms,
		params.SenderID,
		params.ReceiverID,
	))
	if err != nil {
		if db.IsForeignKeyViolation(err) || db.IsInvalidText(err) {
			return Agreement{}, auth.ErrUserNotFound
		}
		return Agreement{}, fmt.Errorf("agreement: create: %w", err)
	}
	return a, nil
}

func (r *PGRepository) LockByID(ctx context.Context, q db.DBTX, agreementID string) (Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1 FOR UPDATE`
	return getAgreement(ctx, q, query, agreementID)
}

func (r *PGRepository) GetByID(ctx context.Context, agreementID string) (Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1`
	return getAgreement(ctx, r.pool, query, agreementID)
}

func getAgreement(ctx context.Context, q db.DBTX, query, agreementID string) (Agreement, error) {
	a, err := scanAgreement(q.QueryRow(ctx, query, agreementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return Agreement{}, ErrAgreementNotFound
		}
		return Agreement{}, fmt.Errorf("agreement: fetch: %w", err)
	}
	return a, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, q db.DBTX, params UpdateStatusParams) (Agreement, error) {
	const updateSQL = `
		UPDATE agreements
		SET status = $2::agreement_status,
		    dispute_reason = CASE WHEN $2 = 'Disputed' THEN $3 ELSE dispute_reason END,
		    disputed_at = CASE WHEN $2 = 'Disputed' THEN now() ELSE disputed_at END
		WHERE id = $1
		RETURNING ` + agreementColumns

	a, err := scanAgreement(q.QueryRow(ctx, updateSQL, params.AgreementID, string(params.Next), params.DisputeReason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agreement{}, ErrAgreementNotFound
		}
		return Agreement{}, fmt.Errorf("agreement: update status: %w", err)
	}
	return a, nil
}

// AppendEvent numbers the event after the latest one of its agreement. The
// caller holds the agreement row lock, so sequence numbers cannot race.
func (r *PGRepository) AppendEvent(ctx context.Context, q db.DBTX, ev Event) (Event, error) {
	payload := ev.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	var previous *string
	if ev.Previous != nil {
		p := string(*ev.Previous)
		previous = &p
	}

	const insertSQL = `
		INSERT INTO agreement_events (agreement_id, seq, previous_status, next_status, actor_id, payload)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2::agreement_status, $3::agreement_status, $4, $5::jsonb
		FROM agreement_events
		WHERE agreement_id = $1
		RETURNING id, seq, created_at
	`
	if err := q.QueryRow(ctx, insertSQL, ev.AgreementID, previous, string(ev.Next), ev.ActorID, string(payload)).
		Scan(&ev.ID, &ev.Seq, &ev.CreatedAt); err != nil {
		return Event{}, fmt.Errorf("agreement: insert event: %w", err)
	}
	ev.Payload = payload
	return ev, nil
}

func (r *PGRepository) ListForUser(ctx context.Context, userID string) ([]Agreement, error) {
	query := `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("agreement: list: %w", err)
	}
	defer rows.Close()

	out := make([]Agreement, 0, 8)
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("agreement: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		if db.IsInvalidText(err) {
			return []Agreement{}, nil
		}
		return nil, fmt.Errorf("agreement: iterate: %w", err)
	}
	return out, nil
}

func (r *PGRepository) CountForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM agreements WHERE sender_id = $1 OR receiver_id = $1`, userID).Scan(&n)
	if err != nil {
		if db.IsInvalidText(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("agreement: count: %w", err)
	}
	return n, nil
}

func (r *PGRepository) Events(ctx context.Context, agreementID string) ([]Event, error) {
	const query = `
		SELECT id, agreement_id::text, seq, previous_status::text, next_status::text,
		       COALESCE(actor_id::text, ''), payload, created_at
		FROM agreement_events
		WHERE agreement_id = $1
		ORDER BY seq
	`
	rows, err := r.pool.Query(ctx, query, agreementID)
	if err != nil {
		return nil, fmt.Errorf("agreement: list events: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0, 4)
	for rows.Next() {
		var (
			ev       Event
			previous *string
			next     string
			payload  []byte
		)
		if err := rows.Scan(&ev.ID, &ev.AgreementID, &ev.Seq, &previous, &next, &ev.ActorID, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("agreement: scan event: %w", err)
		}
		if previous != nil {
			p := Status(*previous)
			ev.Previous = &p
		}
		ev.Next = Status(next)
		ev.Payload = payload
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agreement: iterate events: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgreement(row scanner) (Agreement, error) {
	var (
		a      Agreement
		status string
		reason *string
		dispAt *time.Time
	)
	if err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.Amount,
		&a.Deadline,
		&a.PaymentTerms,
		&a.SenderID,
		&a.ReceiverID,
		&status,
		&reason,
		&dispAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return Agreement{}, err
	}
	a.Status = Status(status)
	if reason != nil {
		a.DisputeReason = *reason
	}
	a.DisputedAt = dispAt
	return a, nil
}
