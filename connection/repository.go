package connection

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketmapper/auth"
	"marketmapper/db"
)

// Repository reads and writes the connection sets stored on user rows.
type Repository interface {
	// LockPair locks both user rows for the rest of q's transaction and
	// returns them in argument order.
	LockPair(ctx context.Context, q db.DBTX, a, b string) (Relations, Relations, error)
	Save(ctx context.Context, q db.DBTX, rels ...Relations) error
	Get(ctx context.Context, userID string) (Relations, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const relationColumns = `id::text, pending_requests::text[], sent_requests::text[], connections::text[]`

func (r *PGRepository) LockPair(ctx context.Context, q db.DBTX, a, b string) (Relations, Relations, error) {
	// Rows are locked in id order so two transactions on the same pair
	// cannot deadlock.
	const query = `
		SELECT ` + relationColumns + `
		FROM users
		WHERE id = ANY($1::text[]::uuid[])
		ORDER BY id
		FOR UPDATE
	`
	rows, err := q.Query(ctx, query, []string{a, b})
	if err != nil {
		if db.IsInvalidText(err) {
			return Relations{}, Relations{}, auth.ErrUserNotFound
		}
		return Relations{}, Relations{}, fmt.Errorf("connection: lock pair: %w", err)
	}
	defer rows.Close()

	found := make(map[string]Relations, 2)
	for rows.Next() {
		rel, err := scanRelations(rows)
		if err != nil {
			return Relations{}, Relations{}, err
		}
		found[rel.UserID] = rel
	}
	if err := rows.Err(); err != nil {
		if db.IsInvalidText(err) {
			return Relations{}, Relations{}, auth.ErrUserNotFound
		}
		return Relations{}, Relations{}, fmt.Errorf("connection: iterate pair: %w", err)
	}

	ra, okA := found[a]
	rb, okB := found[b]
	if !okA || !okB {
		return Relations{}, Relations{}, auth.ErrUserNotFound
	}
	return ra, rb, nil
}

func (r *PGRepository) Save(ctx context.Context, q db.DBTX, rels ...Relations) error {
	const update = `
		UPDATE users
		SET pending_requests = $2::text[]::uuid[],
		    sent_requests = $3::text[]::uuid[],
		    connections = $4::text[]::uuid[]
		WHERE id = $1
	`
	for _, rel := range rels {
		tag, err := q.Exec(ctx, update, rel.UserID, nonNil(rel.Pending), nonNil(rel.Sent), nonNil(rel.Connections))
		if err != nil {
			return fmt.Errorf("connection: save %s: %w", rel.UserID, err)
		}
		if tag.RowsAffected() == 0 {
			return auth.ErrUserNotFound
		}
	}
	return nil
}

func (r *PGRepository) Get(ctx context.Context, userID string) (Relations, error) {
	query := `SELECT ` + relationColumns + ` FROM users WHERE id = $1`
	rel, err := scanRelations(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return Relations{}, auth.ErrUserNotFound
		}
		return Relations{}, err
	}
	return rel, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRelations(row scanner) (Relations, error) {
	var rel Relations
	if err := row.Scan(&rel.UserID, &rel.Pending, &rel.Sent, &rel.Connections); err != nil {
		return Relations{}, fmt.Errorf("connection: scan relations: %w", err)
	}
	return rel, nil
}

// nonNil keeps an emptied set from being written as SQL NULL.
func nonNil(set []string) []string {
	if set == nil {
		return []string{}
	}
	return set
}
