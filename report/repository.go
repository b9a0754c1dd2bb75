package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"marketmapper/db"
)

// Repository persists report history.
type Repository interface {
	Create(ctx context.Context, authorID, title, location string) (Report, error)
	ListByAuthor(ctx context.Context, authorID string) ([]Report, error)
	CountByAuthor(ctx context.Context, authorID string) (int, error)
	Delete(ctx context.Context, id, authorID string) error
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, authorID, title, location string) (Report, error) {
	var rep Report
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reports (title, author_id, location)
		VALUES ($1, $2, $3)
		RETURNING id::text, title, author_id::text, location, created_at
	`, title, authorID, location).Scan(&rep.ID, &rep.Title, &rep.AuthorID, &rep.Location, &rep.CreatedAt)
	if err != nil {
		return Report{}, fmt.Errorf("report: create: %w", err)
	}
	return rep, nil
}

func (r *PGRepository) ListByAuthor(ctx context.Context, authorID string) ([]Report, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, title, author_id::text, location, created_at
		FROM reports
		WHERE author_id = $1
		ORDER BY created_at DESC
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("report: list: %w", err)
	}
	defer rows.Close()

	out := make([]Report, 0, 8)
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.Title, &rep.AuthorID, &rep.Location, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("report: scan: %w", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("report: iterate: %w", err)
	}
	return out, nil
}

func (r *PGRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM reports WHERE author_id = $1`, authorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("report: count: %w", err)
	}
	return n, nil
}

// Delete removes the report when authorID owns it. Missing or foreign
// reports are left alone without an error.
func (r *PGRepository) Delete(ctx context.Context, id, authorID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1 AND author_id = $2`, id, authorID); err != nil {
		if db.IsInvalidText(err) {
			return nil
		}
		return fmt.Errorf("report: delete: %w", err)
	}
	return nil
}
