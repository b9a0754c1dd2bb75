package business

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketmapper/db"
)

// Repository persists businesses.
type Repository interface {
	Create(ctx context.Context, ownerID string, params CreateParams) (Business, error)
	GetByID(ctx context.Context, id string) (Business, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Business, error)
	LockByID(ctx context.Context, q db.DBTX, id string) (Business, error)
	// Delete removes the business and every post published under it.
	Delete(ctx context.Context, q db.DBTX, id string) error
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const businessColumns = `id::text, owner_id::text, name, category, description, address, lat, lng,
	employee_count, revenue_range, years_in_business, pos, has_delivery, created_at, updated_at`

// Create inserts a business for ownerID.
func (r *PGRepository) Create(ctx context.Context, ownerID string, p CreateParams) (Business, error) {
	const insertSQL = `
		INSERT INTO businesses (owner_id, name, category, description, address, lat, lng,
			employee_count, revenue_range, years_in_business, pos, has_delivery)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + businessColumns

	b, err := scanBusiness(r.pool.QueryRow(ctx, insertSQL,
		ownerID, p.Name, p.Category, p.Description,
		p.Location.Address, p.Location.Lat, p.Location.Lng,
		p.Stats.EmployeeCount, p.Stats.RevenueRange, p.Stats.YearsInBusiness,
		p.Resources.POS, p.Resources.HasDelivery,
	))
	if err != nil {
		return Business{}, fmt.Errorf("business: create: %w", err)
	}
	return b, nil
}

// GetByID fetches a business by its primary key.
func (r *PGRepository) GetByID(ctx context.Context, id string) (Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`
	return getBusiness(ctx, r.pool, query, id)
}

func (r *PGRepository) LockByID(ctx context.Context, q db.DBTX, id string) (Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1 FOR UPDATE`
	return getBusiness(ctx, q, query, id)
}

func getBusiness(ctx context.Context, q db.DBTX, query, id string) (Business, error) {
	b, err := scanBusiness(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return Business{}, ErrNotFound
		}
		return Business{}, fmt.Errorf("business: query by id: %w", err)
	}
	return b, nil
}

// ListByOwner returns the businesses of ownerID, newest first.
func (r *PGRepository) ListByOwner(ctx context.Context, ownerID string) ([]Business, error) {
	query := `
		SELECT ` + businessColumns + `
		FROM businesses
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("business: list: %w", err)
	}
	defer rows.Close()

	out := make([]Business, 0, 4)
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("business: scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		if db.IsInvalidText(err) {
			return []Business{}, nil
		}
		return nil, fmt.Errorf("business: iterate: %w", err)
	}
	return out, nil
}

func (r *PGRepository) Delete(ctx context.Context, q db.DBTX, id string) error {
	if _, err := q.Exec(ctx, `DELETE FROM posts WHERE author_business_id = $1`, id); err != nil {
		return fmt.Errorf("business: delete posts: %w", err)
	}
	tag, err := q.Exec(ctx, `DELETE FROM businesses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("business: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBusiness(row pgx.Row) (Business, error) {
	var b Business
	err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.Name,
		&b.Category,
		&b.Description,
		&b.Location.Address,
		&b.Location.Lat,
		&b.Location.Lng,
		&b.Stats.EmployeeCount,
		&b.Stats.RevenueRange,
		&b.Stats.YearsInBusiness,
		&b.Resources.POS,
		&b.Resources.HasDelivery,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}
