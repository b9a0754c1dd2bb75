package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketmapper/apperr"
	"marketmapper/db"
)

var (
	// ErrUserNotFound signals that the user does not exist.
	ErrUserNotFound = apperr.New(apperr.ErrNotFound, "auth: user not found")
	// ErrDuplicateEmail signals that the email is already registered.
	ErrDuplicateEmail = apperr.New(apperr.ErrValidation, "auth: an account with this email already exists")
)

// Repository handles data access for accounts.
type Repository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID string) (User, error)
	Summaries(ctx context.Context, userIDs []string) ([]Summary, error)
	Search(ctx context.Context, term string, limit int) ([]Summary, error)
	UpdateUsername(ctx context.Context, userID, username string) (User, error)
}

// CreateUserParams contains write parameters for creating users.
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed auth repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id::text, username, email, password_hash, image, created_at, updated_at`

// CreateUser inserts a new user with hashed password.
func (r *PGRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	const insertSQL = `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, insertSQL, params.Username, params.Email, params.PasswordHash))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("auth: create user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (r *PGRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const selectSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by email: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *PGRepository) GetUserByID(ctx context.Context, userID string) (User, error) {
	const selectSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by id: %w", err)
	}

	return user, nil
}

// Summaries resolves ids to public user views, preserving the order of
// userIDs and skipping ids with no account.
func (r *PGRepository) Summaries(ctx context.Context, userIDs []string) ([]Summary, error) {
	if len(userIDs) == 0 {
		return []Summary{}, nil
	}

	const query = `
		SELECT id::text, username, email, image
		FROM users
		WHERE id = ANY($1::text[]::uuid[])
	`
	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("auth: summaries: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]Summary, len(userIDs))
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Username, &s.Email, &s.Image); err != nil {
			return nil, fmt.Errorf("auth: scan summary: %w", err)
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auth: iterate summaries: %w", err)
	}

	out := make([]Summary, 0, len(byID))
	for _, id := range userIDs {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// Search finds users whose username contains term, case-insensitively.
func (r *PGRepository) Search(ctx context.Context, term string, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}

	const query = `
		SELECT id::text, username, email, image
		FROM users
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, db.EscapeLike(term), limit)
	if err != nil {
		return nil, fmt.Errorf("auth: search: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0, limit)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Username, &s.Email, &s.Image); err != nil {
			return nil, fmt.Errorf("auth: scan search: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auth: iterate search: %w", err)
	}
	return out, nil
}

// UpdateUsername changes the display name of a user.
func (r *PGRepository) UpdateUsername(ctx context.Context, userID, username string) (User, error) {
	const updateSQL = `
		UPDATE users SET username = $2
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, updateSQL, userID, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: update username: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Image,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}
