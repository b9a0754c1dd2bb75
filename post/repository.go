package post

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketmapper/db"
)

// Repository persists posts.
type Repository interface {
	Create(ctx context.Context, authorID string, params CreateParams) (Post, error)
	GetByID(ctx context.Context, id string) (Post, error)
	List(ctx context.Context, search string) ([]Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]Post, error)
	Delete(ctx context.Context, id string) error
	Vote(ctx context.Context, id string, up, down int) (Post, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const postSelect = `
	SELECT p.id::text, p.author_user_id::text, u.username, p.author_business_id::text, b.name,
	       p.title, p.content, p.post_type, p.upvotes, p.downvotes, p.images, p.reputation_score,
	       p.created_at, p.updated_at
	FROM posts p
	JOIN users u ON u.id = p.author_user_id
	JOIN businesses b ON b.id = p.author_business_id
`

func (r *PGRepository) Create(ctx context.Context, authorID string, params CreateParams) (Post, error) {
	images := params.Images
	if images == nil {
		images = []string{}
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO posts (author_user_id, author_business_id, title, content, post_type, images)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text
	`, authorID, params.BusinessID, params.Title, params.Content, string(params.Type), images).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Post{}, ErrBusinessNotFound
		}
		return Post{}, fmt.Errorf("post: create: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Post, error) {
	p, err := scanPost(r.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("post: get: %w", err)
	}
	return p, nil
}

// List returns every post, newest first, optionally filtered by a
// case-insensitive match on title or content.
func (r *PGRepository) List(ctx context.Context, search string) ([]Post, error) {
	if search == "" {
		return r.list(ctx, postSelect+` ORDER BY p.created_at DESC`)
	}
	pattern := "%" + db.EscapeLike(search) + "%"
	return r.list(ctx, postSelect+`
		WHERE p.title ILIKE $1 OR p.content ILIKE $1
		ORDER BY p.created_at DESC`, pattern)
}

func (r *PGRepository) ListByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	return r.list(ctx, postSelect+` WHERE p.author_user_id = $1 ORDER BY p.created_at DESC`, authorID)
}

func (r *PGRepository) list(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("post: list: %w", err)
	}
	defer rows.Close()

	out := make([]Post, 0, 16)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("post: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("post: iterate: %w", err)
	}
	return out, nil
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		if db.IsInvalidText(err) {
			return ErrNotFound
		}
		return fmt.Errorf("post: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Vote applies the counter deltas in one statement. Counters never drop
// below zero.
func (r *PGRepository) Vote(ctx context.Context, id string, up, down int) (Post, error) {
	var postID string
	err := r.pool.QueryRow(ctx, `
		UPDATE posts
		SET upvotes = GREATEST(upvotes + $2, 0),
		    downvotes = GREATEST(downvotes + $3, 0)
		WHERE id = $1
		RETURNING id::text
	`, id, up, down).Scan(&postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("post: vote: %w", err)
	}
	return r.GetByID(ctx, postID)
}

func scanPost(row pgx.Row) (Post, error) {
	var (
		p        Post
		postType string
	)
	err := row.Scan(
		&p.ID,
		&p.AuthorUserID,
		&p.AuthorUsername,
		&p.AuthorBusinessID,
		&p.BusinessName,
		&p.Title,
		&p.Content,
		&postType,
		&p.Upvotes,
		&p.Downvotes,
		&p.Images,
		&p.ReputationScore,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	p.Type = Type(postType)
	return p, err
}
