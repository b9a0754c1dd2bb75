package dbtest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"marketmapper/db"
)

// Open connects to DATABASE_URL and applies the migrations. The test is
// skipped when the variable is empty.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// SeedUser inserts a user with a unique email and returns its id.
func SeedUser(t *testing.T, pool *pgxpool.Pool, username string) string {
	t.Helper()
	var id string
	email := fmt.Sprintf("%s+%d@example.com", username, time.Now().UnixNano())
	if err := pool.QueryRow(context.Background(),
		`INSERT INTO users (username, email) VALUES ($1, $2) RETURNING id::text`, username, email).Scan(&id); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return id
}
