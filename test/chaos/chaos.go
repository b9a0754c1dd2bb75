// Package chaos injects faults into a running stress test.
package chaos

import (
	"context"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TerminateBackends periodically kills a random server backend opened by
// the named application, so in-flight transactions abort and must roll back
// cleanly. It returns the number of backends killed.
func TerminateBackends(ctx context.Context, pool *pgxpool.Pool, application string, rng *rand.Rand, stop <-chan struct{}) int {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	killed := 0
	for {
		select {
		case <-ctx.Done():
			return killed
		case <-stop:
			return killed
		case <-ticker.C:
			if rng.Intn(3) != 0 {
				continue
			}
			var n int
			err := pool.QueryRow(ctx, `
				SELECT count(pg_terminate_backend(pid)) FROM (
				    SELECT pid FROM pg_stat_activity
				    WHERE datname = current_database()
				      AND application_name = $1
				      AND pid <> pg_backend_pid()
				    ORDER BY random() LIMIT 1
				) victims`, application).Scan(&n)
			if err == nil {
				killed += n
			}
		}
	}
}
