// Package oracles holds SQL checks that must return no rows no matter how
// the actors interleave.
package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_connections_symmetric",
			SQL: `SELECT u.id, c AS friend FROM users u, unnest(u.connections) c
                  JOIN users f ON f.id = c
                  WHERE NOT (u.id = ANY (f.connections))`,
		},
		{
			Name: "O2_requests_mirrored",
			SQL: `SELECT u.id, p AS requester FROM users u, unnest(u.pending_requests) p
                  JOIN users r ON r.id = p
                  WHERE NOT (u.id = ANY (r.sent_requests))
                  UNION ALL
                  SELECT u.id, s FROM users u, unnest(u.sent_requests) s
                  JOIN users t ON t.id = s
                  WHERE NOT (u.id = ANY (t.pending_requests))`,
		},
		{
			Name: "O3_pending_or_connected",
			SQL: `SELECT id FROM users
                  WHERE connections && pending_requests OR connections && sent_requests`,
		},
		{
			Name: "O4_no_self_links",
			SQL: `SELECT id FROM users
                  WHERE id = ANY (connections) OR id = ANY (pending_requests) OR id = ANY (sent_requests)`,
		},
		{
			Name: "O5_no_duplicate_links",
			SQL: `SELECT id FROM users
                  WHERE cardinality(connections) <> (SELECT count(DISTINCT x) FROM unnest(connections) x)
                     OR cardinality(pending_requests) <> (SELECT count(DISTINCT x) FROM unnest(pending_requests) x)
                     OR cardinality(sent_requests) <> (SELECT count(DISTINCT x) FROM unnest(sent_requests) x)`,
		},
		{
			Name: "O6_dispute_has_reason",
			SQL: `SELECT id FROM agreements
                  WHERE status = 'Disputed'
                    AND (coalesce(btrim(dispute_reason), '') = '' OR disputed_at IS NULL)`,
		},
		{
			Name: "O7_event_seq_contiguous",
			SQL: `SELECT agreement_id FROM agreement_events
                  GROUP BY agreement_id
                  HAVING min(seq) <> 1 OR max(seq) <> count(*)`,
		},
		{
			Name: "O8_event_transitions_legal",
			SQL: `SELECT id, previous_status, next_status FROM agreement_events
                  WHERE NOT (
                      (previous_status IS NULL AND next_status = 'Pending')
                   OR (previous_status = 'Pending' AND next_status IN ('Active', 'Declined', 'Disputed'))
                   OR (previous_status = 'Active' AND next_status IN ('Completed', 'Disputed')))`,
		},
		{
			Name: "O9_status_matches_last_event",
			SQL: `SELECT a.id, a.status, e.next_status FROM agreements a
                  JOIN LATERAL (
                      SELECT next_status FROM agreement_events
                      WHERE agreement_id = a.id ORDER BY seq DESC LIMIT 1) e ON true
                  WHERE e.next_status <> a.status`,
		},
		{
			Name: "O10_agreement_has_proposal_message",
			SQL: `SELECT a.id FROM agreements a
                  WHERE NOT EXISTS (
                      SELECT 1 FROM messages m
                      WHERE m.sender_id = a.sender_id AND m.receiver_id = a.receiver_id
                        AND m.created_at = a.created_at)`,
		},
		{
			Name: "O11_agreement_delete_guard",
			SQL: `SELECT 'missing_no_delete_trigger' AS detail
                  WHERE NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'no_delete_agreements')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
