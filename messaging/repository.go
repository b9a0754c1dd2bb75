package messaging

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"marketmapper/db"
)

// Repository persists messages and the conversations grouping them.
type Repository interface {
	Append(ctx context.Context, q db.DBTX, senderID, receiverID, content string) (Message, error)
	Conversation(ctx context.Context, userA, userB string) ([]Message, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Append writes a message through q, creating the pair's conversation when
// it does not exist yet. Pass a transaction to make the message part of a
// larger unit of work.
func (r *PGRepository) Append(ctx context.Context, q db.DBTX, senderID, receiverID, content string) (Message, error) {
	low, high := Pair(senderID, receiverID)

	const upsertConversation = `
		INSERT INTO conversations (participant_low, participant_high)
		VALUES ($1, $2)
		ON CONFLICT (participant_low, participant_high) DO UPDATE SET updated_at = now()
		RETURNING id::text
	`
	var conversationID string
	if err := q.QueryRow(ctx, upsertConversation, low, high).Scan(&conversationID); err != nil {
		return Message{}, fmt.Errorf("messaging: upsert conversation: %w", err)
	}

	const insertMessage = `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, conversation_id::text, sender_id::text, receiver_id::text, content, created_at
	`
	var m Message
	if err := q.QueryRow(ctx, insertMessage, conversationID, senderID, receiverID, content).
		Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt); err != nil {
		return Message{}, fmt.Errorf("messaging: insert message: %w", err)
	}
	return m, nil
}

// Conversation lists the messages exchanged between two users, oldest first.
// An empty slice is returned when they never talked.
func (r *PGRepository) Conversation(ctx context.Context, userA, userB string) ([]Message, error) {
	low, high := Pair(userA, userB)

	const query = `
		SELECT m.id::text, m.conversation_id::text, m.sender_id::text, m.receiver_id::text, m.content, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.participant_low = $1 AND c.participant_high = $2
		ORDER BY m.created_at ASC, m.id ASC
	`
	rows, err := r.pool.Query(ctx, query, low, high)
	if err != nil {
		return nil, fmt.Errorf("messaging: list conversation: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0, 16)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("messaging: scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messaging: iterate messages: %w", err)
	}
	return out, nil
}
