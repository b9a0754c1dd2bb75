package messaging

import (
	"strings"
	"time"

	"marketmapper/auth"
)

// Message is one entry of a conversation.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	ReceiverID     string
	Content        string
	CreatedAt      time.Time
}

// Chat is a conversation as seen by one participant.
type Chat struct {
	Other    auth.Summary
	Messages []Message
}

// Pair orders two participant ids so a conversation has one key regardless
// of who wrote first. Ids are compared and returned lower-cased, which is
// the order PostgreSQL gives uuids.
func Pair(a, b string) (low, high string) {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a < b {
		return a, b
	}
	return b, a
}
