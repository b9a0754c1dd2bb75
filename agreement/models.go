package agreement

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle position of an agreement.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusDeclined  Status = "Declined"
	StatusDisputed  Status = "Disputed"
)

// Agreement mirrors the agreements table.
type Agreement struct {
	ID            string
	Title         string
	Description   string
	Amount        float64
	Deadline      time.Time
	PaymentTerms  string
	SenderID      string
	ReceiverID    string
	Status        Status
	DisputeReason string
	DisputedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsParty reports whether userID is the sender or the receiver.
func (a Agreement) IsParty(userID string) bool {
	return userID != "" && (a.SenderID == userID || a.ReceiverID == userID)
}

// Counterparty returns the party that is not userID. The second result is
// false when userID is not a party.
func (a Agreement) Counterparty(userID string) (string, bool) {
	switch userID {
	case a.SenderID:
		return a.ReceiverID, true
	case a.ReceiverID:
		return a.SenderID, true
	}
	return "", false
}

// Event is one immutable entry of an agreement's status history. Previous
// is nil for the creation event.
type Event struct {
	ID          int64
	AgreementID string
	Seq         int
	Previous    *Status
	Next        Status
	ActorID     string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// ProposeParams are the client-supplied terms of a new agreement.
type ProposeParams struct {
	Title        string
	Description  string
	Amount       float64
	Deadline     time.Time
	PaymentTerms string
}

// Hub groups the agreements of one user for the contract hub page.
type Hub struct {
	ReceivedPending []Agreement
	SentPending     []Agreement
	Active          []Agreement
	Completed       []Agreement
	Disputed        []Agreement
	Declined        []Agreement
}

// DefaultPaymentTerms applies when a proposal leaves the terms empty.
const DefaultPaymentTerms = "Net 30"
