package agreement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"marketmapper/apperr"
	"marketmapper/auth"
	"marketmapper/db"
	"marketmapper/messaging"
	"marketmapper/metrics"
)

var (
	ErrAgreementNotFound    = apperr.New(apperr.ErrNotFound, "agreement: not found")
	ErrInvalidTransition    = apperr.New(apperr.ErrValidation, "agreement: invalid status transition")
	ErrUnknownStatus        = apperr.New(apperr.ErrValidation, "agreement: unknown status")
	ErrNotParty             = apperr.New(apperr.ErrUnauthorized, "agreement: you are not a party to this agreement")
	ErrReceiverOnly         = apperr.New(apperr.ErrUnauthorized, "agreement: only the receiver can respond to a proposal")
	ErrNotAllowedToComplete = apperr.New(apperr.ErrUnauthorized, "agreement: you are not allowed to complete this agreement")
	ErrSelfAgreement        = apperr.New(apperr.ErrValidation, "agreement: you cannot propose an agreement to yourself")
	ErrMissingTerms         = apperr.New(apperr.ErrValidation, "agreement: title, description and deadline are required")
	ErrInvalidAmount        = apperr.New(apperr.ErrValidation, "agreement: amount must be greater than zero")
	ErrReasonRequired       = apperr.New(apperr.ErrValidation, "agreement: a dispute reason is required")
	ErrInvalidDeadline      = apperr.New(apperr.ErrValidation, "agreement: deadline must be a YYYY-MM-DD date")
)

// MessageLog appends chat messages inside the caller's transaction.
type MessageLog interface {
	Append(ctx context.Context, q db.DBTX, senderID, receiverID, content string) (messaging.Message, error)
}

// UserDirectory checks that a counterparty exists.
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID string) (auth.User, error)
}

// Service drives the agreement lifecycle. Each mutation locks the agreement
// row and writes the status, its history event and the chat message in one
// transaction.
type Service struct {
	pool       db.TxBeginner
	repo       Repository
	messages   MessageLog
	users      UserDirectory
	completion CompletionPolicy
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewService(pool db.TxBeginner, repo Repository, messages MessageLog, users UserDirectory, completion CompletionPolicy, logger *slog.Logger, m *metrics.Metrics) *Service {
	if completion == "" {
		completion = CompleteByParty
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pool:       pool,
		repo:       repo,
		messages:   messages,
		users:      users,
		completion: completion,
		logger:     logger,
		metrics:    m,
	}
}

// Amounts are stored as numeric(14, 2): at least one cent, below 10^12.
const (
	minAmount = 0.01
	maxAmount = 1e12
)

// Propose creates a pending agreement from senderID to receiverID and tells
// the receiver about it in chat.
func (s *Service) Propose(ctx context.Context, senderID, receiverID string, params ProposeParams) (Agreement, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Description = strings.TrimSpace(params.Description)
	params.PaymentTerms = strings.TrimSpace(params.PaymentTerms)
	if params.Title == "" || params.Description == "" || params.Deadline.IsZero() {
		return Agreement{}, ErrMissingTerms
	}
	if params.Amount < minAmount || params.Amount >= maxAmount || math.IsNaN(params.Amount) {
		return Agreement{}, ErrInvalidAmount
	}
	if params.PaymentTerms == "" {
		params.PaymentTerms = DefaultPaymentTerms
	}
	if strings.EqualFold(senderID, receiverID) {
		return Agreement{}, ErrSelfAgreement
	}
	if _, err := s.users.GetUserByID(ctx, receiverID); err != nil {
		return Agreement{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Agreement{}, fmt.Errorf("agreement: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	a, err := s.repo.Create(ctx, tx, CreateParams{ProposeParams: params, SenderID: senderID, ReceiverID: receiverID})
	if err != nil {
		return Agreement{}, err
	}
	if _, err := s.repo.AppendEvent(ctx, tx, Event{
		AgreementID: a.ID,
		Next:        StatusPending,
		ActorID:     senderID,
		Payload:     eventPayload(map[string]any{"title": a.Title, "amount": a.Amount}),
	}); err != nil {
		return Agreement{}, err
	}
	if _, err := s.messages.Append(ctx, tx, senderID, receiverID, ProposalMessage(a)); err != nil {
		return Agreement{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Agreement{}, fmt.Errorf("agreement: commit proposal: %w", err)
	}

	s.metrics.AgreementTransition(string(StatusPending))
	s.logger.InfoContext(ctx, "agreement proposed", "agreement_id", a.ID, "sender_id", senderID, "receiver_id", receiverID)
	return a, nil
}

// Accept activates a pending agreement. Only the receiver may accept.
func (s *Service) Accept(ctx context.Context, agreementID, actorID string) (Agreement, error) {
	return s.transition(ctx, agreementID, actorID, change{
		next:      StatusActive,
		authorize: requireReceiver,
		message: func(a Agreement, actorID string) (string, string, bool) {
			return a.SenderID, AcceptedMessage(a), true
		},
	})
}

// Decline rejects a pending agreement. Only the receiver may decline and no
// chat message is sent.
func (s *Service) Decline(ctx context.Context, agreementID, actorID string) (Agreement, error) {
	return s.transition(ctx, agreementID, actorID, change{
		next:      StatusDeclined,
		authorize: requireReceiver,
	})
}

// Complete closes an active agreement. Who may do so is set by the
// service's CompletionPolicy.
func (s *Service) Complete(ctx context.Context, agreementID, actorID string) (Agreement, error) {
	return s.transition(ctx, agreementID, actorID, change{
		next:      StatusCompleted,
		authorize: s.completion.authorize,
		message: func(a Agreement, actorID string) (string, string, bool) {
			other, ok := a.Counterparty(actorID)
			return other, CompletedMessage(a), ok
		},
	})
}

// Dispute freezes a pending or active agreement with a reason. Either party
// may raise it.
func (s *Service) Dispute(ctx context.Context, agreementID, actorID, reason string) (Agreement, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Agreement{}, ErrReasonRequired
	}
	return s.transition(ctx, agreementID, actorID, change{
		next:          StatusDisputed,
		authorize:     requireParty,
		disputeReason: reason,
		payload:       map[string]any{"reason": reason},
		message: func(a Agreement, actorID string) (string, string, bool) {
			other, ok := a.Counterparty(actorID)
			return other, DisputedMessage(a), ok
		},
	})
}

type change struct {
	next          Status
	authorize     func(a Agreement, actorID string) error
	disputeReason string
	payload       map[string]any
	// message returns the recipient and text of the chat notice sent by the
	// actor. ok=false skips it.
	message func(a Agreement, actorID string) (to, content string, ok bool)
}

func (s *Service) transition(ctx context.Context, agreementID, actorID string, c change) (Agreement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Agreement{}, fmt.Errorf("agreement: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.LockByID(ctx, tx, agreementID)
	if err != nil {
		return Agreement{}, err
	}
	if err := c.authorize(current, actorID); err != nil {
		s.logger.WarnContext(ctx, "agreement transition refused",
			"agreement_id", agreementID, "actor_id", actorID, "next", c.next, "err", err)
		return Agreement{}, err
	}
	if err := validateTransition(current.Status, c.next); err != nil {
		return Agreement{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, tx, UpdateStatusParams{
		AgreementID:   agreementID,
		Next:          c.next,
		DisputeReason: c.disputeReason,
	})
	if err != nil {
		return Agreement{}, err
	}

	previous := current.Status
	if _, err := s.repo.AppendEvent(ctx, tx, Event{
		AgreementID: agreementID,
		Previous:    &previous,
		Next:        c.next,
		ActorID:     actorID,
		Payload:     eventPayload(c.payload),
	}); err != nil {
		return Agreement{}, err
	}

	if c.message != nil {
		if to, content, ok := c.message(updated, actorID); ok {
			if _, err := s.messages.Append(ctx, tx, actorID, to, content); err != nil {
				return Agreement{}, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Agreement{}, fmt.Errorf("agreement: commit transition: %w", err)
	}

	s.metrics.AgreementTransition(string(c.next))
	s.logger.InfoContext(ctx, "agreement transitioned",
		"agreement_id", agreementID, "actor_id", actorID, "from", previous, "to", c.next)
	return updated, nil
}

// Get returns an agreement visible to actorID.
func (s *Service) Get(ctx context.Context, agreementID, actorID string) (Agreement, error) {
	a, err := s.repo.GetByID(ctx, agreementID)
	if err != nil {
		return Agreement{}, err
	}
	if err := requireParty(a, actorID); err != nil {
		return Agreement{}, err
	}
	return a, nil
}

// History returns the status events of an agreement, oldest first.
func (s *Service) History(ctx context.Context, agreementID, actorID string) ([]Event, error) {
	if _, err := s.Get(ctx, agreementID, actorID); err != nil {
		return nil, err
	}
	return s.repo.Events(ctx, agreementID)
}

// List returns every agreement userID is a party to, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Agreement, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Count returns how many agreements userID is a party to.
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.repo.CountForUser(ctx, userID)
}

// Hub groups the agreements of userID by status and, for pending ones, by
// direction.
func (s *Service) Hub(ctx context.Context, userID string) (Hub, error) {
	all, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return Hub{}, err
	}
	return groupHub(userID, all), nil
}

func groupHub(userID string, all []Agreement) Hub {
	h := Hub{
		ReceivedPending: []Agreement{},
		SentPending:     []Agreement{},
		Active:          []Agreement{},
		Completed:       []Agreement{},
		Disputed:        []Agreement{},
		Declined:        []Agreement{},
	}
	for _, a := range all {
		switch a.Status {
		case StatusPending:
			if a.ReceiverID == userID {
				h.ReceivedPending = append(h.ReceivedPending, a)
			} else {
				h.SentPending = append(h.SentPending, a)
			}
		case StatusActive:
			h.Active = append(h.Active, a)
		case StatusCompleted:
			h.Completed = append(h.Completed, a)
		case StatusDisputed:
			h.Disputed = append(h.Disputed, a)
		case StatusDeclined:
			h.Declined = append(h.Declined, a)
		}
	}
	return h
}

// ProposalMessage is the chat notice sent to the receiver of a proposal.
func ProposalMessage(a Agreement) string {
	return fmt.Sprintf(`PROPOSAL: New Agreement created for "%s". Value: ₹%s.`, a.Title, formatAmount(a.Amount))
}

// AcceptedMessage is the chat notice sent to the sender on acceptance.
func AcceptedMessage(a Agreement) string {
	return fmt.Sprintf(`✅ AGREEMENT ACCEPTED: "%s" is now active.`, a.Title)
}

// CompletedMessage is the chat notice sent to the other party on completion.
func CompletedMessage(a Agreement) string {
	return fmt.Sprintf(`🏁 AGREEMENT COMPLETED: "%s" has been marked complete.`, a.Title)
}

// DisputedMessage is the chat notice sent to the other party of a dispute.
func DisputedMessage(a Agreement) string {
	return fmt.Sprintf(`⚠️ DISPUTE RAISED: "%s". Reason: %s`, a.Title, a.DisputeReason)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func eventPayload(m map[string]any) json.RawMessage {
	if len(m) == 0 {
		return json.RawMessage(`{}`)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

// deadlineLayout is the form field format of a deadline.
const deadlineLayout = time.DateOnly

// ParseDeadline reads a YYYY-MM-DD deadline.
func ParseDeadline(s string) (time.Time, error) {
	t, err := time.Parse(deadlineLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDeadline
	}
	return t, nil
}
