package messaging

import (
	"context"
	"fmt"
	"strings"

	"marketmapper/apperr"
	"marketmapper/auth"
	"marketmapper/db"
)

var (
	ErrEmptyMessage = apperr.New(apperr.ErrValidation, "messaging: message cannot be empty")
	ErrSelfMessage  = apperr.New(apperr.ErrValidation, "messaging: cannot message yourself")
)

// UserDirectory resolves the other participant of a chat.
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID string) (auth.User, error)
}

// Service exposes user-facing messaging operations.
type Service struct {
	pool  db.TxBeginner
	repo  Repository
	users UserDirectory
}

func NewService(pool db.TxBeginner, repo Repository, users UserDirectory) *Service {
	return &Service{pool: pool, repo: repo, users: users}
}

// Send delivers content from sender to receiver.
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyMessage
	}
	if strings.EqualFold(senderID, receiverID) {
		return Message{}, ErrSelfMessage
	}
	if _, err := s.users.GetUserByID(ctx, receiverID); err != nil {
		return Message{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("messaging: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	msg, err := s.repo.Append(ctx, tx, senderID, receiverID, content)
	if err != nil {
		return Message{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("messaging: commit: %w", err)
	}
	return msg, nil
}

// Chat returns the conversation between userID and otherID.
func (s *Service) Chat(ctx context.Context, userID, otherID string) (Chat, error) {
	other, err := s.users.GetUserByID(ctx, otherID)
	if err != nil {
		return Chat{}, err
	}
	msgs, err := s.repo.Conversation(ctx, userID, otherID)
	if err != nil {
		return Chat{}, err
	}
	return Chat{Other: other.Summary(), Messages: msgs}, nil
}
