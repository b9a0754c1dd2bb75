package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"marketmapper/apperr"
	"marketmapper/auth"
	"marketmapper/db"
	"marketmapper/metrics"
)

var (
	ErrSelfConnection   = apperr.New(apperr.ErrValidation, "connection: you cannot connect with yourself")
	ErrAlreadyConnected = apperr.New(apperr.ErrValidation, "connection: you are already connected")
	ErrAlreadyPending   = apperr.New(apperr.ErrValidation, "connection: request already sent")
	ErrNoPendingRequest = apperr.New(apperr.ErrValidation, "connection: no pending request from this user")
)

// UserDirectory resolves ids to public user views.
type UserDirectory interface {
	Summaries(ctx context.Context, userIDs []string) ([]auth.Summary, error)
}

// Service runs friend-request transitions. Every mutation locks both user
// rows in a single transaction, so the two sides of a pair always commit
// together.
type Service struct {
	pool    db.TxBeginner
	repo    Repository
	users   UserDirectory
	policy  RequestPolicy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(pool db.TxBeginner, repo Repository, users UserDirectory, policy RequestPolicy, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{pool: pool, repo: repo, users: users, policy: policy, logger: logger, metrics: m}
}

// RequestConnection asks targetID to connect with requesterID.
func (s *Service) RequestConnection(ctx context.Context, requesterID, targetID string) error {
	if requesterID == targetID {
		s.record("request", ErrSelfConnection)
		return ErrSelfConnection
	}
	return s.mutate(ctx, "request", requesterID, targetID, func(requester, target *Relations) (bool, error) {
		return request(requester, target, s.policy)
	})
}

// AcceptConnection confirms the pending request requesterID sent to selfID.
func (s *Service) AcceptConnection(ctx context.Context, selfID, requesterID string) error {
	if selfID == requesterID {
		s.record("accept", ErrSelfConnection)
		return ErrSelfConnection
	}
	return s.mutate(ctx, "accept", selfID, requesterID, accept)
}

// DeclineConnection drops the pending request requesterID sent to selfID.
// Declining a request that does not exist changes nothing.
func (s *Service) DeclineConnection(ctx context.Context, selfID, requesterID string) error {
	if selfID == requesterID {
		return nil
	}
	return s.mutate(ctx, "decline", selfID, requesterID, func(self, requester *Relations) (bool, error) {
		return decline(self, requester), nil
	})
}

// RemoveConnection ends the connection between selfID and friendID on both
// sides. Removing someone who is not a connection changes nothing.
func (s *Service) RemoveConnection(ctx context.Context, selfID, friendID string) error {
	if selfID == friendID {
		return nil
	}
	return s.mutate(ctx, "remove", selfID, friendID, func(self, friend *Relations) (bool, error) {
		return disconnect(self, friend), nil
	})
}

func (s *Service) mutate(ctx context.Context, op, a, b string, apply func(a, b *Relations) (bool, error)) (err error) {
	defer func() { s.record(op, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("connection: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ra, rb, err := s.repo.LockPair(ctx, tx, a, b)
	if err != nil {
		return err
	}
	changed, err := apply(&ra, &rb)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.repo.Save(ctx, tx, ra, rb); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("connection: commit: %w", err)
	}
	s.logger.DebugContext(ctx, "connection updated", "op", op, "user_id", a, "other_id", b)
	return nil
}

func (s *Service) record(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrValidation):
		outcome = "validation"
	case errors.Is(err, apperr.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	s.metrics.ConnectionOp(op, outcome)
}

// Relations returns the raw id sets of userID.
func (s *Service) Relations(ctx context.Context, userID string) (Relations, error) {
	return s.repo.Get(ctx, userID)
}

// Graph resolves the pending, sent and confirmed sets of userID.
func (s *Service) Graph(ctx context.Context, userID string) (Graph, error) {
	rel, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Graph{}, err
	}
	var g Graph
	if g.Pending, err = s.users.Summaries(ctx, rel.Pending); err != nil {
		return Graph{}, err
	}
	if g.Sent, err = s.users.Summaries(ctx, rel.Sent); err != nil {
		return Graph{}, err
	}
	if g.Connections, err = s.users.Summaries(ctx, rel.Connections); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// Connections lists the confirmed connections of userID whose username
// contains search, ignoring case. An empty search returns all of them.
func (s *Service) Connections(ctx context.Context, userID, search string) ([]auth.Summary, error) {
	rel, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.users.Summaries(ctx, rel.Connections)
	if err != nil {
		return nil, err
	}
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return all, nil
	}
	out := make([]auth.Summary, 0, len(all))
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Username), search) {
			out = append(out, u)
		}
	}
	return out, nil
}
