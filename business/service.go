package business

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"marketmapper/apperr"
	"marketmapper/db"
)

var (
	// ErrNotFound signals the requested business does not exist.
	ErrNotFound      = apperr.New(apperr.ErrNotFound, "business: not found")
	ErrNotOwner      = apperr.New(apperr.ErrUnauthorized, "business: you do not own this business")
	ErrMissingFields = apperr.New(apperr.ErrValidation, "business: name and category are required")
	ErrBadLocation   = apperr.New(apperr.ErrValidation, "business: coordinates are out of range")
	ErrBadStats      = apperr.New(apperr.ErrValidation, "business: counts cannot be negative")
)

// Service exposes business-level operations.
type Service struct {
	pool   db.TxBeginner
	repo   Repository
	logger *slog.Logger
}

// NewService builds a Service using the provided repository.
func NewService(pool db.TxBeginner, repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{pool: pool, repo: repo, logger: logger}
}

// Create registers a business owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, params CreateParams) (Business, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Category = strings.TrimSpace(params.Category)
	params.Description = strings.TrimSpace(params.Description)
	if params.Name == "" || params.Category == "" {
		return Business{}, ErrMissingFields
	}
	if lat := params.Location.Lat; lat != nil && (*lat < -90 || *lat > 90) {
		return Business{}, ErrBadLocation
	}
	if lng := params.Location.Lng; lng != nil && (*lng < -180 || *lng > 180) {
		return Business{}, ErrBadLocation
	}
	for _, n := range []*int{params.Stats.EmployeeCount, params.Stats.YearsInBusiness} {
		if n != nil && *n < 0 {
			return Business{}, ErrBadStats
		}
	}
	return s.repo.Create(ctx, ownerID, params)
}

// GetByID returns the business with the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (Business, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByOwner returns every business of ownerID.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Business, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Delete removes a business and its posts. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("business: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := s.repo.LockByID(ctx, tx, id)
	if err != nil {
		return err
	}
	if b.OwnerID != actorID {
		return ErrNotOwner
	}
	if err := s.repo.Delete(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("business: commit delete: %w", err)
	}
	s.logger.InfoContext(ctx, "business deleted", "business_id", id, "owner_id", actorID)
	return nil
}
