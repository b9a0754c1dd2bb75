package report

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"marketmapper/apperr"
	"marketmapper/metrics"
)

// DefaultLocation is recorded when a query has no usable last word.
const DefaultLocation = "Ahmedabad"

var (
	ErrEmptyQuery     = apperr.New(apperr.ErrValidation, "report: please enter a valid business idea")
	ErrAnalysisFailed = apperr.New(apperr.ErrExternal, "report: AI analysis failed, please try again")
)

// Service runs market analyses and keeps the report history.
type Service struct {
	repo    Repository
	analyst Analyst
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(repo Repository, analyst Analyst, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, analyst: analyst, timeout: timeout, logger: logger, metrics: m}
}

// Analyze asks the analyst for a market study of query. Unless rerun is
// set the query is first stored as a report. The analyst is called once;
// any failure surfaces as ErrAnalysisFailed.
func (s *Service) Analyze(ctx context.Context, authorID, query string, rerun bool) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}

	res := Result{Query: query}
	if !rerun {
		rep, err := s.repo.Create(ctx, authorID, query, LocationOf(query))
		if err != nil {
			return Result{}, err
		}
		res.Report = &rep
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.analyst.Generate(ctx, Prompt(query))
	if err != nil {
		return Result{}, s.fail(ctx, query, err)
	}
	analysis, err := ParseAnalysis(text)
	if err != nil {
		return Result{}, s.fail(ctx, query, err)
	}
	res.Analysis = analysis
	return res, nil
}

func (s *Service) fail(ctx context.Context, query string, err error) error {
	s.metrics.AnalysisFailed()
	s.logger.ErrorContext(ctx, "market analysis failed", "query", query, "err", err)
	return ErrAnalysisFailed
}

// History lists the reports of authorID, newest first.
func (s *Service) History(ctx context.Context, authorID string) ([]Report, error) {
	return s.repo.ListByAuthor(ctx, authorID)
}

// Count returns how many reports authorID created.
func (s *Service) Count(ctx context.Context, authorID string) (int, error) {
	return s.repo.CountByAuthor(ctx, authorID)
}

// Delete removes one of authorID's reports. Unknown ids are ignored.
func (s *Service) Delete(ctx context.Context, id, authorID string) error {
	return s.repo.Delete(ctx, id, authorID)
}

// LocationOf guesses the location of a query from its last word.
func LocationOf(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return DefaultLocation
	}
	return fields[len(fields)-1]
}
