package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marketmapper/agreement"
	"marketmapper/auth"
	"marketmapper/business"
	"marketmapper/connection"
	"marketmapper/messaging"
	"marketmapper/metrics"
	"marketmapper/post"
	"marketmapper/profile"
	"marketmapper/report"
)

type contextKey string

const (
	ctxKeyUserID contextKey = "userID"
	// ctxKeyLogUser holds a *string the auth middleware fills in for the
	// request log line.
	ctxKeyLogUser contextKey = "logUser"
)

// The service interfaces below list what the handlers call, so tests can
// swap in stubs.

type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (auth.LoginResult, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (string, error)
	GetUserByID(ctx context.Context, userID string) (auth.User, error)
	UpdateUsername(ctx context.Context, userID, username string) (auth.User, error)
}

type ConnectionService interface {
	RequestConnection(ctx context.Context, requesterID, targetID string) error
	AcceptConnection(ctx context.Context, selfID, requesterID string) error
	DeclineConnection(ctx context.Context, selfID, requesterID string) error
	RemoveConnection(ctx context.Context, selfID, friendID string) error
	Graph(ctx context.Context, userID string) (connection.Graph, error)
	Connections(ctx context.Context, userID, search string) ([]auth.Summary, error)
}

type AgreementService interface {
	Propose(ctx context.Context, senderID, receiverID string, params agreement.ProposeParams) (agreement.Agreement, error)
	Accept(ctx context.Context, agreementID, actorID string) (agreement.Agreement, error)
	Decline(ctx context.Context, agreementID, actorID string) (agreement.Agreement, error)
	Complete(ctx context.Context, agreementID, actorID string) (agreement.Agreement, error)
	Dispute(ctx context.Context, agreementID, actorID, reason string) (agreement.Agreement, error)
	Get(ctx context.Context, agreementID, actorID string) (agreement.Agreement, error)
	History(ctx context.Context, agreementID, actorID string) ([]agreement.Event, error)
	Hub(ctx context.Context, userID string) (agreement.Hub, error)
}

type MessagingService interface {
	Send(ctx context.Context, senderID, receiverID, content string) (messaging.Message, error)
	Chat(ctx context.Context, userID, otherID string) (messaging.Chat, error)
}

type BusinessService interface {
	Create(ctx context.Context, ownerID string, params business.CreateParams) (business.Business, error)
	GetByID(ctx context.Context, id string) (business.Business, error)
	ListByOwner(ctx context.Context, ownerID string) ([]business.Business, error)
	Delete(ctx context.Context, id, actorID string) error
}

type PostService interface {
	Create(ctx context.Context, authorID string, params post.CreateParams) (post.Post, error)
	Feed(ctx context.Context, search string) (post.Feed, error)
	ListByAuthor(ctx context.Context, authorID string) ([]post.Post, error)
	Delete(ctx context.Context, id, actorID string) error
	Vote(ctx context.Context, id string, action post.VoteAction) (int, error)
}

type ReportService interface {
	Analyze(ctx context.Context, authorID, query string, rerun bool) (report.Result, error)
	History(ctx context.Context, authorID string) ([]report.Report, error)
	Delete(ctx context.Context, id, authorID string) error
}

type ProfileService interface {
	Dashboard(ctx context.Context, userID string) (profile.Dashboard, error)
	Profile(ctx context.Context, userID string) (profile.Profile, error)
}

// Server holds the domain services behind the HTTP API.
type Server struct {
	authService       AuthService
	connectionService ConnectionService
	agreementService  AgreementService
	messagingService  MessagingService
	businessService   BusinessService
	postService       PostService
	reportService     ReportService
	profileService    ProfileService

	logger  *slog.Logger
	metrics *metrics.Metrics
	ready   func(context.Context) error
}

// routes builds the router. Everything under /api except signup and login
// requires a bearer token.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.instrument, s.logRequests, s.recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/me", s.handleMe)
			r.Patch("/me", s.handleUpdateMe)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/profiles/{userID}", s.handleProfile)

			r.Get("/network", s.handleNetwork)
			r.Get("/connections", s.handleConnections)
			r.Post("/connections/{userID}/request", s.handleConnectionRequest)
			r.Post("/connections/{userID}/accept", s.handleConnectionAccept)
			r.Post("/connections/{userID}/decline", s.handleConnectionDecline)
			r.Delete("/connections/{userID}", s.handleConnectionRemove)

			r.Get("/chats/{userID}", s.handleChat)
			r.Post("/chats/{userID}/messages", s.handleSendMessage)

			r.Get("/contracts", s.handleContractHub)
			r.Post("/contracts", s.handleContractPropose)
			r.Get("/contracts/{agreementID}", s.handleContract)
			r.Get("/contracts/{agreementID}/history", s.handleContractHistory)
			r.Post("/contracts/{agreementID}/accept", s.handleContractAccept)
			r.Post("/contracts/{agreementID}/decline", s.handleContractDecline)
			r.Post("/contracts/{agreementID}/complete", s.handleContractComplete)
			r.Post("/contracts/{agreementID}/dispute", s.handleContractDispute)

			r.Get("/businesses", s.handleBusinesses)
			r.Post("/businesses", s.handleBusinessCreate)
			r.Get("/businesses/{businessID}", s.handleBusiness)
			r.Delete("/businesses/{businessID}", s.handleBusinessDelete)

			r.Get("/posts", s.handleFeed)
			r.Get("/posts/mine", s.handleMyPosts)
			r.Post("/posts", s.handlePostCreate)
			r.Delete("/posts/{postID}", s.handlePostDelete)
			r.Patch("/posts/{postID}/vote", s.handlePostVote)

			r.Post("/analysis", s.handleAnalyze)
			r.Get("/reports", s.handleReports)
			r.Delete("/reports/{reportID}", s.handleReportDelete)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
