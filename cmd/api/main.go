package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"marketmapper/agreement"
	"marketmapper/auth"
	"marketmapper/business"
	"marketmapper/config"
	"marketmapper/connection"
	"marketmapper/db"
	"marketmapper/logging"
	"marketmapper/messaging"
	"marketmapper/metrics"
	"marketmapper/post"
	"marketmapper/profile"
	"marketmapper/report"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	server, err := newServer(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newServer wires repositories and services over one pool.
func newServer(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*Server, error) {
	m := metrics.New()

	completion, err := agreement.ParseCompletionPolicy(cfg.Policy.Completion)
	if err != nil {
		return nil, err
	}

	var analyst report.Analyst = report.Unavailable{}
	if cfg.Gemini.APIKey != "" {
		gemini, err := report.NewGeminiAnalyst(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		analyst = gemini
	} else {
		logger.Warn("no gemini api key configured, market analysis is disabled")
	}

	authService := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	messageRepo := messaging.NewRepository(pool)
	messagingService := messaging.NewService(pool, messageRepo, authService)
	connectionService := connection.NewService(pool, connection.NewRepository(pool), authService,
		connection.RequestPolicy{RejectPending: cfg.Policy.RejectPendingRequests}, logger, m)
	agreementService := agreement.NewService(pool, agreement.NewRepository(pool), messageRepo, authService, completion, logger, m)
	businessService := business.NewService(pool, business.NewRepository(pool), logger)
	postService := post.NewService(post.NewRepository(pool), businessService, authService)
	reportService := report.NewService(report.NewRepository(pool), analyst, cfg.Gemini.Timeout, logger, m)
	profileService := profile.NewService(authService, reportService, agreementService, businessService, postService, connectionService)

	return &Server{
		authService:       authService,
		connectionService: connectionService,
		agreementService:  agreementService,
		messagingService:  messagingService,
		businessService:   businessService,
		postService:       postService,
		reportService:     reportService,
		profileService:    profileService,
		logger:            logger,
		metrics:           m,
		ready:             pool.Ping,
	}, nil
}
