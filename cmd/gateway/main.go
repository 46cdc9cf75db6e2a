// Package main is the entry point for the tutoring workflow gateway.
//
// The gateway exposes the session lifecycle, difficulty proposal, and
// notification APIs over HTTP. Architecture follows Clean Architecture
// and DDD:
//   - Domain: session, proposal, notification, and tenant business rules
//   - Application: use case orchestration (commands, queries, admission, fanout)
//   - Infrastructure: PostgreSQL repositories, Redis cache, brain profile client
//   - Interface: HTTP handlers and middleware
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpromedia/aivo-v5-sub002/config"
	"github.com/artpromedia/aivo-v5-sub002/internal/application/admission"
	"github.com/artpromedia/aivo-v5-sub002/internal/application/command"
	"github.com/artpromedia/aivo-v5-sub002/internal/application/fanout"
	"github.com/artpromedia/aivo-v5-sub002/internal/application/query"
	"github.com/artpromedia/aivo-v5-sub002/internal/infrastructure/external/brainprofile"
	"github.com/artpromedia/aivo-v5-sub002/internal/infrastructure/observability"
	"github.com/artpromedia/aivo-v5-sub002/internal/infrastructure/persistence/postgres"
	"github.com/artpromedia/aivo-v5-sub002/internal/infrastructure/persistence/redis"
	"github.com/artpromedia/aivo-v5-sub002/internal/infrastructure/service"
	httpserver "github.com/artpromedia/aivo-v5-sub002/internal/interface/http"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(cfg.LoggerOptions())
	log.Info("starting tutoring workflow gateway",
		logger.String("app", cfg.App.Name),
		logger.String("env", cfg.App.Environment),
		logger.String("log_level", cfg.App.LogLevel),
	)

	flags := config.LoadFeatureFlags()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	conn, err := postgres.NewConnection(ctx, cfg.PostgresConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		conn.Close()
	}()

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(conn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", logger.Err(err))
	} else {
		applied := 0
		for _, m := range status {
			if m.IsApplied {
				applied++
			}
		}
		log.Info("migrations completed",
			logger.Int("applied", applied),
			logger.Int("total", len(status)),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	if cfg.Redis.Enabled {
		log.Info("connecting to Redis...")
		cache, err = redis.NewCache(cfg.RedisCacheConfig())
		if err != nil {
			log.Warn("failed to connect to Redis, caching and throttling degraded", logger.Err(err))
			cache = nil
		} else {
			defer cache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. OBSERVABILITY
	// ─────────────────────────────────────────────────────────────────────────
	metrics := observability.New()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	sessionRepo := postgres.NewSessionRepository(conn)
	usageRepo := postgres.NewUsageRepository(conn)
	proposalRepo := postgres.NewProposalRepository(conn)
	notificationRepo := postgres.NewNotificationRepository(conn)
	admissionStore := postgres.NewAdmissionStore(conn, sessionRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing brain profile client...")
	profileCfg := cfg.BrainProfileClientConfig()
	profileCfg.Logger = log
	profileClient := brainprofile.NewClient(profileCfg)

	var profiles command.ProfileReader = profileClient
	if cache != nil && flags.IsEnabled(config.FeatureProfileCache, nil) {
		profiles = redis.NewProfileCache(cache, profileClient, log)
		log.Info("profile cache enabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")
	ids := service.NewUUIDGenerator()
	resolver := service.NewRosterResolver(conn)

	gate := admission.NewGate(usageRepo, admissionStore, metrics, log)
	gate.Enforce = flags.IsEnabled(config.FeatureQuotaEnforcement, nil)
	gate.Advisory = flags.IsEnabled(config.FeatureNearLimitAdvisory, nil)

	fan := fanout.New(notificationRepo, resolver, ids, metrics, log)

	// Handlers treat a nil fanout or metering gate as the feature being off.
	proposalFan := fan
	completionFan := fan
	if !flags.IsEnabled(config.FeatureCaregiverFanout, nil) {
		proposalFan = nil
		completionFan = nil
	}
	if !flags.IsEnabled(config.FeatureSessionCompletedFanout, nil) {
		completionFan = nil
	}
	proposalGate := gate
	if !flags.IsEnabled(config.FeatureProposalMetering, nil) {
		proposalGate = nil
	}

	startSession := command.NewStartSessionHandler(sessionRepo, gate, ids, log)
	updateActivity := command.NewUpdateActivityHandler(sessionRepo, completionFan, log)
	createProposal := command.NewCreateProposalHandler(proposalRepo, profiles, proposalGate, proposalFan, ids, log)
	decideProposal := command.NewDecideProposalHandler(proposalRepo, log)
	markRead := command.NewMarkNotificationReadHandler(notificationRepo, log)

	todaySession := query.NewGetTodaySessionHandler(sessionRepo)
	listProposals := query.NewListProposalsHandler(proposalRepo)
	listNotifications := query.NewListNotificationsHandler(notificationRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	var limiter httpserver.RateLimiter
	if cfg.HTTP.RateLimitPerMinute > 0 && flags.IsEnabled(config.FeatureHTTPRateLimit, nil) {
		if cache != nil {
			limiter = httpserver.NewRedisRateLimiter(cache)
		} else {
			local := httpserver.NewLocalRateLimiter()
			defer local.Close()
			limiter = local
		}
	}

	var cachePinger httpserver.Pinger
	if cache != nil {
		cachePinger = cache
	}

	deps := httpserver.Dependencies{
		StartSession:         startSession,
		UpdateActivity:       updateActivity,
		CreateProposal:       createProposal,
		DecideProposal:       decideProposal,
		MarkNotificationRead: markRead,
		GetTodaySession:      todaySession,
		ListProposals:        listProposals,
		ListNotifications:    listNotifications,
		Authenticator:        httpserver.NewAuthenticator(cfg.AuthenticatorConfig(), log),
		RateLimiter:          limiter,
		Metrics:              metrics,
		Database:             conn,
		Cache:                cachePinger,
		Logger:               log,
	}

	server := httpserver.NewServer(cfg.ServerConfig(), deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. STARTUP
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", logger.String("address", server.Address()))
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("tutoring workflow gateway is running",
		logger.String("http_address", server.Address()),
		logger.Bool("quota_enforcement", gate.Enforce),
		logger.Bool("redis", cache != nil),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...",
		logger.Duration("timeout", cfg.App.ShutdownTimeout),
	)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown complete")
	return nil
}
