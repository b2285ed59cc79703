// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"

	"github.com/olegiv/bsr-go/internal/ai"
	"github.com/olegiv/bsr-go/internal/auth"
	"github.com/olegiv/bsr-go/internal/config"
	"github.com/olegiv/bsr-go/internal/handler"
	"github.com/olegiv/bsr-go/internal/imaging"
	"github.com/olegiv/bsr-go/internal/kv"
	"github.com/olegiv/bsr-go/internal/logging"
	"github.com/olegiv/bsr-go/internal/middleware"
	"github.com/olegiv/bsr-go/internal/scheduler"
	"github.com/olegiv/bsr-go/internal/session"
	"github.com/olegiv/bsr-go/internal/store"
	"github.com/olegiv/bsr-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// Maintenance job schedules.
const (
	pruneLimitersSchedule = "@every 10m"
	storageHealthSchedule = "@every 1m"
	jobTimeout            = 30 * time.Second
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "bsr - Bible Society of Rwanda community site backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BSR_SESSION_SECRET      Session signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BSR_MASTER_ADMIN_EMAIL  The only address granted the admin role\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BSR_STORAGE             Storage backend: memory|sqlite|redis (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BSR_DB_PATH             SQLite database path (default: ./data/bsr.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BSR_REDIS_URL           Redis URL for the redis backend\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BSR_AI_PROVIDER         AI provider: gemini|openai (default: gemini)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BSR_AI_API_KEY          AI API key (falls back to GEMINI_API_KEY, API_KEY or OPENAI_API_KEY)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BSR_SERVER_PORT         Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BSR_ENV                 Environment: development|production (default: development)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Count WARN and ERROR records per category for the metrics endpoint
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(logging.NewEventCountHandler(textHandler))
	slog.SetDefault(logger)

	// Storage
	if cfg.StorageType == kv.BackendSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	opened, err := kv.Open(kv.Config{
		Type:             cfg.StorageType,
		Path:             cfg.DBPath,
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.StoragePrefix,
		Quota:            cfg.StorageQuota,
		FallbackToMemory: cfg.StorageFallback,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := opened.Storage.Close(); err != nil {
			slog.Error("error closing storage", "error", err)
		}
	}()
	st := store.New(opened.Storage, logger)

	sessionManager := newSessionManager(opened.Storage, cfg.IsDevelopment())
	slog.Info("session manager initialized", "backend", opened.Backend, "fallback", opened.IsFallback)

	facade, err := ai.New(ai.Config{
		Provider:          cfg.AIProvider,
		APIKey:            cfg.AIAPIKey,
		BaseURL:           cfg.AIBaseURL,
		TextModel:         cfg.AITextModel,
		ImageModel:        cfg.AIImageModel,
		ChatModel:         cfg.AIChatModel,
		Timeout:           cfg.AITimeout,
		MaxRetries:        cfg.AIMaxRetries,
		RequestsPerSecond: cfg.AIRequestsPerSecond,
		Burst:             cfg.AIBurst,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing AI: %w", err)
	}

	chats := handler.NewChatRegistry(facade, cfg.ChatMaxSessions)
	defer chats.Close()

	a := newApp(appDeps{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		sessions: sessionManager,
		facade:   facade,
		chats:    chats,
		roles:    auth.NewRolePolicy(cfg.MasterAdminEmail, logger),
		images:   imaging.NewProcessor(cfg.ImageMaxWidth, cfg.ImageQuality),
		version:  versionInfo.Version,
	})

	sched, err := newScheduler(cfg, logger, a)
	if err != nil {
		return fmt.Errorf("registering jobs: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           a.router(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		// No WriteTimeout: chat replies are streamed for as long as the
		// AI timeout allows. Other routes are bounded by middleware.Timeout.
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Open streams would hold Shutdown until its deadline.
	chats.Close()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newSessionManager keeps sessions next to the store data when the
// backend can hold them.
func newSessionManager(storage kv.Storage, isDev bool) *scs.SessionManager {
	switch s := storage.(type) {
	case *kv.SQLiteStorage:
		return session.New(s.DB(), isDev)
	case *kv.RedisStorage:
		return session.NewRedis(s.Client(), s.Prefix(), isDev)
	default:
		return session.New(nil, isDev)
	}
}

// newScheduler registers the maintenance jobs.
func newScheduler(cfg *config.Config, logger *slog.Logger, a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(logger, jobTimeout)

	err := sched.Register("reap-chat-sessions", cfg.ChatReapSchedule, func(context.Context) error {
		if n := a.chats.ReapIdle(cfg.ChatIdleTimeout); n > 0 {
			logger.Info("closed idle chat sessions", "count", n, "open", a.chats.Len())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = sched.Register("prune-rate-limiters", pruneLimitersSchedule, func(context.Context) error {
		for _, rl := range a.limiters() {
			rl.Prune()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = sched.Register("storage-health", storageHealthSchedule, func(ctx context.Context) error {
		if err := a.health.CheckStorage(ctx); err != nil {
			logger.Error("storage health check failed", "category", logging.CategoryStore, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sched, nil
}

// limiters lists the rate limiters whose client tables need pruning.
func (a *app) limiters() []*middleware.RateLimiter {
	return []*middleware.RateLimiter{a.apiLimiter, a.authLimiter, a.aiLimiter}
}
