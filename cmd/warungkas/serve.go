package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/warungkas/warungkas/internal/bot"
	"github.com/warungkas/warungkas/internal/common"
	"github.com/warungkas/warungkas/internal/config"
	"github.com/warungkas/warungkas/internal/debounce"
	"github.com/warungkas/warungkas/internal/intent"
	"github.com/warungkas/warungkas/internal/kv"
	"github.com/warungkas/warungkas/internal/ratelimit"
	"github.com/warungkas/warungkas/internal/session"
	"github.com/warungkas/warungkas/internal/storage"
	"github.com/warungkas/warungkas/internal/telegram"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}()

	db, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("failed to close database", "error", err)
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	transport, err := telegram.New(cfg.Telegram.Token)
	if err != nil {
		return err
	}

	classifier := intent.New(intent.DefaultCatalog(), intent.LevenshteinScorer{}, intent.Config{
		MaxDistance:          cfg.Intent.MaxDistance,
		MinFragmentLen:       cfg.Intent.MinFragmentLen,
		AutoExecuteThreshold: cfg.Intent.AutoExecuteThreshold,
		SuggestionFloor:      cfg.Intent.SuggestionFloor,
	})

	sessions := session.NewManager(store, session.Config{
		SessionTTL: cfg.Session.Timeout,
		PartialTTL: cfg.Session.PartialTTL,
	})

	limiter := ratelimit.New(store, ratelimit.Config{
		Window:       cfg.RateLimit.Window,
		MaxPerWindow: cfg.RateLimit.MaxPerWindow,
	})

	guard := debounce.New(store, cfg.Debounce.Window)

	sweeper, err := session.NewSweeper(sessions, cfg.Session.SweepInterval)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	orchestrator := bot.New(classifier, sessions, limiter, guard, db, transport)

	slog.Info("warungkas serving",
		"sweep_interval", cfg.Session.SweepInterval,
		"session_timeout", cfg.Session.Timeout)
	orchestrator.Run(ctx, transport.Events(ctx))
	return nil
}

// openStore picks Redis when configured and falls back to the in-process
// store for single-node runs. The Redis connection is retried with backoff so
// a momentarily unready instance does not fail the whole boot.
func openStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	if cfg.Redis.Addr == "" {
		slog.Warn("no redis configured, using in-process store (single instance only)")
		return kv.NewMemoryStore(), nil
	}

	var store kv.Store
	err := common.WithRetry(ctx, func() error {
		s, err := kv.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		store = s
		return nil
	}, common.RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})
	if err != nil {
		return nil, err
	}
	return store, nil
}
