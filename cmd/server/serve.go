package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	specpkg "github.com/rentdesk/rentdesk/api"
	"github.com/rentdesk/rentdesk/internal/addon"
	"github.com/rentdesk/rentdesk/internal/api"
	"github.com/rentdesk/rentdesk/internal/auth"
	"github.com/rentdesk/rentdesk/internal/catalog"
	"github.com/rentdesk/rentdesk/internal/config"
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/entitlement"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/inventory"
	"github.com/rentdesk/rentdesk/internal/organization"
	"github.com/rentdesk/rentdesk/internal/override"
	"github.com/rentdesk/rentdesk/internal/sweeper"
	"github.com/rentdesk/rentdesk/internal/tier"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
		slog.Info("database migrations applied")
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	cat, err := catalog.Default()
	if err != nil {
		return err
	}

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Warn("failed to close event publisher", "error", err)
		}
	}()

	pool := db.Pool()
	users := auth.NewRepository(pool)
	orgs := organization.NewRepository(pool)
	addons := addon.NewPostgresRepository(pool)

	authService := auth.NewService(users, orgs, cfg.BcryptCost)
	if err := bootstrapSuperuser(ctx, authService); err != nil {
		return err
	}

	ent := entitlement.NewService(db, pool, entitlement.PostgresSources, cat, entitlement.Options{
		DefaultTierSlug: cfg.DefaultTierSlug,
	})
	if cfg.DefaultTierSlug == "" {
		slog.Warn("DEFAULT_TIER_SLUG is not set; organizations without an override will fail to resolve")
	}

	sw, err := sweeper.New(addons, cfg.SweeperSchedule)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterDeps{
		DBPinger:      db,
		Version:       cfg.Version,
		OpenAPISpec:   specpkg.OpenAPISpec,
		Authenticator: authService,
		KeyGenerator:  authService,
		Entitlements:  ent,
		Events:        publisher,
		Tiers:         tier.NewPostgresRepository(pool),
		Organizations: orgs,
		Overrides:     override.NewPostgresRepository(pool),
		Addons:        addons,
		Inventory:     inventory.NewRepository(pool),
		InventoryTx:   func(q database.Querier) inventory.Repository { return inventory.NewRepository(q) },
		Users:         users,
		UsersTx:       func(q database.Querier) auth.UserRepository { return auth.NewRepository(q) },
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sw.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting RentDesk server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		stop()
		wg.Wait()
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	wg.Wait()

	slog.Info("server stopped gracefully")
	return nil
}

// newPublisher returns the Redis publisher when REDIS_URL is set.
func newPublisher(ctx context.Context, cfg *config.Config) (events.Publisher, error) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set; entitlement events are disabled")
		return events.NopPublisher{}, nil
	}
	p, err := events.NewRedisPublisher(ctx, cfg.RedisURL, cfg.EventsChannel)
	if err != nil {
		return nil, err
	}
	slog.Info("publishing entitlement events", "channel", cfg.EventsChannel)
	return p, nil
}
