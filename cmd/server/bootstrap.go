package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rentdesk/rentdesk/internal/auth"
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/organization"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the initial superuser if no users exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()

		svc := auth.NewService(auth.NewRepository(db.Pool()), organization.NewRepository(db.Pool()), cfg.BcryptCost)
		return bootstrapSuperuser(ctx, svc)
	},
}

// bootstrapSuperuser prints the superuser key the first time it is created.
func bootstrapSuperuser(ctx context.Context, svc *auth.Service) error {
	rawKey, err := svc.BootstrapSuperuser(ctx)
	if err != nil {
		return fmt.Errorf("bootstrapping superuser: %w", err)
	}
	if rawKey != "" {
		fmt.Println("=== SUPERUSER API KEY (shown once) ===")
		fmt.Println(rawKey)
		fmt.Println("======================================")
		return nil
	}
	slog.Info("superuser already exists; skipping bootstrap")
	return nil
}
