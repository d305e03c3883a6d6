package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rentdesk/rentdesk/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "rentdesk",
	Short: "RentDesk subscription and entitlement service",
	Long: `rentdesk serves the entitlement API: subscription tiers, organization
overrides, add-on purchases and limit-checked inventory.

Configuration is read from environment variables (DATABASE_URL, PORT,
DEFAULT_TIER_SLUG, REDIS_URL, ...).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(bootstrapCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and installs the JSON logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})
	slog.SetDefault(slog.New(handler))

	return cfg, nil
}
