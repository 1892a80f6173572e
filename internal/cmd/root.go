// internal/cmd/root.go

// Package cmd holds the storefront command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront API - catalog, cart and checkout backend",
	Long: `Storefront API serves a product catalog, per-user shopping carts and
transactional checkout over a JSON REST interface.

Run "storefront serve" to start the HTTP server, or use the migrate and seed
commands to prepare a PostgreSQL database.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the process logger
func bootstrap() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, logger.New(cfg), nil
}
