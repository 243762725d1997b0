// Command stockctl runs inventory operations directly against the configured database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockwatch/stockwatch/internal/common"
	svc "github.com/stockwatch/stockwatch/internal/server"
)

var (
	verbose bool
	timeout time.Duration
	asJSON  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stockctl",
	Short: "Inventory spreadsheet and stock-alarm tool",
	Long: `stockctl imports inventory spreadsheets, confirms base stock, lists alarms,
exports the projected sheet and prints a stock briefing.

Database and LLM settings come from the same environment variables as stockd
(DB_DRIVER, DB_URL, LLM_PROVIDER, ...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(alarmsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(briefingCmd)
	rootCmd.AddCommand(groupsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withServices loads config, wires the services and runs fn under the operation timeout.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, s *svc.Services) error) error {
	cfg := common.LoadConfig()
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	services, err := svc.NewServices(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	defer services.Close(logger)
	return fn(ctx, services)
}
