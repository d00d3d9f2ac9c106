// Command arbmon is the single entrypoint for the collection scheduler,
// the detection engine, the read-only dashboard surface, and the one-shot
// operator commands (schema bootstrap, connection smoke test).
package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "arbmon"
	version = "v0.1.0"
)

// Exit codes per the documented CLI contract: 0 success, 1 configuration
// error, 2 transient backend failure.
const (
	exitOK            = 0
	exitConfigError   = 1
	exitTransientFail = 2
)

var (
	flagExchangesConfig   string
	flagNotificationsFile string
	flagDatabaseURL       string
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Cross-venue cryptocurrency arbitrage monitor",
		Version: version,
		Long: `arbmon watches quote spreads across configured exchanges, scores
candidate arbitrage routes against venue fees and withdrawal costs, and
posts the profitable ones to a Discord-style webhook. It never places an
order; execution remains a human or a separate system's job.`,
	}

	rootCmd.PersistentFlags().StringVar(&flagExchangesConfig, "exchanges-config", "config/exchanges.yaml", "path to exchanges.yaml")
	rootCmd.PersistentFlags().StringVar(&flagNotificationsFile, "notifications-file", "config/notifications.json", "path to notifications.json")
	rootCmd.PersistentFlags().StringVar(&flagDatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL DSN (defaults to $DATABASE_URL)")

	rootCmd.AddCommand(newCollectCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newSetupDBCmd())
	rootCmd.AddCommand(newTestConnectionCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(exitCodeFor(err))
	}
}
