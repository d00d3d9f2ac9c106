package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/infrastructure/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// newTestConnectionCmd is the smoke-test subcommand named in §6: it opens
// the pool, pings the Store, reports pool stats, and exits. It never
// mutates anything.
func newTestConnectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Verify the Store is reachable and report pool stats",
		RunE:  runTestConnection,
	}
}

func runTestConnection(cmd *cobra.Command, args []string) error {
	manager, err := db.NewManager(dbConfigFromFlags())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer manager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := manager.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	stats := manager.Stats()
	log.Info().
		Int64("max_open", stats["max_open"]).
		Int64("open", stats["open"]).
		Int64("in_use", stats["in_use"]).
		Int64("idle", stats["idle"]).
		Msg("database connection ok")

	fmt.Println("connection ok")
	return nil
}
