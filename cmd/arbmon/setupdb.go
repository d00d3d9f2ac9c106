package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/infrastructure/db"
	"github.com/cryptoedge/arbmon/internal/persistence/postgres"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// newSetupDBCmd is the operator bootstrap command (§1 "initial schema
// provisioning" is explicitly out of scope for the core, but the CLI
// contract in §6 still names `setup-db` as a reference subcommand). It
// applies the idempotent schema statements and exits; it holds no
// long-running state.
func newSetupDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup-db",
		Short: "Apply the Store schema (idempotent; safe to re-run)",
		RunE:  runSetupDB,
	}
}

func runSetupDB(cmd *cobra.Command, args []string) error {
	manager, err := db.NewManager(dbConfigFromFlags())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer manager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := postgres.Bootstrap(ctx, manager.DB()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	log.Info().Msg("schema bootstrap complete")
	return nil
}
