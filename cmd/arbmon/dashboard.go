package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/httpapi"
	"github.com/cryptoedge/arbmon/internal/infrastructure/db"
	"github.com/cryptoedge/arbmon/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var flagDashboardPort int

// newDashboardCmd serves the read-only monitoring surface (§6 "dashboard").
// It never writes to the Store; the interactive TUI/web dashboard itself is
// an external collaborator that reads the same endpoints.
func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the read-only HTTP monitoring surface (health, quotes, opportunities, metrics)",
		RunE:  runDashboard,
	}
	cmd.Flags().IntVar(&flagDashboardPort, "port", 8090, "port to bind the read-only HTTP surface on")
	return cmd
}

func runDashboard(cmd *cobra.Command, args []string) error {
	manager, err := db.NewManager(dbConfigFromFlags())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer manager.Close()

	collector := metrics.NewCollector()

	httpCfg := httpapi.DefaultConfig()
	httpCfg.Port = flagDashboardPort
	server := httpapi.New(httpCfg, manager.Repository().Quotes, manager.Repository().Opportunities, collector, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	log.Info().Str("addr", fmt.Sprintf("%s:%d", httpCfg.Host, httpCfg.Port)).Msg("dashboard surface running, ctrl-C to stop")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpCfg.ReadTimeout)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
