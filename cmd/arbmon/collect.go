package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cryptoedge/arbmon/internal/config"
	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/exchange"
	"github.com/cryptoedge/arbmon/internal/fx"
	"github.com/cryptoedge/arbmon/internal/infrastructure/db"
	"github.com/cryptoedge/arbmon/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Run the collection scheduler (quote tick every 1s, orderbook sample every 10s)",
		RunE:  runCollect,
	}
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, warnings, err := config.LoadExchangesConfig(flagExchangesConfig)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	adapters, err := buildAdapters(cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	manager, err := db.NewManager(dbConfigFromFlags())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer manager.Close()

	fxService := buildFXService(log.Logger)

	collectTick := func(ctx context.Context) (int, error) {
		return collectOnce(ctx, adapters, fxService, manager, log.Logger)
	}

	// Every configured adapter's CollectAll already returns top-of-book
	// bid/ask/size from the venue's ticker endpoint; none of the six
	// venues expose a distinct depth endpoint worth polling separately,
	// so the orderbook job samples the same ticker at its slower cadence.
	sched := scheduler.New(log.Logger, collectTick, collectTick)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	log.Info().Int("venues", len(adapters)).Msg("collection scheduler running, ctrl-C to stop")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()
	sched.Stop(shutdownCtx)
	return nil
}

// collectOnce fans a ticker fetch out across every adapter concurrently,
// converts USDT-quoted venues into JPY terms, and writes the successful
// quotes in one batch; one slow venue never blocks the others.
func collectOnce(ctx context.Context, adapters map[string]exchange.Adapter, fxService *fx.Service, manager *db.Manager, log zerolog.Logger) (int, error) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		quotes []domain.Quote
	)

	for code, adapter := range adapters {
		wg.Add(1)
		go func(code string, adapter exchange.Adapter) {
			defer wg.Done()
			batch, err := adapter.CollectAll(ctx)
			if err != nil {
				log.Warn().Err(err).Str("venue", code).Msg("collection cycle failed for venue")
				return
			}
			mu.Lock()
			quotes = append(quotes, batch...)
			mu.Unlock()
		}(code, adapter)
	}
	wg.Wait()

	if len(quotes) == 0 {
		return 0, nil
	}

	converted := quotes[:0]
	for _, q := range quotes {
		if q.IsNativeJPY {
			converted = append(converted, q)
			continue
		}
		rate, err := fxService.GetRate(ctx, "USD", "JPY")
		if err != nil {
			log.Warn().Err(err).Str("venue", q.Exchange).Str("pair", q.Pair).Msg("fx conversion failed, dropping non-JPY quote")
			continue
		}
		converted = append(converted, exchange.ConvertToJPY(q, rate))
	}
	quotes = converted
	if len(quotes) == 0 {
		return 0, nil
	}

	if err := manager.Repository().Quotes.InsertBatch(ctx, quotes); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return len(quotes), nil
}
