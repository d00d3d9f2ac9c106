package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cryptoedge/arbmon/internal/config"
	"github.com/cryptoedge/arbmon/internal/detect"
	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/infrastructure/db"
	"github.com/cryptoedge/arbmon/internal/notify"
	"github.com/cryptoedge/arbmon/internal/persistence"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var flagAnalyzeInterval time.Duration

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the detection engine against the Store on a fixed interval",
		RunE:  runAnalyze,
	}
	cmd.Flags().DurationVar(&flagAnalyzeInterval, "interval", 5*time.Second, "detection cycle interval")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, warnings, err := config.LoadExchangesConfig(flagExchangesConfig)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	manager, err := db.NewManager(dbConfigFromFlags())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer manager.Close()

	fxService := buildFXService(log.Logger)
	gate := notify.NewGate(
		config.FilePolicyStore{Path: flagNotificationsFile},
		notify.NewDiscordProvider(os.Getenv("DISCORD_WEBHOOK_URL"), "arbmon", true),
		log.Logger,
	)
	engine := detect.NewEngine(defaultPositionCaps(), buildVenueFees(cfg), fxService, manager.Repository().Opportunities, gate, log.Logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(flagAnalyzeInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", flagAnalyzeInterval).Msg("detection engine running, ctrl-C to stop")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("detection engine stopping")
			return nil
		case <-ticker.C:
			if err := analyzeCycle(ctx, manager.Repository(), cfg, engine); err != nil {
				log.Warn().Err(err).Msg("detection cycle failed, will retry next interval")
			}
		}
	}
}

// analyzeCycle reads the latest-per-exchange slice for every active pair
// and hands the snapshot to the engine. A Store read failure here skips
// only this cycle, per the documented StoreUnavailable recovery.
func analyzeCycle(ctx context.Context, repo *persistence.Repository, cfg *config.ExchangesConfig, engine *detect.Engine) error {
	activePairs, err := repo.Pairs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var pairBatches []detect.PairQuotes
	for _, p := range activePairs {
		quotes, err := repo.Quotes.LatestPerExchange(ctx, p.Symbol, 300*time.Second)
		if err != nil {
			log.Warn().Err(err).Str("pair", p.Symbol).Msg("failed to read latest quotes for pair, skipping")
			continue
		}
		pairBatches = append(pairBatches, detect.PairQuotes{Pair: p.Symbol, Quotes: quotes})
	}

	crossRateInputs := buildCrossRateInputs(pairBatches)

	return engine.RunCycle(ctx, pairBatches, crossRateInputs)
}

// buildCrossRateInputs pairs, for each BASE/JPY pair that also has a
// BASE/USDT batch, the first quote of the JPY batch with the first quote of
// the USDT batch, so the cross-rate strategy can compare native-JPY against
// FX-synthesized JPY without re-querying the Store. The other venues' quotes
// in either batch are not paired.
func buildCrossRateInputs(batches []detect.PairQuotes) []detect.CrossRateInput {
	byPair := make(map[string][]domain.Quote, len(batches))
	for _, b := range batches {
		byPair[b.Pair] = b.Quotes
	}

	var inputs []detect.CrossRateInput
	for pair, quotes := range byPair {
		base, quote := splitPair(pair)
		if quote != "JPY" {
			continue
		}
		usdtPair := base + "/USDT"
		usdtQuotes, ok := byPair[usdtPair]
		if !ok || len(quotes) == 0 || len(usdtQuotes) == 0 {
			continue
		}
		inputs = append(inputs, detect.CrossRateInput{
			Pair:           pair,
			JPYQuote:       quotes[0],
			USDTQuoteInJPY: usdtQuotes[0],
		})
	}
	return inputs
}

func splitPair(symbol string) (base, quote string) {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '/' {
			return symbol[:i], symbol[i+1:]
		}
	}
	return symbol, ""
}
