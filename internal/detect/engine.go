package detect

import (
	"context"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/persistence"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notifier is the narrow slice of the Notification Gate the engine depends
// on, kept here rather than importing internal/notify to avoid a cycle.
type Notifier interface {
	Consider(ctx context.Context, opp domain.ArbitrageOpportunity) error
}

// PairQuotes is one pair's latest-per-exchange quote slice, gathered by the
// caller from the Store's hot-path query.
type PairQuotes struct {
	Pair   string
	Quotes []domain.Quote
}

// Engine runs all detection strategies over a batch of pairs on a fixed
// interval, persists every candidate, and forwards each to the
// Notification Gate.
type Engine struct {
	direct    *DirectStrategy
	crossRate *CrossRateStrategy
	usd       *USDStrategy
	triangle  *TriangleStrategy
	latency   *LatencyStrategy

	opportunities persistence.OpportunitiesRepo
	notifier      Notifier
	log           zerolog.Logger
}

// NewEngine wires the three working strategies and the two stubs together.
func NewEngine(
	caps map[string]decimal.Decimal,
	fees map[string]VenueFees,
	fx FXRateProvider,
	opportunities persistence.OpportunitiesRepo,
	notifier Notifier,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		direct:        NewDirectStrategy(caps, fees),
		crossRate:     NewCrossRateStrategy(fx, fees),
		usd:           NewUSDStrategy(caps, fees),
		triangle:      NewTriangleStrategy(),
		latency:       NewLatencyStrategy(),
		opportunities: opportunities,
		notifier:      notifier,
		log:           log.With().Str("component", "detect.Engine").Logger(),
	}
}

// RunCycle evaluates every strategy across every supplied pair, persists
// the resulting candidates, and forwards each to the Notification Gate.
// A failure persisting or notifying one candidate is logged and does not
// stop the cycle.
func (e *Engine) RunCycle(ctx context.Context, pairs []PairQuotes, crossRatePairs []CrossRateInput) error {
	now := time.Now()
	var all []domain.ArbitrageOpportunity

	for _, pq := range pairs {
		all = append(all, e.direct.Detect(pq.Pair, pq.Quotes, now)...)
		all = append(all, e.usd.Detect(pq.Pair, pq.Quotes, now)...)
		all = append(all, e.triangle.Detect(pq.Pair, pq.Quotes, now)...)
		all = append(all, e.latency.Detect(pq.Pair, pq.Quotes, now)...)
	}

	for _, cr := range crossRatePairs {
		if opp, ok := e.crossRate.Detect(ctx, cr.Pair, cr.JPYQuote, cr.USDTQuoteInJPY, now); ok {
			all = append(all, opp)
		}
	}

	sortByProfitDesc(all)

	if len(all) == 0 {
		return nil
	}

	if err := e.opportunities.InsertBatch(ctx, all); err != nil {
		e.log.Warn().Err(err).Msg("failed to persist opportunity batch")
	}

	for _, opp := range all {
		if err := e.notifier.Consider(ctx, opp); err != nil {
			e.log.Warn().Err(err).Str("pair", opp.Pair).Msg("notification gate rejected opportunity")
		}
	}

	return nil
}

// CrossRateInput pairs a native-JPY quote with its USDT-quoted counterpart,
// already converted to JPY terms by the caller.
type CrossRateInput struct {
	Pair           string
	JPYQuote       domain.Quote
	USDTQuoteInJPY domain.Quote
}
