package detect

import (
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/shopspring/decimal"
)

// DirectStrategy finds same-pair, cross-venue arbitrage: buy the cheapest
// ask on one venue, sell the richest bid on another.
type DirectStrategy struct {
	MinProfitThreshold decimal.Decimal // percent, default 0.3
	PositionCaps       map[string]decimal.Decimal
	VenueFees          map[string]VenueFees
	Freshness          time.Duration // W, default 300s
}

// NewDirectStrategy builds a DirectStrategy with spec.md's documented defaults.
func NewDirectStrategy(caps map[string]decimal.Decimal, fees map[string]VenueFees) *DirectStrategy {
	return &DirectStrategy{
		MinProfitThreshold: decimal.NewFromFloat(0.3),
		PositionCaps:       caps,
		VenueFees:          fees,
		Freshness:          300 * time.Second,
	}
}

// Detect evaluates every unordered pair of distinct venues quoting the same
// canonical pair and returns the profitable candidates, highest
// estimated_profit_pct first.
func (s *DirectStrategy) Detect(pair string, quotes []domain.Quote, now time.Time) []domain.ArbitrageOpportunity {
	fresh := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if now.Sub(q.Timestamp) <= s.Freshness {
			fresh = append(fresh, q)
		}
	}

	var candidates []domain.ArbitrageOpportunity
	for i := 0; i < len(fresh); i++ {
		for j := i + 1; j < len(fresh); j++ {
			if opp, ok := s.evaluate(pair, fresh[i], fresh[j], now); ok {
				candidates = append(candidates, opp)
			}
		}
	}

	sortByProfitDesc(candidates)
	return candidates
}

func (s *DirectStrategy) evaluate(pair string, a, b domain.Quote, now time.Time) (domain.ArbitrageOpportunity, bool) {
	if a.Exchange == b.Exchange {
		return domain.ArbitrageOpportunity{}, false
	}
	if a.Ask.LessThanOrEqual(decimal.Zero) || b.Ask.LessThanOrEqual(decimal.Zero) {
		return domain.ArbitrageOpportunity{}, false
	}
	if a.Bid.LessThanOrEqual(decimal.Zero) || b.Bid.LessThanOrEqual(decimal.Zero) {
		return domain.ArbitrageOpportunity{}, false
	}

	var buyVenue, sellVenue string
	var buy, sell, buyAskSize, sellBidSize decimal.Decimal

	if a.Ask.LessThan(b.Ask) {
		buyVenue, buy, buyAskSize = a.Exchange, a.Ask, a.AskSize
	} else {
		buyVenue, buy, buyAskSize = b.Exchange, b.Ask, b.AskSize
	}
	if a.Bid.GreaterThan(b.Bid) {
		sellVenue, sell, sellBidSize = a.Exchange, a.Bid, a.BidSize
	} else {
		sellVenue, sell, sellBidSize = b.Exchange, b.Bid, b.BidSize
	}

	if buyVenue == sellVenue {
		return domain.ArbitrageOpportunity{}, false
	}
	if buy.LessThanOrEqual(decimal.Zero) {
		return domain.ArbitrageOpportunity{}, false
	}

	diffPct := priceDiffPct(buy, sell)
	if diffPct.LessThan(s.MinProfitThreshold) {
		return domain.ArbitrageOpportunity{}, false
	}

	positionCap := s.PositionCaps[baseAsset(pair)]
	if positionCap.IsZero() {
		positionCap = decimal.NewFromFloat(0.1)
	}
	maxVolume := decimal.Min(buyAskSize, sellBidSize, positionCap)
	if maxVolume.LessThanOrEqual(decimal.Zero) {
		return domain.ArbitrageOpportunity{}, false
	}

	buyFees := s.VenueFees[buyVenue]
	sellFees := s.VenueFees[sellVenue]
	transferFee := withdrawalFee(buyFees, baseAsset(pair))

	fees := feeBreakdown(buyFees.TakerFee, sellFees.TakerFee, maxVolume, buy, sell, transferFee)
	estimatedProfitPct := diffPct.Sub(fees.TotalFeesPct)
	if estimatedProfitPct.LessThanOrEqual(decimal.Zero) {
		return domain.ArbitrageOpportunity{}, false
	}

	return domain.ArbitrageOpportunity{
		Timestamp:           now,
		Kind:                domain.KindDirect,
		Pair:                pair,
		BuyExchange:         buyVenue,
		SellExchange:        sellVenue,
		BuyPrice:            buy,
		SellPrice:           sell,
		PriceDiffPct:        diffPct,
		EstimatedProfitPct:  estimatedProfitPct,
		MaxProfitableVolume: maxVolume,
		Fees:                fees,
		Status:              domain.StatusDetected,
	}, true
}

// sortByProfitDesc is a small insertion sort — candidate lists per pair per
// tick are tiny (bounded by venue count choose 2), so no need for sort.Slice
// overhead to matter; kept explicit for determinism across equal values.
func sortByProfitDesc(opps []domain.ArbitrageOpportunity) {
	for i := 1; i < len(opps); i++ {
		for j := i; j > 0 && opps[j].EstimatedProfitPct.GreaterThan(opps[j-1].EstimatedProfitPct); j-- {
			opps[j], opps[j-1] = opps[j-1], opps[j]
		}
	}
}
