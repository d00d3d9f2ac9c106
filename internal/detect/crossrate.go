package detect

import (
	"context"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/shopspring/decimal"
)

// FXRateProvider is the narrow slice of the FX service the cross-rate
// strategy depends on.
type FXRateProvider interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// CrossRateStrategy compares a venue's native BASE/JPY quote against a
// USDT-quoted venue's BASE/USDT quote converted through the current
// USD/JPY rate, surfacing implied-FX dislocations per spec.md §4.E.2.
type CrossRateStrategy struct {
	Threshold decimal.Decimal // percent, default 0.1
	FX        FXRateProvider
	VenueFees map[string]VenueFees
	Freshness time.Duration
}

// NewCrossRateStrategy builds a CrossRateStrategy with the documented 0.1%
// default threshold.
func NewCrossRateStrategy(fx FXRateProvider, fees map[string]VenueFees) *CrossRateStrategy {
	return &CrossRateStrategy{
		Threshold: decimal.NewFromFloat(0.1),
		FX:        fx,
		VenueFees: fees,
		Freshness: 300 * time.Second,
	}
}

// Detect compares one native-JPY quote against one USDT quote (already
// converted to JPY terms by the caller via exchange.ConvertToJPY) for the
// same base asset, emitting a candidate when the implied spread clears the
// threshold.
func (s *CrossRateStrategy) Detect(ctx context.Context, pair string, jpyQuote, usdtQuoteInJPY domain.Quote, now time.Time) (domain.ArbitrageOpportunity, bool) {
	if now.Sub(jpyQuote.Timestamp) > s.Freshness || now.Sub(usdtQuoteInJPY.Timestamp) > s.Freshness {
		return domain.ArbitrageOpportunity{}, false
	}
	if jpyQuote.Bid.LessThanOrEqual(decimal.Zero) || jpyQuote.Ask.LessThanOrEqual(decimal.Zero) {
		return domain.ArbitrageOpportunity{}, false
	}
	if usdtQuoteInJPY.Bid.LessThanOrEqual(decimal.Zero) || usdtQuoteInJPY.Ask.LessThanOrEqual(decimal.Zero) {
		return domain.ArbitrageOpportunity{}, false
	}

	two := decimal.NewFromInt(2)
	jpyMid := jpyQuote.Bid.Add(jpyQuote.Ask).Div(two)
	usdtMidJPY := usdtQuoteInJPY.Bid.Add(usdtQuoteInJPY.Ask).Div(two)

	if jpyMid.LessThanOrEqual(decimal.Zero) {
		return domain.ArbitrageOpportunity{}, false
	}
	diffPct := usdtMidJPY.Sub(jpyMid).Div(jpyMid).Mul(hundredD)

	if diffPct.Abs().LessThan(s.Threshold) {
		return domain.ArbitrageOpportunity{}, false
	}

	var buyVenue, sellVenue string
	var buyPrice, sellPrice decimal.Decimal
	if diffPct.GreaterThan(decimal.Zero) {
		// USDT leg priced richer in JPY terms: buy domestic JPY, sell the
		// synthetic USDT-FX position.
		buyVenue, buyPrice = jpyQuote.Exchange, jpyQuote.Ask
		sellVenue, sellPrice = usdtQuoteInJPY.Exchange, usdtQuoteInJPY.Bid
	} else {
		buyVenue, buyPrice = usdtQuoteInJPY.Exchange, usdtQuoteInJPY.Ask
		sellVenue, sellPrice = jpyQuote.Exchange, jpyQuote.Bid
	}

	if buyVenue == sellVenue {
		return domain.ArbitrageOpportunity{}, false
	}

	buyFees := s.VenueFees[buyVenue]
	sellFees := s.VenueFees[sellVenue]
	maxVolume := decimal.Min(jpyQuote.AskSize, usdtQuoteInJPY.AskSize)
	if maxVolume.LessThanOrEqual(decimal.Zero) {
		maxVolume = decimal.NewFromFloat(0.01) // sizes aren't reported by every venue; fall back to a nominal probe size
	}

	// No physical transfer leg between a spot JPY balance and a synthetic
	// USDT-FX position, so the withdrawal-fee term is zero.
	fees := feeBreakdown(buyFees.TakerFee, sellFees.TakerFee, maxVolume, buyPrice, sellPrice, decimal.Zero)
	estimatedProfitPct := diffPct.Abs().Sub(fees.TotalFeesPct)
	if estimatedProfitPct.LessThanOrEqual(decimal.Zero) {
		return domain.ArbitrageOpportunity{}, false
	}

	return domain.ArbitrageOpportunity{
		Timestamp:           now,
		Kind:                domain.KindCrossRate,
		Pair:                pair,
		BuyExchange:         buyVenue,
		SellExchange:        sellVenue,
		BuyPrice:            buyPrice,
		SellPrice:           sellPrice,
		PriceDiffPct:        diffPct.Abs(),
		EstimatedProfitPct:  estimatedProfitPct,
		MaxProfitableVolume: maxVolume,
		Fees:                fees,
		Status:              domain.StatusDetected,
	}, true
}
