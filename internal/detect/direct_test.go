package detect

import (
	"testing"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feeTable(rate float64) map[string]VenueFees {
	fee := decimal.NewFromFloat(rate)
	return map[string]VenueFees{
		"venue_a": {TakerFee: fee},
		"venue_b": {TakerFee: fee},
	}
}

func capTable() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{"BTC": decimal.NewFromInt(10)}
}

func TestDirectStrategy_ClearOpportunity(t *testing.T) {
	now := time.Now()
	quotes := []domain.Quote{
		{Exchange: "venue_a", Bid: decimal.NewFromInt(9990000), Ask: decimal.NewFromInt(10000000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
		{Exchange: "venue_b", Bid: decimal.NewFromInt(10050000), Ask: decimal.NewFromInt(10060000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
	}

	s := NewDirectStrategy(capTable(), feeTable(0.001))
	opps := s.Detect("BTC/JPY", quotes, now)

	require.Len(t, opps, 1)
	opp := opps[0]
	assert.Equal(t, "venue_a", opp.BuyExchange)
	assert.Equal(t, "venue_b", opp.SellExchange)
	assert.True(t, opp.PriceDiffPct.Sub(decimal.NewFromFloat(0.5)).Abs().LessThan(decimal.NewFromFloat(0.01)),
		"price_diff_pct should be ~0.50%%, got %s", opp.PriceDiffPct)
	assert.True(t, opp.EstimatedProfitPct.Sub(decimal.NewFromFloat(0.3)).Abs().LessThan(decimal.NewFromFloat(0.01)),
		"estimated_profit_pct should be ~0.30%%, got %s", opp.EstimatedProfitPct)
}

func TestDirectStrategy_EatenByFees(t *testing.T) {
	now := time.Now()
	quotes := []domain.Quote{
		{Exchange: "venue_a", Bid: decimal.NewFromInt(9990000), Ask: decimal.NewFromInt(10000000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
		{Exchange: "venue_b", Bid: decimal.NewFromInt(10050000), Ask: decimal.NewFromInt(10060000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
	}

	s := NewDirectStrategy(capTable(), feeTable(0.003))
	opps := s.Detect("BTC/JPY", quotes, now)

	assert.Empty(t, opps, "0.30%% fees on each side should eat the 0.50%% spread entirely")
}

func TestDirectStrategy_StaleLegExcluded(t *testing.T) {
	now := time.Now()
	quotes := []domain.Quote{
		{Exchange: "venue_a", Bid: decimal.NewFromInt(9990000), Ask: decimal.NewFromInt(10000000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now.Add(-600 * time.Second)},
		{Exchange: "venue_b", Bid: decimal.NewFromInt(10050000), Ask: decimal.NewFromInt(10060000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
	}

	s := NewDirectStrategy(capTable(), feeTable(0.001))
	opps := s.Detect("BTC/JPY", quotes, now)

	assert.Empty(t, opps, "only one venue remains fresh, so no cross-venue pair exists")
}

func TestDirectStrategy_SelfArbitrageGuard(t *testing.T) {
	now := time.Now()
	// Book anomaly: a single venue's own ask < bid would otherwise trip the
	// buy/sell selection logic into treating the same venue as both sides.
	quotes := []domain.Quote{
		{Exchange: "venue_a", Bid: decimal.NewFromInt(10050000), Ask: decimal.NewFromInt(10000000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
	}

	s := NewDirectStrategy(capTable(), feeTable(0.001))
	opps := s.Detect("BTC/JPY", quotes, now)

	assert.Empty(t, opps, "a single venue must never be matched against itself")
}

func TestDirectStrategy_ZeroGuards(t *testing.T) {
	now := time.Now()
	quotes := []domain.Quote{
		{Exchange: "venue_a", Bid: decimal.Zero, Ask: decimal.NewFromInt(10000000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
		{Exchange: "venue_b", Bid: decimal.NewFromInt(10050000), Ask: decimal.NewFromInt(10060000), BidSize: decimal.Zero, AskSize: decimal.NewFromInt(1), Timestamp: now},
	}

	s := NewDirectStrategy(capTable(), feeTable(0.001))
	opps := s.Detect("BTC/JPY", quotes, now)

	assert.Empty(t, opps, "zero bid/size must discard the candidate rather than divide by zero")
}

func TestDirectStrategy_Q2Q3Invariants(t *testing.T) {
	now := time.Now()
	quotes := []domain.Quote{
		{Exchange: "venue_a", Bid: decimal.NewFromInt(9990000), Ask: decimal.NewFromInt(10000000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
		{Exchange: "venue_b", Bid: decimal.NewFromInt(10050000), Ask: decimal.NewFromInt(10060000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
	}

	s := NewDirectStrategy(capTable(), feeTable(0.001))
	opps := s.Detect("BTC/JPY", quotes, now)

	require.Len(t, opps, 1)
	opp := opps[0]
	assert.NotEqual(t, opp.BuyExchange, opp.SellExchange, "buy and sell exchange must differ")
	assert.True(t, opp.SellPrice.GreaterThan(opp.BuyPrice), "sell price must exceed buy price")
	assert.True(t, opp.EstimatedProfitPct.GreaterThan(decimal.Zero), "estimated profit must be positive")
}

func TestDirectStrategy_SellFeeUsesSellPrice(t *testing.T) {
	// buy=100, sell=110 with a 1% sell-side fee must yield sellFees=1.10,
	// not 1.00 — sizing the sell leg off the buy price under-fees it
	// whenever the two prices diverge materially.
	now := time.Now()
	quotes := []domain.Quote{
		{Exchange: "venue_a", Bid: decimal.NewFromInt(95), Ask: decimal.NewFromInt(100), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
		{Exchange: "venue_b", Bid: decimal.NewFromInt(110), Ask: decimal.NewFromInt(115), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
	}

	fees := map[string]VenueFees{
		"venue_a": {TakerFee: decimal.Zero},
		"venue_b": {TakerFee: decimal.NewFromFloat(0.01)},
	}

	s := NewDirectStrategy(capTable(), fees)
	opps := s.Detect("BTC/JPY", quotes, now)

	require.Len(t, opps, 1)
	opp := opps[0]
	assert.True(t, opp.Fees.SellFees.Equal(decimal.NewFromFloat(1.10)),
		"sell fee should be volume*sellPrice*sellFeeRate = 1*110*0.01 = 1.10, got %s", opp.Fees.SellFees)
}

func TestDirectStrategy_B1_SingleVenueYieldsNoCandidates(t *testing.T) {
	now := time.Now()
	quotes := []domain.Quote{
		{Exchange: "venue_a", Bid: decimal.NewFromInt(9990000), Ask: decimal.NewFromInt(10000000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
	}

	s := NewDirectStrategy(capTable(), feeTable(0.001))
	opps := s.Detect("BTC/JPY", quotes, now)

	assert.Empty(t, opps)
}

func TestSortByProfitDesc(t *testing.T) {
	opps := []domain.ArbitrageOpportunity{
		{EstimatedProfitPct: decimal.NewFromFloat(0.1)},
		{EstimatedProfitPct: decimal.NewFromFloat(0.5)},
		{EstimatedProfitPct: decimal.NewFromFloat(0.3)},
	}
	sortByProfitDesc(opps)

	require.Len(t, opps, 3)
	assert.True(t, opps[0].EstimatedProfitPct.Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, opps[1].EstimatedProfitPct.Equal(decimal.NewFromFloat(0.3)))
	assert.True(t, opps[2].EstimatedProfitPct.Equal(decimal.NewFromFloat(0.1)))
}
