package detect

import (
	"context"
	"testing"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossRateStrategy_DetectsDislocation(t *testing.T) {
	now := time.Now()

	jpyQuote := domain.Quote{
		Exchange: "bitflyer", Bid: decimal.NewFromInt(10000000), Ask: decimal.NewFromInt(10010000),
		AskSize: decimal.NewFromFloat(0.5), Timestamp: now,
	}
	// USDT mid converted to JPY sits noticeably above the domestic mid.
	usdtQuote := domain.Quote{
		Exchange: "binance", Bid: decimal.NewFromInt(10100000), Ask: decimal.NewFromInt(10120000),
		AskSize: decimal.NewFromFloat(0.5), Timestamp: now,
	}

	s := NewCrossRateStrategy(nil, feeTable(0.001))
	opp, ok := s.Detect(context.Background(), "BTC/JPY", jpyQuote, usdtQuote, now)

	require.True(t, ok)
	assert.Equal(t, domain.KindCrossRate, opp.Kind)
	assert.Equal(t, "bitflyer", opp.BuyExchange)
	assert.Equal(t, "binance", opp.SellExchange)
}

func TestCrossRateStrategy_BelowThresholdDropped(t *testing.T) {
	now := time.Now()
	jpyQuote := domain.Quote{
		Exchange: "bitflyer", Bid: decimal.NewFromInt(10000000), Ask: decimal.NewFromInt(10001000),
		AskSize: decimal.NewFromFloat(0.5), Timestamp: now,
	}
	usdtQuote := domain.Quote{
		Exchange: "binance", Bid: decimal.NewFromInt(10001000), Ask: decimal.NewFromInt(10002000),
		AskSize: decimal.NewFromFloat(0.5), Timestamp: now,
	}

	s := NewCrossRateStrategy(nil, feeTable(0.001))
	_, ok := s.Detect(context.Background(), "BTC/JPY", jpyQuote, usdtQuote, now)

	assert.False(t, ok, "sub-0.1%% dislocation must not emit a candidate")
}

func TestCrossRateStrategy_StaleLegExcluded(t *testing.T) {
	now := time.Now()
	jpyQuote := domain.Quote{
		Exchange: "bitflyer", Bid: decimal.NewFromInt(10000000), Ask: decimal.NewFromInt(10010000),
		AskSize: decimal.NewFromFloat(0.5), Timestamp: now.Add(-600 * time.Second),
	}
	usdtQuote := domain.Quote{
		Exchange: "binance", Bid: decimal.NewFromInt(10100000), Ask: decimal.NewFromInt(10120000),
		AskSize: decimal.NewFromFloat(0.5), Timestamp: now,
	}

	s := NewCrossRateStrategy(nil, feeTable(0.001))
	_, ok := s.Detect(context.Background(), "BTC/JPY", jpyQuote, usdtQuote, now)

	assert.False(t, ok)
}

func TestUSDStrategy_RestrictsToEligibleVenues(t *testing.T) {
	now := time.Now()
	quotes := []domain.Quote{
		{Exchange: "binance", Bid: decimal.NewFromInt(9990), Ask: decimal.NewFromInt(10000), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
		{Exchange: "bybit", Bid: decimal.NewFromInt(10050), Ask: decimal.NewFromInt(10060), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
		{Exchange: "bitflyer", Bid: decimal.NewFromInt(10200), Ask: decimal.NewFromInt(10210), BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Timestamp: now},
	}

	caps := map[string]decimal.Decimal{"BTC": decimal.NewFromInt(10)}
	fees := map[string]VenueFees{
		"binance": {TakerFee: decimal.NewFromFloat(0.001)},
		"bybit":   {TakerFee: decimal.NewFromFloat(0.001)},
	}
	s := NewUSDStrategy(caps, fees)
	opps := s.Detect("BTC/USDT", quotes, now)

	for _, opp := range opps {
		assert.True(t, usdVenues[opp.BuyExchange])
		assert.True(t, usdVenues[opp.SellExchange])
		assert.Equal(t, domain.KindUSD, opp.Kind)
	}
}

func TestTriangleAndLatencyStrategies_ReturnEmpty(t *testing.T) {
	now := time.Now()
	assert.Empty(t, NewTriangleStrategy().Detect("BTC/JPY", nil, now))
	assert.Empty(t, NewLatencyStrategy().Detect("BTC/JPY", nil, now))
}
