package postgres

import (
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/shopspring/decimal"
)

func sampleQuote(exchange, pair string) domain.Quote {
	return domain.Quote{
		Exchange:    exchange,
		Pair:        pair,
		Bid:         decimal.NewFromInt(10000000),
		Ask:         decimal.NewFromInt(10005000),
		BidSize:     decimal.NewFromFloat(0.5),
		AskSize:     decimal.NewFromFloat(0.5),
		Last:        decimal.NewFromInt(10002000),
		Volume24h:   decimal.NewFromFloat(12.0),
		Timestamp:   time.Now(),
		IsNativeJPY: true,
	}
}
