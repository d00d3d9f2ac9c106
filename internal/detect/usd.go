package detect

import (
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/shopspring/decimal"
)

// usdVenues are the only venues eligible for USD-quoted arbitrage per
// spec.md §4.E.3 — international, USDT-settled venues.
var usdVenues = map[string]bool{"binance": true, "bybit": true}

// USDStrategy applies direct arbitrage's math to USDT-quoted pairs,
// restricted to international venues only.
type USDStrategy struct {
	inner *DirectStrategy
}

// NewUSDStrategy builds a USDStrategy sharing DirectStrategy's math.
func NewUSDStrategy(caps map[string]decimal.Decimal, fees map[string]VenueFees) *USDStrategy {
	return &USDStrategy{inner: NewDirectStrategy(caps, fees)}
}

// Detect filters quotes down to eligible venues before delegating to the
// shared direct-arbitrage evaluation.
func (s *USDStrategy) Detect(pair string, quotes []domain.Quote, now time.Time) []domain.ArbitrageOpportunity {
	eligible := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if usdVenues[q.Exchange] {
			eligible = append(eligible, q)
		}
	}

	opps := s.inner.Detect(pair, eligible, now)
	for i := range opps {
		opps[i].Kind = domain.KindUSD
	}
	return opps
}
