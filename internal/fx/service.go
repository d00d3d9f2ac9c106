// Package fx maintains a process-wide, refresh-on-read cache of fiat/
// stablecoin rates for venues that quote in USDT while the canonical
// display currency is JPY.
package fx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// fallbackUSDJPY is served when no value has ever been cached — a
// safety-biased default, never a real-time estimate.
var fallbackUSDJPY = decimal.NewFromInt(155)

// hardStaleCeiling is the age past which a cached value served after all
// sources failed is logged with a separate hard-ceiling warning; the value
// is still served.
const hardStaleCeiling = 24 * time.Hour

// defaultRefreshInterval is how long a cached value is trusted before the
// next GetRate call triggers a synchronous refresh.
const defaultRefreshInterval = 5 * time.Minute

// RateSource fetches a fresh fiat rate for one pair (e.g. "USD", "JPY").
// Implementations are tried in the order registered with Service; the first
// success wins.
type RateSource interface {
	Name() string
	FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type cacheEntry struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// Service is the mutex-guarded refresh-on-read rate cache.
type Service struct {
	mu              sync.Mutex
	sources         []RateSource
	cache           map[string]cacheEntry
	refreshInterval time.Duration
	log             zerolog.Logger
}

// NewService builds a Service trying sources in the given order.
func NewService(log zerolog.Logger, sources ...RateSource) *Service {
	return &Service{
		sources:         sources,
		cache:           make(map[string]cacheEntry),
		refreshInterval: defaultRefreshInterval,
		log:             log.With().Str("component", "fx").Logger(),
	}
}

func cacheKey(from, to string) string { return from + ":" + to }

// GetRate never blocks on network if a non-stale cached value exists. On
// first call, or once the cached value exceeds the refresh interval, it
// refreshes synchronously — but at most one refresh is in flight at a time
// because the whole method runs under the service mutex.
func (s *Service) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey(from, to)
	entry, cached := s.cache[key]

	if cached && time.Since(entry.fetchedAt) < s.refreshInterval {
		return entry.rate, nil
	}

	for _, src := range s.sources {
		rate, err := src.FetchRate(ctx, from, to)
		if err != nil {
			s.log.Warn().Err(err).Str("source", src.Name()).Str("pair", key).Msg("rate source failed")
			continue
		}
		s.cache[key] = cacheEntry{rate: rate, fetchedAt: time.Now()}
		s.log.Info().Str("source", src.Name()).Str("pair", key).Str("rate", rate.String()).Msg("refreshed rate")
		return rate, nil
	}

	// All sources failed: stale cached value beats no value at all.
	if cached {
		age := time.Since(entry.fetchedAt)
		if age > hardStaleCeiling {
			s.log.Warn().Str("pair", key).Dur("age", age).Msg("serving rate older than hard staleness ceiling")
		} else {
			s.log.Warn().Str("pair", key).Dur("age", age).Msg("all rate sources failed, serving stale cached rate")
		}
		return entry.rate, nil
	}

	// Never cached and nothing reachable: safety-biased hard fallback.
	if key == cacheKey("USD", "JPY") {
		s.log.Warn().Str("pair", key).Str("rate", fallbackUSDJPY.String()).
			Msg("no cached rate and all sources failed, serving hard-coded fallback")
		return fallbackUSDJPY, nil
	}

	return decimal.Zero, fmt.Errorf("no cached rate and all sources failed for %s", key)
}
