package exchange

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Guard wraps a venue's outbound HTTP calls with a per-host token-bucket
// rate limiter and a per-venue circuit breaker, so one misbehaving venue
// backs off on its own schedule and stops hammering a venue that is already
// failing.
type Guard struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
	breaker  *gobreaker.CircuitBreaker
}

// NewGuard builds a Guard for one venue. rps/burst size the token bucket;
// breakerName becomes the gobreaker.Settings.Name for log/metric labeling.
func NewGuard(breakerName string, rps float64, burst int) *Guard {
	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Guard{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
		breaker:  gobreaker.NewCircuitBreaker(settings),
	}
}

// limiterFor returns or lazily creates the token bucket for host; every
// lookup runs under the guard's mutex.
func (g *Guard) limiterFor(host string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	if l, ok := g.limiters[host]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(g.rps), g.burst)
	g.limiters[host] = l
	return l
}

// Do waits for rate-limit admission, then executes fn through the circuit
// breaker. An open circuit fails fast with TransientNetwork rather than
// attempting the call.
func (g *Guard) Do(ctx context.Context, host string, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	if err := g.limiterFor(host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrTransientNetwork, err)
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		resp, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return resp, fmt.Errorf("%w: rate limited", domain.ErrRateLimited)
		}
		if resp.StatusCode >= 500 {
			return resp, fmt.Errorf("%w: server error %d", domain.ErrTransientNetwork, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if result != nil {
			return result.(*http.Response), err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}

	return result.(*http.Response), nil
}
