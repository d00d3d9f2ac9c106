package notify

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PolicyStore loads the notification policy document, re-read on every
// gate decision per spec's "cheap; small file; OS cache" note.
type PolicyStore interface {
	Load(ctx context.Context) (domain.NotificationPolicy, error)
}

// Webhook is the narrow send surface the Gate depends on.
type Webhook interface {
	SendOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error
	SendSystemAlert(ctx context.Context, alert domain.SystemAlert) error
}

// Gate is the Notification Gate: it applies the enable/quiet-hours/
// threshold/cooldown/hourly-cap decision procedure before any webhook
// send, and records only sends that actually succeeded.
type Gate struct {
	policy   PolicyStore
	webhook  Webhook
	clock    func() time.Time
	location *time.Location
	log      zerolog.Logger

	mu          sync.Mutex
	lastEmit    map[string]time.Time // "{pair}:{buy}->{sell}" -> last successful emit
	hourlyEmits []time.Time          // rolling 60-min window of successful emits
}

// NewGate wires a policy source and webhook sender into a Gate. Quiet-hours
// comparisons run against venue-local time per spec: TIMEZONE if set,
// otherwise Asia/Tokyo.
func NewGate(policy PolicyStore, webhook Webhook, log zerolog.Logger) *Gate {
	return &Gate{
		policy:   policy,
		webhook:  webhook,
		clock:    time.Now,
		location: quietHoursLocation(),
		log:      log.With().Str("component", "notify.Gate").Logger(),
		lastEmit: make(map[string]time.Time),
	}
}

var (
	quietHoursLocationOnce sync.Once
	quietHoursLoc          *time.Location
)

// quietHoursLocation resolves the wall-clock zone quiet hours are evaluated
// in. TIMEZONE overrides the default of Asia/Tokyo, the glossary's
// documented "venue-local" zone; if the named zone can't be loaded (e.g. no
// tzdata present), it falls back to a fixed UTC+9 offset rather than
// silently comparing against the process's own zone.
func quietHoursLocation() *time.Location {
	quietHoursLocationOnce.Do(func() {
		name := os.Getenv("TIMEZONE")
		if name == "" {
			name = "Asia/Tokyo"
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			loc = time.FixedZone("JST", 9*60*60)
		}
		quietHoursLoc = loc
	})
	return quietHoursLoc
}

func routeKey(opp domain.ArbitrageOpportunity) string {
	return fmt.Sprintf("%s:%s->%s", opp.Pair, opp.BuyExchange, opp.SellExchange)
}

// profitAmount is the estimated absolute profit in quote currency:
// profit_pct/100 * buy_price * max_volume.
func profitAmount(opp domain.ArbitrageOpportunity) decimal.Decimal {
	return opp.EstimatedProfitPct.Div(decimal.NewFromInt(100)).
		Mul(opp.BuyPrice).Mul(opp.MaxProfitableVolume)
}

// Consider runs the full 8-step decision procedure for one arbitrage
// opportunity. It never returns an error for a policy-driven drop; a
// non-nil error indicates the policy could not be loaded or the webhook
// send itself failed.
func (g *Gate) Consider(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	policy, err := g.policy.Load(ctx)
	if err != nil {
		return fmt.Errorf("load notification policy: %w", err)
	}

	// Step 1: feature enabled.
	if !policy.ArbitrageAlerts.Enabled || !policy.Discord.Enabled {
		return nil
	}

	now := g.clock()

	// Step 2: quiet hours (arbitrage alerts are never ERROR severity).
	if inQuietHours(policy.Discord.QuietHours, now.In(g.location)) {
		return nil
	}

	// Step 3: dual thresholds.
	threshold := decimal.NewFromFloat(policy.ArbitrageAlerts.MinProfitThreshold)
	amountThreshold := decimal.NewFromFloat(policy.ArbitrageAlerts.MinProfitAmount)
	if opp.EstimatedProfitPct.LessThan(threshold) {
		return nil
	}
	if profitAmount(opp).LessThan(amountThreshold) {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Step 4: per-route cooldown.
	cooldown := time.Duration(policy.ArbitrageAlerts.CooldownMinutes) * time.Minute
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	key := routeKey(opp)
	if last, ok := g.lastEmit[key]; ok && now.Sub(last) < cooldown {
		return nil
	}

	// Step 5: hourly cap over a trailing 60-minute window.
	g.pruneHourly(now)
	hourlyCap := policy.ArbitrageAlerts.MaxNotificationsPerHour
	if hourlyCap <= 0 {
		hourlyCap = 20
	}
	if len(g.hourlyEmits) >= hourlyCap {
		return nil
	}

	// Step 6: emit.
	if err := g.webhook.SendOpportunity(ctx, opp); err != nil {
		// Step 8: on failure, log and do not record the emit.
		g.log.Warn().Err(err).Str("route", key).Msg("webhook send failed")
		return err
	}

	// Step 7: on success, record in both the cooldown map and the ring buffer.
	g.lastEmit[key] = now
	g.hourlyEmits = append(g.hourlyEmits, now)
	return nil
}

// ConsiderSystemAlert routes an operational notice through the same gate.
// System alerts bypass thresholds/cooldown/cap (steps 3-5) but still honor
// the feature flag (step 1) and, for non-ERROR severities, quiet hours
// (step 2).
func (g *Gate) ConsiderSystemAlert(ctx context.Context, alert domain.SystemAlert) error {
	policy, err := g.policy.Load(ctx)
	if err != nil {
		return fmt.Errorf("load notification policy: %w", err)
	}

	if !policy.SystemAlerts.Enabled || !policy.Discord.Enabled {
		return nil
	}
	if !alertTypeAllowed(policy.SystemAlerts.AlertTypes, alert.Severity) {
		return nil
	}
	if alert.Severity != domain.SeverityError && inQuietHours(policy.Discord.QuietHours, g.clock().In(g.location)) {
		return nil
	}

	if err := g.webhook.SendSystemAlert(ctx, alert); err != nil {
		g.log.Warn().Err(err).Str("severity", string(alert.Severity)).Msg("system alert send failed")
		return err
	}
	return nil
}

func alertTypeAllowed(allowed []string, severity domain.Severity) bool {
	for _, s := range allowed {
		if s == string(severity) {
			return true
		}
	}
	return false
}

// pruneHourly drops emits older than 60 minutes from the rolling window.
// Must be called with g.mu held.
func (g *Gate) pruneHourly(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for ; i < len(g.hourlyEmits); i++ {
		if g.hourlyEmits[i].After(cutoff) {
			break
		}
	}
	g.hourlyEmits = g.hourlyEmits[i:]
}

// inQuietHours reports whether now's local clock time falls within
// [start, end), handling the case where the window wraps past midnight.
func inQuietHours(qh domain.QuietHours, now time.Time) bool {
	if !qh.Enabled {
		return false
	}
	start, err := parseHHMM(qh.Start)
	if err != nil {
		return false
	}
	end, err := parseHHMM(qh.End)
	if err != nil {
		return false
	}

	cur := now.Hour()*60 + now.Minute()
	if start <= end {
		return cur >= start && cur < end
	}
	// Wraps midnight, e.g. 23:00-07:00.
	return cur >= start || cur < end
}

func parseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	return h*60 + m, nil
}
