package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePolicyStore struct {
	policy domain.NotificationPolicy
}

func (f fakePolicyStore) Load(ctx context.Context) (domain.NotificationPolicy, error) {
	return f.policy, nil
}

type fakeWebhook struct {
	opportunities []domain.ArbitrageOpportunity
	systemAlerts  []domain.SystemAlert
	failNext      bool
}

func (f *fakeWebhook) SendOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	if f.failNext {
		f.failNext = false
		return errors.New("webhook unreachable")
	}
	f.opportunities = append(f.opportunities, opp)
	return nil
}

func (f *fakeWebhook) SendSystemAlert(ctx context.Context, alert domain.SystemAlert) error {
	f.systemAlerts = append(f.systemAlerts, alert)
	return nil
}

func defaultPolicy() domain.NotificationPolicy {
	p := domain.DefaultNotificationPolicy()
	p.Discord.QuietHours.Enabled = false
	return p
}

func clearOpportunity(pair, buy, sell string) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		Pair:                pair,
		BuyExchange:         buy,
		SellExchange:        sell,
		BuyPrice:            decimal.NewFromInt(10000000),
		SellPrice:           decimal.NewFromInt(10050000),
		PriceDiffPct:        decimal.NewFromFloat(0.5),
		EstimatedProfitPct:  decimal.NewFromFloat(0.4),
		MaxProfitableVolume: decimal.NewFromFloat(1),
	}
}

func newGateAt(t time.Time, policy domain.NotificationPolicy, webhook Webhook) *Gate {
	g := NewGate(fakePolicyStore{policy: policy}, webhook, zerolog.Nop())
	g.clock = func() time.Time { return t }
	return g
}

func TestGate_Q4_DropsBelowProfitThreshold(t *testing.T) {
	policy := defaultPolicy()
	policy.ArbitrageAlerts.MinProfitThreshold = 0.3
	wh := &fakeWebhook{}
	g := newGateAt(time.Now(), policy, wh)

	opp := clearOpportunity("BTC/JPY", "bitflyer", "binance")
	opp.EstimatedProfitPct = decimal.NewFromFloat(0.1)

	require.NoError(t, g.Consider(context.Background(), opp))
	assert.Empty(t, wh.opportunities)
}

func TestGate_Q5_CooldownSuppressesSecondEmitOnSameRoute(t *testing.T) {
	policy := defaultPolicy()
	policy.ArbitrageAlerts.CooldownMinutes = 5
	wh := &fakeWebhook{}
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	g := newGateAt(now, policy, wh)

	opp := clearOpportunity("BTC/JPY", "bitflyer", "binance")
	require.NoError(t, g.Consider(context.Background(), opp))
	require.Len(t, wh.opportunities, 1, "scenario 5: first emit on this route must succeed")

	g.clock = func() time.Time { return now.Add(30 * time.Second) }
	require.NoError(t, g.Consider(context.Background(), opp))
	assert.Len(t, wh.opportunities, 1, "scenario 5: second emit 30s later must be suppressed by cooldown")
}

func TestGate_Q5_CooldownAllowsEmitAfterWindow(t *testing.T) {
	policy := defaultPolicy()
	policy.ArbitrageAlerts.CooldownMinutes = 5
	wh := &fakeWebhook{}
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	g := newGateAt(now, policy, wh)

	opp := clearOpportunity("BTC/JPY", "bitflyer", "binance")
	require.NoError(t, g.Consider(context.Background(), opp))

	g.clock = func() time.Time { return now.Add(6 * time.Minute) }
	require.NoError(t, g.Consider(context.Background(), opp))
	assert.Len(t, wh.opportunities, 2)
}

func TestGate_Q6_HourlyCapBlocksExcessEmits(t *testing.T) {
	policy := defaultPolicy()
	policy.ArbitrageAlerts.CooldownMinutes = 0
	policy.ArbitrageAlerts.MaxNotificationsPerHour = 2
	wh := &fakeWebhook{}
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	g := newGateAt(now, policy, wh)

	routes := [][2]string{{"bitflyer", "binance"}, {"bitbank", "bybit"}, {"coincheck", "gmo"}}
	for i, r := range routes {
		g.clock = func() time.Time { return now.Add(time.Duration(i) * time.Second) }
		opp := clearOpportunity("BTC/JPY", r[0], r[1])
		require.NoError(t, g.Consider(context.Background(), opp))
	}

	assert.Len(t, wh.opportunities, 2, "third distinct-route emit within the hour must be capped")
}

func TestGate_B2_AllBelowThresholdProducesNoEmits(t *testing.T) {
	policy := defaultPolicy()
	wh := &fakeWebhook{}
	g := newGateAt(time.Now(), policy, wh)

	for i := 0; i < 3; i++ {
		opp := clearOpportunity("BTC/JPY", "bitflyer", "binance")
		opp.EstimatedProfitPct = decimal.NewFromFloat(0.05)
		require.NoError(t, g.Consider(context.Background(), opp))
	}

	assert.Empty(t, wh.opportunities)
}

func TestGate_B3_QuietHoursBlocksMidnightWrapWindow(t *testing.T) {
	policy := defaultPolicy()
	policy.Discord.QuietHours = domain.QuietHours{Enabled: true, Start: "23:00", End: "07:00"}
	wh := &fakeWebhook{}

	// The process clock reports UTC, as it would on a typical server; the
	// gate must still evaluate quiet hours against JST (UTC+9). 17:00 UTC
	// is 02:00 JST the following day — inside the window — even though
	// 17:00 read raw is outside it, which is exactly the bug this guards.
	late := time.Date(2026, 7, 29, 17, 0, 0, 0, time.UTC)
	g := newGateAt(late, policy, wh)
	opp := clearOpportunity("BTC/JPY", "bitflyer", "binance")
	require.NoError(t, g.Consider(context.Background(), opp))
	assert.Empty(t, wh.opportunities, "scenario 6: 17:00 UTC is 02:00 JST, inside the 23:00-07:00 quiet window")

	// 23:00 UTC the same day is 08:00 JST the next day — outside the window.
	morning := time.Date(2026, 7, 29, 23, 0, 0, 0, time.UTC)
	g.clock = func() time.Time { return morning }
	require.NoError(t, g.Consider(context.Background(), opp))
	assert.Len(t, wh.opportunities, 1, "08:00 is outside the quiet window and must emit")
}

func TestGate_FailedSendIsNotRecorded(t *testing.T) {
	policy := defaultPolicy()
	policy.ArbitrageAlerts.CooldownMinutes = 5
	wh := &fakeWebhook{failNext: true}
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	g := newGateAt(now, policy, wh)

	opp := clearOpportunity("BTC/JPY", "bitflyer", "binance")
	err := g.Consider(context.Background(), opp)
	assert.Error(t, err)
	assert.Empty(t, wh.opportunities)

	// A retry immediately after must not be suppressed by cooldown, since
	// the failed send was never recorded.
	require.NoError(t, g.Consider(context.Background(), opp))
	assert.Len(t, wh.opportunities, 1)
}

func TestGate_FeatureDisabledDropsSilently(t *testing.T) {
	policy := defaultPolicy()
	policy.ArbitrageAlerts.Enabled = false
	wh := &fakeWebhook{}
	g := newGateAt(time.Now(), policy, wh)

	opp := clearOpportunity("BTC/JPY", "bitflyer", "binance")
	require.NoError(t, g.Consider(context.Background(), opp))
	assert.Empty(t, wh.opportunities)
}

func TestGate_SystemAlert_ErrorBypassesQuietHours(t *testing.T) {
	policy := defaultPolicy()
	policy.Discord.QuietHours = domain.QuietHours{Enabled: true, Start: "23:00", End: "07:00"}
	wh := &fakeWebhook{}
	// 17:00 UTC is 02:00 JST the following day, inside the quiet window.
	g := newGateAt(time.Date(2026, 7, 29, 17, 0, 0, 0, time.UTC), policy, wh)

	alert := domain.SystemAlert{Severity: domain.SeverityError, Source: "store", Message: "connection lost", Timestamp: time.Now()}
	require.NoError(t, g.ConsiderSystemAlert(context.Background(), alert))
	assert.Len(t, wh.systemAlerts, 1)
}

func TestGate_SystemAlert_WarningHonorsQuietHours(t *testing.T) {
	policy := defaultPolicy()
	policy.Discord.QuietHours = domain.QuietHours{Enabled: true, Start: "23:00", End: "07:00"}
	wh := &fakeWebhook{}
	// 17:00 UTC is 02:00 JST the following day, inside the quiet window;
	// read raw (without the JST conversion) 17:00 falls outside it, so this
	// only passes once quiet hours are actually evaluated in JST.
	g := newGateAt(time.Date(2026, 7, 29, 17, 0, 0, 0, time.UTC), policy, wh)

	alert := domain.SystemAlert{Severity: domain.SeverityWarning, Source: "collector", Message: "rate limited", Timestamp: time.Now()}
	require.NoError(t, g.ConsiderSystemAlert(context.Background(), alert))
	assert.Empty(t, wh.systemAlerts)
}

func TestInQuietHours_MidnightWrap(t *testing.T) {
	qh := domain.QuietHours{Enabled: true, Start: "23:00", End: "07:00"}
	assert.True(t, inQuietHours(qh, time.Date(2026, 7, 29, 23, 30, 0, 0, time.UTC)))
	assert.True(t, inQuietHours(qh, time.Date(2026, 7, 29, 2, 0, 0, 0, time.UTC)))
	assert.False(t, inQuietHours(qh, time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)))
	assert.False(t, inQuietHours(qh, time.Date(2026, 7, 29, 7, 0, 0, 0, time.UTC)))
}
