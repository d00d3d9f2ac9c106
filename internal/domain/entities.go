// Package domain holds the canonical entities and error taxonomy shared by
// every subsystem: collection, detection, and notification all exchange
// these types rather than their own private shapes.
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OpportunityStatus is a closed set of lifecycle states for a detected
// opportunity. The source system used a free-form string; this pins it down.
type OpportunityStatus string

const (
	StatusDetected OpportunityStatus = "detected"
	StatusSkipped  OpportunityStatus = "skipped"
	StatusNotified OpportunityStatus = "notified"
)

// OpportunityKind tags which detection strategy produced a candidate.
type OpportunityKind string

const (
	KindDirect    OpportunityKind = "direct"
	KindCrossRate OpportunityKind = "cross_rate"
	KindUSD       OpportunityKind = "usd"
	KindTriangle  OpportunityKind = "triangle"
	KindLatency   OpportunityKind = "latency"
)

// Exchange is a seeded, rarely-mutated venue record. Withdrawal fees are
// keyed by asset symbol (e.g. "BTC" -> 0.0004).
type Exchange struct {
	ID              int64
	Code            string
	DisplayName     string
	MakerFee        decimal.Decimal
	TakerFee        decimal.Decimal
	WithdrawalFees  map[string]decimal.Decimal
	Active          bool
	CreatedAt       time.Time
}

// CurrencyPair is the canonical "BASE/QUOTE" symbol along with its two legs.
type CurrencyPair struct {
	ID          int64
	Symbol      string // "BTC/JPY"
	BaseAsset   string
	QuoteAsset  string
	LotStep     *decimal.Decimal
	PriceStep   *decimal.Decimal
	Active      bool
	CreatedAt   time.Time
}

// Quote is an append-only price tick for one (exchange, pair) at an instant.
// A valid quote always has Ask >= Bid, Bid > 0, and a timestamp no more
// than 60s in the future.
type Quote struct {
	ID           int64
	Exchange     string
	Pair         string
	Bid          decimal.Decimal
	Ask          decimal.Decimal
	BidSize      decimal.Decimal
	AskSize      decimal.Decimal
	Last         decimal.Decimal
	Volume24h    decimal.Decimal
	Timestamp    time.Time
	IsNativeJPY  bool
	OriginalBid  *decimal.Decimal
	OriginalAsk  *decimal.Decimal
	FXRate       *decimal.Decimal
	CreatedAt    time.Time
}

// Valid reports whether the quote satisfies the store's admission invariant.
func (q Quote) Valid(now time.Time, clockSkew time.Duration) bool {
	if q.Bid.LessThanOrEqual(decimal.Zero) {
		return false
	}
	if q.Ask.LessThan(q.Bid) {
		return false
	}
	if q.Timestamp.After(now.Add(clockSkew)) {
		return false
	}
	return true
}

// BookLevel is one price/size rung of an order book side.
type BookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderbookSnapshot is a sampled depth snapshot, less frequent than quotes.
type OrderbookSnapshot struct {
	ID        int64
	Exchange  string
	Pair      string
	Bids      []BookLevel
	Asks      []BookLevel
	Timestamp time.Time
	CreatedAt time.Time
}

// Balance is an optional per-venue asset balance, omitted in monitoring-only
// deployments.
type Balance struct {
	Exchange  string
	Asset     string
	Available decimal.Decimal
	Locked    decimal.Decimal
	Timestamp time.Time
}

// FeeBreakdown captures the individual components summed into TotalFeesPct.
type FeeBreakdown struct {
	BuyFees      decimal.Decimal
	SellFees     decimal.Decimal
	TransferFee  decimal.Decimal
	TotalFeesPct decimal.Decimal
}

// ArbitrageOpportunity is an immutable-after-insert detection result.
type ArbitrageOpportunity struct {
	ID                  int64
	Timestamp           time.Time
	Kind                OpportunityKind
	Pair                string
	BuyExchange         string
	SellExchange        string
	BuyPrice            decimal.Decimal
	SellPrice           decimal.Decimal
	PriceDiffPct        decimal.Decimal
	EstimatedProfitPct  decimal.Decimal
	MaxProfitableVolume decimal.Decimal
	Fees                FeeBreakdown
	Status              OpportunityStatus
	SkipReason          string
	ExecutionDetails    json.RawMessage
	CreatedAt           time.Time
}

// NotificationPolicy mirrors the on-disk notifications.json document.
type NotificationPolicy struct {
	ArbitrageAlerts ArbitrageAlertsPolicy `json:"arbitrage_alerts"`
	SystemAlerts    SystemAlertsPolicy    `json:"system_alerts"`
	Discord         DiscordPolicy         `json:"discord"`
}

type ArbitrageAlertsPolicy struct {
	Enabled                 bool    `json:"enabled"`
	MinProfitThreshold      float64 `json:"min_profit_threshold"`
	MinProfitAmount         float64 `json:"min_profit_amount"`
	CooldownMinutes         int     `json:"cooldown_minutes"`
	MaxNotificationsPerHour int     `json:"max_notifications_per_hour"`
}

type SystemAlertsPolicy struct {
	Enabled    bool     `json:"enabled"`
	AlertTypes []string `json:"alert_types"`
}

type DiscordPolicy struct {
	Enabled    bool        `json:"enabled"`
	UseEmbeds  bool        `json:"use_embeds"`
	QuietHours QuietHours  `json:"quiet_hours"`
}

type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"` // "HH:MM"
	End     string `json:"end"`   // "HH:MM"
}

// DefaultNotificationPolicy is served when notifications.json is absent.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		ArbitrageAlerts: ArbitrageAlertsPolicy{
			Enabled:                 true,
			MinProfitThreshold:      0.3,
			MinProfitAmount:         0,
			CooldownMinutes:         5,
			MaxNotificationsPerHour: 20,
		},
		SystemAlerts: SystemAlertsPolicy{
			Enabled:    true,
			AlertTypes: []string{"ERROR", "WARNING"},
		},
		Discord: DiscordPolicy{
			Enabled:   true,
			UseEmbeds: true,
			QuietHours: QuietHours{
				Enabled: false,
				Start:   "23:00",
				End:     "07:00",
			},
		},
	}
}

// Severity is the level of a system (non-arbitrage) alert.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// SystemAlert is an operational notice raised by collection/store components,
// routed through the same Notification Gate as arbitrage opportunities.
type SystemAlert struct {
	Severity  Severity
	Source    string
	Message   string
	Timestamp time.Time
}
