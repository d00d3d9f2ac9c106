package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/shopspring/decimal"
)

// DiscordProvider posts arbitrage-opportunity and system-alert embeds to a
// Discord-compatible incoming webhook.
type DiscordProvider struct {
	webhookURL string
	username   string
	useEmbeds  bool
	client     *http.Client
}

// NewDiscordProvider builds a DiscordProvider bound to one webhook URL.
func NewDiscordProvider(webhookURL, username string, useEmbeds bool) *DiscordProvider {
	return &DiscordProvider{
		webhookURL: webhookURL,
		username:   username,
		useEmbeds:  useEmbeds,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// DiscordWebhookPayload mirrors Discord's incoming-webhook message body.
type DiscordWebhookPayload struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

type DiscordEmbed struct {
	Title     string              `json:"title,omitempty"`
	Color     int                 `json:"color,omitempty"`
	Fields    []DiscordEmbedField `json:"fields,omitempty"`
	Footer    *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp string              `json:"timestamp,omitempty"`
}

type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

const (
	colorGreen  = 0x00CC66
	colorYellow = 0xFFCC00
	colorOrange = 0xFF9900
	colorInfo   = 0x0099FF
	colorWarn   = 0xFF9900
	colorError  = 0xFF0000
)

// profitColor bands embed color by profit percentage: >=0.5% green,
// >=0.1% yellow, else orange.
func profitColor(profitPct decimal.Decimal) int {
	switch {
	case profitPct.GreaterThanOrEqual(decimal.NewFromFloat(0.5)):
		return colorGreen
	case profitPct.GreaterThanOrEqual(decimal.NewFromFloat(0.1)):
		return colorYellow
	default:
		return colorOrange
	}
}

// SendOpportunity posts one arbitrage opportunity as a Discord embed.
func (d *DiscordProvider) SendOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	embed := DiscordEmbed{
		Title:     fmt.Sprintf("Arbitrage opportunity: %s", opp.Pair),
		Color:     profitColor(opp.EstimatedProfitPct),
		Timestamp: opp.Timestamp.Format(time.RFC3339),
		Footer:    &DiscordEmbedFooter{Text: "arbmon"},
		Fields: []DiscordEmbedField{
			{Name: "Route", Value: fmt.Sprintf("%s -> %s", opp.BuyExchange, opp.SellExchange), Inline: true},
			{Name: "Profit", Value: opp.EstimatedProfitPct.StringFixed(2) + "%", Inline: true},
			{Name: "Spread", Value: opp.PriceDiffPct.StringFixed(2) + "%", Inline: true},
			{Name: "Buy price", Value: opp.BuyPrice.String(), Inline: true},
			{Name: "Sell price", Value: opp.SellPrice.String(), Inline: true},
			{Name: "Max volume", Value: opp.MaxProfitableVolume.String(), Inline: true},
		},
	}
	return d.post(ctx, DiscordWebhookPayload{Username: d.username, Embeds: []DiscordEmbed{embed}})
}

// SendSystemAlert posts an operational notice, colored by severity.
func (d *DiscordProvider) SendSystemAlert(ctx context.Context, alert domain.SystemAlert) error {
	color := colorInfo
	switch alert.Severity {
	case domain.SeverityWarning:
		color = colorWarn
	case domain.SeverityError:
		color = colorError
	}

	embed := DiscordEmbed{
		Title:     fmt.Sprintf("[%s] %s", alert.Severity, alert.Source),
		Color:     color,
		Timestamp: alert.Timestamp.Format(time.RFC3339),
		Fields: []DiscordEmbedField{
			{Name: "Message", Value: alert.Message, Inline: false},
		},
	}
	return d.post(ctx, DiscordWebhookPayload{Username: d.username, Embeds: []DiscordEmbed{embed}})
}

func (d *DiscordProvider) post(ctx context.Context, payload DiscordWebhookPayload) error {
	if !d.useEmbeds {
		payload.Content = flattenToContent(payload)
		payload.Embeds = nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func flattenToContent(payload DiscordWebhookPayload) string {
	if len(payload.Embeds) == 0 {
		return payload.Content
	}
	content := payload.Embeds[0].Title
	for _, f := range payload.Embeds[0].Fields {
		content += fmt.Sprintf("\n%s: %s", f.Name, f.Value)
	}
	return content
}
