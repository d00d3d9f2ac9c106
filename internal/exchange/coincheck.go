package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CoincheckAdapter talks to Coincheck's public REST API. Coincheck's
// /ticker endpoint returns only last/volume/timestamp for the default
// market, not a real bid/ask — we use last for both sides, the same
// simplification the upstream collector made. Last carries the same trade
// price; nothing on the quote marks bid and ask as synthesized.
type CoincheckAdapter struct {
	BaseAdapter
	baseURL   string
	pairs     []string
	apiKey    string
	apiSecret string
	client    *http.Client
	guard     *Guard
	log       zerolog.Logger
}

func NewCoincheckAdapter(baseURL string, pairs []string, log zerolog.Logger) *CoincheckAdapter {
	apiKey := os.Getenv("COINCHECK_API_KEY")
	apiSecret := os.Getenv("COINCHECK_API_SECRET")
	return &CoincheckAdapter{
		BaseAdapter: NewBaseAdapter("coincheck", apiKey != "" && apiSecret != ""),
		baseURL:     baseURL,
		pairs:       pairs,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		client:      &http.Client{Timeout: 10 * time.Second},
		guard:       NewGuard("coincheck", 10, 5),
		log:         log.With().Str("venue", "coincheck").Logger(),
	}
}

// Coincheck's ticker endpoint encodes last/volume as bare JSON numbers;
// json.Number preserves the literal digits so the decimal conversion below
// never passes through a float64 intermediate.
type coincheckTicker struct {
	Last      json.Number `json:"last"`
	Volume    json.Number `json:"volume"`
	Timestamp int64       `json:"timestamp"`
}

// Native converts canonical "BASE/QUOTE" to Coincheck's lower-case "base_quote".
func (a *CoincheckAdapter) Native(canonical string) string {
	return DenormalizeSlash(canonical, "_", true)
}

// CollectAll fetches the single /ticker payload once and replicates it
// across every configured pair, since Coincheck's public ticker only
// covers the default market regardless of query parameters.
func (a *CoincheckAdapter) CollectAll(ctx context.Context) ([]domain.Quote, error) {
	t, err := a.fetchTicker(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("ticker fetch failed, skipping this cycle")
		return nil, nil
	}

	last, _ := decimal.NewFromString(t.Last.String())
	vol, _ := decimal.NewFromString(t.Volume.String())

	quotes := make([]domain.Quote, 0, len(a.pairs))
	for _, pair := range a.pairs {
		q := domain.Quote{
			Exchange:    "coincheck",
			Pair:        pair,
			Bid:         last,
			Ask:         last,
			BidSize:     decimal.Zero,
			AskSize:     decimal.Zero,
			Last:        last,
			Volume24h:   vol,
			Timestamp:   time.Unix(t.Timestamp, 0).UTC(),
			IsNativeJPY: true,
		}
		if err := ValidateQuote(q, time.Now(), 60*time.Second); err != nil {
			a.log.Warn().Err(err).Str("pair", pair).Msg("quote failed validation, dropping")
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (a *CoincheckAdapter) fetchTicker(ctx context.Context) (coincheckTicker, error) {
	u := a.baseURL + "/ticker"

	resp, err := a.guard.Do(ctx, a.baseURL, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return a.client.Do(req)
	})
	if err != nil {
		return coincheckTicker{}, fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	var t coincheckTicker
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return coincheckTicker{}, fmt.Errorf("%w: decode coincheck ticker: %v", domain.ErrMalformedQuote, err)
	}
	return t, nil
}

// signRequest builds Coincheck's private-endpoint signature: HMAC-SHA256
// over nonce+url+body, nonce being a microsecond unix timestamp.
func (a *CoincheckAdapter) signRequest(requestURL, body string) (nonce, signature string) {
	nonce = fmt.Sprintf("%d", time.Now().UnixMicro())
	signature = SignHMACSHA256(a.apiSecret, nonce+requestURL+body)
	return nonce, signature
}
