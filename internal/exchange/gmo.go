package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// GMOAdapter talks to GMO Coin's public REST API. Quotes are native JPY.
type GMOAdapter struct {
	BaseAdapter
	baseURL   string
	pairs     []string
	apiKey    string
	apiSecret string
	client    *http.Client
	guard     *Guard
	log       zerolog.Logger
}

func NewGMOAdapter(baseURL string, pairs []string, log zerolog.Logger) *GMOAdapter {
	apiKey := os.Getenv("GMO_API_KEY")
	apiSecret := os.Getenv("GMO_API_SECRET")
	return &GMOAdapter{
		BaseAdapter: NewBaseAdapter("gmo", apiKey != "" && apiSecret != ""),
		baseURL:     baseURL,
		pairs:       pairs,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		client:      &http.Client{Timeout: 10 * time.Second},
		guard:       NewGuard("gmo", 10, 5),
		log:         log.With().Str("venue", "gmo").Logger(),
	}
}

type gmoTickerEnvelope struct {
	Data []gmoTicker `json:"data"`
}

type gmoTicker struct {
	Symbol    string `json:"symbol"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Last      string `json:"last"`
	Volume    string `json:"volume"`
	Timestamp string `json:"timestamp"`
}

// Native converts canonical "BASE/QUOTE" to GMO's same-case "BASE_QUOTE".
func (a *GMOAdapter) Native(canonical string) string {
	return DenormalizeSlash(canonical, "_", false)
}

func (a *GMOAdapter) CollectAll(ctx context.Context) ([]domain.Quote, error) {
	quotes := make([]domain.Quote, 0, len(a.pairs))
	for _, pair := range a.pairs {
		q, err := a.fetchTicker(ctx, pair)
		if err != nil {
			a.log.Warn().Err(err).Str("pair", pair).Msg("ticker fetch failed, skipping this cycle")
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (a *GMOAdapter) fetchTicker(ctx context.Context, pair string) (domain.Quote, error) {
	symbol := a.Native(pair)
	u := fmt.Sprintf("%s/v1/ticker?symbol=%s", a.baseURL, url.QueryEscape(symbol))

	resp, err := a.guard.Do(ctx, a.baseURL, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return a.client.Do(req)
	})
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	var env gmoTickerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: decode gmo ticker: %v", domain.ErrMalformedQuote, err)
	}
	if len(env.Data) == 0 {
		return domain.Quote{}, fmt.Errorf("%w: empty gmo ticker array for %s", domain.ErrMalformedQuote, symbol)
	}
	t := env.Data[0]

	bid, _ := decimal.NewFromString(t.Bid)
	ask, _ := decimal.NewFromString(t.Ask)
	last, _ := decimal.NewFromString(t.Last)
	vol, _ := decimal.NewFromString(t.Volume)

	ts, err := time.Parse(time.RFC3339, t.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	q := domain.Quote{
		Exchange:    "gmo",
		Pair:        pair,
		Bid:         bid,
		Ask:         ask,
		BidSize:     decimal.Zero,
		AskSize:     decimal.Zero,
		Last:        last,
		Volume24h:   vol,
		Timestamp:   ts,
		IsNativeJPY: true,
	}

	if err := ValidateQuote(q, time.Now(), 60*time.Second); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// signRequest builds GMO's private-endpoint signature: HMAC-SHA256 over
// timestamp(ms)+method+path+body.
func (a *GMOAdapter) signRequest(method, path, body string) (timestamp, signature string) {
	timestamp = NonceMillis()
	signature = SignHMACSHA256(a.apiSecret, timestamp+method+path+body)
	return timestamp, signature
}
