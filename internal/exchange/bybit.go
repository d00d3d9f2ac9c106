package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BybitAdapter talks to Bybit's v5 spot market API. Quotes are USDT-quoted
// and must be converted to JPY by the caller before cross-venue comparison
// against native-JPY quotes; CollectAll returns the raw USDT quote and
// leaves conversion to the collection scheduler, which holds the FX rate.
type BybitAdapter struct {
	BaseAdapter
	baseURL   string
	pairs     []string // canonical "BTC/USDT" form
	apiKey    string
	apiSecret string
	client    *http.Client
	guard     *Guard
	log       zerolog.Logger
}

func NewBybitAdapter(pairs []string, log zerolog.Logger) *BybitAdapter {
	base := "https://api.bybit.com"
	if os.Getenv("BYBIT_TESTNET") == "true" {
		base = "https://api-testnet.bybit.com"
	}
	apiKey := os.Getenv("BYBIT_API_KEY")
	apiSecret := os.Getenv("BYBIT_API_SECRET")
	return &BybitAdapter{
		BaseAdapter: NewBaseAdapter("bybit", apiKey != "" && apiSecret != ""),
		baseURL:     base,
		pairs:       pairs,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		client:      &http.Client{Timeout: 10 * time.Second},
		guard:       NewGuard("bybit", 10, 5),
		log:         log.With().Str("venue", "bybit").Logger(),
	}
}

type bybitTickerEnvelope struct {
	Result struct {
		List []bybitTicker `json:"list"`
	} `json:"result"`
}

type bybitTicker struct {
	Symbol    string `json:"symbol"`
	Bid1Price string `json:"bid1Price"`
	Bid1Size  string `json:"bid1Size"`
	Ask1Price string `json:"ask1Price"`
	Ask1Size  string `json:"ask1Size"`
	LastPrice string `json:"lastPrice"`
	Volume24h string `json:"volume24h"`
}

// Native converts canonical "BTC/USDT" into Bybit's concatenated "BTCUSDT".
func (a *BybitAdapter) Native(canonical string) string {
	return strings.ReplaceAll(strings.ToUpper(canonical), "/", "")
}

func (a *BybitAdapter) CollectAll(ctx context.Context) ([]domain.Quote, error) {
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

func (a *BybitAdapter) fetchTicker(ctx context.Context, pair string) (domain.Quote, error) {
	symbol := a.Native(pair)
	u := fmt.Sprintf("%s/v5/market/tickers?category=spot&symbol=%s", a.baseURL, url.QueryEscape(symbol))

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

	var env bybitTickerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: decode bybit ticker: %v", domain.ErrMalformedQuote, err)
	}
	if len(env.Result.List) == 0 {
		return domain.Quote{}, fmt.Errorf("%w: empty bybit ticker list for %s", domain.ErrMalformedQuote, symbol)
	}
	t := env.Result.List[0]

	bid, _ := decimal.NewFromString(t.Bid1Price)
	ask, _ := decimal.NewFromString(t.Ask1Price)
	bidSize, _ := decimal.NewFromString(t.Bid1Size)
	askSize, _ := decimal.NewFromString(t.Ask1Size)
	last, _ := decimal.NewFromString(t.LastPrice)
	vol, _ := decimal.NewFromString(t.Volume24h)

	q := domain.Quote{
		Exchange:    "bybit",
		Pair:        pair,
		Bid:         bid,
		Ask:         ask,
		BidSize:     bidSize,
		AskSize:     askSize,
		Last:        last,
		Volume24h:   vol,
		Timestamp:   time.Now().UTC(),
		IsNativeJPY: false,
	}

	if err := ValidateQuote(q, time.Now(), 60*time.Second); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// signRequest builds Bybit's v5 signature: HMAC-SHA256 over
// timestamp+apiKey+recvWindow+queryString (or JSON body for POST), where
// params, if present, are sorted by key before concatenation.
func (a *BybitAdapter) signRequest(timestamp, recvWindow string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var qs strings.Builder
	for i, k := range keys {
		if i > 0 {
			qs.WriteByte('&')
		}
		qs.WriteString(k)
		qs.WriteByte('=')
		qs.WriteString(params[k])
	}

	message := timestamp + a.apiKey + recvWindow + qs.String()
	return SignHMACSHA256(a.apiSecret, message)
}
