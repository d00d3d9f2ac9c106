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

// BitbankAdapter talks to bitbank's public REST API. Quotes are native JPY.
type BitbankAdapter struct {
	BaseAdapter
	baseURL   string
	pairs     []string
	apiKey    string
	apiSecret string
	client    *http.Client
	guard     *Guard
	log       zerolog.Logger
}

func NewBitbankAdapter(baseURL string, pairs []string, log zerolog.Logger) *BitbankAdapter {
	apiKey := os.Getenv("BITBANK_API_KEY")
	apiSecret := os.Getenv("BITBANK_API_SECRET")
	return &BitbankAdapter{
		BaseAdapter: NewBaseAdapter("bitbank", apiKey != "" && apiSecret != ""),
		baseURL:     baseURL,
		pairs:       pairs,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		client:      &http.Client{Timeout: 10 * time.Second},
		guard:       NewGuard("bitbank", 10, 5),
		log:         log.With().Str("venue", "bitbank").Logger(),
	}
}

type bitbankTickerEnvelope struct {
	Data bitbankTicker `json:"data"`
}

type bitbankTicker struct {
	Buy       string `json:"buy"`
	Sell      string `json:"sell"`
	Last      string `json:"last"`
	Vol       string `json:"vol"`
	Timestamp int64  `json:"timestamp"`
}

// Native converts canonical "BASE/QUOTE" to bitbank's lower-case "base_quote".
func (a *BitbankAdapter) Native(canonical string) string {
	return DenormalizeSlash(canonical, "_", true)
}

func (a *BitbankAdapter) CollectAll(ctx context.Context) ([]domain.Quote, error) {
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

func (a *BitbankAdapter) fetchTicker(ctx context.Context, pair string) (domain.Quote, error) {
	u := fmt.Sprintf("%s/%s/ticker", a.baseURL, a.Native(pair))

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

	var env bitbankTickerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: decode bitbank ticker: %v", domain.ErrMalformedQuote, err)
	}

	bid, _ := decimal.NewFromString(env.Data.Buy)
	ask, _ := decimal.NewFromString(env.Data.Sell)
	last, _ := decimal.NewFromString(env.Data.Last)
	vol, _ := decimal.NewFromString(env.Data.Vol)

	q := domain.Quote{
		Exchange:    "bitbank",
		Pair:        pair,
		Bid:         bid,
		Ask:         ask,
		BidSize:     decimal.Zero,
		AskSize:     decimal.Zero,
		Last:        last,
		Volume24h:   vol,
		Timestamp:   time.UnixMilli(env.Data.Timestamp).UTC(),
		IsNativeJPY: true,
	}

	if err := ValidateQuote(q, time.Now(), 60*time.Second); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// signRequest builds bitbank's private-endpoint signature: HMAC-SHA256 over
// nonce+message, where message is the request path (GET) or body (POST).
func (a *BitbankAdapter) signRequest(message string) (nonce, signature string) {
	nonce = NonceMillis()
	signature = SignHMACSHA256(a.apiSecret, nonce+message)
	return nonce, signature
}
