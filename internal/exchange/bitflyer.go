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

// BitflyerAdapter talks to bitFlyer's Lightning REST API. Native quote
// currency is JPY, so ticks pass through without FX conversion.
type BitflyerAdapter struct {
	BaseAdapter
	baseURL   string
	pairs     []string
	apiKey    string
	apiSecret string
	client    *http.Client
	guard     *Guard
	log       zerolog.Logger
}

// NewBitflyerAdapter builds the adapter. Credentials are read from the
// environment; their absence only matters for private calls.
func NewBitflyerAdapter(baseURL string, pairs []string, log zerolog.Logger) *BitflyerAdapter {
	apiKey := os.Getenv("BITFLYER_API_KEY")
	apiSecret := os.Getenv("BITFLYER_API_SECRET")
	return &BitflyerAdapter{
		BaseAdapter: NewBaseAdapter("bitflyer", apiKey != "" && apiSecret != ""),
		baseURL:     baseURL,
		pairs:       pairs,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		client:      &http.Client{Timeout: 10 * time.Second},
		guard:       NewGuard("bitflyer", 10, 5),
		log:         log.With().Str("venue", "bitflyer").Logger(),
	}
}

// bitFlyer's ticker endpoint encodes these as bare JSON numbers, not quoted
// strings; json.Number preserves the literal digits so the decimal
// conversion below never passes through a float64 intermediate.
type bitflyerTicker struct {
	ProductCode string      `json:"product_code"`
	Timestamp   string      `json:"timestamp"`
	BestBid     json.Number `json:"best_bid"`
	BestAsk     json.Number `json:"best_ask"`
	BestBidSize json.Number `json:"best_bid_size"`
	BestAskSize json.Number `json:"best_ask_size"`
	LTP         json.Number `json:"ltp"`
	Volume      json.Number `json:"volume"`
}

// Native converts canonical "BASE/QUOTE" to bitFlyer's "BASE_QUOTE" form.
func (a *BitflyerAdapter) Native(canonical string) string {
	return DenormalizeSlash(canonical, "_", false)
}

func (a *BitflyerAdapter) CollectAll(ctx context.Context) ([]domain.Quote, error) {
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

func (a *BitflyerAdapter) fetchTicker(ctx context.Context, pair string) (domain.Quote, error) {
	productCode := a.Native(pair)
	u := fmt.Sprintf("%s/v1/ticker?product_code=%s", a.baseURL, url.QueryEscape(productCode))

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

	var t bitflyerTicker
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: decode bitflyer ticker: %v", domain.ErrMalformedQuote, err)
	}

	ts, err := time.Parse(time.RFC3339, t.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	bid, _ := decimal.NewFromString(t.BestBid.String())
	ask, _ := decimal.NewFromString(t.BestAsk.String())
	bidSize, _ := decimal.NewFromString(t.BestBidSize.String())
	askSize, _ := decimal.NewFromString(t.BestAskSize.String())
	last, _ := decimal.NewFromString(t.LTP.String())
	vol, _ := decimal.NewFromString(t.Volume.String())

	q := domain.Quote{
		Exchange:    "bitflyer",
		Pair:        pair,
		Bid:         bid,
		Ask:         ask,
		BidSize:     bidSize,
		AskSize:     askSize,
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
