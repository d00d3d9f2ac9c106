package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BinanceAdapter talks to Binance's spot REST API. Pairs are split three
// ways on session start: native-JPY pairs collect directly, USDT pairs
// need FX conversion before cross-venue comparison, and the USDTJPY pair,
// when the venue lists it, is collected as one more native-JPY quote.
type BinanceAdapter struct {
	BaseAdapter
	baseURL    string
	configured []string // canonical pairs requested in configuration
	apiKey     string
	apiSecret  string
	client     *http.Client
	guard      *Guard
	log        zerolog.Logger

	mu         sync.RWMutex
	jpyPairs   []string
	usdtPairs  []string
	crossPairs []string // e.g. "USDT/JPY"
	discovered bool
}

func NewBinanceAdapter(pairs []string, log zerolog.Logger) *BinanceAdapter {
	base := "https://api.binance.com"
	if os.Getenv("BINANCE_TESTNET") == "true" {
		base = "https://testnet.binance.vision"
	}
	apiKey := os.Getenv("BINANCE_API_KEY")
	apiSecret := os.Getenv("BINANCE_API_SECRET")
	return &BinanceAdapter{
		BaseAdapter: NewBaseAdapter("binance", apiKey != "" && apiSecret != ""),
		baseURL:     base,
		configured:  pairs,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		client:      &http.Client{Timeout: 10 * time.Second},
		guard:       NewGuard("binance", 20, 10),
		log:         log.With().Str("venue", "binance").Logger(),
	}
}

type binanceSymbol struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
	Status     string `json:"status"`
}

type binanceExchangeInfo struct {
	Symbols []binanceSymbol `json:"symbols"`
}

type binanceTicker struct {
	Symbol    string `json:"symbol"`
	BidPrice  string `json:"bidPrice"`
	BidQty    string `json:"bidQty"`
	AskPrice  string `json:"askPrice"`
	AskQty    string `json:"askQty"`
	LastPrice string `json:"lastPrice"`
	Volume    string `json:"volume"`
	CloseTime int64  `json:"closeTime"`
}

// Native converts canonical "BASE/QUOTE" to Binance's concatenated form.
func (a *BinanceAdapter) Native(canonical string) string {
	return strings.ReplaceAll(strings.ToUpper(canonical), "/", "")
}

// DiscoverPairs fetches exchangeInfo once per session and partitions the
// configured pairs into native-JPY, USDT-quoted, and FX-cross buckets,
// dropping any configured pair absent from the venue's active symbol list.
func (a *BinanceAdapter) DiscoverPairs(ctx context.Context) error {
	u := a.baseURL + "/api/v3/exchangeInfo"
	resp, err := a.guard.Do(ctx, a.baseURL, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return a.client.Do(req)
	})
	if err != nil {
		return fmt.Errorf("%w: binance exchangeInfo: %v", domain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	var info binanceExchangeInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("%w: decode binance exchangeInfo: %v", domain.ErrMalformedQuote, err)
	}

	active := make(map[string]bool, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status == "TRADING" {
			active[s.Symbol] = true
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.jpyPairs = nil
	a.usdtPairs = nil
	a.crossPairs = nil

	for _, pair := range a.configured {
		sym := a.Native(pair)
		if !active[sym] {
			a.log.Warn().Str("pair", pair).Msg("configured pair not found on venue, dropping")
			continue
		}
		switch {
		case strings.HasSuffix(pair, "/JPY"):
			a.jpyPairs = append(a.jpyPairs, pair)
		case strings.HasSuffix(pair, "/USDT"):
			a.usdtPairs = append(a.usdtPairs, pair)
		}
	}
	if active["USDTJPY"] {
		a.crossPairs = append(a.crossPairs, "USDT/JPY")
	}
	a.discovered = true
	return nil
}

func (a *BinanceAdapter) allPairs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	all := make([]string, 0, len(a.jpyPairs)+len(a.usdtPairs)+len(a.crossPairs))
	all = append(all, a.jpyPairs...)
	all = append(all, a.usdtPairs...)
	all = append(all, a.crossPairs...)
	return all
}

func (a *BinanceAdapter) isNativeJPY(pair string) bool {
	return strings.HasSuffix(pair, "/JPY")
}

func (a *BinanceAdapter) CollectAll(ctx context.Context) ([]domain.Quote, error) {
	a.mu.RLock()
	discovered := a.discovered
	a.mu.RUnlock()
	if !discovered {
		if err := a.DiscoverPairs(ctx); err != nil {
			a.log.Warn().Err(err).Msg("pair discovery failed, skipping this cycle")
			return nil, nil
		}
	}

	pairs := a.allPairs()
	quotes := make([]domain.Quote, 0, len(pairs))
	for _, pair := range pairs {
		q, err := a.fetchTicker(ctx, pair)
		if err != nil {
			a.log.Warn().Err(err).Str("pair", pair).Msg("ticker fetch failed, skipping this cycle")
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (a *BinanceAdapter) fetchTicker(ctx context.Context, pair string) (domain.Quote, error) {
	symbol := a.Native(pair)
	u := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", a.baseURL, url.QueryEscape(symbol))

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

	var t binanceTicker
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: decode binance ticker: %v", domain.ErrMalformedQuote, err)
	}

	bid, _ := decimal.NewFromString(t.BidPrice)
	ask, _ := decimal.NewFromString(t.AskPrice)
	bidSize, _ := decimal.NewFromString(t.BidQty)
	askSize, _ := decimal.NewFromString(t.AskQty)
	last, _ := decimal.NewFromString(t.LastPrice)
	vol, _ := decimal.NewFromString(t.Volume)

	q := domain.Quote{
		Exchange:    "binance",
		Pair:        pair,
		Bid:         bid,
		Ask:         ask,
		BidSize:     bidSize,
		AskSize:     askSize,
		Last:        last,
		Volume24h:   vol,
		Timestamp:   time.UnixMilli(t.CloseTime).UTC(),
		IsNativeJPY: a.isNativeJPY(pair),
	}

	if err := ValidateQuote(q, time.Now(), 60*time.Second); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// signRequest builds Binance's signature: HMAC-SHA256 over the URL-encoded
// query string (params already assembled by the caller, including timestamp
// and recvWindow).
func (a *BinanceAdapter) signRequest(queryString string) string {
	return SignHMACSHA256(a.apiSecret, queryString)
}
