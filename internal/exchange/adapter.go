// Package exchange hosts the per-venue Adapter implementations and the
// shared guard (rate limiting + circuit breaking) and HMAC plumbing they all
// build on.
package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/shopspring/decimal"
)

// Capability is one operation an Adapter may or may not support.
type Capability string

const (
	CapGetTicker    Capability = "get_ticker"
	CapGetOrderbook Capability = "get_orderbook"
	CapGetBalance   Capability = "get_balance"
	CapPlaceOrder   Capability = "place_order"
	CapCancelOrder  Capability = "cancel_order"
	CapListOrders   Capability = "list_orders"
)

// Adapter normalizes one venue's REST API into canonical records. Only
// get_ticker and get_orderbook are required for the monitoring core; unless
// a concrete adapter overrides them, the private-op methods return
// CredentialsMissing when the venue has no credentials and
// UnsupportedOperation otherwise.
type Adapter interface {
	Code() string
	Supports(cap Capability) bool

	// CollectAll fetches the canonical tick for every configured pair. A
	// per-venue HTTP failure yields a logged, empty batch rather than an
	// error — one missed cycle, not a process fault.
	CollectAll(ctx context.Context) ([]domain.Quote, error)

	GetBalance(ctx context.Context, asset string) (*domain.Balance, error)
	PlaceOrder(ctx context.Context) error
	CancelOrder(ctx context.Context, orderID string) error
	ListOrders(ctx context.Context) error
}

// BaseAdapter implements the private-op stubs shared by every venue so
// concrete adapters only need to embed it and implement CollectAll.
type BaseAdapter struct {
	code           string
	capabilities   map[Capability]bool
	hasCredentials bool
}

// NewBaseAdapter builds a BaseAdapter with the monitoring-core capability
// set; callers pass additional capabilities if the venue's credentials
// allow private operations. hasCredentials records whether the venue's
// API key and secret were both read from the environment, so private-op
// calls can distinguish "never implemented" from "can't authenticate".
func NewBaseAdapter(code string, hasCredentials bool, caps ...Capability) BaseAdapter {
	set := map[Capability]bool{
		CapGetTicker:    true,
		CapGetOrderbook: true,
	}
	for _, c := range caps {
		set[c] = true
	}
	return BaseAdapter{code: code, capabilities: set, hasCredentials: hasCredentials}
}

func (b BaseAdapter) Code() string { return b.code }

func (b BaseAdapter) Supports(cap Capability) bool { return b.capabilities[cap] }

func (b BaseAdapter) GetBalance(ctx context.Context, asset string) (*domain.Balance, error) {
	if !b.hasCredentials {
		return nil, credentialsMissing(b.code)
	}
	return nil, unsupported(b.code, CapGetBalance)
}

func (b BaseAdapter) PlaceOrder(ctx context.Context) error {
	if !b.hasCredentials {
		return credentialsMissing(b.code)
	}
	return unsupported(b.code, CapPlaceOrder)
}

func (b BaseAdapter) CancelOrder(ctx context.Context, orderID string) error {
	if !b.hasCredentials {
		return credentialsMissing(b.code)
	}
	return unsupported(b.code, CapCancelOrder)
}

func (b BaseAdapter) ListOrders(ctx context.Context) error {
	if !b.hasCredentials {
		return credentialsMissing(b.code)
	}
	return unsupported(b.code, CapListOrders)
}

func unsupported(venue string, cap Capability) error {
	return &unsupportedOpError{venue: venue, cap: cap}
}

// credentialsMissing is returned by every private op when the venue's API
// key/secret weren't found in the environment at adapter construction time;
// public endpoints (CollectAll) are unaffected.
func credentialsMissing(venue string) error {
	return fmt.Errorf("%w: %s credentials not configured", domain.ErrCredentialsMissing, venue)
}

type unsupportedOpError struct {
	venue string
	cap   Capability
}

func (e *unsupportedOpError) Error() string {
	return string(e.cap) + " not supported by " + e.venue
}

func (e *unsupportedOpError) Unwrap() error { return domain.ErrUnsupportedOp }

// NormalizeSlash converts a venue-native symbol using sep as the base/quote
// separator into the canonical "BASE/QUOTE" form, upper-cased.
func NormalizeSlash(native, sep string) string {
	parts := strings.SplitN(strings.ToUpper(native), sep, 2)
	if len(parts) != 2 {
		return strings.ToUpper(native)
	}
	return parts[0] + "/" + parts[1]
}

// DenormalizeSlash converts a canonical "BASE/QUOTE" symbol to a venue-native
// form joined by sep, optionally lower-cased.
func DenormalizeSlash(canonical, sep string, lower bool) string {
	native := strings.ReplaceAll(canonical, "/", sep)
	if lower {
		return strings.ToLower(native)
	}
	return native
}

// ValidateQuote enforces the Store's admission rule: ask >= bid, bid > 0,
// timestamp not absurdly in the future. Returns MalformedQuote when
// violated so the caller drops the record rather than persisting it.
func ValidateQuote(q domain.Quote, now time.Time, clockSkew time.Duration) error {
	if !q.Valid(now, clockSkew) {
		return domain.ErrMalformedQuote
	}
	return nil
}

// ConvertToJPY multiplies a USDT-denominated bid/ask by the supplied FX rate
// and attaches the original values as metadata, per the canonical currency
// conversion contract.
func ConvertToJPY(q domain.Quote, fxRate decimal.Decimal) domain.Quote {
	original := q
	q.OriginalBid = &original.Bid
	q.OriginalAsk = &original.Ask
	q.FXRate = &fxRate
	q.Bid = q.Bid.Mul(fxRate)
	q.Ask = q.Ask.Mul(fxRate)
	q.Last = q.Last.Mul(fxRate)
	q.IsNativeJPY = false
	return q
}
