package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/persistence"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuotesRepo struct {
	quotes []domain.Quote
}

func (f *fakeQuotesRepo) Insert(ctx context.Context, q domain.Quote) error           { return nil }
func (f *fakeQuotesRepo) InsertBatch(ctx context.Context, qs []domain.Quote) error   { return nil }
func (f *fakeQuotesRepo) LatestPerExchange(ctx context.Context, pair string, within time.Duration) ([]domain.Quote, error) {
	return f.quotes, nil
}

type fakeOppsRepo struct {
	opps      []domain.ArbitrageOpportunity
	lastRange persistence.TimeRange
}

func (f *fakeOppsRepo) Insert(ctx context.Context, o domain.ArbitrageOpportunity) error { return nil }
func (f *fakeOppsRepo) InsertBatch(ctx context.Context, os []domain.ArbitrageOpportunity) error {
	return nil
}
func (f *fakeOppsRepo) ListRecent(ctx context.Context, tr persistence.TimeRange, limit int) ([]domain.ArbitrageOpportunity, error) {
	f.lastRange = tr
	return f.opps, nil
}

func newTestServer() *Server {
	quotes := &fakeQuotesRepo{quotes: []domain.Quote{
		{Exchange: "bitflyer", Pair: "BTC/JPY", Bid: decimal.NewFromInt(10000000), Ask: decimal.NewFromInt(10010000)},
	}}
	opps := &fakeOppsRepo{opps: []domain.ArbitrageOpportunity{
		{Pair: "BTC/JPY", BuyExchange: "bitflyer", SellExchange: "binance"},
	}}
	return New(DefaultConfig(), quotes, opps, nil, zerolog.Nop())
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleQuotes_RequiresPair(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/quotes", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuotes_ReturnsLatestPerExchange(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/quotes?pair=BTC/JPY", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bitflyer")
}

func TestHandleOpportunities_DefaultsToLast24h(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/opportunities", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "binance")
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), s.opps.(*fakeOppsRepo).lastRange.From, time.Minute)
}

func TestNotFoundHandler(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
