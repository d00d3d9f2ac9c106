package fx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name string
	rate decimal.Decimal
	err  error
	n    int
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	f.n++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.rate, nil
}

func TestService_SameCurrency(t *testing.T) {
	s := NewService(zerolog.Nop())
	rate, err := s.GetRate(context.Background(), "JPY", "JPY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestService_FirstSourceWins(t *testing.T) {
	good := &fakeSource{name: "primary", rate: decimal.NewFromFloat(150.5)}
	never := &fakeSource{name: "secondary", rate: decimal.NewFromFloat(999)}
	s := NewService(zerolog.Nop(), good, never)

	rate, err := s.GetRate(context.Background(), "USD", "JPY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(150.5)))
	assert.Equal(t, 1, good.n)
	assert.Equal(t, 0, never.n)
}

func TestService_FallsThroughToSecondSource(t *testing.T) {
	broken := &fakeSource{name: "primary", err: errors.New("down")}
	good := &fakeSource{name: "secondary", rate: decimal.NewFromFloat(151.2)}
	s := NewService(zerolog.Nop(), broken, good)

	rate, err := s.GetRate(context.Background(), "USD", "JPY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(151.2)))
}

func TestService_ServesStaleOnTotalFailure(t *testing.T) {
	flaky := &fakeSource{name: "primary", rate: decimal.NewFromFloat(149.0)}
	s := NewService(zerolog.Nop(), flaky)
	s.refreshInterval = 0 // force refresh on every call for this test

	rate, err := s.GetRate(context.Background(), "USD", "JPY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(149.0)))

	flaky.err = errors.New("down")
	rate, err = s.GetRate(context.Background(), "USD", "JPY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(149.0)), "must serve stale cached value on total failure")
}

func TestService_HardFallbackWhenNeverCached(t *testing.T) {
	broken := &fakeSource{name: "primary", err: errors.New("down")}
	s := NewService(zerolog.Nop(), broken)

	rate, err := s.GetRate(context.Background(), "USD", "JPY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(fallbackUSDJPY))
}

func TestService_ErrorWhenNeverCachedAndNotUSDJPY(t *testing.T) {
	broken := &fakeSource{name: "primary", err: errors.New("down")}
	s := NewService(zerolog.Nop(), broken)

	_, err := s.GetRate(context.Background(), "EUR", "JPY")
	assert.Error(t, err)
}

func TestService_R2_RoundTripTolerance(t *testing.T) {
	// FX.USDTtoJPY(FX.JPYtoUSDT(x)) == x within 1e-6 relative tolerance.
	rate := decimal.NewFromFloat(150.25)
	x := decimal.NewFromFloat(10000)

	usdt := x.Div(rate)
	jpy := usdt.Mul(rate)

	diff := jpy.Sub(x).Abs()
	tolerance := x.Mul(decimal.NewFromFloat(1e-6))
	assert.True(t, diff.LessThanOrEqual(tolerance), "round trip drifted by %s", diff.String())
}

func TestService_RefreshIntervalHonored(t *testing.T) {
	src := &fakeSource{name: "primary", rate: decimal.NewFromFloat(150)}
	s := NewService(zerolog.Nop(), src)
	s.refreshInterval = time.Hour

	_, err := s.GetRate(context.Background(), "USD", "JPY")
	require.NoError(t, err)
	_, err = s.GetRate(context.Background(), "USD", "JPY")
	require.NoError(t, err)

	assert.Equal(t, 1, src.n, "second call within refresh interval must not hit the source")
}
