// Package persistence defines the Store's repository contracts; concrete
// implementations live in the postgres subpackage.
package persistence

import (
	"context"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
)

// TimeRange bounds a query by inclusive timestamps.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// ExchangesRepo manages the seeded, rarely-mutated venue table.
type ExchangesRepo interface {
	Upsert(ctx context.Context, ex domain.Exchange) error
	Get(ctx context.Context, code string) (*domain.Exchange, error)
	ListActive(ctx context.Context) ([]domain.Exchange, error)
}

// PairsRepo manages the canonical currency pair table.
type PairsRepo interface {
	Upsert(ctx context.Context, p domain.CurrencyPair) error
	Get(ctx context.Context, symbol string) (*domain.CurrencyPair, error)
	ListActive(ctx context.Context) ([]domain.CurrencyPair, error)
}

// QuotesRepo is the append-only quote store and the detection hot path.
type QuotesRepo interface {
	Insert(ctx context.Context, q domain.Quote) error
	InsertBatch(ctx context.Context, qs []domain.Quote) error

	// LatestPerExchange returns one row per exchange holding that exchange's
	// most recent quote for pair whose timestamp is within `within` of now.
	// This is the critical O(exchanges) hot-path query named by the Store.
	LatestPerExchange(ctx context.Context, pair string, within time.Duration) ([]domain.Quote, error)
}

// OpportunitiesRepo persists detection results.
type OpportunitiesRepo interface {
	Insert(ctx context.Context, o domain.ArbitrageOpportunity) error
	InsertBatch(ctx context.Context, os []domain.ArbitrageOpportunity) error
	ListRecent(ctx context.Context, tr TimeRange, limit int) ([]domain.ArbitrageOpportunity, error)
}

// BalancesRepo persists optional per-venue balances.
type BalancesRepo interface {
	Upsert(ctx context.Context, b domain.Balance) error
	Get(ctx context.Context, exchange, asset string) (*domain.Balance, error)
}

// Repository aggregates every repo the system needs; components depend on
// this instead of the individual interfaces so the construction root has one
// object to wire.
type Repository struct {
	Exchanges     ExchangesRepo
	Pairs         PairsRepo
	Quotes        QuotesRepo
	Opportunities OpportunitiesRepo
	Balances      BalancesRepo
}
