package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/persistence"
	"github.com/jmoiron/sqlx"
)

type balancesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewBalancesRepo builds a PostgreSQL-backed BalancesRepo. Balances are
// optional — monitoring-mode deployments may never call this.
func NewBalancesRepo(db *sqlx.DB, timeout time.Duration) persistence.BalancesRepo {
	return &balancesRepo{db: db, timeout: timeout}
}

func (r *balancesRepo) Upsert(ctx context.Context, b domain.Balance) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO balances (exchange, asset, available, locked, ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (exchange, asset) DO UPDATE SET
			available = EXCLUDED.available,
			locked = EXCLUDED.locked,
			ts = EXCLUDED.ts`

	_, err := r.db.ExecContext(ctx, query, b.Exchange, b.Asset, b.Available, b.Locked, b.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: upsert balance %s/%s: %v", domain.ErrStoreUnavailable, b.Exchange, b.Asset, err)
	}
	return nil
}

func (r *balancesRepo) Get(ctx context.Context, exchange, asset string) (*domain.Balance, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var b domain.Balance
	query := `SELECT exchange, asset, available, locked, ts AS timestamp FROM balances WHERE exchange = $1 AND asset = $2`
	if err := r.db.GetContext(ctx, &b, query, exchange, asset); err != nil {
		return nil, fmt.Errorf("%w: get balance %s/%s: %v", domain.ErrStoreUnavailable, exchange, asset, err)
	}
	return &b, nil
}
