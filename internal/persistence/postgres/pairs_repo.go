package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/persistence"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type pairsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPairsRepo builds a PostgreSQL-backed PairsRepo.
func NewPairsRepo(db *sqlx.DB, timeout time.Duration) persistence.PairsRepo {
	return &pairsRepo{db: db, timeout: timeout}
}

type pairRow struct {
	ID         int64            `db:"id"`
	Symbol     string           `db:"symbol"`
	BaseAsset  string           `db:"base_asset"`
	QuoteAsset string           `db:"quote_asset"`
	LotStep    *decimal.Decimal `db:"lot_step"`
	PriceStep  *decimal.Decimal `db:"price_step"`
	Active     bool             `db:"active"`
	CreatedAt  time.Time        `db:"created_at"`
}

func (r *pairsRepo) Upsert(ctx context.Context, p domain.CurrencyPair) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO currency_pairs (symbol, base_asset, quote_asset, lot_step, price_step, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol) DO UPDATE SET
			base_asset = EXCLUDED.base_asset,
			quote_asset = EXCLUDED.quote_asset,
			lot_step = EXCLUDED.lot_step,
			price_step = EXCLUDED.price_step,
			active = EXCLUDED.active`

	_, err := r.db.ExecContext(ctx, query, p.Symbol, p.BaseAsset, p.QuoteAsset, p.LotStep, p.PriceStep, p.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert pair %s: %w", p.Symbol, err)
	}
	return nil
}

func (r *pairsRepo) Get(ctx context.Context, symbol string) (*domain.CurrencyPair, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row pairRow
	query := `SELECT id, symbol, base_asset, quote_asset, lot_step, price_step, active, created_at
		FROM currency_pairs WHERE symbol = $1`
	if err := r.db.GetContext(ctx, &row, query, symbol); err != nil {
		return nil, fmt.Errorf("failed to get pair %s: %w", symbol, err)
	}
	p := row.toDomain()
	return &p, nil
}

func (r *pairsRepo) ListActive(ctx context.Context) ([]domain.CurrencyPair, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []pairRow
	query := `SELECT id, symbol, base_asset, quote_asset, lot_step, price_step, active, created_at
		FROM currency_pairs WHERE active = true ORDER BY symbol`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list active pairs: %w", err)
	}

	pairs := make([]domain.CurrencyPair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, row.toDomain())
	}
	return pairs, nil
}

func (row pairRow) toDomain() domain.CurrencyPair {
	return domain.CurrencyPair{
		ID:         row.ID,
		Symbol:     row.Symbol,
		BaseAsset:  row.BaseAsset,
		QuoteAsset: row.QuoteAsset,
		LotStep:    row.LotStep,
		PriceStep:  row.PriceStep,
		Active:     row.Active,
		CreatedAt:  row.CreatedAt,
	}
}
