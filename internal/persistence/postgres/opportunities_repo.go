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

type opportunitiesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewOpportunitiesRepo builds a PostgreSQL-backed OpportunitiesRepo.
func NewOpportunitiesRepo(db *sqlx.DB, timeout time.Duration) persistence.OpportunitiesRepo {
	return &opportunitiesRepo{db: db, timeout: timeout}
}

type opportunityRow struct {
	ID                  int64           `db:"id"`
	Timestamp           time.Time       `db:"ts"`
	Kind                string          `db:"kind"`
	Pair                string          `db:"pair"`
	BuyExchange         string          `db:"buy_exchange"`
	SellExchange        string          `db:"sell_exchange"`
	BuyPrice            decimal.Decimal `db:"buy_price"`
	SellPrice           decimal.Decimal `db:"sell_price"`
	PriceDiffPct        decimal.Decimal `db:"price_diff_pct"`
	EstimatedProfitPct  decimal.Decimal `db:"estimated_profit_pct"`
	MaxProfitableVolume decimal.Decimal `db:"max_profitable_volume"`
	BuyFees             decimal.Decimal `db:"buy_fees"`
	SellFees            decimal.Decimal `db:"sell_fees"`
	TransferFee         decimal.Decimal `db:"transfer_fee"`
	TotalFeesPct        decimal.Decimal `db:"total_fees_pct"`
	Status              string          `db:"status"`
	SkipReason          string          `db:"skip_reason"`
	ExecutionDetails    []byte          `db:"execution_details"`
	CreatedAt           time.Time       `db:"created_at"`
}

func (r *opportunitiesRepo) Insert(ctx context.Context, o domain.ArbitrageOpportunity) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO opportunities (ts, kind, pair, buy_exchange, sell_exchange, buy_price, sell_price,
			price_diff_pct, estimated_profit_pct, max_profitable_volume,
			buy_fees, sell_fees, transfer_fee, total_fees_pct, status, skip_reason, execution_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.ExecContext(ctx, query,
		o.Timestamp, string(o.Kind), o.Pair, o.BuyExchange, o.SellExchange, o.BuyPrice, o.SellPrice,
		o.PriceDiffPct, o.EstimatedProfitPct, o.MaxProfitableVolume,
		o.Fees.BuyFees, o.Fees.SellFees, o.Fees.TransferFee, o.Fees.TotalFeesPct,
		string(o.Status), o.SkipReason, []byte(o.ExecutionDetails))
	if err != nil {
		return fmt.Errorf("%w: insert opportunity %s %s->%s: %v",
			domain.ErrStoreUnavailable, o.Pair, o.BuyExchange, o.SellExchange, err)
	}
	return nil
}

// InsertBatch persists a detection cycle's sorted candidate list atomically.
func (r *opportunitiesRepo) InsertBatch(ctx context.Context, ops []domain.ArbitrageOpportunity) error {
	if len(ops) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(ops)/100+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin opportunity batch: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO opportunities (ts, kind, pair, buy_exchange, sell_exchange, buy_price, sell_price,
			price_diff_pct, estimated_profit_pct, max_profitable_volume,
			buy_fees, sell_fees, transfer_fee, total_fees_pct, status, skip_reason, execution_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`)
	if err != nil {
		return fmt.Errorf("%w: prepare opportunity batch: %v", domain.ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	for _, o := range ops {
		_, err := stmt.ExecContext(ctx,
			o.Timestamp, string(o.Kind), o.Pair, o.BuyExchange, o.SellExchange, o.BuyPrice, o.SellPrice,
			o.PriceDiffPct, o.EstimatedProfitPct, o.MaxProfitableVolume,
			o.Fees.BuyFees, o.Fees.SellFees, o.Fees.TransferFee, o.Fees.TotalFeesPct,
			string(o.Status), o.SkipReason, []byte(o.ExecutionDetails))
		if err != nil {
			return fmt.Errorf("%w: batch insert opportunity: %v", domain.ErrStoreUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit opportunity batch: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *opportunitiesRepo) ListRecent(ctx context.Context, tr persistence.TimeRange, limit int) ([]domain.ArbitrageOpportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, ts, kind, pair, buy_exchange, sell_exchange, buy_price, sell_price,
			price_diff_pct, estimated_profit_pct, max_profitable_volume,
			buy_fees, sell_fees, transfer_fee, total_fees_pct, status, skip_reason, execution_details, created_at
		FROM opportunities
		WHERE ts >= $1 AND ts <= $2
		ORDER BY ts DESC
		LIMIT $3`

	var rows []opportunityRow
	if err := r.db.SelectContext(ctx, &rows, query, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("%w: list recent opportunities: %v", domain.ErrStoreUnavailable, err)
	}

	out := make([]domain.ArbitrageOpportunity, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (row opportunityRow) toDomain() domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID:            row.ID,
		Timestamp:     row.Timestamp,
		Kind:          domain.OpportunityKind(row.Kind),
		Pair:          row.Pair,
		BuyExchange:   row.BuyExchange,
		SellExchange:  row.SellExchange,
		BuyPrice:      row.BuyPrice,
		SellPrice:     row.SellPrice,
		PriceDiffPct:  row.PriceDiffPct,
		EstimatedProfitPct:  row.EstimatedProfitPct,
		MaxProfitableVolume: row.MaxProfitableVolume,
		Fees: domain.FeeBreakdown{
			BuyFees:      row.BuyFees,
			SellFees:     row.SellFees,
			TransferFee:  row.TransferFee,
			TotalFeesPct: row.TotalFeesPct,
		},
		Status:           domain.OpportunityStatus(row.Status),
		SkipReason:       row.SkipReason,
		ExecutionDetails: row.ExecutionDetails,
		CreatedAt:        row.CreatedAt,
	}
}
