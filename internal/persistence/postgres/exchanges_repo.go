package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/persistence"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type exchangesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewExchangesRepo builds a PostgreSQL-backed ExchangesRepo.
func NewExchangesRepo(db *sqlx.DB, timeout time.Duration) persistence.ExchangesRepo {
	return &exchangesRepo{db: db, timeout: timeout}
}

type exchangeRow struct {
	ID             int64           `db:"id"`
	Code           string          `db:"code"`
	DisplayName    string          `db:"display_name"`
	MakerFee       decimal.Decimal `db:"maker_fee"`
	TakerFee       decimal.Decimal `db:"taker_fee"`
	WithdrawalFees []byte          `db:"withdrawal_fees"`
	Active         bool            `db:"active"`
	CreatedAt      time.Time       `db:"created_at"`
}

func (r *exchangesRepo) Upsert(ctx context.Context, ex domain.Exchange) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	feesJSON, err := json.Marshal(ex.WithdrawalFees)
	if err != nil {
		return fmt.Errorf("failed to marshal withdrawal fees: %w", err)
	}

	query := `
		INSERT INTO exchanges (code, display_name, maker_fee, taker_fee, withdrawal_fees, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			maker_fee = EXCLUDED.maker_fee,
			taker_fee = EXCLUDED.taker_fee,
			withdrawal_fees = EXCLUDED.withdrawal_fees,
			active = EXCLUDED.active`

	_, err = r.db.ExecContext(ctx, query, ex.Code, ex.DisplayName, ex.MakerFee, ex.TakerFee, feesJSON, ex.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange %s: %w", ex.Code, err)
	}
	return nil
}

func (r *exchangesRepo) Get(ctx context.Context, code string) (*domain.Exchange, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row exchangeRow
	query := `SELECT id, code, display_name, maker_fee, taker_fee, withdrawal_fees, active, created_at
		FROM exchanges WHERE code = $1`
	if err := r.db.GetContext(ctx, &row, query, code); err != nil {
		return nil, fmt.Errorf("failed to get exchange %s: %w", code, err)
	}
	ex, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

func (r *exchangesRepo) ListActive(ctx context.Context) ([]domain.Exchange, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []exchangeRow
	query := `SELECT id, code, display_name, maker_fee, taker_fee, withdrawal_fees, active, created_at
		FROM exchanges WHERE active = true ORDER BY code`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list active exchanges: %w", err)
	}

	exchanges := make([]domain.Exchange, 0, len(rows))
	for _, row := range rows {
		ex, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, nil
}

func (row exchangeRow) toDomain() (domain.Exchange, error) {
	fees := make(map[string]decimal.Decimal)
	if len(row.WithdrawalFees) > 0 {
		if err := json.Unmarshal(row.WithdrawalFees, &fees); err != nil {
			return domain.Exchange{}, fmt.Errorf("failed to unmarshal withdrawal fees: %w", err)
		}
	}
	return domain.Exchange{
		ID:             row.ID,
		Code:           row.Code,
		DisplayName:    row.DisplayName,
		MakerFee:       row.MakerFee,
		TakerFee:       row.TakerFee,
		WithdrawalFees: fees,
		Active:         row.Active,
		CreatedAt:      row.CreatedAt,
	}, nil
}
