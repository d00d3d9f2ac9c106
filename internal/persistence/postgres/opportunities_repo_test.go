package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/cryptoedge/arbmon/internal/persistence"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockOpportunitiesRepo(t *testing.T) (*opportunitiesRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := sqlx.NewDb(sqlDB, "postgres")
	repo := &opportunitiesRepo{db: db, timeout: time.Second}
	return repo, mock, func() { sqlDB.Close() }
}

func sampleOpportunity() domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		Timestamp:           time.Now(),
		Kind:                domain.KindDirect,
		Pair:                "BTC/JPY",
		BuyExchange:         "bitflyer",
		SellExchange:        "bitbank",
		BuyPrice:            decimal.NewFromInt(10000000),
		SellPrice:           decimal.NewFromInt(10050000),
		PriceDiffPct:        decimal.NewFromFloat(0.5),
		EstimatedProfitPct:  decimal.NewFromFloat(0.3),
		MaxProfitableVolume: decimal.NewFromFloat(1.0),
		Fees: domain.FeeBreakdown{
			BuyFees:      decimal.NewFromInt(10000),
			SellFees:     decimal.NewFromInt(10050),
			TransferFee:  decimal.Zero,
			TotalFeesPct: decimal.NewFromFloat(0.2),
		},
		Status: domain.StatusDetected,
	}
}

func TestOpportunitiesRepo_Insert(t *testing.T) {
	repo, mock, closeFn := newMockOpportunitiesRepo(t)
	defer closeFn()

	mock.ExpectExec("INSERT INTO opportunities").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), sampleOpportunity())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpportunitiesRepo_InsertBatch(t *testing.T) {
	repo, mock, closeFn := newMockOpportunitiesRepo(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO opportunities")
	mock.ExpectExec("INSERT INTO opportunities").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO opportunities").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	ops := []domain.ArbitrageOpportunity{sampleOpportunity(), sampleOpportunity()}
	err := repo.InsertBatch(context.Background(), ops)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpportunitiesRepo_ListRecent(t *testing.T) {
	repo, mock, closeFn := newMockOpportunitiesRepo(t)
	defer closeFn()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "ts", "kind", "pair", "buy_exchange", "sell_exchange", "buy_price", "sell_price",
		"price_diff_pct", "estimated_profit_pct", "max_profitable_volume",
		"buy_fees", "sell_fees", "transfer_fee", "total_fees_pct", "status", "skip_reason",
		"execution_details", "created_at",
	}).AddRow(1, now, "direct", "BTC/JPY", "bitflyer", "bitbank", "10000000", "10050000",
		"0.5", "0.3", "1.0", "10000", "10050", "0", "0.2", "detected", "", nil, now)

	mock.ExpectQuery("SELECT id, ts, kind").WillReturnRows(rows)

	result, err := repo.ListRecent(context.Background(), persistence.TimeRange{From: now.Add(-time.Hour), To: now}, 10)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, domain.KindDirect, result[0].Kind)
	assert.Equal(t, domain.StatusDetected, result[0].Status)
}
