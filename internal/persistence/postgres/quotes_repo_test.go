package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockQuotesRepo(t *testing.T) (*quotesRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := sqlx.NewDb(sqlDB, "postgres")
	repo := &quotesRepo{db: db, timeout: time.Second}
	return repo, mock, func() { sqlDB.Close() }
}

func TestQuotesRepo_LatestPerExchange(t *testing.T) {
	repo, mock, closeFn := newMockQuotesRepo(t)
	defer closeFn()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "exchange", "pair", "bid", "ask", "bid_size", "ask_size", "last", "volume_24h",
		"ts", "is_native_jpy", "original_bid", "original_ask", "fx_rate", "created_at",
	}).
		AddRow(1, "bitflyer", "BTC/JPY", "10000000", "10005000", "0.5", "0.5", "10002000", "12.0",
			now, true, nil, nil, nil, now).
		AddRow(2, "bitbank", "BTC/JPY", "10050000", "10055000", "0.4", "0.4", "10052000", "8.0",
			now, true, nil, nil, nil, now)

	mock.ExpectQuery("SELECT DISTINCT ON").
		WithArgs("BTC/JPY", sqlmock.AnyArg()).
		WillReturnRows(rows)

	quotes, err := repo.LatestPerExchange(context.Background(), "BTC/JPY", 300*time.Second)
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
	assert.Equal(t, "bitflyer", quotes[0].Exchange)
	assert.Equal(t, "bitbank", quotes[1].Exchange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotesRepo_LatestPerExchange_EmptyWhenNoFreshData(t *testing.T) {
	repo, mock, closeFn := newMockQuotesRepo(t)
	defer closeFn()

	rows := sqlmock.NewRows([]string{
		"id", "exchange", "pair", "bid", "ask", "bid_size", "ask_size", "last", "volume_24h",
		"ts", "is_native_jpy", "original_bid", "original_ask", "fx_rate", "created_at",
	})

	mock.ExpectQuery("SELECT DISTINCT ON").
		WithArgs("BTC/JPY", sqlmock.AnyArg()).
		WillReturnRows(rows)

	quotes, err := repo.LatestPerExchange(context.Background(), "BTC/JPY", 300*time.Second)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestQuotesRepo_Insert(t *testing.T) {
	repo, mock, closeFn := newMockQuotesRepo(t)
	defer closeFn()

	mock.ExpectExec("INSERT INTO quotes").WillReturnResult(sqlmock.NewResult(1, 1))

	q := sampleQuote("bitflyer", "BTC/JPY")
	err := repo.Insert(context.Background(), q)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotesRepo_InsertBatch_Empty(t *testing.T) {
	repo, _, closeFn := newMockQuotesRepo(t)
	defer closeFn()

	err := repo.InsertBatch(context.Background(), nil)
	assert.NoError(t, err)
}
