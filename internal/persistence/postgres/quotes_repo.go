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

type quotesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewQuotesRepo builds a PostgreSQL-backed QuotesRepo.
func NewQuotesRepo(db *sqlx.DB, timeout time.Duration) persistence.QuotesRepo {
	return &quotesRepo{db: db, timeout: timeout}
}

type quoteRow struct {
	ID          int64            `db:"id"`
	Exchange    string           `db:"exchange"`
	Pair        string           `db:"pair"`
	Bid         decimal.Decimal  `db:"bid"`
	Ask         decimal.Decimal  `db:"ask"`
	BidSize     decimal.Decimal  `db:"bid_size"`
	AskSize     decimal.Decimal  `db:"ask_size"`
	Last        decimal.Decimal  `db:"last"`
	Volume24h   decimal.Decimal  `db:"volume_24h"`
	Timestamp   time.Time        `db:"ts"`
	IsNativeJPY bool             `db:"is_native_jpy"`
	OriginalBid *decimal.Decimal `db:"original_bid"`
	OriginalAsk *decimal.Decimal `db:"original_ask"`
	FXRate      *decimal.Decimal `db:"fx_rate"`
	CreatedAt   time.Time        `db:"created_at"`
}

func (r *quotesRepo) Insert(ctx context.Context, q domain.Quote) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO quotes (exchange, pair, bid, ask, bid_size, ask_size, last, volume_24h,
			ts, is_native_jpy, original_bid, original_ask, fx_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		q.Exchange, q.Pair, q.Bid, q.Ask, q.BidSize, q.AskSize, q.Last, q.Volume24h,
		q.Timestamp, q.IsNativeJPY, q.OriginalBid, q.OriginalAsk, q.FXRate)
	if err != nil {
		return fmt.Errorf("%w: insert quote %s/%s: %v", domain.ErrStoreUnavailable, q.Exchange, q.Pair, err)
	}
	return nil
}

// InsertBatch writes a collection cycle's ticks in one transaction, the
// write-side counterpart of the detection engine's single-round-trip read.
func (r *quotesRepo) InsertBatch(ctx context.Context, qs []domain.Quote) error {
	if len(qs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(qs)/100+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin batch insert: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO quotes (exchange, pair, bid, ask, bid_size, ask_size, last, volume_24h,
			ts, is_native_jpy, original_bid, original_ask, fx_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return fmt.Errorf("%w: prepare batch insert: %v", domain.ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	for _, q := range qs {
		_, err := stmt.ExecContext(ctx,
			q.Exchange, q.Pair, q.Bid, q.Ask, q.BidSize, q.AskSize, q.Last, q.Volume24h,
			q.Timestamp, q.IsNativeJPY, q.OriginalBid, q.OriginalAsk, q.FXRate)
		if err != nil {
			return fmt.Errorf("%w: batch insert quote %s/%s: %v", domain.ErrStoreUnavailable, q.Exchange, q.Pair, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit batch insert: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// LatestPerExchange answers, in one round trip, "for this pair, one row per
// exchange holding that exchange's most recent tick within `within` of now".
// DISTINCT ON relies on the (pair, exchange, timestamp DESC) index named by
// the Store so this stays O(exchanges) rather than one query per venue.
func (r *quotesRepo) LatestPerExchange(ctx context.Context, pair string, within time.Duration) ([]domain.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT DISTINCT ON (exchange)
			id, exchange, pair, bid, ask, bid_size, ask_size, last, volume_24h,
			ts, is_native_jpy, original_bid, original_ask, fx_rate, created_at
		FROM quotes
		WHERE pair = $1 AND ts >= $2
		ORDER BY exchange, ts DESC`

	cutoff := time.Now().Add(-within)

	var rows []quoteRow
	if err := r.db.SelectContext(ctx, &rows, query, pair, cutoff); err != nil {
		return nil, fmt.Errorf("%w: latest-per-exchange query for %s: %v", domain.ErrStoreUnavailable, pair, err)
	}

	quotes := make([]domain.Quote, 0, len(rows))
	for _, row := range rows {
		quotes = append(quotes, row.toDomain())
	}
	return quotes, nil
}

func (row quoteRow) toDomain() domain.Quote {
	return domain.Quote{
		ID:          row.ID,
		Exchange:    row.Exchange,
		Pair:        row.Pair,
		Bid:         row.Bid,
		Ask:         row.Ask,
		BidSize:     row.BidSize,
		AskSize:     row.AskSize,
		Last:        row.Last,
		Volume24h:   row.Volume24h,
		Timestamp:   row.Timestamp,
		IsNativeJPY: row.IsNativeJPY,
		OriginalBid: row.OriginalBid,
		OriginalAsk: row.OriginalAsk,
		FXRate:      row.FXRate,
		CreatedAt:   row.CreatedAt,
	}
}
