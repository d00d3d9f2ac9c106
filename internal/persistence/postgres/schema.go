package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements are applied in order; later tables' indexes assume the
// earlier CREATE TABLEs already ran. Every statement is idempotent so
// bootstrap can run against an already-provisioned database.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS exchanges (
		id              BIGSERIAL PRIMARY KEY,
		code            TEXT NOT NULL UNIQUE,
		display_name    TEXT NOT NULL,
		maker_fee       NUMERIC(10,6) NOT NULL DEFAULT 0,
		taker_fee       NUMERIC(10,6) NOT NULL DEFAULT 0,
		withdrawal_fees JSONB NOT NULL DEFAULT '{}',
		active          BOOLEAN NOT NULL DEFAULT true,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS currency_pairs (
		id          BIGSERIAL PRIMARY KEY,
		symbol      TEXT NOT NULL UNIQUE,
		base_asset  TEXT NOT NULL,
		quote_asset TEXT NOT NULL,
		lot_step    NUMERIC(24,12),
		price_step  NUMERIC(24,12),
		active      BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS quotes (
		id            BIGSERIAL PRIMARY KEY,
		exchange      TEXT NOT NULL,
		pair          TEXT NOT NULL,
		bid           NUMERIC(24,8) NOT NULL,
		ask           NUMERIC(24,8) NOT NULL,
		bid_size      NUMERIC(24,8) NOT NULL DEFAULT 0,
		ask_size      NUMERIC(24,8) NOT NULL DEFAULT 0,
		last          NUMERIC(24,8) NOT NULL DEFAULT 0,
		volume_24h    NUMERIC(24,8) NOT NULL DEFAULT 0,
		ts            TIMESTAMPTZ NOT NULL,
		is_native_jpy BOOLEAN NOT NULL DEFAULT false,
		original_bid  NUMERIC(24,8),
		original_ask  NUMERIC(24,8),
		fx_rate       NUMERIC(24,8),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quotes_pair_exchange_ts ON quotes (pair, exchange, ts DESC)`,
	`CREATE TABLE IF NOT EXISTS opportunities (
		id                    BIGSERIAL PRIMARY KEY,
		ts                    TIMESTAMPTZ NOT NULL,
		kind                  TEXT NOT NULL,
		pair                  TEXT NOT NULL,
		buy_exchange          TEXT NOT NULL,
		sell_exchange         TEXT NOT NULL,
		buy_price             NUMERIC(24,8) NOT NULL,
		sell_price            NUMERIC(24,8) NOT NULL,
		price_diff_pct        NUMERIC(10,6) NOT NULL,
		estimated_profit_pct  NUMERIC(10,6) NOT NULL,
		max_profitable_volume NUMERIC(24,8) NOT NULL,
		buy_fees              NUMERIC(24,8) NOT NULL DEFAULT 0,
		sell_fees             NUMERIC(24,8) NOT NULL DEFAULT 0,
		transfer_fee          NUMERIC(24,8) NOT NULL DEFAULT 0,
		total_fees_pct        NUMERIC(10,6) NOT NULL DEFAULT 0,
		status                TEXT NOT NULL DEFAULT 'detected',
		skip_reason           TEXT NOT NULL DEFAULT '',
		execution_details     JSONB,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_ts ON opportunities (ts DESC)`,
	`CREATE TABLE IF NOT EXISTS balances (
		id        BIGSERIAL PRIMARY KEY,
		exchange  TEXT NOT NULL,
		asset     TEXT NOT NULL,
		available NUMERIC(24,8) NOT NULL DEFAULT 0,
		locked    NUMERIC(24,8) NOT NULL DEFAULT 0,
		ts        TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (exchange, asset)
	)`,
}

// Bootstrap applies every CREATE TABLE IF NOT EXISTS / CREATE INDEX
// statement needed to run the system against an empty database.
func Bootstrap(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
