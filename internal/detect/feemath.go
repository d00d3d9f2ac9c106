// Package detect implements the arbitrage detection strategies: direct,
// cross-rate, USD-quoted, and the two intentionally unimplemented stubs
// (triangle, latency).
package detect

import (
	"github.com/cryptoedge/arbmon/internal/domain"
	"github.com/shopspring/decimal"
)

const hundred = 100

// hundredD is decimal(100), used throughout to convert ratios to percentages.
var hundredD = decimal.NewFromInt(hundred)

// VenueFees gives each adapter's taker fee rate and per-asset withdrawal fee,
// mirroring the exchange.yaml-seeded fee table every strategy shares.
type VenueFees struct {
	TakerFee       decimal.Decimal
	WithdrawalFees map[string]decimal.Decimal
}

// priceDiffPct returns (sell-buy)/buy*100, the common percentage-spread
// shape every strategy starts from.
func priceDiffPct(buy, sell decimal.Decimal) decimal.Decimal {
	if buy.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return sell.Sub(buy).Div(buy).Mul(hundredD)
}

// feeBreakdown computes the absolute buy/sell trading fees, an absolute
// transfer fee (withdrawal cost of moving the base asset from the buy venue
// to the sell venue, zero for strategies with no physical transfer leg),
// and the combined fee percentage relative to the notional traded. Per
// spec.md §4.E.1, the sell-side fee is sized off the sell price, not the
// buy price — the two diverge materially whenever price_diff_pct is large.
func feeBreakdown(buyFeeRate, sellFeeRate, volume, buyPrice, sellPrice, transferFee decimal.Decimal) domain.FeeBreakdown {
	buyFees := volume.Mul(buyPrice).Mul(buyFeeRate)
	sellFees := volume.Mul(sellPrice).Mul(sellFeeRate)
	total := buyFees.Add(sellFees).Add(transferFee)

	var totalPct decimal.Decimal
	notional := volume.Mul(buyPrice)
	if notional.GreaterThan(decimal.Zero) {
		totalPct = total.Div(notional).Mul(hundredD)
	}

	return domain.FeeBreakdown{
		BuyFees:      buyFees,
		SellFees:     sellFees,
		TransferFee:  transferFee,
		TotalFeesPct: totalPct,
	}
}

// withdrawalFee looks up the buy venue's withdrawal fee for asset, in the
// base asset's own units (not a percentage) — zero when unconfigured.
func withdrawalFee(fees VenueFees, asset string) decimal.Decimal {
	if fees.WithdrawalFees == nil {
		return decimal.Zero
	}
	if fee, ok := fees.WithdrawalFees[asset]; ok {
		return fee
	}
	return decimal.Zero
}

// baseAsset extracts "BTC" from "BTC/JPY".
func baseAsset(pair string) string {
	for i, r := range pair {
		if r == '/' {
			return pair[:i]
		}
	}
	return pair
}
