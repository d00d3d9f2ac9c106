package main

import (
	"fmt"
	"os"

	"github.com/cryptoedge/arbmon/internal/config"
	"github.com/cryptoedge/arbmon/internal/detect"
	"github.com/cryptoedge/arbmon/internal/exchange"
	"github.com/cryptoedge/arbmon/internal/fx"
	"github.com/cryptoedge/arbmon/internal/notify"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// defaultPositionCaps mirrors the documented per-asset ceilings; an
// exchanges.yaml entry never overrides these, since position sizing is a
// portfolio-wide policy rather than a per-venue one.
func defaultPositionCaps() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"BTC": decimal.NewFromFloat(0.1),
		"ETH": decimal.NewFromFloat(1.0),
		"XRP": decimal.NewFromFloat(10000),
	}
}

// buildAdapters constructs one exchange.Adapter per enabled venue. Adapter
// constructors differ enough per venue (base URL, pair discovery) that this
// stays a switch rather than a generic factory.
func buildAdapters(cfg *config.ExchangesConfig, log zerolog.Logger) (map[string]exchange.Adapter, error) {
	adapters := make(map[string]exchange.Adapter)
	for code, venue := range cfg.Exchanges {
		if !venue.Enabled {
			continue
		}
		switch code {
		case "bitflyer":
			adapters[code] = exchange.NewBitflyerAdapter(venue.BaseURL, venue.SupportedPairs, log)
		case "bitbank":
			adapters[code] = exchange.NewBitbankAdapter(venue.BaseURL, venue.SupportedPairs, log)
		case "coincheck":
			adapters[code] = exchange.NewCoincheckAdapter(venue.BaseURL, venue.SupportedPairs, log)
		case "gmo":
			adapters[code] = exchange.NewGMOAdapter(venue.BaseURL, venue.SupportedPairs, log)
		case "bybit":
			adapters[code] = exchange.NewBybitAdapter(venue.SupportedPairs, log)
		case "binance":
			adapters[code] = exchange.NewBinanceAdapter(venue.SupportedPairs, log)
		default:
			log.Warn().Str("venue", code).Msg("no adapter implementation for configured venue, skipping")
		}
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%s", "no venues enabled in exchanges.yaml")
	}
	return adapters, nil
}

// buildVenueFees projects exchanges.yaml's float fee fields into the
// decimal VenueFees table the detection strategies require.
func buildVenueFees(cfg *config.ExchangesConfig) map[string]detect.VenueFees {
	fees := make(map[string]detect.VenueFees, len(cfg.Exchanges))
	for code, venue := range cfg.Exchanges {
		withdrawal := make(map[string]decimal.Decimal, len(venue.WithdrawalFees))
		for asset, f := range venue.WithdrawalFees {
			withdrawal[asset] = decimal.NewFromFloat(f)
		}
		fees[code] = detect.VenueFees{
			TakerFee:       decimal.NewFromFloat(venue.TakerFee),
			WithdrawalFees: withdrawal,
		}
	}
	return fees
}

// buildFXService wires the refresh-on-read FX cache behind a single HTTP
// source; additional sources can be appended in registration order, the
// first to answer wins.
func buildFXService(log zerolog.Logger) *fx.Service {
	source := fx.NewHTTPSource("exchangerate.host", "https://api.exchangerate.host")
	return fx.NewService(log, source)
}
