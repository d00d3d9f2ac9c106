// Package config loads the two on-disk configuration documents the system
// reads: exchanges.yaml (venue definitions) and notifications.json (alert
// policy, see notifications.go).
package config

import (
	"fmt"
	"os"

	"github.com/cryptoedge/arbmon/internal/domain"
	"gopkg.in/yaml.v3"
)

// ExchangesConfig is the top-level shape of exchanges.yaml.
type ExchangesConfig struct {
	Exchanges map[string]VenueConfig `yaml:"exchanges"`
}

// VenueConfig describes one exchange entry as an operator would author it.
type VenueConfig struct {
	Enabled        bool               `yaml:"enabled"`
	BaseURL        string             `yaml:"base_url"`
	WSURL          string             `yaml:"ws_url"`
	MakerFee       float64            `yaml:"maker_fee"`
	TakerFee       float64            `yaml:"taker_fee"`
	WithdrawalFees map[string]float64 `yaml:"withdrawal_fees"`
	SupportedPairs []string           `yaml:"supported_pairs"`
}

// LoadExchangesConfig reads and validates exchanges.yaml. A malformed or
// missing file is ConfigInvalid, fatal at boot per the error taxonomy;
// individual malformed venue entries are instead disabled with a warning
// returned alongside the otherwise-valid config.
func LoadExchangesConfig(path string) (*ExchangesConfig, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read exchanges config: %v", domain.ErrConfigInvalid, err)
	}

	var cfg ExchangesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("%w: parse exchanges config: %v", domain.ErrConfigInvalid, err)
	}

	var warnings []string
	for code, venue := range cfg.Exchanges {
		if !venue.Enabled {
			continue
		}
		if problem := venue.validate(); problem != "" {
			warnings = append(warnings, fmt.Sprintf("venue %q disabled: %s", code, problem))
			venue.Enabled = false
			cfg.Exchanges[code] = venue
		}
	}

	return &cfg, warnings, nil
}

// validate returns a human-readable reason the venue cannot be enabled, or
// "" if the entry is well formed.
func (v VenueConfig) validate() string {
	if v.BaseURL == "" {
		return "base_url is empty"
	}
	if v.TakerFee < 0 || v.TakerFee > 1 {
		return "taker_fee out of range [0,1]"
	}
	if v.MakerFee < 0 || v.MakerFee > 1 {
		return "maker_fee out of range [0,1]"
	}
	if len(v.SupportedPairs) == 0 {
		return "supported_pairs is empty"
	}
	return ""
}

// Enabled returns the codes of venues whose config enables them.
func (c *ExchangesConfig) Enabled() []string {
	var codes []string
	for code, v := range c.Exchanges {
		if v.Enabled {
			codes = append(codes, code)
		}
	}
	return codes
}
