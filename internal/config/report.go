package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// ReportConfig holds configuration for the apr and rewards commands.
type ReportConfig struct {
	Store  StoreConfig
	Quotes string
	Unit   string `validate:"required"`

	// apr
	Gauge      string `validate:"omitempty,eth_addr"`
	RewardKey  string `validate:"required"`
	RewardRate decimal.Decimal

	// rewards
	TokenID string `validate:"omitempty,numeric"`
	// OnChain reads claimable amounts from the bribe contracts instead of
	// estimating them from indexed stakes.
	OnChain   bool
	RPCURL    string  `validate:"required_if=OnChain true"`
	RateLimit float64 `validate:"gte=0"`
	Parallel  int     `validate:"gte=1"`

	// Epoch is an epoch start; At picks the epoch containing it instead.
	Epoch    uint64
	At       uint64
	LogLevel string
}

// LoadReport merges config file, environment variables, and flags into ReportConfig.
func LoadReport(cfgFile string, flags *pflag.FlagSet) (ReportConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"store":      StoreSQLite,
		"unit":       "USDT",
		"reward-key": "LITH",
		"log-level":  "info",
		"parallel":   4,
	})
	if err != nil {
		return ReportConfig{}, err
	}

	at, err := ParseTimestamp(v.GetString("at"))
	if err != nil {
		return ReportConfig{}, fmt.Errorf("parse at: %w", err)
	}
	if at == 0 {
		at = uint64(time.Now().Unix())
	}

	var rate decimal.Decimal
	if raw := strings.TrimSpace(v.GetString("reward-rate")); raw != "" {
		rate, err = decimal.NewFromString(raw)
		if err != nil {
			return ReportConfig{}, fmt.Errorf("parse reward-rate: %w", err)
		}
	}

	cfg := ReportConfig{
		Store:      loadStore(v.GetString("store"), v.GetString("pg-dsn"), v.GetString("sqlite-path")),
		Quotes:     v.GetString("quotes"),
		Unit:       v.GetString("unit"),
		Gauge:      strings.ToLower(v.GetString("gauge")),
		RewardKey:  v.GetString("reward-key"),
		RewardRate: rate,
		TokenID:    v.GetString("token-id"),
		OnChain:    v.GetBool("onchain"),
		RPCURL:     v.GetString("rpc"),
		RateLimit:  v.GetFloat64("rate-limit"),
		Parallel:   v.GetInt("parallel"),
		Epoch:      v.GetUint64("epoch"),
		At:         at,
		LogLevel:   v.GetString("log-level"),
	}
	if err := check(cfg); err != nil {
		return ReportConfig{}, err
	}
	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
