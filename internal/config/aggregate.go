package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Entity store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// StoreConfig selects the entity store backend.
type StoreConfig struct {
	Backend    string `validate:"oneof=memory postgres sqlite"`
	PGDSN      string `validate:"required_if=Backend postgres"`
	SQLitePath string `validate:"required_if=Backend sqlite"`
}

// AggregateConfig holds configuration for aggregation.
type AggregateConfig struct {
	RPCURL    string `validate:"required"`
	Input     string `validate:"required"`
	Store     StoreConfig
	StateFile string
	StateName string `validate:"required"`
	FromBlock uint64

	FactoryAddress string   `validate:"required,eth_addr"`
	USDTokens      []string `validate:"dive,eth_addr"`
	ReferralFeeBps uint64   `validate:"lte=10000"`
	StakingFeeBps  uint64   `validate:"lte=10000"`

	RedisAddr   string
	RedisPrefix string
	DedupeTTL   time.Duration `validate:"gte=0"`
	MetricsAddr string
	Dump        string
	RateLimit   float64 `validate:"gte=0"`
	LogLevel    string
}

// LoadAggregate merges config file, environment variables, and flags into AggregateConfig.
func LoadAggregate(cfgFile string, flags *pflag.FlagSet) (AggregateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"store":      StoreMemory,
		"state-name": "aggregate",
		"dedupe-ttl": 72 * time.Hour,
		"log-level":  "info",
	})
	if err != nil {
		return AggregateConfig{}, err
	}

	cfg := AggregateConfig{
		RPCURL:         v.GetString("rpc"),
		Input:          v.GetString("in"),
		Store:          loadStore(v.GetString("store"), v.GetString("pg-dsn"), v.GetString("sqlite-path")),
		StateFile:      v.GetString("state-file"),
		StateName:      v.GetString("state-name"),
		FromBlock:      v.GetUint64("from"),
		FactoryAddress: v.GetString("factory"),
		USDTokens:      getStringSlice(v, "usd-tokens"),
		ReferralFeeBps: v.GetUint64("referral-fee-bps"),
		StakingFeeBps:  v.GetUint64("staking-fee-bps"),
		RedisAddr:      v.GetString("redis-addr"),
		RedisPrefix:    v.GetString("redis-prefix"),
		DedupeTTL:      v.GetDuration("dedupe-ttl"),
		MetricsAddr:    v.GetString("metrics-addr"),
		Dump:           v.GetString("dump"),
		RateLimit:      v.GetFloat64("rate-limit"),
		LogLevel:       v.GetString("log-level"),
	}
	if err := check(cfg); err != nil {
		return AggregateConfig{}, err
	}
	return cfg, nil
}

func loadStore(backend, dsn, path string) StoreConfig {
	return StoreConfig{Backend: backend, PGDSN: dsn, SQLitePath: path}
}
