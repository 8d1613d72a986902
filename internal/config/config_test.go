package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	factory = "0xf000000000000000000000000000000000000001"
	usdt    = "0xa000000000000000000000000000000000000002"
)

func aggregateFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("aggregate", pflag.ContinueOnError)
	fs.String("rpc", "", "")
	fs.String("in", "", "")
	fs.String("store", "memory", "")
	fs.String("pg-dsn", "", "")
	fs.String("factory", "", "")
	fs.StringSlice("usd-tokens", nil, "")
	fs.Uint64("referral-fee-bps", 0, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAggregateDefaults(t *testing.T) {
	fs := aggregateFlags(t, "--rpc", "http://localhost:8545", "--in", "events.jsonl", "--factory", factory, "--usd-tokens", usdt)

	cfg, err := LoadAggregate("", fs)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, "aggregate", cfg.StateName)
	assert.Equal(t, 72*time.Hour, cfg.DedupeTTL)
	assert.Equal(t, []string{usdt}, cfg.USDTokens)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadAggregateEnvOverride(t *testing.T) {
	t.Setenv("INDEXER_REFERRAL_FEE_BPS", "1500")
	t.Setenv("INDEXER_METRICS_ADDR", ":9102")
	fs := aggregateFlags(t, "--rpc", "http://localhost:8545", "--in", "events.jsonl", "--factory", factory)

	cfg, err := LoadAggregate("", fs)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), cfg.ReferralFeeBps)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
}

func TestLoadAggregateFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
rpc: http://node:8545
in: ./data/typed_events.jsonl
factory: "`+factory+`"
store: sqlite
sqlite-path: ./data/lithos.db
usd-tokens:
  - "`+usdt+`"
staking-fee-bps: 2500
`)
	cfg, err := LoadAggregate(path, nil)
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "./data/lithos.db", cfg.Store.SQLitePath)
	assert.Equal(t, uint64(2500), cfg.StakingFeeBps)
	assert.Equal(t, []string{usdt}, cfg.USDTokens)
}

func TestLoadAggregateValidation(t *testing.T) {
	cases := map[string][]string{
		"missing dsn":     {"--rpc", "x", "--in", "y", "--factory", factory, "--store", "postgres"},
		"unknown backend": {"--rpc", "x", "--in", "y", "--factory", factory, "--store", "mongo"},
		"bad factory":     {"--rpc", "x", "--in", "y", "--factory", "0x1234"},
		"bad usd token":   {"--rpc", "x", "--in", "y", "--factory", factory, "--usd-tokens", "usdt"},
		"fee over 100%":   {"--rpc", "x", "--in", "y", "--factory", factory, "--referral-fee-bps", "10001"},
		"missing input":   {"--rpc", "x", "--factory", factory},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadAggregate("", aggregateFlags(t, args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLoadRun(t *testing.T) {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.String("rpc", "", "")
	fs.Uint64("from", 0, "")
	fs.Uint64("to", 0, "")
	fs.String("contracts", "", "")
	require.NoError(t, fs.Parse([]string{
		"--rpc", "http://node", "--from", "10", "--to", "20",
		"--contracts", factory + "=pair_factory, " + usdt + " = pair",
	}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, map[string]string{factory: "pair_factory", usdt: "pair"}, cfg.Contracts)

	require.NoError(t, fs.Set("from", "30"))
	_, err = Load("", fs)
	assert.Error(t, err)
}

func TestLoadDecodeRequiresInput(t *testing.T) {
	_, err := LoadDecode("", pflag.NewFlagSet("decode", pflag.ContinueOnError))
	require.Error(t, err)

	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	fs.String("in", "", "")
	require.NoError(t, fs.Parse([]string{"--in", "logs.jsonl"}))
	cfg, err := LoadDecode("", fs)
	require.NoError(t, err)
	assert.Equal(t, "./data/typed_events.jsonl", cfg.Out)
	assert.Empty(t, cfg.Contracts)
}

func TestLoadReport(t *testing.T) {
	fs := pflag.NewFlagSet("apr", pflag.ContinueOnError)
	fs.String("sqlite-path", "", "")
	fs.String("reward-rate", "", "")
	fs.String("at", "", "")
	fs.String("gauge", "", "")
	require.NoError(t, fs.Parse([]string{
		"--sqlite-path", "lithos.db",
		"--reward-rate", "0.25",
		"--at", "2023-11-14T22:13:20Z",
		"--gauge", "0xC000000000000000000000000000000000000001",
	}))

	cfg, err := LoadReport("", fs)
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "0.25", cfg.RewardRate.String())
	assert.Equal(t, uint64(1700000000), cfg.At)
	assert.Equal(t, "0xc000000000000000000000000000000000000001", cfg.Gauge)
	assert.Equal(t, "USDT", cfg.Unit)
	assert.Equal(t, "LITH", cfg.RewardKey)
}

func TestLoadReportOnchainNeedsRPC(t *testing.T) {
	fs := pflag.NewFlagSet("rewards", pflag.ContinueOnError)
	fs.String("token-id", "", "")
	fs.Bool("onchain", false, "")
	fs.String("rpc", "", "")
	require.NoError(t, fs.Parse([]string{"--token-id", "7", "--onchain"}))

	_, err := LoadReport("", fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPCURL")

	require.NoError(t, fs.Set("rpc", "http://localhost:8545"))
	cfg, err := LoadReport("", fs)
	require.NoError(t, err)
	assert.True(t, cfg.OnChain)
	assert.Equal(t, 4, cfg.Parallel)
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("1700000000")
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), got)

	got, err = ParseTimestamp("")
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestLoadQuotes(t *testing.T) {
	path := writeFile(t, "quotes.yaml", `
quotes:
  - {base: LITH, quote: XPL, price: 0.2}
  - {base: XPL, quote: USDT, price: 0.48}
  - {base: BAD, quote: USDT, price: 0}
symbol-aliases:
  stLITH: LITH
address-aliases:
  "0xABB48792A3161E81B47CA084C0B7A22A50324A44": LITH
`)
	table, err := LoadQuotes(path)
	require.NoError(t, err)
	require.Len(t, table.Quotes, 3)

	g := table.Graph()
	got, ok := g.Resolve("stlith", "usdt0")
	require.True(t, ok)
	assert.InDelta(t, 0.096, got, 1e-12)
	assert.Equal(t, "LITH", g.TokenKey("0xabb48792a3161e81b47ca084c0b7a22a50324a44", "?"))

	_, ok = g.Resolve("BAD", "USDT")
	assert.False(t, ok)

	empty, err := LoadQuotes("")
	require.NoError(t, err)
	assert.Empty(t, empty.Quotes)
}
