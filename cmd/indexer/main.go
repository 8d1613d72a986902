package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lithosScope/internal/chain"
	"lithosScope/internal/config"
	"lithosScope/internal/dex"
	"lithosScope/internal/indexer"
	"lithosScope/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Lithos AMM and vote-escrow analytics indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch raw protocol logs into JSONL",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().StringSlice("address", nil, "emitter filter (comma-separated); empty matches every contract")
	runCmd.Flags().String("contracts", "", "pinned contracts (comma-separated address=kind); used as the emitter filter when --address is empty")
	runCmd.Flags().StringSlice("topic0", nil, "topic0 filter (comma-separated); empty means every protocol event")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Float64("rate-limit", 0, "max RPC requests per second, 0 disables")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("contracts", "", "pinned contracts (comma-separated address=kind)")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Fold typed events into analytics entities",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("rpc", "", "RPC URL for contract reads")
	aggregateCmd.Flags().String("in", "", "input typed events JSONL")
	addStoreFlags(aggregateCmd, config.StoreMemory)
	aggregateCmd.Flags().String("state-file", "", "local progress file; defaults to the store's state table")
	aggregateCmd.Flags().String("state-name", "aggregate", "progress row name in the state table")
	aggregateCmd.Flags().Uint64("from", 0, "reprocess from this block, ignoring saved progress")
	aggregateCmd.Flags().String("factory", "", "pair factory address")
	aggregateCmd.Flags().StringSlice("usd-tokens", nil, "stablecoin addresses priced at 1 (comma-separated)")
	aggregateCmd.Flags().Uint64("referral-fee-bps", 0, "initial referral fee share in bps")
	aggregateCmd.Flags().Uint64("staking-fee-bps", 0, "initial staking fee share in bps")
	aggregateCmd.Flags().String("redis-addr", "", "redis address for cross-run event dedupe; empty uses memory")
	aggregateCmd.Flags().String("redis-prefix", "", "redis key prefix")
	aggregateCmd.Flags().Duration("dedupe-ttl", 72*time.Hour, "how long applied event ids are remembered")
	aggregateCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	aggregateCmd.Flags().String("dump", "", "write every entity as JSONL here after the run (memory store)")
	aggregateCmd.Flags().Float64("rate-limit", 0, "max RPC requests per second, 0 disables")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	aprCmd := &cobra.Command{
		Use:   "apr",
		Short: "Report a gauge's emission APR",
		RunE:  runAPR,
	}
	addReportFlags(aprCmd)
	aprCmd.Flags().String("gauge", "", "gauge address")
	aprCmd.Flags().String("reward-key", "LITH", "price graph key of the emitted token")
	aprCmd.Flags().String("reward-rate", "", "override emission per second in reward tokens")
	root.AddCommand(aprCmd)

	rewardsCmd := &cobra.Command{
		Use:   "rewards",
		Short: "Report a veNFT's expected bribe rewards",
		RunE:  runRewards,
	}
	addReportFlags(rewardsCmd)
	rewardsCmd.Flags().String("token-id", "", "veNFT token id")
	rewardsCmd.Flags().Bool("onchain", false, "read claimable amounts from the bribe contracts")
	rewardsCmd.Flags().String("rpc", "", "RPC URL for --onchain")
	rewardsCmd.Flags().Float64("rate-limit", 0, "max RPC requests per second, 0 disables")
	rewardsCmd.Flags().Int("parallel", 4, "bribes read concurrently with --onchain")
	root.AddCommand(rewardsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStoreFlags(cmd *cobra.Command, backend string) {
	cmd.Flags().String("store", backend, "entity store backend (memory, postgres, sqlite)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("sqlite-path", "", "SQLite database path")
}

func addReportFlags(cmd *cobra.Command) {
	addStoreFlags(cmd, config.StoreSQLite)
	cmd.Flags().String("quotes", "", "manual price quote table (YAML)")
	cmd.Flags().String("unit", "USDT", "price graph key values are expressed in")
	cmd.Flags().Uint64("epoch", 0, "epoch start timestamp")
	cmd.Flags().String("at", "", "pick the epoch containing this time (unix seconds or RFC3339); defaults to now")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	contracts, err := indexer.ParseContracts(cfg.Contracts)
	if err != nil {
		return err
	}
	rawAddresses := cfg.Addresses
	if len(rawAddresses) == 0 {
		rawAddresses = indexer.ContractAddresses(contracts)
	}
	addresses, err := indexer.ParseAddresses(rawAddresses)
	if err != nil {
		return err
	}

	rawTopics := cfg.Topic0
	if len(rawTopics) == 0 {
		decoder, err := dex.NewLogDecoder(dex.DecoderConfig{})
		if err != nil {
			return err
		}
		rawTopics = decoder.Topics()
	}
	topic0, err := indexer.ParseTopic0(rawTopics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.WithRateLimit(cfg.RateLimit, 1))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		Addresses:    addresses,
		Topic0:       topic0,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, storage.NewJsonlStorage(cfg.Out), indexer.NewCheckpointStore(cfg.Checkpoint, cfg.CheckpointEnabled), logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(addresses)),
		zap.Int("topic0", len(topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
