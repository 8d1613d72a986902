package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lithosScope/internal/chain"
	"lithosScope/internal/config"
	"lithosScope/internal/dex"
	"lithosScope/internal/epoch"
	"lithosScope/internal/pricegraph"
	"lithosScope/internal/valuation"
)

type reportEnv struct {
	cfg    config.ReportConfig
	logger *zap.Logger
	store  *openedStore
	graph  *pricegraph.Graph
}

func openReport(ctx context.Context, cmd *cobra.Command) (*reportEnv, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReport(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	quotes, err := config.LoadQuotes(cfg.Quotes)
	if err != nil {
		return nil, err
	}

	opened, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	logger.Debug("report inputs",
		zap.String("store", describeStore(cfg.Store)),
		zap.Int("quotes", len(quotes.Quotes)),
		zap.String("unit", cfg.Unit),
	)
	return &reportEnv{cfg: cfg, logger: logger, store: opened, graph: quotes.Graph()}, nil
}

func (r *reportEnv) Close() {
	r.store.close()
	_ = r.logger.Sync()
}

func runAPR(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := openReport(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.cfg.Gauge == "" {
		return fmt.Errorf("gauge is required")
	}

	report, err := valuation.GaugeAPR(ctx, env.store.store, env.graph, valuation.APRRequest{
		Gauge:      env.cfg.Gauge,
		Unit:       env.cfg.Unit,
		RewardKey:  env.cfg.RewardKey,
		RewardRate: env.cfg.RewardRate,
		Epoch:      env.cfg.Epoch,
		Now:        env.cfg.At,
	})
	if err != nil {
		return err
	}
	if report.Reason != "" {
		env.logger.Warn("apr incomplete", zap.String("reason", report.Reason), zap.Strings("unpriced", report.Unpriced))
	}
	return printJSON(report)
}

func runRewards(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := openReport(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.cfg.TokenID == "" {
		return fmt.Errorf("token id is required")
	}

	if env.cfg.OnChain {
		return runOnchainRewards(ctx, env)
	}

	start := env.cfg.Epoch
	if start == 0 {
		start = epoch.Start(env.cfg.At)
	}

	report, err := valuation.ExpectedRewards(ctx, env.store.store, env.graph, env.cfg.TokenID, start, env.cfg.Unit)
	if err != nil {
		return err
	}
	if len(report.Unpriced) > 0 {
		env.logger.Warn("rewards partially priced", zap.Strings("unpriced", report.Unpriced))
	}
	return printJSON(report)
}

func runOnchainRewards(ctx context.Context, env *reportEnv) error {
	chainClient, err := chain.NewClient(ctx, env.cfg.RPCURL, chain.WithRateLimit(env.cfg.RateLimit, 1))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	reader := dex.NewContractReader(chainClient, env.logger)
	report, err := valuation.OnchainClaimables(ctx, env.store.store, reader, env.graph, env.cfg.TokenID, env.cfg.Unit, env.cfg.Parallel)
	if err != nil {
		return err
	}
	if len(report.Unreadable) > 0 {
		env.logger.Warn("bribes unreadable", zap.Strings("bribes", report.Unreadable))
	}
	if len(report.Unpriced) > 0 {
		env.logger.Warn("claimables partially priced", zap.Strings("unpriced", report.Unpriced))
	}
	return printJSON(report)
}

func printJSON(value interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
