package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lithosScope/internal/aggregate"
	"lithosScope/internal/chain"
	"lithosScope/internal/config"
	"lithosScope/internal/dedupe"
	"lithosScope/internal/dex"
	"lithosScope/internal/metrics"
)

func runAggregate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAggregate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.WithRateLimit(cfg.RateLimit, 1))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	opened, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer opened.close()

	var stateStore aggregate.StateStore
	switch {
	case cfg.StateFile != "":
		stateStore = &aggregate.FileStateStore{Path: cfg.StateFile, Name: cfg.StateName}
	case opened.state != nil:
		stateStore = &aggregate.DBStateStore{Backend: opened.state, Name: cfg.StateName}
	}

	deduper, closeDeduper, err := newDeduper(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDeduper()

	collector := metrics.NewCollector()

	engine, err := aggregate.NewEngine(aggregate.Config{
		FactoryAddress: cfg.FactoryAddress,
		ReferralFeeBps: cfg.ReferralFeeBps,
		StakingFeeBps:  cfg.StakingFeeBps,
		USDTokens:      cfg.USDTokens,
	}, opened.store, dex.NewContractReader(chainClient, logger), logger)
	if err != nil {
		return err
	}
	if err := engine.Init(ctx); err != nil {
		return err
	}

	processor := aggregate.NewProcessor(engine, aggregate.ProcessorConfig{
		FromBlock:  cfg.FromBlock,
		StateStore: stateStore,
		Deduper:    deduper,
		Metrics:    collector,
	}, logger)

	logger.Info("aggregate start",
		zap.String("input", cfg.Input),
		zap.String("store", describeStore(cfg.Store)),
		zap.String("factory", cfg.FactoryAddress),
		zap.Int("usd_tokens", len(cfg.USDTokens)),
		zap.Uint64("from", cfg.FromBlock),
		zap.Bool("redis_dedupe", cfg.RedisAddr != ""),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	group, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	var server *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		server = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		group.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		if server != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()
		}
		_, err := processor.Run(runCtx, cfg.Input)
		return err
	})

	if err := group.Wait(); err != nil {
		return err
	}

	if cfg.Dump != "" {
		return dumpStore(ctx, opened, cfg.Dump)
	}
	return nil
}

func newDeduper(ctx context.Context, cfg config.AggregateConfig) (dedupe.Deduper, func(), error) {
	if cfg.RedisAddr == "" {
		return dedupe.NewMemory(cfg.DedupeTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	deduper, err := dedupe.NewRedis(client, cfg.RedisPrefix, cfg.DedupeTTL)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return deduper, func() { _ = client.Close() }, nil
}

func dumpStore(ctx context.Context, opened *openedStore, path string) error {
	if opened.memory == nil {
		return fmt.Errorf("dump is only supported for the memory store")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	w := bufio.NewWriter(file)
	if err := opened.memory.Dump(ctx, w); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
