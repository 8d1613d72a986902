package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"lithosScope/internal/storage"
)

// LogSource is the chain access the runner needs.
type LogSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock uint64
	// ToBlock of zero means the latest block at start.
	ToBlock uint64
	// Addresses filters emitters; empty matches every contract so pairs,
	// gauges and bribes created on the fly are included.
	Addresses    []common.Address
	Topic0       []common.Hash
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner streams logs from the chain and writes them to a sink.
type Runner struct {
	cfg        RunConfig
	source     LogSource
	sink       storage.LogSink
	checkpoint Checkpointer
	logger     *zap.Logger
	seen       map[string]struct{}
}

// NewRunner builds a Runner with its dependencies. checkpoint may be nil.
func NewRunner(cfg RunConfig, source LogSource, sink storage.LogSink, checkpoint Checkpointer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		sink:       sink,
		checkpoint: checkpoint,
		logger:     logger,
		seen:       make(map[string]struct{}),
	}
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	chainID, err := r.source.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.source.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	return EachBatch(from, to, r.cfg.BatchSize, func(blockRange BlockRange) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return r.syncRange(ctx, chainIDValue, blockRange)
	})
}

func (r *Runner) syncRange(ctx context.Context, chainID uint64, blockRange BlockRange) error {
	r.logger.Info("fetch logs",
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
		zap.Uint64("blocks", blockRange.Len()),
	)

	logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}

	normalized := normalizeBatch(chainID, logs, r.seen, time.Now().UTC())
	records := normalized.records
	for i := range records {
		ts, err := r.blockTimestampWithRetry(ctx, records[i].BlockNumber)
		if err != nil {
			return fmt.Errorf("block timestamp %d: %w", records[i].BlockNumber, err)
		}
		records[i].Timestamp = ts
	}

	if err := r.sink.PutLogBatch(records); err != nil {
		return fmt.Errorf("store logs: %w", err)
	}
	if r.checkpoint != nil {
		if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
			return err
		}
	}

	r.logger.Info("batch complete",
		zap.Int("logs", len(records)),
		zap.Int("removed", normalized.removed),
		zap.Int("duplicates", normalized.dupes),
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
	)
	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	notify := func(err error, next time.Duration) {
		r.logger.Warn("filter logs failed",
			zap.Error(err),
			zap.Uint64("from", fromBlock),
			zap.Uint64("to", toBlock),
			zap.Duration("retry_in", next),
		)
	}
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, notify, func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, fromBlock, toBlock, r.cfg.Addresses, r.cfg.Topic0)
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	notify := func(err error, next time.Duration) {
		r.logger.Warn("block timestamp fetch failed",
			zap.Error(err),
			zap.Uint64("block_number", blockNumber),
			zap.Duration("retry_in", next),
		)
	}
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, notify, func(ctx context.Context) error {
		var err error
		ts, err = r.source.BlockTimestamp(ctx, blockNumber)
		return err
	})
	return ts, err
}
