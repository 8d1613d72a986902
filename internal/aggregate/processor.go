package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"lithosScope/internal/dedupe"
	"lithosScope/internal/metrics"
	"lithosScope/internal/model"
)

// ProcessorConfig controls a processing run.
type ProcessorConfig struct {
	// FromBlock overrides saved progress when > 0.
	FromBlock  uint64
	StateStore StateStore
	Deduper    dedupe.Deduper
	Metrics    *metrics.Collector
}

// Stats summarizes a run.
type Stats struct {
	Total       int    `json:"total"`
	Handled     int    `json:"handled"`
	Skipped     int    `json:"skipped"`
	Duplicates  int    `json:"duplicates"`
	Unsupported int    `json:"unsupported"`
	Failed      int    `json:"failed"`
	LastBlock   uint64 `json:"last_block"`
}

// Processor feeds a typed event stream through the engine one event at a
// time, in input order.
type Processor struct {
	engine *Engine
	cfg    ProcessorConfig
	logger *zap.Logger
}

func NewProcessor(engine *Engine, cfg ProcessorConfig, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{engine: engine, cfg: cfg, logger: logger}
}

// Run executes aggregation over a typed events JSONL file.
func (p *Processor) Run(ctx context.Context, inputPath string) (Stats, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return p.Process(ctx, file)
}

// Process consumes typed events from r. The cursor is saved whenever a
// block is complete, and also when the run stops early, so a restart
// resumes right after the last applied event even inside a block.
func (p *Processor) Process(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	if p.engine == nil {
		return stats, fmt.Errorf("engine is nil")
	}

	resume, err := p.loadCursor(ctx)
	if err != nil {
		return stats, err
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	saved := resume
	var (
		current uint64
		last    *model.Cursor // furthest event consumed past saved
	)
	stop := func(cause error) (Stats, error) {
		if last != nil {
			if err := p.save(context.WithoutCancel(ctx), *last); err != nil {
				p.logger.Error("save cursor on stop", zap.Error(err))
			}
		}
		return stats, cause
	}
	consumed := func(ev model.TypedEvent) {
		c := model.LogCursor(ev.BlockNumber, ev.LogIndex)
		if saved != nil && !saved.Before(c) {
			return
		}
		if last == nil || last.Before(c) {
			last = &c
		}
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stop(err)
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var ev model.TypedEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			stats.Failed++
			p.logger.Warn("decode typed event", zap.Error(err))
			continue
		}

		if resume != nil && resume.Covers(ev.BlockNumber, ev.LogIndex) {
			stats.Skipped++
			p.cfg.Metrics.ObserveEvent(ev.Route(), metrics.OutcomeSkipped, 0)
			continue
		}

		if current > 0 && ev.BlockNumber < current {
			p.cfg.Metrics.IncRegression()
			p.logger.Warn("block order regression",
				zap.Uint64("previous", current),
				zap.Uint64("block", ev.BlockNumber),
				zap.String("event", ev.ID()),
			)
		} else if ev.BlockNumber > current {
			if current > 0 {
				if err := p.complete(ctx, current); err != nil {
					return stats, err
				}
				done := model.BlockCursor(current)
				saved, last = &done, nil
			}
			current = ev.BlockNumber
		}

		if p.cfg.Deduper != nil {
			seen, err := p.cfg.Deduper.Seen(ctx, ev.ID())
			if err != nil {
				return stop(fmt.Errorf("dedupe %s: %w", ev.ID(), err))
			}
			if seen {
				stats.Duplicates++
				p.cfg.Metrics.ObserveEvent(ev.Route(), metrics.OutcomeDuplicate, 0)
				consumed(ev)
				continue
			}
		}

		started := time.Now()
		err := p.engine.Handle(ctx, ev)
		switch {
		case err == nil:
			stats.Handled++
			p.cfg.Metrics.ObserveEvent(ev.Route(), metrics.OutcomeHandled, time.Since(started))
		case errors.Is(err, ErrUnsupportedEvent):
			stats.Unsupported++
			p.cfg.Metrics.ObserveEvent(ev.Route(), metrics.OutcomeUnsupported, 0)
			p.logger.Debug("unsupported event", zap.String("route", ev.Route()))
		case errors.Is(err, ErrInvalidEvent):
			stats.Failed++
			p.cfg.Metrics.ObserveEvent(ev.Route(), metrics.OutcomeFailed, 0)
			p.logger.Warn("aggregate event", zap.Error(err), zap.String("event", ev.ID()))
		default:
			p.cfg.Metrics.ObserveEvent(ev.Route(), metrics.OutcomeFailed, 0)
			p.forget(ctx, ev)
			return stop(err)
		}
		consumed(ev)
	}

	if err := scanner.Err(); err != nil {
		return stop(fmt.Errorf("scan input: %w", err))
	}

	if current > 0 {
		if err := p.complete(ctx, current); err != nil {
			return stats, err
		}
		stats.LastBlock = current
	}

	p.logger.Info("aggregate complete",
		zap.Int("total", stats.Total),
		zap.Int("handled", stats.Handled),
		zap.Int("skipped", stats.Skipped),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("unsupported", stats.Unsupported),
		zap.Int("failed", stats.Failed),
		zap.Uint64("last_block", stats.LastBlock),
	)
	return stats, nil
}

// forget releases the dedupe mark of an event that was not applied so the
// next run handles it again.
func (p *Processor) forget(ctx context.Context, ev model.TypedEvent) {
	if p.cfg.Deduper == nil {
		return
	}
	if err := p.cfg.Deduper.Forget(context.WithoutCancel(ctx), ev.ID()); err != nil {
		p.logger.Error("release dedupe mark", zap.Error(err), zap.String("event", ev.ID()))
	}
}

// loadCursor returns the position to resume after, or nil to process
// everything.
func (p *Processor) loadCursor(ctx context.Context) (*model.Cursor, error) {
	if p.cfg.FromBlock > 0 {
		c := model.BlockCursor(p.cfg.FromBlock - 1)
		return &c, nil
	}
	if p.cfg.StateStore == nil {
		return nil, nil
	}
	c, ok, err := p.cfg.StateStore.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return nil, nil
	}
	fields := []zap.Field{zap.Uint64("block", c.Block)}
	if c.LogIndex != nil {
		fields = append(fields, zap.Uint64("log_index", *c.LogIndex))
	}
	p.logger.Info("resuming after saved cursor", fields...)
	return &c, nil
}

func (p *Processor) complete(ctx context.Context, block uint64) error {
	p.cfg.Metrics.SetLastBlock(block)
	return p.save(ctx, model.BlockCursor(block))
}

func (p *Processor) save(ctx context.Context, c model.Cursor) error {
	if p.cfg.StateStore == nil {
		return nil
	}
	if err := p.cfg.StateStore.Save(ctx, c); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
