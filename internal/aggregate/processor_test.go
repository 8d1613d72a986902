package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lithosScope/internal/dedupe"
	"lithosScope/internal/entity"
	"lithosScope/internal/metrics"
	"lithosScope/internal/model"
	"lithosScope/internal/storage/memory"
)

func encodeEvents(t *testing.T, events ...model.TypedEvent) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range events {
		require.NoError(t, enc.Encode(ev))
	}
	return &buf
}

func pairCreatedEvent(h *harness) model.TypedEvent {
	return h.event(model.ContractPairFactory, "PairCreated", factoryAddr, 10, baseTs, model.Params{
		"token0": lithAddr,
		"token1": usdtAddr,
		"stable": "false",
		"pair":   pairAddr,
		"index":  "0",
	})
}

func syncEvent(h *harness, block uint64) model.TypedEvent {
	return h.event(model.ContractPair, "Sync", pairAddr, block, baseTs, model.Params{
		"reserve0": "1000000000000000000000",
		"reserve1": "96000000",
	})
}

func TestProcessorCountsOutcomes(t *testing.T) {
	h := newHarness(t)
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state", "aggregate.json")}
	collector := metrics.NewCollector()

	created := pairCreatedEvent(h)
	events := []model.TypedEvent{
		created,
		created,
		syncEvent(h, 12),
		h.event(model.ContractPair, "Skim", pairAddr, 12, baseTs, nil),
		h.event(model.ContractPair, "Sync", pairAddr, 13, baseTs, model.Params{"reserve0": "x"}),
	}
	input := encodeEvents(t, events...)
	input.WriteString("\n{not json}\n")

	p := NewProcessor(h.engine, ProcessorConfig{
		StateStore: state,
		Deduper:    dedupe.NewMemory(0),
		Metrics:    collector,
	}, nil)
	stats, err := p.Process(h.ctx, input)
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Total:       6,
		Handled:     2,
		Duplicates:  1,
		Unsupported: 1,
		Failed:      2,
		LastBlock:   13,
	}, stats)

	last, ok, err := state.Load(h.ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.BlockCursor(13), last)

	pair := mustGet[model.Pair](t, h.store, pairAddr)
	assertDecimal(t, "0.096", pair.Token0Price)
}

func TestProcessorResumesAfterSavedBlock(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "aggregate.json")
	state := &FileStateStore{Path: path}

	events := []model.TypedEvent{pairCreatedEvent(h), syncEvent(h, 12)}
	p := NewProcessor(h.engine, ProcessorConfig{StateStore: state}, nil)
	_, err := p.Process(h.ctx, encodeEvents(t, events...))
	require.NoError(t, err)

	stats, err := p.Process(h.ctx, encodeEvents(t, events...))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Zero(t, stats.Handled)
	assert.Zero(t, stats.LastBlock)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"last_processed_block":12`)

	// FromBlock overrides saved progress
	p = NewProcessor(h.engine, ProcessorConfig{StateStore: state, FromBlock: 12}, nil)
	stats, err = p.Process(h.ctx, encodeEvents(t, events...))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Handled)
}

type recordingState struct {
	saved []uint64
}

func (s *recordingState) Load(context.Context) (model.Cursor, bool, error) {
	return model.Cursor{}, false, nil
}

func (s *recordingState) Save(_ context.Context, c model.Cursor) error {
	s.saved = append(s.saved, c.Block)
	return nil
}

func TestProcessorSavesCompletedBlocks(t *testing.T) {
	h := newHarness(t)
	state := &recordingState{}

	events := []model.TypedEvent{
		pairCreatedEvent(h),
		syncEvent(h, 12),
		syncEvent(h, 12),
		syncEvent(h, 11),
		syncEvent(h, 14),
	}
	collector := metrics.NewCollector()
	p := NewProcessor(h.engine, ProcessorConfig{StateStore: state, Metrics: collector}, nil)
	stats, err := p.Process(h.ctx, encodeEvents(t, events...))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Handled)
	assert.Equal(t, []uint64{10, 12, 14}, state.saved, "a regression does not complete a block")
}

func TestProcessorStopsOnCanceledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(h.engine, ProcessorConfig{}, nil)
	_, err := p.Process(ctx, encodeEvents(t, pairCreatedEvent(h)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessorRequiresEngine(t *testing.T) {
	_, err := NewProcessor(nil, ProcessorConfig{}, nil).Process(context.Background(), &bytes.Buffer{})
	assert.Error(t, err)
}

var errStoreDown = errors.New("store unavailable")

// flakyStore fails the write of one pair event record.
type flakyStore struct {
	*memory.Store
	failID string
}

func (s *flakyStore) Upsert(ctx context.Context, e model.Entity) error {
	if s.failID != "" && e.EntityKind() == model.KindPairEvent && e.EntityID() == s.failID {
		return errStoreDown
	}
	return s.Store.Upsert(ctx, e)
}

func swapEvent(h *harness, block uint64) model.TypedEvent {
	return h.event(model.ContractPair, "Swap", pairAddr, block, baseTs, model.Params{
		"sender":     aliceAddr,
		"to":         bobAddr,
		"amount0In":  "1000000000000000000",
		"amount1In":  "0",
		"amount0Out": "0",
		"amount1Out": "0",
	})
}

// failingRun builds an engine whose store rejects the second swap of
// block 20 and returns the input that triggers it.
func failingRun(t *testing.T, h *harness) (*Engine, *flakyStore, []model.TypedEvent) {
	t.Helper()
	events := []model.TypedEvent{
		pairCreatedEvent(h),
		syncEvent(h, 12),
		swapEvent(h, 20),
		swapEvent(h, 20),
	}
	store := &flakyStore{Store: h.store, failID: events[3].ID()}
	engine, err := NewEngine(Config{FactoryAddress: factoryAddr, USDTokens: []string{usdtAddr}}, store, h.reader, nil)
	require.NoError(t, err)
	require.NoError(t, engine.Init(h.ctx))
	return engine, store, events
}

func TestProcessorResumesInsideFailedBlock(t *testing.T) {
	h := newHarness(t)
	engine, store, events := failingRun(t, h)
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "aggregate.json")}

	p := NewProcessor(engine, ProcessorConfig{StateStore: state}, nil)
	_, err := p.Process(h.ctx, encodeEvents(t, events...))
	require.ErrorIs(t, err, errStoreDown)

	cursor, ok, err := state.Load(h.ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.LogCursor(20, events[2].LogIndex), cursor)

	store.failID = ""
	stats, err := p.Process(h.ctx, encodeEvents(t, events...))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 1, stats.Handled)

	pair := mustGet[model.Pair](t, h.store, pairAddr)
	assertDecimal(t, "2", pair.VolumeToken0)
	assert.Equal(t, uint64(2), pair.TxCount)

	cursor, _, err = state.Load(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, model.BlockCursor(20), cursor)
}

func TestProcessorReleasesDedupeMarkOnFailure(t *testing.T) {
	h := newHarness(t)
	engine, store, events := failingRun(t, h)
	deduper := dedupe.NewMemory(0)

	p := NewProcessor(engine, ProcessorConfig{Deduper: deduper}, nil)
	_, err := p.Process(h.ctx, encodeEvents(t, events...))
	require.ErrorIs(t, err, errStoreDown)

	store.failID = ""
	stats, err := p.Process(h.ctx, encodeEvents(t, events...))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Duplicates)
	assert.Equal(t, 1, stats.Handled)

	pair := mustGet[model.Pair](t, h.store, pairAddr)
	assertDecimal(t, "2", pair.VolumeToken0)

	swap, err := entity.Get[model.PairEvent](h.ctx, h.store, events[3].ID())
	require.NoError(t, err)
	assert.NotNil(t, swap)
}
