package aggregate

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lithosScope/internal/epoch"
	"lithosScope/internal/model"
	"lithosScope/internal/storage/memory"
)

const (
	poolB  = "0xb000000000000000000000000000000000000002"
	poolC  = "0xb000000000000000000000000000000000000003"
	gaugeB = "0xc000000000000000000000000000000000000002"
)

func vote(h *harness, block uint64) {
	h.handle(model.ContractVoter, "Voted", voterAddr, block, baseTs, model.Params{
		"voter":   aliceAddr,
		"tokenId": "7",
		"weight":  "100",
	})
}

func poolVote(pool string, weight int64) model.PoolVote {
	return model.PoolVote{Pool: pool, Weight: decimal.NewFromInt(weight)}
}

func snapshot(t *testing.T, h *harness) map[model.Kind][]string {
	t.Helper()
	out := make(map[model.Kind][]string)
	for _, kind := range []model.Kind{model.KindGaugeEpochVote, model.KindTokenGaugeVote, model.KindTokenEpochVotes} {
		require.NoError(t, h.store.Scan(h.ctx, kind, func(id string, data []byte) error {
			out[kind] = append(out[kind], id+"="+string(data))
			return nil
		}))
	}
	return out
}

func TestVoteSync(t *testing.T) {
	h := newHarness(t)
	h.createPair()
	h.createGauge()
	h.reader.gauges[poolB] = gaugeB
	start := epoch.Start(baseTs)

	h.reader.votes["7"] = []model.PoolVote{poolVote(pairAddr, 30), poolVote(poolB, 70)}
	h.reader.weights[pairAddr] = big.NewInt(300)
	h.reader.weights[poolB] = big.NewInt(700)
	vote(h, 50)

	v := mustGet[model.TokenGaugeVote](t, h.store, model.TokenGaugeVoteID("7", start, pairAddr))
	assertDecimal(t, "30", v.Weight)
	assert.Equal(t, gaugeAddr, v.Gauge, "gauge key comes from the pair")

	vb := mustGet[model.TokenGaugeVote](t, h.store, model.TokenGaugeVoteID("7", start, poolB))
	assert.Equal(t, gaugeB, vb.Gauge, "gauge key comes from the voter registry")

	g := mustGet[model.GaugeEpochVote](t, h.store, model.GaugeEpochVoteID(gaugeAddr, start))
	assertDecimal(t, "300", g.TotalWeight)

	set := mustGet[model.TokenEpochVotes](t, h.store, model.TokenEpochVotesID("7", start))
	assert.Equal(t, []string{pairAddr, poolB}, set.Pools)

	// re-applying the same contract state changes nothing
	before := snapshot(t, h)
	vote(h, 50)
	assert.Equal(t, before, snapshot(t, h))

	// vote moves from the pair to poolC; poolC has no gauge anywhere
	h.reader.votes["7"] = []model.PoolVote{poolVote(poolB, 50), poolVote(poolC, 50)}
	h.reader.weights[pairAddr] = big.NewInt(270)
	h.reader.weights[poolB] = big.NewInt(680)
	h.reader.weights[poolC] = big.NewInt(50)
	vote(h, 51)

	found, err := h.store.Load(h.ctx, model.KindTokenGaugeVote, model.TokenGaugeVoteID("7", start, pairAddr), &model.TokenGaugeVote{})
	require.NoError(t, err)
	assert.False(t, found, "vote on the dropped pool is removed")
	assert.Equal(t, 2, h.store.Count(model.KindTokenGaugeVote))

	g = mustGet[model.GaugeEpochVote](t, h.store, model.GaugeEpochVoteID(gaugeAddr, start))
	assertDecimal(t, "270", g.TotalWeight, "dropped pool is refreshed too")

	vc := mustGet[model.TokenGaugeVote](t, h.store, model.TokenGaugeVoteID("7", start, poolC))
	assert.Equal(t, poolC, vc.Gauge, "falls back to the pool address")

	set = mustGet[model.TokenEpochVotes](t, h.store, model.TokenEpochVotesID("7", start))
	assert.Equal(t, []string{poolB, poolC}, set.Pools)
}

func TestVoteSyncAbstain(t *testing.T) {
	h := newHarness(t)
	h.createPair()
	h.createGauge()
	start := epoch.Start(baseTs)

	h.reader.votes["7"] = []model.PoolVote{poolVote(pairAddr, 30)}
	h.reader.weights[pairAddr] = big.NewInt(30)
	vote(h, 50)
	require.Equal(t, 1, h.store.Count(model.KindTokenGaugeVote))

	h.reader.votes["7"] = nil
	h.reader.weights[pairAddr] = big.NewInt(0)
	h.handle(model.ContractVoter, "Abstained", voterAddr, 51, baseTs, model.Params{
		"tokenId": "7",
		"weight":  "30",
	})

	assert.Equal(t, 0, h.store.Count(model.KindTokenGaugeVote))
	set := mustGet[model.TokenEpochVotes](t, h.store, model.TokenEpochVotesID("7", start))
	assert.Empty(t, set.Pools)
	g := mustGet[model.GaugeEpochVote](t, h.store, model.GaugeEpochVoteID(gaugeAddr, start))
	assertDecimal(t, "0", g.TotalWeight)
}

func TestVoteSyncReadFailures(t *testing.T) {
	h := newHarness(t)
	h.createPair()
	h.createGauge()
	start := epoch.Start(baseTs)

	h.reader.votes["7"] = []model.PoolVote{poolVote(pairAddr, 30)}
	h.reader.weights[pairAddr] = big.NewInt(300)
	vote(h, 50)
	before := snapshot(t, h)

	// current set unreadable: nothing changes
	h.reader.votesErr = errRead
	vote(h, 51)
	assert.Equal(t, before, snapshot(t, h))

	// weight unreadable: stored total kept
	h.reader.votesErr = nil
	delete(h.reader.weights, pairAddr)
	vote(h, 52)
	g := mustGet[model.GaugeEpochVote](t, h.store, model.GaugeEpochVoteID(gaugeAddr, start))
	assertDecimal(t, "300", g.TotalWeight)
}

// unreadablePair fails every load of one pair row.
type unreadablePair struct {
	*memory.Store
	pair string
}

func (s *unreadablePair) Load(ctx context.Context, kind model.Kind, id string, dst model.Entity) (bool, error) {
	if kind == model.KindPair && id == s.pair {
		return false, errStoreDown
	}
	return s.Store.Load(ctx, kind, id, dst)
}

func TestVoteSyncStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.createPair()
	h.createGauge()
	h.reader.votes["7"] = []model.PoolVote{poolVote(pairAddr, 30)}
	h.reader.weights[pairAddr] = big.NewInt(300)

	engine, err := NewEngine(Config{FactoryAddress: factoryAddr, USDTokens: []string{usdtAddr}},
		&unreadablePair{Store: h.store, pair: pairAddr}, h.reader, nil)
	require.NoError(t, err)
	require.NoError(t, engine.Init(h.ctx))

	err = engine.Handle(h.ctx, h.event(model.ContractVoter, "Voted", voterAddr, 50, baseTs, model.Params{
		"voter":   aliceAddr,
		"tokenId": "7",
		"weight":  "100",
	}))
	require.ErrorIs(t, err, errStoreDown)
	assert.Zero(t, h.store.Count(model.KindTokenGaugeVote), "no vote is keyed by the pool address")
}
