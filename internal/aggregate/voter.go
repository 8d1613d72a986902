package aggregate

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"lithosScope/internal/entity"
	"lithosScope/internal/epoch"
	"lithosScope/internal/model"
)

func (e *Engine) handleGaugeCreated(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	gaugeAddr := p.address("gauge")
	internalBribe := p.address("internal_bribe")
	externalBribe := p.address("external_bribe")
	pool := p.address("pool")
	if p.err != nil {
		return invalid(p.err)
	}

	existing, err := entity.Get[model.Gauge](ctx, e.store, gaugeAddr)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	pair, err := entity.Get[model.Pair](ctx, e.store, pool)
	if err != nil {
		return err
	}
	var pairAddr string
	if pair != nil {
		pairAddr = pair.Address
		pair.Gauge = gaugeAddr
	}

	gauge := &model.Gauge{
		Address:            gaugeAddr,
		Pool:               pool,
		Voter:              ev.Contract(),
		InternalBribe:      internalBribe,
		ExternalBribe:      externalBribe,
		CreatedAtBlock:     ev.BlockNumber,
		CreatedAtTimestamp: ev.Timestamp,
	}
	gauge.Touch(ev.BlockNumber, ev.Timestamp)

	bribes := make([]model.Entity, 0, 2)
	for _, b := range []struct {
		addr string
		typ  model.BribeType
	}{
		{internalBribe, model.BribeInternal},
		{externalBribe, model.BribeExternal},
	} {
		if isZeroAddress(b.addr) {
			continue
		}
		bribe := &model.Bribe{Address: b.addr, Type: b.typ, Gauge: gaugeAddr, Pair: pairAddr}
		bribe.Touch(ev.BlockNumber, ev.Timestamp)
		bribes = append(bribes, bribe)
	}

	e.logger.Info("gauge created",
		zap.String("gauge", gaugeAddr),
		zap.String("pool", pool),
		zap.Bool("known_pair", pair != nil),
	)
	if err := e.upsert(ctx, bribes...); err != nil {
		return err
	}
	if pair != nil {
		if err := e.store.Upsert(ctx, pair); err != nil {
			return err
		}
	}
	return e.store.Upsert(ctx, gauge)
}

// handleVote reconciles a veNFT's recorded votes for the current epoch with
// the voter contract. Voted and Abstained share it: both end with the
// contract state being authoritative.
func (e *Engine) handleVote(ctx context.Context, ev model.TypedEvent) error {
	tokenID, err := ev.Params.BigInt("tokenId")
	if err != nil {
		return invalid(err)
	}
	voter := ev.Contract()
	token := tokenID.String()
	start := epoch.Start(ev.Timestamp)

	current, err := e.reader.PoolVotes(ctx, voter, tokenID, ev.BlockNumber)
	if err != nil {
		e.logger.Warn("pool votes read failed, keeping recorded votes",
			zap.String("token_id", token),
			zap.Uint64("epoch", start),
			zap.Error(err),
		)
		return nil
	}

	setID := model.TokenEpochVotesID(token, start)
	previous, err := entity.Get[model.TokenEpochVotes](ctx, e.store, setID)
	if err != nil {
		return err
	}

	weights := make(map[string]decimal.Decimal, len(current))
	for _, v := range current {
		weights[v.Pool] = weights[v.Pool].Add(v.Weight)
	}
	union := make(map[string]struct{}, len(weights))
	for pool := range weights {
		union[pool] = struct{}{}
	}
	if previous != nil {
		for _, pool := range previous.Pools {
			union[pool] = struct{}{}
		}
	}
	pools := maps.Keys(union)
	sort.Strings(pools)

	for _, pool := range pools {
		gauge, err := e.gaugeKey(ctx, voter, pool, ev.BlockNumber)
		if err != nil {
			return err
		}
		if err := e.refreshGaugeVote(ctx, ev, voter, gauge, pool, start); err != nil {
			return err
		}

		voteID := model.TokenGaugeVoteID(token, start, pool)
		weight, voted := weights[pool]
		if !voted {
			if err := e.store.Remove(ctx, model.KindTokenGaugeVote, voteID); err != nil {
				return err
			}
			continue
		}
		vote := &model.TokenGaugeVote{
			ID:         voteID,
			TokenID:    token,
			Pool:       pool,
			Gauge:      gauge,
			EpochStart: start,
			Weight:     weight,
		}
		vote.Touch(ev.BlockNumber, ev.Timestamp)
		if err := e.store.Upsert(ctx, vote); err != nil {
			return err
		}
	}

	currentPools := maps.Keys(weights)
	sort.Strings(currentPools)
	set := &model.TokenEpochVotes{ID: setID, TokenID: token, EpochStart: start, Pools: currentPools}
	set.Touch(ev.BlockNumber, ev.Timestamp)
	return e.store.Upsert(ctx, set)
}

// refreshGaugeVote overwrites the epoch total with the contract's weight,
// keeping the stored value when the read fails.
func (e *Engine) refreshGaugeVote(ctx context.Context, ev model.TypedEvent, voter, gauge, pool string, start uint64) error {
	id := model.GaugeEpochVoteID(gauge, start)
	row, _, err := entity.GetOrCreate[model.GaugeEpochVote](ctx, e.store, id, func() *model.GaugeEpochVote {
		return &model.GaugeEpochVote{ID: id, Gauge: gauge, Pool: pool, EpochStart: start}
	})
	if err != nil {
		return err
	}
	weight, err := e.reader.PoolWeight(ctx, voter, pool, ev.BlockNumber)
	if err != nil {
		e.logger.Debug("pool weight read failed, keeping stored total",
			zap.String("pool", pool),
			zap.Error(err),
		)
	} else {
		row.TotalWeight = rawDecimal(weight)
	}
	row.Touch(ev.BlockNumber, ev.Timestamp)
	return e.store.Upsert(ctx, row)
}

// gaugeKey resolves the gauge of a pool: the one recorded on the pair, the
// voter's registry, or the pool address itself.
// A store failure is returned; a failed contract read falls through.
func (e *Engine) gaugeKey(ctx context.Context, voter, pool string, block uint64) (string, error) {
	pair, err := entity.Get[model.Pair](ctx, e.store, pool)
	if err != nil {
		return "", err
	}
	if pair != nil && pair.Gauge != "" {
		return pair.Gauge, nil
	}
	if gauge, err := e.reader.GaugeForPool(ctx, voter, pool, block); err == nil {
		return gauge, nil
	}
	return pool, nil
}
