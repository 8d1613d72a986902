package aggregate

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lithosScope/internal/entity"
	"lithosScope/internal/epoch"
	"lithosScope/internal/model"
)

func (e *Engine) loadBribe(ctx context.Context, ev model.TypedEvent) (*model.Bribe, error) {
	bribe, err := entity.Get[model.Bribe](ctx, e.store, ev.Contract())
	if err != nil {
		return nil, err
	}
	if bribe == nil {
		e.logger.Debug("event for unknown bribe",
			zap.String("bribe", ev.Contract()),
			zap.String("event", ev.EventName),
		)
	}
	return bribe, nil
}

// stakeEpoch is the epoch a stake change counts toward: the bribe's own
// next epoch start, else the calendar week after the event.
func (e *Engine) stakeEpoch(ctx context.Context, bribe string, ev model.TypedEvent) uint64 {
	next, err := e.reader.NextEpochStart(ctx, bribe, ev.BlockNumber)
	if err == nil && next > 0 {
		return next
	}
	if err != nil {
		e.logger.Debug("getNextEpochStart failed, using calendar",
			zap.String("bribe", bribe),
			zap.Error(err),
		)
	}
	return epoch.Next(ev.Timestamp)
}

func (e *Engine) handleBribeStaked(ctx context.Context, ev model.TypedEvent) error {
	return e.applyBribeStake(ctx, ev, false)
}

func (e *Engine) handleBribeWithdrawn(ctx context.Context, ev model.TypedEvent) error {
	return e.applyBribeStake(ctx, ev, true)
}

func (e *Engine) applyBribeStake(ctx context.Context, ev model.TypedEvent, withdraw bool) error {
	p := paramReader{params: ev.Params}
	tokenID := p.bigInt("tokenId")
	amount := p.bigInt("amount")
	if p.err != nil {
		return invalid(p.err)
	}

	bribe, err := e.loadBribe(ctx, ev)
	if err != nil || bribe == nil {
		return err
	}

	start := e.stakeEpoch(ctx, bribe.Address, ev)
	stake, ve, err := e.epochStake(ctx, bribe.Address, tokenID, start)
	if err != nil {
		return err
	}

	weight := rawDecimal(amount)
	record := &model.BribeEvent{
		ID:         ev.ID(),
		Type:       model.BribeEventStake,
		Bribe:      bribe.Address,
		TokenID:    tokenID.String(),
		Amount:     weight,
		EpochStart: start,
		Block:      ev.BlockNumber,
		Timestamp:  ev.Timestamp,
	}
	if withdraw {
		record.Type = model.BribeEventWithdraw
		bribe.TotalVotingPower = e.clampSub(bribe.TotalVotingPower, weight, "bribe_voting_power", bribe.Address)
		stake.TotalWeight = e.clampSub(stake.TotalWeight, weight, "epoch_total_weight", stake.ID)
		ve.Weight = e.clampSub(ve.Weight, weight, "epoch_ve_weight", ve.ID)
	} else {
		bribe.TotalVotingPower = bribe.TotalVotingPower.Add(weight)
		stake.TotalWeight = stake.TotalWeight.Add(weight)
		ve.Weight = ve.Weight.Add(weight)
	}
	bribe.Touch(ev.BlockNumber, ev.Timestamp)
	stake.Touch(ev.BlockNumber, ev.Timestamp)
	ve.Touch(ev.BlockNumber, ev.Timestamp)

	return e.upsert(ctx, record, bribe, stake, ve)
}

func (e *Engine) epochStake(ctx context.Context, bribe string, tokenID *big.Int, start uint64) (*model.BribeEpochStake, *model.BribeEpochVeStake, error) {
	stakeID := model.BribeEpochStakeID(bribe, start)
	stake, _, err := entity.GetOrCreate[model.BribeEpochStake](ctx, e.store, stakeID, func() *model.BribeEpochStake {
		return &model.BribeEpochStake{ID: stakeID, Bribe: bribe, EpochStart: start}
	})
	if err != nil {
		return nil, nil, err
	}

	token := tokenID.String()
	veID := model.JoinID(stakeID, token)
	ve, _, err := entity.GetOrCreate[model.BribeEpochVeStake](ctx, e.store, veID, func() *model.BribeEpochVeStake {
		return &model.BribeEpochVeStake{
			ID:         veID,
			Bribe:      bribe,
			EpochStake: stakeID,
			TokenID:    token,
			EpochStart: start,
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return stake, ve, nil
}

func (e *Engine) handleBribeRewardAdded(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	tokenAddr := p.address("rewardToken")
	raw := p.bigInt("reward")
	startTs := p.bigInt("startTimestamp")
	if p.err != nil {
		return invalid(p.err)
	}
	if !startTs.IsUint64() {
		return invalid(errOutOfRange("startTimestamp", startTs))
	}

	bribe, err := e.loadBribe(ctx, ev)
	if err != nil || bribe == nil {
		return err
	}
	token, err := e.token(ctx, tokenAddr, ev)
	if err != nil {
		return err
	}

	reward := toDecimal(raw, token.Decimals)
	start := epoch.Start(startTs.Uint64())
	end := start + epoch.Week

	rtID := model.JoinID(bribe.Address, token.Address)
	rewardToken, created, err := entity.GetOrCreate[model.BribeRewardToken](ctx, e.store, rtID, func() *model.BribeRewardToken {
		return &model.BribeRewardToken{ID: rtID, Bribe: bribe.Address, Token: token.Address}
	})
	if err != nil {
		return err
	}
	if created {
		bribe.RewardTokenCount++
	}
	rewardToken.TotalRewards = rewardToken.TotalRewards.Add(reward)
	rewardToken.EpochCount++
	rewardToken.Touch(ev.BlockNumber, ev.Timestamp)

	erID := model.BribeEpochRewardID(bribe.Address, token.Address, start)
	epochReward, _, err := entity.GetOrCreate[model.BribeEpochReward](ctx, e.store, erID, func() *model.BribeEpochReward {
		return &model.BribeEpochReward{
			ID:         erID,
			Bribe:      bribe.Address,
			Token:      token.Address,
			EpochStart: start,
			EpochEnd:   end,
		}
	})
	if err != nil {
		return err
	}
	epochReward.Reward = epochReward.Reward.Add(reward)
	epochReward.Touch(ev.BlockNumber, ev.Timestamp)

	var pairReward *model.PairBribeEpochReward
	if bribe.Pair != "" {
		pairReward, err = e.pairBribeReward(ctx, bribe, token.Address, start, reward)
		if err != nil {
			return err
		}
		pairReward.Touch(ev.BlockNumber, ev.Timestamp)
	}
	bribe.Touch(ev.BlockNumber, ev.Timestamp)

	record := &model.BribeEvent{
		ID:         ev.ID(),
		Type:       model.BribeEventRewardAdded,
		Bribe:      bribe.Address,
		Token:      token.Address,
		Amount:     reward,
		EpochStart: start,
		Block:      ev.BlockNumber,
		Timestamp:  ev.Timestamp,
	}
	if pairReward == nil {
		return e.upsert(ctx, record, bribe, rewardToken, epochReward)
	}
	return e.upsert(ctx, record, bribe, rewardToken, epochReward, pairReward)
}

// pairBribeReward rolls a reward up to the bribe's pair. Internal and
// external bribes of one pair share the row; the flag follows the latest
// contributor.
func (e *Engine) pairBribeReward(ctx context.Context, bribe *model.Bribe, token string, start uint64, reward decimal.Decimal) (*model.PairBribeEpochReward, error) {
	id := model.JoinID(bribe.Pair, model.EpochPart(start), token)
	row, _, err := entity.GetOrCreate[model.PairBribeEpochReward](ctx, e.store, id, func() *model.PairBribeEpochReward {
		return &model.PairBribeEpochReward{
			ID:         id,
			Pair:       bribe.Pair,
			Token:      token,
			EpochStart: start,
			EpochEnd:   start + epoch.Week,
		}
	})
	if err != nil {
		return nil, err
	}
	row.Bribe = bribe.Address
	if bribe.Gauge != "" {
		row.Gauge = bribe.Gauge
	}
	row.Internal = bribe.Type == model.BribeInternal
	row.Reward = row.Reward.Add(reward)
	return row, nil
}

func (e *Engine) handleBribeRewardPaid(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	user := p.address("user")
	tokenAddr := p.address("rewardsToken")
	raw := p.bigInt("reward")
	if p.err != nil {
		return invalid(p.err)
	}

	bribe, err := e.loadBribe(ctx, ev)
	if err != nil || bribe == nil {
		return err
	}
	token, err := e.token(ctx, tokenAddr, ev)
	if err != nil {
		return err
	}

	return e.store.Upsert(ctx, &model.BribeEvent{
		ID:        ev.ID(),
		Type:      model.BribeEventRewardPaid,
		Bribe:     bribe.Address,
		User:      user,
		Token:     token.Address,
		Amount:    toDecimal(raw, token.Decimals),
		Block:     ev.BlockNumber,
		Timestamp: ev.Timestamp,
	})
}

func (e *Engine) handleBribeSetOwner(ctx context.Context, ev model.TypedEvent) error {
	owner, err := ev.Params.Address("_owner")
	if err != nil {
		return invalid(err)
	}
	bribe, err := e.loadBribe(ctx, ev)
	if err != nil || bribe == nil {
		return err
	}
	bribe.Owner = owner
	bribe.Touch(ev.BlockNumber, ev.Timestamp)
	return e.store.Upsert(ctx, bribe)
}
