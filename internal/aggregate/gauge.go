package aggregate

import (
	"context"

	"go.uber.org/zap"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
)

func (e *Engine) loadGauge(ctx context.Context, ev model.TypedEvent) (*model.Gauge, error) {
	gauge, err := entity.Get[model.Gauge](ctx, e.store, ev.Contract())
	if err != nil {
		return nil, err
	}
	if gauge == nil {
		e.logger.Debug("event for unknown gauge",
			zap.String("gauge", ev.Contract()),
			zap.String("event", ev.EventName),
		)
	}
	return gauge, nil
}

func (e *Engine) gaugePosition(ctx context.Context, gauge, user string) (*model.GaugePosition, error) {
	id := model.JoinID(gauge, user)
	pos, _, err := entity.GetOrCreate[model.GaugePosition](ctx, e.store, id, func() *model.GaugePosition {
		return &model.GaugePosition{ID: id, Gauge: gauge, User: user}
	})
	return pos, err
}

func (e *Engine) handleGaugeDeposit(ctx context.Context, ev model.TypedEvent) error {
	return e.applyGaugeStake(ctx, ev, false)
}

func (e *Engine) handleGaugeWithdraw(ctx context.Context, ev model.TypedEvent) error {
	return e.applyGaugeStake(ctx, ev, true)
}

func (e *Engine) applyGaugeStake(ctx context.Context, ev model.TypedEvent, withdraw bool) error {
	p := paramReader{params: ev.Params}
	user := p.address("user")
	raw := p.bigInt("amount")
	if p.err != nil {
		return invalid(p.err)
	}

	gauge, err := e.loadGauge(ctx, ev)
	if err != nil || gauge == nil {
		return err
	}
	pos, err := e.gaugePosition(ctx, gauge.Address, user)
	if err != nil {
		return err
	}
	bucket, err := e.gaugeBucket(ctx, gauge, ev.Timestamp)
	if err != nil {
		return err
	}

	amount := toDecimal(raw, lpDecimals)
	if withdraw {
		pos.StakedBalance = e.clampSub(pos.StakedBalance, amount, "gauge_staked_balance", pos.ID)
		pos.TotalWithdrawn = pos.TotalWithdrawn.Add(amount)
		gauge.TotalStaked = e.clampSub(gauge.TotalStaked, amount, "gauge_total_staked", gauge.Address)
		bucket.Withdrawals = bucket.Withdrawals.Add(amount)
	} else {
		pos.StakedBalance = pos.StakedBalance.Add(amount)
		pos.TotalDeposited = pos.TotalDeposited.Add(amount)
		gauge.TotalStaked = gauge.TotalStaked.Add(amount)
		bucket.Deposits = bucket.Deposits.Add(amount)
	}
	bucket.TxCount++
	pos.Touch(ev.BlockNumber, ev.Timestamp)
	gauge.Touch(ev.BlockNumber, ev.Timestamp)
	bucket.Touch(ev.BlockNumber, ev.Timestamp)

	return e.upsert(ctx, pos, gauge, bucket)
}

func (e *Engine) handleGaugeHarvest(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	user := p.address("user")
	raw := p.bigInt("reward")
	if p.err != nil {
		return invalid(p.err)
	}

	gauge, err := e.loadGauge(ctx, ev)
	if err != nil || gauge == nil {
		return err
	}
	pos, err := e.gaugePosition(ctx, gauge.Address, user)
	if err != nil {
		return err
	}

	reward := toDecimal(raw, lpDecimals)
	pos.TotalRewardsClaimed = pos.TotalRewardsClaimed.Add(reward)
	gauge.TotalRewardsClaimed = gauge.TotalRewardsClaimed.Add(reward)
	pos.Touch(ev.BlockNumber, ev.Timestamp)
	gauge.Touch(ev.BlockNumber, ev.Timestamp)

	return e.upsert(ctx, pos, gauge)
}

func (e *Engine) handleGaugeRewardAdded(ctx context.Context, ev model.TypedEvent) error {
	raw, err := ev.Params.BigInt("reward")
	if err != nil {
		return invalid(err)
	}

	gauge, err := e.loadGauge(ctx, ev)
	if err != nil || gauge == nil {
		return err
	}
	bucket, err := e.gaugeBucket(ctx, gauge, ev.Timestamp)
	if err != nil {
		return err
	}

	reward := toDecimal(raw, lpDecimals)
	gauge.TotalRewardsDistributed = gauge.TotalRewardsDistributed.Add(reward)
	bucket.Rewards = bucket.Rewards.Add(reward)
	gauge.Touch(ev.BlockNumber, ev.Timestamp)
	bucket.Touch(ev.BlockNumber, ev.Timestamp)

	return e.upsert(ctx, gauge, bucket)
}

// handleGaugeClaimFees records fees the gauge pulled from its pair. Amounts
// scale by the pair's token decimals, or lpDecimals when the pair is not
// indexed.
func (e *Engine) handleGaugeClaimFees(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	from := p.address("from")
	raw0 := p.bigInt("claimed0")
	raw1 := p.bigInt("claimed1")
	if p.err != nil {
		return invalid(p.err)
	}

	gauge, err := e.loadGauge(ctx, ev)
	if err != nil || gauge == nil {
		return err
	}
	decimals0, decimals1 := uint8(lpDecimals), uint8(lpDecimals)
	pair, err := entity.Get[model.Pair](ctx, e.store, gauge.Pool)
	if err != nil {
		return err
	}
	if pair != nil {
		t0, t1, err := e.pairTokens(ctx, pair, ev)
		if err != nil {
			return err
		}
		decimals0, decimals1 = t0.Decimals, t1.Decimals
	}

	record := &model.GaugeEvent{
		ID:        ev.ID(),
		Type:      model.GaugeEventClaimFees,
		Gauge:     gauge.Address,
		From:      from,
		Claimed0:  toDecimal(raw0, decimals0),
		Claimed1:  toDecimal(raw1, decimals1),
		Block:     ev.BlockNumber,
		Timestamp: ev.Timestamp,
	}
	gauge.TotalFeesClaimed0 = gauge.TotalFeesClaimed0.Add(record.Claimed0)
	gauge.TotalFeesClaimed1 = gauge.TotalFeesClaimed1.Add(record.Claimed1)
	gauge.Touch(ev.BlockNumber, ev.Timestamp)

	return e.upsert(ctx, record, gauge)
}

func (e *Engine) handleGaugeEmergencyActivated(ctx context.Context, ev model.TypedEvent) error {
	return e.setGaugeEmergency(ctx, ev, true)
}

func (e *Engine) handleGaugeEmergencyDeactivated(ctx context.Context, ev model.TypedEvent) error {
	return e.setGaugeEmergency(ctx, ev, false)
}

func (e *Engine) setGaugeEmergency(ctx context.Context, ev model.TypedEvent, on bool) error {
	gauge, err := e.loadGauge(ctx, ev)
	if err != nil || gauge == nil {
		return err
	}

	kind := model.GaugeEventEmergencyDeactivated
	if on {
		kind = model.GaugeEventEmergencyActivated
	}
	if gauge.Emergency != on {
		e.logger.Info("gauge emergency mode",
			zap.String("gauge", gauge.Address),
			zap.Bool("active", on),
			zap.Uint64("block", ev.BlockNumber),
		)
	}
	gauge.Emergency = on
	gauge.Touch(ev.BlockNumber, ev.Timestamp)

	record := &model.GaugeEvent{
		ID:        ev.ID(),
		Type:      kind,
		Gauge:     gauge.Address,
		Block:     ev.BlockNumber,
		Timestamp: ev.Timestamp,
	}
	return e.upsert(ctx, record, gauge)
}
