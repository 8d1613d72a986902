package aggregate

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
)

const bpsDenominator = 10000

// FeeSplit is one raw fee amount divided into its three shares.
type FeeSplit struct {
	Referral *big.Int
	Staking  *big.Int
	LP       *big.Int
}

// SplitFee divides a raw fee. Referral is taken first, staking from the
// remainder, and LP receives what is left including truncation dust, so the
// shares always sum to amount.
func SplitFee(amount *big.Int, referralBps, stakingBps uint64) FeeSplit {
	if amount == nil || amount.Sign() <= 0 {
		return FeeSplit{Referral: new(big.Int), Staking: new(big.Int), LP: new(big.Int)}
	}
	denom := big.NewInt(bpsDenominator)

	referral := new(big.Int).Mul(amount, new(big.Int).SetUint64(referralBps))
	referral.Quo(referral, denom)

	afterRef := new(big.Int).Sub(amount, referral)
	if afterRef.Sign() < 0 {
		afterRef.SetInt64(0)
	}

	staking := new(big.Int).Mul(afterRef, new(big.Int).SetUint64(stakingBps))
	staking.Quo(staking, denom)

	lp := new(big.Int).Sub(afterRef, staking)
	if lp.Sign() < 0 {
		lp.SetInt64(0)
	}
	return FeeSplit{Referral: referral, Staking: staking, LP: lp}
}

func (e *Engine) handleFees(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	amount0 := p.bigInt("amount0")
	amount1 := p.bigInt("amount1")
	if p.err != nil {
		return invalid(p.err)
	}

	pair, err := entity.Get[model.Pair](ctx, e.store, ev.Contract())
	if err != nil {
		return err
	}
	if pair == nil {
		e.logger.Debug("fees for unknown pair", zap.String("pair", ev.Contract()))
		return nil
	}
	factory, err := e.factory(ctx)
	if err != nil {
		return err
	}
	t0, t1, err := e.pairTokens(ctx, pair, ev)
	if err != nil {
		return err
	}

	split0 := SplitFee(amount0, factory.ReferralFeeBps, factory.StakingFeeBps)
	split1 := SplitFee(amount1, factory.ReferralFeeBps, factory.StakingFeeBps)
	bucket := func(raw0, raw1 *big.Int) model.FeeBucket {
		a0 := toDecimal(raw0, t0.Decimals)
		a1 := toDecimal(raw1, t1.Decimals)
		return model.FeeBucket{
			Token0: a0,
			Token1: a1,
			USD:    TrackedVolumeUSD(a0, t0.Price(), a1, t1.Price()),
		}
	}
	totals := model.FeeTotals{
		LP:       bucket(split0.LP, split1.LP),
		Referral: bucket(split0.Referral, split1.Referral),
		Staking:  bucket(split0.Staking, split1.Staking),
	}

	epochBucket, err := e.pairBucket(ctx, pair, ev.Timestamp)
	if err != nil {
		return err
	}

	pair.Fees.Add(totals)
	pair.LastUpdateBlock = ev.BlockNumber
	pair.LastUpdateTimestamp = ev.Timestamp
	epochBucket.Fees.Add(totals)
	epochBucket.Touch(ev.BlockNumber, ev.Timestamp)
	factory.TotalFeesUSD = factory.TotalFeesUSD.
		Add(totals.LP.USD).
		Add(totals.Referral.USD).
		Add(totals.Staking.USD)
	factory.Touch(ev.BlockNumber, ev.Timestamp)

	return e.upsert(ctx, pair, epochBucket, factory)
}
