package aggregate

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
)

func (e *Engine) loadPair(ctx context.Context, ev model.TypedEvent) (*model.Pair, error) {
	pair, err := entity.Get[model.Pair](ctx, e.store, ev.Contract())
	if err != nil {
		return nil, err
	}
	if pair == nil {
		e.logger.Debug("event for unknown pair",
			zap.String("pair", ev.Contract()),
			zap.String("event", ev.EventName),
		)
	}
	return pair, nil
}

func (e *Engine) handleSync(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	raw0 := p.bigInt("reserve0")
	raw1 := p.bigInt("reserve1")
	if p.err != nil {
		return invalid(p.err)
	}

	pair, err := e.loadPair(ctx, ev)
	if err != nil || pair == nil {
		return err
	}
	t0, t1, err := e.pairTokens(ctx, pair, ev)
	if err != nil {
		return err
	}

	reserve0 := toDecimal(raw0, t0.Decimals)
	reserve1 := toDecimal(raw1, t1.Decimals)

	t0.TotalLiquidity = t0.TotalLiquidity.Add(reserve0.Sub(pair.Reserve0))
	t1.TotalLiquidity = t1.TotalLiquidity.Add(reserve1.Sub(pair.Reserve1))

	pair.Reserve0 = reserve0
	pair.Reserve1 = reserve1
	if !reserve0.IsZero() {
		pair.Token0Price = reserve1.Div(reserve0)
	}
	if !reserve1.IsZero() {
		pair.Token1Price = reserve0.Div(reserve1)
	}

	e.derivePrices(pair.Address, t0, t1, reserve0, reserve1)
	pair.ReserveUSD = TrackedLiquidityUSD(reserve0, t0.Price(), reserve1, t1.Price())
	pair.LastUpdateBlock = ev.BlockNumber
	pair.LastUpdateTimestamp = ev.Timestamp
	t0.Touch(ev.BlockNumber, ev.Timestamp)
	t1.Touch(ev.BlockNumber, ev.Timestamp)

	return e.upsert(ctx, pair, t0, t1)
}

func (e *Engine) handleMint(ctx context.Context, ev model.TypedEvent) error {
	return e.handleLiquidity(ctx, ev, model.PairEventMint)
}

func (e *Engine) handleBurn(ctx context.Context, ev model.TypedEvent) error {
	return e.handleLiquidity(ctx, ev, model.PairEventBurn)
}

func (e *Engine) handleLiquidity(ctx context.Context, ev model.TypedEvent, kind model.PairEventType) error {
	p := paramReader{params: ev.Params}
	sender := p.address("sender")
	amount0 := p.bigInt("amount0")
	amount1 := p.bigInt("amount1")
	var to string
	if kind == model.PairEventBurn {
		to = p.address("to")
	}
	if p.err != nil {
		return invalid(p.err)
	}

	pair, err := e.loadPair(ctx, ev)
	if err != nil || pair == nil {
		return err
	}
	t0, t1, err := e.pairTokens(ctx, pair, ev)
	if err != nil {
		return err
	}
	factory, err := e.factory(ctx)
	if err != nil {
		return err
	}
	bucket, err := e.pairBucket(ctx, pair, ev.Timestamp)
	if err != nil {
		return err
	}

	a0 := toDecimal(amount0, t0.Decimals)
	a1 := toDecimal(amount1, t1.Decimals)

	liquidity := decimal.Zero
	if supply, err := e.reader.TotalSupply(ctx, pair.Address, ev.BlockNumber); err == nil {
		next := toDecimal(supply, lpDecimals)
		liquidity = next.Sub(pair.TotalSupply).Abs()
		pair.TotalSupply = next
	} else {
		e.logger.Debug("totalSupply read failed, keeping stored supply",
			zap.String("pair", pair.Address),
			zap.Error(err),
		)
	}

	record := &model.PairEvent{
		ID:        ev.ID(),
		Type:      kind,
		Pair:      pair.Address,
		Sender:    sender,
		To:        to,
		Liquidity: liquidity,
		AmountUSD: TrackedVolumeUSD(a0, t0.Price(), a1, t1.Price()),
		Block:     ev.BlockNumber,
		Timestamp: ev.Timestamp,
	}
	if kind == model.PairEventMint {
		record.Amount0In, record.Amount1In = a0, a1
	} else {
		record.Amount0Out, record.Amount1Out = a0, a1
	}

	e.countTx(ev, pair, t0, t1, factory, bucket)
	return e.upsert(ctx, record, pair, t0, t1, factory, bucket)
}

func (e *Engine) handleSwap(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	sender := p.address("sender")
	to := p.address("to")
	amount0In := p.bigInt("amount0In")
	amount1In := p.bigInt("amount1In")
	amount0Out := p.bigInt("amount0Out")
	amount1Out := p.bigInt("amount1Out")
	if p.err != nil {
		return invalid(p.err)
	}

	pair, err := e.loadPair(ctx, ev)
	if err != nil || pair == nil {
		return err
	}
	t0, t1, err := e.pairTokens(ctx, pair, ev)
	if err != nil {
		return err
	}
	factory, err := e.factory(ctx)
	if err != nil {
		return err
	}
	bucket, err := e.pairBucket(ctx, pair, ev.Timestamp)
	if err != nil {
		return err
	}
	user, err := e.user(ctx, to)
	if err != nil {
		return err
	}

	in0 := toDecimal(amount0In, t0.Decimals)
	in1 := toDecimal(amount1In, t1.Decimals)
	out0 := toDecimal(amount0Out, t0.Decimals)
	out1 := toDecimal(amount1Out, t1.Decimals)
	total0 := toDecimal(new(big.Int).Add(amount0In, amount0Out), t0.Decimals)
	total1 := toDecimal(new(big.Int).Add(amount1In, amount1Out), t1.Decimals)
	usd := TrackedVolumeUSD(total0, t0.Price(), total1, t1.Price())

	pair.VolumeToken0 = pair.VolumeToken0.Add(total0)
	pair.VolumeToken1 = pair.VolumeToken1.Add(total1)
	pair.VolumeUSD = pair.VolumeUSD.Add(usd)

	t0.TradeVolume = t0.TradeVolume.Add(total0)
	t0.TradeVolumeUSD = t0.TradeVolumeUSD.Add(usd)
	t1.TradeVolume = t1.TradeVolume.Add(total1)
	t1.TradeVolumeUSD = t1.TradeVolumeUSD.Add(usd)

	factory.TotalVolumeUSD = factory.TotalVolumeUSD.Add(usd)

	bucket.VolumeToken0 = bucket.VolumeToken0.Add(total0)
	bucket.VolumeToken1 = bucket.VolumeToken1.Add(total1)
	bucket.VolumeUSD = bucket.VolumeUSD.Add(usd)

	user.USDSwapped = user.USDSwapped.Add(usd)
	user.Touch(ev.BlockNumber, ev.Timestamp)

	record := &model.PairEvent{
		ID:         ev.ID(),
		Type:       model.PairEventSwap,
		Pair:       pair.Address,
		Sender:     sender,
		To:         to,
		Amount0In:  in0,
		Amount1In:  in1,
		Amount0Out: out0,
		Amount1Out: out1,
		AmountUSD:  usd,
		Block:      ev.BlockNumber,
		Timestamp:  ev.Timestamp,
	}

	e.countTx(ev, pair, t0, t1, factory, bucket)
	return e.upsert(ctx, record, pair, t0, t1, factory, bucket, user)
}

// countTx bumps every transaction counter touched by a pair action.
func (e *Engine) countTx(ev model.TypedEvent, pair *model.Pair, t0, t1 *model.Token, factory *model.Factory, bucket *model.EpochBucket) {
	pair.TxCount++
	pair.LastUpdateBlock = ev.BlockNumber
	pair.LastUpdateTimestamp = ev.Timestamp
	t0.TxCount++
	t0.Touch(ev.BlockNumber, ev.Timestamp)
	t1.TxCount++
	t1.Touch(ev.BlockNumber, ev.Timestamp)
	factory.TxCount++
	factory.Touch(ev.BlockNumber, ev.Timestamp)
	bucket.TxCount++
	bucket.Touch(ev.BlockNumber, ev.Timestamp)
}

// handleTransfer moves LP balances between positions. Mints from and burns
// to the zero address, and transfers through the pair itself, only touch
// the other side.
func (e *Engine) handleTransfer(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	from := p.address("from")
	to := p.address("to")
	raw := p.bigInt("amount")
	if p.err != nil {
		return invalid(p.err)
	}

	pair, err := e.loadPair(ctx, ev)
	if err != nil || pair == nil {
		return err
	}
	amount := toDecimal(raw, lpDecimals)
	if amount.IsZero() {
		return nil
	}

	if !isZeroAddress(from) && from != pair.Address {
		pos, err := e.position(ctx, pair.Address, from)
		if err != nil {
			return err
		}
		pos.Balance = e.clampSub(pos.Balance, amount, "lp_balance", pos.ID)
		pos.Touch(ev.BlockNumber, ev.Timestamp)
		if err := e.store.Upsert(ctx, pos); err != nil {
			return err
		}
	}
	if !isZeroAddress(to) && to != pair.Address {
		pos, err := e.position(ctx, pair.Address, to)
		if err != nil {
			return err
		}
		pos.Balance = pos.Balance.Add(amount)
		pos.Touch(ev.BlockNumber, ev.Timestamp)
		if err := e.store.Upsert(ctx, pos); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) handleClaim(ctx context.Context, ev model.TypedEvent) error {
	sender, err := ev.Params.Address("sender")
	if err != nil {
		return invalid(err)
	}
	pair, err := e.loadPair(ctx, ev)
	if err != nil || pair == nil {
		return err
	}
	pos, err := e.position(ctx, pair.Address, sender)
	if err != nil {
		return err
	}
	pos.ClaimCount++
	pos.Touch(ev.BlockNumber, ev.Timestamp)
	return e.store.Upsert(ctx, pos)
}

func (e *Engine) position(ctx context.Context, pair, user string) (*model.LiquidityPosition, error) {
	id := model.JoinID(pair, user)
	pos, _, err := entity.GetOrCreate[model.LiquidityPosition](ctx, e.store, id, func() *model.LiquidityPosition {
		return &model.LiquidityPosition{ID: id, Pair: pair, User: user}
	})
	return pos, err
}
