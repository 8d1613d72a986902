package aggregate

import (
	"context"

	"go.uber.org/zap"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
)

func (e *Engine) handlePairCreated(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	token0 := p.address("token0")
	token1 := p.address("token1")
	pairAddr := p.address("pair")
	if p.err != nil {
		return invalid(p.err)
	}
	stable, err := ev.Params.Bool("stable")
	if err != nil {
		return invalid(err)
	}

	existing, err := entity.Get[model.Pair](ctx, e.store, pairAddr)
	if err != nil {
		return err
	}
	if existing != nil {
		e.logger.Debug("pair already registered", zap.String("pair", pairAddr))
		return nil
	}

	factory, err := e.factory(ctx)
	if err != nil {
		return err
	}
	if factory.Address == "" {
		factory.Address = ev.Contract()
	}
	if ref, stake, err := e.reader.FeePolicy(ctx, ev.Contract(), ev.BlockNumber); err == nil {
		factory.ReferralFeeBps = ref
		factory.StakingFeeBps = stake
	} else {
		e.logger.Debug("fee policy read failed, keeping stored policy",
			zap.String("factory", ev.Contract()),
			zap.Error(err),
		)
	}
	factory.PairCount++
	factory.Touch(ev.BlockNumber, ev.Timestamp)

	if _, err := e.token(ctx, token0, ev); err != nil {
		return err
	}
	if _, err := e.token(ctx, token1, ev); err != nil {
		return err
	}

	pair := &model.Pair{
		Address:             pairAddr,
		Token0:              token0,
		Token1:              token1,
		Stable:              stable,
		CreatedAtBlock:      ev.BlockNumber,
		CreatedAtTimestamp:  ev.Timestamp,
		LastUpdateBlock:     ev.BlockNumber,
		LastUpdateTimestamp: ev.Timestamp,
	}

	e.logger.Info("pair created",
		zap.String("pair", pairAddr),
		zap.String("token0", token0),
		zap.String("token1", token1),
		zap.Bool("stable", stable),
	)
	return e.upsert(ctx, pair, factory)
}
