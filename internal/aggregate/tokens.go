package aggregate

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lithosScope/internal/entity"
	"lithosScope/internal/epoch"
	"lithosScope/internal/model"
)

// token returns the registry entry for address, reading ERC20 metadata and
// persisting a new row on first sight.
func (e *Engine) token(ctx context.Context, address string, ev model.TypedEvent) (*model.Token, error) {
	address = strings.ToLower(address)
	tok, created, err := entity.GetOrCreate[model.Token](ctx, e.store, address, func() *model.Token {
		meta := e.reader.TokenMeta(ctx, address).WithDefaults()
		t := &model.Token{
			Address:  address,
			Symbol:   meta.Symbol,
			Name:     meta.Name,
			Decimals: meta.Decimals,
		}
		if e.isUSD(address) {
			t.DerivedUSD = decimal.NewFromInt(1)
		}
		return t
	})
	if err != nil {
		return nil, err
	}
	if created {
		tok.Touch(ev.BlockNumber, ev.Timestamp)
		if err := e.store.Upsert(ctx, tok); err != nil {
			return nil, fmt.Errorf("create token %s: %w", address, err)
		}
		e.logger.Debug("token registered",
			zap.String("token", address),
			zap.String("symbol", tok.Symbol),
			zap.Uint8("decimals", tok.Decimals),
		)
	}
	return tok, nil
}

func (e *Engine) pairTokens(ctx context.Context, pair *model.Pair, ev model.TypedEvent) (*model.Token, *model.Token, error) {
	t0, err := e.token(ctx, pair.Token0, ev)
	if err != nil {
		return nil, nil, err
	}
	t1, err := e.token(ctx, pair.Token1, ev)
	if err != nil {
		return nil, nil, err
	}
	return t0, t1, nil
}

func (e *Engine) isUSD(address string) bool {
	_, ok := e.usd[strings.ToLower(address)]
	return ok
}

// derivePrices propagates a reference price across a pair's reserves. The
// side closer to a configured USD token prices the other. A token keeps the
// pair that priced it so each Sync of that pair refreshes the price; another
// pair takes over only with a shorter path to USD.
func (e *Engine) derivePrices(pair string, t0, t1 *model.Token, reserve0, reserve1 decimal.Decimal) {
	if reserve0.IsZero() || reserve1.IsZero() {
		return
	}
	h0, ok0 := e.priceHops(t0)
	h1, ok1 := e.priceHops(t1)
	switch {
	case ok0 && (!ok1 || h0 < h1):
		e.priceFrom(pair, t0, t1, h0, reserve0, reserve1)
	case ok1 && (!ok0 || h1 < h0):
		e.priceFrom(pair, t1, t0, h1, reserve1, reserve0)
	}
}

// priceHops is the number of pairs between t and a USD token.
func (e *Engine) priceHops(t *model.Token) (uint64, bool) {
	if e.isUSD(t.Address) {
		return 0, true
	}
	if t.Price() == nil {
		return 0, false
	}
	return t.PriceHops, true
}

func (e *Engine) priceFrom(pair string, src, dst *model.Token, hops uint64, srcReserve, dstReserve decimal.Decimal) {
	if e.isUSD(dst.Address) {
		return
	}
	if dst.Price() != nil && dst.PriceSource != pair && dst.PriceHops <= hops+1 {
		return
	}
	dst.DerivedUSD = src.DerivedUSD.Mul(srcReserve).Div(dstReserve)
	dst.PriceSource = pair
	dst.PriceHops = hops + 1
}

func (e *Engine) pairBucket(ctx context.Context, pair *model.Pair, ts uint64) (*model.EpochBucket, error) {
	start := epoch.Start(ts)
	id := model.EpochBucketID(model.SubjectPair, pair.Address, start)
	b, _, err := entity.GetOrCreate[model.EpochBucket](ctx, e.store, id, func() *model.EpochBucket {
		return &model.EpochBucket{
			ID:         id,
			Subject:    model.SubjectPair,
			SubjectID:  pair.Address,
			Token0:     pair.Token0,
			Token1:     pair.Token1,
			EpochStart: start,
			EpochEnd:   epoch.End(ts),
		}
	})
	return b, err
}

func (e *Engine) gaugeBucket(ctx context.Context, gauge *model.Gauge, ts uint64) (*model.EpochBucket, error) {
	start := epoch.Start(ts)
	id := model.EpochBucketID(model.SubjectGauge, gauge.Address, start)
	b, _, err := entity.GetOrCreate[model.EpochBucket](ctx, e.store, id, func() *model.EpochBucket {
		return &model.EpochBucket{
			ID:         id,
			Subject:    model.SubjectGauge,
			SubjectID:  gauge.Address,
			EpochStart: start,
			EpochEnd:   epoch.End(ts),
		}
	})
	return b, err
}
