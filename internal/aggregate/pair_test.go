package aggregate

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lithosScope/internal/epoch"
	"lithosScope/internal/model"
)

func TestPairCreatedRegistersTokensAndPair(t *testing.T) {
	h := newHarness(t)
	h.reader.feeErr = nil
	h.reader.feeRef, h.reader.feeStake = 1500, 2500
	h.createPair()

	pair := mustGet[model.Pair](t, h.store, pairAddr)
	assert.Equal(t, lithAddr, pair.Token0)
	assert.Equal(t, usdtAddr, pair.Token1)
	assert.False(t, pair.Stable)
	assert.Equal(t, uint64(10), pair.CreatedAtBlock)

	factory := mustGet[model.Factory](t, h.store, model.FactoryID)
	assert.Equal(t, uint64(1), factory.PairCount)
	assert.Equal(t, uint64(1500), factory.ReferralFeeBps)
	assert.Equal(t, uint64(2500), factory.StakingFeeBps)

	usdt := mustGet[model.Token](t, h.store, usdtAddr)
	assert.Equal(t, uint8(6), usdt.Decimals)
	assertDecimal(t, "1", usdt.DerivedUSD)

	lith := mustGet[model.Token](t, h.store, lithAddr)
	assert.Equal(t, "LITH", lith.Symbol)
	assert.Nil(t, lith.Price())

	// a replayed PairCreated does not double count
	h.createPair()
	factory = mustGet[model.Factory](t, h.store, model.FactoryID)
	assert.Equal(t, uint64(1), factory.PairCount)
}

func TestUnknownTokenDefaults(t *testing.T) {
	h := newHarness(t)
	h.handle(model.ContractPairFactory, "PairCreated", factoryAddr, 10, baseTs, model.Params{
		"token0": otherAddr,
		"token1": usdtAddr,
		"stable": "true",
		"pair":   pairAddr,
		"index":  "0",
	})
	tok := mustGet[model.Token](t, h.store, otherAddr)
	assert.Equal(t, model.UnknownSymbol, tok.Symbol)
	assert.Equal(t, model.UnknownName, tok.Name)
	assert.Equal(t, model.DefaultDecimals, tok.Decimals)

	factory := mustGet[model.Factory](t, h.store, model.FactoryID)
	assert.Equal(t, model.DefaultReferralFeeBps, factory.ReferralFeeBps, "failed fee read keeps defaults")
}

func syncPair(h *harness, block uint64, reserve0, reserve1 string) {
	h.handle(model.ContractPair, "Sync", pairAddr, block, baseTs, model.Params{
		"reserve0": reserve0,
		"reserve1": reserve1,
	})
}

func TestSyncPricesAndLiquidity(t *testing.T) {
	h := newHarness(t)
	h.createPair()

	// 1000 LITH against 96 USDT
	syncPair(h, 12, "1000000000000000000000", "96000000")

	pair := mustGet[model.Pair](t, h.store, pairAddr)
	assertDecimal(t, "1000", pair.Reserve0)
	assertDecimal(t, "96", pair.Reserve1)
	assertDecimal(t, "0.096", pair.Token0Price)
	assertDecimal(t, "192", pair.ReserveUSD)
	assert.Equal(t, uint64(12), pair.LastUpdateBlock)

	lith := mustGet[model.Token](t, h.store, lithAddr)
	assertDecimal(t, "0.096", lith.DerivedUSD)
	assertDecimal(t, "1000", lith.TotalLiquidity)

	usdt := mustGet[model.Token](t, h.store, usdtAddr)
	assertDecimal(t, "1", usdt.DerivedUSD, "reference price is never overwritten")

	// reserves shrink: token liquidity follows the delta
	syncPair(h, 13, "800000000000000000000", "76800000")
	lith = mustGet[model.Token](t, h.store, lithAddr)
	assertDecimal(t, "800", lith.TotalLiquidity)
}

func TestSyncZeroReservesKeepPrices(t *testing.T) {
	h := newHarness(t)
	h.createPair()
	syncPair(h, 12, "1000000000000000000000", "96000000")
	syncPair(h, 13, "0", "0")

	pair := mustGet[model.Pair](t, h.store, pairAddr)
	assertDecimal(t, "0.096", pair.Token0Price)
	assert.True(t, pair.Reserve0.IsZero())

	lith := mustGet[model.Token](t, h.store, lithAddr)
	assertDecimal(t, "0.096", lith.DerivedUSD)
}

func TestDerivedPriceFollowsSourcePair(t *testing.T) {
	h := newHarness(t)
	h.createPair()
	const otherPair = "0xb000000000000000000000000000000000000009"
	h.handle(model.ContractPairFactory, "PairCreated", factoryAddr, 10, baseTs, model.Params{
		"token0": lithAddr,
		"token1": otherAddr,
		"stable": "false",
		"pair":   otherPair,
		"index":  "1",
	})
	syncOther := func(block uint64, reserve0, reserve1 string) {
		h.handle(model.ContractPair, "Sync", otherPair, block, baseTs, model.Params{
			"reserve0": reserve0,
			"reserve1": reserve1,
		})
	}

	syncPair(h, 12, "1000000000000000000000", "96000000")
	// 100 LITH against 20 OTHER: OTHER is worth 5 LITH
	syncOther(13, "100000000000000000000", "20000000000000000000")

	other := mustGet[model.Token](t, h.store, otherAddr)
	assertDecimal(t, "0.48", other.DerivedUSD)
	assert.Equal(t, otherPair, other.PriceSource)
	assert.Equal(t, uint64(2), other.PriceHops)

	// reserves move to 100:10, OTHER is now worth 10 LITH
	syncOther(14, "100000000000000000000", "10000000000000000000")
	other = mustGet[model.Token](t, h.store, otherAddr)
	assertDecimal(t, "0.96", other.DerivedUSD)

	lith := mustGet[model.Token](t, h.store, lithAddr)
	assertDecimal(t, "0.096", lith.DerivedUSD, "a longer path never reprices a token")
	assert.Equal(t, pairAddr, lith.PriceSource)
	assert.Equal(t, uint64(1), lith.PriceHops)

	// LITH moves on its USD pair, the next OTHER sync picks it up
	syncPair(h, 15, "1000000000000000000000", "200000000")
	syncOther(16, "100000000000000000000", "10000000000000000000")
	other = mustGet[model.Token](t, h.store, otherAddr)
	assertDecimal(t, "2", other.DerivedUSD)
}

func TestSwapVolumes(t *testing.T) {
	h := newHarness(t)
	h.createPair()
	syncPair(h, 12, "1000000000000000000000", "96000000")

	h.handle(model.ContractPair, "Swap", pairAddr, 13, baseTs, model.Params{
		"sender":     aliceAddr,
		"to":         bobAddr,
		"amount0In":  "10000000000000000000",
		"amount1In":  "0",
		"amount0Out": "0",
		"amount1Out": "960000",
	})

	pair := mustGet[model.Pair](t, h.store, pairAddr)
	assertDecimal(t, "10", pair.VolumeToken0)
	assertDecimal(t, "0.96", pair.VolumeToken1)
	assertDecimal(t, "0.96", pair.VolumeUSD)
	assert.Equal(t, uint64(1), pair.TxCount)

	user := mustGet[model.User](t, h.store, bobAddr)
	assertDecimal(t, "0.96", user.USDSwapped)

	factory := mustGet[model.Factory](t, h.store, model.FactoryID)
	assertDecimal(t, "0.96", factory.TotalVolumeUSD)
	assert.Equal(t, uint64(1), factory.TxCount)

	bucket := mustGet[model.EpochBucket](t, h.store, model.EpochBucketID(model.SubjectPair, pairAddr, epoch.Start(baseTs)))
	assertDecimal(t, "10", bucket.VolumeToken0)
	assert.Equal(t, uint64(1), bucket.TxCount)
	assert.Equal(t, epoch.End(baseTs), bucket.EpochEnd)

	lith := mustGet[model.Token](t, h.store, lithAddr)
	assertDecimal(t, "10", lith.TradeVolume)
	assert.Equal(t, uint64(1), lith.TxCount)

	assert.Equal(t, 1, h.store.Count(model.KindPairEvent))
}

func TestFeesSplitIntoBuckets(t *testing.T) {
	h := newHarness(t)
	h.createPair()
	syncPair(h, 12, "1000000000000000000000", "96000000")

	h.handle(model.ContractPair, "Fees", pairAddr, 13, baseTs, model.Params{
		"sender":  aliceAddr,
		"amount0": "1000000000000000000",
		"amount1": "0",
	})

	pair := mustGet[model.Pair](t, h.store, pairAddr)
	assertDecimal(t, "0.12", pair.Fees.Referral.Token0)
	assertDecimal(t, "0.264", pair.Fees.Staking.Token0)
	assertDecimal(t, "0.616", pair.Fees.LP.Token0)
	assertDecimal(t, "0.02956800", pair.Fees.LP.USD)

	bucket := mustGet[model.EpochBucket](t, h.store, model.EpochBucketID(model.SubjectPair, pairAddr, epoch.Start(baseTs)))
	assertDecimal(t, "0.616", bucket.Fees.LP.Token0)

	// next week opens a new bucket, cumulative totals keep growing
	h.handle(model.ContractPair, "Fees", pairAddr, 14, baseTs+epoch.Week, model.Params{
		"sender":  aliceAddr,
		"amount0": "1000000000000000000",
		"amount1": "0",
	})
	pair = mustGet[model.Pair](t, h.store, pairAddr)
	assertDecimal(t, "1.232", pair.Fees.LP.Token0)
	next := mustGet[model.EpochBucket](t, h.store, model.EpochBucketID(model.SubjectPair, pairAddr, epoch.Next(baseTs)))
	assertDecimal(t, "0.616", next.Fees.LP.Token0)
}

func TestFeesUnknownPairIsNoop(t *testing.T) {
	h := newHarness(t)
	h.handle(model.ContractPair, "Fees", pairAddr, 13, baseTs, model.Params{
		"sender":  aliceAddr,
		"amount0": "1000",
		"amount1": "0",
	})
	assert.Equal(t, 0, h.store.Count(model.KindPair))
	assert.Equal(t, 0, h.store.Count(model.KindEpochBucket))
}

func TestMintBurnTotalSupply(t *testing.T) {
	h := newHarness(t)
	h.createPair()
	h.reader.supply[pairAddr] = new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))

	mintEv := h.handle(model.ContractPair, "Mint", pairAddr, 12, baseTs, model.Params{
		"sender":  aliceAddr,
		"amount0": "1000000000000000000000",
		"amount1": "96000000",
	})
	pair := mustGet[model.Pair](t, h.store, pairAddr)
	assertDecimal(t, "100", pair.TotalSupply)

	mint := mustGet[model.PairEvent](t, h.store, mintEv.ID())
	assert.Equal(t, model.PairEventMint, mint.Type)
	assertDecimal(t, "100", mint.Liquidity)
	assertDecimal(t, "1000", mint.Amount0In)

	delete(h.reader.supply, pairAddr)
	burnEv := h.handle(model.ContractPair, "Burn", pairAddr, 13, baseTs, model.Params{
		"sender":  aliceAddr,
		"to":      bobAddr,
		"amount0": "10",
		"amount1": "10",
	})
	pair = mustGet[model.Pair](t, h.store, pairAddr)
	assertDecimal(t, "100", pair.TotalSupply, "failed read keeps the supply")
	assert.Equal(t, uint64(2), pair.TxCount)

	burn := mustGet[model.PairEvent](t, h.store, burnEv.ID())
	assert.Equal(t, bobAddr, burn.To)
	assert.True(t, burn.Liquidity.IsZero())
}

func TestTransferMovesPositions(t *testing.T) {
	h := newHarness(t)
	h.createPair()

	transfer := func(block uint64, from, to, amount string) {
		h.handle(model.ContractPair, "Transfer", pairAddr, block, baseTs, model.Params{
			"from":   from,
			"to":     to,
			"amount": amount,
		})
	}

	transfer(12, zeroAddress, aliceAddr, "5000000000000000000")
	transfer(13, aliceAddr, bobAddr, "2000000000000000000")
	transfer(14, bobAddr, pairAddr, "9000000000000000000")

	alice := mustGet[model.LiquidityPosition](t, h.store, model.JoinID(pairAddr, aliceAddr))
	assertDecimal(t, "3", alice.Balance)

	bob := mustGet[model.LiquidityPosition](t, h.store, model.JoinID(pairAddr, bobAddr))
	assertDecimal(t, "0", bob.Balance, "over-withdrawal clamps at zero")

	assert.Equal(t, 2, h.store.Count(model.KindLiquidityPosition), "zero address and pair hold no position")

	h.handle(model.ContractPair, "Claim", pairAddr, 15, baseTs, model.Params{
		"sender":    aliceAddr,
		"recipient": aliceAddr,
		"amount0":   "1",
		"amount1":   "1",
	})
	alice = mustGet[model.LiquidityPosition](t, h.store, model.JoinID(pairAddr, aliceAddr))
	assert.Equal(t, uint64(1), alice.ClaimCount)
}

func TestSwapRequiresParams(t *testing.T) {
	h := newHarness(t)
	h.createPair()
	err := h.engine.Handle(h.ctx, h.event(model.ContractPair, "Swap", pairAddr, 12, baseTs, model.Params{
		"sender": aliceAddr,
	}))
	require.ErrorIs(t, err, ErrInvalidEvent)
}
