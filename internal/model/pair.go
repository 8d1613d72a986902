package model

import "github.com/shopspring/decimal"

// Pair is a v2-style AMM pool.
type Pair struct {
	Address     string          `json:"address"`
	Token0      string          `json:"token0"`
	Token1      string          `json:"token1"`
	Stable      bool            `json:"stable"`
	Gauge       string          `json:"gauge,omitempty"`
	Reserve0    decimal.Decimal `json:"reserve0"`
	Reserve1    decimal.Decimal `json:"reserve1"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	ReserveUSD  decimal.Decimal `json:"reserve_usd"`
	Token0Price decimal.Decimal `json:"token0_price"`
	Token1Price decimal.Decimal `json:"token1_price"`

	VolumeToken0 decimal.Decimal `json:"volume_token0"`
	VolumeToken1 decimal.Decimal `json:"volume_token1"`
	VolumeUSD    decimal.Decimal `json:"volume_usd"`

	Fees FeeTotals `json:"fees"`

	TxCount             uint64 `json:"tx_count"`
	CreatedAtBlock      uint64 `json:"created_at_block"`
	CreatedAtTimestamp  uint64 `json:"created_at_timestamp"`
	LastUpdateBlock     uint64 `json:"last_update_block"`
	LastUpdateTimestamp uint64 `json:"last_update_timestamp"`
}

func (p *Pair) EntityKind() Kind { return KindPair }
func (p *Pair) EntityID() string { return p.Address }

// FeeBucket is one share of a fee split.
type FeeBucket struct {
	Token0 decimal.Decimal `json:"token0"`
	Token1 decimal.Decimal `json:"token1"`
	USD    decimal.Decimal `json:"usd"`
}

// Add accumulates another bucket.
func (b *FeeBucket) Add(o FeeBucket) {
	b.Token0 = b.Token0.Add(o.Token0)
	b.Token1 = b.Token1.Add(o.Token1)
	b.USD = b.USD.Add(o.USD)
}

// FeeTotals groups the LP, referral and staking buckets.
type FeeTotals struct {
	LP       FeeBucket `json:"lp"`
	Referral FeeBucket `json:"referral"`
	Staking  FeeBucket `json:"staking"`
}

// Add accumulates another set of totals.
func (f *FeeTotals) Add(o FeeTotals) {
	f.LP.Add(o.LP)
	f.Referral.Add(o.Referral)
	f.Staking.Add(o.Staking)
}

// PairEventType tags mint, burn and swap records.
type PairEventType string

const (
	PairEventMint PairEventType = "mint"
	PairEventBurn PairEventType = "burn"
	PairEventSwap PairEventType = "swap"
)

// PairEvent is the per-log record of a liquidity or swap action.
type PairEvent struct {
	ID         string          `json:"id"`
	Type       PairEventType   `json:"type"`
	Pair       string          `json:"pair"`
	Sender     string          `json:"sender"`
	To         string          `json:"to,omitempty"`
	Amount0In  decimal.Decimal `json:"amount0_in"`
	Amount1In  decimal.Decimal `json:"amount1_in"`
	Amount0Out decimal.Decimal `json:"amount0_out"`
	Amount1Out decimal.Decimal `json:"amount1_out"`
	Liquidity  decimal.Decimal `json:"liquidity"`
	AmountUSD  decimal.Decimal `json:"amount_usd"`
	Block      uint64          `json:"block"`
	Timestamp  uint64          `json:"timestamp"`
}

func (e *PairEvent) EntityKind() Kind { return KindPairEvent }
func (e *PairEvent) EntityID() string { return e.ID }

// User tracks per-account swap activity and escrow delegation.
type User struct {
	Address              string          `json:"address"`
	USDSwapped           decimal.Decimal `json:"usd_swapped"`
	DelegatedTo          string          `json:"delegated_to,omitempty"`
	DelegatedVotingPower decimal.Decimal `json:"delegated_voting_power"`
	Updated
}

func (u *User) EntityKind() Kind { return KindUser }
func (u *User) EntityID() string { return u.Address }

// LiquidityPosition is an account's LP token balance in a pair.
type LiquidityPosition struct {
	ID         string          `json:"id"`
	Pair       string          `json:"pair"`
	User       string          `json:"user"`
	Balance    decimal.Decimal `json:"balance"`
	ClaimCount uint64          `json:"claim_count"`
	Updated
}

func (l *LiquidityPosition) EntityKind() Kind { return KindLiquidityPosition }
func (l *LiquidityPosition) EntityID() string { return l.ID }
