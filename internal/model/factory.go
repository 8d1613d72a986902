package model

import "github.com/shopspring/decimal"

// FactoryID is the id of the singleton protocol factory row.
const FactoryID = "1"

// Fee policy defaults of the pair factory, in basis points of 10000.
const (
	DefaultReferralFeeBps uint64 = 1200
	DefaultStakingFeeBps  uint64 = 3000
)

// Factory holds protocol-wide counters and the fee policy.
type Factory struct {
	ID             string          `json:"id"`
	Address        string          `json:"address"`
	PairCount      uint64          `json:"pair_count"`
	TotalVolumeUSD decimal.Decimal `json:"total_volume_usd"`
	TotalFeesUSD   decimal.Decimal `json:"total_fees_usd"`
	TxCount        uint64          `json:"tx_count"`
	ReferralFeeBps uint64          `json:"referral_fee_bps"`
	StakingFeeBps  uint64          `json:"staking_fee_bps"`
	Updated
}

func (f *Factory) EntityKind() Kind { return KindFactory }
func (f *Factory) EntityID() string { return f.ID }

// NewFactory returns the singleton with the given fee policy.
func NewFactory(address string, referralBps, stakingBps uint64) *Factory {
	return &Factory{
		ID:             FactoryID,
		Address:        address,
		ReferralFeeBps: referralBps,
		StakingFeeBps:  stakingBps,
	}
}
