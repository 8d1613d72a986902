package model

import "github.com/shopspring/decimal"

// VeNFT is a vote-escrow lock position.
type VeNFT struct {
	TokenID string          `json:"token_id"`
	Escrow  string          `json:"escrow"`
	Owner   string          `json:"owner"`
	Value   decimal.Decimal `json:"value"`
	LockEnd uint64          `json:"lock_end"`
	Active  bool            `json:"active"`
	Updated
}

func (v *VeNFT) EntityKind() Kind { return KindVeNFT }
func (v *VeNFT) EntityID() string { return v.TokenID }

// VotingEscrow holds escrow-wide totals.
type VotingEscrow struct {
	Address     string          `json:"address"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	TotalLocked decimal.Decimal `json:"total_locked"`
	TotalNFTs   uint64          `json:"total_nfts"`
	Updated
}

func (v *VotingEscrow) EntityKind() Kind { return KindVotingEscrow }
func (v *VotingEscrow) EntityID() string { return v.Address }

// VeDelegation records one change of an account's vote delegate. An empty
// delegate means the zero address.
type VeDelegation struct {
	ID           string `json:"id"`
	Escrow       string `json:"escrow"`
	Delegator    string `json:"delegator"`
	FromDelegate string `json:"from_delegate,omitempty"`
	ToDelegate   string `json:"to_delegate,omitempty"`
	Block        uint64 `json:"block"`
	Timestamp    uint64 `json:"timestamp"`
}

func (d *VeDelegation) EntityKind() Kind { return KindVeDelegation }
func (d *VeDelegation) EntityID() string { return d.ID }
