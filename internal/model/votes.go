package model

import "github.com/shopspring/decimal"

// GaugeEpochVote is the authoritative vote weight of a gauge in an epoch.
type GaugeEpochVote struct {
	ID          string          `json:"id"`
	Gauge       string          `json:"gauge"`
	Pool        string          `json:"pool"`
	EpochStart  uint64          `json:"epoch_start"`
	TotalWeight decimal.Decimal `json:"total_weight"`
	Updated
}

func (v *GaugeEpochVote) EntityKind() Kind { return KindGaugeEpochVote }
func (v *GaugeEpochVote) EntityID() string { return v.ID }

// GaugeEpochVoteID builds the id of a gauge/epoch vote row.
func GaugeEpochVoteID(gauge string, epochStart uint64) string {
	return JoinID(gauge, EpochPart(epochStart))
}

// TokenGaugeVote is one veNFT's weight on one pool in an epoch.
type TokenGaugeVote struct {
	ID         string          `json:"id"`
	TokenID    string          `json:"token_id"`
	Pool       string          `json:"pool"`
	Gauge      string          `json:"gauge"`
	EpochStart uint64          `json:"epoch_start"`
	Weight     decimal.Decimal `json:"weight"`
	Updated
}

func (v *TokenGaugeVote) EntityKind() Kind { return KindTokenGaugeVote }
func (v *TokenGaugeVote) EntityID() string { return v.ID }

// TokenGaugeVoteID builds the id of a token/epoch/pool vote row.
func TokenGaugeVoteID(tokenID string, epochStart uint64, pool string) string {
	return JoinID(tokenID, EpochPart(epochStart), pool)
}

// TokenEpochVotes is the pool set a veNFT voted for in an epoch.
type TokenEpochVotes struct {
	ID         string   `json:"id"`
	TokenID    string   `json:"token_id"`
	EpochStart uint64   `json:"epoch_start"`
	Pools      []string `json:"pools"`
	Updated
}

func (v *TokenEpochVotes) EntityKind() Kind { return KindTokenEpochVotes }
func (v *TokenEpochVotes) EntityID() string { return v.ID }

// TokenEpochVotesID builds the id of a token/epoch vote set.
func TokenEpochVotesID(tokenID string, epochStart uint64) string {
	return JoinID(tokenID, EpochPart(epochStart))
}

// PoolVote is one (pool, weight) entry read from the voter contract.
type PoolVote struct {
	Pool   string
	Weight decimal.Decimal
}
