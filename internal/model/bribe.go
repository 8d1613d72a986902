package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BribeType distinguishes fee-rebate bribes from third-party incentive bribes.
type BribeType uint8

const (
	BribeInternal BribeType = iota + 1
	BribeExternal
)

func (t BribeType) String() string {
	switch t {
	case BribeInternal:
		return "internal"
	case BribeExternal:
		return "external"
	default:
		return fmt.Sprintf("BribeType(%d)", uint8(t))
	}
}

// ParseBribeType accepts the textual form of a bribe type.
func ParseBribeType(s string) (BribeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "internal":
		return BribeInternal, nil
	case "external":
		return BribeExternal, nil
	default:
		return 0, fmt.Errorf("unknown bribe type %q", s)
	}
}

func (t BribeType) MarshalText() ([]byte, error) {
	if t != BribeInternal && t != BribeExternal {
		return nil, fmt.Errorf("invalid bribe type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *BribeType) UnmarshalText(text []byte) error {
	parsed, err := ParseBribeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Bribe is a reward contract attached to a gauge.
type Bribe struct {
	Address          string          `json:"address"`
	Type             BribeType       `json:"type"`
	Gauge            string          `json:"gauge"`
	Pair             string          `json:"pair,omitempty"`
	Owner            string          `json:"owner,omitempty"`
	TotalVotingPower decimal.Decimal `json:"total_voting_power"`
	RewardTokenCount uint64          `json:"reward_token_count"`
	Updated
}

func (b *Bribe) EntityKind() Kind { return KindBribe }
func (b *Bribe) EntityID() string { return b.Address }

// BribeRewardToken tracks cumulative rewards of one token on a bribe.
type BribeRewardToken struct {
	ID           string          `json:"id"`
	Bribe        string          `json:"bribe"`
	Token        string          `json:"token"`
	TotalRewards decimal.Decimal `json:"total_rewards"`
	EpochCount   uint64          `json:"epoch_count"`
	Updated
}

func (r *BribeRewardToken) EntityKind() Kind { return KindBribeRewardToken }
func (r *BribeRewardToken) EntityID() string { return r.ID }

// BribeEpochReward is the reward notified for one token in one epoch.
type BribeEpochReward struct {
	ID         string          `json:"id"`
	Bribe      string          `json:"bribe"`
	Token      string          `json:"token"`
	EpochStart uint64          `json:"epoch_start"`
	EpochEnd   uint64          `json:"epoch_end"`
	Reward     decimal.Decimal `json:"reward"`
	Updated
}

func (r *BribeEpochReward) EntityKind() Kind { return KindBribeEpochReward }
func (r *BribeEpochReward) EntityID() string { return r.ID }

// BribeEpochRewardID builds the id of a bribe/token/epoch reward row.
func BribeEpochRewardID(bribe, token string, epochStart uint64) string {
	return JoinID(bribe, token, EpochPart(epochStart))
}

// PairBribeEpochReward rolls bribe rewards up to the pair of the gauge.
type PairBribeEpochReward struct {
	ID         string          `json:"id"`
	Pair       string          `json:"pair"`
	Bribe      string          `json:"bribe"`
	Gauge      string          `json:"gauge"`
	Token      string          `json:"token"`
	Internal   bool            `json:"internal"`
	EpochStart uint64          `json:"epoch_start"`
	EpochEnd   uint64          `json:"epoch_end"`
	Reward     decimal.Decimal `json:"reward"`
	Updated
}

func (r *PairBribeEpochReward) EntityKind() Kind { return KindPairBribeEpochReward }
func (r *PairBribeEpochReward) EntityID() string { return r.ID }

// BribeEpochStake is the total weight staked on a bribe for an epoch.
type BribeEpochStake struct {
	ID          string          `json:"id"`
	Bribe       string          `json:"bribe"`
	EpochStart  uint64          `json:"epoch_start"`
	TotalWeight decimal.Decimal `json:"total_weight"`
	Updated
}

func (s *BribeEpochStake) EntityKind() Kind { return KindBribeEpochStake }
func (s *BribeEpochStake) EntityID() string { return s.ID }

// BribeEpochStakeID builds the id of a bribe/epoch stake row.
func BribeEpochStakeID(bribe string, epochStart uint64) string {
	return JoinID(bribe, EpochPart(epochStart))
}

// BribeEpochVeStake is one veNFT's weight inside a BribeEpochStake.
type BribeEpochVeStake struct {
	ID         string          `json:"id"`
	Bribe      string          `json:"bribe"`
	EpochStake string          `json:"epoch_stake"`
	TokenID    string          `json:"token_id"`
	EpochStart uint64          `json:"epoch_start"`
	Weight     decimal.Decimal `json:"weight"`
	Updated
}

func (s *BribeEpochVeStake) EntityKind() Kind { return KindBribeEpochVeStake }
func (s *BribeEpochVeStake) EntityID() string { return s.ID }

// BribeEventType tags bribe history records.
type BribeEventType string

const (
	BribeEventStake       BribeEventType = "stake"
	BribeEventWithdraw    BribeEventType = "withdraw"
	BribeEventRewardAdded BribeEventType = "reward_added"
	BribeEventRewardPaid  BribeEventType = "reward_paid"
)

// BribeEvent is the per-log record of a bribe stake change or reward
// movement. Stake rows carry TokenID and a raw vote weight; reward rows
// carry Token and an amount in token units.
type BribeEvent struct {
	ID         string          `json:"id"`
	Type       BribeEventType  `json:"type"`
	Bribe      string          `json:"bribe"`
	TokenID    string          `json:"token_id,omitempty"`
	User       string          `json:"user,omitempty"`
	Token      string          `json:"token,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	EpochStart uint64          `json:"epoch_start,omitempty"`
	Block      uint64          `json:"block"`
	Timestamp  uint64          `json:"timestamp"`
}

func (e *BribeEvent) EntityKind() Kind { return KindBribeEvent }
func (e *BribeEvent) EntityID() string { return e.ID }
