package model

import (
	"strconv"
	"strings"
)

// Kind names an entity collection in the store.
type Kind string

const (
	KindFactory              Kind = "factory"
	KindToken                Kind = "token"
	KindPair                 Kind = "pair"
	KindEpochBucket          Kind = "epoch_bucket"
	KindPairEvent            Kind = "pair_event"
	KindUser                 Kind = "user"
	KindLiquidityPosition    Kind = "liquidity_position"
	KindBribe                Kind = "bribe"
	KindBribeRewardToken     Kind = "bribe_reward_token"
	KindBribeEpochReward     Kind = "bribe_epoch_reward"
	KindPairBribeEpochReward Kind = "pair_bribe_epoch_reward"
	KindBribeEpochStake      Kind = "bribe_epoch_stake"
	KindBribeEpochVeStake    Kind = "bribe_epoch_ve_stake"
	KindGauge                Kind = "gauge"
	KindGaugePosition        Kind = "gauge_position"
	KindGaugeEpochVote       Kind = "gauge_epoch_vote"
	KindTokenGaugeVote       Kind = "token_gauge_vote"
	KindTokenEpochVotes      Kind = "token_epoch_votes"
	KindVeNFT                Kind = "venft"
	KindVotingEscrow         Kind = "voting_escrow"
	KindVeDelegation         Kind = "ve_delegation"
	KindGaugeEvent           Kind = "gauge_event"
	KindBribeEvent           Kind = "bribe_event"
)

// Entity is anything the aggregation engine persists.
type Entity interface {
	EntityKind() Kind
	EntityID() string
}

// Updated carries the block coordinates of the last write.
type Updated struct {
	UpdatedAtBlock     uint64 `json:"updated_at_block"`
	UpdatedAtTimestamp uint64 `json:"updated_at_timestamp"`
}

// Touch stamps the entity with the event position.
func (u *Updated) Touch(block, ts uint64) {
	u.UpdatedAtBlock = block
	u.UpdatedAtTimestamp = ts
}

// JoinID builds a composite entity id.
func JoinID(parts ...string) string {
	return strings.Join(parts, "-")
}

// EpochPart formats an epoch start for use inside ids.
func EpochPart(epochStart uint64) string {
	return strconv.FormatUint(epochStart, 10)
}
