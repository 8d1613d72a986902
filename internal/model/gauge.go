package model

import "github.com/shopspring/decimal"

// Gauge distributes emissions to stakers of one pool.
type Gauge struct {
	Address                 string          `json:"address"`
	Pool                    string          `json:"pool"`
	Voter                   string          `json:"voter"`
	InternalBribe           string          `json:"internal_bribe"`
	ExternalBribe           string          `json:"external_bribe"`
	TotalStaked             decimal.Decimal `json:"total_staked"`
	TotalRewardsDistributed decimal.Decimal `json:"total_rewards_distributed"`
	TotalRewardsClaimed     decimal.Decimal `json:"total_rewards_claimed"`
	TotalFeesClaimed0       decimal.Decimal `json:"total_fees_claimed0"`
	TotalFeesClaimed1       decimal.Decimal `json:"total_fees_claimed1"`
	Emergency               bool            `json:"emergency"`
	CreatedAtBlock          uint64          `json:"created_at_block"`
	CreatedAtTimestamp      uint64          `json:"created_at_timestamp"`
	Updated
}

func (g *Gauge) EntityKind() Kind { return KindGauge }
func (g *Gauge) EntityID() string { return g.Address }

// GaugePosition is an account's stake in a gauge.
type GaugePosition struct {
	ID                  string          `json:"id"`
	Gauge               string          `json:"gauge"`
	User                string          `json:"user"`
	StakedBalance       decimal.Decimal `json:"staked_balance"`
	TotalDeposited      decimal.Decimal `json:"total_deposited"`
	TotalWithdrawn      decimal.Decimal `json:"total_withdrawn"`
	TotalRewardsClaimed decimal.Decimal `json:"total_rewards_claimed"`
	Updated
}

func (p *GaugePosition) EntityKind() Kind { return KindGaugePosition }
func (p *GaugePosition) EntityID() string { return p.ID }

// GaugeEventType tags gauge history records.
type GaugeEventType string

const (
	GaugeEventClaimFees            GaugeEventType = "claim_fees"
	GaugeEventEmergencyActivated   GaugeEventType = "emergency_activated"
	GaugeEventEmergencyDeactivated GaugeEventType = "emergency_deactivated"
)

// GaugeEvent is the per-log record of a gauge fee claim or an emergency
// mode switch. Claimed amounts are in pair token units.
type GaugeEvent struct {
	ID        string          `json:"id"`
	Type      GaugeEventType  `json:"type"`
	Gauge     string          `json:"gauge"`
	From      string          `json:"from,omitempty"`
	Claimed0  decimal.Decimal `json:"claimed0"`
	Claimed1  decimal.Decimal `json:"claimed1"`
	Block     uint64          `json:"block"`
	Timestamp uint64          `json:"timestamp"`
}

func (e *GaugeEvent) EntityKind() Kind { return KindGaugeEvent }
func (e *GaugeEvent) EntityID() string { return e.ID }
