package model

import "github.com/shopspring/decimal"

// BucketSubject is what an epoch bucket aggregates over.
type BucketSubject string

const (
	SubjectPair  BucketSubject = "pair"
	SubjectGauge BucketSubject = "gauge"
)

// EpochBucket holds totals for one subject in one weekly epoch. Buckets are
// created on the first event of the epoch and only ever accumulate.
type EpochBucket struct {
	ID         string        `json:"id"`
	Subject    BucketSubject `json:"subject"`
	SubjectID  string        `json:"subject_id"`
	Token0     string        `json:"token0,omitempty"`
	Token1     string        `json:"token1,omitempty"`
	EpochStart uint64        `json:"epoch_start"`
	EpochEnd   uint64        `json:"epoch_end"`

	Fees         FeeTotals       `json:"fees"`
	VolumeToken0 decimal.Decimal `json:"volume_token0"`
	VolumeToken1 decimal.Decimal `json:"volume_token1"`
	VolumeUSD    decimal.Decimal `json:"volume_usd"`
	TxCount      uint64          `json:"tx_count"`

	Rewards     decimal.Decimal `json:"rewards"`
	Deposits    decimal.Decimal `json:"deposits"`
	Withdrawals decimal.Decimal `json:"withdrawals"`
	Updated
}

func (b *EpochBucket) EntityKind() Kind { return KindEpochBucket }
func (b *EpochBucket) EntityID() string { return b.ID }

// EpochBucketID builds the id of a subject's bucket.
func EpochBucketID(subject BucketSubject, subjectID string, epochStart uint64) string {
	return JoinID(string(subject), subjectID, EpochPart(epochStart))
}
