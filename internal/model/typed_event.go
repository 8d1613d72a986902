package model

import (
	"fmt"
	"strings"
)

// ContractKind identifies which protocol contract emitted an event.
type ContractKind string

const (
	ContractPairFactory  ContractKind = "pair_factory"
	ContractPair         ContractKind = "pair"
	ContractVoter        ContractKind = "voter"
	ContractGauge        ContractKind = "gauge"
	ContractBribe        ContractKind = "bribe"
	ContractVotingEscrow ContractKind = "voting_escrow"
)

// TypedEvent is a decoded protocol event. Params hold the ABI arguments in
// their canonical text form: lowercase hex addresses, base-10 integers and
// "true"/"false" booleans.
type TypedEvent struct {
	ChainID      uint64       `json:"chain_id"`
	BlockNumber  uint64       `json:"block_number"`
	BlockHash    string       `json:"block_hash"`
	TxHash       string       `json:"tx_hash"`
	LogIndex     uint64       `json:"log_index"`
	Address      string       `json:"address"`
	ContractKind ContractKind `json:"contract_kind"`
	EventName    string       `json:"event_name"`
	Timestamp    uint64       `json:"timestamp"`
	Params       Params       `json:"params"`
	Raw          *RawLogRef   `json:"raw,omitempty"`
}

// RawLogRef keeps a minimal raw reference for traceability.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

// ID is the natural unique id of anything derived from this event.
func (e TypedEvent) ID() string {
	return fmt.Sprintf("%s-%d", strings.ToLower(e.TxHash), e.LogIndex)
}

// Contract returns the emitting contract address in lowercase.
func (e TypedEvent) Contract() string {
	return strings.ToLower(e.Address)
}

// Route is the dispatch key of the event, e.g. "pair.Swap".
func (e TypedEvent) Route() string {
	return string(e.ContractKind) + "." + e.EventName
}
