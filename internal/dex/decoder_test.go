package dex

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"lithosScope/internal/model"
)

func TestLogDecoderPairSwap(t *testing.T) {
	parsed, err := ContractABI(model.ContractPair)
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewLogDecoder(DecoderConfig{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pair := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	event := parsed.Events["Swap"]
	data, err := event.Inputs.NonIndexed().Pack(
		big.NewInt(1000),
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(987654321),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}

	record := buildLogRecord(pair, event.ID, data, []common.Hash{
		topicFromAddress(sender),
		topicFromAddress(to),
	})

	typed, err := decoder.Decode(record)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	if typed.Route() != "pair.Swap" {
		t.Fatalf("route mismatch: %s", typed.Route())
	}
	if typed.Params["amount0In"] != "1000" || typed.Params["amount1Out"] != "987654321" {
		t.Fatalf("amounts mismatch: %+v", typed.Params)
	}
	if typed.Params["sender"] != strings.ToLower(sender.Hex()) || typed.Params["to"] != strings.ToLower(to.Hex()) {
		t.Fatalf("address mismatch: %+v", typed.Params)
	}
	if typed.Address != strings.ToLower(pair.Hex()) {
		t.Fatalf("address not normalized: %s", typed.Address)
	}
	if typed.Raw == nil || typed.Raw.Topic0 != strings.ToLower(event.ID.Hex()) {
		t.Fatalf("raw ref mismatch: %+v", typed.Raw)
	}
}

func TestLogDecoderPairCreatedBool(t *testing.T) {
	parsed, err := ContractABI(model.ContractPairFactory)
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewLogDecoder(DecoderConfig{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	token0 := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1 := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	pair := common.HexToAddress("0x1111111111111111111111111111111111111111")

	event := parsed.Events["PairCreated"]
	data, err := event.Inputs.NonIndexed().Pack(true, pair, big.NewInt(7))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	record := buildLogRecord(common.HexToAddress("0x9999999999999999999999999999999999999999"), event.ID, data, []common.Hash{
		topicFromAddress(token0),
		topicFromAddress(token1),
	})

	typed, err := decoder.Decode(record)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	stable, err := typed.Params.Bool("stable")
	if err != nil || !stable {
		t.Fatalf("stable mismatch: %v %v", stable, err)
	}
	if got, _ := typed.Params.Address("pair"); got != strings.ToLower(pair.Hex()) {
		t.Fatalf("pair mismatch: %s", got)
	}
	if typed.Params["index"] != "7" {
		t.Fatalf("index mismatch: %s", typed.Params["index"])
	}
}

func TestLogDecoderTransferByTopicCount(t *testing.T) {
	pairParsed, err := ContractABI(model.ContractPair)
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewLogDecoder(DecoderConfig{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	from := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	transfer := pairParsed.Events["Transfer"]

	data, err := transfer.Inputs.NonIndexed().Pack(big.NewInt(50))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	lpTransfer := buildLogRecord(common.HexToAddress("0x1111111111111111111111111111111111111111"), transfer.ID, data, []common.Hash{
		topicFromAddress(from),
		topicFromAddress(to),
	})
	typed, err := decoder.Decode(lpTransfer)
	if err != nil {
		t.Fatalf("decode lp transfer: %v", err)
	}
	if typed.ContractKind != model.ContractPair || typed.Params["amount"] != "50" {
		t.Fatalf("lp transfer mismatch: %+v", typed)
	}

	nftTransfer := buildLogRecord(common.HexToAddress("0x4444444444444444444444444444444444444444"), transfer.ID, nil, []common.Hash{
		topicFromAddress(from),
		topicFromAddress(to),
		common.BigToHash(big.NewInt(42)),
	})
	typed, err = decoder.Decode(nftTransfer)
	if err != nil {
		t.Fatalf("decode nft transfer: %v", err)
	}
	if typed.ContractKind != model.ContractVotingEscrow || typed.Params["tokenId"] != "42" {
		t.Fatalf("nft transfer mismatch: %+v", typed)
	}
}

func TestLogDecoderPinnedContract(t *testing.T) {
	pairParsed, err := ContractABI(model.ContractPair)
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	bribe := "0x5555555555555555555555555555555555555555"
	decoder, err := NewLogDecoder(DecoderConfig{Contracts: map[string]model.ContractKind{
		bribe: model.ContractBribe,
	}})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	event := pairParsed.Events["Sync"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(1), big.NewInt(2))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	record := buildLogRecord(common.HexToAddress(bribe), event.ID, data, nil)
	if _, err := decoder.Decode(record); err == nil {
		t.Fatalf("expected kind mismatch error")
	}
}

func TestLogDecoderRejectsUnknownTopic(t *testing.T) {
	decoder, err := NewLogDecoder(DecoderConfig{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	topic := common.HexToHash("0xdeadbeef")
	if decoder.CanDecode(topic.Hex()) {
		t.Fatalf("unexpected support for %s", topic.Hex())
	}
	record := buildLogRecord(common.HexToAddress("0x1111111111111111111111111111111111111111"), topic, nil, nil)
	if _, err := decoder.Decode(record); err == nil {
		t.Fatalf("expected unsupported topic error")
	}
	if len(decoder.Topics()) == 0 {
		t.Fatalf("expected known topics")
	}
}

func TestNewLogDecoderRejectsBadConfig(t *testing.T) {
	if _, err := NewLogDecoder(DecoderConfig{Contracts: map[string]model.ContractKind{"nope": model.ContractPair}}); err == nil {
		t.Fatalf("expected invalid address error")
	}
	if _, err := NewLogDecoder(DecoderConfig{Contracts: map[string]model.ContractKind{
		"0x1111111111111111111111111111111111111111": "router",
	}}); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func buildLogRecord(address common.Address, topic0 common.Hash, data []byte, indexed []common.Hash) model.LogRecord {
	topics := []string{topic0.Hex()}
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}
	return model.LogRecord{
		ChainID:     1,
		BlockNumber: 100,
		BlockHash:   "0xblock",
		TxHash:      "0xTX",
		LogIndex:    3,
		Address:     address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   1700000000,
	}
}

func topicFromAddress(address common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(address.Bytes(), 32))
}
