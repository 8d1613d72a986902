package dex

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"lithosScope/internal/model"
)

// Decoder defines a log decoder.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord) (*model.TypedEvent, error)
}

// DecoderConfig configures decoder behavior. Contracts optionally pins
// addresses to a contract kind so shared event signatures resolve without
// guessing.
type DecoderConfig struct {
	Contracts map[string]model.ContractKind
}

type candidate struct {
	kind    model.ContractKind
	event   abi.Event
	indexed int
}

// LogDecoder decodes every protocol event into a TypedEvent with
// stringified params.
type LogDecoder struct {
	byTopic   map[string][]candidate
	contracts map[string]model.ContractKind
}

// NewLogDecoder builds a decoder over all protocol contract ABIs.
func NewLogDecoder(cfg DecoderConfig) (*LogDecoder, error) {
	byTopic := make(map[string][]candidate)
	for _, kind := range contractKinds() {
		parsed, err := ContractABI(kind)
		if err != nil {
			return nil, fmt.Errorf("parse %s abi: %w", kind, err)
		}
		for _, event := range parsed.Events {
			topic := strings.ToLower(event.ID.Hex())
			byTopic[topic] = append(byTopic[topic], candidate{
				kind:    kind,
				event:   event,
				indexed: len(indexedArguments(event.Inputs)),
			})
		}
	}

	contracts := make(map[string]model.ContractKind, len(cfg.Contracts))
	for addr, kind := range cfg.Contracts {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid contract address: %s", addr)
		}
		if _, ok := contractABIs[kind]; !ok {
			return nil, errUnknownKind(kind)
		}
		contracts[strings.ToLower(common.HexToAddress(addr).Hex())] = kind
	}

	return &LogDecoder{byTopic: byTopic, contracts: contracts}, nil
}

// Topics lists every topic0 the decoder understands, sorted.
func (d *LogDecoder) Topics() []string {
	out := make([]string, 0, len(d.byTopic))
	for topic := range d.byTopic {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// CanDecode checks if the topic0 is supported.
func (d *LogDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.byTopic[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *LogDecoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid contract address: %s", log.Address)
	}
	address := strings.ToLower(common.HexToAddress(log.Address).Hex())

	cand, err := d.pick(address, log.Topics)
	if err != nil {
		return nil, err
	}

	params, err := decodeParams(cand.event, log.Topics, log.Data)
	if err != nil {
		return nil, err
	}

	return &model.TypedEvent{
		ChainID:      log.ChainID,
		BlockNumber:  log.BlockNumber,
		BlockHash:    log.BlockHash,
		TxHash:       log.TxHash,
		LogIndex:     log.LogIndex,
		Address:      address,
		ContractKind: cand.kind,
		EventName:    cand.event.Name,
		Timestamp:    log.Timestamp,
		Params:       params,
		Raw: &model.RawLogRef{
			Topic0: strings.ToLower(log.Topics[0]),
			Data:   log.Data,
		},
	}, nil
}

// pick resolves the event ABI for a log. Pair and escrow Transfer share a
// signature and differ only in how many arguments are indexed.
func (d *LogDecoder) pick(address string, topics []string) (candidate, error) {
	topic0 := strings.ToLower(topics[0])
	cands, ok := d.byTopic[topic0]
	if !ok {
		return candidate{}, fmt.Errorf("unsupported topic0: %s", topics[0])
	}

	if kind, pinned := d.contracts[address]; pinned {
		for _, c := range cands {
			if c.kind == kind {
				return c, nil
			}
		}
		return candidate{}, fmt.Errorf("topic0 %s is not emitted by %s contracts", topic0, kind)
	}

	var match []candidate
	for _, c := range cands {
		if c.indexed+1 == len(topics) {
			match = append(match, c)
		}
	}
	switch len(match) {
	case 0:
		return candidate{}, fmt.Errorf("no %s variant with %d topics", cands[0].event.Name, len(topics))
	case 1:
		return match[0], nil
	default:
		return candidate{}, fmt.Errorf("ambiguous topic0 %s for %s", topic0, address)
	}
}

func decodeParams(event abi.Event, topics []string, dataHex string) (model.Params, error) {
	indexedTopics, err := parseIndexedTopics(event, topics)
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{}, len(event.Inputs))
	if err := abi.ParseTopicsIntoMap(values, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse %s topics: %w", event.Name, err)
	}

	data, err := hexutil.Decode(normalizeData(dataHex))
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(values, data); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}

	params := make(model.Params, len(values))
	for name, value := range values {
		text, err := paramText(value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", event.Name, name, err)
		}
		params[name] = text
	}
	return params, nil
}

func paramText(value interface{}) (string, error) {
	switch v := value.(type) {
	case common.Address:
		return strings.ToLower(v.Hex()), nil
	case bool:
		return strconv.FormatBool(v), nil
	case string:
		return v, nil
	case [32]byte:
		return hexutil.Encode(v[:]), nil
	case []byte:
		return hexutil.Encode(v), nil
	}
	n, err := asBigInt(value)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

func normalizeData(dataHex string) string {
	if dataHex == "" {
		return "0x"
	}
	return dataHex
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func contractKinds() []model.ContractKind {
	return []model.ContractKind{
		model.ContractPairFactory,
		model.ContractPair,
		model.ContractVoter,
		model.ContractGauge,
		model.ContractBribe,
		model.ContractVotingEscrow,
	}
}

func errUnknownKind(kind model.ContractKind) error {
	return fmt.Errorf("unknown contract kind %q", kind)
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
