package indexer

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"lithosScope/internal/model"
)

// batch is one range's logs after normalization.
type batch struct {
	records []model.LogRecord
	removed int
	dupes   int
}

// normalizeBatch converts logs to records, dropping reorged logs and any
// log already emitted under the same key. seen is updated in place.
func normalizeBatch(chainID uint64, logs []types.Log, seen map[string]struct{}, ingestedAt time.Time) batch {
	out := batch{records: make([]model.LogRecord, 0, len(logs))}
	for _, log := range logs {
		if log.Removed {
			out.removed++
			continue
		}
		record := buildLogRecord(chainID, log, ingestedAt)
		key := record.Key()
		if _, dup := seen[key]; dup {
			out.dupes++
			continue
		}
		seen[key] = struct{}{}
		out.records = append(out.records, record)
	}
	return out
}

// buildLogRecord normalizes a chain log. Addresses are lowercased so record
// keys and emitters match typed event ids downstream; the timestamp is
// filled in later from the block header.
func buildLogRecord(chainID uint64, log types.Log, ingestedAt time.Time) model.LogRecord {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     strings.ToLower(log.Address.Hex()),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		IngestedAt:  ingestedAt.UTC().Format(time.RFC3339Nano),
	}
}
