package model

// DecodeError records why one raw log line did not become a typed event.
// Line is the 1-based input line, kept so unparsable lines can be found.
type DecodeError struct {
	Line        int    `json:"line"`
	ChainID     uint64 `json:"chain_id,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	LogIndex    uint64 `json:"log_index,omitempty"`
	Address     string `json:"address,omitempty"`
	Topic0      string `json:"topic0,omitempty"`
	Error       string `json:"error"`
}

// NewDecodeError describes a failure for a parsed log record.
func NewDecodeError(line int, record LogRecord, err error) DecodeError {
	return DecodeError{
		Line:        line,
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      record.Topic0(),
		Error:       err.Error(),
	}
}
