package dex

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"lithosScope/internal/model"
)

// RecordWriter receives one JSON document per call.
type RecordWriter interface {
	Write(value interface{}) error
}

// StreamStats counts what happened to each input line.
type StreamStats struct {
	Total   int
	Decoded int
	Skipped int
	Failed  int
}

// DecodeStream reads raw log JSONL from r and writes typed events to out.
// Lines that cannot be parsed or decoded are reported to errs and counted,
// never fatal; logs with an unknown topic0 are skipped silently. Only write
// failures on out and read failures abort the stream.
func DecodeStream(ctx context.Context, r io.Reader, decoder Decoder, out, errs RecordWriter) (StreamStats, error) {
	var stats StreamStats
	report := func(e model.DecodeError) {
		stats.Failed++
		if errs != nil {
			_ = errs.Write(e)
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		stats.Total++

		var record model.LogRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			report(model.DecodeError{Line: line, Error: err.Error()})
			continue
		}
		if len(record.Topics) == 0 {
			report(model.NewDecodeError(line, record, fmt.Errorf("missing topic0")))
			continue
		}
		if record.Removed {
			stats.Skipped++
			continue
		}
		if !decoder.CanDecode(record.Topic0()) {
			stats.Skipped++
			continue
		}

		event, err := decoder.Decode(record)
		if err != nil {
			report(model.NewDecodeError(line, record, err))
			continue
		}
		if err := out.Write(event); err != nil {
			return stats, fmt.Errorf("write event %s: %w", record.Key(), err)
		}
		stats.Decoded++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}
	return stats, nil
}
