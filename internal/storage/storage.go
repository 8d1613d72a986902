// Package storage holds the pipeline's file sinks. Entity store backends
// live in the memory, postgres and sqlite subpackages.
package storage

import "lithosScope/internal/model"

// LogSink receives raw log batches from the indexer.
type LogSink interface {
	PutLogBatch(logs []model.LogRecord) error
}
