package model

// Cursor marks how far a pipeline got through the event stream. A nil
// LogIndex means every log of Block was applied.
type Cursor struct {
	Block    uint64  `json:"last_processed_block"`
	LogIndex *uint64 `json:"last_log_index,omitempty"`
}

// BlockCursor is a cursor past the whole of block.
func BlockCursor(block uint64) Cursor {
	return Cursor{Block: block}
}

// LogCursor is a cursor just past one log.
func LogCursor(block, logIndex uint64) Cursor {
	return Cursor{Block: block, LogIndex: &logIndex}
}

// Covers reports whether the log at (block, logIndex) is at or before c.
func (c Cursor) Covers(block, logIndex uint64) bool {
	if block != c.Block {
		return block < c.Block
	}
	return c.LogIndex == nil || logIndex <= *c.LogIndex
}

// Before orders cursors; a whole-block cursor sorts after every log of its
// block.
func (c Cursor) Before(o Cursor) bool {
	if c.Block != o.Block {
		return c.Block < o.Block
	}
	switch {
	case c.LogIndex == nil:
		return false
	case o.LogIndex == nil:
		return true
	default:
		return *c.LogIndex < *o.LogIndex
	}
}
