package indexer

import "fmt"

// BlockRange is an inclusive block span fetched in one eth_getLogs call.
type BlockRange struct {
	From uint64
	To   uint64
}

// Len returns the number of blocks in the range.
func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

// EachBatch calls fn for consecutive batches of at most size blocks covering
// [from, to]. It stops at the first error fn returns. The arithmetic never
// wraps, so to may be math.MaxUint64.
func EachBatch(from, to, size uint64, fn func(BlockRange) error) error {
	if size == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return fmt.Errorf("to block %d is before from block %d", to, from)
	}

	for start := from; ; start++ {
		end := to
		if to-start >= size {
			end = start + size - 1
		}
		if err := fn(BlockRange{From: start, To: end}); err != nil {
			return err
		}
		if end == to {
			return nil
		}
		start = end
	}
}
