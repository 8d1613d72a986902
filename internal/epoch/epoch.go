// Package epoch maps block timestamps onto the protocol's weekly buckets.
package epoch

// Week is the epoch length in seconds.
const Week uint64 = 7 * 86400

// Start returns the start of the epoch containing ts.
func Start(ts uint64) uint64 {
	return ts - ts%Week
}

// End returns the exclusive end of the epoch containing ts.
func End(ts uint64) uint64 {
	return Start(ts) + Week
}

// Next returns the start of the epoch after the one containing ts.
func Next(ts uint64) uint64 {
	return End(ts)
}

// Contains reports whether ts falls inside the epoch starting at start.
func Contains(start, ts uint64) bool {
	return ts >= start && ts < start+Week
}
