package domain

import "time"

// Block is the subset of a block header the extractor needs.
type Block struct {
	Number    uint64
	Timestamp uint64
}

// Time returns the block timestamp as a time.
func (b Block) Time() time.Time {
	return time.Unix(int64(b.Timestamp), 0).UTC()
}

// Past returns the block number depth blocks back, floored at 1.
func (b Block) Past(depth uint64) uint64 {
	if depth >= b.Number {
		return 1
	}
	return b.Number - depth
}
