package storage

import "sync/atomic"

// Cursor hands out positions in a response sequence. Concurrent callers never
// observe the same position within one cycle and no position is skipped.
type Cursor struct {
	n atomic.Uint64
}

// Next returns the current position modulo length and advances the cursor.
// length must be positive.
func (c *Cursor) Next(length int) int {
	return int((c.n.Add(1) - 1) % uint64(length))
}

// Peek returns the position the next call to Next would return.
func (c *Cursor) Peek(length int) int {
	return int(c.n.Load() % uint64(length))
}
