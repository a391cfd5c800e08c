// Package fwdref holds the forward-reference accumulators used to assemble
// an event from lines that arrive apart from one another.
//
// Every field is written at most once. A second write is rejected and
// logged, and the first value is kept. Accumulators live in an [Arena]
// keyed by the cycle id of decorated logs; undecorated parsers keep a single
// accumulator of their own.
package fwdref

// Cell is a write-once value.
type Cell[T any] struct {
	v   T
	set bool
}

// Get returns the value and whether it has been written.
func (c *Cell[T]) Get() (T, bool) {
	return c.v, c.set
}

// IsSet reports whether the cell has been written.
func (c *Cell[T]) IsSet() bool {
	return c.set
}

// Value returns the value, or the zero value when unset.
func (c *Cell[T]) Value() T {
	return c.v
}

// Set writes v unless the cell already holds a value. It reports whether
// the write was accepted.
func (c *Cell[T]) Set(v T) bool {
	if c.set {
		return false
	}
	c.v, c.set = v, true
	return true
}
