package event

import "fmt"

// MemoryPoolSummary describes a memory pool before and after a collection.
// All values are in bytes.
type MemoryPoolSummary struct {
	OccupancyBefore int64 `json:"occupancy_before"`
	SizeBefore      int64 `json:"size_before"`
	OccupancyAfter  int64 `json:"occupancy_after"`
	SizeAfter       int64 `json:"size_after"`
}

// NewPool returns a summary for a pool whose size did not change.
func NewPool(before, after, size int64) *MemoryPoolSummary {
	return &MemoryPoolSummary{
		OccupancyBefore: before,
		SizeBefore:      size,
		OccupancyAfter:  after,
		SizeAfter:       size,
	}
}

// NewOccupancy returns a summary for a single observation, such as the
// occupancy reported at a CMS initial mark.
func NewOccupancy(occupancy, size int64) *MemoryPoolSummary {
	return NewPool(occupancy, occupancy, size)
}

// Valid reports whether the summary satisfies the pool invariants: all values
// non-negative and the after occupancy within the after size.
func (m *MemoryPoolSummary) Valid() bool {
	if m == nil {
		return false
	}
	if m.OccupancyBefore < 0 || m.SizeBefore < 0 || m.OccupancyAfter < 0 || m.SizeAfter < 0 {
		return false
	}
	return m.OccupancyAfter <= m.SizeAfter
}

// Minus derives the pool left after removing o from m, e.g. tenured = heap -
// young. The result is nil when either input is nil: a derived pool is never
// fabricated from missing data.
func (m *MemoryPoolSummary) Minus(o *MemoryPoolSummary) *MemoryPoolSummary {
	if m == nil || o == nil {
		return nil
	}
	return &MemoryPoolSummary{
		OccupancyBefore: m.OccupancyBefore - o.OccupancyBefore,
		SizeBefore:      m.SizeBefore - o.SizeBefore,
		OccupancyAfter:  m.OccupancyAfter - o.OccupancyAfter,
		SizeAfter:       m.SizeAfter - o.SizeAfter,
	}
}

// Plus sums two pools, returning nil when either is nil.
func (m *MemoryPoolSummary) Plus(o *MemoryPoolSummary) *MemoryPoolSummary {
	if m == nil || o == nil {
		return nil
	}
	return &MemoryPoolSummary{
		OccupancyBefore: m.OccupancyBefore + o.OccupancyBefore,
		SizeBefore:      m.SizeBefore + o.SizeBefore,
		OccupancyAfter:  m.OccupancyAfter + o.OccupancyAfter,
		SizeAfter:       m.SizeAfter + o.SizeAfter,
	}
}

// Reclaimed returns the bytes freed by the collection.
func (m *MemoryPoolSummary) Reclaimed() int64 {
	if m == nil {
		return 0
	}
	return m.OccupancyBefore - m.OccupancyAfter
}

func (m *MemoryPoolSummary) String() string {
	if m == nil {
		return "unknown"
	}
	return fmt.Sprintf("%dK(%dK)->%dK(%dK)",
		m.OccupancyBefore/1024, m.SizeBefore/1024, m.OccupancyAfter/1024, m.SizeAfter/1024)
}
