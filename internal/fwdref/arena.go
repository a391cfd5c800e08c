package fwdref

import "sort"

type slot[T any] struct {
	id  int
	seq uint64
	val *T
}

// Arena holds the open accumulators of one parser, indexed by cycle id.
// Slots are removed explicitly when their accumulator is built or
// discarded. An Arena is not safe for concurrent use.
type Arena[T any] struct {
	slots []*slot[T]
	index map[int]int
	free  []int
	seq   uint64
}

// NewArena returns an empty arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{index: make(map[int]int)}
}

// Get returns the accumulator for id.
func (a *Arena[T]) Get(id int) (*T, bool) {
	i, ok := a.index[id]
	if !ok {
		return nil, false
	}
	return a.slots[i].val, true
}

// Open returns the accumulator for id, creating it with create when absent.
func (a *Arena[T]) Open(id int, create func() *T) *T {
	if v, ok := a.Get(id); ok {
		return v
	}
	a.seq++
	s := &slot[T]{id: id, seq: a.seq, val: create()}
	if n := len(a.free); n > 0 {
		i := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[i] = s
		a.index[id] = i
	} else {
		a.slots = append(a.slots, s)
		a.index[id] = len(a.slots) - 1
	}
	return s.val
}

// Remove takes the accumulator for id out of the arena.
func (a *Arena[T]) Remove(id int) (*T, bool) {
	i, ok := a.index[id]
	if !ok {
		return nil, false
	}
	v := a.slots[i].val
	a.slots[i] = nil
	delete(a.index, id)
	a.free = append(a.free, i)
	return v, true
}

// Len returns the number of open accumulators.
func (a *Arena[T]) Len() int {
	return len(a.index)
}

// IDs returns the open ids in the order their accumulators were created.
func (a *Arena[T]) IDs() []int {
	live := make([]*slot[T], 0, len(a.index))
	for _, i := range a.index {
		live = append(live, a.slots[i])
	}
	sort.Slice(live, func(i, j int) bool { return live[i].seq < live[j].seq })
	ids := make([]int, len(live))
	for i, s := range live {
		ids[i] = s.id
	}
	return ids
}

// Drain removes every accumulator and returns them in creation order.
func (a *Arena[T]) Drain() []*T {
	ids := a.IDs()
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		v, _ := a.Remove(id)
		out = append(out, v)
	}
	return out
}
