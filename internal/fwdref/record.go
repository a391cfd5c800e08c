package fwdref

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// ErrPrematureBuild is wrapped by every BuildError.
var ErrPrematureBuild = errors.New("premature build")

// BuildError reports an accumulator that was built before its event type or
// start time was established. The accumulator is discarded.
type BuildError struct {
	ID     int
	Type   event.Type
	Reason string
}

func (e *BuildError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("gc(%d): %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("gc(%d) %s: %s", e.ID, e.Type, e.Reason)
}

func (e *BuildError) Unwrap() error {
	return ErrPrematureBuild
}

// Pool names a memory pool slot on a Record.
type Pool int

// Pool slots.
const (
	Heap Pool = iota
	Young
	Tenured
	Eden
	Survivor
	Metaspace
	PermGen
	numPools
)

var poolNames = [numPools]string{"heap", "young", "tenured", "eden", "survivor", "metaspace", "perm_gen"}

func (p Pool) String() string {
	if p < 0 || p >= numPools {
		return fmt.Sprintf("pool(%d)", int(p))
	}
	return poolNames[p]
}

// Record accumulates the fields of one in-flight event.
type Record struct {
	log *slog.Logger
	id  int

	kind     Cell[event.Type]
	start    Cell[event.DateTimeStamp]
	cause    Cell[event.Cause]
	duration Cell[float64]
	pools    [numPools]Cell[*event.MemoryPoolSummary]

	cpu        Cell[*event.CPUSummary]
	concurrent Cell[*event.ConcurrentTimes]
	safepoint  Cell[*event.SafepointTimes]
	tenuring   Cell[*event.TenuringDistribution]

	phases  map[string]float64
	regions []event.RegionSummary
	data    map[string]string

	zLoad      Cell[[]float64]
	zMMU       map[string]float64
	zMeta      Cell[[3]int64]
	zHeap      map[string]event.ZGCHeapRow
	zRelocated Cell[int64]

	terminal bool
}

// NewRecord returns an empty accumulator for cycle id (-1 when the log
// carries no ids). Rejected writes are logged to log.
func NewRecord(log *slog.Logger, id int) *Record {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Record{log: log, id: id}
}

// ID returns the cycle id.
func (r *Record) ID() int {
	return r.id
}

func set[T any](r *Record, c *Cell[T], field string, v T) bool {
	if c.Set(v) {
		return true
	}
	r.rejected(field)
	return false
}

func (r *Record) rejected(field string) {
	r.log.Warn("rejected duplicate write",
		slog.Int("gc_id", r.id),
		slog.String("type", string(r.kind.Value())),
		slog.String("field", field))
}

// SetType establishes the event variant.
func (r *Record) SetType(t event.Type) bool { return set(r, &r.kind, "type", t) }

// Type returns the event variant if established.
func (r *Record) Type() (event.Type, bool) { return r.kind.Get() }

// SetStart records the event timestamp.
func (r *Record) SetStart(ts event.DateTimeStamp) bool { return set(r, &r.start, "start", ts) }

// Start returns the event timestamp if recorded.
func (r *Record) Start() (event.DateTimeStamp, bool) { return r.start.Get() }

// SetCause records the collection cause.
func (r *Record) SetCause(c event.Cause) bool { return set(r, &r.cause, "cause", c) }

// Cause returns the recorded cause.
func (r *Record) Cause() event.Cause { return r.cause.Value() }

// SetDuration records the duration in seconds.
func (r *Record) SetDuration(seconds float64) bool { return set(r, &r.duration, "duration", seconds) }

// Duration returns the recorded duration.
func (r *Record) Duration() (float64, bool) { return r.duration.Get() }

// SetPool records a memory pool. A nil summary is ignored.
func (r *Record) SetPool(p Pool, s *event.MemoryPoolSummary) bool {
	if s == nil || p < 0 || p >= numPools {
		return false
	}
	return set(r, &r.pools[p], p.String(), s)
}

// PoolValue returns the recorded pool, or nil.
func (r *Record) PoolValue(p Pool) *event.MemoryPoolSummary {
	if p < 0 || p >= numPools {
		return nil
	}
	return r.pools[p].Value()
}

// SetCPU records the CPU summary. A nil summary is ignored.
func (r *Record) SetCPU(c *event.CPUSummary) bool {
	if c == nil {
		return false
	}
	return set(r, &r.cpu, "cpu", c)
}

// SetConcurrent records the self-reported times of a concurrent phase.
func (r *Record) SetConcurrent(c *event.ConcurrentTimes) bool {
	if c == nil {
		return false
	}
	return set(r, &r.concurrent, "concurrent", c)
}

// SetSafepoint records safepoint timings.
func (r *Record) SetSafepoint(s *event.SafepointTimes) bool {
	if s == nil {
		return false
	}
	return set(r, &r.safepoint, "safepoint", s)
}

// SetTenuring records the survivor age table header.
func (r *Record) SetTenuring(t *event.TenuringDistribution) bool {
	if t == nil {
		return false
	}
	return set(r, &r.tenuring, "tenuring", t)
}

// AddAge appends an age bucket to the tenuring table. A repeated age is
// rejected.
func (r *Record) AddAge(a event.AgeBucket) bool {
	t, ok := r.tenuring.Get()
	if !ok {
		t = &event.TenuringDistribution{}
		r.tenuring.Set(t)
	}
	for _, b := range t.Ages {
		if b.Age == a.Age {
			r.rejected(fmt.Sprintf("age %d", a.Age))
			return false
		}
	}
	t.Ages = append(t.Ages, a)
	return true
}

// SetPhase records the duration of a named sub-phase.
func (r *Record) SetPhase(name string, seconds float64) bool {
	if _, ok := r.phases[name]; ok {
		r.rejected("phase " + name)
		return false
	}
	if r.phases == nil {
		r.phases = make(map[string]float64)
	}
	r.phases[name] = seconds
	return true
}

// Phase returns a recorded sub-phase duration.
func (r *Record) Phase(name string) (float64, bool) {
	v, ok := r.phases[name]
	return v, ok
}

// AddRegion records a region transition. A repeated region name is
// rejected.
func (r *Record) AddRegion(s event.RegionSummary) bool {
	for _, x := range r.regions {
		if x.Name == s.Name {
			r.rejected("region " + s.Name)
			return false
		}
	}
	r.regions = append(r.regions, s)
	return true
}

// SetData records a named value without a typed field.
func (r *Record) SetData(key, value string) bool {
	if _, ok := r.data[key]; ok {
		r.rejected("data " + key)
		return false
	}
	if r.data == nil {
		r.data = make(map[string]string)
	}
	r.data[key] = value
	return true
}

// SetLoad records the ZGC load averages.
func (r *Record) SetLoad(load []float64) bool { return set(r, &r.zLoad, "load", load) }

// SetMMU records one ZGC minimum mutator utilization window.
func (r *Record) SetMMU(window string, pct float64) bool {
	if _, ok := r.zMMU[window]; ok {
		r.rejected("mmu " + window)
		return false
	}
	if r.zMMU == nil {
		r.zMMU = make(map[string]float64)
	}
	r.zMMU[window] = pct
	return true
}

// SetZMetaspace records ZGC metaspace used, committed and reserved bytes.
func (r *Record) SetZMetaspace(used, committed, reserved int64) bool {
	return set(r, &r.zMeta, "metaspace", [3]int64{used, committed, reserved})
}

// SetHeapCell records one cell of the ZGC heap table.
func (r *Record) SetHeapCell(row, column string, bytes int64) bool {
	if r.zHeap == nil {
		r.zHeap = make(map[string]event.ZGCHeapRow)
	}
	cells := r.zHeap[row]
	if cells == nil {
		cells = make(event.ZGCHeapRow)
		r.zHeap[row] = cells
	}
	if _, ok := cells[column]; ok {
		r.rejected("heap " + row + "/" + column)
		return false
	}
	cells[column] = bytes
	return true
}

// SetRelocated records the bytes relocated by a ZGC cycle.
func (r *Record) SetRelocated(bytes int64) bool { return set(r, &r.zRelocated, "relocated", bytes) }

// MarkTerminal records that the line closing the event has been seen.
func (r *Record) MarkTerminal() {
	r.terminal = true
}

// Terminal reports whether the record can be built.
func (r *Record) Terminal() bool {
	return r.terminal
}

// Build assembles the event. It fails when the event type or the start
// time has not been established. Derived pools are computed only when
// every input is present.
func (r *Record) Build() (event.Event, error) {
	t, ok := r.kind.Get()
	if !ok {
		return event.Event{}, &BuildError{ID: r.id, Reason: "event type not established"}
	}
	ts, ok := r.start.Get()
	if !ok {
		return event.Event{}, &BuildError{ID: r.id, Type: t, Reason: "start time not established"}
	}

	ev := event.New(t, ts)
	ev.GCID = r.id
	ev.Cause = r.cause.Value()
	if d, ok := r.duration.Get(); ok {
		ev.Duration = d
	}

	heap := r.pools[Heap].Value()
	young := r.pools[Young].Value()
	tenured := r.pools[Tenured].Value()
	eden := r.pools[Eden].Value()
	survivor := r.pools[Survivor].Value()
	switch {
	case young == nil && tenured != nil:
		young = heap.Minus(tenured)
	case tenured == nil && young != nil:
		tenured = heap.Minus(young)
	case tenured == nil && eden != nil && survivor != nil:
		tenured = heap.Minus(eden).Minus(survivor)
	}
	if young == nil && eden != nil && survivor != nil {
		young = eden.Plus(survivor)
	}
	ev.Heap = heap
	ev.Young = young
	ev.Tenured = tenured
	ev.Eden = eden
	ev.Survivor = survivor
	ev.Metaspace = r.pools[Metaspace].Value()
	ev.PermGen = r.pools[PermGen].Value()

	ev.CPU = r.cpu.Value()
	ev.Concurrent = r.concurrent.Value()
	ev.Safepoint = r.safepoint.Value()
	ev.Tenuring = r.tenuring.Value()
	if len(r.phases) > 0 {
		ev.Phases = make(map[string]float64, len(r.phases))
		for k, v := range r.phases {
			ev.Phases[k] = v
		}
	}
	if len(r.regions) > 0 {
		ev.Regions = append([]event.RegionSummary(nil), r.regions...)
	}
	if len(r.data) > 0 {
		ev.Data = make(map[string]string, len(r.data))
		for k, v := range r.data {
			ev.Data[k] = v
		}
	}
	if z := r.zgc(); z != nil {
		ev.ZGC = z
	}
	return ev, nil
}

func (r *Record) zgc() *event.ZGCDetail {
	if !r.zLoad.IsSet() && r.zMMU == nil && !r.zMeta.IsSet() && r.zHeap == nil && !r.zRelocated.IsSet() {
		return nil
	}
	z := &event.ZGCDetail{
		Load:      r.zLoad.Value(),
		MMU:       r.zMMU,
		Heap:      r.zHeap,
		Relocated: r.zRelocated.Value(),
	}
	if m, ok := r.zMeta.Get(); ok {
		z.MetaspaceUsed, z.MetaspaceCommitted, z.MetaspaceReserved = m[0], m[1], m[2]
	}
	return z
}

// Discard logs that an unbuilt record is being dropped.
func (r *Record) Discard(reason string) {
	t, _ := r.kind.Get()
	r.log.Warn("discarding unbuilt event",
		slog.Int("gc_id", r.id),
		slog.String("type", string(t)),
		slog.String("reason", reason))
}
