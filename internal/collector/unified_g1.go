package collector

import (
	"context"
	"log/slog"

	"github.com/gclog/gclog-go/internal/fwdref"
	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// Decorated G1 collections. Rules apply to the message body after its GC(n)
// prefix.
var (
	// Matches: "Pause Young (Normal) (G1 Evacuation Pause)"
	// Matches: "Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.514ms"
	// Matches: "Pause Initial Mark (G1 Humongous Allocation) 60M->60M(256M) 1.002ms"
	// Matches: "Pause Remark 40M->40M(250M) 1.212ms"
	// Matches: "Pause Full (System.gc()) 250M->200M(256M) 45.601ms"
	// Captures: what, kind, cause, heap pool, pause
	ug1PauseRule = rule.New("g1 pause",
		`^Pause `+rule.Group("what", `Young|Initial Mark|Mixed|Remark|Cleanup|Full`)+
			rule.Opt(` \(`+rule.Group("kind", `Normal|Concurrent Start|Concurrent End|Prepare Mixed|Mixed|Initial Mark`)+`\)`)+
			rule.Opt(` `+parenCause)+
			rule.Opt(` `+rule.Pool("heap")+` `+rule.Duration("pause"))+`$`)

	// Matches: "Pre Evacuate Collection Set: 0.1ms"
	// Matches: "Phase 1: Mark live objects 12.345ms"
	ug1PhaseRule = rule.New("g1 phase",
		`^`+rule.Group("name", `[A-Z][A-Za-z ]*?`)+`: `+rule.Duration("d")+`$|`+
			`^`+rule.Group("name", `Phase \d+: [A-Za-z ]+?`)+` `+rule.Duration("d")+`$`)

	// Matches: "Eden regions: 24->0(150)"
	// Matches: "Old regions: 0->1"
	ug1RegionRule = rule.New("g1 regions",
		`^`+rule.Group("name", `Eden|Survivor|Old|Archive|Humongous`)+` regions: `+
			rule.Int("before")+`->`+rule.Int("after")+rule.Opt(`\(`+rule.Int("cap")+`\)`)+`$`)

	// Matches: "Metaspace: 1027K(1216K)->1027K(1216K) NonClass: 926K(1024K)->926K(1024K) Class: 100K(192K)->100K(192K)"
	// Matches: "Metaspace: 3751K->3751K(1056768K)"
	ug1MetaspaceRule = rule.New("g1 metaspace", `^Metaspace: `+rule.FlexPool("meta")+`(?: .*)?$`)
)

var ug1ConcurrentTypes = map[string]event.Type{
	"Cycle":                      event.G1ConcurrentCycle,
	"Mark Cycle":                 event.G1ConcurrentCycle,
	"Undo Cycle":                 event.G1ConcurrentUndoCycle,
	"Clear Claimed Marks":        event.G1ConcurrentClearClaimedMarks,
	"Scan Root Regions":          event.G1ConcurrentScanRootRegions,
	"Mark":                       event.G1ConcurrentMark,
	"Mark Abort":                 event.G1ConcurrentMarkAbort,
	"Mark Reset For Overflow":    event.G1ConcurrentMarkResetOverflow,
	"Rebuild Remembered Sets":    event.G1ConcurrentRebuildRemSets,
	"Cleanup for Next Mark":      event.G1ConcurrentCleanup,
	"Clear Bitmap for Next Mark": event.G1ConcurrentCleanup,
	"Create Live Data":           event.G1ConcurrentCreateLiveData,
}

// markSubphases are reported inside the enclosing Concurrent Mark and are
// recorded as its phases.
var markSubphases = map[string]bool{
	"Mark From Roots": true,
	"Preclean":        true,
}

// UnifiedG1 reads G1 collections from decorated logs. Pauses are keyed by
// GC id. A concurrent cycle shares the id of the pause that started it, so
// its phases are paired separately by id and phase name.
type UnifiedG1 struct {
	base
	open   *tracker
	marks  *fwdref.Arena[fwdref.Record]
	starts starts
}

// NewUnifiedG1 returns a decorated G1 parser.
func NewUnifiedG1(log *slog.Logger) *UnifiedG1 {
	p := &UnifiedG1{
		base:   newBase(log, "unified g1"),
		marks:  fwdref.NewArena[fwdref.Record](),
		starts: make(starts),
	}
	p.open = newTracker(&p.base)
	return p
}

var _ Parser = (*UnifiedG1)(nil)

// ParseLine implements Parser.
func (p *UnifiedG1) ParseLine(_ context.Context, line string) (Result, error) {
	var out []event.Event
	if line == EndOfData {
		out = p.open.finish(out)
		for _, r := range p.marks.Drain() {
			r.Discard("end of data")
		}
		p.starts.drop(p.log)
		return result(out, false), nil
	}
	dl, ok := decorate(line)
	if !ok || dl.id < 0 {
		return result(p.open.flush(out, -1), false), nil
	}

	tr := rule.First(dl.body, unifiedCPURule, ug1PauseRule, unifiedConcurrentRule,
		ug1RegionRule, ug1MetaspaceRule, ug1PhaseRule)
	keep := -1
	if tr != nil && tr.Rule() == unifiedCPURule {
		keep = dl.id
	}
	out = p.open.flush(out, keep)
	if tr == nil {
		return result(out, false), nil
	}

	var err error
	switch tr.Rule() {
	case unifiedCPURule:
		if r, ok := p.open.lookup(dl.id); ok {
			var cpu *event.CPUSummary
			if cpu, err = tr.CPU(); err == nil {
				r.SetCPU(cpu)
				if r.Terminal() {
					out = p.open.close(out, dl.id)
				}
			}
		}
	case ug1PauseRule:
		err = p.pause(dl, tr)
	case unifiedConcurrentRule:
		out, err = p.concurrent(out, dl, tr)
	case ug1RegionRule:
		if r, ok := p.open.lookup(dl.id); ok {
			f := read(tr)
			rs := event.RegionSummary{Name: tr.Group("name"), Before: f.integer("before"), After: f.integer("after"), Capacity: -1}
			if tr.Has("cap") {
				rs.Capacity = f.integer("cap")
			}
			if err = f.err; err == nil {
				r.AddRegion(rs)
			}
		}
	case ug1MetaspaceRule:
		if r, ok := p.open.lookup(dl.id); ok {
			var meta *event.MemoryPoolSummary
			if meta, err = tr.Pool("meta"); err == nil {
				r.SetPool(fwdref.Metaspace, meta)
			}
		}
	case ug1PhaseRule:
		if r, ok := p.open.lookup(dl.id); ok {
			var d float64
			if d, err = tr.Duration("d"); err == nil {
				r.SetPhase(tr.Group("name"), d)
			}
		}
	}
	if err != nil {
		p.open.abandon(dl.id, line, err)
	}
	return result(out, true), nil
}

func (p *UnifiedG1) pause(dl decorated, tr *rule.Trace) error {
	r := p.open.get(dl.id)
	if !tr.Has("heap_b") {
		r.SetType(g1PauseType(tr))
		r.SetStart(dl.ts)
		r.SetCause(tr.Cause())
		return nil
	}

	f := read(tr)
	heap := f.summary("heap")
	d := f.seconds("pause")
	if f.err != nil {
		return f.err
	}
	if _, ok := r.Type(); !ok {
		r.SetType(g1PauseType(tr))
		r.SetCause(tr.Cause())
	}
	if _, ok := r.Start(); !ok {
		r.SetStart(dl.ts.Add(-d))
	}
	r.SetPool(fwdref.Heap, heap)
	r.SetDuration(d)
	r.MarkTerminal()
	return nil
}

func g1PauseType(tr *rule.Trace) event.Type {
	switch tr.Group("what") {
	case "Initial Mark":
		return event.G1YoungInitialMark
	case "Mixed":
		return event.G1Mixed
	case "Remark":
		return event.G1Remark
	case "Cleanup":
		return event.G1Cleanup
	case "Full":
		return event.G1FullGC
	}
	switch tr.Group("kind") {
	case "Concurrent Start", "Initial Mark":
		return event.G1YoungInitialMark
	case "Mixed":
		return event.G1Mixed
	}
	return event.G1Young
}

// concurrent handles the start and end lines of concurrent phases. A phase
// whose start line was seen is timed from that line to the end line;
// otherwise the duration the end line reports is used.
func (p *UnifiedG1) concurrent(out []event.Event, dl decorated, tr *rule.Trace) ([]event.Event, error) {
	name := tr.Group("phase")
	d, err := tr.Seconds("d")
	if err != nil {
		return out, err
	}
	ended := d != event.UnknownDuration

	if markSubphases[name] {
		if mark, ok := p.marks.Get(dl.id); ok && ended {
			mark.SetPhase(name, d)
		}
		return out, nil
	}
	t, ok := ug1ConcurrentTypes[name]
	if !ok {
		p.log.Debug("unknown concurrent phase", slog.String("phase", name))
		return out, nil
	}

	key := phaseKey(dl.id, name)
	switch {
	case t == event.G1ConcurrentMarkAbort || t == event.G1ConcurrentMarkResetOverflow:
		r := p.record(dl.id)
		r.SetType(t)
		r.SetStart(dl.ts)
		return p.build(out, r), nil
	case !ended:
		p.starts.put(key, dl.ts)
		if t == event.G1ConcurrentMark {
			p.marks.Open(dl.id, func() *fwdref.Record { return p.record(dl.id) })
		}
		return out, nil
	}

	var r *fwdref.Record
	if t == event.G1ConcurrentMark {
		r, _ = p.marks.Remove(dl.id)
	}
	if r == nil {
		r = p.record(dl.id)
	}
	r.SetType(t)
	if start, ok := p.starts.take(key); ok {
		r.SetStart(start)
		r.SetDuration(dl.ts.Sub(start))
	} else {
		r.SetStart(dl.ts.Add(-d))
		r.SetDuration(d)
	}
	return p.build(out, r), nil
}
