package collector

import (
	"context"
	"log/slog"

	"github.com/gclog/gclog-go/internal/fwdref"
	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// Undecorated G1 collections.
var (
	// Matches: "2.050: [GC pause (G1 Evacuation Pause) (young) 52816K->9563K(1024M), 0.0225 secs]"
	// Matches: "2.050: [GC pause (G1 Evacuation Pause) (young), 0.0031180 secs]"
	// Matches: "2.050: [GC pause (G1 Humongous Allocation) (young) (initial-mark)"
	// Captures: cause, gen, im, heap pool, pause
	g1PauseRule = rule.New("g1 pause",
		`^`+rule.Stamp()+`\[GC pause `+rule.Cause()+`\(`+rule.Group("gen", `young|mixed`)+`\)`+
			rule.Opt(` \(`+rule.Group("im", `initial-mark`)+`\)`)+
			rule.Opt(` \(to-space (?:exhausted|overflow)\)`)+
			rule.Opt(`,? `+rule.Pool("heap"))+
			rule.Opt(`, `+rule.Pause("pause")+`\]`)+`$`)

	// Matches: ", 0.0031180 secs]"
	g1PauseTailRule = rule.New("g1 pause end", `^, `+rule.Pause("pause")+`\]$`)

	// Matches: "[Parallel Time: 2.6 ms, GC Workers: 4]"
	// Matches: "[Code Root Fixup: 0.0 ms]"
	g1PhaseRule = rule.New("g1 phase",
		`^\[`+rule.Group("name", `[A-Z][A-Za-z ]*?`)+`: `+rule.Real("d")+` ?`+rule.Group("d_unit", `ms`)+
			`(?:, GC Workers: \d+)?\]$`)

	// Matches: "[Eden: 14.0M(14.0M)->0.0B(12.0M) Survivors: 0.0B->2048.0K Heap: 14.0M(256.0M)->3402.0K(256.0M)]"
	// Matches: "[Eden: 0.0B(24.0M)->0.0B(24.0M) Survivors: 0.0B->0.0B Heap: 1023.9M(1024.0M)->1023.6M(1024.0M)], [Metaspace: 2637K->2637K(1056768K)]"
	g1HeapRule = rule.New("g1 heap",
		`^\[Eden: `+rule.SizedPool("eden")+` Survivors: `+rule.Mem("surv_b")+`->`+rule.Mem("surv_a")+
			` Heap: `+rule.SizedPool("heap")+`\]`+metaspace)

	// Matches: "[Times: user=0.01 sys=0.00, real=0.00 secs]"
	g1TimesRule = rule.New("g1 times", `^`+rule.Times())

	// Matches: "2.5: [Full GC (Allocation Failure)  1023M->1023M(1024M), 3.0 secs]"
	g1FullRule = rule.New("g1 full",
		rule.Stamp()+`\[Full GC `+rule.Cause()+` ?`+rule.Pool("heap")+`, `+rule.Pause("pause")+`\]`)

	// Matches: "2.6: [GC remark 2.6: [Finalize Marking, 0.0001 secs] 2.6: [GC ref-proc, 0.0001 secs] 2.6: [Unloading, 0.0010 secs], 0.0020 secs]"
	// Matches: "2.6: [GC remark, 0.0020 secs]"
	g1RemarkRule = rule.New("g1 remark",
		rule.Stamp()+`\[GC remark`+rule.Group("phases", `.*`)+`, `+rule.Pause("pause")+`\]`)

	// Matches: "[Finalize Marking, 0.0001 secs]"
	g1RemarkPhaseRule = rule.New("g1 remark phase",
		`\[`+rule.Group("name", `[A-Za-z][A-Za-z -]*?`)+`, `+rule.Pause("d")+`\]`)

	// Matches: "2.7: [GC cleanup 1022M->1022M(1024M), 0.0005 secs]"
	g1CleanupRule = rule.New("g1 cleanup",
		rule.Stamp()+`\[GC cleanup `+rule.Pool("heap")+`, `+rule.Pause("pause")+`\]`)

	// Matches: "2.6: [GC concurrent-mark-start]"
	// Matches: "2.6: [GC concurrent-mark-end, 0.0123 secs]"
	// Matches: "2.6: [GC concurrent-mark-abort]"
	g1ConcurrentRule = rule.New("g1 concurrent",
		rule.Stamp()+`\[GC concurrent-`+
			rule.Group("phase", `root-region-scan|mark|cleanup|mark-reset-for-overflow|mark-abort`)+
			rule.Opt(`-`+rule.Group("edge", `start|end`))+rule.Opt(`,? `+rule.Pause("d"))+`\]`)
)

var g1PhaseTypes = map[string]event.Type{
	"root-region-scan":        event.G1ConcurrentScanRootRegions,
	"mark":                    event.G1ConcurrentMark,
	"cleanup":                 event.G1ConcurrentCleanup,
	"mark-reset-for-overflow": event.G1ConcurrentMarkResetOverflow,
	"mark-abort":              event.G1ConcurrentMarkAbort,
}

// G1 reads the region based collector from undecorated logs. With detailed
// logging a pause spans many lines and ends with its [Times: ...] line; the
// pending pause collects phase timings and pool sizes until then.
type G1 struct {
	base
	details bool
	cur     *fwdref.Record
	starts  starts
}

// NewG1 returns a parser for the log described by d.
func NewG1(d *diary.Diary, log *slog.Logger) *G1 {
	return &G1{
		base:    newBase(log, "g1"),
		details: d.Is(diary.GCDetails),
		starts:  make(starts),
	}
}

var _ Parser = (*G1)(nil)

// ParseLine implements Parser.
func (p *G1) ParseLine(_ context.Context, line string) (Result, error) {
	var out []event.Event
	if line == EndOfData {
		out = p.settle(out)
		p.starts.drop(p.log)
		return result(out, false), nil
	}

	tr := rule.First(line, g1PauseRule, g1FullRule, g1RemarkRule, g1CleanupRule, g1ConcurrentRule,
		g1PauseTailRule, g1PhaseRule, g1HeapRule, g1TimesRule)
	if tr == nil {
		return Result{}, nil
	}

	var err error
	switch tr.Rule() {
	case g1PauseRule, g1FullRule, g1RemarkRule, g1CleanupRule:
		out = p.settle(out)
		out, err = p.pause(out, tr)
	case g1ConcurrentRule:
		out, err = p.concurrent(out, tr)
	case g1TimesRule:
		if p.cur != nil {
			var cpu *event.CPUSummary
			if cpu, err = tr.CPU(); err == nil {
				p.cur.SetCPU(cpu)
				out = p.build(out, p.cur)
				p.cur = nil
			}
		}
	default:
		if p.cur != nil {
			err = p.detail(p.cur, tr)
		}
	}
	if err != nil {
		p.malformed(line, err)
		p.abandon(err)
	}
	return result(out, true), nil
}

// pause opens a pause record, or emits it at once when the line is the
// whole collection.
func (p *G1) pause(out []event.Event, tr *rule.Trace) ([]event.Event, error) {
	f := read(tr)
	ts := f.stamp()
	if f.err != nil {
		return out, f.err
	}
	r := p.record(-1)
	if err := fill(r, tr); err != nil {
		return out, err
	}
	r.SetStart(ts)
	r.SetCause(tr.Cause())

	switch tr.Rule() {
	case g1PauseRule:
		switch {
		case tr.Group("gen") == "mixed":
			r.SetType(event.G1Mixed)
		case tr.Has("im"):
			r.SetType(event.G1YoungInitialMark)
		default:
			r.SetType(event.G1Young)
		}
	case g1FullRule:
		r.SetType(event.G1FullGC)
	case g1RemarkRule:
		r.SetType(event.G1Remark)
		for _, ph := range g1RemarkPhaseRule.ParseAll(tr.Group("phases")) {
			d, err := ph.Duration("d")
			if err != nil {
				return out, err
			}
			r.SetPhase(ph.Group("name"), d)
		}
	case g1CleanupRule:
		r.SetType(event.G1Cleanup)
	}

	if _, ok := r.Duration(); ok {
		r.MarkTerminal()
	}
	// A heap-only pause line is the whole collection when details are off.
	if r.Terminal() && (!p.details || tr.Rule() == g1PauseRule && tr.Has("heap")) {
		return p.build(out, r), nil
	}
	p.cur = r
	return out, nil
}

// detail applies one continuation line of a detailed pause.
func (p *G1) detail(r *fwdref.Record, tr *rule.Trace) error {
	switch tr.Rule() {
	case g1PauseTailRule:
		d, err := tr.Duration("pause")
		if err != nil {
			return err
		}
		r.SetDuration(d)
		r.MarkTerminal()
	case g1PhaseRule:
		d, err := tr.Duration("d")
		if err != nil {
			return err
		}
		r.SetPhase(tr.Group("name"), d)
	case g1HeapRule:
		f := read(tr)
		eden, heap, meta := f.summary("eden"), f.summary("heap"), f.summary("meta")
		before, after := f.bytes("surv_b"), f.bytes("surv_a")
		if f.err != nil {
			return f.err
		}
		r.SetPool(fwdref.Eden, eden)
		if r.PoolValue(fwdref.Heap) == nil {
			r.SetPool(fwdref.Heap, heap)
		}
		r.SetPool(fwdref.Metaspace, meta)
		// survivor capacity is not printed; the occupancy stands in for it
		r.SetPool(fwdref.Survivor, &event.MemoryPoolSummary{
			OccupancyBefore: before, SizeBefore: before,
			OccupancyAfter: after, SizeAfter: after,
		})
	}
	return nil
}

func (p *G1) concurrent(out []event.Event, tr *rule.Trace) ([]event.Event, error) {
	f := read(tr)
	ts := f.stamp()
	reported := f.seconds("d")
	if f.err != nil {
		return out, f.err
	}
	phase := tr.Group("phase")
	t, ok := g1PhaseTypes[phase]
	if !ok {
		return out, nil
	}
	if tr.Group("edge") == "start" {
		p.starts.put(phase, ts)
		return out, nil
	}

	r := p.record(-1)
	r.SetType(t)
	start, ok := p.starts.take(phase)
	switch {
	case ok:
		r.SetStart(start)
		r.SetDuration(ts.Sub(start))
	case reported != event.UnknownDuration:
		r.SetStart(ts.Add(-reported))
		r.SetDuration(reported)
	default:
		// abort and overflow are instants
		r.SetStart(ts)
	}
	return p.build(out, r), nil
}

// settle finishes the pending pause: a pause whose duration is known is
// emitted without its cpu summary, anything else is discarded.
func (p *G1) settle(out []event.Event) []event.Event {
	if p.cur == nil {
		return out
	}
	r := p.cur
	p.cur = nil
	if r.Terminal() {
		return p.build(out, r)
	}
	r.Discard("no closing line")
	return out
}

func (p *G1) abandon(err error) {
	if p.cur != nil {
		p.cur.Discard(err.Error())
		p.cur = nil
	}
}

