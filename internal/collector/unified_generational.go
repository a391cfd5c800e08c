package collector

import (
	"context"
	"log/slog"

	"github.com/gclog/gclog-go/internal/fwdref"
	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// Decorated Serial, Parallel and CMS collections. Rules apply to the
// message body after its GC(n) prefix.
var (
	// Matches: "Pause Young (Allocation Failure)"
	// Matches: "Pause Young (Allocation Failure) 4M->1M(15M) 2.104ms"
	// Matches: "Pause Full (System.gc()) 12M->10M(120M) 20.105ms"
	// Matches: "Pause Initial Mark 10M->10M(20M) 0.234ms"
	ugPauseRule = rule.New("pause",
		`^Pause `+rule.Group("what", `Young|Full|Initial Mark|Remark`)+
			rule.Opt(` `+parenCause)+
			rule.Opt(` `+rule.Pool("heap")+` `+rule.Duration("pause"))+`$`)

	// Matches: "DefNew: 4416K->512K(4928K)"
	// Matches: "DefNew: 4416K(4928K)->512K(4928K) Eden: 4416K(4416K)->0K(4416K) From: 0K(512K)->512K(512K)"
	// Matches: "Metaspace: 581K(4864K)->581K(4864K) NonClass: 526K(4352K)->526K(4352K) Class: 55K(512K)->55K(512K)"
	ugPoolRule = rule.New("pool",
		`^`+rule.Group("pool", `DefNew|ParNew|PSYoungGen|Tenured|ParOldGen|PSOldGen|CMS|Metaspace`)+`: `+
			rule.FlexPool("p")+
			rule.Opt(` Eden: `+rule.FlexPool("eden")+` From: `+rule.FlexPool("from"))+`(?: .*)?$`)

	// Matches: "Phase 1: Mark live objects 1.234ms"
	// Matches: "Marking Phase 3.456ms"
	ugPhaseRule = rule.New("phase",
		`^`+rule.Group("name", `Phase \d+: [A-Za-z ]+?|[A-Z][A-Za-z ]*? Phase|Adjust Roots|Post Compact`)+
			` `+rule.Duration("d")+`$`)
)

var ugPoolSlots = map[string]fwdref.Pool{
	"DefNew":     fwdref.Young,
	"ParNew":     fwdref.Young,
	"PSYoungGen": fwdref.Young,
	"Tenured":    fwdref.Tenured,
	"ParOldGen":  fwdref.Tenured,
	"PSOldGen":   fwdref.Tenured,
	"CMS":        fwdref.Tenured,
	"Metaspace":  fwdref.Metaspace,
}

var ugConcurrentTypes = map[string]event.Type{
	"Mark":               event.CMSConcurrentMark,
	"Preclean":           event.CMSConcurrentPreclean,
	"Abortable Preclean": event.CMSAbortablePreclean,
	"Sweep":              event.CMSConcurrentSweep,
	"Reset":              event.CMSConcurrentReset,
}

// UnifiedGenerational reads Serial, Parallel and CMS collections from
// decorated logs. Each collection is keyed by its GC id; its pause line
// closes it and its cpu line, when present, is the last one attached.
type UnifiedGenerational struct {
	base
	diary  *diary.Diary
	open   *tracker
	starts starts
}

// NewUnifiedGenerational returns a parser for the log described by d.
func NewUnifiedGenerational(d *diary.Diary, log *slog.Logger) *UnifiedGenerational {
	p := &UnifiedGenerational{
		base:   newBase(log, "unified generational"),
		diary:  d,
		starts: make(starts),
	}
	p.open = newTracker(&p.base)
	return p
}

var _ Parser = (*UnifiedGenerational)(nil)

// ParseLine implements Parser.
func (p *UnifiedGenerational) ParseLine(_ context.Context, line string) (Result, error) {
	var out []event.Event
	if line == EndOfData {
		out = p.open.finish(out)
		p.starts.drop(p.log)
		return result(out, false), nil
	}
	dl, ok := decorate(line)
	if !ok || dl.id < 0 {
		return result(p.open.flush(out, -1), false), nil
	}

	tr := rule.First(dl.body, unifiedCPURule, ugPauseRule, ugPoolRule, ugPhaseRule, unifiedConcurrentRule)
	keep := -1
	if tr != nil && tr.Rule() == unifiedCPURule {
		keep = dl.id
	}
	out = p.open.flush(out, keep)
	if tr == nil {
		return result(out, false), nil
	}
	if tr.Rule() == unifiedConcurrentRule {
		if _, known := ugConcurrentTypes[tr.Group("phase")]; !known {
			return result(out, false), nil
		}
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
	case ugPauseRule:
		err = p.pause(dl, tr)
	case ugPoolRule:
		err = p.pool(dl, tr)
	case ugPhaseRule:
		if r, ok := p.open.lookup(dl.id); ok {
			var d float64
			if d, err = tr.Duration("d"); err == nil {
				r.SetPhase(tr.Group("name"), d)
			}
		}
	case unifiedConcurrentRule:
		out, err = p.concurrent(out, dl, tr)
	}
	if err != nil {
		p.open.abandon(dl.id, line, err)
	}
	return result(out, true), nil
}

func (p *UnifiedGenerational) pause(dl decorated, tr *rule.Trace) error {
	r := p.open.get(dl.id)
	if !tr.Has("heap_b") {
		r.SetType(p.classify(tr))
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
		r.SetType(p.classify(tr))
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

func (p *UnifiedGenerational) classify(tr *rule.Trace) event.Type {
	switch tr.Group("what") {
	case "Initial Mark":
		return event.CMSInitialMark
	case "Remark":
		return event.CMSRemark
	case "Full":
		switch {
		case p.diary.IsPSYoung():
			return event.PSFullGC
		case tr.Cause().IsSystemGC():
			return event.SystemGC
		}
		return event.FullGC
	}
	switch {
	case p.diary.Is(diary.ParNew):
		return event.ParNew
	case p.diary.Is(diary.PSYoungGen):
		return event.PSYoungGen
	case p.diary.Is(diary.DefNew):
		return event.DefNew
	}
	return event.YoungGC
}

func (p *UnifiedGenerational) pool(dl decorated, tr *rule.Trace) error {
	r, ok := p.open.lookup(dl.id)
	if !ok {
		return nil
	}
	f := read(tr)
	pool, eden, from := f.summary("p"), f.summary("eden"), f.summary("from")
	if f.err != nil {
		return f.err
	}
	r.SetPool(ugPoolSlots[tr.Group("pool")], pool)
	r.SetPool(fwdref.Eden, eden)
	r.SetPool(fwdref.Survivor, from)
	return nil
}

// concurrent pairs a CMS phase start line with its end line. The duration
// is the time between the two lines; the figure the end line reports is used
// only when the start line is missing.
func (p *UnifiedGenerational) concurrent(out []event.Event, dl decorated, tr *rule.Trace) ([]event.Event, error) {
	name := tr.Group("phase")
	t, ok := ugConcurrentTypes[name]
	if !ok {
		return out, nil
	}
	key := phaseKey(dl.id, name)
	if !tr.Has("d") {
		p.starts.put(key, dl.ts)
		return out, nil
	}
	d, err := tr.Duration("d")
	if err != nil {
		return out, err
	}
	r := p.record(dl.id)
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
