package collector

import (
	"context"
	"log/slog"

	"github.com/gclog/gclog-go/internal/fwdref"
	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

const icms = `(?: icms_dc=\d+ )?`

var (
	// Matches: ", [Metaspace: 2637K->2637K(1056768K)]"
	// Matches: ", [CMS Perm : 2637K->2637K(21248K)]"
	metaspace = rule.Opt(`, \[` + rule.Group("metakind", `Metaspace|Perm|PSPermGen|CMS Perm`) + ` ?: ` + rule.Pool("meta") + `\]`)

	times = rule.Opt(` ?` + rule.Times())
)

// Undecorated generational collections.
var (
	// Matches: "13.782: [GC (Allocation Failure) 13.782: [ParNew: 17472K->2176K(19648K), 0.0123 secs] 51004K->38511K(82304K), 0.0124 secs] [Times: user=0.03 sys=0.01, real=0.01 secs]"
	// Matches: "2.345: [GC (Allocation Failure) [PSYoungGen: 33280K->5104K(38400K)] 33280K->5112K(125952K), 0.0046 secs]"
	// Captures: coll, pf, young pool, heap pool, meta pool, pause, cpu
	youngRule = rule.New("young",
		rule.Stamp()+`\[GC(?:--)? `+rule.Cause()+innerStamp+
			`\[`+rule.Group("coll", `DefNew|ParNew|PSYoungGen`)+rule.Group("pf", ` \(promotion failed\)`)+`?: `+
			rule.Pool("young")+rule.Opt(`, `+rule.Pause("ypause"))+`\] `+
			rule.Pool("heap")+icms+metaspace+`, `+rule.Pause("pause")+`\]`+times)

	// Matches: "2.1: [GC (Allocation Failure) 2.1: [ParNew (promotion failed): 17472K->17472K(19648K), 0.0100 secs]2.1: [CMS: 40960K->8405K(40960K), 0.0346 secs] 59347K->8405K(59392K), [Metaspace: 2637K->2637K(1056768K)], 0.0447 secs]"
	// Matches: "5.6: [GC (Allocation Failure) 5.6: [DefNew: 4416K->4416K(4928K), 0.0000 secs]5.6: [Tenured: 10944K->10944K(10944K), 0.0238 secs] 15360K->15834K(15872K), [Metaspace: 2637K->2637K(1056768K)], 0.0239 secs]"
	promotedRule = rule.New("promoted",
		rule.Stamp()+`\[GC `+rule.Cause()+innerStamp+
			`\[`+rule.Group("coll", `DefNew|ParNew`)+rule.Group("pf", ` \(promotion failed\)`)+`?: `+
			rule.Pool("young")+`, `+rule.Pause("ypause")+`\] ?`+innerStamp+
			`\[`+rule.Group("old", `Tenured|CMS`)+`: `+rule.Pool("tenured")+`, `+rule.Pause("tpause")+`\] `+
			rule.Pool("heap")+metaspace+`, `+rule.Pause("pause")+`\]`+times)

	// Matches: "5.678: [Full GC (Allocation Failure) 5.678: [Tenured: 10944K->10944K(10944K), 0.0238 secs] 15871K->15834K(15872K), [Metaspace: 2637K->2637K(1056768K)], 0.0239 secs]"
	// Matches: "5.0: [Full GC 5.0: [CMS: 40960K->8405K(40960K), 0.0346 secs] 59347K->8405K(59392K), [CMS Perm : 2637K->2637K(21248K)], 0.0347 secs]"
	fullRule = rule.New("full",
		rule.Stamp()+`\[Full GC `+rule.Cause()+innerStamp+
			`\[`+rule.Group("old", `Tenured|CMS`)+`: `+rule.Pool("tenured")+`, `+rule.Pause("tpause")+`\] `+
			rule.Pool("heap")+metaspace+`, `+rule.Pause("pause")+`\]`+times)

	// Matches: "5.109: [Full GC (System.gc()) [PSYoungGen: 2208K->0K(38400K)] [ParOldGen: 8K->2042K(87552K)] 2216K->2042K(125952K), [Metaspace: 2671K->2671K(1056768K)], 0.0145 secs]"
	psFullRule = rule.New("ps full",
		rule.Stamp()+`\[Full GC `+rule.Cause()+
			`\[PSYoungGen: `+rule.Pool("young")+`\] \[`+rule.Group("old", `ParOldGen|PSOldGen`)+`: `+rule.Pool("tenured")+`\] `+
			rule.Pool("heap")+metaspace+`, `+rule.Pause("pause")+`\]`+times)

	// Matches: "22.0: [GC (Allocation Failure) 22.0: [ParNew: 17472K->17472K(19648K), 0.0000 secs]22.0: [CMS22.3: [CMS-concurrent-sweep: 0.3/0.3 secs] (concurrent mode failure): 40960K->8405K(40960K), 0.0346 secs] 59347K->8405K(59392K), [Metaspace: 2637K->2637K(1056768K)], 0.0347 secs]"
	cmfRule = rule.New("concurrent mode failure",
		rule.Stamp()+`\[(?:Full GC|GC) `+rule.Cause()+`.*?\(`+rule.Group("kind", `concurrent mode (?:failure|interrupted)`)+`\): `+
			rule.Pool("tenured")+`, `+rule.Pause("tpause")+`\] `+
			rule.Pool("heap")+metaspace+`, `+rule.Pause("pause")+`\]`+times)

	// Matches: "22.0: [Full GC (Allocation Failure) 22.0: [CMS22.303: [CMS-concurrent-mark: 0.070/0.089 secs] [Times: user=0.16 sys=0.01, real=0.09 secs]"
	// Matches: "22.0: [GC (Allocation Failure) 22.0: [ParNew: 17472K->17472K(19648K), 0.0000 secs]22.0: [CMS"
	cmfOpenRule = rule.New("concurrent mode failure start",
		`^`+rule.Stamp()+`\[(?:Full GC|GC) `+rule.Cause()+innerStamp+
			`(?:\[(?:DefNew|ParNew)[^\]]*\] ?`+innerStamp+`)?\[CMS(?:`+innerStamp+`\[CMS-concurrent-.*)?$`)

	// Matches: "(concurrent mode failure): 40960K->8405K(40960K), 0.0346 secs] 59347K->8405K(59392K), [Metaspace: 2637K->2637K(1056768K)], 0.0347 secs]"
	cmfCloseRule = rule.New("concurrent mode failure end",
		`^\(`+rule.Group("kind", `concurrent mode (?:failure|interrupted)`)+`\): `+
			rule.Pool("tenured")+`, `+rule.Pause("tpause")+`\] `+
			rule.Pool("heap")+metaspace+`, `+rule.Pause("pause")+`\]`+times)

	// Matches: "2.382: [GC (Allocation Failure) 2.382: [ParNew"
	// Matches: "2.345: [GC (Allocation Failure)"
	youngOpenRule = rule.New("young start",
		`^`+rule.Stamp()+`\[GC(?:--)?(?: `+rule.Cause()+
			rule.Opt(innerStamp+`\[`+rule.Group("coll", `DefNew|ParNew`))+`)?$`)

	// Matches: ": 17472K->2176K(19648K), 0.0123 secs] 17472K->5003K(63360K), 0.0124 secs] [Times: user=0.03 sys=0.01, real=0.01 secs]"
	youngTailRule = rule.New("young end",
		`^: `+rule.Pool("young")+`, `+rule.Pause("ypause")+`\] `+
			rule.Pool("heap")+icms+`, `+rule.Pause("pause")+`\]`+times)

	// Matches: "[PSYoungGen: 33280K->5104K(38400K)] 33280K->5112K(125952K), 0.0046 secs]"
	psTailRule = rule.New("ps young end",
		`^\[PSYoungGen: `+rule.Pool("young")+`\] `+rule.Pool("heap")+`, `+rule.Pause("pause")+`\]`+times)

	// Matches: "2.382: [GC (Allocation Failure)  17472K->5003K(63360K), 0.0124 secs]"
	// Matches: "5.109: [Full GC (Ergonomics)  12345K->9876K(125952K), 0.0145 secs]"
	simpleRule = rule.New("simple",
		rule.Stamp()+`\[`+rule.Group("full", `Full `)+`?GC(?:--)? `+rule.Cause()+` ?`+
			rule.Pool("heap")+`, `+rule.Pause("pause")+`\]`)
)

// Generational reads the young and full collections of the Serial,
// Parallel and ParNew collectors from undecorated logs. Collections that
// were split across lines by the tenuring distribution or by a concurrent
// mode failure are reassembled from a single pending record.
type Generational struct {
	base
	diary *diary.Diary
	cur   *fwdref.Record

	// simple disables the heap-only rules for region based logs, whose full
	// collections share their shape.
	simple bool
}

// NewGenerational returns a parser for the log described by d.
func NewGenerational(d *diary.Diary, log *slog.Logger) *Generational {
	return &Generational{
		base:   newBase(log, "generational"),
		diary:  d,
		simple: !d.IsG1() && !d.IsShenandoah(),
	}
}

var _ Parser = (*Generational)(nil)

// ParseLine implements Parser.
func (p *Generational) ParseLine(_ context.Context, line string) (Result, error) {
	if line == EndOfData {
		p.discard("end of data")
		return Result{}, nil
	}

	rules := []*rule.Rule{cmfRule, promotedRule, fullRule, psFullRule, youngRule, cmfOpenRule, youngOpenRule}
	if p.cur != nil {
		rules = append([]*rule.Rule{youngTailRule, psTailRule, cmfCloseRule}, rules...)
	}
	if p.simple {
		rules = append(rules, simpleRule)
	}
	tr := rule.First(line, rules...)
	if tr == nil {
		return Result{}, nil
	}

	var out []event.Event
	switch tr.Rule() {
	case youngTailRule, psTailRule, cmfCloseRule:
		r := p.cur
		p.cur = nil
		if tr.Rule() == psTailRule {
			r.SetType(event.PSYoungGen)
		} else if tr.Has("kind") {
			r.SetType(failureType(tr.Group("kind")))
		} else if _, ok := r.Type(); !ok {
			r.SetType(p.youngType())
		}
		if err := fill(r, tr); err != nil {
			p.malformed(line, err)
			r.Discard(err.Error())
			return Result{Matched: true}, nil
		}
		out = p.build(out, r)

	case youngOpenRule, cmfOpenRule:
		p.discard("superseded by a new collection")
		f := read(tr)
		ts := f.stamp()
		if f.err != nil {
			p.malformed(line, f.err)
			return Result{Matched: true}, nil
		}
		r := p.record(-1)
		r.SetStart(ts)
		r.SetCause(tr.Cause())
		if tr.Has("coll") {
			r.SetType(collectorType(tr.Group("coll"), false))
		}
		p.cur = r

	default:
		p.discard("superseded by a new collection")
		r := p.record(-1)
		f := read(tr)
		ts := f.stamp()
		if f.err == nil {
			f.err = fill(r, tr)
		}
		if f.err != nil {
			p.malformed(line, f.err)
			return Result{Matched: true}, nil
		}
		r.SetStart(ts)
		r.SetCause(tr.Cause())
		r.SetType(p.classify(tr))
		out = p.build(out, r)
	}
	return result(out, true), nil
}

// classify returns the event type of a single line collection.
func (p *Generational) classify(tr *rule.Trace) event.Type {
	cause := tr.Cause()
	switch tr.Rule() {
	case cmfRule:
		return failureType(tr.Group("kind"))
	case psFullRule:
		return event.PSFullGC
	case youngRule:
		return collectorType(tr.Group("coll"), tr.Has("pf"))
	case promotedRule:
		if tr.Has("pf") {
			return event.ParNewPromotionFailed
		}
		return event.FullGC
	case simpleRule:
		if !tr.Has("full") {
			return p.youngType()
		}
		if p.diary.IsPSYoung() {
			return event.PSFullGC
		}
	}
	if cause.IsSystemGC() {
		return event.SystemGC
	}
	return event.FullGC
}

// youngType returns the young collection type implied by the diary.
func (p *Generational) youngType() event.Type {
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

func (p *Generational) discard(reason string) {
	if p.cur != nil {
		p.cur.Discard(reason)
		p.cur = nil
	}
}

func collectorType(coll string, promotionFailed bool) event.Type {
	switch coll {
	case "ParNew":
		if promotionFailed {
			return event.ParNewPromotionFailed
		}
		return event.ParNew
	case "PSYoungGen":
		return event.PSYoungGen
	}
	return event.DefNew
}

func failureType(kind string) event.Type {
	if kind == "concurrent mode interrupted" {
		return event.ConcurrentModeInterrupted
	}
	return event.ConcurrentModeFailure
}
