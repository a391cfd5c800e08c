package collector

import (
	"context"
	"log/slog"

	"github.com/gclog/gclog-go/internal/fwdref"
	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// Shenandoah lines.
var (
	// Matches: "Pause Init Mark (unload classes)"
	// Matches: "Pause Init Mark (unload classes) 0.567ms"
	// Matches: "Pause Init Mark (update refs) (unload classes) 0.567ms"
	// Matches: "Pause Degenerated GC (Mark) 60M->40M(128M) 12.345ms"
	// Matches: "Pause Full (System.gc()) 128M->30M(128M) 45.601ms"
	// Captures: what, qualifier, heap pool, d
	shPauseRule = rule.New("shenandoah pause",
		`^Pause `+rule.Group("what", `Init Mark|Final Mark|Init Update Refs|Final Update Refs|Full|Degenerated GC`)+
			rule.Opt(` \(`+rule.Group("qualifier", `(?:[^()]|\([^()]*\))*(?:\) \([^()]*)*`)+`\)`)+
			rule.Opt(` `+rule.FlexPool("heap"))+
			rule.Opt(` `+rule.Duration("d"))+`$`)

	// Matches: "Trigger: Learning 1 of 5. Free (1433M) is below initial threshold (1433M)"
	shTriggerRule = rule.New("shenandoah trigger", `^Trigger: `)

	// Matches: "0.345: [Pause Init Mark, 0.429 ms]"
	// Matches: "2019-01-17T10:20:30.123+0000: 1.234: [Concurrent marking 1435M->1447M(2048M), 11.034 ms]"
	// Captures: date, uptime, kind, what, qualifier, heap pool, d
	shLegacyRule = rule.New("shenandoah undecorated",
		`^`+rule.Stamp()+`\[`+rule.Group("kind", `Pause|Concurrent`)+` `+
			rule.Group("what", `[A-Za-z][A-Za-z ]*?`)+
			rule.Opt(` \(`+rule.Group("qualifier", qualifierRE)+`\)`)+
			rule.Opt(` `+rule.FlexPool("heap"))+`,? `+rule.Duration("d")+`\]$`)
)

var shPauseTypes = map[string]event.Type{
	"Init Mark":         event.ShenandoahInitMark,
	"Final Mark":        event.ShenandoahFinalMark,
	"Init Update Refs":  event.ShenandoahInitUpdateRefs,
	"Final Update Refs": event.ShenandoahFinalUpdateRefs,
	"Full":              event.ShenandoahFull,
	"Degenerated GC":    event.ShenandoahDegenerated,
}

var shConcurrentTypes = map[string]event.Type{
	"marking":           event.ShenandoahConcurrentMark,
	"evacuation":        event.ShenandoahConcurrentEvacuation,
	"update references": event.ShenandoahConcurrentUpdateRefs,
	"cleanup":           event.ShenandoahConcurrentCleanup,
	"reset":             event.ShenandoahConcurrentReset,
	"marking roots":     event.ShenandoahConcurrentRootsMark,
	"roots":             event.ShenandoahConcurrentRootsMark,
	"strong roots":      event.ShenandoahConcurrentRootsMark,
	"weak references":   event.ShenandoahConcurrentWeakRefs,
	"weak roots":        event.ShenandoahConcurrentWeakRefs,
}

// Shenandoah reads Shenandoah pauses and concurrent phases. Decorated logs
// print a start line for most phases and an end line carrying the
// duration; undecorated logs print only the end line.
type Shenandoah struct {
	base
	starts starts
}

// NewShenandoah returns a Shenandoah parser.
func NewShenandoah(log *slog.Logger) *Shenandoah {
	return &Shenandoah{base: newBase(log, "shenandoah"), starts: make(starts)}
}

var _ Parser = (*Shenandoah)(nil)

// phase is one Shenandoah pause or concurrent phase end line.
type phase struct {
	t         event.Type
	id        int
	end       event.DateTimeStamp
	key       string
	qualifier string
	tr        *rule.Trace
}

// ParseLine implements Parser.
func (p *Shenandoah) ParseLine(_ context.Context, line string) (Result, error) {
	if line == EndOfData {
		p.starts.drop(p.log)
		return Result{}, nil
	}

	dl, ok := decorate(line)
	if !ok {
		return p.legacy(line)
	}
	tr := rule.First(dl.body, shTriggerRule, shPauseRule, unifiedConcurrentRule)
	if tr == nil {
		return Result{}, nil
	}

	var ph phase
	switch tr.Rule() {
	case shTriggerRule:
		return Result{Matched: true}, nil
	case shPauseRule:
		ph.key = phaseKey(dl.id, "Pause "+tr.Group("what"))
		ph.t = shPauseTypes[tr.Group("what")]
	case unifiedConcurrentRule:
		t, known := shConcurrentTypes[tr.Group("phase")]
		if !known {
			return Result{}, nil
		}
		ph.key = phaseKey(dl.id, "Concurrent "+tr.Group("phase"))
		ph.t = t
	}
	ph.id, ph.end, ph.qualifier, ph.tr = dl.id, dl.ts, qualifier(tr), tr

	if !tr.Has("d") {
		p.starts.put(ph.key, dl.ts)
		return Result{Matched: true}, nil
	}
	out, err := p.emit(nil, ph)
	if err != nil {
		p.malformed(line, err)
	}
	return result(out, true), nil
}

func (p *Shenandoah) legacy(line string) (Result, error) {
	tr := shLegacyRule.Parse(line)
	if tr == nil {
		return Result{}, nil
	}
	f := read(tr)
	end := f.stamp()
	if f.err != nil {
		p.malformed(line, f.err)
		return Result{Matched: true}, nil
	}
	what := tr.Group("what")
	t, ok := shPauseTypes[what]
	if tr.Group("kind") == "Concurrent" {
		t, ok = shConcurrentTypes[what]
	}
	if !ok {
		return Result{}, nil
	}
	out, err := p.emit(nil, phase{t: t, id: -1, end: end, qualifier: qualifier(tr), tr: tr})
	if err != nil {
		p.malformed(line, err)
	}
	return result(out, true), nil
}

// emit builds the event for an end line. The start is the paired start
// line when one was seen, otherwise the end less the duration. A paired
// concurrent phase is timed from its start line to its end line.
func (p *Shenandoah) emit(out []event.Event, ph phase) ([]event.Event, error) {
	f := read(ph.tr)
	heap := f.summary("heap")
	d := f.seconds("d")
	if f.err != nil {
		return out, f.err
	}
	r := p.record(ph.id)
	r.SetType(ph.t)
	r.SetPool(fwdref.Heap, heap)
	start, paired := p.starts.take(ph.key)
	switch {
	case paired && !ph.t.IsPause():
		r.SetStart(start)
		r.SetDuration(ph.end.Sub(start))
	case paired:
		r.SetStart(start)
		r.SetDuration(d)
	default:
		r.SetStart(ph.end.Add(-d))
		r.SetDuration(d)
	}
	if ph.qualifier != "" {
		r.SetData("qualifier", ph.qualifier)
		if ph.t == event.ShenandoahFull {
			r.SetCause(event.ParseCause(ph.qualifier))
		}
	}
	return p.build(out, r), nil
}
