package collector

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gclog/gclog-go/internal/fwdref"
	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

const cmsPhases = `mark|preclean|abortable-preclean|sweep|reset`

// Undecorated CMS tenured collections.
var (
	// Matches: "12.986: [GC[1 CMS-initial-mark: 33532K(62656K)] 49652K(81280K), 0.0014191 secs]"
	// Matches: "2.345: [GC (CMS Initial Mark) [1 CMS-initial-mark: 33532K(62656K)] 49652K(81280K), 0.0014191 secs]"
	initialMarkRule = rule.New("cms initial mark",
		rule.Stamp()+`\[GC ?`+rule.Cause()+`\[1 CMS-initial-mark: `+rule.Occupancy("tenured")+`\] `+
			rule.Occupancy("heap")+`, `+rule.Pause("pause")+`\]`+times)

	// Matches: "13.0: [GC (CMS Final Remark) [YG occupancy: 1234 K (19648 K)]13.0: [Rescan (parallel) , 0.0012 secs]13.0: [weak refs processing, 0.0000 secs][1 CMS-remark: 33532K(62656K)] 34766K(82304K), 0.0025 secs]"
	// Captures: yg_a, yg_s, phases, tenured, heap, pause
	remarkRule = rule.New("cms remark",
		rule.Stamp()+`\[GC ?`+rule.Cause()+`\[YG occupancy: `+rule.Int("yg_a")+` K \(`+rule.Int("yg_s")+` K\)\]`+
			rule.Group("phases", `.*?`)+` ?\[1 CMS-remark: `+rule.Occupancy("tenured")+`\] `+
			rule.Occupancy("heap")+`, `+rule.Pause("pause")+`\]`+times)

	// Matches: "13.0: [Rescan (parallel) , 0.0012 secs]"
	remarkPhaseRule = rule.New("cms remark phase",
		innerStamp+`\[`+rule.Group("name", `[A-Za-z][A-Za-z ()]*?`)+` ?, `+rule.Pause("d")+`\]`)

	// Matches: "27.538: [CMS-concurrent-mark-start]"
	concurrentStartRule = rule.New("cms concurrent start",
		rule.Stamp()+`\[CMS-concurrent-`+rule.Group("phase", cmsPhases)+`-start\]`)

	// Matches: "27.626: [CMS-concurrent-mark: 0.070/0.089 secs]"
	// Captures: phase, cpu, wall
	concurrentEndRule = rule.New("cms concurrent end",
		rule.Stamp()+`\[CMS-concurrent-`+rule.Group("phase", cmsPhases)+`: `+
			rule.Real("cpu")+`/`+rule.Real("wall")+` secs\]`+times)

	// Matches: " CMS: abort preclean due to time 13.5: [CMS-concurrent-abortable-preclean: 0.553/5.013 secs]"
	abortPrecleanRule = rule.New("cms abort preclean",
		`CMS: abort preclean due to time `+rule.Stamp()+`\[CMS-concurrent-abortable-preclean: `+
			rule.Real("cpu")+`/`+rule.Real("wall")+` secs\]`+times)
)

var cmsPhaseTypes = map[string]event.Type{
	"mark":               event.CMSConcurrentMark,
	"preclean":           event.CMSConcurrentPreclean,
	"abortable-preclean": event.CMSAbortablePreclean,
	"sweep":              event.CMSConcurrentSweep,
	"reset":              event.CMSConcurrentReset,
}

// abortedPreclean is the reason recorded when the abortable preclean ran
// out of time.
const abortedPreclean event.Cause = "abort preclean due to time"

// CMSTenured reads the concurrent mark-sweep phases of undecorated logs.
// A concurrent phase is timed from its start line to its end line; the
// cpu and wall figures the phase reports about itself are kept alongside.
type CMSTenured struct {
	base
	starts starts
}

// NewCMSTenured returns a CMS tenured pool parser.
func NewCMSTenured(log *slog.Logger) *CMSTenured {
	return &CMSTenured{base: newBase(log, "cms"), starts: make(starts)}
}

var _ Parser = (*CMSTenured)(nil)

// ParseLine implements Parser.
func (p *CMSTenured) ParseLine(_ context.Context, line string) (Result, error) {
	if line == EndOfData {
		p.starts.drop(p.log)
		return Result{}, nil
	}

	tr := rule.First(line, initialMarkRule, remarkRule, concurrentStartRule, abortPrecleanRule, concurrentEndRule)
	if tr == nil {
		return Result{}, nil
	}

	var out []event.Event
	var err error
	switch tr.Rule() {
	case initialMarkRule:
		out, err = p.pause(out, tr, event.CMSInitialMark)
	case remarkRule:
		out, err = p.pause(out, tr, event.CMSRemark)
	case concurrentStartRule:
		f := read(tr)
		ts := f.stamp()
		if err = f.err; err == nil {
			p.starts.put(tr.Group("phase"), ts)
		}
	case abortPrecleanRule, concurrentEndRule:
		out, err = p.concurrent(out, tr)
	}
	if err != nil {
		p.malformed(line, err)
	}
	return result(out, true), nil
}

func (p *CMSTenured) pause(out []event.Event, tr *rule.Trace, t event.Type) ([]event.Event, error) {
	r := p.record(-1)
	f := read(tr)
	ts := f.stamp()
	if f.err != nil {
		return out, f.err
	}
	if err := fill(r, tr); err != nil {
		return out, err
	}
	r.SetType(t)
	r.SetStart(ts)
	r.SetCause(tr.Cause())

	if t == event.CMSRemark {
		ygA, ygS := f.long("yg_a"), f.long("yg_s")
		if f.err != nil {
			return out, f.err
		}
		r.SetPool(fwdref.Young, event.NewOccupancy(ygA<<10, ygS<<10))
		for _, ph := range remarkPhaseRule.ParseAll(tr.Group("phases")) {
			d, err := ph.Duration("d")
			if err != nil {
				return out, err
			}
			r.SetPhase(strings.TrimSpace(ph.Group("name")), d)
		}
	}
	return p.build(out, r), nil
}

func (p *CMSTenured) concurrent(out []event.Event, tr *rule.Trace) ([]event.Event, error) {
	f := read(tr)
	end := f.stamp()
	cpu, wall := f.float("cpu"), f.float("wall")
	usage := f.cpu()
	if f.err != nil {
		return out, f.err
	}

	phase := "abortable-preclean"
	if tr.Rule() == concurrentEndRule {
		phase = tr.Group("phase")
	}
	r := p.record(-1)
	r.SetType(cmsPhaseTypes[phase])
	r.SetConcurrent(&event.ConcurrentTimes{CPU: cpu, Wall: wall})
	r.SetCPU(usage)
	if tr.Rule() == abortPrecleanRule {
		r.SetCause(abortedPreclean)
	}
	if start, ok := p.starts.take(phase); ok {
		r.SetStart(start)
		r.SetDuration(end.Sub(start))
	} else {
		p.log.Debug("concurrent phase ended without a start line", slog.String("phase", phase))
		r.SetStart(end.Add(-wall))
		r.SetDuration(wall)
	}
	return p.build(out, r), nil
}
