package collector

import (
	"context"
	"log/slog"

	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// Runtime lines. The stopped and application time rules read both
// dialects: undecorated lines carry an embedded stamp, decorated bodies
// do not.
var (
	// Matches: "2.345: Total time for which application threads were stopped: 0.0001234 seconds, Stopping threads took: 0.0000123 seconds"
	// Matches: "Total time for which application threads were stopped: 0.0003460 seconds"
	// Captures: date, uptime, stopped, reach
	stoppedRule = rule.New("stopped time",
		`^`+rule.Stamp()+`Total time for which application threads were stopped: `+rule.Real("stopped")+` seconds`+
			rule.Opt(`, Stopping threads took: `+rule.Real("reach")+` seconds`))

	// Matches: "2.300: Application time: 0.1234560 seconds"
	appTimeRule = rule.New("application time",
		`^`+rule.Stamp()+`Application time: `+rule.Real("running")+` seconds`)

	// Matches: `Safepoint "G1CollectForAllocation", Time since last: 2345678 ns, Reaching safepoint: 12345 ns, At safepoint: 1234567 ns, Total: 1246912 ns`
	// Matches: `Safepoint "Cleanup", Time since last: 1000 ns, Reaching safepoint: 200 ns, Cleanup: 50 ns, At safepoint: 300 ns, Total: 550 ns`
	safepointRule = rule.New("safepoint",
		`^Safepoint "`+rule.Group("op", `[^"]+`)+`", Time since last: `+rule.Int("since")+
			` ns, Reaching safepoint: `+rule.Int("reach")+` ns,`+rule.Opt(` Cleanup: `+rule.Int("cleanup")+` ns,`)+
			` At safepoint: `+rule.Int("at")+` ns, Total: `+rule.Int("total")+` ns$`)
)

const nanos = 1e-9

// JVM reads runtime events that do not belong to a collector: time spent
// at safepoints, the time the application ran between them, and the end
// of the log.
type JVM struct {
	base
	clock clock
}

// NewJVM returns a runtime event parser.
func NewJVM(log *slog.Logger) *JVM {
	return &JVM{base: newBase(log, "jvm")}
}

var _ Parser = (*JVM)(nil)

// ParseLine implements Parser. The sentinel yields exactly one termination
// event stamped with the last timestamp seen.
func (p *JVM) ParseLine(_ context.Context, line string) (Result, error) {
	if line == EndOfData {
		r := p.record(-1)
		r.SetType(event.JVMTermination)
		r.SetStart(p.clock.now())
		return result(p.build(nil, r), true), nil
	}
	p.clock.observe(line)

	body, id, ts := line, -1, event.Unknown()
	decorated := false
	if dl, ok := decorate(line); ok {
		body, id, ts, decorated = dl.body, dl.id, dl.ts, true
	}

	tr := rule.First(body, stoppedRule, appTimeRule, safepointRule)
	if tr == nil {
		return Result{}, nil
	}
	if !decorated {
		var ok bool
		var err error
		if ts, ok, err = tr.Stamp(); err != nil || !ok {
			ts = p.clock.now()
		}
	}

	var out []event.Event
	var err error
	switch tr.Rule() {
	case stoppedRule:
		out, err = p.stopped(out, id, ts, tr)
	case appTimeRule:
		var d float64
		if d, err = tr.Float("running"); err == nil {
			r := p.record(id)
			r.SetType(event.ApplicationConcurrentTime)
			r.SetStart(ts)
			r.SetDuration(d)
			out = p.build(out, r)
		}
	case safepointRule:
		out, err = p.safepoint(out, id, ts, tr)
	}
	if err != nil {
		p.malformed(line, err)
	}
	return result(out, true), nil
}

func (p *JVM) stopped(out []event.Event, id int, ts event.DateTimeStamp, tr *rule.Trace) ([]event.Event, error) {
	f := read(tr)
	stopped := f.float("stopped")
	var reach float64
	if tr.Has("reach") {
		reach = f.float("reach")
	}
	if f.err != nil {
		return out, f.err
	}
	r := p.record(id)
	r.SetType(event.ApplicationStoppedTime)
	r.SetStart(ts)
	r.SetDuration(stopped)
	r.SetSafepoint(&event.SafepointTimes{TimeToSafepoint: reach, AtSafepoint: max(stopped-reach, 0)})
	return p.build(out, r), nil
}

// safepoint emits a decorated safepoint line. The line is logged when the
// operation completes, so the event starts Total before it.
func (p *JVM) safepoint(out []event.Event, id int, ts event.DateTimeStamp, tr *rule.Trace) ([]event.Event, error) {
	f := read(tr)
	since, reach, at, total := f.long("since"), f.long("reach"), f.long("at"), f.long("total")
	var cleanup int64
	if tr.Has("cleanup") {
		cleanup = f.long("cleanup")
	}
	if f.err != nil {
		return out, f.err
	}
	d := float64(total) * nanos
	r := p.record(id)
	r.SetType(event.Safepoint)
	r.SetStart(ts.Add(-d))
	r.SetDuration(d)
	r.SetSafepoint(&event.SafepointTimes{
		Operation:          tr.Group("op"),
		TimeToSafepoint:    float64(reach) * nanos,
		AtSafepoint:        float64(at) * nanos,
		SinceLastSafepoint: float64(since) * nanos,
	})
	if tr.Has("cleanup") {
		r.SetPhase("Cleanup", float64(cleanup)*nanos)
	}
	return p.build(out, r), nil
}
