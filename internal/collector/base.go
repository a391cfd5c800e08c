package collector

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/gclog/gclog-go/internal/fwdref"
	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

var errNoStamp = errors.New("line carries no timestamp")

// Shared fragments.
const (
	// innerStamp is a non-capturing timestamp embedded inside a record.
	innerStamp = `(?:` + rule.DateRE + `: )?(?:` + rule.UptimeRE + `: )?`

	// parenCause is a parenthesized cause without the trailing space.
	parenCause = `\(` + `(?P<cause>(?:[^()]|\([^()]*\))*)` + `\)`

	// qualifierRE is the text of one or more adjacent parenthesized
	// qualifiers without the outer parentheses.
	qualifierRE = `[^()]*(?:\) \([^()]*)*`
)

var (
	// lineStamp reads the leading timestamp of an undecorated line.
	lineStamp = rule.New("line stamp", `^`+rule.Stamp())

	// Matches: "User=0.01s Sys=0.00s Real=0.00s"
	unifiedCPURule = rule.New("cpu", `^`+rule.UnifiedCPU()+`$`)

	// Matches: "Concurrent Cycle"
	// Matches: "Concurrent Mark (0.410s, 0.413s) 2.456ms"
	// Matches: "Concurrent marking (unload classes) 1024M->1040M(2048M) 58.651ms"
	// Matches: "Concurrent marking (process weakrefs) (unload classes)"
	// Captures: phase, qualifier, heap pool, d
	unifiedConcurrentRule = rule.New("concurrent",
		`^Concurrent `+rule.Group("phase", `[A-Za-z][A-Za-z ]*?`)+
			rule.Opt(` \(`+rule.Group("qualifier", qualifierRE)+`\)`)+
			rule.Opt(` `+rule.FlexPool("heap"))+
			rule.Opt(` `+rule.Duration("d"))+`$`)
)

// qualifier returns the captured qualifiers joined by ", ".
func qualifier(tr *rule.Trace) string {
	return strings.ReplaceAll(tr.Group("qualifier"), ") (", ", ")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// base carries what every parser needs.
type base struct {
	log *slog.Logger
}

func newBase(log *slog.Logger, parser string) base {
	if log == nil {
		log = discardLogger()
	}
	return base{log: log.With(slog.String("parser", parser))}
}

func (b *base) record(id int) *fwdref.Record {
	return fwdref.NewRecord(b.log, id)
}

// build assembles r and appends the event to out. A record that cannot be
// built is logged and dropped.
func (b *base) build(out []event.Event, r *fwdref.Record) []event.Event {
	ev, err := r.Build()
	if err != nil {
		b.log.Warn("dropping incomplete event", slog.Any("error", err))
		return out
	}
	return append(out, ev)
}

// malformed logs a line whose captures could not be converted.
func (b *base) malformed(line string, err error) {
	b.log.Warn("malformed line", slog.String("line", line), slog.Any("error", err))
}

// result wraps the events emitted for a line.
func result(out []event.Event, matched bool) Result {
	return Result{Events: out, Matched: matched || len(out) > 0}
}

// fields reads typed captures from a trace and keeps the first failure.
type fields struct {
	tr  *rule.Trace
	err error
}

func read(tr *rule.Trace) *fields {
	return &fields{tr: tr}
}

// summary returns the pool captured under name in the Pool, SizedPool,
// FlexPool or Occupancy shape, or nil when absent.
func (f *fields) summary(name string) *event.MemoryPoolSummary {
	if f.err != nil {
		return nil
	}
	p, err := f.tr.Pool(name)
	if err != nil {
		f.err = err
		return nil
	}
	if p != nil {
		return p
	}
	o, err := f.tr.Occupancy(name)
	if err != nil {
		f.err = err
		return nil
	}
	return o
}

// seconds returns a duration capture, or event.UnknownDuration when absent.
func (f *fields) seconds(name string) float64 {
	if f.err != nil {
		return event.UnknownDuration
	}
	d, err := f.tr.Seconds(name)
	if err != nil {
		f.err = err
		return event.UnknownDuration
	}
	return d
}

func (f *fields) float(name string) float64 {
	if f.err != nil {
		return 0
	}
	v, err := f.tr.Float(name)
	if err != nil {
		f.err = err
	}
	return v
}

func (f *fields) integer(name string) int {
	if f.err != nil {
		return 0
	}
	v, err := f.tr.Int(name)
	if err != nil {
		f.err = err
	}
	return v
}

func (f *fields) long(name string) int64 {
	if f.err != nil {
		return 0
	}
	v, err := f.tr.Int64(name)
	if err != nil {
		f.err = err
	}
	return v
}

func (f *fields) bytes(name string) int64 {
	if f.err != nil {
		return 0
	}
	v, err := f.tr.Bytes(name)
	if err != nil {
		f.err = err
	}
	return v
}

func (f *fields) cpu() *event.CPUSummary {
	if f.err != nil {
		return nil
	}
	c, err := f.tr.CPU()
	if err != nil {
		f.err = err
	}
	return c
}

// stamp returns the embedded timestamp. A trace without one fails with
// errNoStamp.
func (f *fields) stamp() event.DateTimeStamp {
	if f.err != nil {
		return event.Unknown()
	}
	ts, ok, err := f.tr.Stamp()
	switch {
	case err != nil:
		f.err = err
	case !ok:
		f.err = errNoStamp
	}
	return ts
}

// fill copies the pools, duration and cpu summary a trace carries onto r.
// Pools are read from the captures young, tenured, heap, eden and meta;
// the duration from pause.
func fill(r *fwdref.Record, tr *rule.Trace) error {
	f := read(tr)
	young := f.summary("young")
	tenured := f.summary("tenured")
	heap := f.summary("heap")
	eden := f.summary("eden")
	meta := f.summary("meta")
	d := f.seconds("pause")
	cpu := f.cpu()
	if f.err != nil {
		return f.err
	}
	r.SetPool(fwdref.Young, young)
	r.SetPool(fwdref.Tenured, tenured)
	r.SetPool(fwdref.Heap, heap)
	r.SetPool(fwdref.Eden, eden)
	if strings.Contains(tr.Group("metakind"), "Perm") {
		r.SetPool(fwdref.PermGen, meta)
	} else {
		r.SetPool(fwdref.Metaspace, meta)
	}
	if d != event.UnknownDuration {
		r.SetDuration(d)
	}
	r.SetCPU(cpu)
	return nil
}

// clock remembers the timestamp of the most recent line that carried one.
type clock struct {
	last event.DateTimeStamp
	seen bool
}

func (c *clock) observe(line string) {
	var ts event.DateTimeStamp
	if d, ok := rule.ParseDecorators(line); ok {
		ts = d.Stamp()
		if !ts.HasUptime() && !ts.HasWall() {
			return
		}
	} else {
		tr := lineStamp.Parse(line)
		if tr == nil {
			return
		}
		var ok bool
		var err error
		if ts, ok, err = tr.Stamp(); err != nil || !ok {
			return
		}
	}
	c.last, c.seen = ts, true
}

// now returns the last observed timestamp, or an unknown one.
func (c *clock) now() event.DateTimeStamp {
	if !c.seen {
		return event.Unknown()
	}
	return c.last
}

// decorated is a unified logging line split into its parts.
type decorated struct {
	rule.Decorators
	id   int
	ts   event.DateTimeStamp
	body string
}

func decorate(line string) (decorated, bool) {
	d, ok := rule.ParseDecorators(line)
	if !ok {
		return decorated{}, false
	}
	return decorated{
		Decorators: d,
		id:         d.GCID(),
		ts:         d.Stamp(),
		body:       strings.TrimSpace(d.Body()),
	}, true
}

// tracker holds the decorated accumulators of one parser, keyed by GC id.
// A record marked terminal is built once a line other than its cpu line
// arrives.
type tracker struct {
	*base
	open *fwdref.Arena[fwdref.Record]
}

func newTracker(b *base) *tracker {
	return &tracker{base: b, open: fwdref.NewArena[fwdref.Record]()}
}

// get returns the record for id, opening one if needed.
func (t *tracker) get(id int) *fwdref.Record {
	return t.open.Open(id, func() *fwdref.Record { return t.record(id) })
}

func (t *tracker) lookup(id int) (*fwdref.Record, bool) {
	return t.open.Get(id)
}

// close builds the record for id.
func (t *tracker) close(out []event.Event, id int) []event.Event {
	if r, ok := t.open.Remove(id); ok {
		out = t.build(out, r)
	}
	return out
}

// flush builds every terminal record except the one for keep.
func (t *tracker) flush(out []event.Event, keep int) []event.Event {
	if t.open.Len() == 0 {
		return out
	}
	for _, id := range t.open.IDs() {
		if id == keep {
			continue
		}
		if r, _ := t.open.Get(id); r.Terminal() {
			out = t.close(out, id)
		}
	}
	return out
}

// abandon drops the record for id after a malformed line.
func (t *tracker) abandon(id int, line string, err error) {
	t.malformed(line, err)
	if r, ok := t.open.Remove(id); ok {
		r.Discard(err.Error())
	}
}

// finish builds the terminal records and discards the rest.
func (t *tracker) finish(out []event.Event) []event.Event {
	for _, r := range t.open.Drain() {
		if r.Terminal() {
			out = t.build(out, r)
			continue
		}
		r.Discard("end of data")
	}
	return out
}

// starts pairs phase start lines with their end lines.
type starts map[string]event.DateTimeStamp

func phaseKey(id int, phase string) string {
	return strconv.Itoa(id) + "/" + phase
}

func (s starts) put(key string, ts event.DateTimeStamp) {
	s[key] = ts
}

func (s starts) take(key string) (event.DateTimeStamp, bool) {
	ts, ok := s[key]
	delete(s, key)
	return ts, ok
}

// drop logs and forgets every phase that never ended.
func (s starts) drop(log *slog.Logger) {
	for _, k := range slices.Sorted(maps.Keys(s)) {
		log.Warn("discarding unfinished phase", slog.String("phase", k))
		delete(s, k)
	}
}
