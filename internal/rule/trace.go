package rule

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// ErrBadValue is wrapped by every ValueError.
var ErrBadValue = errors.New("malformed value")

// ValueError reports a capture that could not be converted.
type ValueError struct {
	Rule  string
	Group string
	Text  string
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("rule %s: group %s: %q: %v", e.Rule, e.Group, e.Text, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

// Trace is a typed accessor over one match.
type Trace struct {
	rule *Rule
	line string
	idx  []int
}

// Rule returns the rule that produced the trace.
func (t *Trace) Rule() *Rule {
	return t.rule
}

// Line returns the matched line.
func (t *Trace) Line() string {
	return t.line
}

// Text returns the whole match.
func (t *Trace) Text() string {
	return t.line[t.idx[0]:t.idx[1]]
}

// Start returns the byte offset of the match in the line.
func (t *Trace) Start() int {
	return t.idx[0]
}

// End returns the byte offset just past the match.
func (t *Trace) End() int {
	return t.idx[1]
}

// Group returns the first non-empty capture called name, or "".
func (t *Trace) Group(name string) string {
	for _, i := range t.rule.groups[name] {
		lo, hi := t.idx[2*i], t.idx[2*i+1]
		if lo >= 0 && hi > lo {
			return t.line[lo:hi]
		}
	}
	return ""
}

// Has reports whether the capture called name participated in the match
// with non-empty text.
func (t *Trace) Has(name string) bool {
	return t.Group(name) != ""
}

func (t *Trace) fail(group, text string, err error) error {
	return &ValueError{Rule: t.rule.name, Group: group, Text: text, Err: errors.Join(ErrBadValue, err)}
}

// Int returns the capture as an int.
func (t *Trace) Int(name string) (int, error) {
	s := t.Group(name)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, t.fail(name, s, err)
	}
	return n, nil
}

// Int64 returns the capture as an int64.
func (t *Trace) Int64(name string) (int64, error) {
	s := t.Group(name)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, t.fail(name, s, err)
	}
	return n, nil
}

// Float returns the capture as a float64. Both "," and "." are accepted as
// the decimal separator.
func (t *Trace) Float(name string) (float64, error) {
	s := t.Group(name)
	f, err := ParseFloat(s)
	if err != nil {
		return 0, t.fail(name, s, err)
	}
	return f, nil
}

// Bytes returns a memory size capture converted to bytes.
func (t *Trace) Bytes(name string) (int64, error) {
	s := t.Group(name)
	n, err := ParseBytes(s)
	if err != nil {
		return 0, t.fail(name, s, err)
	}
	return n, nil
}

// Pool returns the summary captured by Pool or SizedPool under name. It
// returns nil without error when the pool did not participate in the match.
func (t *Trace) Pool(name string) (*event.MemoryPoolSummary, error) {
	if !t.Has(name + "_b") {
		return nil, nil
	}
	before, err := t.Bytes(name + "_b")
	if err != nil {
		return nil, err
	}
	after, err := t.Bytes(name + "_a")
	if err != nil {
		return nil, err
	}
	size, err := t.Bytes(name + "_s")
	if err != nil {
		return nil, err
	}
	p := event.NewPool(before, after, size)
	if t.Has(name + "_sb") {
		if p.SizeBefore, err = t.Bytes(name + "_sb"); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Occupancy returns the single observation captured by Occupancy under name,
// or nil when absent.
func (t *Trace) Occupancy(name string) (*event.MemoryPoolSummary, error) {
	if !t.Has(name + "_a") {
		return nil, nil
	}
	occ, err := t.Bytes(name + "_a")
	if err != nil {
		return nil, err
	}
	size, err := t.Bytes(name + "_s")
	if err != nil {
		return nil, err
	}
	return event.NewOccupancy(occ, size), nil
}

// Duration returns a duration capture in seconds. The unit is read from
// name_unit when present and defaults to seconds.
func (t *Trace) Duration(name string) (float64, error) {
	v, err := t.Float(name)
	if err != nil {
		return 0, err
	}
	unit := t.Group(name + "_unit")
	scale, ok := unitScale(unit)
	if !ok {
		return 0, t.fail(name+"_unit", unit, errors.New("unknown time unit"))
	}
	return v * scale, nil
}

// Seconds is Duration for captures that may be absent; it returns
// event.UnknownDuration when name did not participate in the match.
func (t *Trace) Seconds(name string) (float64, error) {
	if !t.Has(name) {
		return event.UnknownDuration, nil
	}
	return t.Duration(name)
}

// Cause returns the captured cause, or event.CauseUnknown when the clause was
// absent.
func (t *Trace) Cause() event.Cause {
	return event.ParseCause(t.Group("cause"))
}

// Stamp returns the embedded timestamp captured by Stamp. ok is false when
// neither a date stamp nor an uptime was captured.
func (t *Trace) Stamp() (ts event.DateTimeStamp, ok bool, err error) {
	ts = event.Unknown()
	if s := t.Group("date"); s != "" {
		w, perr := event.ParseDateStamp(s)
		if perr != nil {
			return ts, false, t.fail("date", s, perr)
		}
		ts.Wall = w
		ok = true
	}
	if t.Has("uptime") {
		up, ferr := t.Float("uptime")
		if ferr != nil {
			return ts, false, ferr
		}
		ts.Uptime = up
		ok = true
	}
	return ts, ok, nil
}

// CPU returns the user/sys/real summary captured by Times or UnifiedCPU, or
// nil when absent.
func (t *Trace) CPU() (*event.CPUSummary, error) {
	if !t.Has("real") {
		return nil, nil
	}
	var c event.CPUSummary
	var err error
	if c.User, err = t.Float("user"); err != nil {
		return nil, err
	}
	if c.Sys, err = t.Float("sys"); err != nil {
		return nil, err
	}
	if c.Real, err = t.Float("real"); err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseFloat parses a decimal number written with either separator.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// ParseBytes converts a memory size such as "33532K" or "1.5G" to bytes.
func ParseBytes(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty size")
	}
	var mult float64
	switch s[len(s)-1] {
	case 'B', 'b':
		mult = 1
	case 'K', 'k':
		mult = 1 << 10
	case 'M', 'm':
		mult = 1 << 20
	case 'G', 'g':
		mult = 1 << 30
	case 'T', 't':
		mult = 1 << 40
	default:
		return 0, fmt.Errorf("missing unit in %q", s)
	}
	v, err := ParseFloat(s[:len(s)-1])
	if err != nil {
		return 0, err
	}
	return int64(math.Round(v * mult)), nil
}

func unitScale(unit string) (float64, bool) {
	switch unit {
	case "", "s", "sec", "secs":
		return 1, true
	case "ms":
		return 1e-3, true
	case "us":
		return 1e-6, true
	case "ns":
		return 1e-9, true
	}
	return 0, false
}
