package rule

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// Decorated matches the bracketed prefix of a unified logging line. The
// first bracket must hold a time decoration or a level.
//
// Matches: "[0.019s][info][gc,init] Using G1"
// Matches: "[2020-03-27T11:33:16.211+0100][info][gc] Using G1"
// Matches: "[1635760800000ms][12ms][info ][gc,heap ] GC(0) ..."
var Decorated = regexp.MustCompile(
	`^\[(?:` + DateRE + `|` + UptimeRE + `s|\d+ms|\d+ns|(?:trace|debug|info|warning|error|develop) *)\]`,
)

var (
	dateDecoration   = regexp.MustCompile(`^` + DateRE + `$`)
	uptimeDecoration = regexp.MustCompile(`^(` + UptimeRE + `)s$`)
	millisDecoration = regexp.MustCompile(`^(\d+)ms$`)
	nanosDecoration  = regexp.MustCompile(`^(\d+)ns$`)
	tagsDecoration   = regexp.MustCompile(`^[a-z0-9_]+(?:,[a-z0-9_]+)*$`)
	gcidPrefix       = regexp.MustCompile(`^GC\((\d+)\) `)
)

// Epoch based millisecond and nanosecond decorations are told apart from
// uptime based ones by magnitude: any runtime up for less than three years
// prints uptimes below these bounds.
const (
	epochMillisFloor = 100_000_000_000
	epochNanosFloor  = 100_000_000_000_000_000
)

var levels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warning": true, "error": true, "develop": true,
}

// Decorators is the parsed prefix of a unified logging line.
type Decorators struct {
	Wall   time.Time
	Uptime float64 // seconds, NaN when absent
	Level  string
	Tags   []string

	message string
}

// ParseDecorators splits a unified logging line into its decorations and
// message. ok is false when the line does not carry the bracketed prefix.
func ParseDecorators(line string) (d Decorators, ok bool) {
	if !Decorated.MatchString(line) {
		return Decorators{Uptime: math.NaN()}, false
	}
	d.Uptime = math.NaN()
	rest := line
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		d.decorate(strings.TrimSpace(rest[1:end]))
		rest = rest[end+1:]
		if d.Tags != nil {
			// the tag set is the last decoration HotSpot prints
			break
		}
	}
	d.message = strings.TrimPrefix(rest, " ")
	return d, true
}

func (d *Decorators) decorate(s string) {
	switch {
	case dateDecoration.MatchString(s):
		if w, err := event.ParseDateStamp(s); err == nil {
			d.Wall = w
		}
	case uptimeDecoration.MatchString(s):
		if v, err := ParseFloat(s[:len(s)-1]); err == nil {
			d.Uptime = v
		}
	case millisDecoration.MatchString(s):
		v, err := strconv.ParseInt(s[:len(s)-2], 10, 64)
		if err != nil {
			return
		}
		if v >= epochMillisFloor {
			d.Wall = time.UnixMilli(v).UTC()
		} else {
			d.Uptime = float64(v) / 1e3
		}
	case nanosDecoration.MatchString(s):
		v, err := strconv.ParseInt(s[:len(s)-2], 10, 64)
		if err != nil {
			return
		}
		if v >= epochNanosFloor {
			d.Wall = time.Unix(0, v).UTC()
		} else {
			d.Uptime = float64(v) / 1e9
		}
	case d.Level == "" && levels[s]:
		d.Level = s
	case tagsDecoration.MatchString(s) && strings.Trim(s, "0123456789") != "":
		d.Tags = strings.Split(s, ",")
	}
	// pid, tid and hostname decorations are ignored
}

// Stamp returns the line timestamp.
func (d Decorators) Stamp() event.DateTimeStamp {
	return event.DateTimeStamp{Wall: d.Wall, Uptime: d.Uptime}
}

// HasTag reports whether tag is in the tag set.
func (d Decorators) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// TagSet returns the tags joined as printed, e.g. "gc,start".
func (d Decorators) TagSet() string {
	return strings.Join(d.Tags, ",")
}

// Message returns the text after the decorations.
func (d Decorators) Message() string {
	return d.message
}

// GCID returns the cycle id the message is prefixed with, or -1.
func (d Decorators) GCID() int {
	m := gcidPrefix.FindStringSubmatch(d.message)
	if m == nil {
		return -1
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return id
}

// Body returns the message without its "GC(n) " prefix.
func (d Decorators) Body() string {
	if loc := gcidPrefix.FindStringIndex(d.message); loc != nil {
		return d.message[loc[1]:]
	}
	return d.message
}
