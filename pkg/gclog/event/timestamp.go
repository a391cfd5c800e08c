package event

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateStampLayout is the layout of the wall clock stamps HotSpot prints,
// e.g. "2018-04-04T09:10:00.586-0100".
const DateStampLayout = "2006-01-02T15:04:05.000-0700"

// DateTimeStamp is a point in a GC log. Lines may carry the elapsed seconds
// since JVM start (uptime), a wall clock instant, or both.
type DateTimeStamp struct {
	Wall   time.Time
	Uptime float64 // NaN when absent
}

// NewUptime returns a stamp carrying only elapsed seconds.
func NewUptime(seconds float64) DateTimeStamp {
	return DateTimeStamp{Uptime: seconds}
}

// NewWall returns a stamp carrying only a wall clock instant.
func NewWall(t time.Time) DateTimeStamp {
	return DateTimeStamp{Wall: t, Uptime: math.NaN()}
}

// NewDateTimeStamp returns a stamp carrying both representations.
func NewDateTimeStamp(wall time.Time, uptime float64) DateTimeStamp {
	return DateTimeStamp{Wall: wall, Uptime: uptime}
}

// Unknown returns a stamp with neither representation.
func Unknown() DateTimeStamp {
	return DateTimeStamp{Uptime: math.NaN()}
}

// ParseDateStamp parses a HotSpot wall clock stamp. Both "." and "," are
// accepted as the fractional separator.
func ParseDateStamp(s string) (time.Time, error) {
	s = strings.Replace(s, ",", ".", 1)
	t, err := time.Parse(DateStampLayout, s)
	if err != nil {
		// utctime decorations use a literal +0000 which the layout covers,
		// but some JDK builds print a colon in the offset.
		return time.Parse("2006-01-02T15:04:05.000-07:00", s)
	}
	return t, nil
}

// HasUptime reports whether the stamp carries elapsed seconds.
func (d DateTimeStamp) HasUptime() bool {
	return !math.IsNaN(d.Uptime) && d.Uptime >= 0
}

// HasWall reports whether the stamp carries a wall clock instant.
func (d DateTimeStamp) HasWall() bool {
	return !d.Wall.IsZero()
}

// IsZero reports whether the stamp carries neither representation.
func (d DateTimeStamp) IsZero() bool {
	return !d.HasUptime() && !d.HasWall()
}

// Compare orders two stamps. Uptime is used when both carry it, wall clock
// otherwise. ok is false when the stamps share no representation and so
// cannot be compared without normalization.
func (d DateTimeStamp) Compare(o DateTimeStamp) (cmp int, ok bool) {
	switch {
	case d.HasUptime() && o.HasUptime():
		switch {
		case d.Uptime < o.Uptime:
			return -1, true
		case d.Uptime > o.Uptime:
			return 1, true
		}
		return 0, true
	case d.HasWall() && o.HasWall():
		return d.Wall.Compare(o.Wall), true
	}
	return 0, false
}

// Before reports whether d is strictly earlier than o. Incomparable stamps
// are never before one another.
func (d DateTimeStamp) Before(o DateTimeStamp) bool {
	c, ok := d.Compare(o)
	return ok && c < 0
}

// After reports whether d is strictly later than o.
func (d DateTimeStamp) After(o DateTimeStamp) bool {
	c, ok := d.Compare(o)
	return ok && c > 0
}

// Sub returns d - o in seconds, or NaN when the stamps are incomparable.
func (d DateTimeStamp) Sub(o DateTimeStamp) float64 {
	switch {
	case d.HasUptime() && o.HasUptime():
		return d.Uptime - o.Uptime
	case d.HasWall() && o.HasWall():
		return d.Wall.Sub(o.Wall).Seconds()
	}
	return math.NaN()
}

// Add returns the stamp offset by the given number of seconds. Both
// representations are shifted.
func (d DateTimeStamp) Add(seconds float64) DateTimeStamp {
	out := DateTimeStamp{Uptime: math.NaN()}
	if d.HasUptime() {
		out.Uptime = d.Uptime + seconds
	}
	if d.HasWall() {
		out.Wall = d.Wall.Add(time.Duration(seconds * float64(time.Second)))
	}
	return out
}

// Equal reports whether both stamps carry the same representations with the
// same values.
func (d DateTimeStamp) Equal(o DateTimeStamp) bool {
	if d.HasUptime() != o.HasUptime() || d.HasWall() != o.HasWall() {
		return false
	}
	if d.HasUptime() && d.Uptime != o.Uptime {
		return false
	}
	return !d.HasWall() || d.Wall.Equal(o.Wall)
}

func (d DateTimeStamp) String() string {
	switch {
	case d.HasWall() && d.HasUptime():
		return fmt.Sprintf("%s: %.3f", d.Wall.Format(DateStampLayout), d.Uptime)
	case d.HasWall():
		return d.Wall.Format(DateStampLayout)
	case d.HasUptime():
		return fmt.Sprintf("%.3f", d.Uptime)
	}
	return "unknown"
}

type dateTimeStampJSON struct {
	Wall   *time.Time `json:"wall,omitempty"`
	Uptime *float64   `json:"uptime,omitempty"`
}

// MarshalJSON omits the representations the stamp does not carry.
func (d DateTimeStamp) MarshalJSON() ([]byte, error) {
	var out dateTimeStampJSON
	if d.HasWall() {
		w := d.Wall
		out.Wall = &w
	}
	if d.HasUptime() {
		u := d.Uptime
		out.Uptime = &u
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (d *DateTimeStamp) UnmarshalJSON(data []byte) error {
	var in dateTimeStampJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = Unknown()
	if in.Wall != nil {
		d.Wall = *in.Wall
	}
	if in.Uptime != nil {
		d.Uptime = *in.Uptime
	}
	return nil
}
