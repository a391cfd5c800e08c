package gclog

import (
	"time"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// compiledFilter decides which events reach the caller. Exclusion wins over
// inclusion; an empty include set admits every type.
type compiledFilter struct {
	include map[event.Type]struct{}
	exclude map[event.Type]struct{}
	since   time.Time
	until   time.Time
}

func newCompiledFilter(include, exclude []event.Type, since, until time.Time) *compiledFilter {
	if len(include) == 0 && len(exclude) == 0 && since.IsZero() && until.IsZero() {
		return nil
	}
	f := &compiledFilter{since: since, until: until}
	if len(include) > 0 {
		f.include = make(map[event.Type]struct{}, len(include))
		for _, t := range include {
			f.include[t] = struct{}{}
		}
	}
	if len(exclude) > 0 {
		f.exclude = make(map[event.Type]struct{}, len(exclude))
		for _, t := range exclude {
			f.exclude[t] = struct{}{}
		}
	}
	return f
}

// Allows reports whether events of type t pass the type filter.
func (f *compiledFilter) Allows(t event.Type) bool {
	if f == nil {
		return true
	}
	if _, ok := f.exclude[t]; ok {
		return false
	}
	if f.include == nil {
		return true
	}
	_, ok := f.include[t]
	return ok
}

// Admits reports whether ev passes the type and time filters. Events
// without a wall clock timestamp cannot be placed in the time range and
// are admitted.
func (f *compiledFilter) Admits(ev event.Event) bool {
	if f == nil {
		return true
	}
	if !f.Allows(ev.Type) {
		return false
	}
	if !ev.Timestamp.HasWall() {
		return true
	}
	if !f.since.IsZero() && ev.Timestamp.Wall.Before(f.since) {
		return false
	}
	if !f.until.IsZero() && !ev.Timestamp.Wall.Before(f.until) {
		return false
	}
	return true
}
