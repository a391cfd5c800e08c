// Package event defines the GC events reconstructed from a garbage collection
// log, along with the timestamp and memory pool values they carry.
//
// An [Event] is a closed tagged variant: [Type] is the discriminant and the
// remaining fields are optional payloads. A payload that was never observed
// in the log is nil (or [UnknownDuration] for durations), never a default.
package event

import (
	"math"
	"time"
)

// UnknownDuration marks a duration that was never observed.
const UnknownDuration = -1.0

// Event is an immutable GC event handed to downstream consumers.
type Event struct {
	Type      Type          `json:"type"`
	Category  Category      `json:"category"`
	Timestamp DateTimeStamp `json:"timestamp"`

	// Duration is the wall clock duration in seconds, or UnknownDuration.
	Duration float64 `json:"duration"`
	Cause    Cause   `json:"cause,omitempty"`

	Heap      *MemoryPoolSummary `json:"heap,omitempty"`
	Young     *MemoryPoolSummary `json:"young,omitempty"`
	Tenured   *MemoryPoolSummary `json:"tenured,omitempty"`
	Eden      *MemoryPoolSummary `json:"eden,omitempty"`
	Survivor  *MemoryPoolSummary `json:"survivor,omitempty"`
	Metaspace *MemoryPoolSummary `json:"metaspace,omitempty"`
	PermGen   *MemoryPoolSummary `json:"perm_gen,omitempty"`

	// Phases maps sub-phase names to durations in seconds. The set of
	// sub-phases varies by runtime release.
	Phases map[string]float64 `json:"phases,omitempty"`

	CPU        *CPUSummary           `json:"cpu,omitempty"`
	Concurrent *ConcurrentTimes      `json:"concurrent,omitempty"`
	Regions    []RegionSummary       `json:"regions,omitempty"`
	ZGC        *ZGCDetail            `json:"zgc,omitempty"`
	Tenuring   *TenuringDistribution `json:"tenuring,omitempty"`
	Safepoint  *SafepointTimes       `json:"safepoint,omitempty"`

	// GCID is the decorated log cycle id, or -1 for undecorated logs.
	GCID int `json:"gc_id"`

	// Data holds named values without a typed field, such as the captures
	// of a custom pattern or a phase qualifier.
	Data map[string]string `json:"data,omitempty"`

	// RawLine is populated only when requested by the caller.
	RawLine string `json:"raw_line,omitempty"`
}

// New returns an Event of the given type with every optional field unknown.
func New(t Type, ts DateTimeStamp) Event {
	return Event{
		Type:      t,
		Category:  t.Category(),
		Timestamp: ts,
		Duration:  UnknownDuration,
		GCID:      -1,
	}
}

// HasDuration reports whether the event carries an observed duration.
func (e Event) HasDuration() bool {
	return e.Duration >= 0 && !math.IsNaN(e.Duration)
}

// DurationValue returns the duration as a time.Duration, or 0 when unknown.
func (e Event) DurationValue() time.Duration {
	if !e.HasDuration() {
		return 0
	}
	return time.Duration(e.Duration * float64(time.Second))
}

// IsPause reports whether the event stopped application threads.
func (e Event) IsPause() bool {
	return e.Type.IsPause()
}

// End returns the timestamp at which the event completed.
func (e Event) End() DateTimeStamp {
	if !e.HasDuration() {
		return e.Timestamp
	}
	return e.Timestamp.Add(e.Duration)
}
