// Package diary holds the capability summary of a GC log: which dialect it
// is written in, which collector produced it, and which optional details the
// runtime was configured to print.
//
// Each feature is a tri-state flag. The first true/false assignment wins and
// later assignments are ignored, so detectors can run in any order without
// overriding earlier evidence. A [Diary] is built once per log by a
// [Builder] and is immutable afterwards.
package diary

import (
	"fmt"
	"strings"
)

// TriState is a flag value that may not be known yet.
type TriState uint8

// TriState values.
const (
	Unknown TriState = iota
	True
	False
)

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	}
	return "unknown"
}

// Flag identifies one tracked feature.
type Flag int

// Tracked flags.
const (
	UnifiedLogging Flag = iota

	// Collectors.
	DefNew
	ParNew
	PSYoungGen
	SerialOld
	PSOldGen
	ParOldGen
	CMS
	ICMS
	G1GC
	ZGC
	Shenandoah

	// Printed details.
	GCDetails
	TenuringDistribution
	GCCause
	DateStamps
	TimeStamps
	ApplicationStoppedTime
	ApplicationConcurrentTime
	PrintHeapAtGC
	ReferenceGC
	AdaptiveSizing
	CPUTimes
	Safepoint
	PermGen

	numFlags
)

var flagNames = [numFlags]string{
	UnifiedLogging:            "unified_logging",
	DefNew:                    "def_new",
	ParNew:                    "par_new",
	PSYoungGen:                "ps_young_gen",
	SerialOld:                 "serial_old",
	PSOldGen:                  "ps_old_gen",
	ParOldGen:                 "par_old_gen",
	CMS:                       "cms",
	ICMS:                      "icms",
	G1GC:                      "g1gc",
	ZGC:                       "zgc",
	Shenandoah:                "shenandoah",
	GCDetails:                 "gc_details",
	TenuringDistribution:      "tenuring_distribution",
	GCCause:                   "gc_cause",
	DateStamps:                "date_stamps",
	TimeStamps:                "time_stamps",
	ApplicationStoppedTime:    "application_stopped_time",
	ApplicationConcurrentTime: "application_concurrent_time",
	PrintHeapAtGC:             "print_heap_at_gc",
	ReferenceGC:               "reference_gc",
	AdaptiveSizing:            "adaptive_sizing",
	CPUTimes:                  "cpu_times",
	Safepoint:                 "safepoint",
	PermGen:                   "perm_gen",
}

func (f Flag) String() string {
	if f < 0 || f >= numFlags {
		return fmt.Sprintf("flag(%d)", int(f))
	}
	return flagNames[f]
}

// Flags returns every tracked flag in declaration order.
func Flags() []Flag {
	out := make([]Flag, numFlags)
	for i := range out {
		out[i] = Flag(i)
	}
	return out
}

// Collectors lists the collector flags.
var Collectors = []Flag{DefNew, ParNew, PSYoungGen, SerialOld, PSOldGen, ParOldGen, CMS, ICMS, G1GC, ZGC, Shenandoah}

// YoungCollectors lists the generational young collector flags.
var YoungCollectors = []Flag{DefNew, ParNew, PSYoungGen}

// Diary is the immutable capability summary of one log.
type Diary struct {
	states [numFlags]TriState

	// strictGenerational disables the legacy behavior where a known region
	// based collector also counts as a known generational collector.
	strictGenerational bool
	linesExamined      int
}

// State returns the tri-state value of f.
func (d *Diary) State(f Flag) TriState {
	if f < 0 || f >= numFlags {
		return Unknown
	}
	return d.states[f]
}

// Is reports whether f is known to be true.
func (d *Diary) Is(f Flag) bool {
	return d.State(f) == True
}

// Known reports whether f has been set true or false.
func (d *Diary) Known(f Flag) bool {
	return d.State(f) != Unknown
}

// Complete reports whether every tracked flag is known.
func (d *Diary) Complete() bool {
	for _, s := range d.states {
		if s == Unknown {
			return false
		}
	}
	return true
}

// LinesExamined is the number of lines the diarizer inspected.
func (d *Diary) LinesExamined() int {
	return d.linesExamined
}

// IsUnified reports whether the log uses the decorated dialect.
func (d *Diary) IsUnified() bool { return d.Is(UnifiedLogging) }

// IsG1 reports whether the log was produced by the G1 collector.
func (d *Diary) IsG1() bool { return d.Is(G1GC) }

// IsZGC reports whether the log was produced by ZGC.
func (d *Diary) IsZGC() bool { return d.Is(ZGC) }

// IsShenandoah reports whether the log was produced by Shenandoah.
func (d *Diary) IsShenandoah() bool { return d.Is(Shenandoah) }

// IsCMS reports whether the tenured pool is collected by CMS.
func (d *Diary) IsCMS() bool { return d.Is(CMS) || d.Is(ICMS) }

// IsGenerational reports whether a generational young collector is in use.
func (d *Diary) IsGenerational() bool {
	return d.Is(DefNew) || d.Is(ParNew) || d.Is(PSYoungGen)
}

// IsPSYoung reports whether the parallel scavenge young collector is in use.
func (d *Diary) IsPSYoung() bool { return d.Is(PSYoungGen) }

// CollectorKnown reports whether any collector flag is true.
func (d *Diary) CollectorKnown() bool {
	for _, f := range Collectors {
		if d.Is(f) {
			return true
		}
	}
	return false
}

// GenerationalKnown reports whether the young collector has been
// identified. By default a known G1 collector also satisfies this predicate;
// that is the historical behavior and is kept unless the diary was built in
// strict mode.
func (d *Diary) GenerationalKnown() bool {
	if d.IsGenerational() {
		return true
	}
	if !d.strictGenerational && d.Is(G1GC) {
		return true
	}
	for _, f := range YoungCollectors {
		if !d.Known(f) || d.Is(f) {
			return false
		}
	}
	return true
}

// StrictGenerational reports whether the diary was built in strict mode.
func (d *Diary) StrictGenerational() bool {
	return d.strictGenerational
}

func (d *Diary) String() string {
	var sb strings.Builder
	for i, s := range d.states {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s=%s", Flag(i), s)
	}
	return sb.String()
}

// Builder accumulates flag assignments. It is not safe for concurrent use.
type Builder struct {
	d Diary
}

// NewBuilder returns an empty builder. In strict mode a known region based
// collector does not count as a known generational collector.
func NewBuilder(strictGenerational bool) *Builder {
	return &Builder{d: Diary{strictGenerational: strictGenerational}}
}

// Set assigns f unless it is already known. It reports whether the
// assignment was accepted.
func (b *Builder) Set(f Flag, v bool) bool {
	if f < 0 || f >= numFlags || b.d.states[f] != Unknown {
		return false
	}
	if v {
		b.d.states[f] = True
	} else {
		b.d.states[f] = False
	}
	return true
}

// SetTrue is Set(f, true) for each flag.
func (b *Builder) SetTrue(flags ...Flag) {
	for _, f := range flags {
		b.Set(f, true)
	}
}

// SetFalse is Set(f, false) for each flag.
func (b *Builder) SetFalse(flags ...Flag) {
	for _, f := range flags {
		b.Set(f, false)
	}
}

// Known reports whether f has been assigned.
func (b *Builder) Known(f Flag) bool {
	return b.d.Known(f)
}

// Is reports whether f has been assigned true.
func (b *Builder) Is(f Flag) bool {
	return b.d.Is(f)
}

// Complete reports whether every flag has been assigned.
func (b *Builder) Complete() bool {
	return b.d.Complete()
}

// Examined records that another line was inspected.
func (b *Builder) Examined() {
	b.d.linesExamined++
}

// View returns the diary as assigned so far, for detectors that need to
// consult other flags.
func (b *Builder) View() *Diary {
	return &b.d
}

// Build returns an immutable snapshot of the assigned flags.
func (b *Builder) Build() *Diary {
	d := b.d
	return &d
}
