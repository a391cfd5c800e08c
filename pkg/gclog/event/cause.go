package event

import "strings"

// Cause is the reason the runtime gave for a collection.
type Cause string

// Common causes. The runtime may print others; they are kept verbatim.
const (
	CauseUnknown                 Cause = ""
	CauseAllocationFailure       Cause = "Allocation Failure"
	CauseSystemGC                Cause = "System.gc()"
	CauseJavaLangSystemGC        Cause = "java.lang.System.gc()"
	CauseMetadataThreshold       Cause = "Metadata GC Threshold"
	CauseErgonomics              Cause = "Ergonomics"
	CauseG1EvacuationPause       Cause = "G1 Evacuation Pause"
	CauseG1HumongousAllocation   Cause = "G1 Humongous Allocation"
	CauseG1Compaction            Cause = "G1 Compaction Pause"
	CauseG1PeriodicCollection    Cause = "G1 Periodic Collection"
	CauseCMSInitialMark          Cause = "CMS Initial Mark"
	CauseCMSFinalRemark          Cause = "CMS Final Remark"
	CauseGCLocker                Cause = "GCLocker Initiated GC"
	CauseHeapInspection          Cause = "Heap Inspection Initiated GC"
	CauseHeapDump                Cause = "Heap Dump Initiated GC"
	CauseWarmup                  Cause = "Warmup"
	CauseProactive               Cause = "Proactive"
	CauseAllocationRate          Cause = "Allocation Rate"
	CauseAllocationStall         Cause = "Allocation Stall"
	CauseTimer                   Cause = "Timer"
	CauseHighUsage               Cause = "High Usage"
	CauseMetaspaceClearSoftRefs  Cause = "Metadata GC Clear Soft References"
	CauseLastDitch               Cause = "Last ditch collection"
	CauseAdaptiveSizePolicy      Cause = "Adaptive Size Ergonomics"
	CauseWhiteBox                Cause = "WhiteBox Initiated Young GC"
	CauseUpdateAllocationContext Cause = "Update Allocation Context Stats"
	CauseNoGC                    Cause = "No GC"
)

// ParseCause normalizes a captured cause clause. Surrounding parentheses and
// whitespace are removed; an empty clause is CauseUnknown.
func ParseCause(s string) Cause {
	s = strings.TrimSpace(s)
	if wrapped(s) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return Cause(s)
}

// wrapped reports whether the parenthesis opening s closes at its last byte.
func wrapped(s string) bool {
	if len(s) < 2 || s[0] != '(' {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i == len(s)-1
			}
		}
	}
	return false
}

// IsSystemGC reports whether the collection was requested by the application.
func (c Cause) IsSystemGC() bool {
	return c == CauseSystemGC || c == CauseJavaLangSystemGC
}

// Known reports whether a cause was printed.
func (c Cause) Known() bool {
	return c != CauseUnknown
}
