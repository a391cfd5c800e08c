package event

// CPUSummary is the user/sys/real breakdown HotSpot prints after a pause,
// in seconds.
type CPUSummary struct {
	User float64 `json:"user"`
	Sys  float64 `json:"sys"`
	Real float64 `json:"real"`
}

// ConcurrentTimes holds the cpu and wall clock figures a CMS concurrent
// phase reports about itself ("0.070/0.089 secs"). They are kept apart from
// Event.Duration, which the engine measures from the phase start line.
type ConcurrentTimes struct {
	CPU  float64 `json:"cpu"`
	Wall float64 `json:"wall"`
}

// RegionSummary is a G1 region count transition such as
// "Eden regions: 12->0(10)". Capacity is -1 when not printed.
type RegionSummary struct {
	Name     string `json:"name"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	Capacity int    `json:"capacity"`
}

// ZGCDetail carries the ZGC specific details of a collection cycle.
type ZGCDetail struct {
	// Load averages over 1, 5 and 15 minutes.
	Load []float64 `json:"load,omitempty"`
	// MMU maps a window ("2ms") to the minimum mutator utilization percent.
	MMU map[string]float64 `json:"mmu,omitempty"`

	MetaspaceUsed      int64 `json:"metaspace_used,omitempty"`
	MetaspaceCommitted int64 `json:"metaspace_committed,omitempty"`
	MetaspaceReserved  int64 `json:"metaspace_reserved,omitempty"`

	// Heap maps a table row ("Capacity", "Used", "Live", ...) to its
	// columns. Columns the runtime printed as "-" are absent.
	Heap map[string]ZGCHeapRow `json:"heap,omitempty"`

	Relocated int64 `json:"relocated,omitempty"`
}

// ZGCHeapRow is one row of the ZGC heap table, keyed by column name
// ("Mark Start", "Mark End", "Relocate Start", "Relocate End", "High", "Low").
type ZGCHeapRow map[string]int64

// TenuringDistribution is the survivor space age table.
type TenuringDistribution struct {
	DesiredSurvivorSize int64       `json:"desired_survivor_size"`
	CalculatedThreshold int         `json:"calculated_threshold"`
	MaxThreshold        int         `json:"max_threshold"`
	Ages                []AgeBucket `json:"ages,omitempty"`
}

// AgeBucket is one "- age N: bytes, total" line.
type AgeBucket struct {
	Age   int   `json:"age"`
	Bytes int64 `json:"bytes"`
	Total int64 `json:"total"`
}

// SafepointTimes holds the breakdown of a safepoint operation, in seconds.
type SafepointTimes struct {
	Operation          string  `json:"operation,omitempty"`
	TimeToSafepoint    float64 `json:"time_to_safepoint"`
	AtSafepoint        float64 `json:"at_safepoint"`
	SinceLastSafepoint float64 `json:"since_last,omitempty"`
}
