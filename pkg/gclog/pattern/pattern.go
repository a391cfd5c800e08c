// Package pattern lets users define events of their own for GC log lines
// the collector parsers do not cover, such as heap dump notices. Patterns
// are regular expressions loaded from a YAML file; the events they produce
// belong to event.CategoryCustom.
package pattern

// PatternFile represents the structure of a YAML pattern file.
//
// Example YAML file:
//
//	version: 1
//	patterns:
//	  - id: heap_dump
//	    event_type: heap_dump
//	    regex: 'Heap dump file created \[(?P<bytes>\d+) bytes in (?P<secs>[\d.]+) secs\]'
//	  - id: heap_dump_started
//	    event_type: heap_dump_started
//	    regex: 'Dumping heap to (?P<file>\S+) \.\.\.'
type PatternFile struct {
	// Version is the pattern file format version. Currently only version 1 is supported.
	Version int `yaml:"version"`

	// Patterns is the list of pattern definitions.
	Patterns []Pattern `yaml:"patterns"`
}

// Pattern is a single log pattern definition. Named capture groups
// (?P<name>...) in Regex are extracted into Event.Data.
type Pattern struct {
	// ID is a unique identifier for this pattern within its file.
	ID string `yaml:"id"`

	// EventType is the Event.Type of the events this pattern produces. It
	// must not name a built-in event type.
	EventType string `yaml:"event_type"`

	// Regex is matched against the whole line, decorations included.
	Regex string `yaml:"regex"`
}
