package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// ValidFormats lists all valid output formats.
var ValidFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

// OutputEvent writes an event in the specified format to the writer.
func OutputEvent(format string, ev event.Event, out io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(ev, out)
	case "pretty":
		return OutputPretty(ev, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes an event as JSON Lines format.
func OutputJSON(ev event.Event, out io.Writer) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// OutputPretty writes an event in human-readable format:
//
//	[12.986] ! cms_initial_mark (CMS Initial Mark) heap 48 MiB (80 MiB) 1.419ms
//
// Pauses are marked with "!", custom events with "*".
func OutputPretty(ev event.Event, out io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %s", prettyStamp(ev.Timestamp), marker(ev.Type), ev.Type)

	if ev.Cause.Known() {
		fmt.Fprintf(&sb, " (%s)", ev.Cause)
	}
	if ev.Heap != nil {
		fmt.Fprintf(&sb, " heap %s", formatPool(ev.Heap))
	}
	if ev.HasDuration() {
		fmt.Fprintf(&sb, " %.3fms", ev.Duration*1000)
	}
	if len(ev.Data) > 0 {
		fmt.Fprintf(&sb, ": %s", formatData(ev.Data))
	}
	sb.WriteByte('\n')

	_, err := io.WriteString(out, sb.String())
	return err
}

func prettyStamp(ts event.DateTimeStamp) string {
	switch {
	case ts.HasWall():
		return ts.Wall.Format("2006-01-02 15:04:05.000")
	case ts.HasUptime():
		return fmt.Sprintf("%.3f", ts.Uptime)
	}
	return "?"
}

func marker(t event.Type) string {
	switch {
	case !t.IsBuiltin():
		return "*"
	case t.IsPause():
		return "!"
	}
	return "~"
}

// formatPool renders occupancy and size in binary units. A single
// observation is printed once; a collection as before->after.
func formatPool(p *event.MemoryPoolSummary) string {
	size := humanize.IBytes(uint64(max(p.SizeAfter, 0)))
	after := humanize.IBytes(uint64(max(p.OccupancyAfter, 0)))
	if p.OccupancyBefore == p.OccupancyAfter && p.SizeBefore == p.SizeAfter {
		return fmt.Sprintf("%s (%s)", after, size)
	}
	before := humanize.IBytes(uint64(max(p.OccupancyBefore, 0)))
	return fmt.Sprintf("%s->%s (%s)", before, after, size)
}

// formatData formats a map as sorted key=value pairs.
// Values are quoted if they contain spaces, equals signs, quotes, or control characters.
func formatData(data map[string]string) string {
	if len(data) == 0 {
		return ""
	}

	parts := make([]string, 0, len(data))
	for _, k := range slices.Sorted(maps.Keys(data)) {
		parts = append(parts, quoteIfNeeded(k)+"="+quoteIfNeeded(data[k]))
	}
	return strings.Join(parts, " ")
}

// quoteIfNeeded quotes a value if it contains special characters or control characters.
// Returns the value unchanged if no quoting is needed.
func quoteIfNeeded(v string) string {
	if v == "" {
		return `""`
	}

	needsQuote := strings.ContainsFunc(v, func(c rune) bool {
		return c == ' ' || c == '=' || c == '"' || c == '\\' || c < 0x20 || c == 0x7F
	})
	if !needsQuote {
		return v
	}

	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range v {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c == 0x7F:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteRune(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
