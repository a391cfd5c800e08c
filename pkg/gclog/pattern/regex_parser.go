package pattern

import (
	"context"
	"fmt"
	"regexp"
	"slices"

	"github.com/gclog/gclog-go/internal/rule"
	"github.com/gclog/gclog-go/pkg/gclog"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// leadingStamp reads the date stamp and uptime an undecorated line starts
// with.
var leadingStamp = rule.New("leading stamp", `^`+rule.Stamp())

// RegexParser is a gclog.Parser that matches log lines against
// user-defined patterns. Every matching pattern produces one event, so a
// line may yield several; events keep the order of the patterns in the
// file.
//
// The event timestamp is taken from the line's decorations, or from the
// date stamp and uptime an undecorated line starts with. Lines without
// either yield events with an unknown timestamp.
//
// RegexParser is safe for concurrent use by multiple goroutines.
type RegexParser struct {
	patterns []*compiledPattern
}

type compiledPattern struct {
	id        string
	eventType event.Type
	regex     *regexp.Regexp
	named     bool
}

// NewRegexParser creates a RegexParser from a PatternFile, compiling every
// regular expression. Returns a *PatternError for invalid syntax.
//
// Example:
//
//	pf, err := pattern.Load("patterns.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	parser, err := pattern.NewRegexParser(pf)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	events := gclog.ParseFile(ctx, "gc.log", gclog.WithParser(parser))
func NewRegexParser(pf *PatternFile) (*RegexParser, error) {
	if pf == nil {
		return nil, fmt.Errorf("pattern file is nil")
	}

	patterns := make([]*compiledPattern, 0, len(pf.Patterns))
	for i, p := range pf.Patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, &PatternError{
				Index:   i,
				ID:      p.ID,
				Field:   "regex",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
				Cause:   err,
			}
		}

		named := false
		for _, n := range re.SubexpNames()[1:] {
			if n != "" {
				named = true
				break
			}
		}

		patterns = append(patterns, &compiledPattern{
			id:        p.ID,
			eventType: event.Type(p.EventType),
			regex:     re,
			named:     named,
		})
	}

	return &RegexParser{patterns: patterns}, nil
}

// NewRegexParserFromFile loads a pattern file and creates a RegexParser in
// one step.
func NewRegexParserFromFile(path string) (*RegexParser, error) {
	pf, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewRegexParser(pf)
}

// Len returns the number of patterns.
func (p *RegexParser) Len() int {
	return len(p.patterns)
}

// EventTypes returns the distinct event types the patterns produce, in
// pattern order.
func (p *RegexParser) EventTypes() []event.Type {
	var out []event.Type
	for _, cp := range p.patterns {
		if !slices.Contains(out, cp.eventType) {
			out = append(out, cp.eventType)
		}
	}
	return out
}

// ParseLine implements gclog.Parser. The end-of-data sentinel never
// matches.
func (p *RegexParser) ParseLine(ctx context.Context, line string) (gclog.Result, error) {
	if line == gclog.EndOfData {
		return gclog.Result{}, nil
	}

	var events []event.Event
	var ts event.DateTimeStamp
	stamped := false

	for _, cp := range p.patterns {
		m := cp.regex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if !stamped {
			ts = lineStamp(line)
			stamped = true
		}

		ev := event.New(cp.eventType, ts)
		// patterns without named groups leave Data nil
		if cp.named {
			data := make(map[string]string)
			for i, name := range cp.regex.SubexpNames() {
				if i > 0 && name != "" && i < len(m) {
					data[name] = m[i]
				}
			}
			ev.Data = data
		}
		events = append(events, ev)
	}

	if len(events) == 0 {
		return gclog.Result{}, nil
	}
	return gclog.Result{Events: events, Matched: true}, nil
}

// lineStamp returns the timestamp line carries, or an unknown stamp.
func lineStamp(line string) event.DateTimeStamp {
	if d, ok := rule.ParseDecorators(line); ok {
		return d.Stamp()
	}
	if tr := leadingStamp.Parse(line); tr != nil {
		if ts, ok, err := tr.Stamp(); ok && err == nil {
			return ts
		}
	}
	return event.Unknown()
}
