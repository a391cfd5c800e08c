package main

import (
	"fmt"

	"github.com/gclog/gclog-go/pkg/gclog"
	"github.com/gclog/gclog-go/pkg/gclog/event"
	"github.com/gclog/gclog-go/pkg/gclog/pattern"
)

// buildParsers loads the pattern files into parsers the engine runs
// alongside the collector parsers. It also returns the custom event types
// the patterns produce so that --types can name them. Returns no parsers if
// no pattern files are given.
func buildParsers(patternFiles []string) ([]gclog.Parser, []event.Type, error) {
	if len(patternFiles) == 0 {
		return nil, nil, nil
	}

	parsers := make([]gclog.Parser, 0, len(patternFiles))
	var custom []event.Type
	for i, path := range patternFiles {
		rp, err := pattern.NewRegexParserFromFile(path)
		if err != nil {
			// pattern errors carry no path
			return nil, nil, fmt.Errorf("pattern file %d: %w", i+1, err)
		}
		parsers = append(parsers, rp)
		custom = append(custom, rp.EventTypes()...)
	}
	return parsers, custom, nil
}
