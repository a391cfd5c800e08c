package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// ValidEventTypes maps CLI names to the built-in event types.
var ValidEventTypes = func() map[string]event.Type {
	m := make(map[string]event.Type)
	for _, t := range event.Types() {
		m[string(t)] = t
	}
	return m
}()

// ValidEventTypeNames returns the sorted built-in event type names.
func ValidEventTypeNames() []string {
	return slices.Sorted(maps.Keys(ValidEventTypes))
}

// NormalizeEventTypes validates and normalizes event type names. Names are
// matched case-insensitively against the built-in types and the custom
// types given. Duplicates are removed, keeping the first occurrence.
func NormalizeEventTypes(input []string, custom ...event.Type) ([]event.Type, error) {
	if len(input) == 0 {
		return nil, nil
	}

	known := make(map[string]event.Type, len(ValidEventTypes)+len(custom))
	maps.Copy(known, ValidEventTypes)
	for _, t := range custom {
		known[strings.ToLower(string(t))] = t
	}

	seen := make(map[event.Type]bool)
	var out []event.Type
	for _, name := range input {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, errors.New("empty event type")
		}
		t, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("unknown event type %q (run 'gclog types' for the list)", name)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// RejectOverlap returns an error if a type is both included and excluded.
func RejectOverlap(includes, excludes []event.Type) error {
	for _, t := range includes {
		if slices.Contains(excludes, t) {
			return fmt.Errorf("event type %q is both included and excluded", t)
		}
	}
	return nil
}
