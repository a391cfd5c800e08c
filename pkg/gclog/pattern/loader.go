package pattern

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gclog/gclog-go/internal/safefile"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// Limits on pattern files. Every pattern runs against every line of a log,
// so both the number of patterns and their length are bounded.
const (
	// MaxPatternFileSize is the largest pattern file accepted, in bytes.
	MaxPatternFileSize = 1 << 20

	// MaxPatternLength is the longest regular expression accepted, in bytes.
	MaxPatternLength = 512

	// MaxPatternCount is the largest number of patterns in one file.
	MaxPatternCount = 1000

	// SupportedVersion is the only pattern file format version understood.
	SupportedVersion = 1
)

var (
	errEmptyFile      = errors.New("pattern file is empty")
	errNotRegularFile = errors.New("pattern file must be a regular file (not a symlink, FIFO, device, or special file)")
)

func tooLarge(n int64) error {
	return fmt.Errorf("pattern file too large: %d bytes (max %d)", n, MaxPatternFileSize)
}

// withoutPath drops the file name from an *os.PathError; pattern file
// errors are printed to users who may not have chosen the path.
func withoutPath(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	return err
}

// Load reads, parses and validates the pattern file at path. Only regular
// files up to MaxPatternFileSize bytes are read.
//
// Example:
//
//	pf, err := pattern.Load("gc-patterns.yaml")
//	if err != nil {
//	    log.Fatalf("failed to load pattern file: %v", err)
//	}
func Load(path string) (*PatternFile, error) {
	data, err := readPatternFile(path)
	if err != nil {
		return nil, err
	}
	return LoadBytes(data)
}

func readPatternFile(path string) ([]byte, error) {
	f, info, err := safefile.OpenRegular(path)
	switch {
	case errors.Is(err, safefile.ErrNotRegularFile):
		return nil, errNotRegularFile
	case err != nil:
		return nil, fmt.Errorf("failed to open pattern file: %w", withoutPath(err))
	}
	defer f.Close()

	switch size := info.Size(); {
	case size == 0:
		return nil, errEmptyFile
	case size > MaxPatternFileSize:
		return nil, tooLarge(size)
	}

	// the file may have grown since the stat
	data, err := io.ReadAll(io.LimitReader(f, MaxPatternFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", withoutPath(err))
	}
	return data, nil
}

// LoadBytes parses and validates a pattern file held in memory.
func LoadBytes(data []byte) (*PatternFile, error) {
	switch n := int64(len(data)); {
	case n == 0:
		return nil, errEmptyFile
	case n > MaxPatternFileSize:
		return nil, tooLarge(n)
	}

	var pf PatternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := pf.Validate(); err != nil {
		return nil, err
	}
	return &pf, nil
}

// Validate checks the file against the format: a supported version, between
// one and MaxPatternCount patterns, and for each pattern the required fields,
// a unique id, a custom event type and a regular expression no longer than
// MaxPatternLength. It reports the first problem found.
//
// Regular expressions are compiled by NewRegexParser, not here.
func (pf *PatternFile) Validate() error {
	switch n := len(pf.Patterns); {
	case pf.Version != SupportedVersion:
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (only version %d is supported)", pf.Version, SupportedVersion),
		}
	case n == 0:
		return &ValidationError{Field: "patterns", Message: "at least one pattern is required"}
	case n > MaxPatternCount:
		return &ValidationError{
			Field:   "patterns",
			Message: fmt.Sprintf("too many patterns (%d), maximum allowed is %d", n, MaxPatternCount),
		}
	}

	firstByID := make(map[string]int, len(pf.Patterns))
	for i, p := range pf.Patterns {
		if err := p.validate(i); err != nil {
			return err
		}
		if first, dup := firstByID[p.ID]; dup {
			return p.fail(i, "id", fmt.Sprintf("duplicate id (previously defined at pattern[%d])", first))
		}
		firstByID[p.ID] = i
	}
	return nil
}

// validate checks one pattern in isolation.
func (p Pattern) validate(i int) error {
	switch {
	case p.ID == "":
		return p.fail(i, "id", "id is required")
	case p.EventType == "":
		return p.fail(i, "event_type", "event_type is required")
	case p.Regex == "":
		return p.fail(i, "regex", "regex is required")
	}
	if c := event.Type(p.EventType).Category(); c != event.CategoryCustom {
		return p.fail(i, "event_type", fmt.Sprintf("%q is a built-in %s event type", p.EventType, c))
	}
	if len(p.Regex) > MaxPatternLength {
		return p.fail(i, "regex", fmt.Sprintf("pattern too long: %d bytes (max %d)", len(p.Regex), MaxPatternLength))
	}
	return nil
}

func (p Pattern) fail(i int, field, msg string) *PatternError {
	return &PatternError{Index: i, ID: p.ID, Field: field, Message: msg}
}
