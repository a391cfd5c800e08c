package gclog

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gclog/gclog-go/internal/diarizer"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// Option configures an Engine using the functional options pattern.
type Option func(*config)

// config holds internal configuration for the engine.
type config struct {
	logger             *slog.Logger
	probeLines         int
	probeThreshold     int
	lineBudget         int
	strictGenerational bool
	include            []event.Type
	exclude            []event.Type
	since              time.Time
	until              time.Time
	parsers            []Parser
	registerer         prometheus.Registerer
	registry           *Registry
	includeRawLine     bool
	diary              *diary.Diary
}

// discardLogger returns a logger that discards all output.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func defaultConfig() *config {
	return &config{
		logger:         discardLogger,
		probeLines:     diarizer.DefaultProbeLines,
		probeThreshold: diarizer.DefaultThreshold,
		lineBudget:     diarizer.DefaultLineBudget,
	}
}

func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

func (c *config) validate() error {
	if c.probeLines <= 0 {
		return fmt.Errorf("dialect probe lines must be positive, got %d", c.probeLines)
	}
	if c.probeThreshold <= 0 || c.probeThreshold > c.probeLines {
		return fmt.Errorf("dialect probe threshold must be in [1, %d], got %d", c.probeLines, c.probeThreshold)
	}
	if c.lineBudget <= 0 {
		return fmt.Errorf("diary line budget must be positive, got %d", c.lineBudget)
	}
	if !c.since.IsZero() && !c.until.IsZero() && !c.since.Before(c.until) {
		return fmt.Errorf("time range is empty: since %v is not before until %v", c.since, c.until)
	}
	return nil
}

// WithLogger sets the logger for diagnostics. Unrecognized lines are logged
// at Debug; rejected writes and abandoned events at Warn.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDiaryLineBudget caps the lines examined to build the diary.
// Default: 10000.
func WithDiaryLineBudget(n int) Option {
	return func(c *config) {
		c.lineBudget = n
	}
}

// WithDialectProbe sets how many leading non-blank lines are examined to
// decide the dialect, and how many of them must carry a decorated prefix
// for the log to be read as decorated. Default: 25 lines, threshold 1.
func WithDialectProbe(lines, threshold int) Option {
	return func(c *config) {
		c.probeLines = lines
		c.probeThreshold = threshold
	}
}

// WithStrictGenerationalKnown makes the diary stop treating a known
// region-based collector as a known generational collector. The default
// keeps the lenient reading.
func WithStrictGenerationalKnown(strict bool) Option {
	return func(c *config) {
		c.strictGenerational = strict
	}
}

// WithDiary skips diarization and parses with d. Useful when the diary was
// built from another part of the same log, such as the head of a file
// being tailed.
func WithDiary(d *diary.Diary) Option {
	return func(c *config) {
		c.diary = d
	}
}

// WithIncludeTypes filters to only emit specified event types.
// Can be combined with WithExcludeTypes (exclude takes precedence).
func WithIncludeTypes(types ...event.Type) Option {
	return func(c *config) {
		c.include = append(c.include, types...)
	}
}

// WithExcludeTypes filters out specified event types.
// Exclude takes precedence over include.
func WithExcludeTypes(types ...event.Type) Option {
	return func(c *config) {
		c.exclude = append(c.exclude, types...)
	}
}

// WithTimeRange emits only events whose wall clock timestamp falls in
// [since, until). A zero bound is open. Events logged without a date stamp
// are always emitted, so the range has no effect on a log written with
// uptime stamps only.
func WithTimeRange(since, until time.Time) Option {
	return func(c *config) {
		c.since = since
		c.until = until
	}
}

// WithParser adds a parser run after the collector parsers on every line,
// for instance a pattern.RegexParser producing custom events.
func WithParser(p Parser) Option {
	return func(c *config) {
		if p != nil {
			c.parsers = append(c.parsers, p)
		}
	}
}

// WithParsers adds several parsers, in order.
func WithParsers(parsers ...Parser) Option {
	return func(c *config) {
		for _, p := range parsers {
			if p != nil {
				c.parsers = append(c.parsers, p)
			}
		}
	}
}

// WithMetrics records line and event counters on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}

// WithRegistry delivers every emitted event to the consumer registered for
// its category, in addition to the sink passed to Run.
func WithRegistry(r *Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithIncludeRawLine stores the line that completed each event in
// Event.RawLine.
func WithIncludeRawLine(include bool) Option {
	return func(c *config) {
		c.includeRawLine = include
	}
}
