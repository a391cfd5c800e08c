package gclog

import (
	"errors"
	"fmt"
	"time"
)

// ReplayMode specifies how to handle the lines already in the log when
// watching starts.
type ReplayMode int

const (
	// ReplayFromStart reads the whole file before following it (default).
	// Events then carry the full history of every collection.
	ReplayFromStart ReplayMode = iota
	// ReplayNone only reads lines appended after watching starts.
	ReplayNone
	// ReplayLastN reads the last N lines before following the file.
	ReplayLastN
	// ReplaySinceTime reads the whole file but emits only events stamped
	// at or after Since. Events without a date stamp are always emitted.
	ReplaySinceTime
)

// DefaultMaxReplayLastN is the default maximum lines for ReplayLastN mode.
const DefaultMaxReplayLastN = 100_000

// ReplayConfig configures replay behavior.
// Only one mode can be active at a time.
type ReplayConfig struct {
	Mode  ReplayMode
	LastN int       // For ReplayLastN
	Since time.Time // For ReplaySinceTime
}

// WatchOption configures a Watcher using the functional options pattern.
type WatchOption func(*watchConfig)

// watchConfig holds internal configuration for the watcher.
type watchConfig struct {
	logDir         string
	logFile        string
	pollInterval   time.Duration
	waitForLogs    bool
	replay         ReplayConfig
	maxReplayLines int
	filePolling    bool
	engine         []Option
}

// defaultWatchConfig returns a watchConfig with sensible defaults.
func defaultWatchConfig() *watchConfig {
	return &watchConfig{
		pollInterval:   2 * time.Second,
		maxReplayLines: DefaultMaxReplayLastN,
		replay:         ReplayConfig{Mode: ReplayFromStart},
	}
}

// applyWatchOptions applies functional options to a watchConfig.
func applyWatchOptions(opts []WatchOption) *watchConfig {
	cfg := defaultWatchConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// validate checks for invalid option combinations.
func (c *watchConfig) validate() error {
	if c.logDir != "" && c.logFile != "" {
		return errors.New("log directory and log file are mutually exclusive")
	}
	if c.replay.Mode == ReplayLastN {
		if c.replay.LastN < 0 {
			return fmt.Errorf("replay LastN must be non-negative, got %d", c.replay.LastN)
		}
		if c.maxReplayLines > 0 && c.replay.LastN > c.maxReplayLines {
			return fmt.Errorf("replay LastN (%d) exceeds maximum of %d", c.replay.LastN, c.maxReplayLines)
		}
	}
	if c.replay.Mode == ReplaySinceTime && c.replay.Since.IsZero() {
		return errors.New("replay Since must be set when mode is ReplaySinceTime")
	}
	if c.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.pollInterval)
	}
	return nil
}

// WithLogDir watches the most recently modified GC log in dir and switches
// to a newer one when it appears.
// If neither a directory nor a file is set, the directory is taken from
// the GCLOG_DIR environment variable or the working directory.
func WithLogDir(dir string) WatchOption {
	return func(c *watchConfig) {
		c.logDir = dir
	}
}

// WithLogFile follows the file at path. Renames and truncation by the
// runtime's own rotation are followed.
func WithLogFile(path string) WatchOption {
	return func(c *watchConfig) {
		c.logFile = path
	}
}

// WithPollInterval sets how often the directory is checked for a newer log
// and how often a missing or empty log is checked again.
// Default: 2 seconds.
func WithPollInterval(interval time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.pollInterval = interval
	}
}

// WithWaitForLogs waits for the log to appear, and to receive its first
// line, instead of failing. Useful when watching starts before the JVM.
func WithWaitForLogs(wait bool) WatchOption {
	return func(c *watchConfig) {
		c.waitForLogs = wait
	}
}

// WithFilePolling follows the file by polling its size instead of
// filesystem notifications. Needed on network filesystems.
func WithFilePolling(poll bool) WatchOption {
	return func(c *watchConfig) {
		c.filePolling = poll
	}
}

// WithReplay sets the replay configuration.
func WithReplay(config ReplayConfig) WatchOption {
	return func(c *watchConfig) {
		c.replay = config
	}
}

// WithReplayNone only reads lines appended after watching starts.
func WithReplayNone() WatchOption {
	return func(c *watchConfig) {
		c.replay = ReplayConfig{Mode: ReplayNone}
	}
}

// WithReplayLastN reads the last n lines before following the file.
func WithReplayLastN(n int) WatchOption {
	return func(c *watchConfig) {
		c.replay = ReplayConfig{Mode: ReplayLastN, LastN: n}
	}
}

// WithReplaySinceTime emits only events stamped at or after since. The
// comparison uses the wall clock date stamps of the log; a log written
// without them (diary.DateStamps false) fails with ErrNoWallClock.
func WithReplaySinceTime(since time.Time) WatchOption {
	return func(c *watchConfig) {
		c.replay = ReplayConfig{Mode: ReplaySinceTime, Since: since}
	}
}

// WithMaxReplayLines caps ReplayLastN. Zero removes the cap.
func WithMaxReplayLines(max int) WatchOption {
	return func(c *watchConfig) {
		c.maxReplayLines = max
	}
}

// WithEngineOptions configures the engine that parses the watched log.
func WithEngineOptions(opts ...Option) WatchOption {
	return func(c *watchConfig) {
		c.engine = append(c.engine, opts...)
	}
}
