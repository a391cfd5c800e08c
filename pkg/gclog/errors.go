package gclog

import (
	"errors"
	"fmt"

	"github.com/gclog/gclog-go/internal/logfinder"
)

// Sentinel errors.
var (
	// ErrInvalidLogState is returned when a log has no content lines, so no
	// diary can be built for it. No event is emitted.
	ErrInvalidLogState = errors.New("invalid log state")

	// ErrNoLogFiles is returned when no GC log file is found.
	ErrNoLogFiles = logfinder.ErrNoLogFiles

	// ErrLogDirNotFound is returned when the log directory cannot be resolved.
	ErrLogDirNotFound = logfinder.ErrLogDirNotFound

	// ErrWatcherClosed is returned by Watch after Close.
	ErrWatcherClosed = errors.New("watcher closed")

	// ErrAlreadyWatching is returned when Watch is called twice.
	ErrAlreadyWatching = errors.New("already watching")

	// ErrUnknownCategory is returned when a consumer claims a category that
	// no event can carry.
	ErrUnknownCategory = errors.New("unknown event category")

	// ErrDuplicateConsumer is returned when two consumers claim the same
	// category or share a name.
	ErrDuplicateConsumer = errors.New("duplicate consumer")

	// ErrNoWallClock is reported by a watcher replaying since a time when the
	// log carries no date stamps to compare that time with.
	ErrNoWallClock = errors.New("log has no date stamps")
)

// ParseError reports a line on which a parser failed. Processing continued
// with the next line.
type ParseError struct {
	LineNo int
	Line   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.LineNo, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WatchOp identifies the watcher operation that failed.
type WatchOp string

// Watch operations.
const (
	WatchOpFindLatest WatchOp = "find_latest"
	WatchOpDiarize    WatchOp = "diarize"
	WatchOpReplay     WatchOp = "replay"
	WatchOpTail       WatchOp = "tail"
	WatchOpRotation   WatchOp = "rotation"
	WatchOpParse      WatchOp = "parse"
)

// WatchError reports a failure of the watcher.
type WatchError struct {
	Op   WatchOp
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("watch %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("watch %s: %v", e.Op, e.Err)
}

func (e *WatchError) Unwrap() error {
	return e.Err
}
