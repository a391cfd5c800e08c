package gclog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/gclog/gclog-go/internal/logfinder"
	"github.com/gclog/gclog-go/internal/tailer"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// watcherErrBuffer is the buffer size for the error channel.
const watcherErrBuffer = 16

// Watcher follows a live GC log and streams the events it completes.
//
// The diary is built from the head of the file when watching starts; the
// lines then pass through one engine as they are appended. Events still
// being assembled when the watcher stops are discarded.
type Watcher struct {
	cfg    watchConfig // immutable after creation
	logDir string
	log    *slog.Logger

	mu       sync.Mutex
	closed   bool
	cancel   context.CancelFunc
	doneCh   chan struct{}
	watching bool
}

// NewWatcher creates a watcher. It validates the options and resolves the
// log location but starts nothing.
//
// Example:
//
//	w, err := gclog.NewWatcher(
//	    gclog.WithLogFile("/var/log/app/gc.log"),
//	    gclog.WithEngineOptions(gclog.WithIncludeTypes(event.G1Young)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//	events, errs, err := w.Watch(ctx)
func NewWatcher(opts ...WatchOption) (*Watcher, error) {
	cfg := applyWatchOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if _, err := NewEngine(cfg.engine...); err != nil {
		return nil, err
	}

	w := &Watcher{cfg: *cfg, log: applyOptions(cfg.engine).logger}
	if cfg.logFile != "" {
		return w, nil
	}

	logDir, err := logfinder.FindLogDir(cfg.logDir)
	if err != nil {
		// an existing but still empty directory is fine when waiting
		info, serr := os.Stat(cfg.logDir)
		if !cfg.waitForLogs || cfg.logDir == "" || serr != nil || !info.IsDir() {
			return nil, fmt.Errorf("finding log directory: %w", err)
		}
		logDir = cfg.logDir
	}
	w.logDir = logDir
	return w, nil
}

// Watch creates a watcher and starts it. The watcher stops when ctx is
// cancelled; use NewWatcher and Close for a synchronous shutdown.
func Watch(ctx context.Context, opts ...WatchOption) (<-chan event.Event, <-chan error, error) {
	w, err := NewWatcher(opts...)
	if err != nil {
		return nil, nil, err
	}
	return w.Watch(ctx)
}

// Watch starts watching and returns channels. Both channels are closed
// when ctx is cancelled, the watcher is closed, or a fatal error occurs.
// Watch can only be called once per Watcher instance.
//
// Returns ErrWatcherClosed if the watcher has been closed.
// Returns ErrAlreadyWatching if Watch has already been called.
func (w *Watcher) Watch(ctx context.Context) (<-chan event.Event, <-chan error, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, nil, ErrWatcherClosed
	}
	if w.watching {
		return nil, nil, ErrAlreadyWatching
	}
	w.watching = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	eventCh := make(chan event.Event)
	errCh := make(chan error, watcherErrBuffer)

	go w.run(ctx, eventCh, errCh)

	return eventCh, errCh, nil
}

// Close stops the watcher and blocks until its goroutine has exited.
// Safe to call multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, eventCh chan<- event.Event, errCh chan<- error) {
	defer close(w.doneCh)
	defer close(eventCh)
	defer close(errCh)

	logFile, err := w.findLogFileWithWait(ctx, errCh)
	if err != nil {
		return
	}
	w.log.Debug("found log file", slog.String("path", logFile))

	d, err := w.diarizeWithWait(ctx, logFile, errCh)
	if err != nil {
		return
	}

	opts := append(slices.Clone(w.cfg.engine), WithDiary(d))
	if w.cfg.replay.Mode == ReplaySinceTime {
		if d.State(diary.DateStamps) == diary.False {
			sendError(ctx, errCh, &WatchError{Op: WatchOpReplay, Path: logFile, Err: ErrNoWallClock})
			return
		}
		opts = append(opts, WithTimeRange(w.cfg.replay.Since, time.Time{}))
	}
	engine, err := NewEngine(opts...)
	if err != nil {
		sendError(ctx, errCh, &WatchError{Op: WatchOpParse, Path: logFile, Err: err})
		return
	}

	err = engine.Run(ctx, w.follow(ctx, logFile, errCh), func(ev event.Event) error {
		select {
		case eventCh <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil && ctx.Err() == nil {
		sendError(ctx, errCh, &WatchError{Op: WatchOpParse, Path: logFile, Err: err})
	}
}

// follow yields the lines of logFile as they are written, switching to a
// newer log when watching a directory. It ends when the context is done
// or the tailer stops.
func (w *Watcher) follow(ctx context.Context, logFile string, errCh chan<- error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		cfg := tailer.DefaultConfig()
		cfg.Poll = w.cfg.filePolling
		cfg.FromStart = w.cfg.replay.Mode == ReplayFromStart || w.cfg.replay.Mode == ReplaySinceTime

		if w.cfg.replay.Mode == ReplayLastN && w.cfg.replay.LastN > 0 {
			w.log.Debug("replaying last N lines", slog.Int("n", w.cfg.replay.LastN), slog.String("path", logFile))
			lines, err := lastLines(logFile, w.cfg.replay.LastN)
			if err != nil {
				sendError(ctx, errCh, &WatchError{Op: WatchOpReplay, Path: logFile, Err: err})
			}
			for _, line := range lines {
				if !yield(line, nil) {
					return
				}
			}
		}

		t, err := tailer.New(ctx, logFile, cfg)
		if err != nil {
			sendError(ctx, errCh, &WatchError{Op: WatchOpTail, Path: logFile, Err: err})
			return
		}
		defer func() { _ = t.Stop() }()
		w.log.Debug("started tailing", slog.String("path", logFile), slog.Bool("from_start", cfg.FromStart))

		var rotation <-chan time.Time
		if w.logDir != "" {
			ticker := time.NewTicker(w.cfg.pollInterval)
			defer ticker.Stop()
			rotation = ticker.C
		}
		current := logFile

		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-t.Lines():
				if !ok {
					return
				}
				if !yield(line, nil) {
					return
				}
			case err, ok := <-t.Errors():
				if !ok {
					return
				}
				sendError(ctx, errCh, &WatchError{Op: WatchOpTail, Path: current, Err: err})
			case <-rotation:
				newFile, err := logfinder.FindLatestLogFile(w.logDir)
				if err != nil {
					sendError(ctx, errCh, &WatchError{Op: WatchOpRotation, Err: err})
					continue
				}
				if newFile == current {
					continue
				}
				// the new file continues the same log
				w.log.Debug("log rotation detected", slog.String("from", current), slog.String("to", newFile))
				if err := t.Stop(); err != nil {
					sendError(ctx, errCh, &WatchError{Op: WatchOpRotation, Path: current, Err: err})
				}
				next := tailer.DefaultConfig()
				next.Poll = w.cfg.filePolling
				next.FromStart = true
				nt, err := tailer.New(ctx, newFile, next)
				if err != nil {
					sendError(ctx, errCh, &WatchError{Op: WatchOpTail, Path: newFile, Err: err})
					return
				}
				t = nt
				current = newFile
			}
		}
	}
}

// findLogFileWithWait returns the log to follow, optionally waiting for
// one to appear. Errors are also sent to errCh.
func (w *Watcher) findLogFileWithWait(ctx context.Context, errCh chan<- error) (string, error) {
	find := func() (string, error) {
		if w.cfg.logFile == "" {
			return logfinder.FindLatestLogFile(w.logDir)
		}
		info, err := os.Stat(w.cfg.logFile)
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoLogFiles
		}
		if err != nil {
			return "", err
		}
		if !info.Mode().IsRegular() {
			return "", fmt.Errorf("%s: not a regular file", w.cfg.logFile)
		}
		return w.cfg.logFile, nil
	}

	logFile, err := find()
	if err == nil {
		return logFile, nil
	}
	if !errors.Is(err, ErrNoLogFiles) || !w.cfg.waitForLogs {
		sendError(ctx, errCh, &WatchError{Op: WatchOpFindLatest, Err: err})
		return "", err
	}

	w.log.Debug("no log file found, waiting for one to appear", slog.Duration("poll_interval", w.cfg.pollInterval))
	ticker := time.NewTicker(w.cfg.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			logFile, err := find()
			if err == nil {
				w.log.Debug("log file appeared", slog.String("path", logFile))
				return logFile, nil
			}
			if !errors.Is(err, ErrNoLogFiles) {
				sendError(ctx, errCh, &WatchError{Op: WatchOpFindLatest, Err: err})
				return "", err
			}
		}
	}
}

// diarizeWithWait builds the diary from the head of logFile, optionally
// waiting for the file to receive its first line.
func (w *Watcher) diarizeWithWait(ctx context.Context, logFile string, errCh chan<- error) (*diary.Diary, error) {
	d, err := w.diarize(ctx, logFile)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrInvalidLogState) || !w.cfg.waitForLogs {
		sendError(ctx, errCh, &WatchError{Op: WatchOpDiarize, Path: logFile, Err: err})
		return nil, err
	}

	ticker := time.NewTicker(w.cfg.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			d, err := w.diarize(ctx, logFile)
			if err == nil {
				return d, nil
			}
			if !errors.Is(err, ErrInvalidLogState) {
				sendError(ctx, errCh, &WatchError{Op: WatchOpDiarize, Path: logFile, Err: err})
				return nil, err
			}
		}
	}
}

func (w *Watcher) diarize(ctx context.Context, logFile string) (*diary.Diary, error) {
	return Diarize(ctx, FileLines(logFile), w.cfg.engine...)
}

// lastLines returns the last n content lines of the file at path.
func lastLines(path string, n int) ([]string, error) {
	ring := make([]string, 0, n)
	for line, err := range FileLines(path) {
		if err != nil {
			return nil, err
		}
		if line == EndOfData {
			break
		}
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, line)
	}
	return ring, nil
}

// sendError sends an error to the error channel without blocking. Errors
// are dropped only when the buffer is full.
func sendError(ctx context.Context, errCh chan<- error, err error) {
	if err == nil {
		return
	}
	select {
	case errCh <- err:
	case <-ctx.Done():
	default:
	}
}
