// Package tailer follows a growing log file and delivers its lines on a
// channel.
package tailer

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/nxadm/tail"
)

// errBuffer is the buffer size of the error channel.
const errBuffer = 4

// Config controls a Tailer.
type Config struct {
	// FromStart reads the file from the beginning instead of its end.
	FromStart bool

	// ReOpen reopens the path when the file is renamed or truncated, which
	// is how the unified runtime rotates its log.
	ReOpen bool

	// Poll uses stat polling instead of filesystem notifications.
	Poll bool
}

// DefaultConfig returns the configuration used when following a GC log.
func DefaultConfig() Config {
	return Config{ReOpen: true}
}

// Tailer follows one file. Lines are delivered without their line ending.
type Tailer struct {
	t     *tail.Tail
	lines chan string
	errs  chan error
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// New starts following path. The file must exist.
func New(ctx context.Context, path string, cfg Config) (*Tailer, error) {
	whence := io.SeekEnd
	if cfg.FromStart {
		whence = io.SeekStart
	}
	t, err := tail.TailFile(path, tail.Config{
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
		Follow:    true,
		ReOpen:    cfg.ReOpen,
		MustExist: true,
		Poll:      cfg.Poll,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, err
	}

	tl := &Tailer{
		t:     t,
		lines: make(chan string),
		errs:  make(chan error, errBuffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go tl.forward(ctx)
	return tl, nil
}

// Lines returns the channel of lines. It is closed when the tailer stops.
func (t *Tailer) Lines() <-chan string {
	return t.lines
}

// Errors returns the channel of read errors. It is closed when the tailer
// stops.
func (t *Tailer) Errors() <-chan error {
	return t.errs
}

// Stop stops following the file and waits for the delivery goroutine.
// Safe to call multiple times.
func (t *Tailer) Stop() error {
	var err error
	t.once.Do(func() {
		close(t.stop)
		err = t.t.Stop()
		t.t.Cleanup()
	})
	<-t.done
	return err
}

func (t *Tailer) forward(ctx context.Context) {
	defer close(t.done)
	defer close(t.errs)
	defer close(t.lines)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case l, ok := <-t.t.Lines:
			if !ok {
				if err := t.t.Wait(); err != nil {
					t.sendError(err)
				}
				return
			}
			if l.Err != nil {
				t.sendError(l.Err)
				continue
			}
			select {
			case t.lines <- strings.TrimRight(l.Text, "\r"):
			case <-ctx.Done():
				return
			case <-t.stop:
				return
			}
		}
	}
}

func (t *Tailer) sendError(err error) {
	select {
	case t.errs <- err:
	default:
		// buffer full
	}
}
