package gclog

import (
	"context"
	"io"
	"iter"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// ParseReader parses the GC log read from r and yields its events.
// Invalid options, an empty log and read errors are yielded as the last
// element.
//
// Example:
//
//	for ev, err := range gclog.ParseReader(ctx, os.Stdin) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(ev.Type, ev.Duration)
//	}
func ParseReader(ctx context.Context, r io.Reader, opts ...Option) iter.Seq2[event.Event, error] {
	return parse(ctx, Lines(r), opts)
}

// ParseFile parses the GC log at path, which may be gzip compressed or a
// zip archive of log files.
func ParseFile(ctx context.Context, path string, opts ...Option) iter.Seq2[event.Event, error] {
	return parse(ctx, FileLines(path), opts)
}

// ParseRotated parses the rotation set of base (base, base.0, base.1, ...)
// as one log, oldest file first.
func ParseRotated(ctx context.Context, base string, opts ...Option) iter.Seq2[event.Event, error] {
	lines, err := RotatedLines(base)
	if err != nil {
		return failed(err)
	}
	return parse(ctx, lines, opts)
}

// Collect drains seq into a slice, stopping at the first error. The events
// yielded before the error are returned with it.
func Collect(seq iter.Seq2[event.Event, error]) ([]event.Event, error) {
	var out []event.Event
	for ev, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func parse(ctx context.Context, lines iter.Seq2[string, error], opts []Option) iter.Seq2[event.Event, error] {
	e, err := NewEngine(opts...)
	if err != nil {
		return failed(err)
	}
	return e.Events(ctx, lines)
}

func failed(err error) iter.Seq2[event.Event, error] {
	return func(yield func(event.Event, error) bool) {
		yield(event.Event{}, err)
	}
}
