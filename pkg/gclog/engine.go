package gclog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/gclog/gclog-go/internal/collector"
	"github.com/gclog/gclog-go/internal/diarizer"
	"github.com/gclog/gclog-go/internal/metrics"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// Sink receives the events of a log in emission order. Returning an error
// stops the run with that error.
type Sink func(ev event.Event) error

// errStopped ends a run whose consumer stopped iterating.
var errStopped = errors.New("iteration stopped")

// Engine reconstructs the events of GC logs. Each Run reads one log: it
// builds the diary from a bounded prefix, selects the collector parsers the
// diary calls for, and then passes every line, the prefix included, through
// them in file order.
//
// An Engine may run several logs one after another but is not safe for
// concurrent use.
type Engine struct {
	cfg     *config
	log     *slog.Logger
	filter  *compiledFilter
	metrics *metrics.EngineMetrics
	diary   *diary.Diary
}

// NewEngine creates an engine. It returns an error for invalid options.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	e := &Engine{
		cfg:    cfg,
		log:    cfg.logger,
		filter: newCompiledFilter(cfg.include, cfg.exclude, cfg.since, cfg.until),
	}
	if cfg.registerer != nil {
		e.metrics = metrics.NewEngineMetrics(cfg.registerer)
	}
	return e, nil
}

// Diary returns the diary of the last run, or nil before the first one.
func (e *Engine) Diary() *diary.Diary {
	return e.diary
}

// Run reads lines to their end and passes every event to sink, which may
// be nil when the engine delivers to a registry. Lines are trimmed and
// blank lines skipped; the sequence ends at EndOfData or when it is
// exhausted.
//
// Run returns ErrInvalidLogState for a log without content lines, the
// first error of the line sequence, the first error of sink or of a
// registered consumer, or the context error. On cancellation no
// partially built event is emitted.
func (e *Engine) Run(ctx context.Context, lines iter.Seq2[string, error], sink Sink) error {
	next, stop := iter.Pull2(lines)
	defer stop()

	prefix, ended, err := e.diarize(ctx, next)
	if err != nil {
		return err
	}

	r := &run{
		Engine: e,
		ctx:    ctx,
		sink:   sink,
		chain:  &collector.Chain{Mode: collector.ChainContinueOnError, Parsers: e.parsers()},
	}
	for _, line := range prefix {
		if err := r.line(line); err != nil {
			return err
		}
	}
	for !ended {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err, ok := next()
		switch {
		case !ok || line == EndOfData:
			ended = true
			continue
		case err != nil:
			return err
		}
		if err := r.line(line); err != nil {
			return err
		}
	}
	return r.end()
}

// Events runs the engine over lines and yields its events. A failure is
// yielded once, as the last element.
func (e *Engine) Events(ctx context.Context, lines iter.Seq2[string, error]) iter.Seq2[event.Event, error] {
	return func(yield func(event.Event, error) bool) {
		err := e.Run(ctx, lines, func(ev event.Event) error {
			if !yield(ev, nil) {
				return errStopped
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(event.Event{}, err)
		}
	}
}

// Diarize builds the diary of the log read from lines without reconstructing
// its events. Only the head of the log is read. With WithDiary the given
// diary is returned unchanged.
func Diarize(ctx context.Context, lines iter.Seq2[string, error], opts ...Option) (*diary.Diary, error) {
	e, err := NewEngine(opts...)
	if err != nil {
		return nil, err
	}
	next, stop := iter.Pull2(lines)
	defer stop()
	if _, _, err := e.diarize(ctx, next); err != nil {
		return nil, err
	}
	return e.diary, nil
}

// diarize builds the diary from the head of the log and returns the lines
// it consumed. ended reports that the sequence was exhausted meanwhile.
func (e *Engine) diarize(ctx context.Context, next func() (string, error, bool)) (prefix []string, ended bool, err error) {
	if e.cfg.diary != nil {
		e.diary = e.cfg.diary
		return nil, false, nil
	}

	dz := diarizer.New(diarizer.Config{
		ProbeLines:         e.cfg.probeLines,
		Threshold:          e.cfg.probeThreshold,
		LineBudget:         e.cfg.lineBudget,
		StrictGenerational: e.cfg.strictGenerational,
		Logger:             e.log,
	})
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		line, err, ok := next()
		if !ok || line == EndOfData {
			ended = true
			break
		}
		if err != nil {
			return nil, false, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		prefix = append(prefix, line)
		if dz.Feed(line) {
			break
		}
	}

	d, err := dz.Finish()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidLogState, err)
	}
	e.diary = d
	return prefix, ended, nil
}

// parsers returns the collector parsers for the current diary with the
// caller's parsers inserted before the runtime parser, which stays last.
func (e *Engine) parsers() []Parser {
	ps := collector.Select(e.diary, e.log)
	if len(e.cfg.parsers) == 0 {
		return ps
	}
	return slices.Insert(ps, len(ps)-1, e.cfg.parsers...)
}

// run is the state of one pass over a log.
type run struct {
	*Engine
	ctx    context.Context
	sink   Sink
	chain  *collector.Chain
	lineNo int
}

func (r *run) line(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	r.lineNo++

	res, err := r.chain.ParseLine(r.ctx, line)
	if cerr := r.ctx.Err(); cerr != nil {
		return cerr
	}
	if err != nil {
		r.log.Warn("malformed line", slog.Any("error", &ParseError{LineNo: r.lineNo, Line: line, Err: err}))
		if r.metrics != nil {
			r.metrics.RecordLineError()
		}
	}
	if r.metrics != nil {
		r.metrics.RecordLine(res.Matched)
	}
	if !res.Matched && err == nil {
		r.log.Debug("unrecognized line", slog.Int("line_no", r.lineNo), slog.String("line", line))
	}
	return r.emit(res.Events, line)
}

// end passes the sentinel, which flushes every parser.
func (r *run) end() error {
	res, err := r.chain.ParseLine(r.ctx, EndOfData)
	if cerr := r.ctx.Err(); cerr != nil {
		return cerr
	}
	if err != nil {
		r.log.Warn("flushing parsers failed", slog.Any("error", err))
	}
	return r.emit(res.Events, "")
}

func (r *run) emit(events []event.Event, line string) error {
	for _, ev := range events {
		if !r.filter.Admits(ev) {
			continue
		}
		if r.cfg.includeRawLine && line != "" && ev.RawLine == "" {
			ev.RawLine = line
		}
		if r.metrics != nil {
			r.metrics.RecordEvent(ev)
		}
		if r.cfg.registry != nil {
			if err := r.cfg.registry.Dispatch(ev); err != nil {
				return err
			}
		}
		if r.sink != nil {
			if err := r.sink(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
