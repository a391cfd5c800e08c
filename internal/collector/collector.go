// Package collector holds the per-collector parsers that turn GC log lines
// into events. A parser keeps the accumulators of the events it is still
// assembling and emits each event once its closing line has been seen.
//
// A parser sees the lines of the log in order, followed by the EndOfData
// sentinel. Parsers grouped in a ChainFirst chain only see the lines no
// earlier member claimed, but every one of them sees the sentinel. On the sentinel a parser emits what it can finish and
// discards the rest with a warning.
package collector

import (
	"context"
	"errors"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// EndOfData is appended to every log after its last line. It never appears
// in a real log.
const EndOfData = "END_OF_DATA_SENTINEL"

// Result represents the result of parsing a log line.
type Result struct {
	// Events contains the events completed by the line. An event may have
	// been opened by an earlier line.
	Events []event.Event

	// Matched indicates whether the parser recognized the line or emitted
	// events because of it.
	Matched bool
}

// Parser is the interface for collector parsers.
type Parser interface {
	// ParseLine consumes a single log line.
	// Returns error only for unexpected failures (not for unrecognized lines).
	ParseLine(ctx context.Context, line string) (Result, error)
}

// ParserFunc is an adapter to allow ordinary functions to be used as Parsers.
type ParserFunc func(ctx context.Context, line string) (Result, error)

// ParseLine implements the Parser interface.
func (f ParserFunc) ParseLine(ctx context.Context, line string) (Result, error) {
	return f(ctx, line)
}

// ChainMode specifies how Chain executes parsers.
type ChainMode int

const (
	// ChainAll executes all parsers and combines results (default).
	ChainAll ChainMode = iota

	// ChainFirst stops at the first parser that matches. EndOfData still
	// reaches every parser so each can flush its accumulators.
	ChainFirst

	// ChainContinueOnError skips parsers that return errors and continues.
	// Errors are collected and returned together at the end.
	ChainContinueOnError
)

// Chain combines multiple parsers. Events are returned in parser order.
type Chain struct {
	Mode    ChainMode
	Parsers []Parser
}

// ParseLine implements the Parser interface.
//
// If the context is cancelled during execution, ParseLine returns
// immediately with the events collected so far and the context error.
func (c *Chain) ParseLine(ctx context.Context, line string) (Result, error) {
	var all []event.Event
	var errs []error
	anyMatched := false

	for _, p := range c.Parsers {
		if err := ctx.Err(); err != nil {
			return Result{Events: all, Matched: anyMatched}, err
		}
		if p == nil {
			continue
		}

		res, err := p.ParseLine(ctx, line)
		if err != nil {
			if c.Mode == ChainContinueOnError {
				errs = append(errs, err)
				continue
			}
			return Result{}, err
		}
		if res.Matched {
			anyMatched = true
			all = append(all, res.Events...)
			if c.Mode == ChainFirst && line != EndOfData {
				return Result{Events: all, Matched: true}, nil
			}
		}
	}

	if len(errs) > 0 {
		return Result{Events: all, Matched: anyMatched}, errors.Join(errs...)
	}
	return Result{Events: all, Matched: anyMatched}, nil
}
