package gclog

import (
	"github.com/gclog/gclog-go/internal/collector"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// EndOfData terminates every line sequence. Sources append it after the
// last line; the engine appends it when a sequence ends without one.
const EndOfData = collector.EndOfData

type (
	// Event is a reconstructed GC event.
	Event = event.Event

	// Diary is the capability summary of one log.
	Diary = diary.Diary

	// Parser consumes log lines and emits the events they complete.
	// Implementations may keep state across lines; every line of a log,
	// and then EndOfData, is passed to each parser in order.
	Parser = collector.Parser

	// ParserFunc adapts an ordinary function to Parser.
	ParserFunc = collector.ParserFunc

	// Result is the outcome of parsing one line.
	Result = collector.Result

	// Chain runs several parsers over each line.
	Chain = collector.Chain

	// ChainMode specifies how a Chain executes its parsers.
	ChainMode = collector.ChainMode
)

// Chain modes.
const (
	ChainAll             = collector.ChainAll
	ChainFirst           = collector.ChainFirst
	ChainContinueOnError = collector.ChainContinueOnError
)
