// Package gclog reconstructs garbage collection events from HotSpot JVM
// GC logs.
//
// This package allows you to:
//   - Parse GC logs of every HotSpot collector (Serial, Parallel, CMS, G1,
//     ZGC, Shenandoah) in both the pre-unified and the unified (-Xlog)
//     format
//   - Read plain, gzip compressed, zipped and rotated logs
//   - Follow a live log and stream events as collections complete
//   - Route events to consumers by collector family
//   - Add custom events via YAML pattern files
//
// # Basic Usage
//
// To parse a log file:
//
//	for ev, err := range gclog.ParseFile(ctx, "gc.log") {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("%s %s %.4fs\n", ev.Timestamp, ev.Type, ev.Duration)
//	}
//
// An [Engine] gives access to the [Diary], the summary of what the log
// contains, once the run is over:
//
//	engine, err := gclog.NewEngine(gclog.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = engine.Run(ctx, gclog.FileLines("gc.log"), func(ev event.Event) error {
//	    return store(ev)
//	})
//	fmt.Println(engine.Diary())
//
// A log without any content line fails with [ErrInvalidLogState].
//
// # Events
//
// Events are emitted when their last line has been read, which is not
// always the order in which they started: a concurrent cycle that began
// before a young pause may complete after it. The last event of every log
// is a single [event.JVMTermination] stamped with the last timestamp seen.
//
// # Consumers
//
// A [Registry] routes each event to the one consumer registered for its
// category:
//
//	reg, err := gclog.NewRegistry(gclog.ConsumerFactory{
//	    Name:       "pauses",
//	    Categories: []event.Category{event.CategoryG1},
//	    New:        func() (gclog.Consumer, error) { return newPauseTable(), nil },
//	})
//	engine, err := gclog.NewEngine(gclog.WithRegistry(reg))
//
// # Watching
//
// To follow a live log:
//
//	events, errs, err := gclog.Watch(ctx, gclog.WithLogFile("/var/log/app/gc.log"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    select {
//	    case ev, ok := <-events:
//	        if !ok {
//	            return
//	        }
//	        fmt.Println(ev.Type)
//	    case err, ok := <-errs:
//	        if !ok {
//	            return
//	        }
//	        log.Printf("error: %v", err)
//	    }
//	}
//
// # Custom Parsers
//
// Implement the [Parser] interface and add it with [WithParser]. Custom
// parsers see every line after the collector parsers, followed by
// [EndOfData]. For pattern-based parsing without code, use the [pattern]
// subpackage:
//
//	import "github.com/gclog/gclog-go/pkg/gclog/pattern"
//
//	parser, err := pattern.NewRegexParserFromFile("patterns.yaml")
//	engine, err := gclog.NewEngine(gclog.WithParser(parser))
package gclog
