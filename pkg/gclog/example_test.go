package gclog_test

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gclog/gclog-go/pkg/gclog"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// ExampleParseReader parses a log held in memory.
func ExampleParseReader() {
	log := `12.986: [GC[1 CMS-initial-mark: 33532K(62656K)] 49652K(81280K), 0.0014191 secs]
27.538: [CMS-concurrent-mark-start]
27.626: [CMS-concurrent-mark: 0.070/0.089 secs]`

	for ev, err := range gclog.ParseReader(context.Background(), strings.NewReader(log)) {
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Printf("%.3f %s\n", ev.Timestamp.Uptime, ev.Type)
	}
	// Output:
	// 12.986 cms_initial_mark
	// 27.538 cms_concurrent_mark
	// 27.626 jvm_termination
}

// ExampleNewRegistry routes events to consumers by category.
func ExampleNewRegistry() {
	var pauses int
	reg, err := gclog.NewRegistry(gclog.ConsumerFactory{
		Name:       "pause-counter",
		Categories: []event.Category{event.CategoryTenured},
		New: func() (gclog.Consumer, error) {
			return gclog.ConsumerFunc(func(ev event.Event) error {
				if ev.IsPause() {
					pauses++
				}
				return nil
			}), nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	engine, err := gclog.NewEngine(gclog.WithRegistry(reg))
	if err != nil {
		log.Fatal(err)
	}
	lines := gclog.Lines(strings.NewReader(`12.986: [GC[1 CMS-initial-mark: 33532K(62656K)] 49652K(81280K), 0.0014191 secs]`))
	if err := engine.Run(context.Background(), lines, nil); err != nil {
		log.Fatal(err)
	}
	fmt.Println("tenured pauses:", pauses)
	// Output:
	// tenured pauses: 1
}

// ExampleNewWatcher follows a live log until the context expires.
func ExampleNewWatcher() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	watcher, err := gclog.NewWatcher(
		gclog.WithLogFile("/var/log/app/gc.log"),
		gclog.WithReplayLastN(1000),
		gclog.WithEngineOptions(gclog.WithIncludeTypes(event.G1Young, event.G1Mixed, event.G1FullGC)),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer watcher.Close()

	events, errs, err := watcher.Watch(ctx)
	if err != nil {
		log.Fatal(err)
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Printf("%s %s %v\n", ev.Timestamp, ev.Type, ev.DurationValue())
		case err, ok := <-errs:
			if !ok {
				return
			}
			log.Printf("error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}
