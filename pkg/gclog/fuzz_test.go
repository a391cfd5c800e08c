package gclog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/gclog/gclog-go/pkg/gclog"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// FuzzParseReader feeds arbitrary two-line logs through the engine. It must
// never panic, and a log with content always ends with the termination
// event.
func FuzzParseReader(f *testing.F) {
	f.Add(initialMarkLine, "27.538: [CMS-concurrent-mark-start]")
	f.Add("[0.402s][info][gc,start    ] GC(0) Pause Young (Normal) (G1 Evacuation Pause)",
		"[0.405s][info][gc          ] GC(0) Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.514ms")
	f.Add("2.050: [GC pause (G1 Evacuation Pause) (young)", ", 0.0031180 secs]")
	f.Add("[12.101s][info][gc] GC(7) Pause Init Mark 0.198ms", "[12.102s][info][gc] GC(7) Pause Remark")
	f.Add("13.800: Total time for which application threads were stopped: 0.0126 seconds", "")
	f.Add("", "")
	f.Add("[", "]")
	f.Add(string([]byte{0xff, 0xfe, 0xfd}), "GC(")

	ctx := context.Background()
	f.Fuzz(func(t *testing.T, a, b string) {
		log := a + "\n" + b
		events, err := gclog.Collect(gclog.ParseReader(ctx, strings.NewReader(log)))
		if strings.TrimSpace(strings.ReplaceAll(log, gclog.EndOfData, "")) == "" {
			return
		}
		if err != nil {
			return
		}
		if len(events) == 0 || events[len(events)-1].Type != event.JVMTermination {
			t.Errorf("log %q did not end with a termination event: %v", log, types(events))
		}
	})
}
