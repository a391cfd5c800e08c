package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

const MiB = int64(1) << 20

func initialMark() event.Event {
	ev := event.New(event.CMSInitialMark, event.NewUptime(12.986))
	ev.Cause = event.CauseCMSInitialMark
	ev.Heap = event.NewOccupancy(48*MiB, 80*MiB)
	ev.Duration = 0.0014191
	return ev
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := OutputJSON(initialMark(), &buf); err != nil {
		t.Fatalf("OutputJSON() error = %v", err)
	}

	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("OutputJSON() should end with a newline")
	}

	var decoded event.Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("OutputJSON() produced invalid JSON: %v", err)
	}
	if decoded.Type != event.CMSInitialMark {
		t.Errorf("decoded.Type = %q, want %q", decoded.Type, event.CMSInitialMark)
	}
	if decoded.Heap == nil || decoded.Heap.SizeAfter != 80*MiB {
		t.Errorf("decoded.Heap = %+v, want size %d", decoded.Heap, 80*MiB)
	}
	if decoded.Timestamp.Uptime != 12.986 {
		t.Errorf("decoded.Timestamp.Uptime = %v, want 12.986", decoded.Timestamp.Uptime)
	}
}

func TestOutputPretty(t *testing.T) {
	young := event.New(event.G1Young, event.NewDateTimeStamp(time.Date(2024, 1, 15, 12, 30, 45, 0, time.UTC), 3.5))
	young.Heap = event.NewPool(64*MiB, 16*MiB, 256*MiB)
	young.Duration = 0.0125

	mark := event.New(event.CMSConcurrentMark, event.NewUptime(27.538))
	mark.Duration = 0.088

	dump := event.New("heap_dump", event.Unknown())
	dump.Data = map[string]string{"secs": "0.5", "bytes": "1024"}

	tests := []struct {
		name  string
		event event.Event
		want  string
	}{
		{
			name:  "pause with cause",
			event: initialMark(),
			want:  "[12.986] ! cms_initial_mark (CMS Initial Mark) heap 48 MiB (80 MiB) 1.419ms\n",
		},
		{
			name:  "wall clock and collection",
			event: young,
			want:  "[2024-01-15 12:30:45.000] ! g1_young heap 64 MiB->16 MiB (256 MiB) 12.500ms\n",
		},
		{
			name:  "concurrent phase",
			event: mark,
			want:  "[27.538] ~ cms_concurrent_mark 88.000ms\n",
		},
		{
			name:  "custom event with data",
			event: dump,
			want:  "[?] * heap_dump: bytes=1024 secs=0.5\n",
		},
		{
			name:  "termination",
			event: event.New(event.JVMTermination, event.NewUptime(30)),
			want:  "[30.000] ~ jvm_termination\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := OutputPretty(tt.event, &buf); err != nil {
				t.Fatalf("OutputPretty() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("OutputPretty() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestOutputEvent(t *testing.T) {
	tests := []struct {
		format    string
		wantErr   bool
		checkFunc func(string) bool
	}{
		{
			format: "jsonl",
			checkFunc: func(s string) bool {
				return strings.Contains(s, `"type":"cms_initial_mark"`)
			},
		},
		{
			format: "pretty",
			checkFunc: func(s string) bool {
				return strings.Contains(s, "! cms_initial_mark")
			},
		},
		{
			format:  "unknown",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := OutputEvent(tt.format, initialMark(), &buf)

			if (err != nil) != tt.wantErr {
				t.Errorf("OutputEvent() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !tt.checkFunc(buf.String()) {
				t.Errorf("OutputEvent() output check failed: %q", buf.String())
			}
		})
	}
}

func TestValidFormats(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"jsonl", true},
		{"pretty", true},
		{"json", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidFormats[tt.format]; got != tt.valid {
			t.Errorf("ValidFormats[%q] = %v, want %v", tt.format, got, tt.valid)
		}
	}
}

func TestFormatData(t *testing.T) {
	tests := []struct {
		name string
		data map[string]string
		want string
	}{
		{"empty", nil, ""},
		{"sorted keys", map[string]string{"b": "2", "a": "1"}, "a=1 b=2"},
		{"space quoted", map[string]string{"thread": "main thread"}, `thread="main thread"`},
		{"empty value", map[string]string{"k": ""}, `k=""`},
		{"equals quoted", map[string]string{"k": "a=b"}, `k="a=b"`},
		{"escapes", map[string]string{"k": "a\"b\\c\nd\te"}, `k="a\"b\\c\nd\te"`},
		{"control char", map[string]string{"k": "a\x01b"}, `k="a\x01b"`},
		{"delete char", map[string]string{"k": "a\x7fb"}, `k="a\x7fb"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatData(tt.data); got != tt.want {
				t.Errorf("formatData() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatPool(t *testing.T) {
	tests := []struct {
		name string
		pool *event.MemoryPoolSummary
		want string
	}{
		{"occupancy", event.NewOccupancy(48*MiB, 80*MiB), "48 MiB (80 MiB)"},
		{"collection", event.NewPool(64*MiB, 16*MiB, 256*MiB), "64 MiB->16 MiB (256 MiB)"},
		{"resized", &event.MemoryPoolSummary{OccupancyBefore: 2 * MiB, SizeBefore: 4 * MiB, OccupancyAfter: 2 * MiB, SizeAfter: 8 * MiB}, "2.0 MiB->2.0 MiB (8.0 MiB)"},
		{"small", event.NewOccupancy(512, 1024), "512 B (1.0 KiB)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPool(tt.pool); got != tt.want {
				t.Errorf("formatPool() = %q, want %q", got, tt.want)
			}
		})
	}
}
