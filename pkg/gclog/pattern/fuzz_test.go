package pattern

import (
	"context"
	"testing"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

// FuzzRegexParser_ParseLine checks that ParseLine never panics or fails.
func FuzzRegexParser_ParseLine(f *testing.F) {
	pf := &PatternFile{
		Version: 1,
		Patterns: []Pattern{
			{ID: "plain", EventType: "plain", Regex: `Heap dump`},
			{ID: "named", EventType: "named", Regex: `Allocation Stall \((?P<thread>[^)]+)\) (?P<ms>[\d.]+)ms`},
			{ID: "mixed", EventType: "mixed", Regex: `(\w+) file created \[(?P<bytes>\d+) bytes`},
		},
	}
	parser, err := NewRegexParser(pf)
	if err != nil {
		f.Fatalf("Failed to create parser: %v", err)
	}

	f.Add("12.345: Heap dump file created [1048576 bytes in 0.120 secs]")
	f.Add("2018-04-04T09:10:00.586-0100: 12.986: Heap dump")
	f.Add("[5.120s][info][gc] Allocation Stall (main) 12.500ms")
	f.Add("[2020-03-27T11:33:16.211+0100][0.402s][info][gc] Heap dump")
	f.Add("")
	f.Add("9999-99-99T99:99:99.999-9999: Heap dump")
	f.Add("[")
	f.Add(string([]byte{0xff, 0xfe, 0xfd}))

	ctx := context.Background()
	f.Fuzz(func(t *testing.T, line string) {
		result, err := parser.ParseLine(ctx, line)
		if err != nil {
			t.Errorf("ParseLine returned unexpected error: %v", err)
		}
		if result.Matched != (len(result.Events) > 0) {
			t.Errorf("Matched = %v with %d events", result.Matched, len(result.Events))
		}
		for i, ev := range result.Events {
			if ev.Type == "" {
				t.Errorf("Event[%d] has empty Type", i)
			}
			if ev.Category != event.CategoryCustom {
				t.Errorf("Event[%d] has category %s", i, ev.Category)
			}
			for key := range ev.Data {
				if key == "" {
					t.Errorf("Event[%d] has Data with empty key", i)
				}
			}
		}
	})
}

// FuzzLoadBytes checks that LoadBytes never panics and only accepts valid
// files.
func FuzzLoadBytes(f *testing.F) {
	f.Add([]byte(`version: 1
patterns:
  - id: test
    event_type: test_event
    regex: 'test pattern'`))
	f.Add([]byte(""))
	f.Add([]byte("not yaml"))
	f.Add([]byte("version: 999"))
	f.Add([]byte("version: 1"))
	f.Add([]byte{0xff, 0xfe, 0xfd})

	f.Fuzz(func(t *testing.T, data []byte) {
		pf, err := LoadBytes(data)
		if (pf == nil) != (err != nil) {
			t.Errorf("LoadBytes inconsistent: pf=%v, err=%v", pf != nil, err)
		}
		if pf == nil {
			return
		}
		if pf.Version != SupportedVersion {
			t.Errorf("LoadBytes succeeded with unsupported version: %d", pf.Version)
		}
		if len(pf.Patterns) == 0 {
			t.Error("LoadBytes succeeded with no patterns")
		}
		for i, p := range pf.Patterns {
			if p.ID == "" || p.EventType == "" || p.Regex == "" {
				t.Errorf("Pattern[%d] has an empty required field", i)
			}
			if len(p.Regex) > MaxPatternLength {
				t.Errorf("Pattern[%d] regex too long: %d (max %d)", i, len(p.Regex), MaxPatternLength)
			}
			if event.Type(p.EventType).Category() != event.CategoryCustom {
				t.Errorf("Pattern[%d] shadows built-in type %s", i, p.EventType)
			}
		}
	})
}
