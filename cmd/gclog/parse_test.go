package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gclog/gclog-go/pkg/gclog"
)

const (
	initialMarkLine = `12.986: [GC[1 CMS-initial-mark: 33532K(62656K)] 49652K(81280K), 0.0014191 secs]`
	markStart       = `27.538: [CMS-concurrent-mark-start]`
	markEnd         = `27.626: [CMS-concurrent-mark: 0.070/0.089 secs]`
)

func writeLog(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func outputTypes(t *testing.T, out string) []string {
	t.Helper()
	var types []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			t.Fatalf("unexpected pretty line %q", line)
		}
		types = append(types, fields[2])
	}
	return types
}

func TestParseFiles_KeepsArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "a.log", initialMarkLine)
	b := writeLog(t, dir, "b.log", markStart, markEnd)

	var out bytes.Buffer
	if err := parseFiles(context.Background(), []string{b, a}, false, 2, "pretty", nil, &out); err != nil {
		t.Fatalf("parseFiles() error = %v", err)
	}

	got := strings.Join(outputTypes(t, out.String()), " ")
	want := "cms_concurrent_mark jvm_termination cms_initial_mark jvm_termination"
	if got != want {
		t.Errorf("parseFiles() types = %q, want %q", got, want)
	}
}

func TestParseFiles_Rotated(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gc.log")
	older := writeLog(t, dir, "gc.log.0", markStart)
	now := time.Now()
	if err := os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	writeLog(t, dir, "gc.log", markEnd)

	var out bytes.Buffer
	if err := parseFiles(context.Background(), []string{base}, true, 1, "pretty", nil, &out); err != nil {
		t.Fatalf("parseFiles() error = %v", err)
	}
	if !strings.Contains(out.String(), "cms_concurrent_mark 88.000ms") {
		t.Errorf("rotated set should be one log, got %q", out.String())
	}
}

func TestParseFiles_Failure(t *testing.T) {
	dir := t.TempDir()
	good := writeLog(t, dir, "good.log", initialMarkLine)
	empty := writeLog(t, dir, "empty.log", "")

	var out bytes.Buffer
	err := parseFiles(context.Background(), []string{good, empty}, false, 2, "jsonl", nil, &out)
	if !errors.Is(err, gclog.ErrInvalidLogState) {
		t.Fatalf("parseFiles() error = %v, want ErrInvalidLogState", err)
	}
	if !strings.Contains(err.Error(), "empty.log") {
		t.Errorf("error should name the failing file: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be written on failure, got %q", out.String())
	}
}

func TestWriteEvents_Filters(t *testing.T) {
	include, err := NormalizeEventTypes([]string{"cms_initial_mark"})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	seq := gclog.ParseReader(context.Background(), strings.NewReader(initialMarkLine+"\n"+markStart+"\n"+markEnd),
		gclog.WithIncludeTypes(include...))
	if err := writeEvents(seq, "jsonl", &out); err != nil {
		t.Fatalf("writeEvents() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"type":"cms_initial_mark"`) {
		t.Errorf("writeEvents() = %q, want only the initial mark", out.String())
	}
}

func TestEngineFlags_Options(t *testing.T) {
	tests := []struct {
		name    string
		flags   engineFlags
		wantErr string
	}{
		{"defaults", engineFlags{format: "jsonl"}, ""},
		{"bad format", engineFlags{format: "xml"}, "invalid format"},
		{"bad type", engineFlags{format: "jsonl", types: []string{"nope"}}, "--types"},
		{"bad exclude", engineFlags{format: "jsonl", excludeTypes: []string{"nope"}}, "--exclude-types"},
		{"overlap", engineFlags{format: "jsonl", types: []string{"g1_young"}, excludeTypes: []string{"G1_YOUNG"}}, "both included and excluded"},
		{"missing patterns", engineFlags{format: "jsonl", patterns: []string{"/nonexistent.yaml"}}, "pattern file 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := tt.flags.engineOptions(newLogger(&bytes.Buffer{}))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("engineOptions() error = %v", err)
				}
				if len(opts) == 0 {
					t.Error("engineOptions() returned no options")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("engineOptions() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseTimeFlag(t *testing.T) {
	got, err := parseTimeFlag("--since", "")
	if err != nil || !got.IsZero() {
		t.Errorf("parseTimeFlag(\"\") = %v, %v, want zero time", got, err)
	}

	got, err = parseTimeFlag("--since", "2024-01-15T12:00:00Z")
	if err != nil {
		t.Fatalf("parseTimeFlag() error = %v", err)
	}
	if !got.Equal(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("parseTimeFlag() = %v", got)
	}

	if _, err := parseTimeFlag("--since", "yesterday"); err == nil || !strings.Contains(err.Error(), "--since") {
		t.Errorf("parseTimeFlag(invalid) error = %v, want it to name the flag", err)
	}
}
