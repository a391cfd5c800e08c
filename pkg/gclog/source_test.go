package gclog_test

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gclog/gclog-go/pkg/gclog"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

func collectLines(t *testing.T, seq iter.Seq2[string, error]) []string {
	t.Helper()
	var out []string
	for line, err := range seq {
		require.NoError(t, err)
		out = append(out, line)
	}
	return out
}

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestLines(t *testing.T) {
	got := collectLines(t, gclog.Lines(strings.NewReader("  a  \r\n\n\tb\n"+gclog.EndOfData+"\nc")))
	assert.Equal(t, []string{"a", "b", "c", gclog.EndOfData}, got)
}

func TestLines_TooLong(t *testing.T) {
	long := strings.Repeat("x", gclog.MaxLineBytes+1)

	var lines []string
	var errs []error
	for line, err := range gclog.Lines(strings.NewReader("a\n" + long)) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"a"}, lines)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "reading log")
}

func TestFileLines_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gc.log.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(initialMarkLine + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	assert.Equal(t, []string{initialMarkLine, gclog.EndOfData}, collectLines(t, gclog.FileLines(path)))

	events, err := gclog.Collect(gclog.ParseFile(context.Background(), path))
	require.NoError(t, err)
	assert.Equal(t, []event.Type{event.CMSInitialMark, event.JVMTermination}, types(events))
}

func TestFileLines_Zip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gc.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("logs/")
	require.NoError(t, err)
	for _, entry := range []struct{ name, body string }{
		{"logs/gc.log.0", "first\n"},
		{"logs/gc.log.1", "second\nthird\n"},
	} {
		w, err := zw.Create(entry.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(entry.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	assert.Equal(t, []string{"first", "second", "third", gclog.EndOfData}, collectLines(t, gclog.FileLines(path)))
}

func TestFileLines_SeveralFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.log")
	b := filepath.Join(dir, "b.log")
	require.NoError(t, os.WriteFile(a, []byte("one\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("two\n"), 0o644))

	assert.Equal(t, []string{"one", "two", gclog.EndOfData}, collectLines(t, gclog.FileLines(a, b)))
}

func TestFileLines_Missing(t *testing.T) {
	var errs []error
	for _, err := range gclog.FileLines(filepath.Join(t.TempDir(), "missing.log")) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], os.ErrNotExist))

	_, err := gclog.Collect(gclog.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.log")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRotatedLines(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gc.log")
	now := time.Now()
	writeFile(t, base+".1", "second\n", now.Add(-time.Hour))
	writeFile(t, base+".0", "first\n", now.Add(-2*time.Hour))
	writeFile(t, base, "third\n", now)

	lines, err := gclog.RotatedLines(base)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third", gclog.EndOfData}, collectLines(t, lines))
}

func TestParseRotated(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gc.log")
	now := time.Now()
	writeFile(t, base+".0", "27.538: [CMS-concurrent-mark-start]\n", now.Add(-time.Minute))
	writeFile(t, base+".1.current", "27.626: [CMS-concurrent-mark: 0.070/0.089 secs]\n", now)

	events, err := gclog.Collect(gclog.ParseRotated(context.Background(), base))
	require.NoError(t, err)

	marks := ofType(events, event.CMSConcurrentMark)
	require.Len(t, marks, 1)
	assert.InDelta(t, 0.088, marks[0].Duration, 1e-9)
}

func TestParseRotated_Missing(t *testing.T) {
	_, err := gclog.Collect(gclog.ParseRotated(context.Background(), filepath.Join(t.TempDir(), "gc.log")))
	assert.ErrorIs(t, err, gclog.ErrNoLogFiles)
}
