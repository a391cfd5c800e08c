package logfinder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAt(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestFindLatestLogFile(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		"gc-2024-01-01.log",
		"gc-2024-01-02.log",
		"gc-2024-01-03.log",
	}
	base := time.Now().Add(-time.Hour)
	for i, name := range files {
		writeAt(t, filepath.Join(dir, name), base.Add(time.Duration(i)*time.Minute))
	}

	got, err := FindLatestLogFile(dir)
	if err != nil {
		t.Fatalf("FindLatestLogFile() error = %v", err)
	}

	want := files[len(files)-1]
	if filepath.Base(got) != want {
		t.Errorf("FindLatestLogFile() = %v, want %v", filepath.Base(got), want)
	}
}

func TestFindLatestLogFile_NoFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := FindLatestLogFile(dir)
	if !errors.Is(err, ErrNoLogFiles) {
		t.Errorf("FindLatestLogFile() error = %v, want %v", err, ErrNoLogFiles)
	}
}

func TestFindLatestLogFile_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "gc.log.d"), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := FindLatestLogFile(dir)
	if !errors.Is(err, ErrNoLogFiles) {
		t.Errorf("FindLatestLogFile() error = %v, want %v", err, ErrNoLogFiles)
	}
}

func TestRotationSet_PreUnified(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gc.log")
	now := time.Now().Add(-time.Hour)

	// the cycle wrapped: file 0 was rewritten after files 1 and 2
	writeAt(t, base+".1", now)
	writeAt(t, base+".2", now.Add(time.Minute))
	writeAt(t, base+".0.current", now.Add(2*time.Minute))
	writeAt(t, filepath.Join(dir, "gc.log.bak"), now)
	writeAt(t, filepath.Join(dir, "other.log.1"), now)

	got, err := RotationSet(base)
	if err != nil {
		t.Fatalf("RotationSet() error = %v", err)
	}
	want := []string{base + ".1", base + ".2", base + ".0.current"}
	if len(got) != len(want) {
		t.Fatalf("RotationSet() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RotationSet()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRotationSet_Unified(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gc.log")
	now := time.Now().Add(-time.Hour)

	writeAt(t, base+".0", now)
	writeAt(t, base+".1", now.Add(time.Minute))
	// the live file can carry an older mtime than a sibling on coarse clocks
	writeAt(t, base, now)

	got, err := RotationSet(base)
	if err != nil {
		t.Fatalf("RotationSet() error = %v", err)
	}
	want := []string{base + ".0", base + ".1", base}
	if len(got) != len(want) {
		t.Fatalf("RotationSet() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RotationSet()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRotationSet_SingleFile(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gc.log")
	writeAt(t, base, time.Now())

	got, err := RotationSet(base)
	if err != nil {
		t.Fatalf("RotationSet() error = %v", err)
	}
	if len(got) != 1 || got[0] != base {
		t.Errorf("RotationSet() = %v, want [%v]", got, base)
	}
}

func TestRotationSet_Missing(t *testing.T) {
	_, err := RotationSet(filepath.Join(t.TempDir(), "gc.log"))
	if !errors.Is(err, ErrNoLogFiles) {
		t.Errorf("RotationSet() error = %v, want %v", err, ErrNoLogFiles)
	}
}

func TestRotationSuffix(t *testing.T) {
	tests := []struct {
		path    string
		index   int
		current bool
		ok      bool
	}{
		{"gc.log.0", 0, false, true},
		{"gc.log.12", 12, false, true},
		{"gc.log.3.current", 3, true, true},
		{"gc.log.bak", 0, false, false},
		{"gc.log", 0, false, false},
		{"gc.log.-1", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			index, current, ok := rotationSuffix("gc.log", tt.path)
			if index != tt.index || current != tt.current || ok != tt.ok {
				t.Errorf("rotationSuffix(%q) = %d, %v, %v", tt.path, index, current, ok)
			}
		})
	}
}

func TestFindLogDir_EnvVar(t *testing.T) {
	dir := t.TempDir()
	writeAt(t, filepath.Join(dir, "gc.log"), time.Now())
	t.Setenv(EnvLogDir, dir)

	got, err := FindLogDir("")
	if err != nil {
		t.Fatalf("FindLogDir() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("FindLogDir() = %v, want %v", got, want)
	}
}

func TestFindLogDir_Explicit(t *testing.T) {
	dir := t.TempDir()
	writeAt(t, filepath.Join(dir, "app.gc.log"), time.Now())

	// explicit takes priority over env
	t.Setenv(EnvLogDir, "/some/other/path")

	got, err := FindLogDir(dir)
	if err != nil {
		t.Fatalf("FindLogDir() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("FindLogDir() = %v, want %v", got, want)
	}
}

func TestFindLogDir_ExplicitInvalid(t *testing.T) {
	_, err := FindLogDir("/nonexistent/path")
	if !errors.Is(err, ErrLogDirNotFound) {
		t.Errorf("FindLogDir() error = %v, want %v", err, ErrLogDirNotFound)
	}
}

func TestFindLogDir_EnvVarInvalid(t *testing.T) {
	t.Setenv(EnvLogDir, "/nonexistent/path")

	_, err := FindLogDir("")
	if !errors.Is(err, ErrLogDirNotFound) {
		t.Errorf("FindLogDir() error = %v, want %v", err, ErrLogDirNotFound)
	}
}

func TestIsValidLogDir(t *testing.T) {
	dir := t.TempDir()
	writeAt(t, filepath.Join(dir, "gc.log.0"), time.Now())

	if !isValidLogDir(dir) {
		t.Error("isValidLogDir() = false, want true for valid dir")
	}
	if isValidLogDir(t.TempDir()) {
		t.Error("isValidLogDir() = true, want false for empty dir")
	}
	if isValidLogDir("/nonexistent/path") {
		t.Error("isValidLogDir() = true, want false for nonexistent path")
	}
}
