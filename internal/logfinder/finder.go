// Package logfinder locates GC log files and orders rotated sets.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// EnvLogDir is the environment variable name for specifying log directory.
const EnvLogDir = "GCLOG_DIR"

// LogGlob matches the GC log names HotSpot is usually configured with:
// gc.log, gc-2024-01-15.log, app.gc.log and their rotated siblings.
const LogGlob = "*gc*.log*"

// Sentinel errors.
var (
	ErrLogDirNotFound = errors.New("log directory not found")
	ErrNoLogFiles     = errors.New("no log files found")
)

// FindLogDir returns the GC log directory.
//
// Priority:
//  1. explicit (if non-empty)
//  2. GCLOG_DIR environment variable
//  3. the working directory
//
// Returns ErrLogDirNotFound if no valid directory is found.
// The returned path has symlinks resolved for consistency.
func FindLogDir(explicit string) (string, error) {
	if explicit != "" {
		if resolved := resolveAndValidateLogDir(explicit); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: specified directory is invalid or contains no log files", ErrLogDirNotFound)
	}

	if envDir := os.Getenv(EnvLogDir); envDir != "" {
		if resolved := resolveAndValidateLogDir(envDir); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s environment variable points to invalid directory", ErrLogDirNotFound, EnvLogDir)
	}

	if wd, err := os.Getwd(); err == nil {
		if resolved := resolveAndValidateLogDir(wd); resolved != "" {
			return resolved, nil
		}
	}

	return "", ErrLogDirNotFound
}

// logCandidate holds a log file path and its cached modification time.
// Stat results are cached so files deleted between stat and sort are not
// consulted twice.
type logCandidate struct {
	path    string
	modTime int64
	current bool
	index   int
}

// FindLatestLogFile returns the path to the most recently modified GC log
// in the given directory.
//
// Returns ErrNoLogFiles if no log files are found.
func FindLatestLogFile(dir string) (string, error) {
	candidates, err := statAll(filepath.Join(dir, LogGlob))
	if err != nil {
		return "", err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime > candidates[j].modTime
	})
	return candidates[0].path, nil
}

// RotationSet returns the files that make up the log written to base,
// oldest first. HotSpot rotates by renaming into numbered siblings
// (gc.log.0, gc.log.1, ...); the pre-unified runtime additionally marks the
// file being written with a ".current" suffix, which always sorts last.
// base itself is included when it exists.
//
// Returns ErrNoLogFiles if neither base nor a sibling exists.
func RotationSet(base string) ([]string, error) {
	base = filepath.Clean(base)
	paths := []string{base}
	entries, err := os.ReadDir(filepath.Dir(base))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("listing rotated logs: %w", err)
	}
	for _, e := range entries {
		p := filepath.Join(filepath.Dir(base), e.Name())
		if _, _, ok := rotationSuffix(base, p); ok {
			paths = append(paths, p)
		}
	}

	candidates := make([]logCandidate, 0, len(paths))
	for _, p := range paths {
		info, err := os.Lstat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		c := logCandidate{path: p, modTime: info.ModTime().UnixNano(), index: -1}
		if p == base {
			// the unified runtime writes to base and renames it on rotation
			c.current = true
		} else {
			c.index, c.current, _ = rotationSuffix(base, p)
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil, ErrNoLogFiles
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.current != b.current {
			return b.current
		}
		if a.modTime != b.modTime {
			return a.modTime < b.modTime
		}
		return a.index < b.index
	})

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.path
	}
	return out, nil
}

// rotationSuffix parses the ".N" or ".N.current" suffix path carries
// relative to base.
func rotationSuffix(base, path string) (index int, current bool, ok bool) {
	suffix, found := strings.CutPrefix(path, base+".")
	if !found {
		return 0, false, false
	}
	suffix, current = strings.CutSuffix(suffix, ".current")
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false, false
	}
	return n, current, true
}

func statAll(pattern string) ([]logCandidate, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing log files: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrNoLogFiles
	}

	candidates := make([]logCandidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil {
			// deleted or unreadable since the glob
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, logCandidate{
			path:    m,
			modTime: info.ModTime().UnixNano(),
		})
	}
	if len(candidates) == 0 {
		return nil, ErrNoLogFiles
	}
	return candidates, nil
}

// resolveAndValidateLogDir resolves symlinks and validates the directory.
// Returns the resolved path if valid, empty string otherwise.
func resolveAndValidateLogDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		// broken symlinks are treated as invalid
		return ""
	}

	if !isValidLogDir(resolved) {
		return ""
	}
	return resolved
}

// isValidLogDir reports whether dir holds at least one GC log.
func isValidLogDir(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, LogGlob))
	return err == nil && len(matches) > 0
}
