package gclog

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/gclog/gclog-go/internal/logfinder"
	"github.com/gclog/gclog-go/internal/safefile"
)

// MaxLineBytes is the longest line a source accepts.
const MaxLineBytes = 1 << 20

// Lines returns the trimmed non-empty lines of r followed by EndOfData.
// A read error is yielded once and ends the sequence without EndOfData.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !scan(r, yield) {
			return
		}
		yield(EndOfData, nil)
	}
}

// FileLines returns the lines of the files at paths, read in order as one
// log, followed by EndOfData. Gzip files and zip archives are read
// transparently; the entries of an archive are read in archive order.
// Each file is opened when the sequence reaches it.
func FileLines(paths ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range paths {
			if !scanFile(p, yield) {
				return
			}
		}
		yield(EndOfData, nil)
	}
}

// RotatedLines returns the lines of the rotation set of base, oldest file
// first. See FileLines.
func RotatedLines(base string) (iter.Seq2[string, error], error) {
	paths, err := logfinder.RotationSet(base)
	if err != nil {
		return nil, err
	}
	return FileLines(paths...), nil
}

// scan yields the lines of r and reports whether the caller should go on.
func scan(r io.Reader, yield func(string, error) bool) bool {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line == EndOfData {
			continue
		}
		if !yield(line, nil) {
			return false
		}
	}
	if err := sc.Err(); err != nil {
		yield("", fmt.Errorf("reading log: %w", err))
		return false
	}
	return true
}

func scanFile(path string, yield func(string, error) bool) bool {
	f, info, err := safefile.OpenRegular(path)
	if err != nil {
		yield("", fmt.Errorf("opening log: %w", err))
		return false
	}
	defer f.Close()

	kind, err := safefile.Sniff(f)
	if err != nil {
		yield("", fmt.Errorf("reading log: %w", err))
		return false
	}

	switch kind {
	case safefile.Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			yield("", fmt.Errorf("opening gzip log: %w", err))
			return false
		}
		defer zr.Close()
		return scan(zr, yield)

	case safefile.Zip:
		zr, err := zip.NewReader(f, info.Size())
		if err != nil {
			yield("", fmt.Errorf("opening zip log: %w", err))
			return false
		}
		for _, zf := range zr.File {
			if zf.FileInfo().IsDir() {
				continue
			}
			rc, err := zf.Open()
			if err != nil {
				yield("", fmt.Errorf("opening zip entry %s: %w", zf.Name, err))
				return false
			}
			ok := scan(rc, yield)
			rc.Close()
			if !ok {
				return false
			}
		}
		return true
	}
	return scan(f, yield)
}
