// Package safefile opens log files for reading after checking they are
// regular files, and identifies compressed logs by their magic bytes.
package safefile

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// ErrNotRegularFile is returned when attempting to open a file that is not a regular file.
// This includes symlinks, FIFOs, devices, sockets, and directories.
var ErrNotRegularFile = errors.New("not a regular file")

// Kind is the container format of a log file.
type Kind int

const (
	Plain Kind = iota
	Gzip
	Zip
)

func (k Kind) String() string {
	switch k {
	case Gzip:
		return "gzip"
	case Zip:
		return "zip"
	}
	return "plain"
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte("PK\x03\x04")
)

// OpenRegular opens path after checking, without following symlinks, that
// it names a regular file. The descriptor is stat'ed again after the open
// so a file swapped for a FIFO or device in between is rejected.
//
// The caller must close the returned file when done.
func OpenRegular(path string) (*os.File, os.FileInfo, error) {
	linkInfo, err := os.Lstat(path)
	if err != nil {
		return nil, nil, err
	}
	if !linkInfo.Mode().IsRegular() {
		return nil, nil, ErrNotRegularFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotRegularFile
	}
	return f, info, nil
}

// Sniff reports the container format of r from its first bytes. Files too
// short to carry a magic number are Plain.
func Sniff(r io.ReaderAt) (Kind, error) {
	head := make([]byte, len(zipMagic))
	n, err := r.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return Plain, err
	}
	head = head[:n]
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip, nil
	case bytes.HasPrefix(head, zipMagic):
		return Zip, nil
	}
	return Plain, nil
}
