// Command gclog reads HotSpot garbage collection logs and prints the
// collection events they record.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "gclog",
	Short: "Parse HotSpot GC logs into events",
	Long: `gclog reconstructs garbage collection events from HotSpot GC logs.

It recognizes the pre-JDK 9 format as well as unified logging, for the
Serial, Parallel, CMS, G1, ZGC and Shenandoah collectors, and prints one
event per collection or phase.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log diagnostics to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger returns the diagnostics logger. Only warnings are shown unless
// --verbose is set.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
