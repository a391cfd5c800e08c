package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gclog/gclog-go/pkg/gclog"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

var parseOpts struct {
	engine  engineFlags
	rotated bool
	since   string
	until   string
	jobs    int
}

var parseCmd = &cobra.Command{
	Use:   "parse [file...]",
	Short: "Parse GC log files and output their events",
	Long: `Parse complete GC log files and output the reconstructed events.

Each file is parsed as a separate log, concurrently, and the events are
printed file by file in argument order. Gzip compressed logs and zip
archives of logs are read transparently. Without arguments the log is
read from standard input.

Examples:
  # JSON Lines for every event
  gclog parse gc.log

  # Only full collections, human-readable
  gclog parse --types g1_full_gc,full_gc --format pretty gc.log

  # A rotated set (gc.log.0, gc.log.1, ..., gc.log) as one log
  gclog parse --rotated gc.log

  # Custom events from a pattern file
  gclog parse --patterns stalls.yaml gc.log.gz`,
	RunE: runParse,
}

func init() {
	parseOpts.engine.register(parseCmd)
	parseCmd.Flags().BoolVar(&parseOpts.rotated, "rotated", false,
		"Treat each argument as the base name of a rotated log set")
	parseCmd.Flags().StringVar(&parseOpts.since, "since", "",
		"Only events at or after this time (RFC3339)")
	parseCmd.Flags().StringVar(&parseOpts.until, "until", "",
		"Only events before this time (RFC3339)")
	parseCmd.Flags().IntVarP(&parseOpts.jobs, "jobs", "j", runtime.GOMAXPROCS(0),
		"Files parsed concurrently")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := parseOpts.engine.engineOptions(newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	since, err := parseTimeFlag("--since", parseOpts.since)
	if err != nil {
		return err
	}
	until, err := parseTimeFlag("--until", parseOpts.until)
	if err != nil {
		return err
	}
	if !since.IsZero() || !until.IsZero() {
		opts = append(opts, gclog.WithTimeRange(since, until))
	}
	if parseOpts.jobs < 1 {
		return fmt.Errorf("--jobs must be positive, got %d", parseOpts.jobs)
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()

	if len(args) == 0 {
		return writeEvents(gclog.ParseReader(ctx, cmd.InOrStdin(), opts...), parseOpts.engine.format, out)
	}
	return parseFiles(ctx, args, parseOpts.rotated, parseOpts.jobs, parseOpts.engine.format, opts, out)
}

// parseFiles parses each path with its own engine, at most jobs at a
// time, and writes the output of every file to out in path order. The
// first failure cancels the files still being parsed.
func parseFiles(ctx context.Context, paths []string, rotated bool, jobs int, format string, opts []gclog.Option, out io.Writer) error {
	bufs := make([]bytes.Buffer, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			seq := gclog.ParseFile(ctx, path, opts...)
			if rotated {
				seq = gclog.ParseRotated(ctx, path, opts...)
			}
			if err := writeEvents(seq, format, &bufs[i]); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range bufs {
		if _, err := bufs[i].WriteTo(out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}

// writeEvents drains seq into out in the given format.
func writeEvents(seq iter.Seq2[event.Event, error], format string, out io.Writer) error {
	for ev, err := range seq {
		if err != nil {
			return err
		}
		if err := OutputEvent(format, ev, out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %w", name, err)
	}
	return t, nil
}
