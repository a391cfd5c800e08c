package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/gclog/gclog-go/internal/metrics"
	"github.com/gclog/gclog-go/pkg/gclog"
	"github.com/gclog/gclog-go/pkg/gclog/event"
)

var tailOpts struct {
	engine      engineFlags
	logDir      string
	replayLast  int
	replaySince string
	poll        bool
	wait        bool
	metricsAddr string
}

var tailCmd = &cobra.Command{
	Use:   "tail [file]",
	Short: "Follow a GC log and output events as they complete",
	Long: `Follow a GC log as the JVM writes it and output each event once the
lines that complete it have been written.

Give the log file as an argument, or a directory with --log-dir to follow
the most recently modified log in it, switching to newer logs as the JVM
rotates. The whole file is replayed before following unless --replay-last
or --replay-since says otherwise.

Examples:
  # Follow a log file
  gclog tail /var/log/app/gc.log

  # Follow the newest log of a directory, human-readable
  gclog tail --log-dir /var/log/app --format pretty

  # Only lines written from now on
  gclog tail --replay-last 0 gc.log

  # Expose Prometheus metrics while following
  gclog tail --metrics-addr :9100 gc.log

  # Pipe to jq for filtering
  gclog tail gc.log | jq 'select(.category == "g1")'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTail,
}

func init() {
	tailOpts.engine.register(tailCmd)
	tailCmd.Flags().StringVarP(&tailOpts.logDir, "log-dir", "d", "",
		"Follow the newest GC log in this directory")
	tailCmd.Flags().IntVar(&tailOpts.replayLast, "replay-last", -1,
		"Replay the last N lines before following (-1 = whole file, 0 = none)")
	tailCmd.Flags().StringVar(&tailOpts.replaySince, "replay-since", "",
		"Replay events since timestamp (RFC3339 format, e.g., 2024-01-15T12:00:00Z)")
	tailCmd.Flags().BoolVar(&tailOpts.poll, "poll", false,
		"Poll the file instead of using filesystem notifications")
	tailCmd.Flags().BoolVar(&tailOpts.wait, "wait", false,
		"Wait for the log to appear instead of failing")
	tailCmd.Flags().StringVar(&tailOpts.metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9100)")
	tailCmd.MarkFlagsMutuallyExclusive("replay-last", "replay-since")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cmd.ErrOrStderr())
	engineOpts, err := tailOpts.engine.engineOptions(logger)
	if err != nil {
		return err
	}
	watchOpts, err := watchOptions(args, tailOpts.logDir, tailOpts.replayLast, tailOpts.replaySince)
	if err != nil {
		return err
	}
	watchOpts = append(watchOpts,
		gclog.WithFilePolling(tailOpts.poll),
		gclog.WithWaitForLogs(tailOpts.wait),
	)

	if tailOpts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		engineOpts = append(engineOpts, gclog.WithMetrics(reg))

		srv := metrics.NewServer(tailOpts.metricsAddr, reg, logger)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		logger.Info("serving metrics", slog.String("addr", srv.Addr()))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	watchOpts = append(watchOpts, gclog.WithEngineOptions(engineOpts...))

	// Create watcher (validates the log location)
	watcher, err := gclog.NewWatcher(watchOpts...)
	if err != nil {
		return err
	}
	defer watcher.Close()

	events, errs, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}
	return streamEvents(ctx, events, errs, tailOpts.engine.format, cmd.OutOrStdout(), logger)
}

// watchOptions translates the location and replay flags.
func watchOptions(args []string, logDir string, replayLast int, replaySince string) ([]gclog.WatchOption, error) {
	var opts []gclog.WatchOption
	switch {
	case len(args) == 1 && logDir != "":
		return nil, errors.New("a log file argument and --log-dir are mutually exclusive")
	case len(args) == 1:
		opts = append(opts, gclog.WithLogFile(args[0]))
	case logDir != "":
		opts = append(opts, gclog.WithLogDir(logDir))
	default:
		return nil, errors.New("a log file argument or --log-dir is required")
	}

	switch {
	case replayLast == 0:
		opts = append(opts, gclog.WithReplayNone())
	case replayLast > 0:
		opts = append(opts, gclog.WithReplayLastN(replayLast))
	case replaySince != "":
		since, err := parseTimeFlag("--replay-since", replaySince)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gclog.WithReplaySinceTime(since))
	}
	return opts, nil
}

// streamEvents writes events until the watcher stops or ctx is done.
// Watch errors are logged; the last one is returned if the watcher stopped
// on its own.
func streamEvents(ctx context.Context, events <-chan event.Event, errs <-chan error, format string, out io.Writer, logger *slog.Logger) error {
	var lastErr error
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if errs != nil {
					for err := range errs {
						logger.Warn("watch error", slog.String("error", err.Error()))
						lastErr = err
					}
				}
				if ctx.Err() != nil {
					return nil
				}
				return lastErr
			}
			if err := OutputEvent(format, ev, out); err != nil {
				return fmt.Errorf("output error: %w", err)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch error", slog.String("error", err.Error()))
			lastErr = err

		case <-ctx.Done():
			return nil
		}
	}
}
