package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gclog/gclog-go/pkg/gclog"
)

// engineFlags are the output and filtering flags shared by parse and tail.
type engineFlags struct {
	format       string
	types        []string
	excludeTypes []string
	patterns     []string
	includeRaw   bool
	strictGen    bool
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "jsonl",
		"Output format: jsonl, pretty")
	cmd.Flags().StringSliceVarP(&f.types, "types", "t", nil,
		"Event types to show (comma-separated, e.g. g1_young,g1_full_gc)")
	cmd.Flags().StringSliceVarP(&f.excludeTypes, "exclude-types", "x", nil,
		"Event types to hide (comma-separated)")
	cmd.Flags().StringArrayVarP(&f.patterns, "patterns", "p", nil,
		"YAML pattern file producing custom events (repeatable)")
	cmd.Flags().BoolVar(&f.includeRaw, "raw", false,
		"Include the log line that completed each event")
	cmd.Flags().BoolVar(&f.strictGen, "strict-generational", false,
		"Do not treat a known G1, ZGC or Shenandoah collector as a known generational collector")

	_ = cmd.RegisterFlagCompletionFunc("types", completeEventTypes)
	_ = cmd.RegisterFlagCompletionFunc("exclude-types", completeEventTypes)
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"jsonl", "pretty"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// engineOptions validates the flags and turns them into engine options.
func (f *engineFlags) engineOptions(logger *slog.Logger) ([]gclog.Option, error) {
	if !ValidFormats[f.format] {
		return nil, fmt.Errorf("invalid format %q (valid: jsonl, pretty)", f.format)
	}

	parsers, custom, err := buildParsers(f.patterns)
	if err != nil {
		return nil, err
	}
	include, err := NormalizeEventTypes(f.types, custom...)
	if err != nil {
		return nil, fmt.Errorf("--types: %w", err)
	}
	exclude, err := NormalizeEventTypes(f.excludeTypes, custom...)
	if err != nil {
		return nil, fmt.Errorf("--exclude-types: %w", err)
	}
	if err := RejectOverlap(include, exclude); err != nil {
		return nil, err
	}

	return []gclog.Option{
		gclog.WithLogger(logger),
		gclog.WithParsers(parsers...),
		gclog.WithIncludeTypes(include...),
		gclog.WithExcludeTypes(exclude...),
		gclog.WithIncludeRawLine(f.includeRaw),
		gclog.WithStrictGenerationalKnown(f.strictGen),
	}, nil
}

func completeEventTypes(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return ValidEventTypeNames(), cobra.ShellCompDirectiveNoFileComp
}
