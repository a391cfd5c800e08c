package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gclog/gclog-go/pkg/gclog"
	"github.com/gclog/gclog-go/pkg/gclog/diary"
)

var diaryOpts struct {
	rotated   bool
	format    string
	strictGen bool
}

var diaryCmd = &cobra.Command{
	Use:   "diary <file>",
	Short: "Show what the head of a GC log reveals about it",
	Long: `Read the head of a GC log and print its diary: the logging dialect,
the collectors in use and which optional details the JVM prints. Flags
the head of the log gives no evidence for are reported as unknown.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiary,
}

func init() {
	diaryCmd.Flags().BoolVar(&diaryOpts.rotated, "rotated", false,
		"Treat the argument as the base name of a rotated log set")
	diaryCmd.Flags().StringVarP(&diaryOpts.format, "format", "f", "pretty",
		"Output format: jsonl, pretty")
	diaryCmd.Flags().BoolVar(&diaryOpts.strictGen, "strict-generational", false,
		"Do not treat a known G1, ZGC or Shenandoah collector as a known generational collector")

	rootCmd.AddCommand(diaryCmd)
}

func runDiary(cmd *cobra.Command, args []string) error {
	if !ValidFormats[diaryOpts.format] {
		return fmt.Errorf("invalid format %q (valid: jsonl, pretty)", diaryOpts.format)
	}

	var lines iter.Seq2[string, error]
	if diaryOpts.rotated {
		rotated, err := gclog.RotatedLines(args[0])
		if err != nil {
			return err
		}
		lines = rotated
	} else {
		lines = gclog.FileLines(args[0])
	}

	d, err := gclog.Diarize(context.Background(), lines,
		gclog.WithLogger(newLogger(cmd.ErrOrStderr())),
		gclog.WithStrictGenerationalKnown(diaryOpts.strictGen),
	)
	if err != nil {
		return err
	}
	return OutputDiary(diaryOpts.format, d, cmd.OutOrStdout())
}

// OutputDiary writes every diary flag with its state.
func OutputDiary(format string, d *diary.Diary, out io.Writer) error {
	switch format {
	case "jsonl":
		flags := make(map[string]string, len(diary.Flags()))
		for _, f := range diary.Flags() {
			flags[f.String()] = d.State(f).String()
		}
		data, err := json.Marshal(struct {
			Flags         map[string]string `json:"flags"`
			LinesExamined int               `json:"lines_examined"`
			Complete      bool              `json:"complete"`
		}{flags, d.LinesExamined(), d.Complete()})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "pretty":
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, f := range diary.Flags() {
			fmt.Fprintf(tw, "%s\t%s\n", f, d.State(f))
		}
		fmt.Fprintf(tw, "\nlines examined\t%d\n", d.LinesExamined())
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
