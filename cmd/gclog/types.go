package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the built-in event types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listTypes(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}

func listTypes(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tCATEGORY\tPAUSE")
	for _, name := range ValidEventTypeNames() {
		t := ValidEventTypes[name]
		pause := "no"
		if t.IsPause() {
			pause = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t, t.Category(), pause)
	}
	return tw.Flush()
}
