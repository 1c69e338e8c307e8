// Package main provides the tracedemo CLI: a diagnostic harness that
// drives a synthetic update stream through the merge batcher and the
// fueled spine, then reports the resulting layer structure and merged
// collection. It exists to exercise the library end to end by hand; it is
// not a product surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tracelib/pkg/version"
)

func main() {
	root := &cobra.Command{
		Use:           "tracedemo",
		Short:         "Drive a synthetic update stream through the fueled spine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tracedemo:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tracedemo version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
