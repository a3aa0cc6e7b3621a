// Command modelprof profiles model execution from the command line.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "modelprof",
	Short: "Profile model execution plans",
	Long: `modelprof measures compile/load/predict timings for a model, flattens its
compute plan into an operation table annotated with cost and device usage,
and reports aggregate compute-unit counts.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
