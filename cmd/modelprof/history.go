package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modelprof-mcp/internal/store"
)

var historyDBPath string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved profiling runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		historyStore, err := store.NewSQLiteStore(historyDBPath)
		if err != nil {
			return err
		}
		defer historyStore.Close()

		runs, err := historyStore.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No saved runs.")
			return nil
		}
		for _, run := range runs {
			fmt.Printf("%s  %s  %s (%s)\n", run.ID, run.Created.Format("2006-01-02 15:04:05"),
				run.Meta.ModelPath, run.Meta.Units)
			fmt.Printf("    ops %d (CPU %d, GPU %d, ANE %d), load median %.3f ms\n",
				run.Counts.TotalOperations, run.Counts.TotalCPU, run.Counts.TotalGPU,
				run.Counts.TotalANE, run.LoadMedianMs)
		}
		return nil
	},
}

var tableCmd = &cobra.Command{
	Use:   "table <run-id>",
	Short: "Print a saved run's operation table as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		historyStore, err := store.NewSQLiteStore(historyDBPath)
		if err != nil {
			return err
		}
		defer historyStore.Close()

		table, err := historyStore.GetRunTable(args[0])
		if err != nil {
			return err
		}
		data, err := table.Serialize()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{historyCmd, tableCmd} {
		cmd.Flags().StringVar(&historyDBPath, "db", store.DefaultDBPath(), "history database path")
		rootCmd.AddCommand(cmd)
	}
}
