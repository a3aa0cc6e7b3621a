package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"modelprof-mcp/internal/analyzer"
	"modelprof-mcp/internal/engine"
	"modelprof-mcp/internal/profiler"
	"modelprof-mcp/internal/store"
)

var runFlags struct {
	planFile       string
	computeUnits   int
	fullProfile    bool
	repetitions    int
	outputDir      string
	diagnosticsDir string
	save           bool
	dbPath         string
	verbose        bool
}

var runCmd = &cobra.Command{
	Use:   "run <model-path>",
	Short: "Run a profiling pass against a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logrus.New()
		if !runFlags.verbose {
			log.SetLevel(logrus.WarnLevel)
		}

		eng, err := engine.NewFileEngine(runFlags.planFile)
		if err != nil {
			return err
		}

		units := engine.ComputeUnits(runFlags.computeUnits)
		result, err := profiler.NewRunner(eng, log).Run(cmd.Context(), profiler.Options{
			ModelPath:      args[0],
			Units:          units,
			FullProfile:    runFlags.fullProfile,
			Repetitions:    runFlags.repetitions,
			OutputDir:      runFlags.outputDir,
			DiagnosticsDir: runFlags.diagnosticsDir,
		})
		if err != nil {
			return err
		}

		counts := result.Counts
		fmt.Printf("Operations: %d (CPU %d, GPU %d, ANE %d)\n",
			counts.TotalOperations, counts.TotalCPU, counts.TotalGPU, counts.TotalANE)
		if result.Timings.Compile != nil {
			fmt.Printf("Compile median: %.3f ms\n", result.Timings.Compile.Median())
		}
		fmt.Printf("Load median: %.3f ms\n", result.Timings.Load.Median())
		if result.Timings.Predict != nil {
			fmt.Printf("Predict median: %.3f ms\n", result.Timings.Predict.Median())
		}

		hotspots := analyzer.FindHotspots(result.Table, 5)
		if len(hotspots) > 0 {
			fmt.Println("\nTop operations by cost:")
			for i, hs := range hotspots {
				fmt.Print(analyzer.FormatHotspot(hs, i+1))
			}
		}

		if runFlags.save {
			historyStore, err := store.NewSQLiteStore(runFlags.dbPath)
			if err != nil {
				return err
			}
			defer historyStore.Close()
			id, err := historyStore.SaveRun(store.RunMeta{
				ModelPath:   args[0],
				Units:       units.String(),
				FullProfile: runFlags.fullProfile,
			}, result)
			if err != nil {
				return err
			}
			fmt.Printf("\nSaved as run %s\n", id)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.planFile, "plan", "", "captured compute-plan document to replay (required)")
	runCmd.Flags().IntVar(&runFlags.computeUnits, "compute-units", 0, "device selector: 0=all, 1=cpu-only, 2=cpu+gpu, 3=cpu+ane")
	runCmd.Flags().BoolVar(&runFlags.fullProfile, "full-profile", false, "run timed predictions and synthesize per-operation timing windows")
	runCmd.Flags().IntVar(&runFlags.repetitions, "repetitions", 0, "measurement runs per phase (default 10)")
	runCmd.Flags().StringVar(&runFlags.outputDir, "output-dir", "", "directory for compute_plan.json and compute_plan_operation_table.json")
	runCmd.Flags().StringVar(&runFlags.diagnosticsDir, "diagnostics-dir", "", "directory holding engine diagnostic logs")
	runCmd.Flags().BoolVar(&runFlags.save, "save", false, "persist this run to the history database")
	runCmd.Flags().StringVar(&runFlags.dbPath, "db", store.DefaultDBPath(), "history database path")
	runCmd.Flags().BoolVarP(&runFlags.verbose, "verbose", "v", false, "log phase progress")
	_ = runCmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(runCmd)
}
