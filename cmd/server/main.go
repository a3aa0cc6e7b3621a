package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"modelprof-mcp/internal/analyzer"
	"modelprof-mcp/internal/engine"
	"modelprof-mcp/internal/profiler"
	"modelprof-mcp/internal/store"
	"modelprof-mcp/internal/timing"
)

// Result cache, keyed by model path
var resultCache = make(map[string]*profiler.Result)

func main() {
	logger := logrus.New()

	// Create MCP server
	s := server.NewMCPServer(
		"modelprof-profiler",
		"1.0.0",
		server.WithLogging(),
	)

	// Tool 1: Profile Model
	profileModelTool := mcp.NewTool("profile_model",
		mcp.WithDescription("Profile a model from a captured compute-plan document: timed compile/load/predict phases, flattened operation table, device usage counts."),
		mcp.WithString("model_path",
			mcp.Required(),
			mcp.Description("Path of the model artifact (.mlpackage or .mlmodelc)"),
		),
		mcp.WithString("plan_file",
			mcp.Required(),
			mcp.Description("Path to the captured compute-plan JSON document to replay"),
		),
		mcp.WithNumber("compute_units",
			mcp.Description("Device selector: 0=all, 1=cpu-only, 2=cpu+gpu, 3=cpu+ane (default: 0)"),
		),
		mcp.WithBoolean("full_profile",
			mcp.Description("Also run timed predictions and synthesize per-operation timing windows"),
		),
		mcp.WithString("diagnostics_dir",
			mcp.Description("Directory holding the engine's diagnostic logs (default: the conventional location)"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory to write compute_plan.json and compute_plan_operation_table.json into (default: none)"),
		),
		mcp.WithBoolean("save",
			mcp.Description("Persist the run to the history database"),
		),
	)

	s.AddTool(profileModelTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		modelPath, err := request.RequireString("model_path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		planFile, err := request.RequireString("plan_file")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		eng, err := engine.NewFileEngine(planFile)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load plan document: %v", err)), nil
		}

		units := engine.ComputeUnits(request.GetFloat("compute_units", 0))
		opts := profiler.Options{
			ModelPath:      modelPath,
			Units:          units,
			FullProfile:    request.GetBool("full_profile", false),
			DiagnosticsDir: request.GetString("diagnostics_dir", ""),
			OutputDir:      request.GetString("output_dir", ""),
		}

		result, err := profiler.NewRunner(eng, logger).Run(ctx, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Profiling run failed: %v", err)), nil
		}

		resultCache[modelPath] = result

		runID := ""
		if request.GetBool("save", false) {
			historyStore, err := store.NewSQLiteStore(store.DefaultDBPath())
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to open history database: %v", err)), nil
			}
			defer historyStore.Close()
			runID, err = historyStore.SaveRun(store.RunMeta{
				ModelPath:   modelPath,
				Units:       units.String(),
				FullProfile: opts.FullProfile,
			}, result)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to save run: %v", err)), nil
			}
		}

		var sb strings.Builder
		sb.WriteString("Profiling run complete!\n\n")
		sb.WriteString(fmt.Sprintf("Model: %s\n", modelPath))
		sb.WriteString(fmt.Sprintf("Compute units: %s\n", units))
		sb.WriteString(fmt.Sprintf("Operations: %d\n", result.Counts.TotalOperations))
		sb.WriteString(fmt.Sprintf("  CPU: %d  GPU: %d  ANE: %d\n",
			result.Counts.TotalCPU, result.Counts.TotalGPU, result.Counts.TotalANE))
		if result.Timings.Compile != nil {
			sb.WriteString(fmt.Sprintf("Compile median: %.3f ms\n", result.Timings.Compile.Median()))
		}
		if result.Timings.Load != nil {
			sb.WriteString(fmt.Sprintf("Load median: %.3f ms\n", result.Timings.Load.Median()))
		}
		if result.Timings.Predict != nil {
			sb.WriteString(fmt.Sprintf("Predict median: %.3f ms\n", result.Timings.Predict.Median()))
		}
		if runID != "" {
			sb.WriteString(fmt.Sprintf("Saved as run %s\n", runID))
		}
		sb.WriteString("\nUse other tools to inspect the operation table.\n")

		return mcp.NewToolResultText(sb.String()), nil
	})

	// Tool 2: Get Operation Table
	getTableTool := mcp.NewTool("get_operation_table",
		mcp.WithDescription("Return the flattened operation table of a profiled model as JSON, one object per operation."),
		mcp.WithString("model_path",
			mcp.Required(),
			mcp.Description("Path of a previously profiled model"),
		),
	)

	s.AddTool(getTableTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, errResult := cachedResult(request)
		if errResult != nil {
			return errResult, nil
		}
		data, err := result.Table.Serialize()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize table: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})

	// Tool 3: Find Hotspots
	findHotspotsTool := mcp.NewTool("find_hotspots",
		mcp.WithDescription("Find the operations with the largest cost share in the profiled model. This is the most important tool for identifying where the model spends its time."),
		mcp.WithString("model_path",
			mcp.Required(),
			mcp.Description("Path of a previously profiled model"),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of top operations to return (default: 10)"),
		),
	)

	s.AddTool(findHotspotsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, errResult := cachedResult(request)
		if errResult != nil {
			return errResult, nil
		}

		topN := 10
		if n := request.GetFloat("top_n", 10.0); n != 10.0 {
			topN = int(n)
		}

		hotspots := analyzer.FindHotspots(result.Table, topN)

		var sb strings.Builder
		sb.WriteString("TOP OPERATIONS BY COST SHARE\n")
		sb.WriteString("═══════════════════════════════════════════════════\n\n")

		if len(hotspots) == 0 {
			sb.WriteString("No operations found.\n")
		} else {
			for i, hs := range hotspots {
				sb.WriteString(analyzer.FormatHotspot(hs, i+1))
				sb.WriteString("\n")
			}
		}

		return mcp.NewToolResultText(sb.String()), nil
	})

	// Tool 4: Compute Unit Counts
	countsTool := mcp.NewTool("compute_unit_counts",
		mcp.WithDescription("Show how many operations prefer each execution device (CPU/GPU/ANE), plus the per-device cost share."),
		mcp.WithString("model_path",
			mcp.Required(),
			mcp.Description("Path of a previously profiled model"),
		),
	)

	s.AddTool(countsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, errResult := cachedResult(request)
		if errResult != nil {
			return errResult, nil
		}

		counts := result.Counts
		shares := analyzer.DeviceShares(result.Table)

		var sb strings.Builder
		sb.WriteString("COMPUTE UNIT USAGE\n")
		sb.WriteString("═══════════════════════════════════════════════════\n\n")
		sb.WriteString(fmt.Sprintf("Total operations: %d\n\n", counts.TotalOperations))
		sb.WriteString(fmt.Sprintf("  CPU: %d ops (cost share %.4f)\n", counts.TotalCPU, shares["CPU"]))
		sb.WriteString(fmt.Sprintf("  GPU: %d ops (cost share %.4f)\n", counts.TotalGPU, shares["GPU"]))
		sb.WriteString(fmt.Sprintf("  ANE: %d ops (cost share %.4f)\n", counts.TotalANE, shares["ANE"]))
		unknown := counts.TotalOperations - counts.TotalCPU - counts.TotalGPU - counts.TotalANE
		if unknown > 0 {
			sb.WriteString(fmt.Sprintf("  Unknown: %d ops\n", unknown))
		}

		return mcp.NewToolResultText(sb.String()), nil
	})

	// Tool 5: Get Timings
	timingsTool := mcp.NewTool("get_timings",
		mcp.WithDescription("Show the measured phase timings (compile, load, predict) of a profiled model: median and mean over the repetitions."),
		mcp.WithString("model_path",
			mcp.Required(),
			mcp.Description("Path of a previously profiled model"),
		),
	)

	s.AddTool(timingsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, errResult := cachedResult(request)
		if errResult != nil {
			return errResult, nil
		}

		var sb strings.Builder
		sb.WriteString("PHASE TIMINGS\n")
		sb.WriteString("═══════════════════════════════════════════════════\n\n")

		phases := []struct {
			name    string
			samples timing.SampleSet
		}{
			{"Compile", result.Timings.Compile},
			{"Load", result.Timings.Load},
			{"Predict", result.Timings.Predict},
		}
		for _, phase := range phases {
			if phase.samples == nil {
				sb.WriteString(fmt.Sprintf("%s: not run\n", phase.name))
				continue
			}
			sb.WriteString(fmt.Sprintf("%s: median %.3f ms, mean %.3f ms over %d runs\n",
				phase.name, phase.samples.Median(), phase.samples.Mean(), len(phase.samples)))
		}

		return mcp.NewToolResultText(sb.String()), nil
	})

	// Tool 6: Detect Issues
	detectIssuesTool := mcp.NewTool("detect_issues",
		mcp.WithDescription("Automatically detect potential performance issues in the profiled model using heuristics. A good starting point for analysis."),
		mcp.WithString("model_path",
			mcp.Required(),
			mcp.Description("Path of a previously profiled model"),
		),
	)

	s.AddTool(detectIssuesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, errResult := cachedResult(request)
		if errResult != nil {
			return errResult, nil
		}

		issues := analyzer.DetectIssues(result.Table)

		var sb strings.Builder
		sb.WriteString("AUTOMATED ISSUE DETECTION\n")
		sb.WriteString("═══════════════════════════════════════════════════\n\n")

		if len(issues) == 0 {
			sb.WriteString("No significant issues detected.\n")
		} else {
			for i, issue := range issues {
				sb.WriteString(fmt.Sprintf("%d. [%s/%s] %s\n", i+1, issue.Severity, issue.Category, issue.Description))
				if issue.OperatorID != "" {
					sb.WriteString(fmt.Sprintf("   Operation: %s\n", issue.OperatorID))
				}
				if issue.Impact > 0 {
					sb.WriteString(fmt.Sprintf("   Impact: %.2f%% of estimated cost\n", issue.Impact))
				}
				sb.WriteString("\n")
			}
		}

		return mcp.NewToolResultText(sb.String()), nil
	})

	// Tool 7: List Runs
	listRunsTool := mcp.NewTool("list_runs",
		mcp.WithDescription("List saved profiling runs from the history database."),
	)

	s.AddTool(listRunsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		historyStore, err := store.NewSQLiteStore(store.DefaultDBPath())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to open history database: %v", err)), nil
		}
		defer historyStore.Close()

		runs, err := historyStore.ListRuns()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list runs: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString("SAVED PROFILING RUNS\n")
		sb.WriteString("═══════════════════════════════════════════════════\n\n")

		if len(runs) == 0 {
			sb.WriteString("No saved runs.\n")
		} else {
			for _, run := range runs {
				sb.WriteString(fmt.Sprintf("%s  %s\n", run.ID, run.Created.Format("2006-01-02 15:04:05")))
				sb.WriteString(fmt.Sprintf("   Model: %s (%s)\n", run.Meta.ModelPath, run.Meta.Units))
				sb.WriteString(fmt.Sprintf("   Operations: %d (CPU %d, GPU %d, ANE %d)\n",
					run.Counts.TotalOperations, run.Counts.TotalCPU, run.Counts.TotalGPU, run.Counts.TotalANE))
				sb.WriteString("\n")
			}
		}

		return mcp.NewToolResultText(sb.String()), nil
	})

	// Start the server
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// cachedResult resolves the model_path argument against the result cache.
func cachedResult(request mcp.CallToolRequest) (*profiler.Result, *mcp.CallToolResult) {
	modelPath, err := request.RequireString("model_path")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	result, ok := resultCache[modelPath]
	if !ok {
		return nil, mcp.NewToolResultError("Model not profiled. Use profile_model tool first")
	}
	return result, nil
}
