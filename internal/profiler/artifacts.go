package profiler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"modelprof-mcp/internal/optable"
	"modelprof-mcp/internal/plan"
)

// Artifact filenames written to the output directory.
const (
	PlanDumpFile  = "compute_plan.json"
	PlanTableFile = "compute_plan_operation_table.json"
)

// writeArtifacts persists the full nested plan dump and the flattened
// operation table as pretty-printed UTF-8 JSON.
func writeArtifacts(dir string, program *plan.Program, table *optable.Table) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	dumpPath := filepath.Join(dir, PlanDumpFile)
	dumpFile, err := os.Create(dumpPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", PlanDumpFile, err)
	}
	defer dumpFile.Close()
	encoder := json.NewEncoder(dumpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(program); err != nil {
		return fmt.Errorf("failed to write %s: %w", PlanDumpFile, err)
	}

	data, err := table.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize operation table: %w", err)
	}
	tablePath := filepath.Join(dir, PlanTableFile)
	if err := os.WriteFile(tablePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", PlanTableFile, err)
	}
	return nil
}
