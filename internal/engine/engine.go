// Package engine defines the model-execution engine the profiler drives.
// The real engine is an external collaborator; this package holds its
// interfaces plus a file-backed implementation that replays captured
// compute-plan documents.
package engine

import (
	"context"
	"fmt"
	"strings"

	"modelprof-mcp/internal/plan"
)

// ComputeUnits selects which devices the engine may schedule onto.
type ComputeUnits int

const (
	UnitsAll ComputeUnits = iota
	UnitsCPUOnly
	UnitsCPUAndGPU
	UnitsCPUAndANE
)

// Valid reports whether the selector is one of the four known values.
func (u ComputeUnits) Valid() bool {
	return u >= UnitsAll && u <= UnitsCPUAndANE
}

func (u ComputeUnits) String() string {
	switch u {
	case UnitsAll:
		return "all"
	case UnitsCPUOnly:
		return "cpu-only"
	case UnitsCPUAndGPU:
		return "cpu-and-gpu"
	case UnitsCPUAndANE:
		return "cpu-and-ane"
	default:
		return fmt.Sprintf("invalid(%d)", int(u))
	}
}

// Recognized input artifact suffixes.
const (
	SourceSuffix   = ".mlpackage" // uncompiled source form, needs Compile
	CompiledSuffix = ".mlmodelc"  // precompiled form, Compile is skipped
)

// RecognizedArtifact reports whether path carries one of the two accepted
// suffixes.
func RecognizedArtifact(path string) bool {
	return strings.HasSuffix(path, SourceSuffix) || strings.HasSuffix(path, CompiledSuffix)
}

// Features is a prediction input or output: named tensors reduced to flat
// value slices. The profiler never inspects the values, it only needs
// something to feed Predict.
type Features map[string][]float64

// Model is a loaded, executable model.
type Model interface {
	// Predict runs one inference.
	Predict(ctx context.Context, input Features) (Features, error)

	// InputShapes declares the model's input names and dimensions, for
	// synthetic input generation.
	InputShapes() map[string][]int
}

// ComputePlan is the engine's cost/device analysis for a compiled model.
type ComputePlan struct {
	Program *plan.Program
	Cost    plan.CostOracle
	Devices plan.DeviceOracle
}

// Engine is the black-box model engine.
type Engine interface {
	// Compile translates an uncompiled source artifact into its compiled
	// form, returning the compiled artifact's path.
	Compile(ctx context.Context, sourcePath string) (string, error)

	// Load loads a compiled artifact for the given device selection.
	Load(ctx context.Context, compiledPath string, units ComputeUnits) (Model, error)

	// GetComputePlan returns the plan analysis, or (nil, nil) when the
	// engine cannot produce one. A nil plan is not an error: profiling
	// degrades to a zero-valued result.
	GetComputePlan(ctx context.Context, compiledPath string, units ComputeUnits) (*ComputePlan, error)
}

// InputGenerator synthesizes a prediction input from a model's declared
// shapes. Returning an error is non-fatal to a profiling run: the predict
// phase is skipped.
type InputGenerator interface {
	Generate(model Model) (Features, error)
}

// ZeroInputs generates all-zero inputs matching the model's declared
// shapes.
type ZeroInputs struct{}

// Generate implements InputGenerator.
func (ZeroInputs) Generate(model Model) (Features, error) {
	shapes := model.InputShapes()
	if len(shapes) == 0 {
		return nil, fmt.Errorf("model declares no inputs")
	}
	features := make(Features, len(shapes))
	for name, dims := range shapes {
		n := 1
		for _, d := range dims {
			if d <= 0 {
				return nil, fmt.Errorf("input %q has unbounded dimension %d", name, d)
			}
			n *= d
		}
		features[name] = make([]float64, n)
	}
	return features, nil
}
