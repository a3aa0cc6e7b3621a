// Package profiler orchestrates a profiling run: timed compile/load/predict
// phases, plan flattening, timeline allocation, table construction and the
// diagnostics join.
package profiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"modelprof-mcp/internal/diagnostics"
	"modelprof-mcp/internal/engine"
	"modelprof-mcp/internal/optable"
	"modelprof-mcp/internal/plan"
	"modelprof-mcp/internal/timing"
)

// Options configure a single profiling run.
type Options struct {
	// ModelPath is the input artifact, either source (.mlpackage) or
	// precompiled (.mlmodelc).
	ModelPath string

	// Units is the device selector.
	Units engine.ComputeUnits

	// FullProfile additionally runs timed predictions and synthesizes
	// per-operation timing windows from the measured aggregate.
	FullProfile bool

	// Repetitions per timed phase; defaults to timing.DefaultRepetitions.
	Repetitions int

	// OutputDir receives compute_plan.json and
	// compute_plan_operation_table.json. Empty disables artifact writing.
	OutputDir string

	// DiagnosticsDir holds the engine's diagnostic logs; defaults to
	// diagnostics.DefaultDir().
	DiagnosticsDir string

	// InputGen synthesizes the prediction input; defaults to
	// engine.ZeroInputs.
	InputGen engine.InputGenerator
}

// ComputeUnitCounts aggregates preferred-device usage over the table.
type ComputeUnitCounts struct {
	TotalOperations int `json:"total_operations"`
	TotalCPU        int `json:"total_cpu"`
	TotalGPU        int `json:"total_gpu"`
	TotalANE        int `json:"total_ane"`
}

// PhaseTimings holds the sample sets of the timed phases. A nil set means
// the phase did not run.
type PhaseTimings struct {
	Compile timing.SampleSet
	Load    timing.SampleSet
	Predict timing.SampleSet
}

// Result is the outcome of a successful run.
type Result struct {
	Table   *optable.Table
	Counts  ComputeUnitCounts
	Timings PhaseTimings

	// Plan is the nested program structure, nil when the engine could not
	// produce one.
	Plan *plan.Program
}

// Runner drives profiling runs against one engine. Run is not safe for
// concurrent use: phases share artifacts and measurements would contend, so
// callers serialize runs instead.
type Runner struct {
	engine engine.Engine
	log    logrus.FieldLogger
}

// NewRunner returns a runner logging to the given sink.
func NewRunner(eng engine.Engine, log logrus.FieldLogger) *Runner {
	return &Runner{engine: eng, log: log}
}

func (o *Options) validate() error {
	var errs *multierror.Error
	if !o.Units.Valid() {
		errs = multierror.Append(errs, fmt.Errorf("unknown device selector %d (want 0..3)", int(o.Units)))
	}
	if !engine.RecognizedArtifact(o.ModelPath) {
		errs = multierror.Append(errs, fmt.Errorf("unrecognized model artifact %q (want %s or %s)",
			o.ModelPath, engine.SourceSuffix, engine.CompiledSuffix))
	}
	if o.Repetitions < 0 {
		errs = multierror.Append(errs, fmt.Errorf("repetitions must not be negative, got %d", o.Repetitions))
	}
	return errs.ErrorOrNil()
}

// Run executes the full pipeline and returns the final table plus device
// counts. On fatal failure no partial result is returned.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, &InvalidInputError{Err: err}
	}
	reps := opts.Repetitions
	if reps == 0 {
		reps = timing.DefaultRepetitions
	}

	result := &Result{}

	// Compile phase, skipped for precompiled artifacts.
	compiledPath := opts.ModelPath
	if strings.HasSuffix(opts.ModelPath, engine.SourceSuffix) {
		r.log.WithField("model", opts.ModelPath).Info("compiling model")
		path, samples, err := timing.Sample(reps, func() (string, error) {
			return r.engine.Compile(ctx, opts.ModelPath)
		})
		if err != nil {
			r.log.Error(err.Error())
			return nil, &EngineError{Phase: "compile", Err: err}
		}
		compiledPath = path
		result.Timings.Compile = samples
		r.log.WithField("median_ms", samples.Median()).Info("compile timed")
	} else {
		r.log.Info("model already compiled, skipping compile phase")
	}

	// Load phase, always timed.
	model, samples, err := timing.Sample(reps, func() (engine.Model, error) {
		return r.engine.Load(ctx, compiledPath, opts.Units)
	})
	if err != nil {
		r.log.Error(err.Error())
		return nil, &EngineError{Phase: "load", Err: err}
	}
	result.Timings.Load = samples
	r.log.WithField("median_ms", samples.Median()).Info("load timed")

	// Predict phase, full-profile mode only. The median of the samples
	// becomes the aggregate duration distributed over the timeline.
	aggregateMs := 0.0
	if opts.FullProfile {
		gen := opts.InputGen
		if gen == nil {
			gen = engine.ZeroInputs{}
		}
		input, err := gen.Generate(model)
		if err != nil {
			// Not fatal: the timeline degrades to zero-width windows.
			r.log.WithError(err).Warn("synthetic input generation failed, skipping predict phase")
		} else {
			_, samples, err := timing.Sample(reps, func() (engine.Features, error) {
				return model.Predict(ctx, input)
			})
			if err != nil {
				r.log.Error(err.Error())
				return nil, &EngineError{Phase: "predict", Err: err}
			}
			result.Timings.Predict = samples
			aggregateMs = samples.Median()
			r.log.WithField("median_ms", aggregateMs).Info("predict timed")
		}
	}

	// Plan loading. Failure here is not fatal: the run completes with a
	// zero-valued table and counts.
	computePlan, err := r.engine.GetComputePlan(ctx, compiledPath, opts.Units)
	if err != nil || computePlan == nil {
		if err != nil {
			r.log.WithError(err).Warn("compute plan unavailable")
		} else {
			r.log.Warn("engine produced no compute plan")
		}
		result.Table = optable.New(nil)
		return result, nil
	}
	result.Plan = computePlan.Program

	records := plan.Flatten(computePlan.Program, computePlan.Cost, computePlan.Devices)
	if opts.FullProfile {
		plan.AllocateTimeline(records, aggregateMs)
	}
	result.Table = optable.New(records)

	r.joinDiagnostics(result.Table, opts)
	result.Counts = countUnits(result.Table)

	if opts.OutputDir != "" {
		if err := writeArtifacts(opts.OutputDir, computePlan.Program, result.Table); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// joinDiagnostics attaches per-operation validation messages from the most
// recent diagnostic log. Any failure here is non-fatal: the column is left
// out.
func (r *Runner) joinDiagnostics(table *optable.Table, opts Options) {
	dir := opts.DiagnosticsDir
	if dir == "" {
		dir = diagnostics.DefaultDir()
	}
	path, err := diagnostics.FindLatest(dir)
	if err != nil {
		r.log.WithError(err).Debug("skipping diagnostics join")
		return
	}
	text, err := diagnostics.ReadText(path)
	if err != nil {
		r.log.WithError(err).Warn("skipping diagnostics join")
		return
	}
	records := diagnostics.Parse(text)
	if len(records) == 0 {
		r.log.WithField("log", path).Debug("diagnostic log has no operation records")
		return
	}
	diagnostics.Join(table, records)
	r.log.WithField("log", path).Info("joined diagnostics")
}

func countUnits(table *optable.Table) ComputeUnitCounts {
	eq := func(want string) func(string) bool {
		return func(v string) bool { return v == want }
	}
	return ComputeUnitCounts{
		TotalOperations: table.RowCount(),
		TotalCPU:        table.CountWhere(optable.ColPreferredDevice, eq(string(plan.DeviceCPU))),
		TotalGPU:        table.CountWhere(optable.ColPreferredDevice, eq(string(plan.DeviceGPU))),
		TotalANE:        table.CountWhere(optable.ColPreferredDevice, eq(string(plan.DeviceANE))),
	}
}
