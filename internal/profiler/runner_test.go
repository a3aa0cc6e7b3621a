package profiler

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelprof-mcp/internal/diagnostics"
	"modelprof-mcp/internal/engine"
	"modelprof-mcp/internal/optable"
	"modelprof-mcp/internal/plan"
)

type fakeModel struct {
	shapes       map[string][]int
	predictErr   error
	predictCalls *int
}

func (m *fakeModel) Predict(ctx context.Context, input engine.Features) (engine.Features, error) {
	if m.predictCalls != nil {
		*m.predictCalls++
	}
	if m.predictErr != nil {
		return nil, m.predictErr
	}
	return engine.Features{}, nil
}

func (m *fakeModel) InputShapes() map[string][]int { return m.shapes }

type fakeEngine struct {
	compileCalls int
	loadCalls    int
	predictCalls int

	compileErr error
	loadErr    error
	predictErr error
	planErr    error
	plan       *engine.ComputePlan
}

func (e *fakeEngine) Compile(ctx context.Context, sourcePath string) (string, error) {
	e.compileCalls++
	if e.compileErr != nil {
		return "", e.compileErr
	}
	return sourcePath + "c", nil
}

func (e *fakeEngine) Load(ctx context.Context, compiledPath string, units engine.ComputeUnits) (engine.Model, error) {
	e.loadCalls++
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	return &fakeModel{
		shapes:       map[string][]int{"input": {1, 4}},
		predictErr:   e.predictErr,
		predictCalls: &e.predictCalls,
	}, nil
}

func (e *fakeEngine) GetComputePlan(ctx context.Context, compiledPath string, units engine.ComputeUnits) (*engine.ComputePlan, error) {
	if e.planErr != nil {
		return nil, e.planErr
	}
	return e.plan, nil
}

func cpuPlan(devices ...plan.Device) *engine.ComputePlan {
	ops := make([]plan.Operation, len(devices))
	for i := range devices {
		ops[i] = plan.Operation{Type: "conv", Outputs: []string{string(rune('a' + i))}}
	}
	program := &plan.Program{Functions: []plan.Function{{Name: "main", Block: plan.Block{Operations: ops}}}}
	return &engine.ComputePlan{
		Program: program,
		Cost: func(*plan.Operation) (float64, bool) {
			return 1.0 / float64(len(devices)), true
		},
		Devices: func(op *plan.Operation) (plan.DeviceUsage, bool) {
			d := devices[int(op.Outputs[0][0]-'a')]
			return plan.DeviceUsage{Preferred: d, Supported: []plan.Device{plan.DeviceCPU, d}}, true
		},
	}
}

func testRunner(e engine.Engine) *Runner {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewRunner(e, log)
}

func TestRunPrecompiledSkipsCompile(t *testing.T) {
	// Scenario: cpu-only selector against a precompiled artifact.
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU, plan.DeviceCPU)}
	result, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:      "model.mlmodelc",
		Units:          engine.UnitsCPUOnly,
		Repetitions:    3,
		DiagnosticsDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.Zero(t, eng.compileCalls)
	assert.Nil(t, result.Timings.Compile)
	assert.Equal(t, 3, eng.loadCalls)
	assert.Len(t, result.Timings.Load, 3)
	for _, row := range result.Table.Rows() {
		assert.Contains(t, []string{"CPU", ""}, row.PreferredDevice)
	}
}

func TestRunSourceArtifactCompiles(t *testing.T) {
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceANE)}
	result, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:      "model.mlpackage",
		Units:          engine.UnitsAll,
		Repetitions:    2,
		DiagnosticsDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, eng.compileCalls)
	assert.Len(t, result.Timings.Compile, 2)
}

func TestRunInvalidSelector(t *testing.T) {
	// Scenario: selector out of range fails before any phase executes.
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU)}
	_, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath: "model.mlmodelc",
		Units:     engine.ComputeUnits(5),
	})
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Zero(t, eng.compileCalls)
	assert.Zero(t, eng.loadCalls)
}

func TestRunNegativeRepetitions(t *testing.T) {
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU)}
	_, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:   "model.mlmodelc",
		Units:       engine.UnitsAll,
		Repetitions: -3,
	})
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Zero(t, eng.loadCalls, "rejected before any phase executes")
}

func TestRunUnrecognizedSuffix(t *testing.T) {
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU)}
	_, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath: "model.onnx",
		Units:     engine.UnitsAll,
	})
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestRunWithoutFullProfileOmitsTimeline(t *testing.T) {
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU, plan.DeviceGPU)}
	result, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:      "model.mlmodelc",
		Units:          engine.UnitsAll,
		Repetitions:    1,
		DiagnosticsDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Zero(t, eng.predictCalls)
	assert.Equal(t, optable.MinimalSchema, result.Table.Columns())
}

func TestRunFullProfileAllocatesTimeline(t *testing.T) {
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU, plan.DeviceANE)}
	result, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:      "model.mlmodelc",
		Units:          engine.UnitsAll,
		FullProfile:    true,
		Repetitions:    4,
		DiagnosticsDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, eng.predictCalls)
	assert.Len(t, result.Timings.Predict, 4)
	assert.Equal(t, optable.FullSchema, result.Table.Columns())

	rows := result.Table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0].EndTime, rows[1].StartTime, "windows are contiguous")
}

func TestRunFullProfileInputGenerationFailureIsNotFatal(t *testing.T) {
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU)}
	result, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:      "model.mlmodelc",
		Units:          engine.UnitsAll,
		FullProfile:    true,
		Repetitions:    2,
		DiagnosticsDir: t.TempDir(),
		InputGen:       failingGen{},
	})
	require.NoError(t, err)
	assert.Zero(t, eng.predictCalls)
	assert.Nil(t, result.Timings.Predict)

	// Timeline still present, collapsed to zero-width windows.
	for _, row := range result.Table.Rows() {
		assert.Zero(t, row.OpTime)
	}
}

type failingGen struct{}

func (failingGen) Generate(engine.Model) (engine.Features, error) {
	return nil, errors.New("unbounded input shape")
}

func TestRunEngineFailureReturnsNoPartialResult(t *testing.T) {
	eng := &fakeEngine{loadErr: errors.New("bad weights"), plan: cpuPlan(plan.DeviceCPU)}
	result, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath: "model.mlmodelc",
		Units:     engine.UnitsAll,
	})
	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "load", engErr.Phase)
	assert.Nil(t, result)
}

func TestRunPlanUnavailableYieldsZeroResult(t *testing.T) {
	eng := &fakeEngine{plan: nil}
	result, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:      "model.mlmodelc",
		Units:          engine.UnitsAll,
		Repetitions:    1,
		DiagnosticsDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Zero(t, result.Table.RowCount())
	assert.Zero(t, result.Counts.TotalOperations)
	assert.Nil(t, result.Plan)
}

func TestRunCountsPartitionRows(t *testing.T) {
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU, plan.DeviceGPU, plan.DeviceANE, plan.DeviceANE, plan.DeviceUnknown)}
	result, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:      "model.mlmodelc",
		Units:          engine.UnitsAll,
		Repetitions:    1,
		DiagnosticsDir: t.TempDir(),
	})
	require.NoError(t, err)
	counts := result.Counts
	assert.Equal(t, 5, counts.TotalOperations)
	assert.Equal(t, 1, counts.TotalCPU)
	assert.Equal(t, 1, counts.TotalGPU)
	assert.Equal(t, 2, counts.TotalANE)
	unknown := counts.TotalOperations - counts.TotalCPU - counts.TotalGPU - counts.TotalANE
	assert.Equal(t, 1, unknown)
}

func TestRunMissingDiagnosticsIsNotFatal(t *testing.T) {
	// Scenario: diagnostics dir empty, run still succeeds and the column is
	// simply absent.
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU)}
	result, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:      "model.mlmodelc",
		Units:          engine.UnitsAll,
		Repetitions:    1,
		DiagnosticsDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.NotContains(t, result.Table.Columns(), optable.ColValidationMessage)
	assert.Equal(t, 1, result.Counts.TotalOperations)
}

func TestRunJoinsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	log := "op = header;\nop = conv validation_messages { ane -> \"scheduled on ane\" };"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run"+diagnostics.LogSuffix), []byte(log), 0o644))

	eng := &fakeEngine{plan: cpuPlan(plan.DeviceANE)}
	result, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:      "model.mlmodelc",
		Units:          engine.UnitsAll,
		Repetitions:    1,
		DiagnosticsDir: dir,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Table.RowCount())
	assert.Equal(t, "scheduled on ane", result.Table.Rows()[0].ValidationMessage)
}

func TestRunWritesArtifacts(t *testing.T) {
	out := t.TempDir()
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU, plan.DeviceANE)}
	_, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath:      "model.mlmodelc",
		Units:          engine.UnitsAll,
		Repetitions:    1,
		OutputDir:      out,
		DiagnosticsDir: t.TempDir(),
	})
	require.NoError(t, err)

	dump, err := os.ReadFile(filepath.Join(out, PlanDumpFile))
	require.NoError(t, err)
	assert.Contains(t, string(dump), `"functions"`)

	data, err := os.ReadFile(filepath.Join(out, PlanTableFile))
	require.NoError(t, err)
	parsed, err := optable.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 2, parsed.RowCount())
}

func TestRunInvalidInputWritesNoFiles(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	eng := &fakeEngine{plan: cpuPlan(plan.DeviceCPU)}
	_, err := testRunner(eng).Run(context.Background(), Options{
		ModelPath: "model.onnx",
		Units:     engine.ComputeUnits(9),
		OutputDir: out,
	})
	require.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}
