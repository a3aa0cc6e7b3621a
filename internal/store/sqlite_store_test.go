package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelprof-mcp/internal/optable"
	"modelprof-mcp/internal/plan"
	"modelprof-mcp/internal/profiler"
	"modelprof-mcp/internal/timing"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testResult() *profiler.Result {
	table := optable.New([]plan.OperationRecord{
		{OpNumber: 1, OperatorID: "a", OperatorName: "conv", Cost: 0.7, PreferredDevice: plan.DeviceANE},
		{OpNumber: 2, OperatorID: "b", OperatorName: "relu", Cost: 0.3, PreferredDevice: plan.DeviceCPU},
	})
	return &profiler.Result{
		Table: table,
		Counts: profiler.ComputeUnitCounts{
			TotalOperations: 2, TotalCPU: 1, TotalANE: 1,
		},
		Timings: profiler.PhaseTimings{
			Load:    timing.SampleSet{1, 2, 3},
			Predict: timing.SampleSet{4, 5},
		},
	}
}

func TestSaveAndListRuns(t *testing.T) {
	s := testStore(t)

	meta := RunMeta{ModelPath: "model.mlmodelc", Units: "all", FullProfile: true}
	id, err := s.SaveRun(meta, testResult())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, id, run.ID)
	assert.Equal(t, meta, run.Meta)
	assert.Equal(t, 2, run.Counts.TotalOperations)
	assert.Equal(t, 1, run.Counts.TotalANE)
	assert.Equal(t, 2.0, run.LoadMedianMs)
	assert.Equal(t, 5.0, run.PredictMedianMs)
	assert.Zero(t, run.CompileMedianMs, "phase that did not run stores zero")
}

func TestGetRunTableRoundTrip(t *testing.T) {
	s := testStore(t)
	result := testResult()
	id, err := s.SaveRun(RunMeta{ModelPath: "m.mlmodelc", Units: "cpu-only"}, result)
	require.NoError(t, err)

	table, err := s.GetRunTable(id)
	require.NoError(t, err)
	assert.Equal(t, result.Table.Columns(), table.Columns())
	assert.Equal(t, result.Table.Rows(), table.Rows())
}

func TestGetRunTableUnknownID(t *testing.T) {
	s := testStore(t)
	_, err := s.GetRunTable("no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRunsEmpty(t *testing.T) {
	s := testStore(t)
	runs, err := s.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}
