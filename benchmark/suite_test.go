package benchmark

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/cifar-bench/inference/device"
)

func quickPolicy() Policy {
	return Policy{WarmupRuns: 1, MinRuns: 2, MaxRuns: 3, MaxRelativeError: 1}
}

func TestRunScenarioAccumulatesResults(t *testing.T) {
	suite := NewSuite(t.TempDir())

	scenario := NewScenarioBuilder("cpu_batch_1").
		WithDevice(device.CPU).
		WithBatchSize(1).
		WithPolicy(quickPolicy()).
		Build()

	result, err := suite.RunScenario(scenario, func() error {
		time.Sleep(time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, scenario, result.Scenario)
	assert.GreaterOrEqual(t, result.Sample.Runs, 2)
	assert.Greater(t, result.ImagesPerSecond, 0.0)
	assert.Len(t, suite.Results(), 1)
}

func TestRunScenarioPropagatesErrors(t *testing.T) {
	suite := NewSuite(t.TempDir())
	boom := errors.New("shape mismatch")

	scenario := NewScenarioBuilder("bad").WithPolicy(quickPolicy()).Build()
	_, err := suite.RunScenario(scenario, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, suite.Results())
}

func TestLargerBatchReportsLargerDuration(t *testing.T) {
	suite := NewSuite(t.TempDir())

	// Simulated inference whose cost scales with batch size.
	run := func(batch int) func() error {
		return func() error {
			time.Sleep(time.Duration(batch) * 20 * time.Microsecond)
			return nil
		}
	}

	single, err := suite.RunScenario(
		NewScenarioBuilder("cpu_batch_1").WithBatchSize(1).WithPolicy(quickPolicy()).Build(),
		run(1))
	require.NoError(t, err)

	full, err := suite.RunScenario(
		NewScenarioBuilder("cpu_batch_1000").WithBatchSize(1000).WithPolicy(quickPolicy()).Build(),
		run(1000))
	require.NoError(t, err)

	assert.Greater(t, full.Sample.Mean, single.Sample.Mean)
}

func TestMatrixCoversAllMeasurementCells(t *testing.T) {
	devices := []device.Device{device.CPU, device.GPU(0)}
	scenarios := Matrix(devices, []int{10000, 1}, DefaultPolicy)

	require.Len(t, scenarios, 4)
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.ElementsMatch(t, []string{
		"cpu_batch_10000", "cpu_batch_1",
		"gpu:0_batch_10000", "gpu:0_batch_1",
	}, names)
}

func TestScenarioBuilder(t *testing.T) {
	s := NewScenarioBuilder("gpu_full").
		WithDevice(device.GPU(1)).
		WithBatchSize(10000).
		WithPolicy(Policy{MinRuns: 4, MaxRuns: 8}).
		Build()

	assert.Equal(t, "gpu_full", s.Name)
	assert.Equal(t, device.GPU(1), s.Device)
	assert.Equal(t, 10000, s.BatchSize)
	assert.Equal(t, 4, s.Policy.MinRuns)
}

func TestSaveResultsWritesJSONAndCSV(t *testing.T) {
	dir := t.TempDir()
	suite := NewSuite(dir)

	scenario := NewScenarioBuilder("cpu_batch_1").WithPolicy(quickPolicy()).Build()
	_, err := suite.RunScenario(scenario, func() error { return nil })
	require.NoError(t, err)

	require.NoError(t, suite.SaveResults())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var jsonPath, csvPath string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".json":
			jsonPath = filepath.Join(dir, e.Name())
		case ".csv":
			csvPath = filepath.Join(dir, e.Name())
		}
	}
	require.NotEmpty(t, jsonPath)
	require.NotEmpty(t, csvPath)

	var decoded []Result
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "cpu_batch_1", decoded[0].Scenario.Name)

	csv, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Scenario,Device,Batch"))
	assert.True(t, strings.HasPrefix(lines[1], "cpu_batch_1,cpu,1,"))
}

func TestTableListsEveryResult(t *testing.T) {
	suite := NewSuite(t.TempDir())
	for _, name := range []string{"cpu_batch_1", "cpu_batch_10000"} {
		_, err := suite.RunScenario(
			NewScenarioBuilder(name).WithPolicy(quickPolicy()).Build(),
			func() error { return nil })
		require.NoError(t, err)
	}

	table := suite.Table()
	assert.Contains(t, table, "cpu_batch_1")
	assert.Contains(t, table, "cpu_batch_10000")
	assert.Contains(t, table, "Images/s")
}
