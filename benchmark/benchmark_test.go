package benchmark

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureRunsWarmupBeforeTimedRuns(t *testing.T) {
	calls := 0
	sample, err := Measure(func() error {
		calls++
		return nil
	}, Policy{WarmupRuns: 3, MinRuns: 4, MaxRuns: 4})
	require.NoError(t, err)

	assert.Equal(t, 4, sample.Runs)
	assert.Equal(t, 3+4, calls)
}

func TestMeasureStopsAtRunCap(t *testing.T) {
	// An unsatisfiable threshold: the cap must terminate the loop.
	sample, err := Measure(func() error { return nil },
		Policy{MinRuns: 3, MaxRuns: 10, MaxRelativeError: -1})
	require.NoError(t, err)
	assert.Equal(t, 10, sample.Runs)
}

func TestMeasureNeverStopsBelowMinRuns(t *testing.T) {
	sample, err := Measure(func() error { return nil },
		Policy{MinRuns: 6, MaxRuns: 50, MaxRelativeError: 100})
	require.NoError(t, err)
	assert.Equal(t, 6, sample.Runs)
}

func TestMeasurePropagatesOperationErrors(t *testing.T) {
	boom := errors.New("device fault")

	_, err := Measure(func() error { return boom }, DefaultPolicy)
	assert.ErrorIs(t, err, boom)

	calls := 0
	_, err = Measure(func() error {
		calls++
		if calls > 2 {
			return boom
		}
		return nil
	}, Policy{WarmupRuns: 2, MinRuns: 3, MaxRuns: 5})
	assert.ErrorIs(t, err, boom)
}

func TestMeasureLargerWorkTakesLonger(t *testing.T) {
	small, err := Measure(func() error {
		time.Sleep(time.Millisecond)
		return nil
	}, Policy{MinRuns: 3, MaxRuns: 3})
	require.NoError(t, err)

	large, err := Measure(func() error {
		time.Sleep(20 * time.Millisecond)
		return nil
	}, Policy{MinRuns: 3, MaxRuns: 3})
	require.NoError(t, err)

	assert.Greater(t, large.Mean, small.Mean)
	assert.Greater(t, large.Total, small.Total)
}

func TestPolicyNormalization(t *testing.T) {
	p := Policy{MinRuns: 0, MaxRuns: 0, WarmupRuns: -1}.normalized()
	assert.Equal(t, 2, p.MinRuns)
	assert.Equal(t, 2, p.MaxRuns)
	assert.Equal(t, 0, p.WarmupRuns)
}
