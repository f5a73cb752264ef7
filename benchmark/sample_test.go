package benchmark

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSampleStatistics(t *testing.T) {
	durations := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
	}
	s := newSample(durations)

	assert.Equal(t, 3, s.Runs)
	assert.Equal(t, 20*time.Millisecond, s.Mean)
	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 30*time.Millisecond, s.Max)
	assert.Equal(t, 60*time.Millisecond, s.Total)

	// Population stddev of {10, 20, 30}ms is sqrt(200/3)ms.
	want := time.Duration(math.Sqrt(200.0/3.0) * float64(time.Millisecond))
	assert.InDelta(t, float64(want), float64(s.StdDev), float64(time.Microsecond))
}

func TestNewSampleConstantDurations(t *testing.T) {
	s := newSample([]time.Duration{time.Second, time.Second, time.Second, time.Second})
	assert.Equal(t, time.Second, s.Mean)
	assert.Equal(t, time.Duration(0), s.StdDev)
	assert.Equal(t, 0.0, s.RelativeStandardError())
}

func TestNewSampleEmpty(t *testing.T) {
	s := newSample(nil)
	assert.Equal(t, 0, s.Runs)
	assert.True(t, math.IsInf(s.RelativeStandardError(), 1))
}

func TestRelativeStandardErrorShrinksWithMoreRuns(t *testing.T) {
	few := newSample([]time.Duration{
		9 * time.Millisecond, 11 * time.Millisecond,
	})
	many := newSample([]time.Duration{
		9 * time.Millisecond, 11 * time.Millisecond,
		9 * time.Millisecond, 11 * time.Millisecond,
		9 * time.Millisecond, 11 * time.Millisecond,
		9 * time.Millisecond, 11 * time.Millisecond,
	})
	assert.Less(t, many.RelativeStandardError(), few.RelativeStandardError())
}

func TestSampleString(t *testing.T) {
	s := newSample([]time.Duration{time.Millisecond, time.Millisecond})
	assert.Contains(t, s.String(), "2 runs")
	assert.Contains(t, s.String(), "±")
}
