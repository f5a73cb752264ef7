// Package benchmark - Wall-clock timing of inference operations.
package benchmark

import (
	"fmt"
	"math"
	"time"
)

// Sample summarizes repeated wall-clock measurements of one operation.
type Sample struct {
	Runs   int           `json:"runs"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"std_dev"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Total  time.Duration `json:"total"`
}

// newSample computes summary statistics over raw run durations.
func newSample(durations []time.Duration) Sample {
	s := Sample{Runs: len(durations)}
	if s.Runs == 0 {
		return s
	}

	s.Min, s.Max = durations[0], durations[0]
	for _, d := range durations {
		s.Total += d
		if d < s.Min {
			s.Min = d
		}
		if d > s.Max {
			s.Max = d
		}
	}
	s.Mean = s.Total / time.Duration(s.Runs)

	var sq float64
	mean := float64(s.Mean)
	for _, d := range durations {
		diff := float64(d) - mean
		sq += diff * diff
	}
	s.StdDev = time.Duration(math.Sqrt(sq / float64(s.Runs)))

	return s
}

// RelativeStandardError returns the standard error of the mean divided by
// the mean. This is the stability criterion the repeat policy converges on.
func (s Sample) RelativeStandardError() float64 {
	if s.Runs == 0 || s.Mean <= 0 {
		return math.Inf(1)
	}
	sem := float64(s.StdDev) / math.Sqrt(float64(s.Runs))
	return sem / float64(s.Mean)
}

// String renders the sample as "mean ± stddev per run (n runs)".
func (s Sample) String() string {
	return fmt.Sprintf("%v ± %v per run (%d runs)", s.Mean, s.StdDev, s.Runs)
}
