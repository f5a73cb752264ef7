package benchmark

import (
	"time"

	"github.com/pkg/errors"
)

// Policy controls the repeat-until-stable measurement loop: warm up, then
// keep timing runs until the relative standard error of the mean drops below
// the threshold or the run cap is reached.
type Policy struct {
	WarmupRuns       int     `json:"warmup_runs"`
	MinRuns          int     `json:"min_runs"`
	MaxRuns          int     `json:"max_runs"`
	MaxRelativeError float64 `json:"max_relative_error"`
}

// DefaultPolicy is a reasonable default for second-scale inference cells.
var DefaultPolicy = Policy{
	WarmupRuns:       1,
	MinRuns:          5,
	MaxRuns:          30,
	MaxRelativeError: 0.05,
}

// normalized clamps a policy into a usable configuration.
func (p Policy) normalized() Policy {
	if p.MinRuns < 2 {
		p.MinRuns = 2
	}
	if p.MaxRuns < p.MinRuns {
		p.MaxRuns = p.MinRuns
	}
	if p.WarmupRuns < 0 {
		p.WarmupRuns = 0
	}
	return p
}

// Measure times repeated invocations of op under the policy. Timing only:
// the operation's return value is never inspected beyond its error, and an
// error anywhere (warmup included) aborts the measurement, consistent with
// the workflow's no-retry policy.
func Measure(op func() error, policy Policy) (Sample, error) {
	p := policy.normalized()

	for i := 0; i < p.WarmupRuns; i++ {
		if err := op(); err != nil {
			return Sample{}, errors.Wrap(err, "warmup run")
		}
	}

	durations := make([]time.Duration, 0, p.MinRuns)
	for len(durations) < p.MaxRuns {
		start := time.Now()
		if err := op(); err != nil {
			return Sample{}, errors.Wrapf(err, "measured run %d", len(durations)+1)
		}
		durations = append(durations, time.Since(start))

		if len(durations) >= p.MinRuns {
			if newSample(durations).RelativeStandardError() <= p.MaxRelativeError {
				break
			}
		}
	}

	return newSample(durations), nil
}
