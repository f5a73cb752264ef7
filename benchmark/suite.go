package benchmark

import (
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Suite runs measurement cells and accumulates their results for reporting.
// Results live only for the process lifetime unless exported.
type Suite struct {
	outputDir string
	mu        sync.RWMutex
	results   []Result
}

// NewSuite creates a suite that exports into outputDir.
func NewSuite(outputDir string) *Suite {
	return &Suite{
		outputDir: outputDir,
		results:   make([]Result, 0),
	}
}

// RunScenario measures one cell. The op must perform a single inference over
// the scenario's batch; the suite owns warmup, repetition and memory
// accounting.
func (s *Suite) RunScenario(scenario Scenario, op func() error) (*Result, error) {
	startMem := captureMemStats()

	sample, err := Measure(op, scenario.Policy)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}

	endMem := captureMemStats()

	result := Result{
		Scenario:    scenario,
		Timestamp:   time.Now(),
		Sample:      sample,
		MemoryStats: memoryDelta(startMem, endMem),
	}
	if sample.Mean > 0 {
		result.ImagesPerSecond = float64(scenario.BatchSize) / sample.Mean.Seconds()
	}

	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()

	log.Printf("Scenario %s: %s (%.1f images/s)", scenario.Name, sample, result.ImagesPerSecond)
	return &result, nil
}

// Results returns a copy of all accumulated results.
func (s *Suite) Results() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, len(s.results))
	copy(results, s.results)
	return results
}
