package benchmark

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Table renders the accumulated results as a fixed-width comparison table
// for the operator.
func (s *Suite) Table() string {
	results := s.Results()

	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-8s %10s %6s %14s %14s %12s\n",
		"Scenario", "Device", "Batch", "Runs", "Mean", "StdDev", "Images/s")
	for _, r := range results {
		fmt.Fprintf(&b, "%-20s %-8s %10d %6d %14v %14v %12.1f\n",
			r.Scenario.Name,
			r.Scenario.Device,
			r.Scenario.BatchSize,
			r.Sample.Runs,
			r.Sample.Mean.Round(time.Microsecond),
			r.Sample.StdDev.Round(time.Microsecond),
			r.ImagesPerSecond)
	}
	return b.String()
}

// SaveResults exports the accumulated results as timestamped JSON and
// summary CSV files in the suite's output directory.
func (s *Suite) SaveResults() error {
	results := s.Results()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")

	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return errors.Wrap(err, "writing results file")
	}

	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := writeSummaryCSV(summaryFile, results); err != nil {
		return errors.Wrap(err, "writing summary CSV")
	}

	log.Printf("Results saved to: %s", resultsFile)
	log.Printf("Summary saved to: %s", summaryFile)
	return nil
}

func writeSummaryCSV(filename string, results []Result) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	header := "Scenario,Device,Batch,Runs,Mean_ms,StdDev_ms,Min_ms,Max_ms,Images_per_s,Alloc_MB\n"
	if _, err := f.WriteString(header); err != nil {
		return err
	}

	for _, r := range results {
		line := fmt.Sprintf("%s,%s,%d,%d,%.3f,%.3f,%.3f,%.3f,%.2f,%.2f\n",
			r.Scenario.Name,
			r.Scenario.Device,
			r.Scenario.BatchSize,
			r.Sample.Runs,
			ms(r.Sample.Mean),
			ms(r.Sample.StdDev),
			ms(r.Sample.Min),
			ms(r.Sample.Max),
			r.ImagesPerSecond,
			float64(r.MemoryStats.AllocBytes)/(1024*1024),
		)
		if _, err := f.WriteString(line); err != nil {
			return err
		}
	}
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
