package main

import (
	"flag"
	"fmt"
	"log"

	"gorgonia.org/tensor"

	"github.com/nvr-ai/cifar-bench/benchmark"
	"github.com/nvr-ai/cifar-bench/config"
	"github.com/nvr-ai/cifar-bench/dataset"
	"github.com/nvr-ai/cifar-bench/inference"
	"github.com/nvr-ai/cifar-bench/inference/device"
)

// probeBatchSize is the number of test images used for the cross-device
// agreement check. Kept small so both probability matrices fit comfortably
// next to the full test set.
const probeBatchSize = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment.
	var (
		dataDir     = flag.String("data", cfg.DataDir, "Dataset cache directory")
		modelPath   = flag.String("model", cfg.ModelPath, "Serialized model artifact")
		deviceList  = flag.String("devices", cfg.Devices, "Comma-separated devices to benchmark (cpu, gpu, gpu:N)")
		outputDir   = flag.String("output", cfg.OutputDir, "Directory for exported JSON/CSV results")
		ortLib      = flag.String("ort-lib", cfg.OnnxRuntimeLib, "Path to the ONNX Runtime shared library (auto-detected when empty)")
		gpuMemLimit = flag.Int64("gpu-mem-limit", cfg.GPUMemLimitMB, "CUDA arena cap in MB (0 = uncapped)")
		previewPath = flag.String("preview", cfg.PreviewPath, "Write a sample-grid PNG of the test set to this path")
		tolerance   = flag.Float64("tolerance", 1e-3, "Maximum per-class probability delta allowed between devices")
	)
	flag.Parse()

	cfg.DataDir = *dataDir
	cfg.ModelPath = *modelPath
	cfg.Devices = *deviceList
	cfg.OutputDir = *outputDir

	devices, err := cfg.DeviceList()
	if err != nil {
		log.Fatalf("Invalid device list %q: %v", cfg.Devices, err)
	}

	// Runtime bootstrap. The arena policy must be set before the first GPU
	// session is created.
	lib := *ortLib
	if lib == "" {
		lib = inference.SharedLibPath()
	}
	if err := inference.InitializeRuntime(lib); err != nil {
		log.Fatalf("Failed to initialize ONNX Runtime from %s: %v", lib, err)
	}
	device.ConfigureMemoryGrowth(device.MemoryGrowth{
		Incremental: true,
		LimitBytes:  *gpuMemLimit << 20,
	})

	test, err := dataset.LoadTest(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to load CIFAR-10 test partition: %v", err)
	}
	log.Printf("Loaded %d test images (%dx%dx%d, float32 in [0,1])",
		test.Len(), dataset.Width, dataset.Height, dataset.Channels)

	if *previewPath != "" {
		if err := test.WriteSampleGrid(*previewPath, 4, 8, 2); err != nil {
			log.Fatalf("Failed to write sample grid: %v", err)
		}
		log.Printf("Wrote sample grid to %s", *previewPath)
	}

	fullBatch, err := test.Batch(0, test.Len())
	if err != nil {
		log.Fatalf("Failed to assemble full test batch: %v", err)
	}
	singleBatch, err := test.Batch(0, 1)
	if err != nil {
		log.Fatalf("Failed to assemble single-image batch: %v", err)
	}
	probeBatch, err := test.Batch(0, probeBatchSize)
	if err != nil {
		log.Fatalf("Failed to assemble probe batch: %v", err)
	}

	suite := benchmark.NewSuite(cfg.OutputDir)
	probes := make(map[string][][]float32, len(devices))

	for _, d := range devices {
		if err := device.With(d, func() error {
			return runDevice(suite, cfg.ModelPath, fullBatch, singleBatch, probeBatch, probes)
		}); err != nil {
			log.Fatalf("Benchmark on %s failed: %v", d, err)
		}
	}

	checkAgreement(devices, probes, float32(*tolerance))

	fmt.Println(suite.Table())
	if err := suite.SaveResults(); err != nil {
		log.Fatalf("Failed to export results: %v", err)
	}
}

// runDevice deserializes the model on the ambient device, sanity-checks its
// predictions against the label vocabulary, then times the full-set and
// single-image cells.
func runDevice(suite *benchmark.Suite, modelPath string, fullBatch, singleBatch, probeBatch *tensor.Dense, probes map[string][][]float32) error {
	d := device.Active()

	model, err := inference.Load(modelPath, inference.Options{})
	if err != nil {
		return err
	}
	defer model.Close()

	// Correctness pass, outside any timed region.
	predictions, err := model.Predict(fullBatch)
	if err != nil {
		return err
	}
	if len(predictions) != dataset.TestCount {
		return fmt.Errorf("expected %d predictions, got %d", dataset.TestCount, len(predictions))
	}
	for i, p := range predictions {
		if p < 0 || p >= dataset.NumClasses {
			return fmt.Errorf("prediction %d for image %d outside label vocabulary", p, i)
		}
	}
	log.Printf("[%s] sanity check passed: %d predictions from the fixed vocabulary", d, len(predictions))

	probs, err := model.Probabilities(probeBatch)
	if err != nil {
		return err
	}
	probes[d.String()] = probs

	cells := []struct {
		name  string
		batch *tensor.Dense
		size  int
	}{
		{fmt.Sprintf("%s_batch_%d", d, dataset.TestCount), fullBatch, dataset.TestCount},
		{fmt.Sprintf("%s_batch_%d", d, 1), singleBatch, 1},
	}
	for _, cell := range cells {
		scenario := benchmark.NewScenarioBuilder(cell.name).
			WithDevice(d).
			WithBatchSize(cell.size).
			Build()
		result, err := suite.RunScenario(scenario, func() error {
			_, err := model.Predict(cell.batch)
			return err
		})
		if err != nil {
			return err
		}
		log.Printf("[%s] %s: %s (%.1f images/sec)", d, cell.name, result.Sample.String(), result.ImagesPerSecond)
	}
	return nil
}

// checkAgreement compares each device's probe probabilities against the
// first device's. Predicted classes must match exactly; probabilities may
// drift within the tolerance.
func checkAgreement(devices []device.Device, probes map[string][][]float32, tolerance float32) {
	if len(devices) < 2 {
		return
	}
	reference := devices[0].String()
	for _, d := range devices[1:] {
		maxDelta, argmaxMatch, err := inference.CompareProbabilities(probes[reference], probes[d.String()])
		if err != nil {
			log.Fatalf("Agreement check %s vs %s failed: %v", reference, d, err)
		}
		if !argmaxMatch {
			log.Fatalf("Predicted classes diverge between %s and %s", reference, d)
		}
		if maxDelta > tolerance {
			log.Fatalf("Probability delta %g between %s and %s exceeds tolerance %g",
				maxDelta, reference, d, tolerance)
		}
		log.Printf("Agreement %s vs %s: classes match, max probability delta %g", reference, d, maxDelta)
	}
}
