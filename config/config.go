// Package config - Environment-driven configuration for the benchmark CLI.
package config

import (
	"log"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/nvr-ai/cifar-bench/inference/device"
)

// Config carries every knob of the workflow. Flags layered on top in main
// take precedence over the environment.
type Config struct {
	// DataDir is the dataset cache directory.
	DataDir string `env:"CIFAR_DATA_DIR" envDefault:"./data"`
	// ModelPath is the serialized model artifact.
	ModelPath string `env:"CIFAR_MODEL_PATH" envDefault:"cifar10_model.onnx"`
	// Devices is the comma-separated device list to benchmark.
	Devices string `env:"CIFAR_DEVICES" envDefault:"cpu,gpu"`
	// OutputDir receives exported JSON/CSV results.
	OutputDir string `env:"CIFAR_OUTPUT_DIR" envDefault:"./results"`
	// OnnxRuntimeLib overrides the ONNX Runtime shared library path.
	OnnxRuntimeLib string `env:"ONNX_RUNTIME_LIB"`
	// GPUMemLimitMB caps the CUDA arena. Zero leaves it uncapped.
	GPUMemLimitMB int64 `env:"CIFAR_GPU_MEM_LIMIT_MB" envDefault:"0"`
	// PreviewPath, when set, writes a sample-grid PNG of the test set.
	PreviewPath string `env:"CIFAR_PREVIEW_PATH"`
}

// Load reads configuration from a .env file (if present) and the process
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parsing environment")
	}
	return &cfg, nil
}

// DeviceList parses the configured device tokens.
func (c *Config) DeviceList() ([]device.Device, error) {
	var devices []device.Device
	for _, token := range strings.Split(c.Devices, ",") {
		if strings.TrimSpace(token) == "" {
			continue
		}
		d, err := device.Parse(token)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if len(devices) == 0 {
		return nil, errors.New("no devices configured")
	}
	return devices, nil
}
