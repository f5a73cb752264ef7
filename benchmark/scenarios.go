package benchmark

import (
	"fmt"

	"github.com/nvr-ai/cifar-bench/inference/device"
)

// Scenario is one measurement cell: a device and a batch size, driven by a
// repeat policy.
type Scenario struct {
	Name      string        `json:"name"`
	Device    device.Device `json:"device"`
	BatchSize int           `json:"batch_size"`
	Policy    Policy        `json:"policy"`
}

// ScenarioBuilder assembles scenarios with a fluent API.
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder starts a scenario with the default policy.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:      name,
			Device:    device.CPU,
			BatchSize: 1,
			Policy:    DefaultPolicy,
		},
	}
}

// WithDevice sets the compute device.
func (sb *ScenarioBuilder) WithDevice(d device.Device) *ScenarioBuilder {
	sb.scenario.Device = d
	return sb
}

// WithBatchSize sets the image count per invocation.
func (sb *ScenarioBuilder) WithBatchSize(n int) *ScenarioBuilder {
	sb.scenario.BatchSize = n
	return sb
}

// WithPolicy sets the repeat policy.
func (sb *ScenarioBuilder) WithPolicy(p Policy) *ScenarioBuilder {
	sb.scenario.Policy = p
	return sb
}

// Build returns the configured scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// Matrix expands the cross product of devices and batch sizes into named
// scenarios, one per measurement cell.
func Matrix(devices []device.Device, batchSizes []int, policy Policy) []Scenario {
	scenarios := make([]Scenario, 0, len(devices)*len(batchSizes))
	for _, d := range devices {
		for _, n := range batchSizes {
			scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("%s_batch_%d", d, n)).
				WithDevice(d).
				WithBatchSize(n).
				WithPolicy(policy).
				Build())
		}
	}
	return scenarios
}
