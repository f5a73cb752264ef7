package device

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Arena extend strategies recognized by the ONNX Runtime CUDA provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
const (
	// arenaExtendNextPowerOfTwo grows the device arena by doubling amounts.
	arenaExtendNextPowerOfTwo = 0
	// arenaExtendSameAsRequested grows the device arena by the requested
	// amount only, leaving headroom for other processes on a shared GPU.
	arenaExtendSameAsRequested = 1
)

// MemoryGrowth is the process-wide GPU allocator policy. It is applied once
// at startup and affects every GPU session constructed afterwards; sessions
// already built are untouched.
type MemoryGrowth struct {
	// Incremental selects as-requested arena growth instead of greedy
	// power-of-two reservation.
	Incremental bool
	// LimitBytes caps the provider arena. Zero means no explicit cap.
	LimitBytes int64
}

var (
	growthMu sync.Mutex
	growth   = MemoryGrowth{Incremental: true}
)

// ConfigureMemoryGrowth installs the allocator policy for all GPU sessions
// constructed after the call. There is no teardown; the policy only affects
// future allocations.
func ConfigureMemoryGrowth(g MemoryGrowth) {
	growthMu.Lock()
	growth = g
	growthMu.Unlock()
}

// MemoryGrowthPolicy returns the currently installed allocator policy.
func MemoryGrowthPolicy() MemoryGrowth {
	growthMu.Lock()
	defer growthMu.Unlock()
	return growth
}

// CUDAOptions carries the CUDA execution provider configuration for one
// session.
type CUDAOptions struct {
	// DeviceID selects the CUDA device.
	DeviceID int
	// GPUMemLimit is the provider arena size cap in bytes. Zero disables
	// the cap. Total device memory usage may still be higher.
	GPUMemLimit int64
	// ArenaExtendStrategy selects how the device arena grows.
	ArenaExtendStrategy int
	// DoCopyInDefaultStream controls whether copies share the default
	// stream. The recommended setting is true.
	DoCopyInDefaultStream bool
}

// cudaOptionsFor derives the per-session CUDA options for a device from the
// process-wide memory growth policy.
func cudaOptionsFor(d Device) CUDAOptions {
	policy := MemoryGrowthPolicy()

	opts := CUDAOptions{
		DeviceID:              d.Ordinal,
		GPUMemLimit:           policy.LimitBytes,
		ArenaExtendStrategy:   arenaExtendNextPowerOfTwo,
		DoCopyInDefaultStream: true,
	}
	if policy.Incremental {
		opts.ArenaExtendStrategy = arenaExtendSameAsRequested
	}
	return opts
}

// providerOptionsMap renders the options as the string map the native
// provider consumes.
func (o CUDAOptions) providerOptionsMap() map[string]string {
	m := map[string]string{
		"device_id":                 fmt.Sprintf("%d", o.DeviceID),
		"arena_extend_strategy":     fmt.Sprintf("%d", o.ArenaExtendStrategy),
		"do_copy_in_default_stream": fmt.Sprintf("%t", o.DoCopyInDefaultStream),
	}
	if o.GPUMemLimit > 0 {
		m["gpu_mem_limit"] = fmt.Sprintf("%d", o.GPUMemLimit)
	}
	return m
}

// ToNativeProviderOptions converts the options into native CUDA provider
// options. The caller owns the returned handle and must Destroy it.
func (o CUDAOptions) ToNativeProviderOptions() (*ort.CUDAProviderOptions, error) {
	opts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	if err := opts.Update(o.providerOptionsMap()); err != nil {
		opts.Destroy()
		return nil, errors.Wrap(err, "updating CUDA provider options")
	}
	return opts, nil
}

// ApplySessionOptions appends the execution provider for d to a session
// options handle. CPU needs no provider; GPU appends the CUDA provider and
// fails with ErrUnavailable when the host cannot satisfy it.
func (d Device) ApplySessionOptions(options *ort.SessionOptions) error {
	if !d.IsGPU() {
		return nil
	}

	cuda, err := cudaOptionsFor(d).ToNativeProviderOptions()
	if err != nil {
		return err
	}
	defer cuda.Destroy()

	if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
		return errors.Wrapf(ErrUnavailable, "enabling CUDA on %s: %v", d, err)
	}
	return nil
}
