// Package device - Compute device identifiers and the ambient device scope.
package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind represents a class of compute device.
type Kind string

const (
	// KindCPU executes inference on the host CPU.
	KindCPU Kind = "cpu"

	// KindGPU executes inference on a CUDA device.
	KindGPU Kind = "gpu"
)

// Device names a single compute unit. The zero value is the CPU.
type Device struct {
	Kind    Kind
	Ordinal int
}

// CPU is the host CPU device.
var CPU = Device{Kind: KindCPU}

// GPU returns the CUDA device with the given ordinal.
func GPU(ordinal int) Device {
	return Device{Kind: KindGPU, Ordinal: ordinal}
}

// ErrUnavailable reports that a requested device cannot be used on this
// host. It surfaces at scope-entry or model-construction time, never later.
var ErrUnavailable = errors.New("device unavailable")

// Parse interprets a device token such as "cpu", "gpu" or "gpu:1".
// Matching is case-insensitive; "cuda" is accepted as an alias for "gpu".
func Parse(token string) (Device, error) {
	name, ordinal := strings.ToLower(strings.TrimSpace(token)), 0

	if i := strings.IndexByte(name, ':'); i >= 0 {
		n, err := strconv.Atoi(name[i+1:])
		if err != nil || n < 0 {
			return Device{}, errors.Errorf("invalid device ordinal in %q", token)
		}
		name, ordinal = name[:i], n
	}

	switch name {
	case "cpu":
		if ordinal != 0 {
			return Device{}, errors.Errorf("cpu has no ordinal, got %q", token)
		}
		return CPU, nil
	case "gpu", "cuda":
		return GPU(ordinal), nil
	default:
		return Device{}, errors.Errorf("unknown device %q", token)
	}
}

// IsGPU reports whether the device is a CUDA device.
func (d Device) IsGPU() bool {
	return d.Kind == KindGPU
}

func (d Device) String() string {
	if d.Kind == KindGPU {
		return fmt.Sprintf("gpu:%d", d.Ordinal)
	}
	return string(KindCPU)
}
