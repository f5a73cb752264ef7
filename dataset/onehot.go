package dataset

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// OneHot encodes integer class labels as an N x classes float32 tensor with
// a single 1 at each label's index and 0 elsewhere.
func OneHot(labels []int, classes int) (*tensor.Dense, error) {
	if classes <= 0 {
		return nil, errors.Errorf("class count must be positive, got %d", classes)
	}

	backing := make([]float32, len(labels)*classes)
	for i, label := range labels {
		if label < 0 || label >= classes {
			return nil, errors.Errorf("label %d at row %d outside [0, %d)", label, i, classes)
		}
		backing[i*classes+label] = 1
	}

	return tensor.New(
		tensor.WithShape(len(labels), classes),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(backing),
	), nil
}
