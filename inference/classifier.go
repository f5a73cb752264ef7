package inference

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Classifier is the interface boundary around a deserialized computation
// graph. The graph executor itself lives in the runtime behind it; callers
// only see batched prediction.
type Classifier interface {
	// Predict returns one class index per image in the batch.
	Predict(batch *tensor.Dense) ([]int, error)
	// Probabilities returns the per-class softmax scores per image.
	Probabilities(batch *tensor.Dense) ([][]float32, error)
	// Close releases native session resources.
	Close() error
}

var (
	// ErrArtifactInvalid reports a missing, corrupt or shape-incompatible
	// model artifact. Surfaces at load time; there is no partial load.
	ErrArtifactInvalid = errors.New("model artifact invalid")

	// ErrShapeMismatch reports an input batch whose shape does not match
	// the model's expected input. Surfaces at call time.
	ErrShapeMismatch = errors.New("input shape mismatch")
)
