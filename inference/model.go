package inference

import (
	"log"
	"os"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/cifar-bench/dataset"
	"github.com/nvr-ai/cifar-bench/inference/device"
)

// Options configures a model load.
type Options struct {
	// Device pins the instance to a compute device for its whole lifetime.
	// The zero value defers to the ambient device at construction time.
	Device device.Device

	// IntraOpThreads bounds intra-operator parallelism. Zero lets the
	// runtime decide.
	IntraOpThreads int
}

// Model is a Classifier backed by an ONNX Runtime session, pinned to the
// device that was chosen when it was constructed. Instances never migrate
// between devices; loading under two device scopes yields two independent
// instances.
type Model struct {
	path       string
	dev        device.Device
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

var _ Classifier = (*Model)(nil)

// Load deserializes the artifact at path into a ready-to-invoke Model. The
// artifact's declared tensor signature is validated against the CIFAR-10
// batch shape before the session is built; any problem aborts the load.
func Load(path string, opts Options) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(ErrArtifactInvalid, "artifact %s: %v", path, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArtifactInvalid, "reading signature of %s: %v", path, err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, errors.Wrapf(ErrArtifactInvalid,
			"artifact %s declares %d inputs and %d outputs, want 1 and 1", path, len(inputs), len(outputs))
	}
	if err := checkSignature(inputs[0].Dimensions, outputs[0].Dimensions); err != nil {
		return nil, errors.Wrapf(ErrArtifactInvalid, "artifact %s: %v", path, err)
	}

	dev := opts.Device
	if dev.Kind == "" {
		dev = device.Active()
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating session options")
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(opts.IntraOpThreads)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	if err := dev.ApplySessionOptions(options); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		path,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		options,
	)
	if err != nil {
		return nil, errors.Wrapf(ErrArtifactInvalid, "building session for %s on %s: %v", path, dev, err)
	}

	log.Printf("Loaded %s on %s (input %q, output %q)", path, dev, inputs[0].Name, outputs[0].Name)

	return &Model{
		path:       path,
		dev:        dev,
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
	}, nil
}

// checkSignature validates the artifact's declared tensor shapes against the
// dataset contract: input (batch)x32x32x3 NHWC, output (batch)x10. Dynamic
// dimensions are declared as negative values and accepted for the batch axis
// only.
func checkSignature(in, out []int64) error {
	if len(in) != 4 {
		return errors.Errorf("input rank %d, want 4 (NHWC)", len(in))
	}
	want := [3]int64{dataset.Height, dataset.Width, dataset.Channels}
	for i, dim := range in[1:] {
		if dim != want[i] {
			return errors.Errorf("input shape %v incompatible with %dx%dx%d images",
				in, dataset.Height, dataset.Width, dataset.Channels)
		}
	}

	if len(out) != 2 || out[1] != dataset.NumClasses {
		return errors.Errorf("output shape %v, want (batch)x%d class scores", out, dataset.NumClasses)
	}
	return nil
}

// Device returns the compute device the instance was pinned to at
// construction.
func (m *Model) Device() device.Device {
	return m.dev
}

// Predict runs forward inference and returns one predicted class index per
// image, each in [0, 10).
func (m *Model) Predict(batch *tensor.Dense) ([]int, error) {
	scores, err := m.run(batch)
	if err != nil {
		return nil, err
	}
	return argmaxRows(scores, dataset.NumClasses), nil
}

// Probabilities runs forward inference and returns per-class softmax scores
// per image.
func (m *Model) Probabilities(batch *tensor.Dense) ([][]float32, error) {
	scores, err := m.run(batch)
	if err != nil {
		return nil, err
	}
	return softmaxRows(scores, dataset.NumClasses), nil
}

// run executes the session over the batch and returns the flat batchx10
// output scores.
func (m *Model) run(batch *tensor.Dense) ([]float32, error) {
	if m.session == nil {
		return nil, errors.New("model is closed")
	}

	n, err := batchLength(batch)
	if err != nil {
		return nil, err
	}

	in, err := ort.NewTensor(
		ort.NewShape(int64(n), dataset.Height, dataset.Width, dataset.Channels),
		batch.Data().([]float32),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), dataset.NumClasses))
	if err != nil {
		return nil, errors.Wrap(err, "creating output tensor")
	}
	defer out.Destroy()

	if err := m.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, errors.Wrapf(err, "running inference on %s", m.dev)
	}

	// The output buffer dies with the tensor; hand back a copy.
	scores := make([]float32, n*dataset.NumClasses)
	copy(scores, out.GetData())
	return scores, nil
}

// batchLength validates the NHWC batch shape and returns its image count.
func batchLength(batch *tensor.Dense) (int, error) {
	if batch == nil {
		return 0, errors.Wrap(ErrShapeMismatch, "nil batch")
	}
	shape := batch.Shape()
	if len(shape) != 4 ||
		shape[1] != dataset.Height || shape[2] != dataset.Width || shape[3] != dataset.Channels {
		return 0, errors.Wrapf(ErrShapeMismatch,
			"batch shape %v, want (n, %d, %d, %d)", shape, dataset.Height, dataset.Width, dataset.Channels)
	}
	if shape[0] < 1 {
		return 0, errors.Wrap(ErrShapeMismatch, "empty batch")
	}
	return shape[0], nil
}

// Close releases the native session. Safe to call more than once.
func (m *Model) Close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return errors.Wrap(err, "destroying session")
}
