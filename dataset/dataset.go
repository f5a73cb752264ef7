// Package dataset - CIFAR-10 loading, normalization and label encoding.
package dataset

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	// Width is the pixel width of every CIFAR-10 image.
	Width = 32
	// Height is the pixel height of every CIFAR-10 image.
	Height = 32
	// Channels is the number of color channels per image.
	Channels = 3

	// TrainCount is the number of images in the training partition.
	TrainCount = 50000
	// TestCount is the number of images in the test partition.
	TestCount = 10000

	// pixelBytes is the per-image payload: three planar channel blocks.
	pixelBytes = Width * Height * Channels
	// recordBytes is one on-disk record: a label byte followed by the pixels.
	recordBytes = 1 + pixelBytes
	// recordsPerBatch is the record count of every distribution batch file.
	recordsPerBatch = 10000
)

var trainBatchFiles = []string{
	"data_batch_1.bin",
	"data_batch_2.bin",
	"data_batch_3.bin",
	"data_batch_4.bin",
	"data_batch_5.bin",
}

const testBatchFile = "test_batch.bin"

// Split holds one partition of the dataset.
//
// Images is an N x 32 x 32 x 3 float32 tensor in HWC channel order with
// intensities normalized to [0, 1]. The tensor is treated as immutable after
// load. Labels keeps the original integer class indices; OneHot is the
// N x 10 one-hot encoding of the same labels, retained for parity with the
// sibling training pipeline.
type Split struct {
	Images *tensor.Dense
	Labels []int
	OneHot *tensor.Dense
}

// Len returns the number of images in the split.
func (s *Split) Len() int {
	return len(s.Labels)
}

// Batch returns the [start, start+n) sub-batch as an n x 32 x 32 x 3 tensor.
// The returned tensor shares backing memory with the split.
func (s *Split) Batch(start, n int) (*tensor.Dense, error) {
	if n <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", n)
	}
	if start < 0 || start+n > s.Len() {
		return nil, errors.Errorf("batch [%d, %d) out of range for %d images", start, start+n, s.Len())
	}
	data := s.Images.Data().([]float32)
	return tensor.New(
		tensor.WithShape(n, Height, Width, Channels),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data[start*pixelBytes:(start+n)*pixelBytes]),
	), nil
}

// Dataset is the fixed, pre-partitioned CIFAR-10 train/test split.
type Dataset struct {
	Train *Split
	Test  *Split
}

// Load reads the extracted CIFAR-10 binary batches from the cache directory,
// fetching and extracting the distribution archive first if it is absent.
// Any failure is fatal to the workflow; there is no retry here.
func Load(dir string) (*Dataset, error) {
	if err := Fetch(dir); err != nil {
		return nil, errors.Wrap(err, "dataset unavailable")
	}

	batchDir := filepath.Join(dir, extractDirName)

	trainPaths := make([]string, len(trainBatchFiles))
	for i, name := range trainBatchFiles {
		trainPaths[i] = filepath.Join(batchDir, name)
	}
	train, err := loadSplit(trainPaths, TrainCount)
	if err != nil {
		return nil, errors.Wrap(err, "loading train partition")
	}

	test, err := loadSplit([]string{filepath.Join(batchDir, testBatchFile)}, TestCount)
	if err != nil {
		return nil, errors.Wrap(err, "loading test partition")
	}

	return &Dataset{Train: train, Test: test}, nil
}

// LoadTest reads only the 10,000-image test partition. The benchmark
// workflow never consumes the training images, so this avoids holding the
// extra 600MB of float32 pixels when they are not needed.
func LoadTest(dir string) (*Split, error) {
	if err := Fetch(dir); err != nil {
		return nil, errors.Wrap(err, "dataset unavailable")
	}
	test, err := loadSplit([]string{filepath.Join(dir, extractDirName, testBatchFile)}, TestCount)
	return test, errors.Wrap(err, "loading test partition")
}

func loadSplit(paths []string, want int) (*Split, error) {
	pixels := make([]float32, 0, want*pixelBytes)
	labels := make([]int, 0, want)

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening batch %s", filepath.Base(path))
		}
		pixels, labels, err = parseRecords(bufio.NewReaderSize(f, 1<<20), pixels, labels)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "parsing batch %s", filepath.Base(path))
		}
	}

	if len(labels) != want {
		return nil, errors.Errorf("partition has %d records, want %d", len(labels), want)
	}

	oneHot, err := OneHot(labels, NumClasses)
	if err != nil {
		return nil, err
	}

	return &Split{
		Images: tensor.New(
			tensor.WithShape(len(labels), Height, Width, Channels),
			tensor.Of(tensor.Float32),
			tensor.WithBacking(pixels),
		),
		Labels: labels,
		OneHot: oneHot,
	}, nil
}

// parseRecords decodes consecutive CIFAR-10 records until EOF, appending to
// the supplied slices. Each record stores pixels as planar channel blocks
// (all red, all green, all blue); they are interleaved to HWC here and scaled
// from raw bytes to [0, 1] by exact division by 255.
func parseRecords(r io.Reader, pixels []float32, labels []int) ([]float32, []int, error) {
	record := make([]byte, recordBytes)
	for {
		if _, err := io.ReadFull(r, record); err != nil {
			if err == io.EOF {
				return pixels, labels, nil
			}
			if err == io.ErrUnexpectedEOF {
				return nil, nil, errors.New("truncated record")
			}
			return nil, nil, err
		}

		label := int(record[0])
		if label >= NumClasses {
			return nil, nil, errors.Errorf("label %d outside vocabulary of %d classes", label, NumClasses)
		}
		labels = append(labels, label)

		planes := record[1:]
		for px := 0; px < Width*Height; px++ {
			pixels = append(pixels,
				float32(planes[px])/255.0,
				float32(planes[Width*Height+px])/255.0,
				float32(planes[2*Width*Height+px])/255.0,
			)
		}
	}
}
