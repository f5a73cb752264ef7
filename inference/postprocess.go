package inference

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// argmaxRows reduces flat row-major scores to the index of the maximum per
// row.
func argmaxRows(scores []float32, classes int) []int {
	rows := len(scores) / classes
	out := make([]int, rows)
	for r := 0; r < rows; r++ {
		row := scores[r*classes : (r+1)*classes]
		best, bestScore := 0, math32.Inf(-1)
		for c, s := range row {
			if s > bestScore {
				best, bestScore = c, s
			}
		}
		out[r] = best
	}
	return out
}

// softmaxRows converts flat row-major logits to per-row probability slices.
// Max-subtraction keeps the exponentials finite for large logits.
func softmaxRows(scores []float32, classes int) [][]float32 {
	rows := len(scores) / classes
	out := make([][]float32, rows)
	for r := 0; r < rows; r++ {
		row := scores[r*classes : (r+1)*classes]

		max := math32.Inf(-1)
		for _, s := range row {
			if s > max {
				max = s
			}
		}

		probs := make([]float32, classes)
		var sum float32
		for c, s := range row {
			probs[c] = math32.Exp(s - max)
			sum += probs[c]
		}
		for c := range probs {
			probs[c] /= sum
		}
		out[r] = probs
	}
	return out
}

// CompareProbabilities checks cross-device agreement between two probability
// sets for identical input: the largest per-class absolute delta, and
// whether every row's argmax matches exactly.
func CompareProbabilities(a, b [][]float32) (maxDelta float32, argmaxMatch bool, err error) {
	if len(a) != len(b) {
		return 0, false, errors.Errorf("probability sets differ in length: %d vs %d", len(a), len(b))
	}

	argmaxMatch = true
	for r := range a {
		if len(a[r]) != len(b[r]) {
			return 0, false, errors.Errorf("row %d differs in class count: %d vs %d", r, len(a[r]), len(b[r]))
		}
		for c := range a[r] {
			if d := math32.Abs(a[r][c] - b[r][c]); d > maxDelta {
				maxDelta = d
			}
		}
		if argmaxRows(a[r], len(a[r]))[0] != argmaxRows(b[r], len(b[r]))[0] {
			argmaxMatch = false
		}
	}
	return maxDelta, argmaxMatch, nil
}
