// Package model_selection provides dataset splitting utilities compatible with
// scikit-learn's model_selection module.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// Split holds the row indices of one train/test partition.
type Split struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedShuffleSplit draws a single stratified train/test partition,
// mirroring sklearn.model_selection.train_test_split(stratify=y).
type StratifiedShuffleSplit struct {
	TestSize    float64
	RandomState uint64
}

// NewStratifiedShuffleSplit creates a splitter. testSize must be in (0,1).
func NewStratifiedShuffleSplit(testSize float64, randomState uint64) *StratifiedShuffleSplit {
	return &StratifiedShuffleSplit{
		TestSize:    testSize,
		RandomState: randomState,
	}
}

// Split partitions the rows of y, where y holds dense class indices.
//
// The test partition has ceil(TestSize*n) rows. Each class gets the floor of
// its proportional share and the leftover rows go to the classes with the
// largest fractional remainder, ties broken by lower class index.
func (s *StratifiedShuffleSplit) Split(y []int) (*Split, error) {
	if s.TestSize <= 0 || s.TestSize >= 1 {
		return nil, scigoErrors.NewValidationError("test_size", "must be in (0, 1)", s.TestSize)
	}
	n := len(y)
	if n == 0 {
		return nil, scigoErrors.NewValueError("StratifiedShuffleSplit.Split", "cannot split an empty dataset")
	}

	classIndices := groupByClass(y)
	classes := make([]int, 0, len(classIndices))
	for c := range classIndices {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	counts := make([]int, len(classes))
	for i, c := range classes {
		counts[i] = len(classIndices[c])
		if counts[i] < 2 {
			return nil, scigoErrors.NewValueError("StratifiedShuffleSplit.Split",
				fmt.Sprintf("the least populated class %d has only %d member, too few for a stratified split; the minimum is 2", c, counts[i]))
		}
	}

	nTest := int(math.Ceil(s.TestSize * float64(n)))
	nTrain := n - nTest
	if nTest < len(classes) {
		return nil, scigoErrors.NewValueError("StratifiedShuffleSplit.Split",
			fmt.Sprintf("test_size=%d should be greater or equal to the number of classes = %d", nTest, len(classes)))
	}
	if nTrain < len(classes) {
		return nil, scigoErrors.NewValueError("StratifiedShuffleSplit.Split",
			fmt.Sprintf("train_size=%d should be greater or equal to the number of classes = %d", nTrain, len(classes)))
	}

	testCounts := ApproximateMode(counts, nTest)

	r := rand.New(rand.NewPCG(s.RandomState, s.RandomState))
	split := &Split{
		TrainIndices: make([]int, 0, nTrain),
		TestIndices:  make([]int, 0, nTest),
	}
	for i, c := range classes {
		indices := append([]int(nil), classIndices[c]...)
		r.Shuffle(len(indices), func(a, b int) {
			indices[a], indices[b] = indices[b], indices[a]
		})
		split.TestIndices = append(split.TestIndices, indices[:testCounts[i]]...)
		split.TrainIndices = append(split.TrainIndices, indices[testCounts[i]:]...)
	}

	// クラス順に並ばないように全体を混ぜる
	r.Shuffle(len(split.TrainIndices), func(a, b int) {
		split.TrainIndices[a], split.TrainIndices[b] = split.TrainIndices[b], split.TrainIndices[a]
	})
	r.Shuffle(len(split.TestIndices), func(a, b int) {
		split.TestIndices[a], split.TestIndices[b] = split.TestIndices[b], split.TestIndices[a]
	})

	return split, nil
}

// TrainTestSplit is a shorthand for a stratified single split.
func TrainTestSplit(y []int, testSize float64, randomState uint64) (*Split, error) {
	return NewStratifiedShuffleSplit(testSize, randomState).Split(y)
}

// ApproximateMode distributes nDraws over classes proportionally to counts.
// Floors first, then one extra draw per class in decreasing order of the
// fractional remainder (stable on class index). No class receives more than
// its count.
func ApproximateMode(counts []int, nDraws int) []int {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]int, len(counts))
	if total == 0 {
		return out
	}

	remainders := make([]float64, len(counts))
	allocated := 0
	for i, c := range counts {
		exact := float64(c) * float64(nDraws) / float64(total)
		out[i] = int(math.Floor(exact))
		remainders[i] = exact - float64(out[i])
		allocated += out[i]
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for left := nDraws - allocated; left > 0; {
		progressed := false
		for _, i := range order {
			if left == 0 {
				break
			}
			if out[i] < counts[i] {
				out[i]++
				left--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

func groupByClass(y []int) map[int][]int {
	classIndices := make(map[int][]int)
	for i, c := range y {
		classIndices[c] = append(classIndices[c], i)
	}
	return classIndices
}
