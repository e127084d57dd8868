// Package utils provides helpers mirroring sklearn.utils.
package utils

import (
	"fmt"

	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// ComputeClassWeight returns the "balanced" weight of every class index in
// [0, nClasses): n_samples / (n_classes * count_c).
//
// Every class must appear in y at least once.
func ComputeClassWeight(y []int, nClasses int) ([]float64, error) {
	if nClasses <= 0 {
		return nil, scigoErrors.NewValidationError("n_classes", "must be positive", nClasses)
	}
	counts := make([]int, nClasses)
	for i, c := range y {
		if c < 0 || c >= nClasses {
			return nil, scigoErrors.NewValueError("ComputeClassWeight",
				fmt.Sprintf("label %d at row %d is outside [0, %d)", c, i, nClasses))
		}
		counts[c]++
	}

	weights := make([]float64, nClasses)
	for c, count := range counts {
		if count == 0 {
			return nil, scigoErrors.NewValueError("ComputeClassWeight",
				fmt.Sprintf("class %d not present in y", c))
		}
		weights[c] = float64(len(y)) / (float64(nClasses) * float64(count))
	}
	return weights, nil
}

// ComputeSampleWeight expands balanced class weights to one weight per row.
func ComputeSampleWeight(y []int, nClasses int) ([]float64, error) {
	classWeight, err := ComputeClassWeight(y, nClasses)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(y))
	for i, c := range y {
		out[i] = classWeight[c]
	}
	return out, nil
}
