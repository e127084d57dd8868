package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
)

func TestComputeClassWeight(t *testing.T) {
	tests := []struct {
		name string
		y    []int
		k    int
		want []float64
	}{
		{"balanced", []int{0, 1, 2, 0, 1, 2}, 3, []float64{1, 1, 1}},
		{"imbalanced", []int{0, 0, 0, 1}, 2, []float64{4.0 / 6.0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeClassWeight(tt.y, tt.k)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestComputeClassWeightTotalsEqualSamples(t *testing.T) {
	y := []int{0, 0, 0, 0, 0, 1, 1, 2}
	w, err := ComputeSampleWeight(y, 3)
	require.NoError(t, err)
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, float64(len(y)), sum, 1e-9)
}

func TestComputeClassWeightErrors(t *testing.T) {
	_, err := ComputeClassWeight([]int{0, 0}, 2)
	var ve *scigoErrors.ValueError
	assert.True(t, scigoErrors.As(err, &ve))

	_, err = ComputeClassWeight([]int{0, 3}, 2)
	assert.True(t, scigoErrors.As(err, &ve))

	_, err = ComputeClassWeight([]int{0}, 0)
	var val *scigoErrors.ValidationError
	assert.True(t, scigoErrors.As(err, &val))
}
