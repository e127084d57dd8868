package lightgbm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// missingBin marks a NaN cell in BinnedData.
const missingBin = -1

// BinMapper holds the per-feature bin upper bounds learned from training data.
//
// A value v falls in bin b when UpperBounds[b-1] < v <= UpperBounds[b], so a
// split "bin <= b" is the same decision as "v <= UpperBounds[b]" on raw values.
type BinMapper struct {
	UpperBounds [][]float64
}

// NewBinMapper builds equal-frequency bins over the non-missing values of each
// column, using at most maxBin bins per feature.
func NewBinMapper(X mat.Matrix, maxBin int) *BinMapper {
	rows, cols := X.Dims()
	if maxBin < 2 {
		maxBin = 2
	}

	bm := &BinMapper{UpperBounds: make([][]float64, cols)}
	values := make([]float64, 0, rows)
	for j := 0; j < cols; j++ {
		values = values[:0]
		for i := 0; i < rows; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		bm.UpperBounds[j] = findBinBounds(values, maxBin)
	}
	return bm
}

// findBinBounds returns sorted, strictly increasing upper bounds.
// The last bound is +Inf so every non-missing value maps to a bin.
func findBinBounds(values []float64, maxBin int) []float64 {
	if len(values) == 0 {
		return nil
	}
	sort.Float64s(values)

	unique := []float64{values[0]}
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			unique = append(unique, values[i])
		}
	}

	var bounds []float64
	if len(unique) <= maxBin {
		bounds = make([]float64, 0, len(unique))
		for i := 0; i < len(unique)-1; i++ {
			bounds = append(bounds, (unique[i]+unique[i+1])/2)
		}
	} else {
		// 等頻度ビン: 全データの分位点で区切る
		bounds = make([]float64, 0, maxBin)
		step := float64(len(values)) / float64(maxBin)
		for b := 1; b < maxBin; b++ {
			pos := int(float64(b) * step)
			if pos <= 0 || pos >= len(values) {
				continue
			}
			cut := (values[pos-1] + values[pos]) / 2
			if values[pos-1] == values[pos] {
				cut = values[pos]
			}
			if len(bounds) == 0 || cut > bounds[len(bounds)-1] {
				bounds = append(bounds, cut)
			}
		}
	}
	return append(bounds, math.Inf(1))
}

// NumBins returns the number of non-missing bins of feature j.
func (bm *BinMapper) NumBins(j int) int {
	return len(bm.UpperBounds[j])
}

// BinOf maps a raw value to its bin, or missingBin for NaN.
func (bm *BinMapper) BinOf(j int, v float64) int {
	if math.IsNaN(v) {
		return missingBin
	}
	bounds := bm.UpperBounds[j]
	if len(bounds) == 0 {
		return missingBin
	}
	return sort.SearchFloat64s(bounds, v)
}

// Threshold returns the raw-value threshold equivalent to "bin <= b".
func (bm *BinMapper) Threshold(j, b int) float64 {
	return bm.UpperBounds[j][b]
}

// BinnedData is the column-major bin index matrix used during training.
type BinnedData struct {
	Bins  [][]int32 // [feature][row]
	NRows int
}

// Transform bins every cell of X.
func (bm *BinMapper) Transform(X mat.Matrix) *BinnedData {
	rows, cols := X.Dims()
	bd := &BinnedData{Bins: make([][]int32, cols), NRows: rows}
	for j := 0; j < cols; j++ {
		col := make([]int32, rows)
		for i := 0; i < rows; i++ {
			col[i] = int32(bm.BinOf(j, X.At(i, j)))
		}
		bd.Bins[j] = col
	}
	return bd
}

// HistogramBin accumulates first and second order statistics of one bin.
type HistogramBin struct {
	Count   int
	SumGrad float64
	SumHess float64
}

// FeatureHistogram is the histogram of one feature over one node's rows.
type FeatureHistogram struct {
	Bins    []HistogramBin
	Missing HistogramBin
}

// buildFeatureHistogram accumulates grad/hess of the given rows into bins of feature j.
func buildFeatureHistogram(bins []int32, numBins int, indices []int, grad, hess []float64) FeatureHistogram {
	h := FeatureHistogram{Bins: make([]HistogramBin, numBins)}
	for _, idx := range indices {
		b := bins[idx]
		g, hs := grad[idx], hess[idx]
		if b == missingBin {
			h.Missing.Count++
			h.Missing.SumGrad += g
			h.Missing.SumHess += hs
			continue
		}
		bin := &h.Bins[b]
		bin.Count++
		bin.SumGrad += g
		bin.SumHess += hs
	}
	return h
}
