package preprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/core/model"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// MedianImputer は各列の欠損値(NaN)を、その列の非欠損値の中央値で置き換える
//
// 非欠損値が一つもない列の統計量は NaN となり、Transform 後もその列は NaN のまま残る。
type MedianImputer struct {
	model.BaseEstimator

	// Statistics は各列の中央値
	Statistics []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewMedianImputer は新しいMedianImputerを作成する
func NewMedianImputer() *MedianImputer {
	return &MedianImputer{}
}

// Fit は列ごとの中央値を計算する
func (m *MedianImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if c == 0 {
		return errors.NewModelError("MedianImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	m.NFeatures = c
	m.Statistics = make([]float64, c)
	col := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		col = col[:0]
		for i := 0; i < r; i++ {
			col = append(col, X.At(i, j))
		}
		m.Statistics[j] = Median(col)
	}

	m.SetFitted()
	return nil
}

// Transform は欠損値を学習済みの中央値で埋めた新しい行列を返す
func (m *MedianImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MedianImputer", "Transform")
	}
	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, errors.NewDimensionError("MedianImputer.Transform", m.NFeatures, c, 1)
	}
	if r == 0 {
		return &mat.Dense{}, nil
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				v = m.Statistics[j]
			}
			result.Set(i, j, v)
		}
	}
	return result, nil
}

// FitTransform はFitとTransformを続けて実行する
func (m *MedianImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// Median は NaN を除いた値の中央値を返す。値が無い場合は NaN。
// 偶数個の場合は中央2値の平均。values は変更しない。
func Median(values []float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	n := len(present)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(present)
	if n%2 == 1 {
		return present[n/2]
	}
	return (present[n/2-1] + present[n/2]) / 2
}

// FillNaN は values の NaN を fill で置き換え、置き換えた数を返す。fill が NaN なら何もしない。
func FillNaN(values []float64, fill float64) int {
	if math.IsNaN(fill) {
		return 0
	}
	n := 0
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = fill
			n++
		}
	}
	return n
}
