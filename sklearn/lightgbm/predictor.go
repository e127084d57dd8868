package lightgbm

import (
	"runtime"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/core/parallel"
	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// Predictor evaluates a Model over many rows in parallel.
// It holds no mutable state after construction and is safe for concurrent use.
type Predictor struct {
	model      *Model
	numThreads int
}

// NewPredictor creates a new predictor with the given model
func NewPredictor(model *Model) *Predictor {
	return &Predictor{
		model:      model,
		numThreads: runtime.NumCPU(),
	}
}

// SetNumThreads sets the number of threads for parallel prediction
func (p *Predictor) SetNumThreads(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p.numThreads = n
}

// PredictProba returns an n×NumClass matrix of class probabilities.
func (p *Predictor) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	return p.predict(X, false)
}

// PredictRaw returns the pre-softmax scores.
func (p *Predictor) PredictRaw(X mat.Matrix) (*mat.Dense, error) {
	return p.predict(X, true)
}

func (p *Predictor) predict(X mat.Matrix, raw bool) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, scigoErrors.NewDimensionError("Predictor.Predict", p.model.NumFeatures, cols, 1)
	}
	if rows == 0 {
		return &mat.Dense{}, nil
	}

	out := mat.NewDense(rows, p.model.NumClass, nil)
	// 各ワーカーは自分の行範囲だけを書き込む
	parallel.ParallelizeN(rows, p.numThreads, func(start, end int) {
		features := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(features, i, X)
			scores := p.model.RawScores(features, -1)
			if !raw {
				scigoErrors.Softmax(scores, scores)
			}
			out.SetRow(i, scores)
		}
	})
	return out, nil
}

// PredictClass returns the argmax class index of every row. Ties resolve to the
// lowest index.
func (p *Predictor) PredictClass(X mat.Matrix) ([]int, error) {
	proba, err := p.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		out[i] = Argmax(proba.RawRowView(i))
	}
	return out, nil
}

// Argmax returns the index of the first maximum of v.
func Argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
