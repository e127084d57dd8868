package lightgbm

import (
	"math"

	"github.com/YuminosukeSato/exoplanet/core/parallel"
	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// minHessian keeps leaf denominators away from zero when p is saturated.
const minHessian = 1e-16

// MulticlassObjectiveFunction defines the interface for multiclass objective functions
type MulticlassObjectiveFunction interface {
	// CalculateGradientsAndHessians fills grad/hess (both [numSamples*numClasses],
	// sample-major) from raw scores yPred of the same layout.
	CalculateGradientsAndHessians(yTrue []int, yPred, weights, grad, hess []float64)

	// CalculateLoss returns the weighted mean loss.
	CalculateLoss(yTrue []int, yPred, weights []float64) float64

	// Name returns the name of the objective
	Name() string
}

// MulticlassLogLossObjective implements multiclass cross-entropy loss with softmax
type MulticlassLogLossObjective struct {
	numClasses int
}

// NewMulticlassLogLoss creates the softmax objective for numClasses classes.
func NewMulticlassLogLoss(numClasses int) *MulticlassLogLossObjective {
	return &MulticlassLogLossObjective{
		numClasses: numClasses,
	}
}

// CalculateGradientsAndHessians implements the multiclass logloss gradients and hessians.
//
// grad = w * (p_k - y_k), hess = w * p_k * (1 - p_k) (diagonal approximation).
// weights may be nil for unit weights.
func (m *MulticlassLogLossObjective) CalculateGradientsAndHessians(yTrue []int, yPred, weights, grad, hess []float64) {
	k := m.numClasses
	parallel.ParallelizeWithThreshold(len(yTrue), 2048, func(start, end int) {
		probs := make([]float64, k)
		for i := start; i < end; i++ {
			scigoErrors.Softmax(yPred[i*k:(i+1)*k], probs)
			w := 1.0
			if weights != nil {
				w = weights[i]
			}
			for c := 0; c < k; c++ {
				p := probs[c]
				g := p
				if c == yTrue[i] {
					g = p - 1.0
				}
				h := p * (1.0 - p)
				if h < minHessian {
					h = minHessian
				}
				grad[i*k+c] = g * w
				hess[i*k+c] = h * w
			}
		}
	})
}

// CalculateLoss calculates the weighted multiclass cross-entropy loss
func (m *MulticlassLogLossObjective) CalculateLoss(yTrue []int, yPred, weights []float64) float64 {
	k := m.numClasses
	totalLoss, totalWeight := 0.0, 0.0

	for i, c := range yTrue {
		logits := yPred[i*k : (i+1)*k]
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		// Cross-entropy loss: -log(p_true_class)
		totalLoss += w * (scigoErrors.LogSumExp(logits) - logits[c])
		totalWeight += w
	}

	if totalWeight == 0 {
		return math.NaN()
	}
	return totalLoss / totalWeight
}

// Name returns the name of the objective
func (m *MulticlassLogLossObjective) Name() string {
	return "multiclass_logloss"
}
