package lightgbm

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/core/parallel"
	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
)

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	// Basic parameters
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	MaxDepth      int     `json:"max_depth"`

	// Regularization
	Lambda         float64 `json:"lambda_l2"`
	MinChildWeight float64 `json:"min_sum_hessian_in_leaf"`
	MinGainToSplit float64 `json:"min_gain_to_split"`

	// Sampling
	BaggingFraction float64 `json:"bagging_fraction"`
	FeatureFraction float64 `json:"feature_fraction"`

	// Histogram parameters
	MaxBin int `json:"max_bin"`

	// Objective
	NumClass int `json:"num_class"`

	// Other
	Seed       uint64 `json:"seed"`
	NumThreads int    `json:"num_threads"`
	Verbosity  int    `json:"verbosity"`
}

// DefaultTrainingParams returns the defaults used by LGBMClassifier.
func DefaultTrainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:   100,
		LearningRate:    0.1,
		MaxDepth:        6,
		Lambda:          1.0,
		MinChildWeight:  1.0,
		BaggingFraction: 1.0,
		FeatureFraction: 1.0,
		MaxBin:          255,
		Seed:            42,
	}
}

// SplitInfo contains information about a potential split
type SplitInfo struct {
	Feature     int
	Bin         int
	Threshold   float64
	Gain        float64
	DefaultLeft bool
	LeftCount   int
	RightCount  int
}

// Trainer implements the multiclass histogram boosting algorithm.
//
// Each boosting round fits NumClass trees, one per class raw score, on the
// softmax gradients. Rows are subsampled per round and columns per tree.
type Trainer struct {
	params TrainingParams

	// Data
	X            *mat.Dense
	y            []int
	sampleWeight []float64
	binMapper    *BinMapper
	binned       *BinnedData

	// Raw scores [row*numClass + class]
	scores []float64

	// Gradient and Hessian, same layout as scores
	gradients []float64
	hessians  []float64

	// per-class views reused across trees
	classGrad []float64
	classHess []float64

	trees []Tree
	rng   *rand.Rand

	objective MulticlassObjectiveFunction
	iteration int
	lossCurve []float64
}

// NewTrainer creates a new trainer
func NewTrainer(params TrainingParams) *Trainer {
	defaults := DefaultTrainingParams()
	if params.NumIterations <= 0 {
		params.NumIterations = defaults.NumIterations
	}
	if params.LearningRate <= 0 {
		params.LearningRate = defaults.LearningRate
	}
	if params.MaxBin <= 1 {
		params.MaxBin = defaults.MaxBin
	}
	if params.BaggingFraction <= 0 || params.BaggingFraction > 1 {
		params.BaggingFraction = 1.0
	}
	if params.FeatureFraction <= 0 || params.FeatureFraction > 1 {
		params.FeatureFraction = 1.0
	}

	return &Trainer{
		params: params,
		rng:    rand.New(rand.NewPCG(params.Seed, params.Seed)),
	}
}

// Fit trains the ensemble.
//
// y holds class indices in [0, NumClass). sampleWeight may be nil.
func (t *Trainer) Fit(X mat.Matrix, y []int, sampleWeight []float64) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return scigoErrors.NewModelError("Trainer.Fit", "empty data", scigoErrors.ErrEmptyData)
	}
	if len(y) != rows {
		return scigoErrors.NewDimensionError("Trainer.Fit", rows, len(y), 0)
	}
	if sampleWeight != nil && len(sampleWeight) != rows {
		return scigoErrors.NewDimensionError("Trainer.Fit", rows, len(sampleWeight), 0)
	}
	k := t.params.NumClass
	if k < 2 {
		return scigoErrors.NewValidationError("num_class", "must be at least 2", k)
	}
	for _, c := range y {
		if c < 0 || c >= k {
			return scigoErrors.NewValueError("Trainer.Fit", "class index out of range")
		}
	}

	t.X = mat.DenseCopyOf(X)
	t.y = y
	t.sampleWeight = sampleWeight
	t.objective = NewMulticlassLogLoss(k)
	t.binMapper = NewBinMapper(t.X, t.params.MaxBin)
	t.binned = t.binMapper.Transform(t.X)

	t.scores = make([]float64, rows*k)
	t.gradients = make([]float64, rows*k)
	t.hessians = make([]float64, rows*k)
	t.classGrad = make([]float64, rows)
	t.classHess = make([]float64, rows)
	t.trees = make([]Tree, 0, t.params.NumIterations*k)

	logger := log.GetLoggerWithName("lightgbm.trainer")

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter

		t.objective.CalculateGradientsAndHessians(t.y, t.scores, t.sampleWeight, t.gradients, t.hessians)
		rowsInBag := t.sampleRows(rows)

		for c := 0; c < k; c++ {
			for i := 0; i < rows; i++ {
				t.classGrad[i] = t.gradients[i*k+c]
				t.classHess[i] = t.hessians[i*k+c]
			}
			tree := t.buildTree(rowsInBag, c)
			t.updateScores(&tree, c)
			t.trees = append(t.trees, tree)
		}

		if iter%50 == 0 || iter == t.params.NumIterations-1 {
			loss := t.objective.CalculateLoss(t.y, t.scores, t.sampleWeight)
			if err := scigoErrors.CheckScalar("softmax_loss", loss, iter); err != nil {
				return err
			}
			t.lossCurve = append(t.lossCurve, loss)
			if t.params.Verbosity > 0 {
				logger.Debug("Training progress",
					log.IterationKey, iter,
					log.LossKey, loss)
			}
		}
	}

	return nil
}

// sampleRows draws a Bernoulli(BaggingFraction) subset of rows for one round.
func (t *Trainer) sampleRows(rows int) []int {
	indices := make([]int, 0, rows)
	if t.params.BaggingFraction >= 1 {
		for i := 0; i < rows; i++ {
			indices = append(indices, i)
		}
		return indices
	}
	for i := 0; i < rows; i++ {
		if t.rng.Float64() < t.params.BaggingFraction {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		indices = append(indices, t.rng.IntN(rows))
	}
	return indices
}

// sampleFeatures selects round(FeatureFraction * cols) features for one tree.
func (t *Trainer) sampleFeatures(cols int) []int {
	n := int(math.Round(t.params.FeatureFraction * float64(cols)))
	if n < 1 {
		n = 1
	}
	if n >= cols {
		all := make([]int, cols)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return t.rng.Perm(cols)[:n]
}

// buildTree constructs a single decision tree for class c
func (t *Trainer) buildTree(indices []int, class int) Tree {
	_, cols := t.X.Dims()
	tree := Tree{
		TreeIndex:     len(t.trees),
		ClassIndex:    class,
		ShrinkageRate: t.params.LearningRate,
		Nodes:         []Node{},
	}

	features := t.sampleFeatures(cols)
	t.buildNode(&tree, indices, features, -1, 0)

	for _, n := range tree.Nodes {
		if n.IsLeaf() {
			tree.NumLeaves++
		}
	}
	return tree
}

// buildNode recursively builds tree nodes
func (t *Trainer) buildNode(tree *Tree, indices, features []int, parentIdx int, depth int) int {
	nodeIdx := len(tree.Nodes)
	if depth > tree.MaxDepth {
		tree.MaxDepth = depth
	}

	sumGrad, sumHess := t.sumGradHess(indices)

	var best SplitInfo
	canSplit := len(indices) >= 2 && (t.params.MaxDepth <= 0 || depth < t.params.MaxDepth)
	if canSplit {
		best = t.findBestSplit(indices, features, sumGrad, sumHess)
	}

	// 正のゲインがある場合のみ分割する
	if !canSplit || best.Gain <= t.params.MinGainToSplit || best.Feature < 0 {
		tree.Nodes = append(tree.Nodes, Node{
			NodeID:     nodeIdx,
			ParentID:   parentIdx,
			NodeType:   LeafNode,
			LeafValue:  t.calculateLeafValue(sumGrad, sumHess),
			LeafCount:  len(indices),
			LeafHess:   sumHess,
			LeftChild:  -1,
			RightChild: -1,
		})
		return nodeIdx
	}

	tree.Nodes = append(tree.Nodes, Node{
		NodeID:       nodeIdx,
		ParentID:     parentIdx,
		NodeType:     NumericalNode,
		SplitFeature: best.Feature,
		Threshold:    best.Threshold,
		DefaultLeft:  best.DefaultLeft,
		Gain:         best.Gain,
	})

	leftIndices, rightIndices := t.splitData(indices, best)

	leftChild := t.buildNode(tree, leftIndices, features, nodeIdx, depth+1)
	rightChild := t.buildNode(tree, rightIndices, features, nodeIdx, depth+1)

	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild

	return nodeIdx
}

func (t *Trainer) sumGradHess(indices []int) (float64, float64) {
	g, h := 0.0, 0.0
	for _, idx := range indices {
		g += t.classGrad[idx]
		h += t.classHess[idx]
	}
	return g, h
}

// findBestSplit evaluates every sampled feature in parallel and keeps the
// highest gain. Ties go to the lower feature index so results are reproducible.
func (t *Trainer) findBestSplit(indices, features []int, sumGrad, sumHess float64) SplitInfo {
	candidates := make([]SplitInfo, len(features))
	workers := t.params.NumThreads
	if workers <= 0 {
		workers = len(features)
	}
	parallel.ParallelizeN(len(features), workers, func(start, end int) {
		for f := start; f < end; f++ {
			candidates[f] = t.findBestSplitForFeature(indices, features[f], sumGrad, sumHess)
		}
	})

	best := SplitInfo{Feature: -1, Gain: math.Inf(-1)}
	for _, c := range candidates {
		if c.Feature < 0 {
			continue
		}
		if c.Gain > best.Gain || (c.Gain == best.Gain && c.Feature < best.Feature) {
			best = c
		}
	}
	return best
}

// findBestSplitForFeature scans histogram bins left to right, trying the
// missing-value bucket on both sides of each cut.
func (t *Trainer) findBestSplitForFeature(indices []int, feature int, sumGrad, sumHess float64) SplitInfo {
	best := SplitInfo{Feature: -1, Gain: math.Inf(-1)}
	numBins := t.binMapper.NumBins(feature)
	if numBins < 2 {
		return best
	}

	hist := buildFeatureHistogram(t.binned.Bins[feature], numBins, indices, t.classGrad, t.classHess)
	missing := hist.Missing
	total := len(indices)
	minHess := t.params.MinChildWeight

	leftGrad, leftHess, leftCount := 0.0, 0.0, 0
	for b := 0; b < numBins-1; b++ {
		bin := hist.Bins[b]
		leftGrad += bin.SumGrad
		leftHess += bin.SumHess
		leftCount += bin.Count
		if bin.Count == 0 {
			continue
		}
		presentLeft := leftCount
		presentRight := total - missing.Count - leftCount
		if presentRight <= 0 {
			break
		}

		directions := []bool{false}
		if missing.Count > 0 {
			directions = []bool{false, true}
		}
		for _, defaultLeft := range directions {
			gl, hl, nl := leftGrad, leftHess, presentLeft
			if defaultLeft {
				gl += missing.SumGrad
				hl += missing.SumHess
				nl += missing.Count
			}
			gr, hr := sumGrad-gl, sumHess-hl
			nr := total - nl
			if nl == 0 || nr == 0 || hl < minHess || hr < minHess {
				continue
			}

			gain := t.calculateSplitGain(gl, hl, gr, hr, sumGrad, sumHess)
			if gain > best.Gain {
				best = SplitInfo{
					Feature:     feature,
					Bin:         b,
					Threshold:   t.binMapper.Threshold(feature, b),
					Gain:        gain,
					DefaultLeft: defaultLeft,
					LeftCount:   nl,
					RightCount:  nr,
				}
			}
		}
	}

	return best
}

// calculateSplitGain calculates the gain from a split
func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda

	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)

	return 0.5 * (leftScore + rightScore - totalScore)
}

// splitData splits indices based on a split decision
func (t *Trainer) splitData(indices []int, split SplitInfo) ([]int, []int) {
	leftIndices := make([]int, 0, split.LeftCount)
	rightIndices := make([]int, 0, split.RightCount)
	bins := t.binned.Bins[split.Feature]

	for _, idx := range indices {
		b := int(bins[idx])
		goLeft := b != missingBin && b <= split.Bin
		if b == missingBin {
			goLeft = split.DefaultLeft
		}
		if goLeft {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}

	return leftIndices, rightIndices
}

// calculateLeafValue calculates the optimal value for a leaf node
func (t *Trainer) calculateLeafValue(sumGrad, sumHess float64) float64 {
	// Optimal leaf value with L2 regularization
	denom := sumHess + t.params.Lambda
	if denom < minHessian {
		denom = minHessian
	}
	return -sumGrad / denom
}

// updateScores adds the new tree's shrunk output to every training row, in
// or out of the bag.
func (t *Trainer) updateScores(tree *Tree, class int) {
	rows, cols := t.X.Dims()
	k := t.params.NumClass
	parallel.ParallelizeWithThreshold(rows, 4096, func(start, end int) {
		features := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(features, i, t.X)
			t.scores[i*k+class] += tree.Predict(features)
		}
	})
}

// LossCurve returns the training loss sampled every 50 rounds and at the last round.
func (t *Trainer) LossCurve() []float64 {
	return t.lossCurve
}

// GetModel returns the trained model
func (t *Trainer) GetModel() *Model {
	model := NewModel()
	model.Trees = t.trees
	model.NumIteration = len(t.trees) / t.params.NumClass
	_, model.NumFeatures = t.X.Dims()
	model.NumClass = t.params.NumClass
	model.LearningRate = t.params.LearningRate
	model.MaxDepth = t.params.MaxDepth
	model.InitScores = make([]float64, t.params.NumClass)
	model.Parameters = map[string]interface{}{
		"num_iterations":   t.params.NumIterations,
		"learning_rate":    t.params.LearningRate,
		"max_depth":        t.params.MaxDepth,
		"lambda_l2":        t.params.Lambda,
		"bagging_fraction": t.params.BaggingFraction,
		"feature_fraction": t.params.FeatureFraction,
		"max_bin":          t.params.MaxBin,
		"seed":             t.params.Seed,
	}
	return model
}
