package lightgbm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// NodeType represents the type of a tree node
type NodeType int

const (
	// LeafNode represents a terminal node with a value
	LeafNode NodeType = iota
	// NumericalNode represents a node with numerical split
	NumericalNode
)

// Node represents a single node in a decision tree
type Node struct {
	// Node identification
	NodeID     int      // Unique identifier for the node
	ParentID   int      // Parent node ID (-1 for root)
	LeftChild  int      // Left child node ID (-1 if leaf)
	RightChild int      // Right child node ID (-1 if leaf)
	NodeType   NodeType // Type of the node

	// Split information (for non-leaf nodes)
	SplitFeature int     // Feature index used for splitting
	Threshold    float64 // Threshold value for numerical splits
	DefaultLeft  bool    // Default direction for missing values
	Gain         float64 // Split gain (reduction in loss)

	// Leaf information (for leaf nodes)
	LeafValue float64 // Value at leaf node
	LeafCount int     // Number of samples at leaf
	LeafHess  float64 // Sum of hessians at leaf
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree represents a single decision tree in the ensemble
type Tree struct {
	// Tree metadata
	TreeIndex     int     // Index of the tree in ensemble
	ClassIndex    int     // Class whose raw score this tree contributes to
	NumLeaves     int     // Number of leaf nodes
	MaxDepth      int     // Maximum depth reached
	ShrinkageRate float64 // Learning rate applied to this tree

	// Node storage
	Nodes []Node // All nodes in the tree
}

// Predict makes a prediction for a single sample using this tree
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0 // Start from root

	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]

		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}

		// Handle missing values
		featureValue := features[node.SplitFeature]
		if math.IsNaN(featureValue) {
			if node.DefaultLeft {
				nodeID = node.LeftChild
			} else {
				nodeID = node.RightChild
			}
			continue
		}

		if featureValue <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}

	return 0.0
}

// ObjectiveType represents the objective function type
type ObjectiveType string

const (
	// MulticlassSoftmax is multinomial log loss over K raw scores.
	MulticlassSoftmax ObjectiveType = "multiclass"
)

// BoostingType represents the boosting algorithm type
type BoostingType string

const (
	GBDT BoostingType = "gbdt" // Gradient Boosting Decision Tree
)

// Model represents a complete boosted ensemble.
//
// Trees are stored iteration-major: tree i contributes to class i % NumClass.
type Model struct {
	// Model configuration
	Objective    ObjectiveType // Objective function
	BoostingType BoostingType  // Boosting algorithm
	NumClass     int           // Number of classes
	NumIteration int           // Number of boosting iterations
	LearningRate float64       // Base learning rate
	MaxDepth     int           // Maximum tree depth

	// Trees
	Trees []Tree // All trees in the ensemble

	// Feature information
	NumFeatures  int      // Number of features
	FeatureNames []string // Feature names (optional)

	// InitScores is the starting raw score of each class.
	InitScores []float64

	// Parameters records the training parameters for reporting.
	Parameters map[string]interface{}
}

// NewModel creates a new empty model
func NewModel() *Model {
	return &Model{
		Objective:    MulticlassSoftmax,
		BoostingType: GBDT,
		Trees:        make([]Tree, 0),
		Parameters:   make(map[string]interface{}),
		LearningRate: 0.1,
		MaxDepth:     6,
	}
}

// RawScores returns the K raw (pre-softmax) scores of one sample using the
// first numIteration boosting rounds (-1 for all).
func (m *Model) RawScores(features []float64, numIteration int) []float64 {
	scores := make([]float64, m.NumClass)
	copy(scores, m.InitScores)

	nTrees := len(m.Trees)
	if numIteration >= 0 && numIteration*m.NumClass < nTrees {
		nTrees = numIteration * m.NumClass
	}
	for i := 0; i < nTrees; i++ {
		tree := &m.Trees[i]
		scores[tree.ClassIndex] += tree.Predict(features)
	}
	return scores
}

// PredictSingle returns class probabilities for one sample.
func (m *Model) PredictSingle(features []float64, numIteration int) []float64 {
	return scigoErrors.Softmax(m.RawScores(features, numIteration), nil)
}

// Predict returns an n×NumClass probability matrix, evaluated sequentially.
// Use Predictor for parallel evaluation.
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, scigoErrors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}
	out := mat.NewDense(rows, m.NumClass, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		out.SetRow(i, m.PredictSingle(features, -1))
	}
	return out, nil
}

// GetFeatureImportance calculates and returns normalized feature importance.
// importanceType is "split" (number of splits) or "gain" (total gain).
func (m *Model) GetFeatureImportance(importanceType string) []float64 {
	importance := make([]float64, m.NumFeatures)

	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if !node.IsLeaf() {
				switch importanceType {
				case "split":
					importance[node.SplitFeature]++
				case "gain":
					importance[node.SplitFeature] += node.Gain
				}
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}

	return importance
}
