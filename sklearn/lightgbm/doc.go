// Package lightgbm provides a pure Go histogram gradient boosting classifier
// with a scikit-learn compatible API.
//
// The booster fits the multiclass softmax objective: every round grows one
// regression tree per class on the gradients p_k - y_k and diagonal hessians
// p_k(1 - p_k), both scaled by the row's sample weight. Splits are searched
// over per-feature histograms of at most MaxBin bins.
//
// # Missing values
//
// NaN cells are kept out of the bins. At each split the missing bucket is tried
// on both sides and the better direction is stored in Node.DefaultLeft, so a
// column that is entirely missing for one survey still trains and predicts.
//
// # Basic Usage
//
//	clf := lightgbm.NewLGBMClassifier().
//	    WithNumIterations(500).
//	    WithMaxDepth(6).
//	    WithLearningRate(0.05).
//	    WithSubsample(0.8).
//	    WithColsampleBytree(0.8)
//	if err := clf.FitWeighted(X, y, weights); err != nil {
//	    return err
//	}
//	proba, _ := clf.PredictProba(XTest)
//
// # Sampling
//
// Subsample draws a Bernoulli row mask per round, ColsampleBytree draws a
// feature subset per tree. Both come from a PCG source seeded with
// RandomState, so equal inputs give equal models.
package lightgbm
