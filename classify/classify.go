// Package classify turns class probabilities into decisions that abstain
// with UNKNOWN when the most probable class is not confident enough.
package classify

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/core/model"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/preprocessing"
	"github.com/YuminosukeSato/exoplanet/sklearn/lightgbm"
	"github.com/YuminosukeSato/exoplanet/survey"
)

// Thresholds used by the batch and interactive entry points.
const (
	DefaultThreshold = 0.6
	StrictThreshold  = 0.7
)

// Decision is the outcome for one row. Confidence is the top class
// probability, reported even when Label is UNKNOWN.
type Decision struct {
	Label      survey.Label
	Confidence float64
}

// Abstained reports whether the decision fell back to UNKNOWN.
func (d Decision) Abstained() bool {
	return d.Label == survey.Unknown
}

// ValidateThreshold checks that threshold is in (0, 1].
func ValidateThreshold(threshold float64) error {
	if !(threshold > 0 && threshold <= 1) {
		return errors.NewValidationError("threshold", "must be in (0, 1]", threshold)
	}
	return nil
}

// Classify decides every row of rows.
//
// For each row the first class attaining the maximum probability p_max is
// taken; the decision is that class when p_max >= threshold and UNKNOWN
// otherwise. Neither p nor codec is modified.
func Classify(p model.ProbabilityModel, codec *preprocessing.LabelEncoder, rows mat.Matrix, threshold float64) ([]Decision, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if err := checkCodec(codec, "Classify"); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.NewNotFittedError("ProbabilityModel", "Classify")
	}
	if r, _ := rows.Dims(); r == 0 {
		return []Decision{}, nil
	}

	proba, err := p.PredictProba(rows)
	if err != nil {
		return nil, errors.Wrap(err, "predict_proba failed")
	}
	return Decide(proba, codec, threshold)
}

// Decide applies the reject option to an n×k probability matrix.
func Decide(proba mat.Matrix, codec *preprocessing.LabelEncoder, threshold float64) ([]Decision, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if err := checkCodec(codec, "Decide"); err != nil {
		return nil, err
	}
	n, k := proba.Dims()
	if k != codec.NClasses() {
		return nil, errors.NewDimensionError("classify.Decide", codec.NClasses(), k, 1)
	}

	decisions := make([]Decision, n)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		mat.Row(row, i, proba)
		best := lightgbm.Argmax(row)
		pMax := row[best]
		if pMax < threshold {
			decisions[i] = Decision{Label: survey.Unknown, Confidence: pMax}
			continue
		}
		name, err := codec.Inverse(best)
		if err != nil {
			return nil, err
		}
		decisions[i] = Decision{Label: survey.Label(name), Confidence: pMax}
	}
	return decisions, nil
}

func checkCodec(codec *preprocessing.LabelEncoder, method string) error {
	if codec == nil || !codec.IsFitted() {
		return errors.NewNotFittedError("LabelEncoder", method)
	}
	return nil
}

// ClassifyFrame decides every row of a unified feature frame.
func ClassifyFrame(p model.ProbabilityModel, codec *preprocessing.LabelEncoder, frame *survey.Frame, threshold float64) ([]Decision, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if frame.Len() == 0 {
		return []Decision{}, nil
	}
	X, err := frame.Dense()
	if err != nil {
		return nil, err
	}
	return Classify(p, codec, X, threshold)
}

// CountAbstained returns the number of UNKNOWN decisions.
func CountAbstained(decisions []Decision) int {
	n := 0
	for _, d := range decisions {
		if d.Abstained() {
			n++
		}
	}
	return n
}
