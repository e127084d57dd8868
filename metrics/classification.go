// Package metrics provides classification evaluation compatible with
// sklearn.metrics: accuracy, confusion matrix and the per-class report.
package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// UnionLabels returns the sorted distinct values of yTrue and yPred.
func UnionLabels(yTrue, yPred []int) []int {
	seen := make(map[int]struct{})
	for _, v := range yTrue {
		seen[v] = struct{}{}
	}
	for _, v := range yPred {
		seen[v] = struct{}{}
	}
	labels := make([]int, 0, len(seen))
	for v := range seen {
		labels = append(labels, v)
	}
	sort.Ints(labels)
	return labels
}

// ConfusionMatrix は混同行列を計算する
//
// C[i][j] は真のラベルが labels[i]、予測が labels[j] のサンプル数。
// labels が nil の場合は yTrue と yPred の和集合をソートしたものを使う。
// labels に含まれない値のサンプルは数えない。
func ConfusionMatrix(yTrue, yPred []int, labels []int) (*mat.Dense, []int, error) {
	if len(yTrue) == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "empty input")
	}
	if len(yTrue) != len(yPred) {
		return nil, nil, errors.NewDimensionError("ConfusionMatrix", len(yTrue), len(yPred), 0)
	}
	if labels == nil {
		labels = UnionLabels(yTrue, yPred)
	}
	if len(labels) == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "labels must not be empty")
	}

	index := make(map[int]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := range yTrue {
		ti, ok1 := index[yTrue[i]]
		pi, ok2 := index[yPred[i]]
		if !ok1 || !ok2 {
			continue
		}
		cm.Set(ti, pi, cm.At(ti, pi)+1)
	}
	return cm, labels, nil
}

// ClassMetrics holds the scores of one class.
type ClassMetrics struct {
	Label     int
	Name      string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Averages holds an averaged precision/recall/F1 row.
type Averages struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassificationReport is the structured form of
// sklearn.metrics.classification_report plus the confusion matrix it was
// computed from.
type ClassificationReport struct {
	Classes         []ClassMetrics
	Accuracy        float64
	MacroAvg        Averages
	WeightedAvg     Averages
	Labels          []int
	ConfusionMatrix *mat.Dense
}

// NewClassificationReport evaluates predictions over the sorted union of the
// true and predicted labels.
//
// targetNames[l] names label l when present; otherwise the label number is used.
// Precision or recall with a zero denominator is 0 and emits an
// UndefinedMetricWarning.
func NewClassificationReport(yTrue, yPred []int, targetNames []string) (*ClassificationReport, error) {
	cm, labels, err := ConfusionMatrix(yTrue, yPred, nil)
	if err != nil {
		return nil, err
	}

	k := len(labels)
	report := &ClassificationReport{
		Classes:         make([]ClassMetrics, k),
		Labels:          labels,
		ConfusionMatrix: cm,
	}

	correct, total := 0.0, 0
	for i, l := range labels {
		tp := cm.At(i, i)
		predicted, actual := 0.0, 0.0
		for j := 0; j < k; j++ {
			predicted += cm.At(j, i)
			actual += cm.At(i, j)
		}
		correct += tp
		total += int(actual)

		name := strconv.Itoa(l)
		if l >= 0 && l < len(targetNames) {
			name = targetNames[l]
		}

		precision := errors.SafeDivide(tp, predicted)
		if predicted == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("precision",
				fmt.Sprintf("no predicted samples for label %s", name), 0))
		}
		recall := errors.SafeDivide(tp, actual)
		if actual == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("recall",
				fmt.Sprintf("no true samples for label %s", name), 0))
		}
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		report.Classes[i] = ClassMetrics{
			Label:     l,
			Name:      name,
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   int(actual),
		}
	}

	report.Accuracy = correct / float64(total)
	report.MacroAvg.Support = total
	report.WeightedAvg.Support = total
	for _, c := range report.Classes {
		report.MacroAvg.Precision += c.Precision / float64(k)
		report.MacroAvg.Recall += c.Recall / float64(k)
		report.MacroAvg.F1 += c.F1 / float64(k)

		w := float64(c.Support) / float64(total)
		report.WeightedAvg.Precision += c.Precision * w
		report.WeightedAvg.Recall += c.Recall * w
		report.WeightedAvg.F1 += c.F1 * w
	}

	return report, nil
}

// String renders the report in the sklearn text layout.
func (r *ClassificationReport) String() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		if len(c.Name) > width {
			width = len(c.Name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c.Name, c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "macro avg",
		r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "weighted avg",
		r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.WeightedAvg.Support)
	return b.String()
}

// MarshalZerologObject はレポートの要約をログに追加します。
func (r *ClassificationReport) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("accuracy", r.Accuracy).
		Float64("macro_f1", r.MacroAvg.F1).
		Float64("weighted_f1", r.WeightedAvg.F1).
		Int("support", r.MacroAvg.Support).
		Int("classes", len(r.Classes))
}
