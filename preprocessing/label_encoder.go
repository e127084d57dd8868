package preprocessing

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/exoplanet/core/model"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// LabelEncoder は文字列ラベルと 0..k-1 の整数インデックスを相互に変換する
//
// クラスはソート済みのユニーク文字列として保持されるため、
// 同じラベル集合からは常に同じ対応表が得られる。
type LabelEncoder struct {
	model.BaseEstimator

	// Classes はインデックス順のクラス名
	Classes []string

	index map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit はラベルのユニーク値をソートしてインデックスを割り当てる
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	seen := make(map[string]struct{}, 4)
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	e.Classes = classes
	e.index = e.buildIndex()
	e.SetFitted()
	return nil
}

func (e *LabelEncoder) buildIndex() map[string]int {
	index := make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		index[c] = i
	}
	return index
}

// Transform はラベルをインデックスに変換する。未知のラベルはValueError。
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	index := e.index
	if index == nil {
		// gob から復元した直後は index が空
		index = e.buildIndex()
	}

	out := make([]int, len(labels))
	for i, l := range labels {
		idx, ok := index[l]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", fmt.Sprintf("y contains previously unseen label %q", l))
		}
		out[i] = idx
	}
	return out, nil
}

// FitTransform はFitとTransformを続けて実行する
func (e *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// Inverse は単一のインデックスをラベルに戻す
func (e *LabelEncoder) Inverse(idx int) (string, error) {
	if !e.IsFitted() {
		return "", errors.NewNotFittedError("LabelEncoder", "Inverse")
	}
	if idx < 0 || idx >= len(e.Classes) {
		return "", errors.NewValueError("LabelEncoder.Inverse", fmt.Sprintf("index %d out of range [0, %d)", idx, len(e.Classes)))
	}
	return e.Classes[idx], nil
}

// InverseTransform はインデックス列をラベル列に戻す
func (e *LabelEncoder) InverseTransform(indices []int) ([]string, error) {
	out := make([]string, len(indices))
	for i, idx := range indices {
		l, err := e.Inverse(idx)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

// NClasses はクラス数を返す
func (e *LabelEncoder) NClasses() int {
	return len(e.Classes)
}
