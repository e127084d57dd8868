package survey

import (
	"fmt"

	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// ResolveColumn returns the first alias of f present in table, or "" when none is.
func ResolveColumn(table Table, s Survey, f Feature) string {
	for _, alias := range Aliases(s, f) {
		if table.HasColumn(alias) {
			return alias
		}
	}
	return ""
}

// MapFeatures projects a raw survey table onto the unified features.
//
// Row order and row count are preserved. A feature without a matching alias
// is NaN for every row. Non-numeric cells become NaN and are reported once
// per column as a DataConversionWarning.
func MapFeatures(table Table, s Survey) *Frame {
	n := table.Len()
	frame := NewFrame(n)
	for _, f := range Features() {
		column := ResolveColumn(table, s, f)
		if column == "" {
			continue
		}
		dst := frame.Column(f)
		coerced := 0
		for i := 0; i < n; i++ {
			raw, present := table.Cell(column, i)
			if !present {
				continue
			}
			v, ok := ParseFloat(raw)
			if !ok {
				coerced++
			}
			dst[i] = v
		}
		if coerced > 0 {
			scigoErrors.Warn(scigoErrors.NewDataConversionWarning("string", "float64",
				fmt.Sprintf("%d non-numeric cells in %s.%s treated as missing", coerced, s, column)))
		}
	}
	return frame
}

// NormalizeLabels returns one unified label per row, or ok=false when the
// survey's disposition column is absent from the table.
func NormalizeLabels(table Table, s Survey) ([]Label, bool) {
	column := s.DispositionColumn()
	if column == "" || !table.HasColumn(column) {
		return nil, false
	}
	labels := make([]Label, table.Len())
	for i := range labels {
		labels[i] = NormalizeLabel(table.Cell(column, i))
	}
	return labels, true
}

// MissingFeatures lists the features with no alias in table.
func MissingFeatures(table Table, s Survey) []Feature {
	var out []Feature
	for _, f := range Features() {
		if ResolveColumn(table, s, f) == "" {
			out = append(out, f)
		}
	}
	return out
}

