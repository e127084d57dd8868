// Package survey defines the unified feature and label vocabulary shared by
// the Kepler, TESS and K2 candidate tables, and maps raw survey tables onto it.
//
// Every unified feature has an explicit, ordered alias list per survey. The
// first alias present in a raw table wins; when none is present the whole
// column is missing (NaN). No unit conversion is applied: transit duration is
// taken as-is from whichever alias matched.
package survey

import (
	"strings"

	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// Survey identifies a source observational program.
type Survey string

const (
	Kepler Survey = "kepler"
	TESS   Survey = "tess"
	K2     Survey = "k2"
)

// Surveys returns every known survey in a fixed order.
func Surveys() []Survey {
	return []Survey{Kepler, TESS, K2}
}

// ParseSurvey accepts a survey name case-insensitively.
func ParseSurvey(name string) (Survey, error) {
	s := Survey(strings.ToLower(strings.TrimSpace(name)))
	switch s {
	case Kepler, TESS, K2:
		return s, nil
	}
	return "", scigoErrors.NewValidationError("survey", "must be one of kepler, tess, k2", name)
}

func (s Survey) String() string {
	return string(s)
}

// DispositionColumn returns the raw column holding the survey's disposition.
func (s Survey) DispositionColumn() string {
	switch s {
	case Kepler:
		return "koi_disposition"
	case TESS:
		return "tfopwg_disp"
	case K2:
		return "disposition"
	}
	return ""
}
