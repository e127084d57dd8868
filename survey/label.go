package survey

// Label is a unified disposition.
type Label string

const (
	Confirmed     Label = "CONFIRMED"
	Candidate     Label = "CANDIDATE"
	FalsePositive Label = "FALSE POSITIVE"
	Unknown       Label = "UNKNOWN"
)

// labelTable is shared by every survey.
var labelTable = map[string]Label{
	"CONFIRMED":      Confirmed,
	"CANDIDATE":      Candidate,
	"FALSE POSITIVE": FalsePositive,
	"CP":             Confirmed,
	"KP":             Confirmed,
	"PC":             Candidate,
	"FP":             FalsePositive,
}

// NormalizeLabel maps one raw disposition to a unified label. present=false
// means the raw cell was missing. Matching is exact: " CP " is Unknown.
func NormalizeLabel(raw string, present bool) Label {
	if !present {
		return Unknown
	}
	if l, ok := labelTable[raw]; ok {
		return l
	}
	return Unknown
}

// IsKnown reports whether l carries ground truth.
func (l Label) IsKnown() bool {
	return l != Unknown && l != ""
}

func (l Label) String() string {
	return string(l)
}

// LabelStrings converts labels to their string form.
func LabelStrings(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}
