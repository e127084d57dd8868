package survey

// Feature is one field of the unified feature vector.
type Feature int

const (
	Period Feature = iota
	Duration
	Depth
	Radius
	Teq
	Insol
	SNR
	StellarTemp
	StellarRadius

	// NumFeatures is the length of the unified feature vector.
	NumFeatures = int(StellarRadius) + 1
)

var featureNames = [NumFeatures]string{
	"period",
	"duration",
	"depth",
	"radius",
	"teq",
	"insol",
	"snr",
	"stellar_temp",
	"stellar_radius",
}

// Features returns every feature in vector order.
func Features() []Feature {
	out := make([]Feature, NumFeatures)
	for i := range out {
		out[i] = Feature(i)
	}
	return out
}

// FeatureNames returns the feature names in vector order.
func FeatureNames() []string {
	return append([]string(nil), featureNames[:]...)
}

func (f Feature) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return "unknown"
	}
	return featureNames[f]
}

// ParseFeature returns the feature with the given unified name.
func ParseFeature(name string) (Feature, bool) {
	for i, n := range featureNames {
		if n == name {
			return Feature(i), true
		}
	}
	return 0, false
}

// featureAliases は全サーベイ共通の優先順リスト。koi_* が pl_*/st_* より先。
var featureAliases = [NumFeatures][]string{
	Period:        {"koi_period", "pl_orbper"},
	Duration:      {"koi_duration", "pl_trandurh"},
	Depth:         {"koi_depth", "pl_trandep"},
	Radius:        {"koi_prad", "pl_rade"},
	Teq:           {"koi_teq", "pl_eqt"},
	Insol:         {"koi_insol", "pl_insol"},
	SNR:           {"koi_model_snr"},
	StellarTemp:   {"koi_steff", "st_teff"},
	StellarRadius: {"koi_srad", "st_rad"},
}

// aliases[survey][feature] は優先順の列名リスト
var aliases = map[Survey][NumFeatures][]string{
	Kepler: featureAliases,
	TESS:   featureAliases,
	K2:     featureAliases,
}

// Aliases returns the raw column names of f for survey s in priority order.
// The returned slice is a copy.
func Aliases(s Survey, f Feature) []string {
	table, ok := aliases[s]
	if !ok || f < 0 || int(f) >= NumFeatures {
		return nil
	}
	return append([]string(nil), table[f]...)
}
