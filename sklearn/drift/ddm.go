// Package drift detects when the rate of a binary event in a stream rises
// above the lowest rate seen so far. The serving layer feeds it one
// observation per classified row (abstained or not) to notice uploads the
// model is no longer confident about.
package drift

import (
	"math"
	"sync"
)

// State is the detector's verdict after an observation.
type State int

const (
	// Stable means the event rate is within the warning band.
	Stable State = iota
	// Warning means the rate exceeds p_min + WarningLevel·s_min.
	Warning
	// Drift means the rate exceeds p_min + OutControlLevel·s_min. The
	// detector restarts from scratch after reporting Drift.
	Drift
)

func (s State) String() string {
	switch s {
	case Warning:
		return "warning"
	case Drift:
		return "drift"
	default:
		return "stable"
	}
}

// DDM is the Drift Detection Method of Gama et al. (2004), "Learning with
// Drift Detection", over the rate of an arbitrary binary event.
// It is safe for concurrent use.
type DDM struct {
	minNumInstances int
	warningLevel    float64
	outControlLevel float64

	mu           sync.Mutex
	numInstances int
	numEvents    int
	minRate      float64
	minStdDev    float64
	state        State
}

// Result is the outcome of one Update.
type Result struct {
	State State
	// Rate is the event rate since the last reset (0 before MinNumInstances).
	Rate float64
	// MinRate is the reference rate the current rate is compared with.
	MinRate float64
}

// DDMOption is a DDM configuration option
type DDMOption func(*DDM)

// WithDDMMinNumInstances sets how many observations are collected before any verdict.
func WithDDMMinNumInstances(n int) DDMOption {
	return func(ddm *DDM) {
		ddm.minNumInstances = n
	}
}

// WithDDMWarningLevel sets the warning band in standard deviations.
func WithDDMWarningLevel(level float64) DDMOption {
	return func(ddm *DDM) {
		ddm.warningLevel = level
	}
}

// WithDDMOutControlLevel sets the drift band in standard deviations.
func WithDDMOutControlLevel(level float64) DDMOption {
	return func(ddm *DDM) {
		ddm.outControlLevel = level
	}
}

// NewDDM creates a detector with 30 warm-up observations and 2σ/3σ bands.
func NewDDM(options ...DDMOption) *DDM {
	ddm := &DDM{
		minNumInstances: 30,
		warningLevel:    2.0,
		outControlLevel: 3.0,
	}
	for _, opt := range options {
		opt(ddm)
	}
	ddm.reset()
	return ddm
}

// Update records one observation; event is true when the watched event occurred.
func (ddm *DDM) Update(event bool) Result {
	ddm.mu.Lock()
	defer ddm.mu.Unlock()

	ddm.numInstances++
	if event {
		ddm.numEvents++
	}
	if ddm.numInstances < ddm.minNumInstances {
		return Result{State: Stable}
	}

	n := float64(ddm.numInstances)
	p := float64(ddm.numEvents) / n
	s := math.Sqrt(p * (1 - p) / n)

	// 事象が一度も起きていない間は基準を置かない (s=0 だと即ドリフトになる)
	if ddm.numEvents > 0 && p+s < ddm.minRate+ddm.minStdDev {
		ddm.minRate = p
		ddm.minStdDev = s
	}
	res := Result{Rate: p, MinRate: ddm.minRate}
	if math.IsInf(ddm.minRate, 1) {
		return res
	}

	switch {
	case p+s > ddm.minRate+ddm.outControlLevel*ddm.minStdDev:
		res.State = Drift
		ddm.reset()
	case p+s > ddm.minRate+ddm.warningLevel*ddm.minStdDev:
		res.State = Warning
		ddm.state = Warning
	default:
		res.State = Stable
		ddm.state = Stable
	}
	return res
}

// Observe records a batch of observations and returns the most severe
// state seen while doing so.
func (ddm *DDM) Observe(events []bool) Result {
	worst := Result{State: Stable}
	for _, e := range events {
		r := ddm.Update(e)
		if r.State >= worst.State {
			worst = r
		}
	}
	return worst
}

// Statistics is a snapshot of the detector.
type Statistics struct {
	NumInstances int
	NumEvents    int
	MinRate      float64
	MinStdDev    float64
	State        State
}

// GetStatistics returns the current counters.
func (ddm *DDM) GetStatistics() Statistics {
	ddm.mu.Lock()
	defer ddm.mu.Unlock()
	return Statistics{
		NumInstances: ddm.numInstances,
		NumEvents:    ddm.numEvents,
		MinRate:      ddm.minRate,
		MinStdDev:    ddm.minStdDev,
		State:        ddm.state,
	}
}

// Reset forgets every observation.
func (ddm *DDM) Reset() {
	ddm.mu.Lock()
	defer ddm.mu.Unlock()
	ddm.reset()
}

func (ddm *DDM) reset() {
	ddm.numInstances = 0
	ddm.numEvents = 0
	ddm.minRate = math.Inf(1)
	ddm.minStdDev = math.Inf(1)
	ddm.state = Stable
}
