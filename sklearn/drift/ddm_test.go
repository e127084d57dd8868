package drift

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func repeat(n, every int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = every > 0 && i%every == 0
	}
	return out
}

func TestDDMWarmUp(t *testing.T) {
	ddm := NewDDM(WithDDMMinNumInstances(10))
	for i := 0; i < 9; i++ {
		r := ddm.Update(true)
		assert.Equal(t, Stable, r.State)
		assert.Zero(t, r.Rate)
	}
	assert.Equal(t, 9, ddm.GetStatistics().NumInstances)
}

func TestDDMNoEventsIsStable(t *testing.T) {
	ddm := NewDDM()
	r := ddm.Observe(repeat(500, 0))
	assert.Equal(t, Stable, r.State)
	assert.Zero(t, r.Rate)
}

func TestDDMStableRate(t *testing.T) {
	ddm := NewDDM()
	// 10% の一定レート
	r := ddm.Observe(repeat(1000, 10)[1:])
	assert.NotEqual(t, Drift, r.State)
	assert.InDelta(t, 0.1, ddm.GetStatistics().MinRate, 0.05)
}

func TestDDMDetectsRateIncrease(t *testing.T) {
	ddm := NewDDM()
	ddm.Observe(repeat(600, 20))

	r := ddm.Observe(repeat(400, 2))
	assert.Equal(t, Drift, r.State)
	assert.Greater(t, r.Rate, r.MinRate)
}

func TestDDMResetsAfterDrift(t *testing.T) {
	ddm := NewDDM()
	ddm.Observe(repeat(600, 20))
	var drifted bool
	for _, e := range repeat(400, 2) {
		if ddm.Update(e).State == Drift {
			drifted = true
			break
		}
	}
	assert.True(t, drifted)
	stats := ddm.GetStatistics()
	assert.Zero(t, stats.NumInstances)
	assert.Equal(t, Stable, stats.State)
}

func TestDDMReset(t *testing.T) {
	ddm := NewDDM()
	ddm.Observe(repeat(100, 3))
	ddm.Reset()
	assert.Zero(t, ddm.GetStatistics().NumEvents)
}

func TestDDMConcurrentUpdates(t *testing.T) {
	ddm := NewDDM(WithDDMWarningLevel(2), WithDDMOutControlLevel(100))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ddm.Observe(repeat(100, 5))
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, ddm.GetStatistics().NumInstances)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "stable", Stable.String())
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "drift", Drift.String())
}
