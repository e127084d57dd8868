package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	for _, items := range []int{0, 1, 7, 1000} {
		hits := make([]int32, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			assert.Equal(t, int32(1), h, "items=%d index=%d", items, i)
		}
	}
}

func TestParallelizeNWorkers(t *testing.T) {
	var calls int32
	ParallelizeN(10, 3, func(start, end int) { atomic.AddInt32(&calls, 1) })
	assert.Equal(t, int32(3), calls)

	calls = 0
	ParallelizeN(10, 0, func(start, end int) {
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
		atomic.AddInt32(&calls, 1)
	})
	assert.Equal(t, int32(1), calls)
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(5, 100, func(start, end int) {
		assert.Equal(t, 0, start)
		assert.Equal(t, 5, end)
		atomic.AddInt32(&calls, 1)
	})
	assert.Equal(t, int32(1), calls)
}
