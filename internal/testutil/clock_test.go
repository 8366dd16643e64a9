package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchClock_StartsAtBase(t *testing.T) {
	clock := NewFetchClock(1000)
	assert.True(t, clock.Current().IsZero())

	assert.Equal(t, int64(1000), clock.Next().UnixMilli())
	assert.Equal(t, int64(1000), clock.Current().UnixMilli())
}

func TestFetchClock_NextIncrementsMonotonically(t *testing.T) {
	clock := NewFetchClock(1000)

	assert.Equal(t, int64(1000), clock.Next().UnixMilli())
	assert.Equal(t, int64(2000), clock.Next().UnixMilli())
	assert.Equal(t, int64(3000), clock.Next().UnixMilli())
	assert.Equal(t, int64(3000), clock.Current().UnixMilli())
}

func TestFetchClock_WithStep(t *testing.T) {
	clock := NewFetchClock(0).WithStep(time.Minute)

	clock.Next()
	assert.Equal(t, time.Minute.Milliseconds(), clock.Next().UnixMilli())
}

func TestFetchClock_Reset(t *testing.T) {
	clock := NewFetchClock(500)
	clock.Next()
	clock.Next()

	clock.Reset()
	assert.True(t, clock.Current().IsZero())
	assert.Equal(t, int64(500), clock.Next().UnixMilli())
}

func TestFetchClock_ThreadSafe(t *testing.T) {
	clock := NewFetchClock(0).WithStep(time.Millisecond)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]int64, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]int64, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Next().UnixMilli()
			}
		}(i)
	}
	wg.Wait()

	all := make(map[int64]bool)
	for i := range results {
		for _, v := range results[i] {
			require.False(t, all[v], "duplicate fetch time %d", v)
			all[v] = true
		}
	}
	total := numGoroutines * callsPerGoroutine
	assert.Len(t, all, total)
	for i := int64(0); i < int64(total); i++ {
		assert.True(t, all[i], "missing fetch time %d", i)
	}
}
