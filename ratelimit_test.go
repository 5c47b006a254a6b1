package rtlog

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(max uint32) (*RateLimiter, *ManualClock) {
	clock := NewManualClock(0)
	return NewRateLimiter(max, time.Second, clock, newFakePlatform()), clock
}

func TestRateLimiterBurst(t *testing.T) {
	r, _ := newTestLimiter(50)

	admitted := 0
	for i := 0; i < 100; i++ {
		if r.Allow() {
			admitted++
		}
	}
	assert.Equal(t, 50, admitted)
	assert.Equal(t, uint64(50), r.Accepted())
	assert.Equal(t, uint64(50), r.Dropped())
}

func TestRateLimiterNewWindow(t *testing.T) {
	r, clock := newTestLimiter(2)

	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())

	clock.Advance(999)
	assert.False(t, r.Allow())

	clock.Advance(1)
	assert.True(t, r.Allow())
}

func TestRateLimiterSpacedCallsAllAdmitted(t *testing.T) {
	r, clock := newTestLimiter(10)

	for i := 0; i < 100; i++ {
		require.True(t, r.Allow(), "call %d", i)
		clock.Advance(100)
	}
	assert.Zero(t, r.Dropped())
}

func TestRateLimiterTickWrap(t *testing.T) {
	r, clock := newTestLimiter(3)
	clock.Set(math.MaxUint32 - 100)

	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())

	// Crosses zero but stays inside the window
	clock.Advance(500)
	assert.False(t, r.Allow())

	clock.Advance(600)
	assert.True(t, r.Allow())
}

func TestRateLimiterUnlimited(t *testing.T) {
	r, _ := newTestLimiter(0)
	for i := 0; i < 1000; i++ {
		require.True(t, r.Allow())
	}
	assert.Zero(t, r.Dropped())
}

func TestRateLimiterPreSchedulerAdmitsAll(t *testing.T) {
	p := newFakePlatform()
	p.preScheduler.Store(true)
	r := NewRateLimiter(1, time.Second, NewManualClock(0), p)

	for i := 0; i < 10; i++ {
		require.True(t, r.Allow())
	}
}

func TestRateLimiterLockTimeoutRejects(t *testing.T) {
	r, _ := newTestLimiter(10)
	r.SetLockTimeout(0)
	require.True(t, r.mu.TryLock())

	assert.False(t, r.Allow())
	assert.Equal(t, uint64(1), r.LockTimeouts())
	assert.Zero(t, r.Dropped(), "timeouts are not rate drops")

	r.mu.Unlock()
	assert.True(t, r.Allow())
}

func TestRateLimiterReset(t *testing.T) {
	r, _ := newTestLimiter(1)
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())

	r.Reset()
	assert.Zero(t, r.Dropped())
	assert.Zero(t, r.Accepted())
	assert.True(t, r.Allow())
}

func TestRateLimiterSetMax(t *testing.T) {
	r, _ := newTestLimiter(1)
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())

	r.SetMax(3)
	assert.Equal(t, uint32(3), r.Max())
	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())
}

func TestRateLimiterConcurrent(t *testing.T) {
	r, _ := newTestLimiter(100)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if r.Allow() {
					admitted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), admitted.Load())
	assert.Equal(t, uint64(400), r.Accepted()+r.Dropped()+r.LockTimeouts())
}
