package rtlog

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock(t *testing.T) {
	c := NewManualClock(10)
	assert.Equal(t, uint32(10), c.Millis())

	c.Advance(5)
	assert.Equal(t, uint32(15), c.Millis())

	c.Set(math.MaxUint32)
	c.Advance(2)
	assert.Equal(t, uint32(1), c.Millis())
}

func TestCachedClockAdvances(t *testing.T) {
	c := NewClock()
	start := c.Millis()

	assert.Eventually(t, func() bool {
		return c.Millis()-start >= 5
	}, time.Second, time.Millisecond)
}
