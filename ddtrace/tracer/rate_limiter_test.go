package tracer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsUpToBurst(t *testing.T) {
	assert := assert.New(t)

	rl := newRateLimiter(100)
	now := time.Now()
	for i := 0; i < 100; i++ {
		assert.True(rl.allowAt(now))
	}
	assert.False(rl.allowAt(now))
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	assert := assert.New(t)

	rl := newRateLimiter(1)
	now := time.Now()
	assert.True(rl.allowAt(now))
	assert.False(rl.allowAt(now))
	assert.True(rl.allowAt(now.Add(time.Second)))
}

func TestRateLimiterEffectiveRate(t *testing.T) {
	assert := assert.New(t)

	rl := newRateLimiter(1)
	assert.Equal(1.0, rl.effectiveRate(), "no calls yet defaults to 1")

	now := time.Now()
	rl.allowAt(now)
	rl.allowAt(now)
	rl.allowAt(now)
	assert.InDelta(1.0/3, rl.effectiveRate(), 0.001)
}
