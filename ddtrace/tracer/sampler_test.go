package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateSamplerRateClamped(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(0.0, NewRateSampler(-1).Rate())
	assert.Equal(1.0, NewRateSampler(2).Rate())
	assert.Equal(0.5, NewRateSampler(0.5).Rate())
}

func TestRateSamplerBoundaries(t *testing.T) {
	assert := assert.New(t)

	all := NewRateSampler(1)
	none := NewRateSampler(0)
	for _, id := range []uint64{0, 1, 12345, ^uint64(0)} {
		assert.True(all.Sample(id))
		assert.False(none.Sample(id))
	}
}

func TestSampledByRateDeterministic(t *testing.T) {
	assert := assert.New(t)

	const id = uint64(123456789)
	first := sampledByRate(id, 0.5)
	for i := 0; i < 10; i++ {
		assert.Equal(first, sampledByRate(id, 0.5))
	}
}

func TestSampledByRateConverges(t *testing.T) {
	assert := assert.New(t)

	const rate = 0.3
	const n = 100000
	kept := 0
	for i := uint64(0); i < n; i++ {
		if sampledByRate(i*2654435761, rate) {
			kept++
		}
	}
	got := float64(kept) / float64(n)
	assert.InDelta(rate, got, 0.02)
}
