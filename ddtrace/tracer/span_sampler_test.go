package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dd-tracecore/tracer/ddtrace/ext"
)

func TestSpanSamplerNilIsNoop(t *testing.T) {
	assert := assert.New(t)

	var s *SpanSampler
	sp := &Span{name: "op", service: "svc", spanID: 1}
	assert.False(s.apply(sp))
}

func TestSpanSamplerKeepsMatchingSpan(t *testing.T) {
	assert := assert.New(t)

	s := NewSpanSampler([]SpanSamplingRule{{Service: "svc", Name: "op", Rate: 1}})
	sp := &Span{name: "op", service: "svc", spanID: 99}

	assert.True(s.apply(sp))
	assert.Equal(float64(ext.SingleSpanSamplingMechanismValue), sp.Tag(ext.SingleSpanSamplingMechanism))
	assert.Equal(1.0, sp.Tag(ext.SingleSpanSamplingRuleRate))
}

func TestSpanSamplerRejectsNonMatchingService(t *testing.T) {
	assert := assert.New(t)

	s := NewSpanSampler([]SpanSamplingRule{{Service: "other", Rate: 1}})
	sp := &Span{name: "op", service: "svc", spanID: 1}

	assert.False(s.apply(sp))
}

func TestSpanSamplerRateZeroRejects(t *testing.T) {
	assert := assert.New(t)

	s := NewSpanSampler([]SpanSamplingRule{{Rate: 0}})
	sp := &Span{name: "op", service: "svc", spanID: 1}

	assert.False(s.apply(sp))
}

func TestSpanSamplerLimiterCapsThroughput(t *testing.T) {
	assert := assert.New(t)

	s := NewSpanSampler([]SpanSamplingRule{{Rate: 1, MaxPerSecond: 1}})
	assert.True(s.apply(&Span{name: "op", service: "svc", spanID: 1}))
	assert.False(s.apply(&Span{name: "op", service: "svc", spanID: 2}))
}
