package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newInjectedContext() *SpanContext {
	seg := newTraceSegment(realClock{}, nil, nil)
	ctx := &SpanContext{spanID: 2, segment: seg}
	ctx.traceID.SetLower(1)
	ctx.setOrigin("rum")
	seg.setSamplingPriority(1, 0)
	return ctx
}

func TestDatadogPropagatorInjectExtract(t *testing.T) {
	assert := assert.New(t)

	p := &datadogPropagator{}
	ctx := newInjectedContext()
	carrier := TextMapCarrier{}
	assert.NoError(p.inject(ctx, carrier, 512))

	assert.Equal("1", carrier[headerTraceID])
	assert.Equal("2", carrier[headerParentID])
	assert.Equal("1", carrier[headerSamplingPriority])
	assert.Equal("rum", carrier[headerOrigin])

	ec, err := p.extract(carrier)
	assert.NoError(err)
	assert.Equal(uint64(1), ec.traceID.Lower())
	assert.Equal(uint64(2), ec.spanID)
	assert.Equal("rum", ec.origin)
	assert.Equal(1, *ec.priority)
}

func TestDatadogPropagatorExtractMissingReturnsNil(t *testing.T) {
	assert := assert.New(t)

	p := &datadogPropagator{}
	ec, err := p.extract(TextMapCarrier{})
	assert.NoError(err)
	assert.Nil(ec)
}

func TestDatadogPropagatorPropagatingTagsRoundTrip(t *testing.T) {
	assert := assert.New(t)

	p := &datadogPropagator{}
	ctx := newInjectedContext()
	ctx.segment.setPropagatingTag("_dd.p.usr", "abc123")
	carrier := TextMapCarrier{}
	assert.NoError(p.inject(ctx, carrier, 512))
	assert.Contains(carrier[headerPropagatedTags], "_dd.p.usr=abc123")

	ec, err := p.extract(carrier)
	assert.NoError(err)
	assert.Equal("abc123", ec.propagatingTags["_dd.p.usr"])
}

func TestDatadogPropagatorOversizeTagsSkipped(t *testing.T) {
	assert := assert.New(t)

	p := &datadogPropagator{}
	ctx := newInjectedContext()
	ctx.segment.setPropagatingTag("_dd.p.usr", "this-value-is-long-enough-to-exceed-a-tiny-budget")
	carrier := TextMapCarrier{}
	assert.NoError(p.inject(ctx, carrier, 5))

	_, ok := carrier[headerPropagatedTags]
	assert.False(ok)
	tags := ctx.segment.getPropagatingTags()
	assert.Equal("inject_max_size", tags[keyPropagationError])
}

func TestEncodeDecodePropagatingTags(t *testing.T) {
	assert := assert.New(t)

	tags := map[string]string{"_dd.p.b": "2", "_dd.p.a": "1"}
	encoded := encodePropagatingTags(tags)
	assert.Equal("_dd.p.a=1,_dd.p.b=2", encoded)

	decoded := decodePropagatingTags(encoded)
	assert.Equal(tags, decoded)
}
