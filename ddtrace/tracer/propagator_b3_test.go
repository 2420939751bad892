package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestB3MultiInjectExtractRoundTrip(t *testing.T) {
	assert := assert.New(t)

	p := &b3MultiPropagator{}
	ctx := newInjectedContext()
	carrier := TextMapCarrier{}
	assert.NoError(p.inject(ctx, carrier, 0))

	assert.Equal("1", carrier[headerB3Sampled])
	ec, err := p.extract(carrier)
	assert.NoError(err)
	assert.Equal(uint64(1), ec.traceID.Lower())
	assert.Equal(uint64(2), ec.spanID)
	assert.Equal(1, *ec.priority)
}

func TestB3MultiExtractMissingIsNil(t *testing.T) {
	assert := assert.New(t)

	p := &b3MultiPropagator{}
	ec, err := p.extract(TextMapCarrier{headerB3TraceID: "1"})
	assert.NoError(err)
	assert.Nil(ec)
}

func TestB3SingleInjectExtractRoundTrip(t *testing.T) {
	assert := assert.New(t)

	p := &b3SinglePropagator{}
	ctx := newInjectedContext()
	carrier := TextMapCarrier{}
	assert.NoError(p.inject(ctx, carrier, 0))

	ec, err := p.extract(carrier)
	assert.NoError(err)
	assert.Equal(uint64(1), ec.traceID.Lower())
	assert.Equal(uint64(2), ec.spanID)
	assert.Equal(1, *ec.priority)
}

func TestB3SingleExtractMalformedHeader(t *testing.T) {
	assert := assert.New(t)

	p := &b3SinglePropagator{}
	_, err := p.extract(TextMapCarrier{headerB3Single: "onlyonepart"})
	assert.Error(err)
}

func TestDecodeB3SampledValues(t *testing.T) {
	assert := assert.New(t)

	ec, err := decodeB3("1", "2", "0", "b3multi")
	assert.NoError(err)
	assert.Equal(0, *ec.priority)

	ec, err = decodeB3("1", "2", "d", "b3multi")
	assert.NoError(err)
	assert.Equal(1, *ec.priority)

	ec, err = decodeB3("1", "2", "", "b3multi")
	assert.NoError(err)
	assert.Nil(ec.priority)
}

func TestB3SampledValue(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("1", b3SampledValue(1))
	assert.Equal("0", b3SampledValue(0))
}
