package tracer

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPHeadersCarrierSetAndForeachKey(t *testing.T) {
	assert := assert.New(t)

	h := http.Header{}
	c := HTTPHeadersCarrier(h)
	c.Set("x-datadog-trace-id", "123")

	seen := map[string]string{}
	assert.NoError(c.ForeachKey(func(k, v string) error {
		seen[k] = v
		return nil
	}))
	assert.Equal("123", seen["X-Datadog-Trace-Id"])
}

func TestTextMapCarrierSetAndForeachKey(t *testing.T) {
	assert := assert.New(t)

	c := TextMapCarrier{}
	c.Set("k", "v")
	seen := map[string]string{}
	assert.NoError(c.ForeachKey(func(k, v string) error {
		seen[k] = v
		return nil
	}))
	assert.Equal("v", seen["k"])
}

func newTestCodec(inject, extract []string) *propagationCodec {
	c := newConfig()
	c.injectionStyles = inject
	c.extractionStyles = extract
	return newPropagationCodec(c)
}

func TestPropagationCodecInjectWritesEveryConfiguredStyle(t *testing.T) {
	assert := assert.New(t)

	codec := newTestCodec([]string{"datadog", "tracecontext"}, nil)
	ctx := newInjectedContext()
	carrier := TextMapCarrier{}
	assert.NoError(codec.inject(ctx, carrier))

	assert.Contains(carrier, headerTraceID)
	assert.Contains(carrier, headerTraceparent)
}

func TestPropagationCodecExtractFirstMatchWins(t *testing.T) {
	assert := assert.New(t)

	codec := newTestCodec(nil, []string{"datadog", "tracecontext"})
	carrier := TextMapCarrier{
		headerTraceID:  "1",
		headerParentID: "2",
	}
	ctx, err := codec.extract(carrier)
	assert.NoError(err)
	assert.Equal(uint64(1), ctx.TraceID())
}

func TestPropagationCodecExtractNotFound(t *testing.T) {
	assert := assert.New(t)

	codec := newTestCodec(nil, []string{"datadog"})
	_, err := codec.extract(TextMapCarrier{})
	assert.Equal(ErrSpanContextNotFound, err)
}

func TestPropagationCodecExtractInconsistentTraceIDsFlagged(t *testing.T) {
	assert := assert.New(t)

	codec := newTestCodec(nil, []string{"datadog", "b3multi"})
	carrier := TextMapCarrier{
		headerTraceID:   "1",
		headerParentID:  "2",
		headerB3TraceID: "2",
		headerB3SpanID:  "2",
	}
	ctx, err := codec.extract(carrier)
	assert.NoError(err)
	assert.Equal(uint64(1), ctx.TraceID(), "first configured style wins the trace id")
	tags := ctx.segment.getPropagatingTags()
	assert.Equal("terminated_context", tags[keyPropagationError])
}

func TestPropagationCodecUnrecognizedStyleIgnored(t *testing.T) {
	assert := assert.New(t)

	codec := newTestCodec([]string{"nonsense"}, nil)
	assert.Empty(codec.injectors)
}

func TestPropagationCodecInjectRejectsBadCarrier(t *testing.T) {
	assert := assert.New(t)

	codec := newTestCodec([]string{"datadog"}, nil)
	err := codec.inject(newInjectedContext(), struct{}{})
	assert.Error(err)
}
