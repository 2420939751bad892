package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dd-tracecore/tracer/ddtrace"
	"github.com/dd-tracecore/tracer/ddtrace/ext"
)

func newTestTracer() *Tracer {
	c := newConfig(WithService("svc"), WithEnv("prod"))
	c.traceSampler = NewTraceSampler(nil)
	return &Tracer{config: c, codec: newPropagationCodec(c), collector: &collector{}}
}

func TestTracerStartSpanAssignsIdentifiers(t *testing.T) {
	assert := assert.New(t)

	tr := newTestTracer()
	sp := tr.StartSpan("op").(*Span)
	assert.NotZero(sp.spanID)
	assert.Equal(sp.spanID, sp.traceID)
	assert.Equal("svc", sp.service)
	assert.Equal("op", sp.resource)
}

func TestTracerStartSpanChildInheritsTraceID(t *testing.T) {
	assert := assert.New(t)

	tr := newTestTracer()
	root := tr.StartSpan("root").(*Span)
	child := tr.StartSpan("child", ChildOf(root.Context())).(*Span)

	assert.Equal(root.traceID, child.traceID)
	assert.Equal(root.spanID, child.parentID)
}

func TestTracerStartSpanAppliesGlobalTagsAndVersion(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(WithService("svc"), WithServiceVersion("9.9.9"), WithGlobalTag("team", "payments"))
	c.traceSampler = NewTraceSampler(nil)
	tr := &Tracer{config: c, codec: newPropagationCodec(c), collector: &collector{}}

	sp := tr.StartSpan("op").(*Span)
	assert.Equal("payments", sp.Tag("team"))
	assert.Equal("9.9.9", sp.Tag(ext.Version))
}

func TestTracerStartSpanHonorsExplicitSpanID(t *testing.T) {
	assert := assert.New(t)

	tr := newTestTracer()
	sp := tr.StartSpan("op", WithSpanID(777)).(*Span)
	assert.EqualValues(777, sp.spanID)
	assert.EqualValues(777, sp.traceID)
}

func TestTracerInjectRejectsUnknownSpanContext(t *testing.T) {
	assert := assert.New(t)

	tr := newTestTracer()
	err := tr.Inject(fakeSpanContext{}, TextMapCarrier{})
	assert.Error(err)
}

func TestTracerInjectExtractRoundTrip(t *testing.T) {
	assert := assert.New(t)

	tr := newTestTracer()
	sp := tr.StartSpan("op").(*Span)
	carrier := TextMapCarrier{}
	assert.NoError(tr.Inject(sp.Context(), carrier))

	extracted, err := tr.Extract(carrier)
	assert.NoError(err)
	assert.Equal(sp.Context().TraceID(), extracted.TraceID())
}

func TestTracerStopIsIdempotent(t *testing.T) {
	assert := assert.New(t)

	col := newCollector(newConfig())
	col.start()
	tr := &Tracer{config: newConfig(), collector: col}
	assert.NotPanics(func() {
		tr.Stop()
		tr.Stop()
	})
}

type fakeSpanContext struct{}

func (fakeSpanContext) SpanID() uint64                                    { return 0 }
func (fakeSpanContext) TraceID() uint64                                   { return 0 }
func (fakeSpanContext) ForeachBaggageItem(handler func(k, v string) bool) {}

var _ ddtrace.SpanContext = fakeSpanContext{}
