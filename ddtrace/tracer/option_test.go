package tracer

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dd-tracecore/tracer/ddtrace"
	"github.com/dd-tracecore/tracer/ddtrace/ext"
)

func TestNewConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	c := newConfig()
	assert.Equal(defaultAgentURL, c.agentURL)
	assert.Equal(defaultInjectionStyles, c.injectionStyles)
	assert.Equal(defaultExtractionStyles, c.extractionStyles)
	assert.Equal(defaultTagsHeaderSize, c.tagsHeaderMaxSize)
	assert.Equal(defaultFlushInterval, c.flushInterval)
	assert.Equal(defaultMaxBatchBytes, c.maxBatchBytes)
	assert.True(c.gen128BitTraceID)
	assert.NotNil(c.traceSampler)
	assert.Nil(c.spanSampler)
}

func TestWithServiceEnvVersion(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(WithService("svc"), WithEnv("prod"), WithServiceVersion("1.2.3"))
	assert.Equal("svc", c.serviceName)
	assert.Equal("prod", c.env)
	assert.Equal("1.2.3", c.version)
}

func TestWithGlobalTag(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(WithGlobalTag("team", "payments"), WithGlobalTag("tier", 1))
	assert.Equal("payments", c.globalTags["team"])
	assert.Equal(1, c.globalTags["tier"])
}

func TestWithPropagationStyles(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(
		WithPropagationStyleInject("b3", "datadog"),
		WithPropagationStyleExtract("tracecontext"),
	)
	assert.Equal([]string{"b3", "datadog"}, c.injectionStyles)
	assert.Equal([]string{"tracecontext"}, c.extractionStyles)
}

func TestWithSamplingRulesBuildsSampler(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(WithSamplingRules([]Rule{{Service: "web", Rate: 0.5}}))
	assert.NotNil(c.traceSampler)
}

func TestWithSpanSamplingRulesBuildsSampler(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(WithSpanSamplingRules([]SpanSamplingRule{{Rate: 1}}))
	assert.NotNil(c.spanSampler)
}

func TestWithFlushIntervalAndMaxBatchBytes(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(WithFlushInterval(5*time.Second), WithMaxBatchBytes(1024))
	assert.Equal(5*time.Second, c.flushInterval)
	assert.Equal(1024, c.maxBatchBytes)
}

func TestWithHTTPClient(t *testing.T) {
	assert := assert.New(t)

	client := &http.Client{}
	c := newConfig(WithHTTPClient(client))
	assert.Same(client, c.httpClient)
}

func TestWithStatsClientOverridesDirectly(t *testing.T) {
	assert := assert.New(t)

	fake := fakeStatsClient{}
	c := newConfig(WithStatsClient(fake))
	assert.Equal(fake, c.statsClient)
}

func TestWithDogstatsdAddrDisablesStatsOnDialFailure(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(WithDogstatsdAddr("not a valid address"))
	assert.Nil(c.statsClient)
}

type fakeStatsClient struct{}

func (fakeStatsClient) Count(name string, value int64, tags []string, rate float64) error { return nil }
func (fakeStatsClient) Gauge(name string, value float64, tags []string, rate float64) error {
	return nil
}

func TestWithPeerServiceOptions(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(WithPeerServiceDefaults(true), WithPeerServiceMapping("raw", "friendly"))
	assert.True(c.peerServiceDefaults)
	assert.Equal("friendly", c.peerServiceMappings["raw"])
}

func TestWithPartialFlush(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(WithPartialFlush(50))
	assert.True(c.partialFlush)
	assert.Equal(50, c.partialFlushMinSpans)
}

func TestWithPartialFlushKeepsDefaultMinSpansWhenZero(t *testing.T) {
	assert := assert.New(t)

	c := newConfig(WithPartialFlush(0))
	assert.True(c.partialFlush)
	assert.Equal(defaultPartialMinSpans, c.partialFlushMinSpans)
}

func TestChildOfSetsParent(t *testing.T) {
	assert := assert.New(t)

	parent := &SpanContext{spanID: 1}
	var cfg ddtrace.StartSpanConfig
	ChildOf(parent)(&cfg)
	assert.Same(parent, cfg.Parent)
}

func TestServiceResourceSpanTypeOptions(t *testing.T) {
	assert := assert.New(t)

	var cfg ddtrace.StartSpanConfig
	for _, opt := range []StartSpanOption{ServiceName("svc"), ResourceName("GET /x"), SpanType("web"), Tag("k", "v")} {
		opt(&cfg)
	}

	assert.Equal("svc", cfg.Tags[ext.ServiceName])
	assert.Equal("GET /x", cfg.Tags[ext.ResourceName])
	assert.Equal("web", cfg.Tags[ext.SpanType])
	assert.Equal("v", cfg.Tags["k"])
}

func TestWithStartTimeAndSpanID(t *testing.T) {
	assert := assert.New(t)

	var cfg ddtrace.StartSpanConfig
	WithStartTime(time.Unix(100, 0))(&cfg)
	WithSpanID(42)(&cfg)
	assert.Equal(int64(100), cfg.StartTime.Unix())
	assert.EqualValues(42, cfg.SpanID)
}

func TestFinishOptionHelpers(t *testing.T) {
	assert := assert.New(t)

	var cfg ddtrace.FinishConfig
	FinishTime(time.Unix(100, 0))(&cfg)
	WithError(errors.New("boom"))(&cfg)
	assert.Equal(int64(100), cfg.FinishTime.Unix())
	assert.Error(cfg.Error)
}
