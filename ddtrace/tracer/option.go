// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"net/http"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/dd-tracecore/tracer/ddtrace"
	"github.com/dd-tracecore/tracer/ddtrace/ext"
	"github.com/dd-tracecore/tracer/internal/log"
)

// StartOption configures a config used to start a Tracer.
type StartOption func(c *config)

// config holds every programmatic knob a Tracer is constructed with. It is
// never read from the environment; a caller that wants DD_* variables
// honored must translate them into StartOptions itself.
type config struct {
	agentURL string

	serviceName string
	env         string
	version     string
	globalTags  map[string]interface{}

	injectionStyles []string
	extractionStyles []string
	tagsHeaderMaxSize int

	samplingRules     []Rule
	spanSamplingRules []SpanSamplingRule

	flushInterval   time.Duration
	maxBatchBytes   int
	httpClient      *http.Client

	peerServiceDefaults bool
	peerServiceMappings map[string]string
	partialFlush        bool
	partialFlushMinSpans int

	logger      ddtrace.Logger
	clock       Clock
	idGenerator IDGenerator

	gen128BitTraceID bool

	traceSampler *TraceSampler
	spanSampler  *SpanSampler

	statsClient StatsClient
}

const (
	defaultAgentURL        = "http://localhost:8126"
	defaultFlushInterval   = 2 * time.Second
	defaultMaxBatchBytes   = 2 << 20 // 2 MiB, per the agent's default request size ceiling
	defaultTagsHeaderSize  = 512
	defaultPartialMinSpans = 1000
)

var defaultInjectionStyles = []string{"datadog", "tracecontext"}
var defaultExtractionStyles = []string{"datadog", "tracecontext"}

func newConfig(opts ...StartOption) *config {
	c := &config{
		agentURL:          defaultAgentURL,
		injectionStyles:   append([]string(nil), defaultInjectionStyles...),
		extractionStyles:  append([]string(nil), defaultExtractionStyles...),
		tagsHeaderMaxSize: defaultTagsHeaderSize,
		flushInterval:     defaultFlushInterval,
		maxBatchBytes:     defaultMaxBatchBytes,
		partialFlushMinSpans: defaultPartialMinSpans,
		clock:             realClock{},
		idGenerator:       randomIDGenerator{},
		gen128BitTraceID:  true,
	}
	for _, fn := range opts {
		fn(c)
	}
	if c.traceSampler == nil {
		c.traceSampler = NewTraceSampler(c.samplingRules)
	}
	if c.spanSampler == nil && len(c.spanSamplingRules) > 0 {
		c.spanSampler = NewSpanSampler(c.spanSamplingRules)
	}
	return c
}

// WithAgentAddr sets the address (scheme://host:port, or a unix socket URL,
// per spec.md §6) of the agent this tracer submits traces to.
func WithAgentAddr(url string) StartOption {
	return func(c *config) { c.agentURL = url }
}

// WithService sets the default service name for spans that don't set their
// own.
func WithService(name string) StartOption {
	return func(c *config) { c.serviceName = name }
}

// WithEnv sets the env tag applied to the tracer's root spans and used as
// part of the agent-rate lookup key.
func WithEnv(env string) StartOption {
	return func(c *config) { c.env = env }
}

// WithServiceVersion sets the version tag applied to the tracer's spans.
func WithServiceVersion(version string) StartOption {
	return func(c *config) { c.version = version }
}

// WithGlobalTag sets a key/value pair that is applied to every span started
// by this tracer.
func WithGlobalTag(k string, v interface{}) StartOption {
	return func(c *config) {
		if c.globalTags == nil {
			c.globalTags = make(map[string]interface{}, 1)
		}
		c.globalTags[k] = v
	}
}

// WithPropagationStyleInject sets the ordered list of propagation styles
// (any of "datadog", "tracecontext", "b3multi", "b3") that Inject writes.
func WithPropagationStyleInject(styles ...string) StartOption {
	return func(c *config) { c.injectionStyles = styles }
}

// WithPropagationStyleExtract sets the ordered list of propagation styles
// that Extract attempts, first match wins.
func WithPropagationStyleExtract(styles ...string) StartOption {
	return func(c *config) { c.extractionStyles = styles }
}

// WithHeaderTagsMaxSize bounds the serialized size, in bytes, of the
// Datadog "x-datadog-tags" propagation header and the tracecontext
// "tracestate" dd-segment. Tags that would push the header over this
// budget are elided from injection and recorded locally under
// "_dd.propagation_error".
func WithHeaderTagsMaxSize(n int) StartOption {
	return func(c *config) { c.tagsHeaderMaxSize = n }
}

// WithSamplingRules configures the TraceSampler's rules, evaluated in order
// against each trace's root span.
func WithSamplingRules(rules []Rule) StartOption {
	return func(c *config) { c.samplingRules = rules }
}

// WithSpanSamplingRules configures the SpanSampler's rules, applied to
// individual spans when their trace is rejected by the TraceSampler.
func WithSpanSamplingRules(rules []SpanSamplingRule) StartOption {
	return func(c *config) { c.spanSamplingRules = rules }
}

// WithFlushInterval sets how often the collector flushes a batch to the
// agent even if the byte budget hasn't been reached.
func WithFlushInterval(d time.Duration) StartOption {
	return func(c *config) { c.flushInterval = d }
}

// WithMaxBatchBytes sets the serialized batch size at which the collector
// flushes early: the batch is sent as soon as adding a trace brings it to or
// past n bytes, so a single batch can exceed n by up to one trace.
func WithMaxBatchBytes(n int) StartOption {
	return func(c *config) { c.maxBatchBytes = n }
}

// WithHTTPClient overrides the *http.Client used to submit batches. Without
// it, the collector builds its own client, which dials the socket path
// itself for "unix://", "http+unix://" and "https+unix://" agent addresses.
func WithHTTPClient(client *http.Client) StartOption {
	return func(c *config) { c.httpClient = client }
}

// WithLogger overrides the logger the core reports degraded-trace and
// collector errors to.
func WithLogger(l ddtrace.Logger) StartOption {
	return func(c *config) { c.logger = l }
}

// WithClock overrides the time source spans use for start/finish
// timestamps. Intended for tests.
func WithClock(clock Clock) StartOption {
	return func(c *config) { c.clock = clock }
}

// WithIDGenerator overrides the span/trace id source. Intended for tests.
func WithIDGenerator(gen IDGenerator) StartOption {
	return func(c *config) { c.idGenerator = gen }
}

// With128BitTraceIDGeneration toggles whether newly started root spans
// generate non-zero upper 64 bits for their trace id. Enabled by default.
func With128BitTraceIDGeneration(enabled bool) StartOption {
	return func(c *config) { c.gen128BitTraceID = enabled }
}

// WithPeerServiceDefaults enables inferring the "peer.service" tag from
// other span tags (db.instance, messaging.system, rpc.system, out.host) on
// outbound-request spans that don't set it explicitly.
func WithPeerServiceDefaults(enabled bool) StartOption {
	return func(c *config) { c.peerServiceDefaults = enabled }
}

// WithPeerServiceMapping remaps a derived or explicit "peer.service" value
// to another value, recording the original under
// "_dd.peer.service.remapped_from".
func WithPeerServiceMapping(from, to string) StartOption {
	return func(c *config) {
		if c.peerServiceMappings == nil {
			c.peerServiceMappings = make(map[string]string, 1)
		}
		c.peerServiceMappings[from] = to
	}
}

// WithDogstatsdAddr points the collector's operational counters
// (datadog.tracer.flushed_traces, datadog.tracer.flush_errors) at a
// dogstatsd listener. addr follows statsd.New's own "host:port" or
// "unix:///path" conventions. A dial failure disables stats reporting
// for this Tracer rather than failing tracer construction.
func WithDogstatsdAddr(addr string) StartOption {
	return func(c *config) {
		client, err := statsd.New(addr)
		if err != nil {
			log.Warn("could not construct dogstatsd client for %q: %v", addr, err)
			return
		}
		c.statsClient = client
	}
}

// WithStatsClient overrides the StatsClient the collector reports
// operational counters through, bypassing WithDogstatsdAddr's own
// dogstatsd construction. Intended for tests and for callers that
// already manage a shared statsd.Client.
func WithStatsClient(client StatsClient) StartOption {
	return func(c *config) { c.statsClient = client }
}

// WithPartialFlush enables emitting a trace's finished spans in batches of
// at least minSpans rather than waiting for every span to finish, bounding
// memory use for very long-lived traces.
func WithPartialFlush(minSpans int) StartOption {
	return func(c *config) {
		c.partialFlush = true
		if minSpans > 0 {
			c.partialFlushMinSpans = minSpans
		}
	}
}

// StartSpanOption configures a ddtrace.StartSpanConfig used by StartSpan.
type StartSpanOption = ddtrace.StartSpanOption

// ChildOf sets the parent SpanContext for a new span, joining it to the
// parent's trace.
func ChildOf(ctx ddtrace.SpanContext) StartSpanOption {
	return func(cfg *ddtrace.StartSpanConfig) { cfg.Parent = ctx }
}

// WithStartTime sets the span's start time, overriding the clock.
func WithStartTime(t time.Time) StartSpanOption {
	return func(cfg *ddtrace.StartSpanConfig) { cfg.StartTime = t }
}

// WithSpanID overrides the randomly generated span id. If the span has no
// parent, it also becomes the trace id.
func WithSpanID(id uint64) StartSpanOption {
	return func(cfg *ddtrace.StartSpanConfig) { cfg.SpanID = id }
}

// Tag sets a tag on the span at creation time, equivalent to calling
// SetTag immediately after StartSpan.
func Tag(k string, v interface{}) StartSpanOption {
	return func(cfg *ddtrace.StartSpanConfig) {
		if cfg.Tags == nil {
			cfg.Tags = make(map[string]interface{}, 1)
		}
		cfg.Tags[k] = v
	}
}

// ServiceName sets the span's service tag at creation time.
func ServiceName(name string) StartSpanOption { return Tag(ext.ServiceName, name) }

// ResourceName sets the span's resource tag at creation time.
func ResourceName(name string) StartSpanOption { return Tag(ext.ResourceName, name) }

// SpanType sets the span's type tag at creation time.
func SpanType(name string) StartSpanOption { return Tag(ext.SpanType, name) }

// FinishOption configures a ddtrace.FinishConfig used by Span.Finish.
type FinishOption = ddtrace.FinishOption

// FinishTime sets the time used to compute the span's duration, overriding
// the clock.
func FinishTime(t time.Time) FinishOption {
	return func(cfg *ddtrace.FinishConfig) { cfg.FinishTime = t }
}

// WithError sets the error tag on the span as it finishes.
func WithError(err error) FinishOption {
	return func(cfg *ddtrace.FinishConfig) { cfg.Error = err }
}
