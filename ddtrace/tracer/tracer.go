// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Package tracer implements the client-side tracing engine: trace
// segments, the sampling engine, the propagation codec, and the collector
// pipeline that ships finished traces to a Datadog-agent-compatible
// endpoint.
package tracer

import (
	"sync"
	"time"

	"github.com/dd-tracecore/tracer/ddtrace"
	"github.com/dd-tracecore/tracer/ddtrace/ext"
	"github.com/dd-tracecore/tracer/ddtrace/internal"
	"github.com/dd-tracecore/tracer/internal/globalconfig"
	"github.com/dd-tracecore/tracer/internal/log"
)

const defaultShutdownTimeout = 3 * time.Second

// Tracer is the concrete ddtrace.Tracer implementation: a factory for root
// TraceSegments and Spans, and the entry point for cross-process
// propagation.
type Tracer struct {
	config    *config
	collector *collector
	codec     *propagationCodec

	stopOnce sync.Once
}

var _ ddtrace.Tracer = (*Tracer)(nil)

// Start initializes a Tracer with the given options, sets it as the global
// tracer returned by package-level calls, and starts its collector's
// background worker. Start is not safe to call concurrently with itself or
// Stop.
func Start(opts ...StartOption) {
	c := newConfig(opts...)
	if c.serviceName != "" {
		globalconfig.SetServiceName(c.serviceName)
	}
	if c.env != "" {
		globalconfig.SetEnv(c.env)
	}
	if c.version != "" {
		globalconfig.SetVersion(c.version)
	}
	if c.logger != nil {
		log.UseLogger(c.logger)
	}

	col := newCollector(c)
	col.start()

	t := &Tracer{
		config:    c,
		collector: col,
		codec:     newPropagationCodec(c),
	}
	internal.SetGlobalTracer(t)
}

// Stop stops the global tracer, flushing buffered traces within a bounded
// deadline. Calls to Stop are idempotent; it is a no-op if Start was never
// called.
func Stop() {
	internal.GetGlobalTracer().Stop()
}

// StartSpan starts a new span using the global tracer, with the given
// operation name and options.
func StartSpan(operationName string, opts ...StartSpanOption) ddtrace.Span {
	return internal.GetGlobalTracer().StartSpan(operationName, opts...)
}

// Extract extracts a SpanContext from carrier using the global tracer.
func Extract(carrier interface{}) (ddtrace.SpanContext, error) {
	return internal.GetGlobalTracer().Extract(carrier)
}

// Inject injects ctx into carrier using the global tracer.
func Inject(ctx ddtrace.SpanContext, carrier interface{}) error {
	return internal.GetGlobalTracer().Inject(ctx, carrier)
}

// StartSpan implements ddtrace.Tracer.
func (t *Tracer) StartSpan(operationName string, options ...ddtrace.StartSpanOption) ddtrace.Span {
	var cfg ddtrace.StartSpanConfig
	for _, fn := range options {
		fn(&cfg)
	}

	var parent *SpanContext
	if cfg.Parent != nil {
		parent, _ = cfg.Parent.(*SpanContext)
	}

	id := cfg.SpanID
	if id == 0 {
		id = t.config.idGenerator.SpanID()
	}
	traceID := id
	var parentID uint64
	if parent != nil {
		traceID = parent.traceID.Lower()
		parentID = parent.spanID
	}

	start := cfg.StartTime
	if start.IsZero() {
		start = t.config.clock.Now()
	}

	sp := &Span{
		name:     operationName,
		service:  t.config.serviceName,
		resource: operationName,
		start:    start.UnixNano(),
		spanID:   id,
		traceID:  traceID,
		parentID: parentID,
	}
	for k, v := range t.config.globalTags {
		sp.SetTag(k, v)
	}
	if t.config.version != "" {
		sp.SetTag(ext.Version, t.config.version)
	}
	if parent == nil && t.config.env != "" {
		sp.SetTag(ext.Environment, t.config.env)
	}
	for k, v := range cfg.Tags {
		sp.SetTag(k, v)
	}

	sp.context = newSpanContext(sp, parent, t.config.gen128BitTraceID)
	sp.context.segment.clock = t.config.clock
	sp.context.segment.collector = t.collector
	sp.context.segment.traceSampler = t.config.traceSampler
	sp.context.segment.spanSampler = t.config.spanSampler
	sp.context.segment.env = t.config.env
	sp.context.segment.serviceTag = t.config.serviceName
	sp.context.segment.peerServiceDefaults = t.config.peerServiceDefaults
	sp.context.segment.peerServiceMappings = t.config.peerServiceMappings
	sp.context.segment.partialFlush = t.config.partialFlush
	sp.context.segment.partialFlushMinSpans = t.config.partialFlushMinSpans
	return sp
}

// Extract implements ddtrace.Tracer.
func (t *Tracer) Extract(carrier interface{}) (ddtrace.SpanContext, error) {
	return t.codec.extract(carrier)
}

// Inject implements ddtrace.Tracer.
func (t *Tracer) Inject(context ddtrace.SpanContext, carrier interface{}) error {
	ctx, ok := context.(*SpanContext)
	if !ok {
		return newError(KindPropagationMalformed, "unrecognized SpanContext implementation")
	}
	if ctx.segment != nil {
		ctx.segment.ensureSamplingDecision()
	}
	return t.codec.inject(ctx, carrier)
}

// Stop implements ddtrace.Tracer, flushing the collector within a bounded
// deadline.
func (t *Tracer) Stop() {
	t.stopOnce.Do(func() {
		if err := t.collector.stop(defaultShutdownTimeout); err != nil {
			log.Error("tracer shutdown", "tracer shutdown: %v", err)
		}
		internal.SetGlobalTracer(&internal.NoopTracer{})
	})
}
