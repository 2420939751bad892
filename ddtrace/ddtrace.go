// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Package ddtrace contains the interfaces that specify the core tracing
// engine implemented by the "tracer" sub-package: a Tracer facade which
// creates TraceSegments and Spans, propagates SpanContexts across carriers,
// and ships finished traces to a Datadog-agent-compatible collector.
//
// This package only declares contracts. The concrete, thread-safe
// implementation lives in ddtrace/tracer; ddtrace/ext carries the shared
// set of tag names and values used across both.
package ddtrace

import (
	"time"
)

// Tracer specifies the minimal facade every tracing engine exposes: starting
// spans, and propagating span contexts across carriers.
type Tracer interface {
	// StartSpan starts a span with the given operation name and options.
	StartSpan(operationName string, opts ...StartSpanOption) Span

	// Extract extracts a span context from a carrier. If the carrier
	// contains no recognizable context, ErrSpanContextNotFound is
	// returned.
	Extract(carrier interface{}) (SpanContext, error)

	// Inject injects a span context into the given carrier.
	Inject(context SpanContext, carrier interface{}) error

	// Stop stops the tracer, flushing any buffered traces within a
	// bounded deadline. Calls to Stop are idempotent.
	Stop()
}

// Span represents one timed operation, contributing to a trace.
type Span interface {
	// SetTag sets a key/value pair as metadata on the span. Values that
	// are numeric are stored as metrics; everything else is stringified
	// into meta. Keys beginning with "_dd." are reserved and silently
	// ignored.
	SetTag(key string, value interface{})

	// SetOperationName sets the operation name for this span.
	SetOperationName(operationName string)

	// BaggageItem returns the baggage item held by the given key.
	BaggageItem(key string) string

	// SetBaggageItem sets a baggage item which propagates to descendant
	// spans, in- and cross-process.
	SetBaggageItem(key, val string)

	// Finish finishes the span with the given options. Finish is
	// idempotent: calling it more than once is a no-op.
	Finish(opts ...FinishOption)

	// Context returns the SpanContext of this span. The returned value
	// remains valid after Finish.
	Context() SpanContext
}

// SpanContext carries the state needed to create a direct descendant of the
// span it belongs to, locally or across a process boundary.
type SpanContext interface {
	// SpanID returns the span id this context is carrying, or 0 if none.
	SpanID() uint64

	// TraceID returns the lower 64 bits of the trace id this context is
	// carrying, or 0 if none.
	TraceID() uint64

	// ForeachBaggageItem iterates over baggage key/value pairs. Iteration
	// stops when handler returns false.
	ForeachBaggageItem(handler func(k, v string) bool)
}

// Logger is the minimal sink the core consumes for diagnostics. Anything
// richer (structured fields, levels, sinks) is the caller's responsibility;
// the core only ever calls Log with a single preformatted line.
type Logger interface {
	Log(msg string)
}

// StartSpanOption configures a StartSpanConfig used by Tracer.StartSpan.
type StartSpanOption func(cfg *StartSpanConfig)

// FinishOption configures a FinishConfig used by Span.Finish.
type FinishOption func(cfg *FinishConfig)

// StartSpanConfig holds the configuration assembled by a chain of
// StartSpanOptions before a span is created.
type StartSpanConfig struct {
	// Parent is the SpanContext to use as parent. A nil Parent starts a
	// new trace.
	Parent SpanContext

	// StartTime is used as the span's start time; the current time is
	// used when the zero value is given.
	StartTime time.Time

	// Tags holds key/value pairs applied to the span at creation.
	Tags map[string]interface{}

	// SpanID overrides the randomly generated span id. When Parent is
	// nil, it also becomes the trace id.
	SpanID uint64
}

// FinishConfig holds the configuration assembled by a chain of FinishOptions
// before a span is finished.
type FinishConfig struct {
	// FinishTime is used as the span's finish time; the current time is
	// used when the zero value is given.
	FinishTime time.Time

	// Error, if non-nil, is set as the span's error before finishing.
	Error error
}
