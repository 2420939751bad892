// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Package internal holds process-global state shared by the tracer package
// and any future alternate implementations (e.g. a mock tracer for tests):
// the single active ddtrace.Tracer instance, swapped atomically by
// Start/Stop.
package internal

import (
	"sync/atomic"

	"github.com/dd-tracecore/tracer/ddtrace"
)

var globalTracer atomic.Value

func init() {
	globalTracer.Store(tracerHolder{Tracer: &NoopTracer{}})
}

// tracerHolder lets the zero value stored before the first Store still type
// assert cleanly through atomic.Value, which requires every Store to use the
// same concrete type.
type tracerHolder struct {
	Tracer ddtrace.Tracer
}

// SetGlobalTracer sets the currently active tracer.
func SetGlobalTracer(t ddtrace.Tracer) {
	globalTracer.Store(tracerHolder{Tracer: t})
}

// GetGlobalTracer returns the currently active tracer, or a no-op Tracer if
// none has been started.
func GetGlobalTracer() ddtrace.Tracer {
	return globalTracer.Load().(tracerHolder).Tracer
}

var _ ddtrace.Tracer = (*NoopTracer)(nil)

// NoopTracer is a ddtrace.Tracer that does nothing; it is the tracer in
// effect before Start is called.
type NoopTracer struct{}

// StartSpan implements ddtrace.Tracer.
func (NoopTracer) StartSpan(string, ...ddtrace.StartSpanOption) ddtrace.Span { return NoopSpan{} }

// Extract implements ddtrace.Tracer.
func (NoopTracer) Extract(interface{}) (ddtrace.SpanContext, error) {
	return NoopSpanContext{}, nil
}

// Inject implements ddtrace.Tracer.
func (NoopTracer) Inject(ddtrace.SpanContext, interface{}) error { return nil }

// Stop implements ddtrace.Tracer.
func (NoopTracer) Stop() {}

var _ ddtrace.Span = (*NoopSpan)(nil)

// NoopSpan is a ddtrace.Span that does nothing.
type NoopSpan struct{}

func (NoopSpan) SetTag(string, interface{})           {}
func (NoopSpan) SetOperationName(string)              {}
func (NoopSpan) BaggageItem(string) string            { return "" }
func (NoopSpan) SetBaggageItem(string, string)        {}
func (NoopSpan) Finish(...ddtrace.FinishOption)       {}
func (NoopSpan) Context() ddtrace.SpanContext         { return NoopSpanContext{} }

var _ ddtrace.SpanContext = (*NoopSpanContext)(nil)

// NoopSpanContext is a ddtrace.SpanContext that carries nothing.
type NoopSpanContext struct{}

func (NoopSpanContext) SpanID() uint64                                     { return 0 }
func (NoopSpanContext) TraceID() uint64                                    { return 0 }
func (NoopSpanContext) ForeachBaggageItem(handler func(k, v string) bool) {}
