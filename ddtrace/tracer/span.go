// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/dd-tracecore/tracer/ddtrace"
	"github.com/dd-tracecore/tracer/ddtrace/ext"
	"github.com/dd-tracecore/tracer/internal/samplernames"
)

var _ ddtrace.Span = (*Span)(nil)

// Span is both the data a single timed operation carries and the live
// handle callers use to mutate it before Finish. Once finished, a Span's
// data becomes immutable and it is eligible for msgpack encoding by the
// collector.
type Span struct {
	name     string
	service  string
	resource string
	spanType string
	start    int64
	duration int64
	meta     map[string]string
	metrics  map[string]float64
	spanID   uint64
	traceID  uint64
	parentID uint64
	error    int32

	mu       sync.RWMutex
	finished bool

	context *SpanContext
}

// Context returns the SpanContext carried by this span. The returned value
// remains valid after Finish.
func (s *Span) Context() ddtrace.SpanContext { return s.context }

// SetBaggageItem sets a baggage key/value pair that propagates to
// descendant spans, in- and cross-process.
func (s *Span) SetBaggageItem(key, val string) {
	s.context.setBaggageItem(key, val)
}

// BaggageItem returns the value of the given baggage key, or the empty
// string if it isn't set.
func (s *Span) BaggageItem(key string) string {
	return s.context.baggageItem(key)
}

// SetTag sets a key/value pair as metadata on the span, overwriting any
// pre-existing value for key. Numeric values are stored as metrics;
// everything else is stringified into meta. Keys beginning with "_dd." are
// reserved for internal propagation bookkeeping and are silently ignored;
// the segment and samplers write them directly via setMeta/setMetric,
// bypassing this method.
func (s *Span) SetTag(key string, value interface{}) {
	if strings.HasPrefix(key, "_dd.") {
		return
	}
	switch key {
	case ext.ManualKeep, ext.ManualDrop:
		s.setManualSamplingTag(key, value)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// spans aren't locked while being flushed by the collector; finished
	// guards against mutating a span concurrently being encoded.
	if s.finished {
		return
	}
	if v, ok := toFloat64(value); ok {
		switch key {
		case ext.SamplingPriorityV1, ext.SamplingPriority:
			s.setMetricLocked(keySamplingPriority, v)
		default:
			s.setMetricLocked(key, v)
		}
		return
	}
	switch key {
	case ext.ServiceName:
		s.service = fmt.Sprint(value)
	case ext.ResourceName:
		s.resource = fmt.Sprint(value)
	case ext.SpanType:
		s.spanType = fmt.Sprint(value)
	case ext.Error:
		s.setErrorLocked(value)
	default:
		s.setMetaLocked(key, fmt.Sprint(value))
	}
}

// setManualSamplingTag routes ext.ManualKeep/ext.ManualDrop into the
// trace's override_sampling_priority operation instead of storing them as
// an inert meta tag. Called without s.mu held: setSamplingPriority reaches
// into the segment, and segment mu is always acquired before a fresh span
// mu, never the other way around.
func (s *Span) setManualSamplingTag(key string, value interface{}) {
	v, ok := value.(bool)
	if !ok || !v {
		return
	}
	p := ext.PriorityUserKeep
	if key == ext.ManualDrop {
		p = ext.PriorityUserReject
	}
	s.context.setSamplingPriority(p, samplernames.Manual)
}

func (s *Span) setErrorLocked(value interface{}) {
	switch v := value.(type) {
	case bool:
		if v {
			s.error = 1
		} else {
			s.error = 0
		}
	case error:
		s.error = 1
		s.setMetaLocked(ext.ErrorMsg, v.Error())
		s.setMetaLocked(ext.ErrorType, reflect.TypeOf(v).String())
		s.setMetaLocked(ext.ErrorStack, string(debug.Stack()))
	case nil:
		s.error = 0
	default:
		s.error = 1
	}
}

func (s *Span) setMetaLocked(key, value string) {
	if s.meta == nil {
		s.meta = make(map[string]string, 1)
	}
	s.meta[key] = value
}

func (s *Span) setMetricLocked(key string, value float64) {
	if s.metrics == nil {
		s.metrics = make(map[string]float64, 1)
	}
	s.metrics[key] = value
}

// setMeta sets a meta entry directly, locking s.mu itself. Used by the
// segment and samplers to annotate a span from outside the SetTag path.
func (s *Span) setMeta(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMetaLocked(key, value)
}

// setMetric sets a metric entry directly, locking s.mu itself.
func (s *Span) setMetric(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMetricLocked(key, value)
}

// Tag returns the value of the given tag, checking metrics before meta, or
// nil if it isn't set. Intended for tests and debugging; the wire protocol
// only ever sees the whole meta/metrics maps via EncodeMsg.
func (s *Span) Tag(key string) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.metrics[key]; ok {
		return v
	}
	if v, ok := s.meta[key]; ok {
		return v
	}
	return nil
}

// SetOperationName sets or changes the span's operation name.
func (s *Span) SetOperationName(operationName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = operationName
}

// Finish finishes the span with the given options. Finish is idempotent:
// calling it more than once has no effect beyond the first call.
func (s *Span) Finish(opts ...ddtrace.FinishOption) {
	var cfg ddtrace.FinishConfig
	for _, fn := range opts {
		fn(&cfg)
	}
	if cfg.Error != nil {
		s.SetTag(ext.Error, cfg.Error)
	}
	var t int64
	if cfg.FinishTime.IsZero() {
		t = s.context.segment.clock.Now().UnixNano()
	} else {
		t = cfg.FinishTime.UnixNano()
	}
	s.finish(t)
}

func (s *Span) finish(finishTime int64) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	if s.duration == 0 {
		s.duration = finishTime - s.start
	}
	s.finished = true
	s.mu.Unlock()
	// segment.finishedOne may need to lock the root span (possibly this
	// one, possibly another) to record sampling tags; releasing s.mu
	// first keeps lock order consistent as span mu -> segment mu never
	// nests the other way.
	s.context.segment.finishedOne(s)
}

// String returns a human readable representation of the span, for debugging.
func (s *Span) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := []string{
		fmt.Sprintf("name: %s", s.name),
		fmt.Sprintf("service: %s", s.service),
		fmt.Sprintf("resource: %s", s.resource),
		fmt.Sprintf("trace_id: %d", s.traceID),
		fmt.Sprintf("span_id: %d", s.spanID),
		fmt.Sprintf("parent_id: %d", s.parentID),
		fmt.Sprintf("error: %d", s.error),
		"tags:",
	}
	for k, v := range s.meta {
		lines = append(lines, fmt.Sprintf("\t%s:%s", k, v))
	}
	return strings.Join(lines, "\n")
}

// keySamplingPriority is the metric key under which the sampling priority is
// stored on the first span of a chunk.
const keySamplingPriority = "_sampling_priority_v1"

// toFloat64 attempts to convert value into a float64, returning false if
// value isn't a recognized numeric kind.
func toFloat64(value interface{}) (f float64, ok bool) {
	switch i := value.(type) {
	case byte:
		return float64(i), true
	case float32:
		return float64(i), true
	case float64:
		return i, true
	case int:
		return float64(i), true
	case int8:
		return float64(i), true
	case int16:
		return float64(i), true
	case int32:
		return float64(i), true
	case int64:
		return float64(i), true
	case uint:
		return float64(i), true
	case uint16:
		return float64(i), true
	case uint32:
		return float64(i), true
	case uint64:
		return float64(i), true
	default:
		return 0, false
	}
}
