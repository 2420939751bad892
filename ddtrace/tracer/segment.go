// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trailofbits/go-mutexasserts"

	"github.com/dd-tracecore/tracer/ddtrace"
	"github.com/dd-tracecore/tracer/ddtrace/ext"
	"github.com/dd-tracecore/tracer/internal/log"
	"github.com/dd-tracecore/tracer/internal/samplernames"
)

// propagating tag and bookkeeping keys written into a span's meta map.
const (
	keyDecisionMaker           = "_dd.p.dm"
	keyTraceID128              = "_dd.p.tid"
	keyBaseService             = "_dd.base_service"
	keyPeerServiceSource       = "_dd.peer.service.source"
	keyPeerServiceRemappedFrom = "_dd.peer.service.remapped_from"
	keyPropagationError        = "_dd.propagation_error"
	keyRulesSamplerAppliedRate = "_dd.rule_psr"
	keyRulesSamplerLimiterRate = "_dd.limit_psr"
)

// samplingDecision is the decision to send a trace's chunk to the collector
// or not, shared across every span in the trace.
type samplingDecision uint32

const (
	decisionNone samplingDecision = iota
	decisionDrop
	decisionKeep
)

// chunkSubmitter is implemented by whatever accepts a TraceSegment's
// completed Chunk — normally a Collector, a fake in tests.
type chunkSubmitter interface {
	SubmitChunk(*Chunk)
}

// Chunk is the set of spans from a single TraceSegment flush, together with
// the sampling decision that determines whether the collector should ship
// it to the agent.
type Chunk struct {
	Spans    []*Span
	WillSend bool
}

var (
	// traceStartSize is the initial capacity of a segment's span buffer.
	traceStartSize = 10
	// traceMaxSize caps the number of spans retained per segment before the
	// segment is marked full and further spans are dropped, guarding
	// against unbounded memory growth on pathologically long traces.
	traceMaxSize = int(1e5)
)

// TraceSegment owns every span belonging to one trace on this process and
// is responsible for the single sampling decision shared across them,
// buffering finished spans and handing a completed Chunk to its collector
// once every span has finished (or, with partial flushing enabled, once a
// configured number have).
type TraceSegment struct {
	root *Span

	mu sync.RWMutex
	// +checklocks:mu
	spans []*Span
	// +checklocks:mu
	tags map[string]string
	// +checklocks:mu
	propagatingTags map[string]string
	// +checklocks:mu
	finished int
	// +checklocks:mu
	full bool
	// +checklocks:mu
	priority *float64
	// +checklocks:mu
	locked bool
	// +checklocks:mu
	manualDecision bool

	samplingDecision samplingDecision // accessed atomically

	clock     Clock
	collector chunkSubmitter

	serviceTag           string
	peerServiceDefaults  bool
	peerServiceMappings  map[string]string
	partialFlush         bool
	partialFlushMinSpans int

	traceSampler *TraceSampler
	spanSampler  *SpanSampler
	env          string
}

func newTraceSegment(clock Clock, collector chunkSubmitter, tc *config) *TraceSegment {
	t := &TraceSegment{
		spans:     make([]*Span, 0, traceStartSize),
		clock:     clock,
		collector: collector,
	}
	if tc != nil {
		t.serviceTag = tc.serviceName
		t.peerServiceDefaults = tc.peerServiceDefaults
		t.peerServiceMappings = tc.peerServiceMappings
		t.partialFlush = tc.partialFlush
		t.partialFlushMinSpans = tc.partialFlushMinSpans
		t.traceSampler = tc.traceSampler
		t.spanSampler = tc.spanSampler
		t.env = tc.env
	}
	return t
}

// ensureSamplingDecision asks the trace sampler for a verdict if the
// segment doesn't already have one, per spec.md §4.3: the decision is made
// lazily, on the first inject, extract or finish of the segment.
func (t *TraceSegment) ensureSamplingDecision() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureSamplingDecisionLocked()
}

// +checklocks:t.mu
func (t *TraceSegment) ensureSamplingDecisionLocked() {
	if t.traceSampler == nil || t.root == nil {
		return
	}
	if _, ok := t.samplingPriorityLocked(); ok {
		return
	}
	t.traceSampler.sampleLocked(t.root, t, t.env)
}

func (t *TraceSegment) keep() {
	atomic.CompareAndSwapUint32((*uint32)(&t.samplingDecision), uint32(decisionNone), uint32(decisionKeep))
}

func (t *TraceSegment) drop() {
	atomic.CompareAndSwapUint32((*uint32)(&t.samplingDecision), uint32(decisionNone), uint32(decisionDrop))
}

func (t *TraceSegment) willSend() bool {
	return samplingDecision(atomic.LoadUint32((*uint32)(&t.samplingDecision))) == decisionKeep
}

func (t *TraceSegment) getPropagatingTags() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.propagatingTags
}

func (t *TraceSegment) setPropagatingTag(k, v string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.propagatingTags == nil {
		t.propagatingTags = make(map[string]string, 1)
	}
	t.propagatingTags[k] = v
}

func (t *TraceSegment) setPropagatingTags(tags map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.propagatingTags = tags
}

func (t *TraceSegment) samplingPriority() (p int, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.samplingPriorityLocked()
}

// +checklocksread:t.mu
func (t *TraceSegment) samplingPriorityLocked() (p int, ok bool) {
	mutexasserts.AssertRWMutexLocked(&t.mu)
	if t.priority == nil {
		return 0, false
	}
	return int(*t.priority), true
}

// setSamplingPriority records the sampling priority p and the mechanism
// that produced it, returning true if this changed the trace's state. A
// locked segment (root already finished) ignores further changes.
func (t *TraceSegment) setSamplingPriority(p int, sampler samplernames.SamplerName) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setSamplingPriorityLocked(p, sampler)
}

// +checklocks:t.mu
func (t *TraceSegment) setSamplingPriorityLocked(p int, sampler samplernames.SamplerName) bool {
	mutexasserts.AssertRWMutexLocked(&t.mu)
	if t.locked {
		return false
	}
	// A user-origin decision, once made, is never silently reverted: a
	// later call carrying a different priority is a no-op regardless of
	// which sampler produced it.
	if t.manualDecision && (t.priority == nil || *t.priority != float64(p)) {
		return false
	}
	changed := t.priority == nil || *t.priority != float64(p)
	if t.priority == nil {
		t.priority = new(float64)
	}
	*t.priority = float64(p)
	if sampler == samplernames.Manual {
		t.manualDecision = true
	}

	curDM, existed := t.propagatingTags[keyDecisionMaker]
	if p > 0 && sampler != samplernames.Unknown {
		dm := sampler.DecisionMaker()
		if !existed || dm != curDM {
			t.setPropagatingTagLocked(keyDecisionMaker, dm)
			return true
		}
	} else if p <= 0 && existed {
		delete(t.propagatingTags, keyDecisionMaker)
	}
	return changed
}

// +checklocks:t.mu
func (t *TraceSegment) setPropagatingTagLocked(k, v string) {
	if t.propagatingTags == nil {
		t.propagatingTags = make(map[string]string, 1)
	}
	t.propagatingTags[k] = v
}

func (t *TraceSegment) setTag(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tags == nil {
		t.tags = make(map[string]string, 1)
	}
	t.tags[key] = value
}

// push adds sp to the segment's span buffer. sp is read without taking its
// lock (the span is newly created and not yet visible elsewhere).
func (t *TraceSegment) push(sp *Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.full {
		return
	}
	if len(t.spans) >= traceMaxSize {
		t.full = true
		t.spans = nil
		log.Error("trace buffer full", "trace buffer full (%d spans), dropping trace", traceMaxSize)
		return
	}
	if v, ok := sp.metrics[keySamplingPriority]; ok {
		t.setSamplingPriorityLocked(int(v), samplernames.Unknown)
	}
	t.spans = append(t.spans, sp)
}

// finishedOne records that sp has finished and, once every span in the
// segment has finished (or a partial-flush threshold is crossed), submits
// a Chunk to the collector. The caller must not hold sp's lock: the
// finalization step locks sp itself to write its tags.
func (t *TraceSegment) finishedOne(sp *Span) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.full {
		return
	}
	t.finished++
	t.ensureSamplingDecisionLocked()
	t.applyFinalizationTagsLocked(sp)

	if sp == t.root && t.priority != nil {
		t.root.setMetric(keySamplingPriority, *t.priority)
		t.locked = true
	}
	if len(t.spans) > 0 && sp == t.spans[0] {
		t.applyTraceTagsLocked(sp)
	}

	if len(t.spans) == t.finished {
		t.flushLocked(t.spans)
		t.spans = nil
		return
	}

	if !t.partialFlush || t.finished < t.partialFlushMinSpans {
		return
	}
	log.Debug("partial flush triggered with %d finished spans", t.finished)
	var finishedSpans, leftoverSpans []*Span
	for _, s2 := range t.spans {
		if s2.finished {
			finishedSpans = append(finishedSpans, s2)
		} else {
			leftoverSpans = append(leftoverSpans, s2)
		}
	}
	if len(finishedSpans) == 0 {
		return
	}
	if t.priority != nil {
		finishedSpans[0].setMetric(keySamplingPriority, *t.priority)
	}
	if sp != t.spans[0] {
		t.applyTraceTagsLocked(finishedSpans[0])
	}
	t.flushLocked(finishedSpans)
	t.spans = leftoverSpans
}

// +checklocks:t.mu
func (t *TraceSegment) flushLocked(spans []*Span) {
	mutexasserts.AssertRWMutexLocked(&t.mu)
	willSend := t.willSend()
	if !willSend && t.spanSampler != nil {
		var kept []*Span
		for _, s2 := range spans {
			if t.spanSampler.apply(s2) {
				kept = append(kept, s2)
			}
		}
		if len(kept) > 0 {
			if t.collector != nil {
				t.collector.SubmitChunk(&Chunk{Spans: kept, WillSend: true})
			}
			t.finished = 0
			return
		}
	}
	if t.collector != nil {
		t.collector.SubmitChunk(&Chunk{Spans: spans, WillSend: willSend})
	}
	t.finished = 0
}

// applyTraceTagsLocked copies every segment-level tag onto s, the first
// span of a chunk — the place the wire format records trace-level state.
// +checklocks:t.mu
func (t *TraceSegment) applyTraceTagsLocked(s *Span) {
	for k, v := range t.tags {
		s.setMeta(k, v)
	}
	for k, v := range t.propagatingTags {
		s.setMeta(k, v)
	}
	if s.context != nil && s.context.traceID.HasUpper() {
		s.setMeta(keyTraceID128, s.context.traceID.UpperHex())
	}
}

// applyFinalizationTagsLocked attaches peer.service and base-service
// enrichment to a finishing span.
// +checklocks:t.mu
func (t *TraceSegment) applyFinalizationTagsLocked(s *Span) {
	setPeerService(s, t.peerServiceDefaults, t.peerServiceMappings)
	if s.service != "" && t.serviceTag != "" && !strings.EqualFold(s.service, t.serviceTag) {
		s.setMeta(keyBaseService, t.serviceTag)
	}
}

// setPeerService derives the peer.service tag for an outbound-request span
// from a priority list of more specific tags, then applies any configured
// remapping.
func setPeerService(s *Span, defaults bool, mappings map[string]string) {
	if _, ok := s.meta[ext.PeerService]; ok {
		s.setMeta(keyPeerServiceSource, ext.PeerService)
	} else {
		spanKind := s.meta[ext.SpanKind]
		isOutbound := spanKind == ext.SpanKindClient || spanKind == ext.SpanKindProducer
		if !isOutbound || !defaults {
			return
		}
		source := setPeerServiceFromSource(s)
		if source == "" {
			return
		}
		s.setMeta(keyPeerServiceSource, source)
	}
	ps := s.meta[ext.PeerService]
	if to, ok := mappings[ps]; ok {
		s.setMeta(keyPeerServiceRemappedFrom, ps)
		s.setMeta(ext.PeerService, to)
	}
}

func setPeerServiceFromSource(s *Span) string {
	has := func(tag string) bool { _, ok := s.meta[tag]; return ok }
	var sources []string
	switch {
	case has(ext.DBSystem):
		sources = []string{ext.DBInstance}
	case has(ext.MessagingSystem):
		sources = []string{ext.MessagingSystem}
	case has(ext.RPCSystem):
		sources = []string{ext.RPCSystem}
	}
	sources = append(sources, ext.TargetHost)
	for _, source := range sources {
		if val, ok := s.meta[source]; ok {
			s.setMeta(ext.PeerService, val)
			return source
		}
	}
	return ""
}

// SpanContext carries the state needed to create a direct descendant of the
// span it belongs to, locally or across a process boundary: the trace and
// span identifiers, baggage, the sampling priority/origin shared with every
// span in the segment, and (when extracted from a remote carrier) the
// propagation bookkeeping a codec needs to round-trip state it doesn't
// otherwise understand.
type SpanContext struct {
	traceID traceID
	spanID  uint64

	segment *TraceSegment

	mu sync.RWMutex
	// +checklocks:mu
	origin string
	// +checklocks:mu
	baggage    map[string]string
	hasBaggage uint32 // accessed atomically

	updated bool // true once priority/origin/tags changed after extraction
}

var _ ddtrace.SpanContext = (*SpanContext)(nil)

// SpanID implements ddtrace.SpanContext.
func (c *SpanContext) SpanID() uint64 {
	if c == nil {
		return 0
	}
	return c.spanID
}

// TraceID implements ddtrace.SpanContext, returning the lower 64 bits.
func (c *SpanContext) TraceID() uint64 {
	if c == nil {
		return 0
	}
	return c.traceID.Lower()
}

// ForeachBaggageItem implements ddtrace.SpanContext.
func (c *SpanContext) ForeachBaggageItem(handler func(k, v string) bool) {
	if c == nil || atomic.LoadUint32(&c.hasBaggage) == 0 {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.baggage {
		if !handler(k, v) {
			break
		}
	}
}

func (c *SpanContext) getOrigin() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.origin
}

func (c *SpanContext) setOrigin(origin string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = origin
}

func (c *SpanContext) setBaggageItem(key, val string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.baggage == nil {
		atomic.StoreUint32(&c.hasBaggage, 1)
		c.baggage = make(map[string]string, 1)
	}
	c.baggage[key] = val
}

func (c *SpanContext) baggageItem(key string) string {
	if atomic.LoadUint32(&c.hasBaggage) == 0 {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baggage[key]
}

func (c *SpanContext) samplingPriority() (int, bool) {
	if c == nil || c.segment == nil {
		return 0, false
	}
	return c.segment.samplingPriority()
}

func (c *SpanContext) setSamplingPriority(p int, sampler samplernames.SamplerName) {
	if c.segment == nil {
		c.segment = newTraceSegment(realClock{}, nil, nil)
	}
	if c.segment.setSamplingPriority(p, sampler) {
		c.updated = true
	}
}

// newSpanContext creates the SpanContext for a newly started span. If
// parent is non-nil, the new context inherits its segment, baggage and
// 128-bit trace id upper bits; otherwise a new segment is created and, when
// enabled, the upper bits are derived from the span's start time.
func newSpanContext(span *Span, parent *SpanContext, gen128BitTraceID bool) *SpanContext {
	ctx := &SpanContext{spanID: span.spanID}
	ctx.traceID.SetLower(span.traceID)

	if parent != nil {
		ctx.traceID.SetUpper(parent.traceID.Upper())
		ctx.segment = parent.segment
		ctx.setOrigin(parent.getOrigin())
		parent.ForeachBaggageItem(func(k, v string) bool {
			ctx.setBaggageItem(k, v)
			return true
		})
	} else if gen128BitTraceID {
		secs := uint32(time.Duration(span.start) / time.Second)
		ctx.traceID.SetUpper(uint64(secs) << 32)
	}
	if ctx.segment == nil {
		ctx.segment = newTraceSegment(realClock{}, nil, nil)
	}
	if ctx.segment.root == nil {
		ctx.segment.root = span
	}
	ctx.segment.push(span)
	ctx.updated = false
	return ctx
}
