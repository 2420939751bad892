// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"net/http"

	"github.com/dd-tracecore/tracer/internal/log"
	"github.com/dd-tracecore/tracer/internal/samplernames"
)

// DictReader is a read-only view over an external carrier's key/value
// pairs (HTTP headers, gRPC metadata, …) that a propagation style reads
// trace context from.
type DictReader interface {
	// ForeachKey calls handler once per key/value pair in the carrier.
	// Iteration stops on the first error handler returns, which
	// ForeachKey then returns.
	ForeachKey(handler func(key, val string) error) error
}

// DictWriter is a write-only view over an external carrier that a
// propagation style writes trace context into.
type DictWriter interface {
	// Set sets the given key/value pair on the carrier.
	Set(key, val string)
}

// HTTPHeadersCarrier adapts http.Header to DictReader/DictWriter.
type HTTPHeadersCarrier http.Header

// Set implements DictWriter.
func (c HTTPHeadersCarrier) Set(key, val string) { http.Header(c).Set(key, val) }

// ForeachKey implements DictReader.
func (c HTTPHeadersCarrier) ForeachKey(handler func(key, val string) error) error {
	for k, vals := range c {
		for _, v := range vals {
			if err := handler(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// TextMapCarrier adapts a plain map[string]string to DictReader/DictWriter,
// the shape most non-HTTP carriers (gRPC metadata snapshots, Kafka headers
// turned into a map) naturally take.
type TextMapCarrier map[string]string

// Set implements DictWriter.
func (c TextMapCarrier) Set(key, val string) { c[key] = val }

// ForeachKey implements DictReader.
func (c TextMapCarrier) ForeachKey(handler func(key, val string) error) error {
	for k, v := range c {
		if err := handler(k, v); err != nil {
			return err
		}
	}
	return nil
}

// extractedContext is the result of a single style's extraction attempt:
// enough to reconstruct a SpanContext, plus which style produced it for
// tie-breaking diagnostics.
type extractedContext struct {
	traceID         traceID
	spanID          uint64
	origin          string
	priority        *int
	propagatingTags map[string]string
	style           string
}

// propagator implements one wire style's inject/extract pair.
type propagator interface {
	name() string
	inject(ctx *SpanContext, writer DictWriter, maxHeaderSize int) error
	extract(reader DictReader) (*extractedContext, error)
}

// propagationCodec chains the configured injection and extraction styles,
// implementing the first-match-wins / consistency-checked extraction order
// from spec.md §4.2.
type propagationCodec struct {
	injectors  []propagator
	extractors []propagator

	maxHeaderSize int
}

func newPropagationCodec(c *config) *propagationCodec {
	all := map[string]propagator{
		"datadog":      &datadogPropagator{},
		"tracecontext": &tracecontextPropagator{},
		"b3multi":      &b3MultiPropagator{},
		"b3":           &b3SinglePropagator{},
	}
	resolve := func(names []string) []propagator {
		var out []propagator
		for _, n := range names {
			if p, ok := all[n]; ok {
				out = append(out, p)
			} else {
				log.Warn("unrecognized propagation style %q, ignoring", n)
			}
		}
		return out
	}
	return &propagationCodec{
		injectors:     resolve(c.injectionStyles),
		extractors:    resolve(c.extractionStyles),
		maxHeaderSize: c.tagsHeaderMaxSize,
	}
}

// ErrSpanContextNotFound is returned by Extract when the carrier contains
// no context recognizable by any configured extraction style.
var ErrSpanContextNotFound = newError(KindPropagationMalformed, "no span context found in carrier")

func (p *propagationCodec) inject(ctx *SpanContext, carrier interface{}) error {
	writer, ok := carrier.(DictWriter)
	if !ok {
		return newError(KindPropagationMalformed, "carrier does not implement DictWriter")
	}
	for _, style := range p.injectors {
		if err := style.inject(ctx, writer, p.maxHeaderSize); err != nil {
			log.Debug("propagation style %s: inject failed: %v", style.name(), err)
		}
	}
	return nil
}

func (p *propagationCodec) extract(carrier interface{}) (*SpanContext, error) {
	reader, ok := carrier.(DictReader)
	if !ok {
		return nil, newError(KindPropagationMalformed, "carrier does not implement DictReader")
	}

	var winner *extractedContext
	for _, style := range p.extractors {
		ec, err := style.extract(reader)
		if err != nil {
			log.Debug("propagation style %s: extract failed: %v", style.name(), err)
			continue
		}
		if ec == nil {
			continue
		}
		if winner == nil {
			winner = ec
			continue
		}
		if winner.traceID != ec.traceID {
			winner.propagatingTags = mergeTag(winner.propagatingTags, keyPropagationError, "terminated_context")
		}
	}
	if winner == nil {
		return nil, ErrSpanContextNotFound
	}

	ctx := &SpanContext{traceID: winner.traceID, spanID: winner.spanID}
	ctx.setOrigin(winner.origin)
	seg := newTraceSegment(realClock{}, nil, nil)
	seg.setPropagatingTags(winner.propagatingTags)
	if winner.priority != nil {
		seg.setSamplingPriority(*winner.priority, samplernames.Default)
	}
	ctx.segment = seg
	return ctx, nil
}

func mergeTag(tags map[string]string, k, v string) map[string]string {
	if tags == nil {
		tags = make(map[string]string, 1)
	}
	tags[k] = v
	return tags
}
