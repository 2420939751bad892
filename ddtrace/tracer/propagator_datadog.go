// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"sort"
	"strconv"
	"strings"
)

const (
	headerTraceID           = "x-datadog-trace-id"
	headerParentID          = "x-datadog-parent-id"
	headerSamplingPriority  = "x-datadog-sampling-priority"
	headerOrigin            = "x-datadog-origin"
	headerPropagatedTags    = "x-datadog-tags"
	propagatingTagPrefix    = "_dd.p."
)

type datadogPropagator struct{}

func (*datadogPropagator) name() string { return "datadog" }

func (d *datadogPropagator) inject(ctx *SpanContext, writer DictWriter, maxHeaderSize int) error {
	writer.Set(headerTraceID, strconv.FormatUint(ctx.traceID.Lower(), 10))
	writer.Set(headerParentID, strconv.FormatUint(ctx.spanID, 10))
	if p, ok := ctx.samplingPriority(); ok {
		writer.Set(headerSamplingPriority, strconv.Itoa(p))
	}
	if origin := ctx.getOrigin(); origin != "" {
		writer.Set(headerOrigin, origin)
	}

	tags := ctx.propagatingTagsForInjection()
	if len(tags) == 0 {
		return nil
	}
	encoded := encodePropagatingTags(tags)
	if len(encoded) > maxHeaderSize {
		if ctx.segment != nil {
			ctx.segment.setPropagatingTag(keyPropagationError, "inject_max_size")
		}
		return nil
	}
	writer.Set(headerPropagatedTags, encoded)
	return nil
}

// propagatingTagsForInjection returns the segment's "_dd.p."-prefixed
// propagating tags, per spec.md §3: only those keys cross the wire.
func (c *SpanContext) propagatingTagsForInjection() map[string]string {
	if c.segment == nil {
		return nil
	}
	all := c.segment.getPropagatingTags()
	if len(all) == 0 {
		return nil
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if strings.HasPrefix(k, propagatingTagPrefix) {
			out[k] = v
		}
	}
	return out
}

// encodePropagatingTags renders tags as "k=v,k=v,…" in a deterministic
// (sorted) order so injection is reproducible across calls.
func encodePropagatingTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(tags[k])
	}
	return b.String()
}

// decodePropagatingTags parses the "x-datadog-tags"-style "k=v,k=v,…" form
// back into a map, ignoring malformed entries rather than failing the
// whole extraction.
func decodePropagatingTags(s string) map[string]string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(map[string]string, len(parts))
	for _, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[kv[0]] = kv[1]
	}
	return out
}

func (d *datadogPropagator) extract(reader DictReader) (*extractedContext, error) {
	var traceIDStr, parentIDStr, priorityStr, origin, tagsStr string
	err := reader.ForeachKey(func(key, val string) error {
		switch strings.ToLower(key) {
		case headerTraceID:
			traceIDStr = val
		case headerParentID:
			parentIDStr = val
		case headerSamplingPriority:
			priorityStr = val
		case headerOrigin:
			origin = val
		case headerPropagatedTags:
			tagsStr = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if traceIDStr == "" {
		return nil, nil
	}
	lower, err := strconv.ParseUint(traceIDStr, 10, 64)
	if err != nil {
		return nil, wrapError(KindPropagationMalformed, "malformed "+headerTraceID, err)
	}
	var spanID uint64
	if parentIDStr != "" {
		spanID, err = strconv.ParseUint(parentIDStr, 10, 64)
		if err != nil {
			return nil, wrapError(KindPropagationMalformed, "malformed "+headerParentID, err)
		}
	}
	var tid traceID
	tid.SetLower(lower)

	tags := decodePropagatingTags(tagsStr)
	if hex, ok := tags[keyTraceID128]; ok {
		if upperTID, err := traceIDFromHex(hex); err == nil {
			tid.SetUpper(upperTID.Lower())
		}
	}

	ec := &extractedContext{
		traceID:         tid,
		spanID:          spanID,
		origin:          origin,
		propagatingTags: tags,
		style:           d.name(),
	}
	if priorityStr != "" {
		p, err := strconv.Atoi(priorityStr)
		if err != nil {
			return nil, wrapError(KindPropagationMalformed, "malformed "+headerSamplingPriority, err)
		}
		ec.priority = &p
	}
	return ec, nil
}
