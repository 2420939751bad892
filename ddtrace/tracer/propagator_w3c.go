// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	headerTraceparent = "traceparent"
	headerTracestate  = "tracestate"
)

type tracecontextPropagator struct{}

func (*tracecontextPropagator) name() string { return "tracecontext" }

func (p *tracecontextPropagator) inject(ctx *SpanContext, writer DictWriter, maxHeaderSize int) error {
	flags := byte(0)
	if v, ok := ctx.samplingPriority(); ok && v > 0 {
		flags = 1
	}
	tid := ctx.traceID
	if !tid.HasUpper() {
		// tracecontext is natively 128-bit; a trace id with no upper half
		// set yet still needs a full 32 hex digits on the wire.
		tid.SetUpper(0)
	}
	writer.Set(headerTraceparent, fmt.Sprintf("00-%s-%016x-%02x", tid.HexEncoded(), ctx.spanID, flags))

	state := p.encodeTracestate(ctx)
	if maxHeaderSize > 0 && len(state) > maxHeaderSize {
		if ctx.segment != nil {
			ctx.segment.setPropagatingTag(keyPropagationError, "inject_max_size")
		}
		return nil
	}
	if state != "" {
		writer.Set(headerTracestate, state)
	}
	return nil
}

func (p *tracecontextPropagator) encodeTracestate(ctx *SpanContext) string {
	var dd []string
	if v, ok := ctx.samplingPriority(); ok {
		dd = append(dd, "s:"+strconv.Itoa(v))
	}
	if origin := ctx.getOrigin(); origin != "" {
		dd = append(dd, "o:"+sanitizeTracestateValue(origin))
	}
	for k, v := range ctx.propagatingTagsForInjection() {
		name := strings.TrimPrefix(k, propagatingTagPrefix)
		dd = append(dd, "t."+name+":"+sanitizeTracestateValue(v))
	}
	if len(dd) == 0 {
		return ""
	}
	return "dd=" + strings.Join(dd, ";")
}

// sanitizeTracestateValue replaces characters the tracestate grammar
// disallows inside a member's value: "," and ";" become "_", and "=" becomes
// "~" (which extraction turns back into "=").
func sanitizeTracestateValue(v string) string {
	return strings.NewReplacer(",", "_", "=", "~", ";", "_").Replace(v)
}

func (p *tracecontextPropagator) extract(reader DictReader) (*extractedContext, error) {
	var traceparent, tracestate string
	err := reader.ForeachKey(func(key, val string) error {
		switch strings.ToLower(key) {
		case headerTraceparent:
			traceparent = val
		case headerTracestate:
			tracestate = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if traceparent == "" {
		return nil, nil
	}
	parts := strings.Split(traceparent, "-")
	if len(parts) < 4 {
		return nil, newError(KindPropagationMalformed, "malformed traceparent")
	}
	version, traceHex, spanHex, flagsHex := parts[0], parts[1], parts[2], parts[3]
	if version != "00" {
		return nil, newError(KindPropagationMalformed, "unsupported traceparent version: "+version)
	}
	if len(traceHex) != 32 || len(spanHex) != 16 {
		return nil, newError(KindPropagationMalformed, "malformed traceparent ids")
	}
	tid, err := traceIDFromHex(traceHex)
	if err != nil {
		return nil, wrapError(KindPropagationMalformed, "malformed traceparent trace id", err)
	}
	spanID, err := strconv.ParseUint(spanHex, 16, 64)
	if err != nil {
		return nil, wrapError(KindPropagationMalformed, "malformed traceparent span id", err)
	}
	flags, err := strconv.ParseUint(flagsHex, 16, 8)
	if err != nil {
		return nil, wrapError(KindPropagationMalformed, "malformed traceparent flags", err)
	}

	ec := &extractedContext{traceID: tid, spanID: spanID, style: p.name()}
	sampled := flags&1 == 1
	priority := 0
	if sampled {
		priority = 1
	}

	origin, tags := parseDDTracestate(tracestate)
	ec.origin = origin
	ec.propagatingTags = tags
	if v, ok := tracestatePriority(tracestate); ok {
		priority = v
	}
	ec.priority = &priority
	return ec, nil
}

// tracestatePriority extracts the "s:<n>" member of the "dd=" tracestate
// group, which (when present) is authoritative over the traceparent's
// single sampled bit.
func tracestatePriority(tracestate string) (int, bool) {
	for _, group := range strings.Split(tracestate, ",") {
		group = strings.TrimSpace(group)
		if !strings.HasPrefix(group, "dd=") {
			continue
		}
		for _, member := range strings.Split(strings.TrimPrefix(group, "dd="), ";") {
			if strings.HasPrefix(member, "s:") {
				if v, err := strconv.Atoi(strings.TrimPrefix(member, "s:")); err == nil {
					return v, true
				}
			}
		}
	}
	return 0, false
}

// parseDDTracestate extracts the origin and "_dd.p."-prefixed propagating
// tags carried in the "dd=" tracestate group, the only group this codec
// interprets; every other vendor's group is ignored on read (and dropped
// on write, since this core only round-trips its own state).
func parseDDTracestate(tracestate string) (origin string, tags map[string]string) {
	for _, group := range strings.Split(tracestate, ",") {
		group = strings.TrimSpace(group)
		if !strings.HasPrefix(group, "dd=") {
			continue
		}
		for _, member := range strings.Split(strings.TrimPrefix(group, "dd="), ";") {
			kv := strings.SplitN(member, ":", 2)
			if len(kv) != 2 {
				continue
			}
			switch {
			case kv[0] == "o":
				origin = desanitizeTracestateValue(kv[1])
			case strings.HasPrefix(kv[0], "t."):
				if tags == nil {
					tags = make(map[string]string)
				}
				tags[propagatingTagPrefix+strings.TrimPrefix(kv[0], "t.")] = desanitizeTracestateValue(kv[1])
			}
		}
	}
	return origin, tags
}

func desanitizeTracestateValue(v string) string {
	return strings.ReplaceAll(v, "~", "=")
}
