// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"strconv"
	"strings"
)

const (
	headerB3TraceID = "x-b3-traceid"
	headerB3SpanID  = "x-b3-spanid"
	headerB3Sampled = "x-b3-sampled"
	headerB3Single  = "b3"
)

// b3MultiPropagator implements the B3 multi-header style.
type b3MultiPropagator struct{}

func (*b3MultiPropagator) name() string { return "b3multi" }

func (*b3MultiPropagator) inject(ctx *SpanContext, writer DictWriter, _ int) error {
	writer.Set(headerB3TraceID, ctx.traceID.HexEncoded())
	writer.Set(headerB3SpanID, strconv.FormatUint(ctx.spanID, 16))
	if p, ok := ctx.samplingPriority(); ok {
		writer.Set(headerB3Sampled, b3SampledValue(p))
	}
	return nil
}

func (*b3MultiPropagator) extract(reader DictReader) (*extractedContext, error) {
	var traceHex, spanHex, sampled string
	err := reader.ForeachKey(func(key, val string) error {
		switch strings.ToLower(key) {
		case headerB3TraceID:
			traceHex = val
		case headerB3SpanID:
			spanHex = val
		case headerB3Sampled:
			sampled = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if traceHex == "" || spanHex == "" {
		return nil, nil
	}
	return decodeB3(traceHex, spanHex, sampled, "b3multi")
}

// b3SinglePropagator implements the single-header B3 style:
// "b3: <trace>-<span>-<sampled>".
type b3SinglePropagator struct{}

func (*b3SinglePropagator) name() string { return "b3" }

func (*b3SinglePropagator) inject(ctx *SpanContext, writer DictWriter, _ int) error {
	sampled := "1"
	if p, ok := ctx.samplingPriority(); ok {
		sampled = b3SampledValue(p)
	}
	writer.Set(headerB3Single, ctx.traceID.HexEncoded()+"-"+strconv.FormatUint(ctx.spanID, 16)+"-"+sampled)
	return nil
}

func (*b3SinglePropagator) extract(reader DictReader) (*extractedContext, error) {
	var value string
	err := reader.ForeachKey(func(key, val string) error {
		if strings.ToLower(key) == headerB3Single {
			value = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, "-")
	if len(parts) < 2 {
		return nil, newError(KindPropagationMalformed, "malformed b3 single header")
	}
	sampled := ""
	if len(parts) >= 3 {
		sampled = parts[2]
	}
	return decodeB3(parts[0], parts[1], sampled, "b3")
}

func decodeB3(traceHex, spanHex, sampled, style string) (*extractedContext, error) {
	tid, err := traceIDFromHex(traceHex)
	if err != nil {
		return nil, wrapError(KindPropagationMalformed, "malformed "+style+" trace id", err)
	}
	spanID, err := strconv.ParseUint(spanHex, 16, 64)
	if err != nil {
		return nil, wrapError(KindPropagationMalformed, "malformed "+style+" span id", err)
	}
	ec := &extractedContext{traceID: tid, spanID: spanID, style: style}
	switch sampled {
	case "1", "d":
		p := 1
		ec.priority = &p
	case "0":
		p := 0
		ec.priority = &p
	}
	return ec, nil
}

func b3SampledValue(priority int) string {
	if priority > 0 {
		return "1"
	}
	return "0"
}
