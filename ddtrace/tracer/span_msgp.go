// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

// spanMapSize is the number of keys serialized for every span map per
// spec.md §4.6, omitting parent_id only conceptually (it's always emitted,
// zero when root).
const spanMapSize = 12

// EncodeMsg appends s's MessagePack map representation to w, in the shape
// the agent's /v0.4/traces endpoint expects: a map with service, name,
// resource, trace_id, span_id, parent_id, start, duration, error, meta,
// metrics and type keys.
func (s *Span) EncodeMsg(w *msgpWriter) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w.writeMapHeader(spanMapSize)

	if err := w.writeString("service"); err != nil {
		return err
	}
	if err := w.writeString(s.service); err != nil {
		return err
	}

	if err := w.writeString("name"); err != nil {
		return err
	}
	if err := w.writeString(s.name); err != nil {
		return err
	}

	if err := w.writeString("resource"); err != nil {
		return err
	}
	if err := w.writeString(s.resource); err != nil {
		return err
	}

	if err := w.writeString("trace_id"); err != nil {
		return err
	}
	w.writeUint64(s.traceID)

	if err := w.writeString("span_id"); err != nil {
		return err
	}
	w.writeUint64(s.spanID)

	if err := w.writeString("parent_id"); err != nil {
		return err
	}
	w.writeUint64(s.parentID)

	if err := w.writeString("start"); err != nil {
		return err
	}
	w.writeInt64(s.start)

	if err := w.writeString("duration"); err != nil {
		return err
	}
	w.writeInt64(s.duration)

	if err := w.writeString("error"); err != nil {
		return err
	}
	w.writeInt64(int64(s.error))

	if err := w.writeString("meta"); err != nil {
		return err
	}
	if err := w.writeStringMap(s.meta); err != nil {
		return err
	}

	if err := w.writeString("metrics"); err != nil {
		return err
	}
	if err := w.writeFloatMap(s.metrics); err != nil {
		return err
	}

	if err := w.writeString("type"); err != nil {
		return err
	}
	return w.writeString(s.spanType)
}

// Msgsize estimates the encoded size of s. It's a generous over-estimate,
// not exact. The collector does not call it: batch flushing is decided from
// the payload's own encoded size.
func (s *Span) Msgsize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 64 + len(s.service) + len(s.name) + len(s.resource) + len(s.spanType)
	for k, v := range s.meta {
		n += len(k) + len(v) + 8
	}
	n += len(s.metrics) * 24
	return n
}
