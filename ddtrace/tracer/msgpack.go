// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"math"

	"github.com/tinylib/msgp/msgp"
)

// msgpWriter appends the agent's wire format directly to a byte buffer,
// choosing the narrowest MessagePack type-prefix per spec.md §4.1 for every
// value it writes. It wraps tinylib/msgp's low-level Append* helpers rather
// than hand-rolling the prefix arithmetic, matching how payload.go and
// span_msgp.go encode spans elsewhere in this package.
type msgpWriter struct {
	buf []byte
}

func (w *msgpWriter) Bytes() []byte { return w.buf }

func (w *msgpWriter) Reset() { w.buf = w.buf[:0] }

func (w *msgpWriter) writeNil()          { w.buf = msgp.AppendNil(w.buf) }
func (w *msgpWriter) writeBool(b bool)   { w.buf = msgp.AppendBool(w.buf, b) }
func (w *msgpWriter) writeInt64(v int64) { w.buf = msgp.AppendInt64(w.buf, v) }
func (w *msgpWriter) writeUint64(v uint64) { w.buf = msgp.AppendUint64(w.buf, v) }
func (w *msgpWriter) writeFloat64(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	w.buf = msgp.AppendFloat64(w.buf, v)
}

// maxStringLen is the longest string writeString will encode before
// failing with OverflowError; a STR32 header cannot describe anything
// bigger. It is a variable rather than an inlined math.MaxUint32 so tests
// can lower it and exercise the overflow branch without allocating a
// string anywhere near 4GiB.
var maxStringLen uint64 = math.MaxUint32

// writeString appends a MessagePack string, failing with OverflowError if
// s is longer than a STR32 header can describe.
func (w *msgpWriter) writeString(s string) error {
	if uint64(len(s)) > maxStringLen {
		return &OverflowError{Limit: maxStringLen, Got: uint64(len(s))}
	}
	w.buf = msgp.AppendString(w.buf, s)
	return nil
}

func (w *msgpWriter) writeArrayHeader(n uint32) { w.buf = msgp.AppendArrayHeader(w.buf, n) }
func (w *msgpWriter) writeMapHeader(n uint32)   { w.buf = msgp.AppendMapHeader(w.buf, n) }

// writeStringMap appends a map header followed by each key/value pair as
// MessagePack strings, failing on the first OverflowError encountered.
func (w *msgpWriter) writeStringMap(m map[string]string) error {
	w.writeMapHeader(uint32(len(m)))
	for k, v := range m {
		if err := w.writeString(k); err != nil {
			return err
		}
		if err := w.writeString(v); err != nil {
			return err
		}
	}
	return nil
}

// writeFloatMap appends a map header followed by each key (string) / value
// (float64) pair.
func (w *msgpWriter) writeFloatMap(m map[string]float64) error {
	w.writeMapHeader(uint32(len(m)))
	for k, v := range m {
		if err := w.writeString(k); err != nil {
			return err
		}
		w.writeFloat64(v)
	}
	return nil
}
