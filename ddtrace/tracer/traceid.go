// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"encoding/binary"
	"encoding/hex"
)

// traceID is a 128-bit trace identifier, stored big-endian as <upper><lower>.
// Every wire format and header this package writes that is 64-bit only
// (Datadog headers, the legacy msgpack payload) uses Lower(); the
// tracecontext and B3 codecs write the full 32-character hex value.
type traceID [16]byte

var emptyTraceID traceID

// Lower returns the trace id's lower 64 bits, which is the identifier every
// 64-bit-only wire format propagates.
func (t *traceID) Lower() uint64 {
	return binary.BigEndian.Uint64(t[8:])
}

// Upper returns the trace id's upper 64 bits.
func (t *traceID) Upper() uint64 {
	return binary.BigEndian.Uint64(t[:8])
}

// SetLower sets the trace id's lower 64 bits.
func (t *traceID) SetLower(i uint64) {
	binary.BigEndian.PutUint64(t[8:], i)
}

// SetUpper sets the trace id's upper 64 bits.
func (t *traceID) SetUpper(i uint64) {
	binary.BigEndian.PutUint64(t[:8], i)
}

// HasUpper reports whether any of the upper 64 bits are set.
func (t *traceID) HasUpper() bool {
	for _, b := range t[:8] {
		if b != 0 {
			return true
		}
	}
	return false
}

// HexEncoded returns the full 128-bit id as a 32-character hex string.
func (t *traceID) HexEncoded() string {
	return hex.EncodeToString(t[:])
}

// UpperHex returns just the upper 64 bits as a 16-character hex string, the
// form stored under the "_dd.p.tid" propagating tag.
func (t *traceID) UpperHex() string {
	return hex.EncodeToString(t[:8])
}

// Empty reports whether the id is the zero value.
func (t *traceID) Empty() bool {
	return *t == emptyTraceID
}

// traceIDFromHex parses a 32-character hex string into a traceID. Shorter
// inputs are accepted and treated as the lower bits only, matching how B3's
// 16-character trace ids map onto the lower half of a 128-bit id.
func traceIDFromHex(s string) (traceID, error) {
	var id traceID
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) > 16 {
		b = b[len(b)-16:]
	}
	copy(id[16-len(b):], b)
	return id, nil
}
