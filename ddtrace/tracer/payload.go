// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import "github.com/tinylib/msgp/msgp"

// payload accumulates already-packed traces (each an array of span maps)
// and, on encode, wraps them in the outer array the agent's /v0.4/traces
// endpoint expects: an array of length num_traces, one entry per trace.
type payload struct {
	traces    [][]byte
	byteCount int
}

func newPayload() *payload {
	return &payload{}
}

// push packs chunk's spans as one trace (a MessagePack array of span maps)
// and appends it to the pending batch.
func (p *payload) push(chunk *Chunk) error {
	w := &msgpWriter{}
	w.writeArrayHeader(uint32(len(chunk.Spans)))
	for _, sp := range chunk.Spans {
		if err := sp.EncodeMsg(w); err != nil {
			return err
		}
	}
	b := w.Bytes()
	p.traces = append(p.traces, b)
	p.byteCount += len(b)
	return nil
}

// itemCount returns the number of traces currently buffered.
func (p *payload) itemCount() int { return len(p.traces) }

// size estimates the encoded size of the full batch including the outer
// array header, used against the configured byte budget.
func (p *payload) size() int {
	return arrayHeaderSize(len(p.traces)) + p.byteCount
}

// arrayHeaderSize returns how many bytes a MessagePack array header of the
// given length occupies, mirroring the fixarray/array16/array32 type-prefix
// table from spec.md §4.1.
func arrayHeaderSize(n int) int {
	switch {
	case n <= 15:
		return 1
	case n <= 0xFFFF:
		return 3
	default:
		return 5
	}
}

// encode returns the full batch: an outer array header followed by every
// buffered trace, in the order it was pushed.
func (p *payload) encode() []byte {
	buf := msgp.AppendArrayHeader(nil, uint32(len(p.traces)))
	for _, t := range p.traces {
		buf = append(buf, t...)
	}
	return buf
}

// reset empties the batch for reuse.
func (p *payload) reset() {
	p.traces = p.traces[:0]
	p.byteCount = 0
}
