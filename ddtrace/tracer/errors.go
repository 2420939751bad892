// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import "fmt"

// ErrorKind discriminates the family of error a core operation failed with.
// Every kind below corresponds to a distinct failure mode a caller might
// want to branch on; none of these are returned from Span/TraceSegment
// methods directly except OverflowError, which is surfaced synchronously
// from encode calls.
type ErrorKind int

const (
	// KindURLMissingSeparator covers an agent URL with no "://" scheme
	// separator.
	KindURLMissingSeparator ErrorKind = iota
	// KindURLUnsupportedScheme covers an agent URL whose scheme isn't one
	// of http, https, unix, http+unix or https+unix.
	KindURLUnsupportedScheme
	// KindURLUnixSocketPathNotAbsolute covers a unix/http+unix/https+unix
	// agent URL whose socket path isn't absolute.
	KindURLUnixSocketPathNotAbsolute
	// KindAgentHTTPSendFailed covers transport-level failures delivering a
	// payload to the agent.
	KindAgentHTTPSendFailed
	// KindAgentHTTPStatus covers a non-2xx response from the agent.
	KindAgentHTTPStatus
	// KindAgentResponseMalformed covers an agent response that could not be
	// parsed as the expected JSON shape.
	KindAgentResponseMalformed
	// KindPropagationMalformed covers a carrier that could not be decoded
	// by any configured extraction style.
	KindPropagationMalformed
	// KindPropagationInjectionOversize covers a trace whose propagating
	// tags exceeded the configured header size budget on injection.
	KindPropagationInjectionOversize
	// KindMsgpackOverflow covers a value that cannot be represented by the
	// msgpack encoder (e.g. a string longer than 2^32-1 bytes).
	KindMsgpackOverflow
	// KindNoSpansToSubmit covers a flush attempt with an empty buffer.
	KindNoSpansToSubmit
	// KindShutdownTimeout covers Stop failing to drain the collector within
	// its deadline.
	KindShutdownTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindURLMissingSeparator:
		return "url missing separator"
	case KindURLUnsupportedScheme:
		return "url unsupported scheme"
	case KindURLUnixSocketPathNotAbsolute:
		return "url unix domain socket path not absolute"
	case KindAgentHTTPSendFailed:
		return "agent http send failed"
	case KindAgentHTTPStatus:
		return "agent http status"
	case KindAgentResponseMalformed:
		return "agent response malformed"
	case KindPropagationMalformed:
		return "propagation malformed"
	case KindPropagationInjectionOversize:
		return "propagation injection oversize"
	case KindMsgpackOverflow:
		return "msgpack overflow"
	case KindNoSpansToSubmit:
		return "no spans to submit"
	case KindShutdownTimeout:
		return "shutdown timeout"
	default:
		return "unknown error"
	}
}

// coreError is the concrete error type every exported error kind wraps.
type coreError struct {
	kind    ErrorKind
	msg     string
	wrapped error
}

func (e *coreError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *coreError) Unwrap() error { return e.wrapped }

// Kind reports the ErrorKind of err (KindMsgpackOverflow for an
// *OverflowError), or false for any other error type.
func Kind(err error) (ErrorKind, bool) {
	if _, ok := err.(*OverflowError); ok {
		return KindMsgpackOverflow, true
	}
	ce, ok := err.(*coreError)
	if !ok {
		return 0, false
	}
	return ce.kind, true
}

func newError(kind ErrorKind, msg string) error {
	return &coreError{kind: kind, msg: msg}
}

func wrapError(kind ErrorKind, msg string, cause error) error {
	return &coreError{kind: kind, msg: msg, wrapped: cause}
}

// ErrNoSpansToSubmit is returned by a flush attempt with nothing buffered.
var ErrNoSpansToSubmit = newError(KindNoSpansToSubmit, "no spans to submit")

// ErrShutdownTimeout is returned when Stop could not drain the collector
// within its deadline.
var ErrShutdownTimeout = newError(KindShutdownTimeout, "shutdown timed out before the collector drained")

// OverflowError indicates a value could not be represented by the msgpack
// encoder (e.g. byte length exceeds what the format's length prefix can
// hold). It is the one error kind surfaced synchronously to encode callers.
type OverflowError struct {
	// Limit is the maximum value the relevant length prefix can encode.
	Limit uint64
	// Got is the actual size that was rejected.
	Got uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("msgpack overflow: value of size %d exceeds limit %d", e.Got, e.Limit)
}

// traceEncodingError wraps a msgpack encode failure for a single trace
// during collector batching, keyed for aggregation by aggregateErrors.
type traceEncodingError struct {
	context error
}

func (e *traceEncodingError) Error() string {
	return fmt.Sprintf("error encoding trace: %s", e.context)
}

func (e *traceEncodingError) Unwrap() error { return e.context }

// dataLossError reports that count finished traces were dropped without
// ever reaching the agent because sending their batch failed.
type dataLossError struct {
	count int
	err   error
}

func (e *dataLossError) Error() string {
	return fmt.Sprintf("lost traces (count: %d), error: %v", e.count, e.err)
}

func (e *dataLossError) Unwrap() error { return e.err }

// errorSummary aggregates repeated occurrences of the same error kind into
// a single count plus one representative example message.
type errorSummary struct {
	Count   int
	Example string
}

// aggregateErrors drains errChan and groups its errors by concrete type,
// so the collector can log a single line per distinct failure per flush
// cycle instead of flooding the log with duplicates.
func aggregateErrors(errChan <-chan error) map[string]errorSummary {
	errs := make(map[string]errorSummary, len(errChan))
	for {
		select {
		case err := <-errChan:
			if err == nil {
				continue
			}
			key := fmt.Sprintf("%T", err)
			summary := errs[key]
			summary.Count++
			summary.Example = err.Error()
			errs[key] = summary
		default:
			return errs
		}
	}
}
