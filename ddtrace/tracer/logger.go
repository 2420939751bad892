// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"github.com/dd-tracecore/tracer/ddtrace"
	"github.com/dd-tracecore/tracer/internal/log"
)

// Logger implementations print the messages the tracer core produces
// (warnings from the collector, propagation errors, sampler misconfiguration).
// It is the same contract as ddtrace.Logger; defined again here so a caller
// that only imports the tracer package doesn't need to pull in ddtrace.
type Logger = ddtrace.Logger

// UseLogger sets l as the logger used by this tracer for all its
// diagnostic output.
func UseLogger(l Logger) {
	log.UseLogger(l)
}
