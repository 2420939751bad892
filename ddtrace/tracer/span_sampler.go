// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"github.com/dd-tracecore/tracer/ddtrace/ext"
)

// SpanSamplingRule is a single-span keep rule, evaluated at span-finish time
// against spans belonging to a trace the TraceSampler rejected. A kept span
// is emitted on its own even though the rest of the trace is dropped.
type SpanSamplingRule struct {
	// Service is a glob pattern matched against the span's service. An
	// empty pattern matches every service.
	Service string
	// Name is a glob pattern matched against the span's operation name.
	// An empty pattern matches every name.
	Name string
	// Rate is the sampling rate applied when this rule matches, in [0,1].
	Rate float64
	// MaxPerSecond bounds how many spans per second this rule may keep.
	// Zero means unlimited.
	MaxPerSecond float64

	limiter *rateLimiter
}

func (r *SpanSamplingRule) match(service, name string) bool {
	return globMatch(r.Service, service) && globMatch(r.Name, name)
}

// SpanSampler evaluates SpanSamplingRules, in order, against spans whose
// trace was dropped by the TraceSampler.
type SpanSampler struct {
	rules []SpanSamplingRule
}

// NewSpanSampler builds a SpanSampler from the given rules.
func NewSpanSampler(rules []SpanSamplingRule) *SpanSampler {
	rs := make([]SpanSamplingRule, len(rules))
	copy(rs, rules)
	for i := range rs {
		if rs[i].MaxPerSecond > 0 {
			rs[i].limiter = newRateLimiter(rs[i].MaxPerSecond)
		}
	}
	return &SpanSampler{rules: rs}
}

// apply evaluates sp against the configured rules in order; only the first
// rule that matches sp's service and name is applied, and sp is tagged and
// kept if that rule's rate and limiter both let it through. It reports
// whether sp was kept.
func (s *SpanSampler) apply(sp *Span) bool {
	if s == nil {
		return false
	}
	for i := range s.rules {
		rule := &s.rules[i]
		if !rule.match(sp.service, sp.name) {
			continue
		}
		if !sampledByRate(sp.spanID, rule.Rate) {
			return false
		}
		if rule.limiter != nil && !rule.limiter.allowOne() {
			return false
		}
		sp.setMetric(ext.SingleSpanSamplingMechanism, ext.SingleSpanSamplingMechanismValue)
		sp.setMetric(ext.SingleSpanSamplingRuleRate, rule.Rate)
		if rule.MaxPerSecond > 0 {
			sp.setMetric(ext.SingleSpanSamplingMaxPerSecond, rule.MaxPerSecond)
		}
		return true
	}
	return false
}
