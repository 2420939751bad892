// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"strings"
	"sync"

	"github.com/dd-tracecore/tracer/internal/samplernames"
)

// Rule is a user-configured trace sampling rule: a trace whose service and
// operation name both glob-match is sampled at Rate, subject to an optional
// MaxPerSecond token-bucket limiter.
type Rule struct {
	// Service is a glob pattern matched against the root span's service.
	// An empty pattern matches every service.
	Service string
	// Name is a glob pattern matched against the root span's operation
	// name. An empty pattern matches every name.
	Name string
	// Rate is the sampling rate applied when this rule matches, in [0,1].
	Rate float64
	// MaxPerSecond bounds how many traces per second this rule may keep.
	// Zero means unlimited.
	MaxPerSecond float64

	limiter *rateLimiter
}

func (r *Rule) match(service, name string) bool {
	return globMatch(r.Service, service) && globMatch(r.Name, name)
}

// globMatch reports whether s matches the glob pattern, which supports '*'
// (any run of characters) and '?' (any single character). An empty pattern
// matches everything.
func globMatch(pattern, s string) bool {
	if pattern == "" {
		return true
	}
	return globMatchParts(splitGlob(pattern), s)
}

func splitGlob(pattern string) []string {
	var parts []string
	var b strings.Builder
	for _, r := range pattern {
		if r == '*' {
			parts = append(parts, b.String(), "*")
			b.Reset()
			continue
		}
		b.WriteRune(r)
	}
	parts = append(parts, b.String())
	return parts
}

func globMatchParts(parts []string, s string) bool {
	if len(parts) == 0 {
		return s == ""
	}
	if parts[0] != "*" {
		if !matchLiteral(parts[0], &s) {
			return false
		}
		return globMatchParts(parts[1:], s)
	}
	// parts[0] == "*": try every possible split point.
	rest := parts[1:]
	for i := 0; i <= len(s); i++ {
		if globMatchParts(rest, s[i:]) {
			return true
		}
	}
	return false
}

// matchLiteral consumes literal (with '?' wildcards) from the front of *s,
// advancing *s past the match on success.
func matchLiteral(literal string, s *string) bool {
	runes := []rune(*s)
	lit := []rune(literal)
	if len(lit) > len(runes) {
		return false
	}
	for i, lr := range lit {
		if lr != '?' && lr != runes[i] {
			return false
		}
	}
	*s = string(runes[len(lit):])
	return true
}

// TraceSampler assigns a head-based sampling decision to each TraceSegment,
// honoring (in priority order) a manual override, the first matching Rule,
// or the agent-provided default rate for the segment's (service, env) pair.
type TraceSampler struct {
	rules []Rule

	mu          sync.RWMutex
	agentRates  map[string]float64
	defaultRate float64
}

// NewTraceSampler builds a TraceSampler from the given rules, evaluated in
// order; the first one matching a segment's root service/name wins.
func NewTraceSampler(rules []Rule) *TraceSampler {
	rs := make([]Rule, len(rules))
	copy(rs, rules)
	for i := range rs {
		if rs[i].MaxPerSecond > 0 {
			rs[i].limiter = newRateLimiter(rs[i].MaxPerSecond)
		}
	}
	return &TraceSampler{
		rules:       rs,
		agentRates:  make(map[string]float64),
		defaultRate: 1,
	}
}

// UpdateAgentRates atomically replaces the per-(service,env) rates parsed
// from the agent's "rate_by_service" response.
func (s *TraceSampler) UpdateAgentRates(rates map[string]float64) {
	cp := make(map[string]float64, len(rates))
	for k, v := range rates {
		cp[k] = v
	}
	s.mu.Lock()
	s.agentRates = cp
	if v, ok := cp["service:,env:"]; ok {
		s.defaultRate = v
	}
	s.mu.Unlock()
}

func (s *TraceSampler) agentRate(service, env string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := "service:" + service + ",env:" + env
	if v, ok := s.agentRates[key]; ok {
		return v
	}
	return s.defaultRate
}

// sampleLocked assigns root's segment a sampling decision if none is
// already locked in, following spec.md §4.3's priority order: manual
// override, first matching Rule (subject to its limiter), then the agent
// rate for (service, env). The caller must hold seg.mu.
func (s *TraceSampler) sampleLocked(root *Span, seg *TraceSegment, env string) {
	for i := range s.rules {
		rule := &s.rules[i]
		if !rule.match(root.service, root.name) {
			continue
		}
		s.applyRuleLocked(rule, root, seg)
		return
	}
	s.applyAgentRateLocked(root, seg, env)
}

func (s *TraceSampler) applyRuleLocked(rule *Rule, root *Span, seg *TraceSegment) {
	kept := sampledByRate(root.traceID, rule.Rate)
	root.setMetric(keyRulesSamplerAppliedRate, rule.Rate)
	if kept && rule.limiter != nil {
		if !rule.limiter.allowOne() {
			kept = false
		}
		root.setMetric(keyRulesSamplerLimiterRate, rule.limiter.effectiveRate())
	}
	priority := samplingPriorityFor(kept)
	seg.setSamplingPriorityLocked(priority, samplernames.RuleRate)
	if kept {
		seg.keep()
	} else {
		seg.drop()
	}
}

func (s *TraceSampler) applyAgentRateLocked(root *Span, seg *TraceSegment, env string) {
	rate := s.agentRate(root.service, env)
	kept := sampledByRate(root.traceID, rate)
	root.setMetric("_dd.agent_psr", rate)
	priority := samplingPriorityFor(kept)
	seg.setSamplingPriorityLocked(priority, samplernames.AgentRate)
	if kept {
		seg.keep()
	} else {
		seg.drop()
	}
}

func samplingPriorityFor(keep bool) int {
	if keep {
		return 1
	}
	return 0
}
