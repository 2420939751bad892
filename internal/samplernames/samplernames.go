// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

// Package samplernames defines the sampling mechanisms a SamplingDecision may
// be attributed to. Each value maps to the decision-maker identifier carried
// in the "_dd.p.dm" propagation tag as "-<value>".
package samplernames

// SamplerName identifies the sampling mechanism responsible for a decision.
type SamplerName int32

const (
	// Unknown indicates that the sampling decision is not attributable to
	// any known mechanism. Per RFC, a decision carrying Unknown never
	// serializes a "_dd.p.dm" tag.
	Unknown SamplerName = iota - 1
	// Default is the decision made when no rate or rule configuration is
	// in effect; equivalent to a 100% default agent rate.
	Default
	// AgentRate is a decision driven by a rate supplied by the agent,
	// keyed by (service, env).
	AgentRate
	// RemoteRate is a decision driven by a rate delivered through remote
	// configuration.
	RemoteRate
	// RuleRate is a decision driven by a user-configured sampling Rule.
	RuleRate
	// Manual is a decision set explicitly by the user overriding the
	// priority.
	Manual
	// AppSec is a decision forced to keep by an application security
	// event.
	AppSec
	// RemoteUserRate is a remote-configuration rate applied at the user
	// tier.
	RemoteUserRate
	_ // 7 is reserved; unused by this implementation
	// SingleSpan is the mechanism tagged on spans kept by the SpanSampler
	// despite their trace being dropped.
	SingleSpan
	_  // 9 reserved
	_  // 10 reserved
	// RemoteUserRule is a remote-configuration rule applied at the user
	// tier.
	RemoteUserRule
	// RemoteDynamicRule is a remote-configuration rule delivered
	// dynamically (e.g. adaptive sampling).
	RemoteDynamicRule
)

// DecisionMaker returns the string recorded under the "_dd.p.dm"
// propagation tag for this sampler. Unknown and any value outside the
// Default..RemoteDynamicRule range both render as the Unknown sentinel;
// the reserved values 7, 9 and 10 inside that range render as their own
// number.
func (s SamplerName) DecisionMaker() string {
	if s < Default || s > RemoteDynamicRule {
		s = Unknown
	}
	return "-" + itoa(int32(s))
}

// itoa avoids pulling in strconv for a single-digit-or-so integer; sampler
// names are small and bounded, so a manual conversion is cheap and
// allocation-light.
func itoa(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
