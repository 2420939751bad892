// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import "math"

// knuthFactor is the constant used by the Knuth multiplicative hash that
// every implementation of this deterministic sampler must share: given the
// same trace id and the same rate, the keep/drop verdict must agree
// bit-for-bit across processes and languages.
const knuthFactor uint64 = 1111111111111111111

// RateSampler samples a trace with a fixed probability, decided
// deterministically from its trace id so that repeated evaluation of the
// same trace id at the same rate always agrees.
type RateSampler interface {
	// Sample reports whether id should be sampled at this sampler's rate.
	Sample(id uint64) bool
	// Rate returns the sampler's configured rate.
	Rate() float64
}

type rateSampler struct {
	rate float64
}

// NewRateSampler creates a RateSampler sampling at the given rate, clamped
// to [0,1].
func NewRateSampler(rate float64) RateSampler {
	return &rateSampler{rate: clampRate(rate)}
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}

func (r *rateSampler) Rate() float64 { return r.rate }

// Sample implements RateSampler using the Knuth multiplicative hash: a
// trace id is kept when hash(id) * 2^-64 < rate, the decision table spec.md
// §4.3 prescribes.
func (r *rateSampler) Sample(id uint64) bool {
	if r.rate == 1 {
		return true
	}
	if r.rate == 0 {
		return false
	}
	return sampledByRate(id, r.rate)
}

// sampledByRate applies the Knuth hash directly, for callers (the rules
// sampler) that already have a rate in hand and don't need a RateSampler
// value.
func sampledByRate(id uint64, rate float64) bool {
	if rate == 1 {
		return true
	}
	if rate == 0 {
		return false
	}
	return id*knuthFactor < uint64(rate*math.MaxUint64)
}
