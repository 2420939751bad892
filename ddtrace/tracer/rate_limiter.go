// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter is a token-bucket limiter bounding how many traces per second
// a sampling Rule is allowed to keep, plus bookkeeping to report its
// effective rate (the fraction of all requests since construction that it
// allowed) under the "_dd.limit_psr" tag.
type rateLimiter struct {
	limiter *rate.Limiter

	mu          sync.Mutex
	prevTime    time.Time
	allowed     int64
	seen        int64
}

func newRateLimiter(limit float64) *rateLimiter {
	return &rateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(limit), int(max64(1, int64(limit)))),
		prevTime: time.Now(),
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// allowOne reports whether the limiter currently has a token available,
// consuming it if so, and records the request for the effective-rate
// calculation.
func (r *rateLimiter) allowOne() bool {
	return r.allowAt(time.Now())
}

func (r *rateLimiter) allowAt(now time.Time) bool {
	ok := r.limiter.AllowN(now, 1)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen++
	if ok {
		r.allowed++
	}
	return ok
}

// effectiveRate returns the fraction of calls to allowOne that returned
// true, or 1 when the limiter has not yet been queried.
func (r *rateLimiter) effectiveRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == 0 {
		return 1
	}
	return float64(r.allowed) / float64(r.seen)
}
