// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	cryptorand "crypto/rand"
	"math"
	"math/big"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd-tracecore/tracer/internal/log"
)

// Clock supplies the current time to the core. Tests substitute a fake
// implementation to produce deterministic span timing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// IDGenerator supplies random trace and span identifiers. Tests substitute a
// deterministic sequence to make span/trace ids predictable.
type IDGenerator interface {
	// SpanID generates a new uniformly-distributed 63-bit span identifier.
	SpanID() uint64
}

var (
	warnOnce sync.Once
	seedSeq  int64
	randPool = sync.Pool{
		New: func() interface{} {
			var seed int64
			n, err := cryptorand.Int(cryptorand.Reader, big.NewInt(math.MaxInt64))
			if err == nil {
				seed = n.Int64()
			} else {
				warnOnce.Do(func() {
					log.Warn("cannot generate random seed: %v; using current time", err)
				})
				seed = time.Now().UnixNano()
			}
			// seedSeq makes sure we don't create two generators with the same
			// seed by accident.
			return rand.New(rand.NewSource(seed + atomic.AddInt64(&seedSeq, 1)))
		},
	}
)

type randomIDGenerator struct{}

// SpanID implements IDGenerator. It's optimized for concurrent access via a
// pool of per-goroutine generators rather than one lock-guarded source.
func (randomIDGenerator) SpanID() uint64 {
	r := randPool.Get().(*rand.Rand)
	// span ids are kept to 63 bits: some non-Go tracers store them in a
	// signed 64-bit field, so the high bit is reserved to stay compatible.
	v := uint64(r.Int63())
	randPool.Put(r)
	return v
}
