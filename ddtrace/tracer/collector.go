// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tracer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd-tracecore/tracer/ddtrace/ext"
	"github.com/dd-tracecore/tracer/internal/globalconfig"
	"github.com/dd-tracecore/tracer/internal/log"
)

// StatsClient is the subset of datadog-go/v5/statsd's Client the collector
// emits its own operational counters through. A nil StatsClient disables
// metrics entirely; there is no internal fallback implementation.
type StatsClient interface {
	Count(name string, value int64, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
}

const (
	tracesEndpoint     = "/v0.4/traces"
	defaultQueueDepth  = 1000
	defaultHTTPTimeout = 10 * time.Second
)

// collector owns the background worker that batches finished trace chunks
// and delivers them to the agent. It is the only goroutine in this package
// allowed to block on network I/O; API calls that push a Chunk onto its
// queue never wait on it (spec.md §5).
type collector struct {
	url        *agentURL
	httpClient *http.Client
	stats      StatsClient

	flushInterval time.Duration
	maxBatchBytes int
	sampler       *TraceSampler

	queue chan *Chunk
	errCh chan error

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once

	droppedChunks uint64
}

func newCollector(c *config) *collector {
	url, err := parseAgentURL(c.agentURL)
	if err != nil {
		log.Error("invalid agent URL", "invalid agent URL %q, falling back to default: %v", c.agentURL, err)
		url, _ = parseAgentURL(defaultAgentURL)
	}
	client := c.httpClient
	if client == nil {
		client = newHTTPClient(url, defaultHTTPTimeout)
	}
	return &collector{
		url:           url,
		httpClient:    client,
		stats:         c.statsClient,
		flushInterval: c.flushInterval,
		maxBatchBytes: c.maxBatchBytes,
		sampler:       c.traceSampler,
		queue:         make(chan *Chunk, defaultQueueDepth),
		errCh:         make(chan error, defaultQueueDepth),
		stopCh:        make(chan struct{}),
	}
}

// SubmitChunk enqueues chunk for delivery, dropping the oldest queued chunk
// on backpressure rather than blocking the caller, per spec.md §5.
func (c *collector) SubmitChunk(chunk *Chunk) {
	if !chunk.WillSend {
		return
	}
	select {
	case c.queue <- chunk:
	default:
		select {
		case <-c.queue:
			atomic.AddUint64(&c.droppedChunks, 1)
		default:
		}
		select {
		case c.queue <- chunk:
		default:
			atomic.AddUint64(&c.droppedChunks, 1)
		}
	}
}

// start launches the background flush worker. Must be called at most once.
func (c *collector) start() {
	c.wg.Add(1)
	go c.run()
}

func (c *collector) run() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	p := newPayload()
	for {
		select {
		case chunk, ok := <-c.queue:
			if !ok {
				c.flush(p)
				return
			}
			if err := p.push(chunk); err != nil {
				c.errCh <- &traceEncodingError{context: err}
				continue
			}
			if p.size() >= c.maxBatchBytes {
				c.flush(p)
				p.reset()
			}
		case <-ticker.C:
			if p.itemCount() > 0 {
				c.flush(p)
				p.reset()
			}
			c.reportDropped()
		case <-c.stopCh:
			c.drain(p)
			return
		}
	}
}

// drain empties whatever remains in the queue without blocking past a
// short grace window, then performs a final flush.
func (c *collector) drain(p *payload) {
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case chunk := <-c.queue:
			if err := p.push(chunk); err != nil {
				c.errCh <- &traceEncodingError{context: err}
			}
		case <-deadline:
			c.flush(p)
			return
		default:
			c.flush(p)
			return
		}
	}
}

func (c *collector) flush(p *payload) {
	if p.itemCount() == 0 {
		return
	}
	count := p.itemCount()
	body := p.encode()
	if err := c.send(body, count); err != nil {
		c.errCh <- &dataLossError{count: count, err: err}
		if c.stats != nil {
			c.stats.Count("datadog.tracer.flush_errors", 1, nil, 1)
		}
	} else if c.stats != nil {
		c.stats.Count("datadog.tracer.flushed_traces", int64(count), nil, 1)
	}
}

func (c *collector) send(body []byte, traceCount int) error {
	req, err := http.NewRequest(http.MethodPut, c.url.httpURL(tracesEndpoint), bytes.NewReader(body))
	if err != nil {
		return wrapError(KindAgentHTTPSendFailed, "building request", err)
	}
	req.Header.Set("Content-Type", "application/msgpack")
	req.Header.Set("X-Datadog-Trace-Count", strconv.Itoa(traceCount))
	req.Header.Set("Datadog-Meta-Lang", ext.Lang)
	req.Header.Set("Datadog-Meta-Lang-Version", ext.LangVersion)
	req.Header.Set("Datadog-Meta-Tracer-Version", ext.TracerVersion)
	req.Header.Set("Datadog-Runtime-Id", globalconfig.RuntimeID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapError(KindAgentHTTPSendFailed, "sending request", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(KindAgentHTTPStatus, fmt.Sprintf("agent responded with status %d", resp.StatusCode))
	}
	return c.applyRates(respBody)
}

// agentResponse is the shape of a successful /v0.4/traces response body.
type agentResponse struct {
	RateByService map[string]float64 `json:"rate_by_service"`
}

func (c *collector) applyRates(body []byte) error {
	if len(body) == 0 || c.sampler == nil {
		return nil
	}
	var resp agentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return wrapError(KindAgentResponseMalformed, "decoding agent response", err)
	}
	if len(resp.RateByService) > 0 {
		c.sampler.UpdateAgentRates(resp.RateByService)
	}
	return nil
}

// reportDropped logs, at most once per flush cycle, a summary of any
// chunks lost to backpressure or send failures since the last tick.
func (c *collector) reportDropped() {
	if n := atomic.SwapUint64(&c.droppedChunks, 0); n > 0 {
		log.Warn("dropped %d trace chunks due to queue backpressure", n)
	}
	summary := aggregateErrors(drainErrCh(c.errCh))
	for kind, s := range summary {
		log.Error(kind, "%s (x%d): %s", kind, s.Count, s.Example)
	}
}

// drainErrCh snapshots whatever is currently buffered in ch into a
// closed, already-populated channel aggregateErrors can range over.
func drainErrCh(ch chan error) <-chan error {
	out := make(chan error, len(ch))
	for {
		select {
		case e := <-ch:
			out <- e
		default:
			close(out)
			return out
		}
	}
}

// stop signals the worker to drain and flush, blocking until it exits or
// timeout elapses, whichever comes first.
func (c *collector) stop(timeout time.Duration) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		c.reportDropped()
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
