package tracer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSubmitChunkDropsOldestOnBackpressure(t *testing.T) {
	assert := assert.New(t)

	c := newCollector(newConfig())
	c.queue = make(chan *Chunk, 1)

	c.SubmitChunk(&Chunk{WillSend: true, Spans: []*Span{{name: "first"}}})
	c.SubmitChunk(&Chunk{WillSend: true, Spans: []*Span{{name: "second"}}})

	got := <-c.queue
	assert.Equal("second", got.Spans[0].name)
}

func TestCollectorSubmitChunkIgnoresUnsentChunk(t *testing.T) {
	c := newCollector(newConfig())
	c.queue = make(chan *Chunk, 1)
	c.SubmitChunk(&Chunk{WillSend: false, Spans: []*Span{{name: "dropped"}}})

	select {
	case <-c.queue:
		t.Fatal("a chunk that will not be sent should never reach the queue")
	default:
	}
}

func TestCollectorSendPostsMsgpackAndAppliesRates(t *testing.T) {
	assert := assert.New(t)

	var gotContentType, gotTraceCount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotTraceCount = r.Header.Get("X-Datadog-Trace-Count")
		resp, _ := json.Marshal(agentResponse{RateByService: map[string]float64{"service:,env:": 0.5}})
		w.Write(resp)
	}))
	defer srv.Close()

	url, err := parseAgentURL(srv.URL)
	assert.NoError(err)

	sampler := NewTraceSampler(nil)
	c := &collector{
		url:        url,
		httpClient: srv.Client(),
		sampler:    sampler,
		errCh:      make(chan error, 1),
	}

	p := newPayload()
	assert.NoError(p.push(&Chunk{Spans: []*Span{{name: "op", service: "svc"}}}))
	assert.NoError(c.send(p.encode(), p.itemCount()))

	assert.Equal("application/msgpack", gotContentType)
	assert.Equal("1", gotTraceCount)
	assert.Equal(0.5, sampler.agentRate("anything", "anything"))
}

func TestCollectorSendNonSuccessStatus(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	url, err := parseAgentURL(srv.URL)
	assert.NoError(err)
	c := &collector{url: url, httpClient: srv.Client()}

	err = c.send([]byte{}, 0)
	assert.Error(err)
	kind, ok := Kind(err)
	assert.True(ok)
	assert.Equal(KindAgentHTTPStatus, kind)
}

func TestCollectorApplyRatesMalformedBody(t *testing.T) {
	assert := assert.New(t)

	c := &collector{sampler: NewTraceSampler(nil)}
	err := c.applyRates([]byte("not json"))
	assert.Error(err)
}

func TestCollectorApplyRatesNilSamplerIsNoop(t *testing.T) {
	assert := assert.New(t)

	c := &collector{}
	assert.NoError(c.applyRates([]byte(`{"rate_by_service":{"service:,env:":1}}`)))
}

func TestCollectorRunFlushesOnTicker(t *testing.T) {
	assert := assert.New(t)

	var received chan struct{} = make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	url, err := parseAgentURL(srv.URL)
	assert.NoError(err)

	c := &collector{
		url:           url,
		httpClient:    srv.Client(),
		flushInterval: 10 * time.Millisecond,
		maxBatchBytes: 1 << 20,
		queue:         make(chan *Chunk, 10),
		errCh:         make(chan error, 10),
		stopCh:        make(chan struct{}),
	}
	c.start()
	defer c.stop(time.Second)

	c.queue <- &Chunk{WillSend: true, Spans: []*Span{{name: "op", service: "svc"}}}

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("expected a flush within the tick interval")
	}
}

func TestCollectorStopTimesOutWhenWorkerNeverStarted(t *testing.T) {
	assert := assert.New(t)

	c := &collector{stopCh: make(chan struct{})}
	c.wg.Add(1) // simulate a worker that never calls Done
	err := c.stop(10 * time.Millisecond)
	assert.Equal(ErrShutdownTimeout, err)
}

func TestDrainErrChCollectsBufferedErrors(t *testing.T) {
	assert := assert.New(t)

	ch := make(chan error, 2)
	ch <- ErrNoSpansToSubmit
	ch <- ErrShutdownTimeout
	out := drainErrCh(ch)

	count := 0
	for range out {
		count++
	}
	assert.Equal(2, count)
}
