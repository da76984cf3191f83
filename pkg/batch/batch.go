// Package batch accumulates write requests and submits them as a single
// batch call, fanning the per-request results back out to the callers.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/strata-base/strata-go/pkg/transport"
)

// DefaultPath is the server's batch endpoint.
const DefaultPath = "/api/batch"

// DefaultAutoFlush is the buffer size that triggers an automatic flush.
const DefaultAutoFlush = 50

// Sender issues HTTP requests. Implemented by transport.Client.
type Sender interface {
	Send(ctx context.Context, path string, opts transport.Options) (*transport.Response, error)
}

// Request is one operation inside a batch.
type Request struct {
	// Method is the HTTP method of the wrapped operation.
	Method string `json:"method"`

	// URL is the operation path relative to the server base URL.
	URL string `json:"url"`

	// Body is the operation's JSON body, if any.
	Body any `json:"body,omitempty"`
}

// Result is the server's response to one batched request.
type Result struct {
	// ID echoes the request id the batch assigned.
	ID string `json:"id"`

	// Status is the HTTP status of the wrapped operation.
	Status int `json:"status"`

	// Body is the operation's raw response body.
	Body json.RawMessage `json:"body,omitempty"`
}

// OK reports whether the wrapped operation succeeded.
func (r Result) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

// Pending is a handle to a request that has been queued but whose result
// has not arrived yet.
type Pending struct {
	id   string
	done chan struct{}

	result Result
	err    error
}

// Wait blocks until the batch containing this request has been flushed and
// returns the request's result.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (p *Pending) resolve(result Result, err error) {
	p.result = result
	p.err = err
	close(p.done)
}

// Config configures a Batch.
type Config struct {
	// Sender issues the flush request (required).
	Sender Sender

	// Path is the batch endpoint (default DefaultPath).
	Path string

	// AutoFlush flushes automatically once this many requests are queued.
	// Zero means DefaultAutoFlush; negative disables automatic flushing.
	AutoFlush int
}

// Batch buffers requests until Flush. Safe for concurrent use.
type Batch struct {
	sender    Sender
	path      string
	autoFlush int

	mu       sync.Mutex
	queue    []queued
	flushing sync.Mutex // serializes concurrent flushes
}

type queued struct {
	req     Request
	pending *Pending
}

// New creates an empty batch.
func New(cfg Config) (*Batch, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("batch: Sender is required")
	}
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	autoFlush := cfg.AutoFlush
	if autoFlush == 0 {
		autoFlush = DefaultAutoFlush
	}

	return &Batch{
		sender:    cfg.Sender,
		path:      path,
		autoFlush: autoFlush,
	}, nil
}

// Len returns the number of queued requests.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Add queues one request. When the queue reaches the auto-flush threshold
// the batch is flushed before Add returns; the queued request's outcome is
// still delivered through the returned handle.
func (b *Batch) Add(ctx context.Context, req Request) (*Pending, error) {
	if req.Method == "" || req.URL == "" {
		return nil, fmt.Errorf("batch: request needs method and url")
	}

	p := &Pending{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.queue = append(b.queue, queued{req: req, pending: p})
	full := b.autoFlush > 0 && len(b.queue) >= b.autoFlush
	b.mu.Unlock()

	if full {
		if err := b.Flush(ctx); err != nil {
			return p, err
		}
	}
	return p, nil
}

// envelope is the batch endpoint's wire format.
type envelope struct {
	Requests []wireRequest `json:"requests"`
}

type wireRequest struct {
	ID string `json:"id"`
	Request
}

type envelopeResponse struct {
	Results []Result `json:"results"`
}

// Flush submits every queued request as one call and resolves their
// handles. Flushing an empty batch is a no-op.
func (b *Batch) Flush(ctx context.Context) error {
	b.flushing.Lock()
	defer b.flushing.Unlock()

	b.mu.Lock()
	queue := b.queue
	b.queue = nil
	b.mu.Unlock()

	if len(queue) == 0 {
		return nil
	}

	env := envelope{Requests: make([]wireRequest, len(queue))}
	for i, q := range queue {
		env.Requests[i] = wireRequest{ID: q.pending.id, Request: q.req}
	}

	resp, err := b.sender.Send(ctx, b.path, transport.Options{
		Method: http.MethodPost,
		Body:   env,
	})
	if err != nil {
		for _, q := range queue {
			q.pending.resolve(Result{}, err)
		}
		return err
	}

	var decoded envelopeResponse
	if decodeErr := resp.Decode(&decoded); decodeErr != nil {
		err = fmt.Errorf("batch: decode response: %w", decodeErr)
		for _, q := range queue {
			q.pending.resolve(Result{}, err)
		}
		return err
	}

	results := make(map[string]Result, len(decoded.Results))
	for _, r := range decoded.Results {
		results[r.ID] = r
	}

	var unmatched int
	for _, q := range queue {
		r, ok := results[q.pending.id]
		if !ok {
			unmatched++
			q.pending.resolve(Result{}, fmt.Errorf("batch: no result for request %s %s", q.req.Method, q.req.URL))
			continue
		}
		q.pending.resolve(r, nil)
	}
	if unmatched > 0 {
		return fmt.Errorf("batch: server returned no result for %d of %d requests", unmatched, len(queue))
	}
	return nil
}
