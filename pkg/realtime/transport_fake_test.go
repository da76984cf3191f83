package realtime

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/strata-base/strata-go/pkg/log"
	"github.com/strata-base/strata-go/pkg/transport"
)

// fakeTransport is an in-memory Transport for driving the client through
// arbitrary connection and sync scenarios.
type fakeTransport struct {
	mu          sync.Mutex
	conns       []*fakeStream
	connectErrs []error // consumed, one per Stream call, before opening
	pushes      []registration
	pushErr     error
	holdPush    chan struct{} // when set, Send blocks until closed or aborted

	newConn     chan *fakeStream
	pushStarted chan registration
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		newConn:     make(chan *fakeStream, 16),
		pushStarted: make(chan registration, 16),
	}
}

func (f *fakeTransport) Stream(ctx context.Context, path string, query url.Values) (io.ReadCloser, error) {
	f.mu.Lock()
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		f.mu.Unlock()
		return nil, err
	}
	pr, pw := io.Pipe()
	st := &fakeStream{pw: pw}
	f.conns = append(f.conns, st)
	f.mu.Unlock()

	// Cancelling the stream context unblocks pending reads
	go func() {
		<-ctx.Done()
		pw.CloseWithError(ctx.Err())
	}()

	f.newConn <- st
	return pr, nil
}

func (f *fakeTransport) Send(ctx context.Context, path string, opts transport.Options) (*transport.Response, error) {
	reg, _ := opts.Body.(registration)

	f.mu.Lock()
	f.pushes = append(f.pushes, reg)
	hold := f.holdPush
	err := f.pushErr
	f.mu.Unlock()

	select {
	case f.pushStarted <- reg:
	default:
	}

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, &transport.AbortError{Err: ctx.Err()}
		}
	}
	if err != nil {
		return nil, err
	}
	return &transport.Response{StatusCode: 200}, nil
}

func (f *fakeTransport) setConnectErrs(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErrs = errs
}

func (f *fakeTransport) setPushErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushErr = err
}

func (f *fakeTransport) setHoldPush(hold chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdPush = hold
}

func (f *fakeTransport) connCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func (f *fakeTransport) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func (f *fakeTransport) lastPush() (registration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pushes) == 0 {
		return registration{}, false
	}
	return f.pushes[len(f.pushes)-1], true
}

// fakeStream is the server side of one opened stream.
type fakeStream struct {
	pw *io.PipeWriter
}

// frame writes one SSE frame. Write errors after client teardown are
// expected and ignored.
func (s *fakeStream) frame(event, data string) {
	_, _ = fmt.Fprintf(s.pw, "event: %s\ndata: %s\n\n", event, data)
}

// handshake sends the identity frame.
func (s *fakeStream) handshake(clientID string) {
	s.frame(ConnectTopic, fmt.Sprintf(`{"clientId":%q}`, clientID))
}

// fail simulates an unexpected transport failure.
func (s *fakeStream) fail() {
	_ = s.pw.CloseWithError(fmt.Errorf("connection reset"))
}

// recLogger records events for assertions.
type recLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recLogger) Log(event log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// errorOps returns the Op field of every recorded error event.
func (r *recLogger) errorOps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ops []string
	for _, e := range r.events {
		if e.Error != nil {
			ops = append(ops, e.Error.Op)
		}
	}
	return ops
}
