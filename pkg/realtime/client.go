package realtime

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strata-base/strata-go/internal/sse"
	"github.com/strata-base/strata-go/pkg/log"
	"github.com/strata-base/strata-go/pkg/transport"
)

// DefaultStreamPath is the well-known realtime endpoint. The stream is
// opened with GET; registration pushes POST to the same path.
const DefaultStreamPath = "/api/realtime"

// DefaultHandshakeTimeout bounds the wait for the identity frame after the
// stream opens. Expiry counts as a handshake failure and drives the
// reconnect policy.
const DefaultHandshakeTimeout = 10 * time.Second

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no connection and no pending retry.
	StateDisconnected State = iota

	// StateConnecting indicates the stream is opening or awaiting handshake.
	StateConnecting

	// StateOpen indicates the handshake completed; frames are dispatched.
	StateOpen

	// StateReconnecting indicates a retry is scheduled after a failure.
	StateReconnecting
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return "UNKNOWN"
	}
}

// Transport is the slice of the HTTP capability the realtime client
// consumes: one request/response call with a typed abort outcome, and the
// stream open. Implemented by transport.Client.
type Transport interface {
	// Send issues one request; cancelling ctx surfaces as *transport.AbortError.
	Send(ctx context.Context, path string, opts transport.Options) (*transport.Response, error)

	// Stream opens the server-push endpoint.
	Stream(ctx context.Context, path string, query url.Values) (io.ReadCloser, error)
}

// Config configures a realtime Client.
type Config struct {
	// Transport is the HTTP capability (required).
	Transport Transport

	// StreamPath overrides the realtime endpoint path (default: /api/realtime).
	StreamPath string

	// Logger receives client events (default: discard).
	Logger log.Logger

	// Reconnect customizes retry timing after connection failures.
	Reconnect ReconnectConfig

	// HandshakeTimeout bounds the wait for the identity frame (default: 10s).
	HandshakeTimeout time.Duration
}

// Client multiplexes topic subscriptions over one realtime stream.
// All methods are safe for concurrent use.
type Client struct {
	transport        Transport
	streamPath       string
	logger           log.Logger
	handshakeTimeout time.Duration
	connID           string

	registry *registry
	policy   *ReconnectPolicy
	sync     *syncCoordinator

	mu             sync.Mutex
	state          State
	clientID       string
	gen            int // connection generation; stale stream events are ignored
	waiters        []chan error
	streamCancel   context.CancelFunc
	reconnectTimer *time.Timer
	handshakeTimer *time.Timer
	onDisconnect   func(orphanedTopics []string)
}

// NewClient creates a realtime client. It opens no connection until the
// first Subscribe call.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Transport == nil {
		return nil, errors.New("realtime: Transport is required")
	}
	if cfg.StreamPath == "" {
		cfg.StreamPath = DefaultStreamPath
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}

	c := &Client{
		transport:        cfg.Transport,
		streamPath:       cfg.StreamPath,
		logger:           cfg.Logger,
		handshakeTimeout: cfg.HandshakeTimeout,
		connID:           uuid.NewString(),
		registry:         newRegistry(),
		policy:           NewReconnectPolicyWithConfig(cfg.Reconnect),
		state:            StateDisconnected,
	}
	c.sync = newSyncCoordinator(c)
	return c, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ClientID returns the server-issued identity, or "" before the handshake
// completes. It is cleared on every disconnect.
func (c *Client) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// Topics returns the currently registered interest set.
func (c *Client) Topics() []string {
	return c.registry.snapshot()
}

// OnDisconnect sets the hook invoked with the orphaned topic set when the
// connection is terminally abandoned (retries exhausted with subscribers
// still registered). The owning layer decides whether to resubscribe.
func (c *Client) OnDisconnect(fn func(orphanedTopics []string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// Subscribe registers cb for the topic and returns an unsubscribe handle
// bound to this exact registration, so the same callback can be registered
// more than once. The first subscription opens the stream; Subscribe blocks
// until the handshake completes or terminally fails.
//
// On connection or push failure the registration is kept: while retries
// remain the client re-registers it after the next handshake, and on
// terminal failure it is reported through OnDisconnect as an orphaned
// topic. The handle is returned alongside such errors, so the caller can
// drop the registration instead of leaving it for a later reconnect.
func (c *Client) Subscribe(ctx context.Context, topic string, cb Callback, opts ...SubscribeOption) (func() error, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if cb == nil {
		return nil, ErrNoCallback
	}

	key := subscriptionKey(topic, opts)
	sub := &subscriber{cb: cb}

	c.mu.Lock()
	newTopic := c.registry.add(key, sub)
	needPush := newTopic && c.state == StateOpen && key != ConnectTopic
	c.mu.Unlock()

	unsub := func() error {
		return c.removeSubscriber(key, sub)
	}

	if err := c.ensureConnected(ctx); err != nil {
		return unsub, err
	}
	if needPush {
		if err := c.sync.Push(ctx); err != nil {
			return unsub, err
		}
	}

	return unsub, nil
}

// Unsubscribe removes every subscriber of the given subscription keys, or
// of all topics when none are given. Removing a key that is not registered
// is a no-op. When the last subscriber is removed the stream is torn down;
// otherwise a changed interest set is pushed to the server.
func (c *Client) Unsubscribe(ctx context.Context, topics ...string) error {
	c.mu.Lock()
	changed := false
	if len(topics) == 0 {
		changed = c.registry.removeAll() > 0
	} else {
		for _, topic := range topics {
			if c.registry.removeTopic(topic) {
				changed = true
			}
		}
	}
	if !changed {
		c.mu.Unlock()
		return nil
	}
	if c.registry.empty() {
		c.teardownLocked("registry empty", ErrClientTerminated)
		c.mu.Unlock()
		c.sync.cancelPending()
		return nil
	}
	needPush := c.state == StateOpen
	c.mu.Unlock()

	if needPush {
		return c.sync.Push(ctx)
	}
	return nil
}

// UnsubscribeByPrefix removes every topic whose subscription key starts
// with prefix. Useful for dropping a whole resource's sub-topics at once,
// including keys that carry per-subscription options.
func (c *Client) UnsubscribeByPrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	if c.registry.removeByPrefix(prefix) == 0 {
		c.mu.Unlock()
		return nil
	}
	if c.registry.empty() {
		c.teardownLocked("registry empty", ErrClientTerminated)
		c.mu.Unlock()
		c.sync.cancelPending()
		return nil
	}
	needPush := c.state == StateOpen
	c.mu.Unlock()

	if needPush {
		return c.sync.Push(ctx)
	}
	return nil
}

// Close drops all registrations and tears down the connection. Outstanding
// handshake waiters are rejected with ErrClientTerminated. The client can
// be reused; a later Subscribe opens a fresh connection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.registry.removeAll()
	c.teardownLocked("closed", ErrClientTerminated)
	c.mu.Unlock()
	c.sync.cancelPending()
	return nil
}

// removeSubscriber backs the unsubscribe handles returned by Subscribe.
func (c *Client) removeSubscriber(key string, sub *subscriber) error {
	c.mu.Lock()
	removed, topicGone := c.registry.remove(key, sub)
	if !removed {
		// Already unsubscribed; idempotent, no push
		c.mu.Unlock()
		return nil
	}
	if c.registry.empty() {
		c.teardownLocked("registry empty", ErrClientTerminated)
		c.mu.Unlock()
		c.sync.cancelPending()
		return nil
	}
	needPush := topicGone && c.state == StateOpen && key != ConnectTopic
	c.mu.Unlock()

	if needPush {
		return c.sync.Push(context.Background())
	}
	return nil
}

// ensureConnected blocks the caller until the handshake completes or
// terminally fails. It is idempotent: while a connection attempt is in
// progress (Connecting, or Reconnecting with a retry armed) the caller
// joins the existing waiter set instead of opening a second connection.
func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateOpen {
		c.mu.Unlock()
		return nil
	}
	ch := make(chan error, 1)
	c.waiters = append(c.waiters, ch)
	if c.state == StateDisconnected {
		c.startConnectLocked("subscribe")
	}
	c.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startConnectLocked opens a new stream. Caller holds c.mu.
func (c *Client) startConnectLocked(reason string) {
	c.setStateLocked(StateConnecting, reason)
	c.gen++
	gen := c.gen

	ctx, cancel := context.WithCancel(context.Background())
	c.streamCancel = cancel
	c.handshakeTimer = time.AfterFunc(c.handshakeTimeout, func() {
		c.streamFailed(gen, &HandshakeError{Reason: "timeout"})
	})

	go c.runStream(ctx, gen)
}

// runStream opens the stream and feeds frames to the handler until the
// stream ends or the connection generation is torn down.
func (c *Client) runStream(ctx context.Context, gen int) {
	body, err := c.transport.Stream(ctx, c.streamPath, nil)
	if err != nil {
		c.streamFailed(gen, &ConnectionError{Err: err})
		return
	}
	defer body.Close()

	parser := sse.NewParser(body)
	for {
		frame, err := parser.Next()
		if err != nil {
			c.streamFailed(gen, &ConnectionError{Err: err})
			return
		}
		c.handleFrame(gen, frame)
	}
}

// handleFrame routes one inbound frame. Handshake frames complete the
// connection; data frames are dispatched only while Open (nothing is
// delivered before the handshake completes).
func (c *Client) handleFrame(gen int, frame sse.Frame) {
	if frame.Event == ConnectTopic {
		c.completeHandshake(gen, frame)
		return
	}

	c.mu.Lock()
	open := gen == c.gen && c.state == StateOpen
	c.mu.Unlock()
	if !open {
		return
	}

	c.dispatch(frame)
}

// completeHandshake stores the server-issued identity, resolves all
// handshake waiters, resets the retry budget, and pushes the current
// interest snapshot.
func (c *Client) completeHandshake(gen int, frame sse.Frame) {
	identity, err := parseIdentity(frame)
	if err != nil {
		c.streamFailed(gen, err)
		return
	}

	c.mu.Lock()
	if gen != c.gen || c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	if c.handshakeTimer != nil {
		c.handshakeTimer.Stop()
		c.handshakeTimer = nil
	}
	c.clientID = identity
	c.setStateLocked(StateOpen, "handshake complete")
	c.policy.Reset()
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	c.logFrame(frame, true, false)
	for _, ch := range waiters {
		ch <- nil
	}

	// Let control-topic observers see the (re)connect
	c.deliver(Message{Topic: ConnectTopic, Record: frame.Data})

	// Register the interest snapshot for the fresh identity
	go func() {
		if err := c.sync.Push(context.Background()); err != nil {
			c.logError("sync", err, "")
		}
	}()
}

// streamFailed handles a transport or handshake failure for the given
// connection generation. It either schedules a retry or, when the retry
// budget is spent or no subscribers remain, transitions to Disconnected.
func (c *Client) streamFailed(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	if c.handshakeTimer != nil {
		c.handshakeTimer.Stop()
		c.handshakeTimer = nil
	}
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
	c.gen++
	c.clientID = ""

	if c.registry.empty() {
		c.setStateLocked(StateDisconnected, "no subscribers")
		waiters := c.drainWaitersLocked()
		c.mu.Unlock()
		c.rejectWaiters(waiters, cause)
		return
	}

	if delay, ok := c.policy.NextDelay(); ok {
		c.setStateLocked(StateReconnecting, cause.Error())
		gen := c.gen
		c.reconnectTimer = time.AfterFunc(delay, func() {
			c.retryConnect(gen)
		})
		c.mu.Unlock()
		c.logError("connect", cause, "")
		return
	}

	// Retry budget spent with subscribers still registered: terminal.
	orphaned := c.registry.snapshot()
	c.setStateLocked(StateDisconnected, "retries exhausted")
	waiters := c.drainWaitersLocked()
	hook := c.onDisconnect
	c.mu.Unlock()

	terminal := errors.Join(ErrReconnectExhausted, cause)
	c.logError("connect", terminal, "")
	c.rejectWaiters(waiters, terminal)
	c.sync.cancelPending()
	if hook != nil {
		hook(orphaned)
	}
}

// retryConnect is the reconnect timer callback.
func (c *Client) retryConnect(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state != StateReconnecting {
		return
	}
	c.reconnectTimer = nil
	c.startConnectLocked("reconnect")
}

// teardownLocked is the explicit, caller-initiated teardown: it cancels
// any pending retry, clears the identity, closes the stream, and rejects
// outstanding handshake waiters with rejectErr. Caller holds c.mu.
func (c *Client) teardownLocked(reason string, rejectErr error) {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.handshakeTimer != nil {
		c.handshakeTimer.Stop()
		c.handshakeTimer = nil
	}
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
	c.gen++
	c.clientID = ""
	if c.state != StateDisconnected {
		c.setStateLocked(StateDisconnected, reason)
	}
	waiters := c.drainWaitersLocked()
	// Waiter channels are buffered; sending under the lock cannot block
	for _, ch := range waiters {
		ch <- rejectErr
	}
}

// drainWaitersLocked takes the current waiter set. Caller holds c.mu.
func (c *Client) drainWaitersLocked() []chan error {
	waiters := c.waiters
	c.waiters = nil
	return waiters
}

func (c *Client) rejectWaiters(waiters []chan error, err error) {
	for _, ch := range waiters {
		ch <- err
	}
}

// captureInterest atomically reads the identity and the topic snapshot
// that a registration push should carry.
func (c *Client) captureInterest() (clientID string, topics []string) {
	c.mu.Lock()
	clientID = c.clientID
	c.mu.Unlock()
	return clientID, c.registry.snapshot()
}

// setStateLocked transitions the connection state and logs it.
// Caller holds c.mu.
func (c *Client) setStateLocked(next State, reason string) {
	if c.state == next {
		return
	}
	old := c.state
	c.state = next
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Category:     log.CategoryState,
		ClientID:     c.clientID,
		StateChange: &log.StateChangeEvent{
			OldState: old.String(),
			NewState: next.String(),
			Reason:   reason,
			Attempt:  c.policy.Attempts(),
		},
	})
}

func (c *Client) logFrame(frame sse.Frame, handshake, dropped bool) {
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    log.DirectionIn,
		Category:     log.CategoryFrame,
		Topic:        frame.Event,
		Frame: &log.FrameEvent{
			Event:     frame.Event,
			Size:      len(frame.Data),
			Handshake: handshake,
			Dropped:   dropped,
		},
	})
}

func (c *Client) logError(op string, err error, topic string) {
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Category:     log.CategoryError,
		Topic:        topic,
		Error: &log.ErrorEventData{
			Op:      op,
			Message: err.Error(),
			Context: topic,
		},
	})
}
