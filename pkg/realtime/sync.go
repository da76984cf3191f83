package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/strata-base/strata-go/pkg/log"
	"github.com/strata-base/strata-go/pkg/transport"
)

// registration is the out-of-band request body registering the interest set.
type registration struct {
	ClientID      string   `json:"clientId"`
	Subscriptions []string `json:"subscriptions"`
}

// syncCoordinator converts registry mutations and reconnections into
// registration pushes. At most one push is in flight; requesting a new one
// cancels the old (supersession, a non-error outcome for the cancelled
// push). After a push lands, the coordinator compares the pushed set
// against the live registry and re-issues if they diverged, so a
// supersession race can never strand the final local state unregistered.
type syncCoordinator struct {
	client *Client

	mu     sync.Mutex
	seq    int
	cancel context.CancelFunc
}

func newSyncCoordinator(c *Client) *syncCoordinator {
	return &syncCoordinator{client: c}
}

// Push registers the current topic snapshot with the server under the
// current client identity.
//
// Outcomes:
//   - nil: the snapshot (or a newer one, when superseded) is registered
//   - ctx.Err(): the caller cancelled its own push
//   - *SyncError: the server rejected the registration, or the request
//     itself failed (including the transport's own deadline expiring)
//
// Pushing before the handshake has produced an identity is a no-op; the
// post-handshake push carries the set.
func (s *syncCoordinator) Push(ctx context.Context) error {
	for {
		clientID, topics := s.client.captureInterest()
		if clientID == "" {
			return nil
		}

		s.mu.Lock()
		if s.cancel != nil {
			// Supersede the in-flight push
			s.cancel()
			s.cancel = nil
		}
		s.seq++
		seq := s.seq
		pushCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.mu.Unlock()

		_, err := s.client.transport.Send(pushCtx, s.client.streamPath, transport.Options{
			Method: http.MethodPost,
			Body:   registration{ClientID: clientID, Subscriptions: topics},
		})
		cancel()

		s.mu.Lock()
		superseded := seq != s.seq
		if !superseded && s.cancel != nil {
			s.cancel = nil
		}
		s.mu.Unlock()

		if err != nil {
			if transport.IsAbort(err) {
				if superseded {
					// The newer push owns convergence now
					s.logSync(topics, true)
					return nil
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// Supersession and teardown both bump seq, so a
				// non-superseded abort with the caller's context still live
				// is the transport's own request deadline expiring.
				return &SyncError{Topics: topics, Err: err}
			}
			return &SyncError{Topics: topics, Err: err}
		}

		s.logSync(topics, false)

		// The registry may have moved while the push was in flight; if so,
		// go again so the server converges on the final local state.
		currentID, current := s.client.captureInterest()
		if currentID == clientID && equalTopicSets(topics, current) {
			return nil
		}
		if currentID == "" {
			// Disconnected while pushing; the next handshake re-registers
			return nil
		}
	}
}

// cancelPending cancels any in-flight push as a non-error outcome.
// Used on teardown and terminal disconnect.
func (s *syncCoordinator) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.seq++
	}
}

func (s *syncCoordinator) logSync(topics []string, superseded bool) {
	s.client.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.client.connID,
		Direction:    log.DirectionOut,
		Category:     log.CategorySync,
		Sync: &log.SyncEvent{
			Topics:     topics,
			Superseded: superseded,
		},
	})
}

// equalTopicSets compares two sorted topic slices.
func equalTopicSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
