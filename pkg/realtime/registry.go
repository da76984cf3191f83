package realtime

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// ConnectTopic is the internal control topic carrying the handshake frame.
// It is never part of a registration push; subscribing to it lets an
// application observe (re)connects without affecting the interest set.
const ConnectTopic = "connect"

// Message is one realtime notification delivered to subscribers.
type Message struct {
	// Topic is the subscription key the notification belongs to.
	Topic string `json:"topic"`

	// Action is the change kind ("create", "update", "delete").
	Action string `json:"action"`

	// Record is the raw record payload.
	Record json.RawMessage `json:"record"`
}

// Callback receives messages for a subscribed topic. Callbacks for one
// topic are invoked in registration order; a panicking callback is
// isolated and reported, it does not stop delivery to the others.
type Callback func(msg Message)

// subscriber is one registered callback. Its pointer identity is what an
// unsubscribe handle removes, so the same callback can be registered twice.
type subscriber struct {
	cb Callback
}

// registry is the in-memory topic -> ordered subscriber list mapping.
// It performs no I/O; every mutation is atomic behind the mutex.
type registry struct {
	mu     sync.RWMutex
	topics map[string][]*subscriber
}

func newRegistry() *registry {
	return &registry{topics: make(map[string][]*subscriber)}
}

// add appends sub to the topic's subscriber list, creating the topic entry
// if absent. Returns true when the topic is new (the interest set changed).
func (r *registry) add(topic string, sub *subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, exists := r.topics[topic]
	r.topics[topic] = append(subs, sub)
	return !exists
}

// remove deletes sub from the topic's list by pointer identity. The topic
// entry is deleted entirely once its list is empty. Returns whether the
// subscriber was found and whether the topic entry is gone.
func (r *registry) remove(topic string, sub *subscriber) (removed, topicGone bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, exists := r.topics[topic]
	if !exists {
		return false, false
	}

	for i, s := range subs {
		if s == sub {
			subs = append(subs[:i], subs[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return false, false
	}

	if len(subs) == 0 {
		delete(r.topics, topic)
		return true, true
	}
	r.topics[topic] = subs
	return true, false
}

// removeTopic deletes every subscriber of the topic.
// Returns true when the topic existed.
func (r *registry) removeTopic(topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.topics[topic]; !exists {
		return false
	}
	delete(r.topics, topic)
	return true
}

// removeByPrefix deletes every topic whose key starts with prefix.
// Returns the number of topics removed.
func (r *registry) removeByPrefix(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for topic := range r.topics {
		if strings.HasPrefix(topic, prefix) {
			delete(r.topics, topic)
			removed++
		}
	}
	return removed
}

// removeAll deletes every topic. Returns the number of topics removed.
func (r *registry) removeAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := len(r.topics)
	r.topics = make(map[string][]*subscriber)
	return removed
}

// subscribers returns a copy of the topic's subscriber list in
// registration order.
func (r *registry) subscribers(topic string) []*subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.topics[topic]
	if len(subs) == 0 {
		return nil
	}
	out := make([]*subscriber, len(subs))
	copy(out, subs)
	return out
}

// snapshot returns the sorted distinct topic keys currently registered,
// excluding the internal control topic.
func (r *registry) snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.topics))
	for topic := range r.topics {
		if topic == ConnectTopic {
			continue
		}
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// empty reports whether no subscribers remain at all.
func (r *registry) empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics) == 0
}
