package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/strata-base/strata-go/internal/sse"
)

// parseIdentity extracts the server-issued client identity from the
// handshake frame.
func parseIdentity(frame sse.Frame) (string, error) {
	var payload struct {
		ClientID string `json:"clientId"`
	}
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		return "", &HandshakeError{Reason: "invalid identity frame", Err: err}
	}
	if payload.ClientID == "" {
		return "", &HandshakeError{Reason: "identity frame without clientId"}
	}
	return payload.ClientID, nil
}

// dispatch parses one data frame and routes it to the matching
// subscribers. Frames without a routable topic are dropped.
func (c *Client) dispatch(frame sse.Frame) {
	var msg Message
	if err := json.Unmarshal(frame.Data, &msg); err != nil || msg.Topic == "" {
		c.logFrame(frame, false, true)
		return
	}

	c.logFrame(frame, false, false)
	c.deliver(msg)
}

// deliver invokes every subscriber of the message's topic in registration
// order. Each callback runs inside its own recover boundary: a panic is
// reported as a CallbackError and delivery continues with the next
// subscriber.
func (c *Client) deliver(msg Message) {
	for _, sub := range c.registry.subscribers(msg.Topic) {
		c.invoke(sub, msg)
	}
}

func (c *Client) invoke(sub *subscriber, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logError("callback", &CallbackError{Topic: msg.Topic, Value: r}, msg.Topic)
		}
	}()
	sub.cb(msg)
}

// String implements fmt.Stringer for messages in debug output.
func (m Message) String() string {
	return fmt.Sprintf("%s %s (%d bytes)", m.Topic, m.Action, len(m.Record))
}
