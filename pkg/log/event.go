package log

import (
	"time"
)

// Event represents a client event captured during a session.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the client session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// ClientID is the server-issued realtime identity, once known.
	ClientID string `cbor:"5,keyasint,omitempty"`

	// Topic is the subscription topic the event relates to, if any.
	Topic string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"7,keyasint,omitempty"`  // Realtime stream frames
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`  // Connection state transitions
	Sync        *SyncEvent        `cbor:"9,keyasint,omitempty"`  // Subscription sync pushes
	Request     *RequestEvent     `cbor:"10,keyasint,omitempty"` // Plain HTTP requests
	Error       *ErrorEventData   `cbor:"11,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame is a frame received on the realtime stream.
	CategoryFrame Category = 0
	// CategoryState is a connection state transition.
	CategoryState Category = 1
	// CategorySync is a subscription registration push.
	CategorySync Category = 2
	// CategoryRequest is a plain HTTP request/response.
	CategoryRequest Category = 3
	// CategoryError is an error at any layer.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryState:
		return "STATE"
	case CategorySync:
		return "SYNC"
	case CategoryRequest:
		return "REQUEST"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent describes a frame received on the realtime stream.
type FrameEvent struct {
	// Event is the frame's event name ("connect" for the handshake).
	Event string `cbor:"1,keyasint"`

	// Size is the frame payload size in bytes.
	Size int `cbor:"2,keyasint"`

	// Handshake indicates this was the identity handshake frame.
	Handshake bool `cbor:"3,keyasint,omitempty"`

	// Dropped indicates the frame carried no routable topic and was discarded.
	Dropped bool `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent describes a connection state transition.
type StateChangeEvent struct {
	// OldState is the state before the transition.
	OldState string `cbor:"1,keyasint"`

	// NewState is the state after the transition.
	NewState string `cbor:"2,keyasint"`

	// Reason describes what triggered the transition, if known.
	Reason string `cbor:"3,keyasint,omitempty"`

	// Attempt is the reconnect attempt counter at transition time.
	Attempt int `cbor:"4,keyasint,omitempty"`
}

// SyncEvent describes a subscription registration push.
type SyncEvent struct {
	// Topics is the topic snapshot carried by the push.
	Topics []string `cbor:"1,keyasint"`

	// Superseded indicates the push was cancelled by a newer one.
	Superseded bool `cbor:"2,keyasint,omitempty"`
}

// RequestEvent describes a plain HTTP request/response pair.
type RequestEvent struct {
	// Method is the HTTP method.
	Method string `cbor:"1,keyasint"`

	// Path is the request path relative to the base URL.
	Path string `cbor:"2,keyasint"`

	// Status is the HTTP response status code (0 when the request failed
	// before a response arrived).
	Status int `cbor:"3,keyasint,omitempty"`

	// Duration is the wall-clock request duration.
	Duration time.Duration `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData describes an error captured at any layer.
type ErrorEventData struct {
	// Op is the operation that failed ("connect", "handshake", "sync",
	// "dispatch", "callback").
	Op string `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`

	// Context provides additional context (e.g. the topic being dispatched).
	Context string `cbor:"3,keyasint,omitempty"`
}
