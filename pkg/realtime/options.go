package realtime

import (
	"encoding/json"
)

// SubscribeOption customizes a single subscription. Options are encoded
// into the subscription key alongside the topic, so the server applies
// them when producing notifications for that key.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	query map[string]string
}

// WithExpand requests that the given relations are expanded in delivered
// records.
func WithExpand(expand string) SubscribeOption {
	return WithQuery("expand", expand)
}

// WithFields restricts delivered records to the given field list.
func WithFields(fields string) SubscribeOption {
	return WithQuery("fields", fields)
}

// WithFilter delivers only records matching the filter expression.
// Use the filter package to build expressions with parameters safely.
func WithFilter(filter string) SubscribeOption {
	return WithQuery("filter", filter)
}

// WithQuery sets an arbitrary per-subscription query modifier.
func WithQuery(key, value string) SubscribeOption {
	return func(o *subscribeOptions) {
		if o.query == nil {
			o.query = make(map[string]string)
		}
		o.query[key] = value
	}
}

// subscriptionKey builds the registry key for a topic and its options.
// Without options the key is the topic itself. With options the encoded
// form is appended, making subscriptions with different modifiers distinct
// interest entries. Encoding is deterministic (JSON object keys are sorted).
func subscriptionKey(topic string, opts []SubscribeOption) string {
	var o subscribeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.query) == 0 {
		return topic
	}

	encoded, err := json.Marshal(struct {
		Query map[string]string `json:"query"`
	}{Query: o.query})
	if err != nil {
		return topic
	}
	return topic + "?options=" + string(encoded)
}
