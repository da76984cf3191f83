package records

import (
	"encoding/json"
	"time"
)

// Record is a schemaless server record. The typed getters return the zero
// value when the field is absent or has a different type.
type Record map[string]any

// ID returns the record id.
func (r Record) ID() string {
	return r.GetString("id")
}

// GetString returns the named field as a string.
func (r Record) GetString(key string) string {
	v, _ := r[key].(string)
	return v
}

// GetBool returns the named field as a bool.
func (r Record) GetBool(key string) bool {
	v, _ := r[key].(bool)
	return v
}

// GetFloat returns the named field as a float64. JSON numbers decode as
// float64, so this covers numeric fields generally.
func (r Record) GetFloat(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case int:
		return float64(v)
	default:
		return 0
	}
}

// GetInt returns the named field truncated to an int.
func (r Record) GetInt(key string) int {
	return int(r.GetFloat(key))
}

// GetTime parses the named field as an RFC 3339 timestamp.
func (r Record) GetTime(key string) time.Time {
	s := r.GetString(key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// GetStringSlice returns the named field as a string slice. Non-string
// elements are skipped.
func (r Record) GetStringSlice(key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// GetRecord returns a nested object field as a Record.
func (r Record) GetRecord(key string) Record {
	v, _ := r[key].(map[string]any)
	return Record(v)
}

// Expand returns the expanded relations of the record, if any.
func (r Record) Expand() Record {
	return r.GetRecord("expand")
}

// Has reports whether the field exists, regardless of its value.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}
