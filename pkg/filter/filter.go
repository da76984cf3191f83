// Package filter builds server-side filter expressions from templates.
//
// Filter strings are passed verbatim to the server's query engine, so
// interpolating user input into them directly invites injection. Build
// substitutes named placeholders with safely encoded literals instead:
//
//	expr, err := filter.Build("status = {:status} && created >= {:since}",
//		filter.Params{"status": "published", "since": time.Now().AddDate(0, -1, 0)})
package filter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Params maps placeholder names to the values substituted for them.
type Params map[string]any

var placeholderPattern = regexp.MustCompile(`\{:(\w+)\}`)

// Build substitutes every {:name} placeholder in expr with the encoded
// value of params[name]. A placeholder without a matching parameter is an
// error, as is a parameter no placeholder references.
func Build(expr string, params Params) (string, error) {
	seen := make(map[string]bool, len(params))

	var missing []string
	result := placeholderPattern.ReplaceAllStringFunc(expr, func(match string) string {
		name := match[2 : len(match)-1]
		value, ok := params[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		seen[name] = true
		return encode(value)
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("filter: no value for placeholder(s) %s", strings.Join(missing, ", "))
	}
	for name := range params {
		if !seen[name] {
			return "", fmt.Errorf("filter: parameter %q has no placeholder", name)
		}
	}

	return result, nil
}

// encode renders a parameter as a filter literal.
func encode(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case string:
		return quote(v)
	case time.Time:
		return quote(v.UTC().Format(time.RFC3339Nano))
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		// Slices, maps and structs are embedded as their JSON text
		data, err := json.Marshal(v)
		if err != nil {
			return quote(fmt.Sprintf("%v", v))
		}
		return quote(string(data))
	}
}

// quote wraps s in single quotes, escaping embedded quotes and backslashes.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
