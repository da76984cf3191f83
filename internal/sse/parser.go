// Package sse parses server-sent event streams into discrete frames.
//
// The parser implements the subset of the SSE wire format the Strata
// realtime endpoint produces: `event:` names, multi-line `data:` payloads
// joined with newlines, and optional `id:` fields. Comments and `retry:`
// hints are ignored; reconnect timing is owned by the realtime client.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// DefaultEvent is the event name assigned to frames without an explicit
// `event:` field, per the SSE specification.
const DefaultEvent = "message"

// Frame is one discrete message unit received over the stream.
type Frame struct {
	// Event is the frame's event name.
	Event string

	// ID is the frame's last-event-id, if the server sent one.
	ID string

	// Data is the raw frame payload (joined data lines).
	Data []byte
}

// Parser parses frames from an io.Reader.
type Parser struct {
	reader  *bufio.Reader
	current struct {
		event     string
		id        string
		dataLines []string
		hasData   bool
	}
}

// NewParser creates a new Parser reading from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReader(r)}
}

// Next returns the next frame on the stream.
// Returns io.EOF when the stream is exhausted.
func (p *Parser) Next() (Frame, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Flush a final unterminated frame, if any
				if frame, ok := p.flush(); ok {
					return frame, nil
				}
			}
			return Frame{}, err
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		if line == "" {
			// Empty line terminates the frame
			if frame, ok := p.flush(); ok {
				return frame, nil
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, ":"):
			// Comment / keep-alive, ignore
		case strings.HasPrefix(line, "event:"):
			p.current.event = strings.TrimSpace(line[6:])
		case strings.HasPrefix(line, "id:"):
			p.current.id = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "data:"):
			content := line[5:]
			// Per SSE spec, strip a single optional leading space
			if strings.HasPrefix(content, " ") {
				content = content[1:]
			}
			p.current.dataLines = append(p.current.dataLines, content)
			p.current.hasData = true
		}
		// Other fields (retry:) are ignored
	}
}

// flush returns the accumulated frame and resets parser state.
// Returns false when no fields were accumulated.
func (p *Parser) flush() (Frame, bool) {
	if p.current.event == "" && !p.current.hasData {
		p.current.id = ""
		return Frame{}, false
	}

	frame := Frame{
		Event: p.current.event,
		ID:    p.current.id,
		Data:  []byte(strings.Join(p.current.dataLines, "\n")),
	}
	if frame.Event == "" {
		frame.Event = DefaultEvent
	}

	p.current.event = ""
	p.current.id = ""
	p.current.dataLines = nil
	p.current.hasData = false

	return frame, true
}
