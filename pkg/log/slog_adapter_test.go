package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "sess-1",
		Direction:    DirectionIn,
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			OldState: "CONNECTING",
			NewState: "OPEN",
			Reason:   "handshake complete",
		},
	})

	out := buf.String()
	for _, want := range []string{"conn_id=sess-1", "category=STATE", "old_state=CONNECTING", "new_state=OPEN"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestMultiLogger(t *testing.T) {
	var a, b capturingLogger

	multi := NewMultiLogger(&a, nil, &b)
	multi.Log(Event{ConnectionID: "sess-1", Category: CategoryFrame})
	multi.Log(Event{ConnectionID: "sess-1", Category: CategorySync})

	if len(a.events) != 2 || len(b.events) != 2 {
		t.Errorf("fan-out counts = %d, %d, want 2, 2", len(a.events), len(b.events))
	}
}

type capturingLogger struct {
	events []Event
}

func (c *capturingLogger) Log(event Event) {
	c.events = append(c.events, event)
}
