package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/strata-base/strata-go/pkg/log"
)

// createTestCapture writes events to a temporary capture file.
func createTestCapture(t *testing.T, events []log.Event) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture.cbor")
	fl, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("create capture: %v", err)
	}
	for _, e := range events {
		fl.Log(e)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("close capture: %v", err)
	}
	return path
}

func sampleEvents() []log.Event {
	ts := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	return []log.Event{
		{
			Timestamp: ts, ConnectionID: "sess-1234abcd", Direction: log.DirectionIn,
			Category: log.CategoryFrame, Topic: "connect",
			Frame: &log.FrameEvent{Event: "connect", Size: 24, Handshake: true},
		},
		{
			Timestamp: ts.Add(time.Second), ConnectionID: "sess-1234abcd",
			Category: log.CategoryState, ClientID: "c1",
			StateChange: &log.StateChangeEvent{OldState: "CONNECTING", NewState: "OPEN"},
		},
		{
			Timestamp: ts.Add(2 * time.Second), ConnectionID: "sess-1234abcd",
			Direction: log.DirectionOut, Category: log.CategorySync, ClientID: "c1",
			Sync: &log.SyncEvent{Topics: []string{"posts/*", "users/u1"}},
		},
		{
			Timestamp: ts.Add(3 * time.Second), ConnectionID: "sess-1234abcd",
			Direction: log.DirectionIn, Category: log.CategoryFrame, Topic: "posts/*",
			Frame: &log.FrameEvent{Event: "message", Size: 120},
		},
		{
			Timestamp: ts.Add(4 * time.Second), ConnectionID: "sess-1234abcd",
			Category: log.CategoryError, Topic: "posts/*",
			Error: &log.ErrorEventData{Op: "callback", Message: "panic: boom", Context: "posts/*"},
		},
	}
}

func TestViewFormatsEvents(t *testing.T) {
	path := createTestCapture(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"[conn:sess-123]",
		"Handshake: yes",
		"CONNECTING -> OPEN",
		"Topics (2): posts/*, users/u1",
		"Op: callback",
		"panic: boom",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("view output missing %q\n%s", want, output)
		}
	}
}

func TestViewAppliesFilter(t *testing.T) {
	path := createTestCapture(t, sampleEvents())

	cat := log.CategorySync
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Category: &cat}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "posts/*, users/u1") {
		t.Errorf("filtered view should contain the sync event\n%s", output)
	}
	if strings.Contains(output, "Handshake") {
		t.Errorf("filtered view should not contain frame events\n%s", output)
	}
}

func TestStatsSummarizes(t *testing.T) {
	path := createTestCapture(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Total Events: 5",
		"FRAME:",
		"SYNC:",
		"ERROR:",
		"Sessions: 1",
		"Client: c1",
		"posts/*",
		"Errors: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("stats output missing %q\n%s", want, output)
		}
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestCapture(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "events.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data := readFile(t, out)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d JSONL lines, want 5", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("first line is not valid JSON: %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestCapture(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "events.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(readFile(t, out))).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}
	if len(records) != 6 { // header + 5 events
		t.Fatalf("got %d CSV rows, want 6", len(records))
	}
	if records[0][0] != "timestamp" {
		t.Errorf("header = %v", records[0])
	}
	if !strings.Contains(records[3][6], "posts/*") {
		t.Errorf("sync row detail = %q", records[3][6])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestCapture(t, sampleEvents())
	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("RunExport with unknown format should fail")
	}
}

func TestFilterWritesSubset(t *testing.T) {
	path := createTestCapture(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.cbor")

	cat := log.CategoryFrame
	count, err := RunFilter(path, log.Filter{Category: &cat}, out)
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 2 {
		t.Errorf("filtered %d events, want 2", count)
	}

	// The output is itself a readable capture
	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatalf("open filtered capture: %v", err)
	}
	defer reader.Close()
	events, err := reader.All()
	if err != nil {
		t.Fatalf("read filtered capture: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("filtered capture has %d events, want 2", len(events))
	}
	for _, e := range events {
		if e.Category != log.CategoryFrame {
			t.Errorf("unexpected category %s in filtered capture", e.Category)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if _, err := ParseDirectionFlag("IN"); err != nil {
		t.Errorf("ParseDirectionFlag(IN): %v", err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("ParseDirectionFlag(sideways) should fail")
	}
	if c, err := ParseCategoryFlag("Sync"); err != nil || c != log.CategorySync {
		t.Errorf("ParseCategoryFlag(Sync) = (%v, %v)", c, err)
	}
	if _, err := ParseCategoryFlag("misc"); err == nil {
		t.Error("ParseCategoryFlag(misc) should fail")
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
