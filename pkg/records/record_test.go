package records

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecordGetters(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`{
		"id": "p1",
		"title": "hello",
		"views": 42,
		"score": 2.5,
		"published": true,
		"created": "2026-03-14T15:09:26Z",
		"tags": ["go", "sdk", 3],
		"author": {"id": "u1"}
	}`), &rec)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if rec.ID() != "p1" {
		t.Errorf("ID() = %q", rec.ID())
	}
	if rec.GetString("title") != "hello" {
		t.Errorf("GetString(title) = %q", rec.GetString("title"))
	}
	if rec.GetInt("views") != 42 {
		t.Errorf("GetInt(views) = %d", rec.GetInt("views"))
	}
	if rec.GetFloat("score") != 2.5 {
		t.Errorf("GetFloat(score) = %v", rec.GetFloat("score"))
	}
	if !rec.GetBool("published") {
		t.Error("GetBool(published) = false")
	}

	want := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	if !rec.GetTime("created").Equal(want) {
		t.Errorf("GetTime(created) = %v", rec.GetTime("created"))
	}

	tags := rec.GetStringSlice("tags")
	if len(tags) != 2 || tags[0] != "go" || tags[1] != "sdk" {
		t.Errorf("GetStringSlice(tags) = %v", tags)
	}

	if rec.GetRecord("author").ID() != "u1" {
		t.Errorf("GetRecord(author) = %v", rec.GetRecord("author"))
	}
}

func TestRecordZeroValues(t *testing.T) {
	rec := Record{"title": 7}

	if rec.GetString("title") != "" {
		t.Error("type mismatch should yield zero value")
	}
	if rec.GetString("missing") != "" || rec.GetInt("missing") != 0 {
		t.Error("missing field should yield zero value")
	}
	if !rec.GetTime("missing").IsZero() {
		t.Error("missing timestamp should be zero")
	}
	if rec.Has("missing") {
		t.Error("Has(missing) = true")
	}
	if !rec.Has("title") {
		t.Error("Has(title) = false")
	}
}
