package records

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/strata-base/strata-go/pkg/transport"
)

type sentRequest struct {
	path string
	opts transport.Options
}

// fakeSender replays canned responses and records every request.
type fakeSender struct {
	requests  []sentRequest
	responses []*transport.Response
	err       error
}

func (f *fakeSender) Send(_ context.Context, path string, opts transport.Options) (*transport.Response, error) {
	f.requests = append(f.requests, sentRequest{path: path, opts: opts})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &transport.Response{StatusCode: 200}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func jsonResponse(t *testing.T, v any) *transport.Response {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &transport.Response{StatusCode: 200, Body: body}
}

func TestList(t *testing.T) {
	f := &fakeSender{responses: []*transport.Response{jsonResponse(t, ListResult{
		Page: 2, PerPage: 5, TotalItems: 12, TotalPages: 3,
		Items: []Record{{"id": "r6"}, {"id": "r7"}},
	})}}
	svc, err := NewService(f, "posts")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.List(context.Background(), ListOptions{
		Page: 2, PerPage: 5, Sort: "-created", Filter: "status = 'published'",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.TotalItems != 12 || len(result.Items) != 2 {
		t.Errorf("result = %+v", result)
	}
	if result.Items[0].ID() != "r6" {
		t.Errorf("first item id = %q, want r6", result.Items[0].ID())
	}

	req := f.requests[0]
	if req.path != "/api/collections/posts/records" {
		t.Errorf("path = %q", req.path)
	}
	if req.opts.Method != http.MethodGet {
		t.Errorf("method = %q", req.opts.Method)
	}
	q := req.opts.Query
	if q.Get("page") != "2" || q.Get("perPage") != "5" || q.Get("sort") != "-created" {
		t.Errorf("query = %v", q)
	}
	if q.Get("filter") != "status = 'published'" {
		t.Errorf("filter = %q", q.Get("filter"))
	}
}

func TestFullListPages(t *testing.T) {
	f := &fakeSender{responses: []*transport.Response{
		jsonResponse(t, ListResult{Page: 1, TotalPages: 3, Items: []Record{{"id": "a"}, {"id": "b"}}}),
		jsonResponse(t, ListResult{Page: 2, TotalPages: 3, Items: []Record{{"id": "c"}, {"id": "d"}}}),
		jsonResponse(t, ListResult{Page: 3, TotalPages: 3, Items: []Record{{"id": "e"}}}),
	}}
	svc, _ := NewService(f, "posts")

	items, err := svc.FullList(context.Background(), ListOptions{PerPage: 2})
	if err != nil {
		t.Fatalf("FullList: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("got %d items, want 5", len(items))
	}
	if len(f.requests) != 3 {
		t.Errorf("issued %d requests, want 3", len(f.requests))
	}
	if got := f.requests[2].opts.Query.Get("page"); got != "3" {
		t.Errorf("last page = %q, want 3", got)
	}
}

func TestGet(t *testing.T) {
	f := &fakeSender{responses: []*transport.Response{jsonResponse(t, Record{
		"id": "p1", "title": "hello",
		"expand": map[string]any{"author": map[string]any{"id": "u1"}},
	})}}
	svc, _ := NewService(f, "posts")

	rec, err := svc.Get(context.Background(), "p1", ListOptions{Expand: "author"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.GetString("title") != "hello" {
		t.Errorf("title = %q", rec.GetString("title"))
	}
	if rec.Expand().GetRecord("author").ID() != "u1" {
		t.Errorf("expand = %v", rec.Expand())
	}

	req := f.requests[0]
	if req.path != "/api/collections/posts/records/p1" {
		t.Errorf("path = %q", req.path)
	}
	if req.opts.Query.Get("expand") != "author" {
		t.Errorf("query = %v", req.opts.Query)
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	f := &fakeSender{responses: []*transport.Response{
		jsonResponse(t, Record{"id": "p1"}),
		jsonResponse(t, Record{"id": "p1", "title": "new"}),
		{StatusCode: 204},
	}}
	svc, _ := NewService(f, "posts")
	ctx := context.Background()

	rec, err := svc.Create(ctx, map[string]any{"title": "old"})
	if err != nil || rec.ID() != "p1" {
		t.Fatalf("Create = (%v, %v)", rec, err)
	}

	rec, err = svc.Update(ctx, "p1", map[string]any{"title": "new"})
	if err != nil || rec.GetString("title") != "new" {
		t.Fatalf("Update = (%v, %v)", rec, err)
	}

	if err := svc.Delete(ctx, "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	methods := []string{http.MethodPost, http.MethodPatch, http.MethodDelete}
	for i, want := range methods {
		if got := f.requests[i].opts.Method; got != want {
			t.Errorf("request %d method = %q, want %q", i, got, want)
		}
	}
	if f.requests[2].path != "/api/collections/posts/records/p1" {
		t.Errorf("delete path = %q", f.requests[2].path)
	}
}

func TestErrorsPassThrough(t *testing.T) {
	apiErr := &transport.APIError{Status: 404, Message: "not found"}
	f := &fakeSender{err: apiErr}
	svc, _ := NewService(f, "posts")

	if _, err := svc.Get(context.Background(), "missing", ListOptions{}); err != apiErr {
		t.Errorf("Get error = %v, want the APIError untouched", err)
	}
}

func TestValidation(t *testing.T) {
	if _, err := NewService(nil, "posts"); err == nil {
		t.Error("NewService(nil sender) should fail")
	}
	if _, err := NewService(&fakeSender{}, ""); err == nil {
		t.Error("NewService(empty collection) should fail")
	}

	svc, _ := NewService(&fakeSender{}, "posts")
	if _, err := svc.Get(context.Background(), "", ListOptions{}); err == nil {
		t.Error("Get with empty id should fail")
	}
	if err := svc.Delete(context.Background(), ""); err == nil {
		t.Error("Delete with empty id should fail")
	}
}

func TestCollectionNameEscaping(t *testing.T) {
	f := &fakeSender{}
	svc, _ := NewService(f, "odd name")

	_, _ = svc.List(context.Background(), ListOptions{})
	want := fmt.Sprintf("/api/collections/%s/records", "odd%20name")
	if f.requests[0].path != want {
		t.Errorf("path = %q, want %q", f.requests[0].path, want)
	}
}
