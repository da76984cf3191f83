// Package records provides CRUD access to Strata record collections.
package records

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/strata-base/strata-go/pkg/transport"
)

// Sender issues HTTP requests. Implemented by transport.Client.
type Sender interface {
	Send(ctx context.Context, path string, opts transport.Options) (*transport.Response, error)
}

// Service provides CRUD operations over one record collection.
type Service struct {
	sender     Sender
	collection string
}

// NewService creates a record service for the named collection.
func NewService(sender Sender, collection string) (*Service, error) {
	if sender == nil {
		return nil, fmt.Errorf("records: sender is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("records: collection name is required")
	}
	return &Service{sender: sender, collection: collection}, nil
}

// Collection returns the collection name this service operates on.
func (s *Service) Collection() string {
	return s.collection
}

// ListOptions narrow and shape a List request.
type ListOptions struct {
	// Page is the 1-based page number (default 1).
	Page int

	// PerPage is the page size (default 30).
	PerPage int

	// Sort is the sort expression, e.g. "-created,title".
	Sort string

	// Filter is the filter expression (see the filter package).
	Filter string

	// Expand resolves the named relations inline.
	Expand string

	// Fields limits the returned record fields.
	Fields string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		q.Set("perPage", strconv.Itoa(o.PerPage))
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Filter != "" {
		q.Set("filter", o.Filter)
	}
	if o.Expand != "" {
		q.Set("expand", o.Expand)
	}
	if o.Fields != "" {
		q.Set("fields", o.Fields)
	}
	return q
}

// ListResult is one page of records.
type ListResult struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

// List fetches one page of records.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	resp, err := s.sender.Send(ctx, s.basePath(), transport.Options{
		Method: http.MethodGet,
		Query:  opts.query(),
	})
	if err != nil {
		return nil, err
	}

	var result ListResult
	if err := resp.Decode(&result); err != nil {
		return nil, fmt.Errorf("records: decode list response: %w", err)
	}
	return &result, nil
}

// FullList fetches every record of the collection, paging internally.
// Sort, Filter, Expand and Fields of opts apply; Page is ignored and
// PerPage sets the internal batch size (default 200).
func (s *Service) FullList(ctx context.Context, opts ListOptions) ([]Record, error) {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 200
	}

	var items []Record
	for page := 1; ; page++ {
		opts.Page = page
		opts.PerPage = perPage
		result, err := s.List(ctx, opts)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if len(result.Items) < perPage || (result.TotalPages > 0 && page >= result.TotalPages) {
			return items, nil
		}
	}
}

// Get fetches a single record by id.
func (s *Service) Get(ctx context.Context, id string, opts ListOptions) (Record, error) {
	if id == "" {
		return nil, fmt.Errorf("records: record id is required")
	}

	q := url.Values{}
	if opts.Expand != "" {
		q.Set("expand", opts.Expand)
	}
	if opts.Fields != "" {
		q.Set("fields", opts.Fields)
	}

	resp, err := s.sender.Send(ctx, s.recordPath(id), transport.Options{
		Method: http.MethodGet,
		Query:  q,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

// Create inserts a new record and returns it as stored by the server.
func (s *Service) Create(ctx context.Context, body any) (Record, error) {
	resp, err := s.sender.Send(ctx, s.basePath(), transport.Options{
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

// Update applies a partial update to the record with the given id.
func (s *Service) Update(ctx context.Context, id string, body any) (Record, error) {
	if id == "" {
		return nil, fmt.Errorf("records: record id is required")
	}

	resp, err := s.sender.Send(ctx, s.recordPath(id), transport.Options{
		Method: http.MethodPatch,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

// Delete removes the record with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("records: record id is required")
	}

	_, err := s.sender.Send(ctx, s.recordPath(id), transport.Options{
		Method: http.MethodDelete,
	})
	return err
}

func (s *Service) basePath() string {
	return "/api/collections/" + url.PathEscape(s.collection) + "/records"
}

func (s *Service) recordPath(id string) string {
	return s.basePath() + "/" + url.PathEscape(id)
}

func decodeRecord(resp *transport.Response) (Record, error) {
	var rec Record
	if err := resp.Decode(&rec); err != nil {
		return nil, fmt.Errorf("records: decode record: %w", err)
	}
	return rec, nil
}
