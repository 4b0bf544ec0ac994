package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ohler55/ojg/oj"
	"resty.dev/v3"

	"github.com/a-delannoy/yaani/internal/config"
	"github.com/a-delannoy/yaani/internal/query"
)

// defaultAPITimeout bounds a single page request when the source does
// not configure one.
const defaultAPITimeout = 30 * time.Second

// apiFetcher talks to a Netbox-style REST API: one collection endpoint
// per (app, type) pair, field filters as query parameters, offset
// pagination through a "next" URL.
type apiFetcher struct {
	client   *resty.Client
	pageSize int
}

func newAPIFetcher(spec *config.APISource) (*apiFetcher, error) {
	timeout := defaultAPITimeout
	if spec.Timeout != "" {
		parsed, err := time.ParseDuration(spec.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}
		timeout = parsed
	}

	client := resty.New().
		SetBaseURL(spec.URL).
		SetTimeout(timeout)
	if spec.Token != "" {
		client.SetAuthScheme("Token").SetAuthToken(spec.Token)
	}

	return &apiFetcher{client: client, pageSize: spec.PageSize}, nil
}

func (f *apiFetcher) fetch(ctx context.Context, args *config.Extract) ([]Record, error) {
	params := make(map[string]string, len(args.Filters)+1)
	for k, v := range args.Filters {
		params[k] = fmt.Sprint(v)
	}
	if f.pageSize > 0 {
		params["limit"] = strconv.Itoa(f.pageSize)
	}

	var records []Record
	next := fmt.Sprintf("/%s/%s/", args.App, args.Type)
	for next != "" {
		req := f.client.R().SetContext(ctx)
		if params != nil {
			req.SetQueryParams(params)
		}
		res, err := req.Get(next)
		if err != nil {
			return nil, err
		}
		if res.IsError() {
			return nil, fmt.Errorf("GET %s: %s", next, res.Status())
		}

		page, nextURL, err := parsePage(res.Bytes())
		if err != nil {
			return nil, fmt.Errorf("GET %s: %w", next, err)
		}
		records = append(records, page...)

		// The "next" URL already carries filters, limit and offset.
		next = nextURL
		params = nil
	}
	return records, nil
}

// parsePage decodes one API response body. Paginated endpoints wrap the
// items in {count, next, results}; list endpoints may return a bare
// array, in which case there is no next page.
func parsePage(body []byte) ([]Record, string, error) {
	doc, err := oj.Parse(body)
	if err != nil {
		return nil, "", fmt.Errorf("decoding response: %w", err)
	}

	var (
		items []any
		next  string
	)
	switch t := query.Normalize(doc).(type) {
	case map[string]any:
		results, ok := t["results"].([]any)
		if !ok {
			return nil, "", fmt.Errorf("response object has no results array")
		}
		items = results
		if s, ok := t["next"].(string); ok {
			next = s
		}
	case []any:
		items = t
	default:
		return nil, "", fmt.Errorf("unexpected response shape %T", doc)
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("item %d is %T, want object", i, item)
		}
		records = append(records, rec)
	}
	return records, next, nil
}
