package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default HTTP timeout for catalog fetches.
const defaultTimeout = 10 * time.Second

const profileHeaderValue = "public"

// Template is a remote-sourced gallery entry. Records are immutable within a
// client session; the catalog service owns their lifecycle.
type Template struct {
	ID           string `json:"id"`
	ThumbnailURL string `json:"thumbnail_url"`
	Preview      string `json:"preview"`
}

// Query carries pagination, search, and sort parameters for a template fetch.
// Zero values are replaced with the service defaults.
type Query struct {
	RequestingUserID string
	Page             int
	Limit            int
	Search           string
	Filter           string
	SortBy           string
	SortOrder        string
}

// Credentials authenticate catalog calls: a bearer token plus the service API key.
type Credentials struct {
	APIKey      string
	BearerToken string
}

// StatusError reports a non-2xx response from the catalog endpoint.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("catalog: fetch status %d", e.Code)
	}
	return fmt.Sprintf("catalog: fetch status %d: %s", e.Code, e.Body)
}

// SchemaError reports a malformed template record in the response payload.
type SchemaError struct {
	Index  int
	Reason string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("catalog: record %d: %s", e.Index, e.Reason)
}

// ErrMissingEndpoint is returned when the client has no endpoint configured.
var ErrMissingEndpoint = errors.New("catalog: missing endpoint URL")

// Client fetches template records from the remote catalog RPC endpoint.
type Client struct {
	endpoint string
	creds    Credentials
	http     *http.Client
}

// ClientOption customises Client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (primarily for tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient constructs a catalog client for the given endpoint and credentials.
func NewClient(endpoint string, creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		creds:    creds,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type rpcRequest struct {
	RequestingUserID string  `json:"p_requesting_user_id"`
	Page             int     `json:"p_page"`
	Limit            int     `json:"p_limit"`
	Search           *string `json:"p_search"`
	Filter           string  `json:"p_filter"`
	SortBy           string  `json:"p_sort_by"`
	SortOrder        string  `json:"p_sort_order"`
}

// FetchTemplates issues a single POST to the catalog RPC endpoint and returns
// the parsed template records in service order. Non-2xx responses surface as
// *StatusError, transport failures as a wrapped error, and malformed records
// as *SchemaError.
func (c *Client) FetchTemplates(ctx context.Context, q Query) ([]Template, error) {
	if c == nil || c.endpoint == "" {
		return nil, ErrMissingEndpoint
	}

	body := rpcRequest{
		RequestingUserID: strings.TrimSpace(q.RequestingUserID),
		Page:             q.Page,
		Limit:            q.Limit,
		Filter:           q.Filter,
		SortBy:           q.SortBy,
		SortOrder:        q.SortOrder,
	}
	if body.Page <= 0 {
		body.Page = 1
	}
	if body.Limit <= 0 {
		body.Limit = 20
	}
	if body.Filter == "" {
		body.Filter = "all"
	}
	if body.SortBy == "" {
		body.SortBy = "updated_at"
	}
	if body.SortOrder == "" {
		body.SortOrder = "desc"
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		body.Search = &search
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Profile", profileHeaderValue)
	req.Header.Set("Accept-Profile", profileHeaderValue)
	if c.creds.APIKey != "" {
		req.Header.Set("apikey", c.creds.APIKey)
	}
	if c.creds.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.BearerToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: drainError(resp.Body)}
	}

	var records []Template
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("catalog: decode response: %w", err)
	}

	templates := make([]Template, 0, len(records))
	for i, rec := range records {
		rec.ID = strings.TrimSpace(rec.ID)
		rec.ThumbnailURL = strings.TrimSpace(rec.ThumbnailURL)
		rec.Preview = strings.TrimSpace(rec.Preview)
		if rec.ID == "" {
			return nil, &SchemaError{Index: i, Reason: "missing id"}
		}
		if rec.Preview == "" {
			rec.Preview = rec.ThumbnailURL
		}
		if rec.Preview == "" {
			return nil, &SchemaError{Index: i, Reason: "missing preview and thumbnail_url"}
		}
		templates = append(templates, rec)
	}
	return templates, nil
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
