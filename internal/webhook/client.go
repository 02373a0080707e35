package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"storeframe.app/storeframe-web/internal/request"
)

// Default HTTP timeout for webhook relays. Uploads can be sizeable, so this
// is more generous than the catalog fetch timeout.
const defaultTimeout = 30 * time.Second

// ErrMissingEndpoint is returned when the client has no webhook URL configured.
var ErrMissingEndpoint = errors.New("webhook: missing endpoint URL")

// StatusError reports a non-2xx response from the webhook endpoint. Any 2xx
// is success; no response body is interpreted.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook: submit status %d", e.Code)
	}
	return fmt.Sprintf("webhook: submit status %d: %s", e.Code, e.Body)
}

// Client relays finalized request submissions to the webhook endpoint as
// multipart form posts.
type Client struct {
	endpoint string
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

// NewClient constructs a webhook client for the given endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
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

// Submit encodes the submission as a multipart body and posts it. Fields:
// id, storeName, email, submitted_at (RFC3339 UTC), urls (JSON array of the
// raw strings), criteria, reference, and one "file" part per accumulated
// file under the same repeated field name.
func (c *Client) Submit(ctx context.Context, sub request.Submission) error {
	if c == nil || c.endpoint == "" {
		return ErrMissingEndpoint
	}

	body, contentType, err := encodeSubmission(sub)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: drainError(resp.Body)}
	}
	return nil
}

func encodeSubmission(sub request.Submission) (io.Reader, string, error) {
	urls := sub.URLs
	if urls == nil {
		urls = []string{}
	}
	encodedURLs, err := json.Marshal(urls)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct {
		name, value string
	}{
		{"id", sub.TemplateID},
		{"storeName", sub.StoreName},
		{"email", sub.Email},
		{"submitted_at", sub.SubmittedAt.UTC().Format(time.RFC3339)},
		{"urls", string(encodedURLs)},
		{"criteria", sub.Criteria},
		{"reference", sub.Reference},
	}
	for _, field := range fields {
		if err := mw.WriteField(field.name, field.value); err != nil {
			return nil, "", err
		}
	}

	for _, file := range sub.Files {
		part, err := mw.CreateFormFile("file", file.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
