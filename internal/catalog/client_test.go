package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchTemplatesRequestShape(t *testing.T) {
	var (
		gotHeaders http.Header
		gotMethod  string
		gotBody    map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotMethod = r.Method
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Credentials{APIKey: "anon-key", BearerToken: "token-123"})
	if _, err := c.FetchTemplates(context.Background(), Query{RequestingUserID: "user-9"}); err != nil {
		t.Fatalf("FetchTemplates: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Fatalf("method = %s, want POST", gotMethod)
	}
	headerChecks := map[string]string{
		"Content-Type":    "application/json",
		"Accept":          "application/json",
		"Content-Profile": "public",
		"Accept-Profile":  "public",
		"Apikey":          "anon-key",
		"Authorization":   "Bearer token-123",
	}
	for name, want := range headerChecks {
		if got := gotHeaders.Get(name); got != want {
			t.Errorf("header %s = %q, want %q", name, got, want)
		}
	}

	// Omitted query values fall back to the service defaults.
	if gotBody["p_requesting_user_id"] != "user-9" {
		t.Errorf("p_requesting_user_id = %v", gotBody["p_requesting_user_id"])
	}
	if gotBody["p_page"] != float64(1) || gotBody["p_limit"] != float64(20) {
		t.Errorf("pagination = %v/%v, want 1/20", gotBody["p_page"], gotBody["p_limit"])
	}
	if gotBody["p_filter"] != "all" || gotBody["p_sort_by"] != "updated_at" || gotBody["p_sort_order"] != "desc" {
		t.Errorf("filter/sort = %v/%v/%v", gotBody["p_filter"], gotBody["p_sort_by"], gotBody["p_sort_order"])
	}
	// Empty search is sent as an explicit null.
	if v, present := gotBody["p_search"]; !present || v != nil {
		t.Errorf("p_search = %v (present=%v), want explicit null", v, present)
	}
}

func TestFetchTemplatesSearchSent(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Credentials{})
	if _, err := c.FetchTemplates(context.Background(), Query{Search: "  cafe  "}); err != nil {
		t.Fatalf("FetchTemplates: %v", err)
	}
	if gotBody["p_search"] != "cafe" {
		t.Fatalf("p_search = %v, want %q", gotBody["p_search"], "cafe")
	}
}

func TestFetchTemplatesParsesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":" tpl-01 ","thumbnail_url":"https://cdn.example.com/a.png","preview":"https://cdn.example.com/a-large.png"},
			{"id":"tpl-02","thumbnail_url":"https://cdn.example.com/b.png","preview":""}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Credentials{})
	got, err := c.FetchTemplates(context.Background(), Query{})
	if err != nil {
		t.Fatalf("FetchTemplates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d templates, want 2", len(got))
	}
	if got[0].ID != "tpl-01" {
		t.Fatalf("ID not trimmed: %q", got[0].ID)
	}
	// A record without a preview falls back to its thumbnail.
	if got[1].Preview != "https://cdn.example.com/b.png" {
		t.Fatalf("Preview fallback = %q", got[1].Preview)
	}
}

func TestFetchTemplatesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Credentials{})
	_, err := c.FetchTemplates(context.Background(), Query{})
	var sErr *StatusError
	if !errors.As(err, &sErr) {
		t.Fatalf("FetchTemplates = %v, want *StatusError", err)
	}
	if sErr.Code != http.StatusUnauthorized {
		t.Fatalf("Code = %d, want 401", sErr.Code)
	}
	if sErr.Body != "permission denied" {
		t.Fatalf("Body = %q", sErr.Body)
	}
}

func TestFetchTemplatesSchemaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":"tpl-01","thumbnail_url":"https://cdn.example.com/a.png","preview":"x"},
			{"id":"   ","thumbnail_url":"https://cdn.example.com/b.png","preview":"y"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Credentials{})
	_, err := c.FetchTemplates(context.Background(), Query{})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("FetchTemplates = %v, want *SchemaError", err)
	}
	if schemaErr.Index != 1 {
		t.Fatalf("Index = %d, want 1", schemaErr.Index)
	}
}

func TestFetchTemplatesMissingEndpoint(t *testing.T) {
	c := NewClient("  ", Credentials{})
	if _, err := c.FetchTemplates(context.Background(), Query{}); !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("FetchTemplates = %v, want ErrMissingEndpoint", err)
	}
}
