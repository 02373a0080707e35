package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storeframe.app/storeframe-web/internal/request"
)

func sampleSubmission() request.Submission {
	return request.Submission{
		Reference:  "ref-abc",
		TemplateID: "tpl-01",
		StoreName:  "Totoro Goods",
		Email:      "owner@totoro.example",
		Criteria:   "warm colours",
		URLs:       []string{"https://a.example", " https://b.example "},
		Files: []request.File{
			{Name: "logo.svg", Content: []byte("<svg/>")},
			{Name: "palette.png", Content: []byte{0x89, 0x50}},
		},
		SubmittedAt: time.Date(2026, 8, 20, 1, 30, 0, 0, time.UTC),
	}
}

func TestSubmitMultipartShape(t *testing.T) {
	var (
		gotValues map[string][]string
		gotFiles  []struct {
			name    string
			content string
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		gotValues = r.MultipartForm.Value
		for _, header := range r.MultipartForm.File["file"] {
			f, err := header.Open()
			if err != nil {
				t.Errorf("open part: %v", err)
				continue
			}
			content, _ := io.ReadAll(f)
			f.Close()
			gotFiles = append(gotFiles, struct {
				name    string
				content string
			}{header.Filename, string(content)})
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.Submit(context.Background(), sampleSubmission()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	fieldChecks := map[string]string{
		"id":           "tpl-01",
		"storeName":    "Totoro Goods",
		"email":        "owner@totoro.example",
		"submitted_at": "2026-08-20T01:30:00Z",
		"criteria":     "warm colours",
		"reference":    "ref-abc",
	}
	for name, want := range fieldChecks {
		vals := gotValues[name]
		if len(vals) != 1 || vals[0] != want {
			t.Errorf("field %s = %v, want %q", name, vals, want)
		}
	}
	// URLs are a JSON array of the raw entered strings, untrimmed.
	if got := gotValues["urls"][0]; got != `["https://a.example"," https://b.example "]` {
		t.Errorf("urls = %s", got)
	}
	if len(gotFiles) != 2 {
		t.Fatalf("got %d file parts, want 2", len(gotFiles))
	}
	if gotFiles[0].name != "logo.svg" || gotFiles[0].content != "<svg/>" {
		t.Errorf("file[0] = %+v", gotFiles[0])
	}
	if gotFiles[1].name != "palette.png" {
		t.Errorf("file[1] name = %q", gotFiles[1].name)
	}
}

func TestSubmitNoURLsSendsEmptyArray(t *testing.T) {
	var gotURLs string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(8 << 20)
		gotURLs = r.MultipartForm.Value["urls"][0]
	}))
	defer srv.Close()

	sub := sampleSubmission()
	sub.URLs = nil
	sub.Files = nil
	c := NewClient(srv.URL)
	if err := c.Submit(context.Background(), sub); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotURLs != "[]" {
		t.Fatalf("urls = %q, want []", gotURLs)
	}
}

func TestSubmitNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow disabled", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Submit(context.Background(), sampleSubmission())
	var sErr *StatusError
	if !errors.As(err, &sErr) {
		t.Fatalf("Submit = %v, want *StatusError", err)
	}
	if sErr.Code != http.StatusInternalServerError {
		t.Fatalf("Code = %d, want 500", sErr.Code)
	}
	if !strings.Contains(sErr.Body, "workflow disabled") {
		t.Fatalf("Body = %q", sErr.Body)
	}
}

func TestSubmitAcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.Submit(context.Background(), sampleSubmission()); err != nil {
		t.Fatalf("Submit with 202 = %v, want nil", err)
	}
}

func TestSubmitMissingEndpoint(t *testing.T) {
	c := NewClient("")
	if err := c.Submit(context.Background(), sampleSubmission()); !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("Submit = %v, want ErrMissingEndpoint", err)
	}
}
