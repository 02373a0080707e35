package gallery

import (
	"fmt"
	"testing"

	"storeframe.app/storeframe-web/internal/catalog"
)

func makeTemplates(n int) []catalog.Template {
	out := make([]catalog.Template, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("tpl-%02d", i)
		out = append(out, catalog.Template{
			ID:           id,
			ThumbnailURL: "https://cdn.example.com/" + id + ".png",
			Preview:      "https://cdn.example.com/" + id + "-large.png",
		})
	}
	return out
}

func TestReplaceShowsDefaultWindow(t *testing.T) {
	l := NewList()
	gen := l.BeginFetch()
	if !l.Replace(gen, makeTemplates(20)) {
		t.Fatal("Replace rejected current generation")
	}
	if got := l.VisibleCount(); got != DefaultVisible {
		t.Fatalf("VisibleCount = %d, want %d", got, DefaultVisible)
	}
	if got := l.Len(); got != 20 {
		t.Fatalf("Len = %d, want 20", got)
	}
	if !l.HasMore() {
		t.Fatal("HasMore = false with 20 installed and 6 visible")
	}
	visible := l.Visible()
	if len(visible) != DefaultVisible {
		t.Fatalf("Visible returned %d templates, want %d", len(visible), DefaultVisible)
	}
	if visible[0].ID != "tpl-00" {
		t.Fatalf("first visible template = %q, want tpl-00", visible[0].ID)
	}
}

func TestReplaceWithFewerThanWindow(t *testing.T) {
	l := NewList()
	gen := l.BeginFetch()
	l.Replace(gen, makeTemplates(3))
	if got := l.VisibleCount(); got != 3 {
		t.Fatalf("VisibleCount = %d, want 3", got)
	}
	if l.HasMore() {
		t.Fatal("HasMore = true with everything already visible")
	}
}

func TestRevealMoreShowsAllAndIsIdempotent(t *testing.T) {
	l := NewList()
	gen := l.BeginFetch()
	l.Replace(gen, makeTemplates(20))

	l.RevealMore()
	if got := l.VisibleCount(); got != 20 {
		t.Fatalf("VisibleCount after reveal = %d, want 20", got)
	}
	if l.HasMore() {
		t.Fatal("HasMore = true after revealing everything")
	}

	l.RevealMore()
	if got := l.VisibleCount(); got != 20 {
		t.Fatalf("VisibleCount after second reveal = %d, want 20", got)
	}
}

func TestStaleGenerationDiscarded(t *testing.T) {
	l := NewList()
	stale := l.BeginFetch()
	fresh := l.BeginFetch()

	if !l.Replace(fresh, makeTemplates(4)) {
		t.Fatal("fresh Replace rejected")
	}
	if l.Replace(stale, makeTemplates(20)) {
		t.Fatal("stale Replace accepted")
	}
	if got := l.Len(); got != 4 {
		t.Fatalf("Len = %d after stale replace, want 4", got)
	}
}

func TestReplaceResetsRevealWindow(t *testing.T) {
	l := NewList()
	gen := l.BeginFetch()
	l.Replace(gen, makeTemplates(20))
	l.RevealMore()

	gen = l.BeginFetch()
	l.Replace(gen, makeTemplates(20))
	if got := l.VisibleCount(); got != DefaultVisible {
		t.Fatalf("VisibleCount after refresh = %d, want %d", got, DefaultVisible)
	}
}

func TestFind(t *testing.T) {
	l := NewList()
	gen := l.BeginFetch()
	l.Replace(gen, makeTemplates(8))

	// Find works for installed templates beyond the visible window.
	tpl, ok := l.Find("tpl-07")
	if !ok {
		t.Fatal("Find did not locate installed template")
	}
	if tpl.Preview == "" {
		t.Fatal("Find returned template without preview")
	}
	if _, ok := l.Find("missing"); ok {
		t.Fatal("Find located a template that was never installed")
	}
}

func TestVisibleReturnsCopy(t *testing.T) {
	l := NewList()
	gen := l.BeginFetch()
	l.Replace(gen, makeTemplates(6))

	visible := l.Visible()
	visible[0].ID = "mutated"
	if again := l.Visible(); again[0].ID != "tpl-00" {
		t.Fatalf("mutating Visible result leaked into list: got %q", again[0].ID)
	}
}
