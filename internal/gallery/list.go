package gallery

import (
	"sync"

	"storeframe.app/storeframe-web/internal/catalog"
)

// DefaultVisible is how many templates a fresh gallery reveals.
const DefaultVisible = 6

// List holds the fetched template set and tracks how many entries are
// currently revealed. Replace is guarded by a generation token so a stale
// fetch result can never overwrite a newer one.
type List struct {
	mu        sync.Mutex
	gen       uint64
	installed uint64
	templates []catalog.Template
	visible   int
}

// NewList constructs an empty gallery list.
func NewList() *List {
	return &List{}
}

// BeginFetch reserves a generation token for an in-flight fetch. Results are
// installed via Replace with the same token.
func (l *List) BeginFetch() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	return l.gen
}

// Replace installs a fetch result, resetting the reveal window to the default.
// Results from a generation older than the last installed one are discarded;
// the return value reports whether the result was applied.
func (l *List) Replace(gen uint64, templates []catalog.Template) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen < l.installed {
		return false
	}
	l.installed = gen
	l.templates = make([]catalog.Template, len(templates))
	copy(l.templates, templates)
	l.visible = min(DefaultVisible, len(l.templates))
	return true
}

// RevealMore reveals every remaining template at once. Idempotent.
func (l *List) RevealMore() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visible = len(l.templates)
}

// Visible returns exactly min(visibleCount, len(templates)) templates in
// fetch order. The list never re-sorts; service order is authoritative.
func (l *List) Visible() []catalog.Template {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := min(l.visible, len(l.templates))
	out := make([]catalog.Template, n)
	copy(out, l.templates[:n])
	return out
}

// VisibleCount returns the current reveal window size.
func (l *List) VisibleCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return min(l.visible, len(l.templates))
}

// Len returns the total number of fetched templates.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.templates)
}

// HasMore reports whether templates remain hidden behind the reveal window.
func (l *List) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible < len(l.templates)
}

// Find returns the template with the given id, if present.
func (l *List) Find(id string) (catalog.Template, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.templates {
		if t.ID == id {
			return t, true
		}
	}
	return catalog.Template{}, false
}
