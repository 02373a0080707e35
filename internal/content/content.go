package content

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// Page is a local markdown document rendered for display inside the app,
// such as the submission guidelines shown in the request dialog.
type Page struct {
	Slug      string
	Title     string
	Summary   string
	BodyHTML  template.HTML
	Excerpt   string
	UpdatedAt time.Time
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	UpdatedAt string `yaml:"updated_at"`
}

// ErrNotFound is returned when no markdown file exists for a slug.
var ErrNotFound = errors.New("content: not found")

const defaultCacheTTL = 5 * time.Minute

var sanitizePolicy = newPolicy()

// Loader reads markdown pages from a directory and renders them to sanitized
// HTML, caching results in memory for a short TTL.
type Loader struct {
	dir string

	mu    sync.RWMutex
	ttl   time.Duration
	cache map[string]cacheEntry
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// NewLoader constructs a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   strings.TrimSpace(dir),
		ttl:   defaultCacheTTL,
		cache: make(map[string]cacheEntry),
	}
}

// SetCacheDuration overrides the in-memory cache duration (primarily for tests).
func (l *Loader) SetCacheDuration(d time.Duration) {
	if d <= 0 {
		d = time.Minute
	}
	l.mu.Lock()
	l.ttl = d
	l.cache = make(map[string]cacheEntry)
	l.mu.Unlock()
}

// Load returns the rendered page for slug, reading <dir>/<slug>.md.
func (l *Loader) Load(slug string) (Page, error) {
	slug = strings.TrimSpace(slug)
	if l == nil || l.dir == "" || slug == "" {
		return Page{}, ErrNotFound
	}

	now := time.Now()
	l.mu.RLock()
	if entry, ok := l.cache[slug]; ok && now.Before(entry.expires) {
		l.mu.RUnlock()
		return entry.page, nil
	}
	l.mu.RUnlock()

	raw, err := os.ReadFile(filepath.Join(l.dir, slug+".md"))
	if err != nil {
		if os.IsNotExist(err) {
			return Page{}, ErrNotFound
		}
		return Page{}, fmt.Errorf("content: read %s: %w", slug, err)
	}

	page, err := render(slug, raw)
	if err != nil {
		return Page{}, err
	}

	l.mu.Lock()
	l.cache[slug] = cacheEntry{page: page, expires: now.Add(l.ttl)}
	l.mu.Unlock()
	return page, nil
}

func render(slug string, raw []byte) (Page, error) {
	meta, body := splitFrontMatter(raw)

	var fm frontMatter
	if len(meta) > 0 {
		if err := yaml.Unmarshal(meta, &fm); err != nil {
			return Page{}, fmt.Errorf("content: front matter %s: %w", slug, err)
		}
	}

	var rendered bytes.Buffer
	if err := goldmark.Convert(body, &rendered); err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", slug, err)
	}
	sanitized := sanitizePolicy.SanitizeBytes(rendered.Bytes())

	page := Page{
		Slug:     slug,
		Title:    strings.TrimSpace(fm.Title),
		Summary:  strings.TrimSpace(fm.Summary),
		BodyHTML: template.HTML(sanitized),
		Excerpt:  excerpt(sanitized, 200),
	}
	if fm.UpdatedAt != "" {
		if ts, err := time.Parse("2006-01-02", strings.TrimSpace(fm.UpdatedAt)); err == nil {
			page.UpdatedAt = ts
		}
	}
	return page, nil
}

// splitFrontMatter separates a leading "---" YAML block from the markdown body.
func splitFrontMatter(raw []byte) (meta, body []byte) {
	const delim = "---"
	text := string(raw)
	if !strings.HasPrefix(text, delim) {
		return nil, raw
	}
	rest := text[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return nil, raw
	}
	meta = []byte(rest[:idx])
	body = []byte(strings.TrimPrefix(rest[idx+1+len(delim):], "\n"))
	return meta, body
}

// excerpt extracts plain text from sanitized HTML, capped at limit runes.
func excerpt(sanitized []byte, limit int) string {
	node, err := html.Parse(bytes.NewReader(sanitized))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)

	text := strings.Join(strings.Fields(sb.String()), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func newPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	return policy
}
