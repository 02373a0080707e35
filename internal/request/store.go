package request

import (
	"sync"
	"time"
)

// DefaultTTL is how long an idle form survives before the store evicts it.
const DefaultTTL = 2 * time.Hour

// Store keeps one form per session. Opening a template always installs a
// fresh form, so no field state bleeds between different template requests.
type Store struct {
	mu    sync.Mutex
	ttl   time.Duration
	forms map[string]*entry
}

type entry struct {
	form     *Form
	lastSeen time.Time
}

// NewStore constructs an empty form store. A non-positive ttl falls back to
// the default.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:   ttl,
		forms: make(map[string]*entry),
	}
}

// Open binds a fresh form for the given template to the session, replacing
// any previous form the session held.
func (s *Store) Open(sessionID, templateID, preview string) *Form {
	form := NewForm(templateID, preview)
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.forms[sessionID] = &entry{form: form, lastSeen: now}
	return form
}

// Get returns the session's open form, if any.
func (s *Store) Get(sessionID string) (*Form, bool) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	e, ok := s.forms[sessionID]
	if !ok {
		return nil, false
	}
	e.lastSeen = now
	return e.form, true
}

// Close discards the session's open form.
func (s *Store) Close(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forms, sessionID)
}

func (s *Store) sweepLocked(now time.Time) {
	for id, e := range s.forms {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.forms, id)
		}
	}
}
