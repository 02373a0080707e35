package request

import (
	"testing"
	"time"
)

func TestStoreOpenReplacesPreviousForm(t *testing.T) {
	s := NewStore(0)
	first := s.Open("sess-1", "tpl-01", "")
	first.SetStoreName("left over")

	second := s.Open("sess-1", "tpl-02", "")
	if first == second {
		t.Fatal("Open returned the previous form")
	}
	got, ok := s.Get("sess-1")
	if !ok {
		t.Fatal("Get found no form after Open")
	}
	if got.TemplateID() != "tpl-02" {
		t.Fatalf("TemplateID = %q, want tpl-02", got.TemplateID())
	}
	if got.Snapshot().StoreName != "" {
		t.Fatal("field state bled over from the previous form")
	}
}

func TestStoreIsolatesSessions(t *testing.T) {
	s := NewStore(0)
	a := s.Open("sess-a", "tpl-01", "")
	s.Open("sess-b", "tpl-02", "")
	a.SetStoreName("A's shop")

	b, _ := s.Get("sess-b")
	if b.Snapshot().StoreName != "" {
		t.Fatal("session b sees session a's fields")
	}
}

func TestStoreClose(t *testing.T) {
	s := NewStore(0)
	s.Open("sess-1", "tpl-01", "")
	s.Close("sess-1")
	if _, ok := s.Get("sess-1"); ok {
		t.Fatal("Get found a form after Close")
	}
	// Closing an unknown session is a no-op.
	s.Close("sess-never-opened")
}

func TestStoreEvictsIdleForms(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	s.Open("sess-1", "tpl-01", "")
	time.Sleep(25 * time.Millisecond)
	if _, ok := s.Get("sess-1"); ok {
		t.Fatal("idle form survived past its ttl")
	}
}
