package convo_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/hitori/convo"
)

func TestSession(t *testing.T) {
	m, c := newManager(&replier{})
	key := convo.Key{User: "bocchi", Group: "kessoku"}
	s := m.Begin(key, time.Minute)
	s.Add("a")
	if n := s.Add("b"); n != 2 {
		t.Errorf("wrong count: want 2, got %d", n)
	}
	got, ok := m.Session(key)
	if !ok || got != s {
		t.Fatal("session not found")
	}
	items := got.Items()
	if diff := cmp.Diff([]string{"a", "b"}, items); diff != "" {
		t.Errorf("wrong items (-want +got):\n%s", diff)
	}
	items[0] = "changed"
	if s.Items()[0] != "a" {
		t.Error("Items aliases session storage")
	}
	if r := m.Remaining(s); r != time.Minute {
		t.Errorf("wrong remaining time: want 1m, got %v", r)
	}
	c.Advance(time.Minute)
	if _, ok := m.Session(key); ok {
		t.Error("expired session still available")
	}
	if m.Sessions() != 0 {
		t.Error("expired session not removed")
	}
}

func TestSessionEnd(t *testing.T) {
	m, _ := newManager(&replier{})
	key := convo.Key{User: "ryou"}
	old := m.Begin(key, time.Minute)
	old.Add("x")
	s := m.Begin(key, time.Minute)
	if s.Len() != 0 {
		t.Error("new session inherited items")
	}
	m.End(key)
	if _, ok := m.Session(key); ok {
		t.Error("session remains after End")
	}
}
