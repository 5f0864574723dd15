package eventlog

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestAddEntry(t *testing.T) {
	m := New()
	m.Add(time.Now(), "state", "active")
	if len(m.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(m.Entries))
	}
	if m.Entries[0].Kind != "state" {
		t.Errorf("expected kind 'state', got %q", m.Entries[0].Kind)
	}
}

func TestMaxEntries(t *testing.T) {
	m := New()
	for i := 0; i < maxEntries+50; i++ {
		m.Add(time.Now(), "sent", "DATA")
	}
	if len(m.Entries) != maxEntries {
		t.Errorf("expected %d entries, got %d", maxEntries, len(m.Entries))
	}
}

func TestScroll(t *testing.T) {
	m := New()
	for i := 0; i < 20; i++ {
		m.Add(time.Now(), "sent", "DATA")
	}

	m.ScrollUp(5)
	if m.Offset != 5 {
		t.Errorf("expected offset 5, got %d", m.Offset)
	}
	m.ScrollDown(3)
	if m.Offset != 2 {
		t.Errorf("expected offset 2, got %d", m.Offset)
	}
	m.ScrollDown(10)
	if m.Offset != 0 {
		t.Errorf("expected offset 0, got %d", m.Offset)
	}
	m.ScrollUp(100)
	if m.Offset != 19 { // max is len-1
		t.Errorf("expected offset 19, got %d", m.Offset)
	}

	m.Add(time.Now(), "recv", "RESEND")
	if m.Offset != 0 {
		t.Error("adding entry should reset scroll to 0")
	}
}

func TestScrollEmpty(t *testing.T) {
	m := New()
	m.ScrollUp(3)
	if m.Offset != 0 {
		t.Errorf("expected offset 0 on empty log, got %d", m.Offset)
	}
}

func TestView(t *testing.T) {
	m := New()
	if v := m.View(80, 20); !strings.Contains(v, "Nothing has happened") {
		t.Error("empty view should say nothing happened")
	}

	m.Add(time.Now(), "viewer", "http://viewer/abc")
	m.Add(time.Now(), "err", "connection reset")
	v := m.View(100, 20)
	if !strings.Contains(v, "http://viewer/abc") || !strings.Contains(v, "connection reset") {
		t.Errorf("view missing entries:\n%s", v)
	}
}

func TestViewTruncatesOnCharacterBoundaries(t *testing.T) {
	m := New()
	long := strings.Repeat("é", 100) + " → ünïcödé"
	m.Add(time.Now(), "err", long)

	v := m.View(60, 20)
	if !utf8.ValidString(v) {
		t.Fatal("truncated view is not valid UTF-8")
	}
	if !strings.Contains(v, "...") {
		t.Error("long message should be truncated with an ellipsis")
	}
	if strings.Contains(v, long) {
		t.Error("long message was not truncated")
	}
}
