package status

import (
	"strings"
	"testing"
)

func TestViewStates(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{"idle", "Not mirroring"},
		{"connecting", "Connecting"},
		{"active", "Mirroring"},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			m := New()
			m.State = tt.state
			m.Buffer = "main.go"
			v := m.View()
			if !strings.Contains(v, tt.want) {
				t.Errorf("view for %s missing %q:\n%s", tt.state, tt.want, v)
			}
			if !strings.Contains(v, "main.go") {
				t.Error("view missing buffer name")
			}
		})
	}
}

func TestViewShowsViewerURL(t *testing.T) {
	m := New()
	m.Width = 120
	m.State = "active"
	m.ViewerURL = "http://viewer/abc"
	m.Sent = 3

	v := m.View()
	if !strings.Contains(v, "http://viewer/abc") {
		t.Error("view missing viewer URL")
	}
	if !strings.Contains(v, "3 sent") {
		t.Error("view missing sent count")
	}
}

func TestMeter(t *testing.T) {
	tests := []struct {
		level float64
		full  int
	}{
		{0, 0},
		{0.5, 3},
		{1, 5},
		{2, 5},
		{-1, 0},
	}
	for _, tt := range tests {
		got := strings.Count(meter(tt.level), "▮")
		if got != tt.full {
			t.Errorf("meter(%v) has %d full cells, want %d", tt.level, got, tt.full)
		}
	}
}
