package widgets

import (
	"strings"
	"testing"
)

func TestRenderProgress(t *testing.T) {
	tests := []struct {
		frac  float64
		width int
		want  string
	}{
		{0, 4, "░░░░"},
		{0.5, 4, "██░░"},
		{1, 4, "████"},
		{2, 2, "██"},
		{-1, 2, "░░"},
		{0.5, 0, ""},
	}
	for _, tt := range tests {
		if got := RenderProgress(tt.frac, tt.width); got != tt.want {
			t.Errorf("RenderProgress(%v, %d) = %q, want %q", tt.frac, tt.width, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("kick", 8); got != "kick" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hat-closed", 5); got != "hat-…" {
		t.Errorf("Truncate long = %q, want hat-…", got)
	}
}

func TestRenderPadGrid(t *testing.T) {
	var grid [8][8][3]uint8
	var top, right [8][3]uint8
	out := RenderPadGrid(grid, &top, &right)
	lines := strings.Split(out, "\n")
	if len(lines) != 9 {
		t.Fatalf("lines = %d, want 9", len(lines))
	}
	if n := strings.Count(lines[1], "■"); n != 9 {
		t.Errorf("grid row has %d pads, want 9", n)
	}
	if n := strings.Count(RenderPadGrid(grid, nil, nil), "\n"); n != 7 {
		t.Errorf("bare grid has %d newlines, want 7", n)
	}
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{{Title: "Pads", Keys: []KeyBinding{{Key: "z", Desc: "pad 1"}}}})
	if !strings.Contains(out, "Pads") || !strings.Contains(out, "pad 1") {
		t.Errorf("RenderKeyHelp = %q", out)
	}
}
