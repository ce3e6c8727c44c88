package theme

import (
	"os"
	"path/filepath"
	"testing"

	"go-launcher/launch"
)

func TestLoadGPL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two.gpl")
	data := "GIMP Palette\nName: Two\nColumns: 2\n# comment\n0 0 0\tblack\n255 255 255\twhite\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadGPL(path)
	if err != nil {
		t.Fatalf("LoadGPL: %v", err)
	}
	if p.Name != "Two" || len(p.Colors) != 2 {
		t.Fatalf("palette = %q with %d colors, want Two with 2", p.Name, len(p.Colors))
	}
	if got := p.Lookup(0.5); got != (RGB{127, 127, 127}) {
		t.Errorf("Lookup(0.5) = %v, want mid grey", got)
	}
	if got := p.Index(5); got != (RGB{255, 255, 255}) {
		t.Errorf("Index(5) = %v, want last color", got)
	}
}

func TestLoadOrDefault(t *testing.T) {
	p, err := LoadOrDefault("")
	if err != nil || p.Name != "Plasma" {
		t.Errorf("LoadOrDefault(\"\") = %q, %v", p.Name, err)
	}
	p, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.gpl"))
	if err == nil {
		t.Error("missing palette returned no error")
	}
	if p == nil || len(p.Colors) == 0 {
		t.Error("missing palette did not fall back to Plasma")
	}
}

func TestStatusColors(t *testing.T) {
	th := Default()
	if th.StatusRGB(launch.StatusEmpty) != (RGB{}) {
		t.Error("empty pads should be dark")
	}
	if th.StatusRGB(launch.StatusPlaying) == th.StatusRGB(launch.StatusQueued) {
		t.Error("playing and queued share a color")
	}
	if th.StatusSymbol(launch.StatusQueued) != '◆' {
		t.Errorf("queued symbol = %c, want ◆", th.StatusSymbol(launch.StatusQueued))
	}
}
