package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"go-launcher/launch"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Launchpad help widget
	Solid rune // ■ active/has function
	Empty rune // □ inactive/no function

	// Pads
	PadEmpty   rune // · no sample
	PadLoaded  rune // ○ ready
	PadPlaying rune // ● sounding
	PadMuted   rune // × muted

	// Clip slots
	SlotEmpty    rune // - nothing in the slot
	ClipIdle     rune // □ stopped
	ClipQueued   rune // ◆ waiting for the boundary
	ClipPlaying  rune // ▶ playing
	ClipStopping rune // ◇ stops at the boundary
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Solid: '■',
			Empty: '□',

			PadEmpty:   '·',
			PadLoaded:  '○',
			PadPlaying: '●',
			PadMuted:   '×',

			SlotEmpty:    '-',
			ClipIdle:     '□',
			ClipQueued:   '◆',
			ClipPlaying:  '▶',
			ClipStopping: '◇',
		},
	}
}

// Default uses the built-in Plasma palette
func Default() *Theme {
	return New(Plasma())
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep purple
	RoleSurface = 0.1 // dark purple
	RoleMuted   = 0.2 // purple-magenta
	RoleFG      = 0.4 // pink-purple (readable)
	RoleAccent  = 0.5 // vivid magenta
	RoleCursor  = 0.6 // rose pink
	RoleActive  = 0.7 // soft red
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // bright yellow
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Cursor() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleCursor))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// RGB returns raw RGB for any normalized value (for Launchpad)
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

// StatusRGB is the color of a pad or clip in the given launch status.
// Empty pads are dark.
func (t *Theme) StatusRGB(s launch.Status) RGB {
	switch s {
	case launch.StatusEmpty:
		return RGB{}
	case launch.StatusMuted:
		return t.RGB(RoleSurface)
	case launch.StatusPlaying:
		return t.RGB(RoleSuccess)
	case launch.StatusQueued:
		return t.RGB(RoleWarning)
	case launch.StatusStopping:
		return t.RGB(RoleActive)
	}
	return t.RGB(RoleMuted)
}

// StatusColor is StatusRGB for the terminal
func (t *Theme) StatusColor(s launch.Status) lipgloss.Color {
	if s == launch.StatusEmpty {
		return t.Muted()
	}
	return rgbToLipgloss(t.StatusRGB(s))
}

// StatusSymbol is the cell glyph for a launch status
func (t *Theme) StatusSymbol(s launch.Status) rune {
	switch s {
	case launch.StatusEmpty:
		return t.Symbols.PadEmpty
	case launch.StatusLoaded:
		return t.Symbols.PadLoaded
	case launch.StatusMuted:
		return t.Symbols.PadMuted
	case launch.StatusQueued:
		return t.Symbols.ClipQueued
	case launch.StatusStopping:
		return t.Symbols.ClipStopping
	case launch.StatusIdle:
		return t.Symbols.ClipIdle
	case launch.StatusPlaying:
		return t.Symbols.ClipPlaying
	}
	return t.Symbols.Empty
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
