package surface

import (
	"go-launcher/launch"
	"go-launcher/midi"
	"go-launcher/theme"
)

// Launchpad layout. Row 0 is the bottom row, row 8 the top control row,
// column 8 the scene buttons on the right.
const (
	GridSize   = 8
	PadCols    = 4 // active bank pads fill the bottom-left 4x4
	TrackCol   = 4 // first clip column
	Tracks     = GridSize - TrackCol
	SceneCol   = 8
	TopRow     = 8
	StopAllCol = 7

	// KeyboardBase is the note of pad 0 on a MIDI keyboard (GM kick)
	KeyboardBase = 36
)

// TargetKind is what a button does
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetPad
	TargetClip
	TargetScene
	TargetBank
	TargetStopAll
)

// Target is the entity behind a button
type Target struct {
	Kind TargetKind
	ID   string
}

// Resolve maps a grid position to its target in the session
func Resolve(s *launch.Session, row, col int) Target {
	switch {
	case row == TopRow:
		if col == StopAllCol {
			return Target{Kind: TargetStopAll}
		}
		banks := s.Banks()
		if col < len(banks) && col < PadCols {
			return Target{Kind: TargetBank, ID: banks[col].ID}
		}
	case col == SceneCol:
		if sc, ok := s.SceneAt(GridSize - 1 - row); ok {
			return Target{Kind: TargetScene, ID: sc.ID}
		}
	case col < PadCols && row < PadCols:
		pad := s.ActiveBank().Pads[row*PadCols+col]
		return Target{Kind: TargetPad, ID: pad.ID}
	case col >= TrackCol && col < GridSize:
		tracks := s.Tracks()
		if ti := col - TrackCol; ti < len(tracks) {
			if clip, ok := s.ClipAt(tracks[ti].ID, GridSize-1-row); ok {
				return Target{Kind: TargetClip, ID: clip.ID}
			}
		}
	}
	return Target{}
}

// KeyboardPad maps a keyboard note to an active bank pad
func KeyboardPad(s *launch.Session, note uint8) (string, bool) {
	i := int(note) - KeyboardBase
	if i < 0 || i >= launch.PadsPerBank {
		return "", false
	}
	return s.ActiveBank().Pads[i].ID, true
}

// LED is one button's light
type LED struct {
	Color   theme.RGB
	Channel uint8
}

// Frame is the full Launchpad picture
type Frame struct {
	Grid     [GridSize][GridSize]LED
	RightCol [GridSize]LED
	TopRow   [GridSize]LED
}

// Render draws the session and its launch states
func Render(s *launch.Session, states map[string]launch.PlaybackState, th *theme.Theme) Frame {
	var f Frame
	status := func(id string, fallback launch.Status) launch.Status {
		if st, ok := states[id]; ok && st.Status != "" {
			return st.Status
		}
		return fallback
	}

	bank := s.ActiveBank()
	for i, pad := range bank.Pads {
		st := status(pad.ID, pad.BaseStatus())
		f.Grid[i/PadCols][i%PadCols] = LED{Color: th.StatusRGB(st)}
	}

	for ti, track := range s.Tracks() {
		if ti >= Tracks {
			break
		}
		for _, clip := range s.ClipsOnTrack(track.ID) {
			if clip.Slot >= GridSize {
				continue
			}
			st := status(clip.ID, launch.StatusIdle)
			f.Grid[GridSize-1-clip.Slot][TrackCol+ti] = LED{Color: th.StatusRGB(st), Channel: channelFor(st)}
		}
	}

	for _, sc := range s.Scenes() {
		if sc.Slot < GridSize {
			f.RightCol[GridSize-1-sc.Slot] = LED{Color: th.RGB(theme.RoleAccent)}
		}
	}

	for i, b := range s.Banks() {
		if i >= PadCols {
			break
		}
		c := th.RGB(theme.RoleSurface)
		if b.ID == s.ActiveBankID() {
			c = th.RGB(theme.RoleFG)
		}
		f.TopRow[i] = LED{Color: c}
	}
	f.TopRow[StopAllCol] = LED{Color: th.RGB(theme.RoleActive)}
	return f
}

// queued and stopping clips flash until the boundary
func channelFor(st launch.Status) uint8 {
	switch st {
	case launch.StatusQueued, launch.StatusStopping:
		return midi.ChannelFlash
	case launch.StatusPlaying:
		return midi.ChannelPulse
	}
	return midi.ChannelStatic
}

// Diff lists the LEDs that differ from prev. A nil prev yields every LED.
func Diff(prev *Frame, next Frame) []midi.LEDUpdate {
	var updates []midi.LEDUpdate
	add := func(row, col int, was, now LED, first bool) {
		if first || was != now {
			updates = append(updates, midi.LEDUpdate{Row: row, Col: col, Color: now.Color, Channel: now.Channel})
		}
	}
	var p Frame
	if prev != nil {
		p = *prev
	}
	first := prev == nil
	for row := range GridSize {
		for col := range GridSize {
			add(row, col, p.Grid[row][col], next.Grid[row][col], first)
		}
		add(row, SceneCol, p.RightCol[row], next.RightCol[row], first)
	}
	for col := range GridSize {
		add(TopRow, col, p.TopRow[col], next.TopRow[col], first)
	}
	return updates
}

// Colors flattens the frame for widgets.RenderPadGrid
func (f Frame) Colors() (grid [GridSize][GridSize][3]uint8, right [GridSize][3]uint8) {
	for row := range GridSize {
		for col := range GridSize {
			grid[row][col] = f.Grid[row][col].Color
		}
		right[row] = f.RightCol[row].Color
	}
	return grid, right
}
