package launch

// PadsPerBank is the fixed size of every bank
const PadsPerBank = 16

// PlaybackMode controls how a pad reacts to input
type PlaybackMode string

const (
	ModeOneShot PlaybackMode = "one-shot"
	ModeLoop    PlaybackMode = "loop"
	ModeGate    PlaybackMode = "gate"
	ModeToggle  PlaybackMode = "toggle"
	ModeReverse PlaybackMode = "reverse"
)

// Valid reports whether m is a known playback mode
func (m PlaybackMode) Valid() bool {
	switch m {
	case ModeOneShot, ModeLoop, ModeGate, ModeToggle, ModeReverse:
		return true
	}
	return false
}

// Status is the playback status of a pad or clip.
// Pads use empty/loaded/playing/muted, clips use idle/queued/playing/stopping.
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusLoaded   Status = "loaded"
	StatusPlaying  Status = "playing"
	StatusMuted    Status = "muted"
	StatusIdle     Status = "idle"
	StatusQueued   Status = "queued"
	StatusStopping Status = "stopping"
)

// Active reports whether the status holds its track (playing or about to)
func (s Status) Active() bool {
	return s == StatusPlaying || s == StatusQueued
}

// Pad is a single sample pad
type Pad struct {
	ID         string       `yaml:"id" json:"id"`
	Sample     string       `yaml:"sample,omitempty" json:"sample,omitempty"`
	Mode       PlaybackMode `yaml:"mode" json:"mode"`
	Volume     float64      `yaml:"volume" json:"volume"`
	Pitch      float64      `yaml:"pitch" json:"pitch"` // semitones
	Pan        float64      `yaml:"pan" json:"pan"`     // -1..1
	Attack     float64      `yaml:"attack" json:"attack"`
	Release    float64      `yaml:"release" json:"release"` // seconds
	ChokeGroup *int         `yaml:"chokeGroup,omitempty" json:"chokeGroup,omitempty"`
	Muted      bool         `yaml:"muted,omitempty" json:"muted,omitempty"`
}

// BaseStatus is the resting status of the pad derived from its configuration
func (p *Pad) BaseStatus() Status {
	switch {
	case p.Sample == "":
		return StatusEmpty
	case p.Muted:
		return StatusMuted
	}
	return StatusLoaded
}

// Bank is a named set of 16 pads
type Bank struct {
	ID   string           `yaml:"id" json:"id"`
	Name string           `yaml:"name" json:"name"`
	Pads [PadsPerBank]Pad `yaml:"pads" json:"pads"`
}

// Track is a column in the session view
type Track struct {
	ID    string `yaml:"id" json:"id"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
	Mute  bool   `yaml:"mute,omitempty" json:"mute,omitempty"`
	Solo  bool   `yaml:"solo,omitempty" json:"solo,omitempty"`
}

// ClipType discriminates the clip body
type ClipType string

const (
	ClipMIDI  ClipType = "midi"
	ClipAudio ClipType = "audio"
)

// AudioClip is the body of an audio clip
type AudioClip struct {
	Sample string  `yaml:"sample" json:"sample"`
	Gain   float64 `yaml:"gain" json:"gain"`
}

// MIDIClip is the body of a MIDI clip
type MIDIClip struct {
	Channel uint8 `yaml:"channel" json:"channel"`
	Notes   int   `yaml:"notes" json:"notes"`
}

// Clip is a launchable slot. Exactly one of Audio or MIDI is set, matching Type.
type Clip struct {
	ID       string     `yaml:"id" json:"id"`
	TrackID  string     `yaml:"track" json:"track"`
	Slot     int        `yaml:"slot" json:"slot"`
	Type     ClipType   `yaml:"type" json:"type"`
	Duration float64    `yaml:"duration" json:"duration"` // beats
	Audio    *AudioClip `yaml:"audio,omitempty" json:"audio,omitempty"`
	MIDI     *MIDIClip  `yaml:"midi,omitempty" json:"midi,omitempty"`
}

// Source returns the reference handed to the engine for playback
func (c *Clip) Source() string {
	if c.Type == ClipAudio && c.Audio != nil {
		return c.Audio.Sample
	}
	return "midi:" + c.ID
}

// Scene is a row of clips launched together
type Scene struct {
	ID    string   `yaml:"id" json:"id"`
	Name  string   `yaml:"name" json:"name"`
	Color string   `yaml:"color,omitempty" json:"color,omitempty"`
	Slot  int      `yaml:"slot" json:"slot"`
	Tempo *float64 `yaml:"tempo,omitempty" json:"tempo,omitempty"`
}

// Composition is the persisted configuration of a live set
type Composition struct {
	ID         string  `yaml:"id" json:"id"`
	Name       string  `yaml:"name" json:"name"`
	ActiveBank string  `yaml:"activeBank" json:"activeBank"`
	Banks      []Bank  `yaml:"banks" json:"banks"`
	Tracks     []Track `yaml:"tracks" json:"tracks"`
	Clips      []Clip  `yaml:"clips" json:"clips"`
	Scenes     []Scene `yaml:"scenes" json:"scenes"`
}

// PlaybackState is the ephemeral launch state of one entity
type PlaybackState struct {
	Status     Status  `json:"status"`
	Boundary   float64 `json:"boundary,omitempty"` // beat when queued/stopping takes effect
	Started    float64 `json:"started,omitempty"`  // beat playback began (clips)
	Progress   float64 `json:"progress,omitempty"` // 0..1, filled in snapshots only
	Generation uint64  `json:"generation"`
	Origin     string  `json:"origin,omitempty"`
}

// InputKind is the kind of user gesture
type InputKind int

const (
	Click InputKind = iota
	Press
	Release
)

func (k InputKind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	}
	return "click"
}

// TriggerEvent is a single gesture on an entity
type TriggerEvent struct {
	ID   string
	Kind InputKind
}
