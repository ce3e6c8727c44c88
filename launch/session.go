package launch

import (
	"slices"
	"sort"
)

// EntityKind identifies what an id resolves to
type EntityKind int

const (
	EntityUnknown EntityKind = iota
	EntityPad
	EntityClip
	EntityScene
)

type padRef struct {
	bank, index int
}

// Session is the owned, read-only view of a loaded composition. It is never
// mutated after construction; Reduce returns a new Session instead. Pointer
// fields inside the composition are shared between sessions and must be
// replaced, not written through.
type Session struct {
	comp   Composition
	pads   map[string]padRef
	clips  map[string]int
	scenes map[string]int
	tracks map[string]int
}

// NewSession validates c and builds the lookup indexes
func NewSession(c Composition) (*Session, error) {
	c = cloneComposition(c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		comp:   c,
		pads:   make(map[string]padRef),
		clips:  make(map[string]int),
		scenes: make(map[string]int),
		tracks: make(map[string]int),
	}
	for bi := range c.Banks {
		for pi := range c.Banks[bi].Pads {
			s.pads[c.Banks[bi].Pads[pi].ID] = padRef{bank: bi, index: pi}
		}
	}
	for i, cl := range c.Clips {
		s.clips[cl.ID] = i
	}
	for i, sc := range c.Scenes {
		s.scenes[sc.ID] = i
	}
	for i, t := range c.Tracks {
		s.tracks[t.ID] = i
	}
	return s, nil
}

func cloneComposition(c Composition) Composition {
	c.Banks = slices.Clone(c.Banks)
	c.Tracks = slices.Clone(c.Tracks)
	c.Clips = slices.Clone(c.Clips)
	c.Scenes = slices.Clone(c.Scenes)
	return c
}

// Composition returns a copy of the underlying configuration
func (s *Session) Composition() Composition {
	return cloneComposition(s.comp)
}

// Kind resolves what an id refers to
func (s *Session) Kind(id string) EntityKind {
	if _, ok := s.pads[id]; ok {
		return EntityPad
	}
	if _, ok := s.clips[id]; ok {
		return EntityClip
	}
	if _, ok := s.scenes[id]; ok {
		return EntityScene
	}
	return EntityUnknown
}

// Pad returns the pad and the id of the bank holding it
func (s *Session) Pad(id string) (Pad, string, bool) {
	ref, ok := s.pads[id]
	if !ok {
		return Pad{}, "", false
	}
	b := &s.comp.Banks[ref.bank]
	return b.Pads[ref.index], b.ID, true
}

// PadIndex returns the position of the pad inside its bank
func (s *Session) PadIndex(id string) (int, bool) {
	ref, ok := s.pads[id]
	return ref.index, ok
}

func (s *Session) Clip(id string) (Clip, bool) {
	i, ok := s.clips[id]
	if !ok {
		return Clip{}, false
	}
	return s.comp.Clips[i], true
}

func (s *Session) Scene(id string) (Scene, bool) {
	i, ok := s.scenes[id]
	if !ok {
		return Scene{}, false
	}
	return s.comp.Scenes[i], true
}

// SceneAt returns the scene launching the given slot row
func (s *Session) SceneAt(slot int) (Scene, bool) {
	for _, sc := range s.comp.Scenes {
		if sc.Slot == slot {
			return sc, true
		}
	}
	return Scene{}, false
}

func (s *Session) Track(id string) (Track, bool) {
	i, ok := s.tracks[id]
	if !ok {
		return Track{}, false
	}
	return s.comp.Tracks[i], true
}

// TrackIndex returns the column of the track in the session view
func (s *Session) TrackIndex(id string) (int, bool) {
	i, ok := s.tracks[id]
	return i, ok
}

func (s *Session) Tracks() []Track {
	return slices.Clone(s.comp.Tracks)
}

func (s *Session) Scenes() []Scene {
	return slices.Clone(s.comp.Scenes)
}

// ClipAt returns the clip in a track's slot
func (s *Session) ClipAt(trackID string, slot int) (Clip, bool) {
	for _, c := range s.comp.Clips {
		if c.TrackID == trackID && c.Slot == slot {
			return c, true
		}
	}
	return Clip{}, false
}

// ClipsOnTrack returns the clips of a track ordered by slot
func (s *Session) ClipsOnTrack(trackID string) []Clip {
	var out []Clip
	for _, c := range s.comp.Clips {
		if c.TrackID == trackID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// Slots returns the number of slot rows in use
func (s *Session) Slots() int {
	n := 0
	for _, c := range s.comp.Clips {
		n = max(n, c.Slot+1)
	}
	for _, sc := range s.comp.Scenes {
		n = max(n, sc.Slot+1)
	}
	return n
}

func (s *Session) ActiveBankID() string {
	return s.comp.ActiveBank
}

// ActiveBank returns the bank currently addressed by the surface
func (s *Session) ActiveBank() Bank {
	b, _ := s.Bank(s.comp.ActiveBank)
	return b
}

func (s *Session) Bank(id string) (Bank, bool) {
	for _, b := range s.comp.Banks {
		if b.ID == id {
			return b, true
		}
	}
	return Bank{}, false
}

func (s *Session) Banks() []Bank {
	return slices.Clone(s.comp.Banks)
}

// BaseStates returns the resting status of every pad and clip
func (s *Session) BaseStates() map[string]Status {
	out := make(map[string]Status, len(s.pads)+len(s.clips))
	for _, b := range s.comp.Banks {
		for i := range b.Pads {
			out[b.Pads[i].ID] = b.Pads[i].BaseStatus()
		}
	}
	for _, c := range s.comp.Clips {
		out[c.ID] = StatusIdle
	}
	return out
}

// Action is a reducer step applied to a private copy of the composition
type Action func(c *Composition) error

// Reduce applies a to a copy of the session's composition and returns the
// resulting session. s is left untouched on error.
func Reduce(s *Session, a Action) (*Session, error) {
	c := s.Composition()
	if err := a(&c); err != nil {
		return s, err
	}
	return NewSession(c)
}

func findPad(c *Composition, id string) *Pad {
	for bi := range c.Banks {
		for pi := range c.Banks[bi].Pads {
			if c.Banks[bi].Pads[pi].ID == id {
				return &c.Banks[bi].Pads[pi]
			}
		}
	}
	return nil
}

func findTrack(c *Composition, id string) *Track {
	for i := range c.Tracks {
		if c.Tracks[i].ID == id {
			return &c.Tracks[i]
		}
	}
	return nil
}

// SelectBank makes another bank active
func SelectBank(id string) Action {
	return func(c *Composition) error {
		for _, b := range c.Banks {
			if b.ID == id {
				c.ActiveBank = id
				return nil
			}
		}
		return unknownEntity(id)
	}
}

func SetPadMuted(id string, muted bool) Action {
	return func(c *Composition) error {
		p := findPad(c, id)
		if p == nil {
			return unknownEntity(id)
		}
		p.Muted = muted
		return nil
	}
}

func AssignSample(id, sample string) Action {
	return func(c *Composition) error {
		p := findPad(c, id)
		if p == nil {
			return unknownEntity(id)
		}
		p.Sample = sample
		return nil
	}
}

func SetPadMode(id string, mode PlaybackMode) Action {
	return func(c *Composition) error {
		p := findPad(c, id)
		if p == nil {
			return unknownEntity(id)
		}
		if !mode.Valid() {
			return validationError("unknown mode "+string(mode), "Unknown pad mode")
		}
		p.Mode = mode
		return nil
	}
}

// SetChokeGroup assigns a pad to a choke group, nil clears it
func SetChokeGroup(id string, group *int) Action {
	return func(c *Composition) error {
		p := findPad(c, id)
		if p == nil {
			return unknownEntity(id)
		}
		if group != nil {
			g := *group
			group = &g
		}
		p.ChokeGroup = group
		return nil
	}
}

func SetTrackMute(id string, mute bool) Action {
	return func(c *Composition) error {
		t := findTrack(c, id)
		if t == nil {
			return unknownEntity(id)
		}
		t.Mute = mute
		return nil
	}
}

func SetTrackSolo(id string, solo bool) Action {
	return func(c *Composition) error {
		t := findTrack(c, id)
		if t == nil {
			return unknownEntity(id)
		}
		t.Solo = solo
		return nil
	}
}
