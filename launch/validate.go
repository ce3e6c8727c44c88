package launch

import (
	"encoding/json"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
)

// Validate checks the clip's tagged union: Type must be known and exactly
// the matching body must be present.
func (c *Clip) Validate() error {
	if c.ID == "" {
		return validationError("clip without id", "A clip is missing its id")
	}
	if c.Duration < 0 {
		return validationError(fmt.Sprintf("clip %s has negative duration", c.ID), "Clip length must not be negative")
	}
	switch c.Type {
	case ClipAudio:
		if c.Audio == nil || c.MIDI != nil {
			return validationError(fmt.Sprintf("clip %s: audio clip needs an audio body only", c.ID), "Audio clip is malformed")
		}
	case ClipMIDI:
		if c.MIDI == nil || c.Audio != nil {
			return validationError(fmt.Sprintf("clip %s: midi clip needs a midi body only", c.ID), "MIDI clip is malformed")
		}
	default:
		return validationError(fmt.Sprintf("clip %s: unknown type %q", c.ID, c.Type), "Unknown clip type")
	}
	return nil
}

// DecodeClip parses a JSON clip payload and validates it
func DecodeClip(data []byte) (Clip, error) {
	var c Clip
	if err := json.Unmarshal(data, &c); err != nil {
		return Clip{}, fault.Wrap(err, fmsg.With("decode clip"))
	}
	if err := c.Validate(); err != nil {
		return Clip{}, err
	}
	return c, nil
}

// Validate checks ids are unique and references resolve
func (c *Composition) Validate() error {
	seen := make(map[string]bool)
	claim := func(id string) error {
		if id == "" {
			return validationError("entity without id", "Every pad, clip and scene needs an id")
		}
		if seen[id] {
			return validationError("duplicate id "+id, "Two items share the same id")
		}
		seen[id] = true
		return nil
	}

	if len(c.Banks) == 0 {
		return validationError("composition has no banks", "A set needs at least one bank")
	}
	activeFound := false
	for bi := range c.Banks {
		b := &c.Banks[bi]
		if err := claim(b.ID); err != nil {
			return err
		}
		if b.ID == c.ActiveBank {
			activeFound = true
		}
		for pi := range b.Pads {
			p := &b.Pads[pi]
			if err := claim(p.ID); err != nil {
				return err
			}
			if !p.Mode.Valid() {
				return validationError(fmt.Sprintf("pad %s: unknown mode %q", p.ID, p.Mode), "Unknown pad mode")
			}
		}
	}
	if !activeFound {
		return validationError("active bank "+c.ActiveBank+" not found", "The active bank does not exist")
	}

	tracks := make(map[string]bool)
	for _, t := range c.Tracks {
		if err := claim(t.ID); err != nil {
			return err
		}
		tracks[t.ID] = true
	}

	slots := make(map[[2]string]bool)
	for i := range c.Clips {
		cl := &c.Clips[i]
		if err := claim(cl.ID); err != nil {
			return err
		}
		if err := cl.Validate(); err != nil {
			return err
		}
		if !tracks[cl.TrackID] {
			return validationError(fmt.Sprintf("clip %s: unknown track %s", cl.ID, cl.TrackID), "Clip sits on a missing track")
		}
		key := [2]string{cl.TrackID, fmt.Sprint(cl.Slot)}
		if slots[key] {
			return validationError(fmt.Sprintf("clip %s: slot %d on %s taken", cl.ID, cl.Slot, cl.TrackID), "Two clips share one slot")
		}
		slots[key] = true
	}

	for _, s := range c.Scenes {
		if err := claim(s.ID); err != nil {
			return err
		}
		if s.Tempo != nil && *s.Tempo <= 0 {
			return validationError("scene "+s.ID+" has non-positive tempo", "Scene tempo must be positive")
		}
	}
	return nil
}
