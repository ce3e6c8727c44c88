package launch

import "fmt"

var demoPads = [PadsPerBank]string{
	"kick", "snare", "hat-closed", "hat-open",
	"tom-low", "tom-mid", "tom-high", "crash",
	"ride", "clap", "rim", "cowbell",
	"clave", "maracas", "conga-low", "conga-high",
}

// Demo returns a small ready-to-play set: two pad banks, four tracks of
// clips and a scene per slot row.
func Demo(id string) Composition {
	hats := 1
	banks := make([]Bank, 2)
	for bi, name := range []string{"Drums", "Percussion"} {
		b := &banks[bi]
		b.ID = string(rune('a' + bi))
		b.Name = name
		for i, sample := range demoPads {
			p := Pad{
				ID:      fmt.Sprintf("%s-%02d", b.ID, i),
				Sample:  fmt.Sprintf("samples/%s/%s.wav", b.ID, sample),
				Mode:    ModeOneShot,
				Volume:  0.9,
				Release: 0.05,
			}
			if bi == 1 && i >= 12 {
				p.Sample = ""
			}
			b.Pads[i] = p
		}
	}
	// open and closed hats choke each other
	banks[0].Pads[2].ChokeGroup = &hats
	banks[0].Pads[3].ChokeGroup = &hats
	banks[0].Pads[7].Mode = ModeGate
	banks[0].Pads[7].Release = 0.8
	banks[1].Pads[0].Mode = ModeLoop

	tracks := []Track{
		{ID: "drums", Color: "red"},
		{ID: "bass", Color: "blue"},
		{ID: "keys", Color: "green"},
		{ID: "fx", Color: "yellow"},
	}

	var clips []Clip
	for ti, t := range tracks {
		for slot := range 4 {
			if t.ID == "fx" && slot%2 == 1 {
				continue
			}
			c := Clip{
				ID:       fmt.Sprintf("%s-%d", t.ID, slot+1),
				TrackID:  t.ID,
				Slot:     slot,
				Duration: float64(4 * (slot%2 + 1)),
			}
			if ti == 1 || ti == 2 {
				c.Type = ClipMIDI
				c.MIDI = &MIDIClip{Channel: uint8(ti), Notes: 16}
			} else {
				c.Type = ClipAudio
				c.Audio = &AudioClip{Sample: fmt.Sprintf("loops/%s-%d.wav", t.ID, slot+1), Gain: 1}
			}
			clips = append(clips, c)
		}
	}

	tempo := func(v float64) *float64 { return &v }
	scenes := []Scene{
		{ID: "intro", Name: "Intro", Slot: 0},
		{ID: "verse", Name: "Verse", Slot: 1},
		{ID: "build", Name: "Build", Slot: 2, Tempo: tempo(124)},
		{ID: "drop", Name: "Drop", Slot: 3, Tempo: tempo(128)},
	}

	return Composition{
		ID:         id,
		Name:       "Demo Set",
		ActiveBank: "a",
		Banks:      banks,
		Tracks:     tracks,
		Clips:      clips,
		Scenes:     scenes,
	}
}
