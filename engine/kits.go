package engine

// DrumKit maps the 16 pads of a bank to MIDI notes
type DrumKit struct {
	Name  string
	Notes [16]uint8
}

// Pad index layout shared by every kit:
// 0 kick, 1 snare, 2 closed hat, 3 open hat, 4-6 toms low to high,
// 7 crash, 8 ride, 9 clap, 10 rimshot, 11 cowbell, 12 clave,
// 13 maracas, 14 low conga, 15 high conga

// Kits contains all available drum kit mappings
var Kits = map[string]DrumKit{
	"gm": {
		Name:  "General MIDI",
		Notes: [16]uint8{36, 38, 42, 46, 41, 43, 45, 49, 51, 39, 37, 56, 75, 70, 64, 63},
	},
	"rd8": {
		Name: "Behringer RD-8",
		// snare sits on 40, not 38
		Notes: [16]uint8{36, 40, 42, 46, 45, 48, 50, 49, 51, 39, 37, 56, 75, 70, 64, 63},
	},
	"tr8s": {
		Name:  "Roland TR-8S",
		Notes: [16]uint8{36, 38, 42, 46, 41, 43, 45, 49, 51, 39, 37, 56, 75, 70, 62, 63},
	},
	"er1": {
		Name: "Korg ER-1",
		// slots past clap are unused on the ER-1
		Notes: [16]uint8{36, 38, 42, 46, 40, 41, 43, 49, 45, 39, 37, 56, 75, 70, 64, 63},
	},
}

// KitNames returns the list of available kit names
func KitNames() []string {
	return []string{"gm", "rd8", "tr8s", "er1"}
}

// GetKit returns a kit by name, defaulting to GM if not found
func GetKit(name string) DrumKit {
	if kit, ok := Kits[name]; ok {
		return kit
	}
	return Kits[DefaultKit]
}

// DefaultKit is the default kit name
const DefaultKit = "gm"
