package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"go-launcher/launch"
	"go-launcher/widgets"
)

// padKeys lays the 16 pads out like the Launchpad: bottom row first
var padKeys = [launch.PadsPerBank]string{
	"z", "x", "c", "v",
	"a", "s", "d", "f",
	"q", "w", "e", "r",
	"1", "2", "3", "4",
}

func Key(help string, keyboardKey ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keyboardKey...), key.WithHelp(keyboardKey[0], help))
}

type keyMap struct {
	Pads [launch.PadsPerBank]key.Binding

	Up, Down, Left, Right key.Binding
	Launch, Scene         key.Binding
	StopTrack, StopAll    key.Binding

	Play               key.Binding
	TempoUp, TempoDown key.Binding
	QuantizeNext       key.Binding
	QuantizePrev       key.Binding
	NextBank           key.Binding
	Mute               key.Binding

	Save, Reload key.Binding
	Help, Quit   key.Binding
}

func defaultKeyMap() keyMap {
	k := keyMap{
		Up:        Key("slot up", "up", "k"),
		Down:      Key("slot down", "down", "j"),
		Left:      Key("track left", "left", "h"),
		Right:     Key("track right", "right", "l"),
		Launch:    Key("launch clip", "enter"),
		Scene:     Key("launch scene row", "g"),
		StopTrack: Key("stop track", "backspace"),
		StopAll:   Key("stop all", "X"),

		Play:         Key("play/stop transport", " "),
		TempoUp:      Key("tempo +5", "+", "="),
		TempoDown:    Key("tempo -5", "-", "_"),
		QuantizeNext: Key("next quantize", "]"),
		QuantizePrev: Key("previous quantize", "["),
		NextBank:     Key("next bank", "b"),
		Mute:         Key("mute last pad", "m"),

		Save:   Key("save set", "ctrl+s"),
		Reload: Key("reload last save", "ctrl+o"),
		Help:   Key("toggle help", "?"),
		Quit:   Key("quit", "ctrl+c", "esc"),
	}
	for i, name := range padKeys {
		k.Pads[i] = Key("pad", name)
	}
	return k
}

func (k keyMap) sections() []widgets.KeySection {
	group := func(title string, bindings ...key.Binding) widgets.KeySection {
		sec := widgets.KeySection{Title: title}
		for _, b := range bindings {
			h := b.Help()
			sec.Keys = append(sec.Keys, widgets.KeyBinding{Key: h.Key, Desc: h.Desc})
		}
		return sec
	}
	return []widgets.KeySection{
		{Title: "Pads", Keys: []widgets.KeyBinding{{Key: "zxcv asdf", Desc: "pads 1-8"}, {Key: "qwer 1234", Desc: "pads 9-16"}}},
		group("Session", k.Up, k.Down, k.Left, k.Right, k.Launch, k.Scene, k.StopTrack, k.StopAll),
		group("Transport", k.Play, k.TempoUp, k.TempoDown, k.QuantizeNext, k.QuantizePrev),
		group("Set", k.NextBank, k.Mute, k.Save, k.Reload, k.Help, k.Quit),
	}
}
