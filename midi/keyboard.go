package midi

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// KeyboardController handles a standard MIDI keyboard (input only)
type KeyboardController struct {
	id       string
	stopFunc func()

	padChan  chan PadEvent
	noteChan chan NoteEvent
}

func newKeyboard(id string) *KeyboardController {
	return &KeyboardController{
		id:       id,
		padChan:  make(chan PadEvent, 1),
		noteChan: make(chan NoteEvent, 64),
	}
}

// NewKeyboardController starts listening on inPort
func NewKeyboardController(id string, inPort drivers.In) (*KeyboardController, error) {
	kb := newKeyboard(id)
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			kb.handle(msg)
		})
		if err != nil {
			return nil, fault.Wrap(err, fmsg.With("open keyboard input"))
		}
		kb.stopFunc = stop
	}
	return kb, nil
}

func (kb *KeyboardController) handle(msg gomidi.Message) {
	var channel, note, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &note, &velocity):
		trySend(kb.noteChan, NoteEvent{Note: note, Velocity: velocity, Channel: channel, Pressed: velocity > 0})
	case msg.GetNoteOff(&channel, &note, &velocity):
		trySend(kb.noteChan, NoteEvent{Note: note, Channel: channel})
	}
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *KeyboardController) PadEvents() <-chan PadEvent {
	return kb.padChan // Keyboards don't have pads
}

func (kb *KeyboardController) NoteEvents() <-chan NoteEvent {
	return kb.noteChan
}

// SetLEDBatch is a no-op for keyboards
func (kb *KeyboardController) SetLEDBatch(updates []LEDUpdate) error {
	return nil
}

func (kb *KeyboardController) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	close(kb.padChan)
	close(kb.noteChan)
	return nil
}
