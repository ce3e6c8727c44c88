package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-launcher/debug"
	"go-launcher/launch"
)

// Controller numbers sent ahead of each note
const (
	ccPan     uint8 = 10
	ccRelease uint8 = 72
	ccAttack  uint8 = 73
)

// DrumChannel is the zero-based MIDI channel pads play on (channel 10)
const DrumChannel uint8 = 9

// clipBaseNote is the note of slot 0; each slot moves one semitone up
const clipBaseNote = 60

// bendRange is the pitch bend range in semitones assumed on the receiver
const bendRange = 2

// envelopeSeconds is the envelope time mapped to controller value 127
const envelopeSeconds = 2.0

// Route is where an entity plays on the MIDI output
type Route struct {
	Channel uint8
	Note    uint8
}

// Mapper resolves entity ids to MIDI routes
type Mapper interface {
	Route(id string) (Route, bool)
}

// SessionMapper routes pads through a drum kit and clips by track and slot.
// It follows the controller's session.
type SessionMapper struct {
	mu      sync.RWMutex
	session *launch.Session
	kit     DrumKit
}

func NewSessionMapper(s *launch.Session, kit DrumKit) *SessionMapper {
	return &SessionMapper{session: s, kit: kit}
}

// SessionChanged implements launch.SessionObserver
func (m *SessionMapper) SessionChanged(s *launch.Session) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
}

func (m *SessionMapper) Route(id string) (Route, bool) {
	m.mu.RLock()
	s := m.session
	m.mu.RUnlock()

	if _, _, ok := s.Pad(id); ok {
		i, _ := s.PadIndex(id)
		return Route{Channel: DrumChannel, Note: m.kit.Notes[i]}, true
	}
	clip, ok := s.Clip(id)
	if !ok {
		return Route{}, false
	}
	ch, _ := s.TrackIndex(clip.TrackID)
	if clip.Type == launch.ClipMIDI && clip.MIDI != nil {
		ch = int(clip.MIDI.Channel)
	}
	return Route{Channel: uint8(ch) & 0x0f, Note: uint8(min(clipBaseNote+clip.Slot, 127))}, true
}

// SendFunc writes one message to the output port
type SendFunc func(msg gomidi.Message) error

// MIDIBridge drives a hardware or software instrument over MIDI. A play is a
// note on preceded by pan, envelope and pitch bend; a stop is a note off.
// Entities can share a route (the same pad in two banks, say); the note off
// is held back until the last of them stops.
type MIDIBridge struct {
	mu      sync.Mutex
	send    SendFunc
	mapper  Mapper
	playing map[string]Route
}

func NewMIDIBridge(send SendFunc, mapper Mapper) *MIDIBridge {
	return &MIDIBridge{send: send, mapper: mapper, playing: make(map[string]Route)}
}

// OpenMIDIBridge sends to the named output port
func OpenMIDIBridge(portName string, mapper Mapper) (*MIDIBridge, error) {
	out, err := gomidi.FindOutPort(portName)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("find port "+portName, "MIDI output not found"))
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("open port "+portName, "Could not open MIDI output"))
	}
	return NewMIDIBridge(send, mapper), nil
}

// SessionChanged implements launch.SessionObserver by passing the session
// on to a mapper that follows it
func (b *MIDIBridge) SessionChanged(s *launch.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.mapper.(launch.SessionObserver); ok {
		o.SessionChanged(s)
	}
}

// shared reports whether an entity other than id is sounding on r
func (b *MIDIBridge) shared(id string, r Route) bool {
	for other, route := range b.playing {
		if other != id && route == r {
			return true
		}
	}
	return false
}

func (b *MIDIBridge) Play(ctx context.Context, id, source string, p launch.PlayParams) (launch.Ack, error) {
	if err := ctx.Err(); err != nil {
		return launch.Ack{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	route, ok := b.mapper.Route(id)
	if !ok {
		return launch.Ack{}, fault.New("no midi route for " + id)
	}
	msgs := []gomidi.Message{
		gomidi.ControlChange(route.Channel, ccPan, panValue(p.Pan)),
		gomidi.ControlChange(route.Channel, ccAttack, envelopeValue(p.Attack)),
		gomidi.ControlChange(route.Channel, ccRelease, envelopeValue(p.Release)),
		gomidi.Pitchbend(route.Channel, bendValue(p.Pitch)),
	}
	if prev, ok := b.playing[id]; ok && !b.shared(id, prev) {
		msgs = append([]gomidi.Message{gomidi.NoteOff(prev.Channel, prev.Note)}, msgs...)
	}
	msgs = append(msgs, gomidi.NoteOn(route.Channel, route.Note, velocity(p.Volume)))

	if err := b.write(msgs); err != nil {
		delete(b.playing, id)
		return launch.Ack{}, err
	}
	b.playing[id] = route
	debug.Log("engine", "midi play %s ch=%d note=%d src=%s", id, route.Channel+1, route.Note, source)
	return launch.Ack{EntityID: id, At: time.Now()}, nil
}

func (b *MIDIBridge) Stop(ctx context.Context, id string, releaseSeconds float64) (launch.Ack, error) {
	if err := ctx.Err(); err != nil {
		return launch.Ack{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	route, ok := b.playing[id]
	if !ok {
		if route, ok = b.mapper.Route(id); !ok {
			return launch.Ack{}, fault.New("no midi route for " + id)
		}
	}
	if b.shared(id, route) {
		delete(b.playing, id)
		debug.Log("engine", "midi stop %s: note %d still held", id, route.Note)
		return launch.Ack{EntityID: id, At: time.Now()}, nil
	}
	msgs := []gomidi.Message{
		gomidi.ControlChange(route.Channel, ccRelease, envelopeValue(releaseSeconds)),
		gomidi.NoteOff(route.Channel, route.Note),
	}
	if err := b.write(msgs); err != nil {
		return launch.Ack{}, err
	}
	delete(b.playing, id)
	debug.Log("engine", "midi stop %s release=%.2fs", id, releaseSeconds)
	return launch.Ack{EntityID: id, At: time.Now()}, nil
}

func (b *MIDIBridge) IsPlaying(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.playing[id]
	return ok
}

// Panic sends note off for everything still sounding
func (b *MIDIBridge) Panic() {
	b.mu.Lock()
	defer b.mu.Unlock()
	sent := make(map[Route]bool)
	for id, r := range b.playing {
		if !sent[r] {
			b.send(gomidi.NoteOff(r.Channel, r.Note))
			sent[r] = true
		}
		delete(b.playing, id)
	}
}

func (b *MIDIBridge) write(msgs []gomidi.Message) error {
	for _, m := range msgs {
		if err := b.send(m); err != nil {
			return fault.Wrap(err, fmsg.With("midi send"))
		}
	}
	return nil
}

func clamp7(v float64) uint8 {
	return uint8(min(max(v, 0), 127))
}

func velocity(volume float64) uint8 {
	return max(clamp7(volume*127+0.5), 1)
}

func panValue(pan float64) uint8 {
	return clamp7(64 + pan*63)
}

func envelopeValue(seconds float64) uint8 {
	return clamp7(seconds / envelopeSeconds * 127)
}

func bendValue(semitones float64) int16 {
	v := semitones / bendRange * 8191
	return int16(min(max(v, -8192), 8191))
}
