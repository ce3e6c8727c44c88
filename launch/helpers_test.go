package launch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type engineCall struct {
	op      string
	id      string
	source  string
	release float64
}

type fakeEngine struct {
	mu      sync.Mutex
	calls   []engineCall
	playing map[string]bool
	fail    map[string]error
	block   map[string]chan struct{} // call waits for close or ctx
	swaps   []*Session
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		playing: make(map[string]bool),
		fail:    make(map[string]error),
		block:   make(map[string]chan struct{}),
	}
}

func (e *fakeEngine) failWith(id string, err error) {
	e.mu.Lock()
	e.fail[id] = err
	e.mu.Unlock()
}

func (e *fakeEngine) blockOn(id string) chan struct{} {
	ch := make(chan struct{})
	e.mu.Lock()
	e.block[id] = ch
	e.mu.Unlock()
	return ch
}

func (e *fakeEngine) do(ctx context.Context, c engineCall) error {
	e.mu.Lock()
	e.calls = append(e.calls, c)
	gate := e.block[c.id]
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.fail[c.id]; err != nil {
		return err
	}
	e.playing[c.id] = c.op == "play"
	return nil
}

func (e *fakeEngine) Play(ctx context.Context, id, source string, p PlayParams) (Ack, error) {
	err := e.do(ctx, engineCall{op: "play", id: id, source: source})
	return Ack{EntityID: id, At: time.Now()}, err
}

func (e *fakeEngine) Stop(ctx context.Context, id string, release float64) (Ack, error) {
	err := e.do(ctx, engineCall{op: "stop", id: id, release: release})
	return Ack{EntityID: id, At: time.Now()}, err
}

func (e *fakeEngine) IsPlaying(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing[id]
}

func (e *fakeEngine) SessionChanged(s *Session) {
	e.mu.Lock()
	e.swaps = append(e.swaps, s)
	e.mu.Unlock()
}

func (e *fakeEngine) lastSession() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.swaps) == 0 {
		return nil
	}
	return e.swaps[len(e.swaps)-1]
}

func (e *fakeEngine) count(op, id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c.op == op && c.id == id {
			n++
		}
	}
	return n
}

func (e *fakeEngine) last(op, id string) (engineCall, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.calls) - 1; i >= 0; i-- {
		if e.calls[i].op == op && e.calls[i].id == id {
			return e.calls[i], true
		}
	}
	return engineCall{}, false
}

func (e *fakeEngine) total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fakeTransport struct {
	mu     sync.Mutex
	pos    Position
	tempos []float64
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{pos: Position{Tempo: 120, BeatsPerBar: 4}}
}

func (t *fakeTransport) Position() Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

func (t *fakeTransport) SetTempo(bpm float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pos.Tempo = bpm
	t.tempos = append(t.tempos, bpm)
}

func (t *fakeTransport) run(beat float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pos.Running = true
	t.pos.Beat = beat
}

// memSync delivers payloads synchronously to every subscriber
type memSync struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func(Payload)
}

func newMemSync() *memSync {
	return &memSync{subs: make(map[string]map[int]func(Payload))}
}

func (m *memSync) Subscribe(channel string, handler func(Payload)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[int]func(Payload))
	}
	id := m.next
	m.next++
	m.subs[channel][id] = handler
	return func() {
		m.mu.Lock()
		delete(m.subs[channel], id)
		m.mu.Unlock()
	}
}

func (m *memSync) Publish(channel string, p Payload) {
	m.mu.Lock()
	var handlers []func(Payload)
	for _, h := range m.subs[channel] {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()
	for _, h := range handlers {
		h(p)
	}
}

// heldSync queues publishes until flush, so launches in different windows
// can cross on the wire.
type heldSync struct {
	*memSync
	mu      sync.Mutex
	holding bool
	queue   []heldPayload
}

type heldPayload struct {
	channel string
	p       Payload
}

func newHeldSync() *heldSync {
	return &heldSync{memSync: newMemSync(), holding: true}
}

func (h *heldSync) Publish(channel string, p Payload) {
	h.mu.Lock()
	if h.holding {
		h.queue = append(h.queue, heldPayload{channel, p})
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	h.memSync.Publish(channel, p)
}

// flush delivers everything queued and stops holding
func (h *heldSync) flush() {
	h.mu.Lock()
	queue := h.queue
	h.queue = nil
	h.holding = false
	h.mu.Unlock()
	for _, q := range queue {
		h.memSync.Publish(q.channel, q.p)
	}
}

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

// testComposition has two banks, three tracks and two scenes.
// Track t3 has no clip in slot 0.
func testComposition() Composition {
	var a, b Bank
	a.ID, a.Name = "a", "Drums"
	b.ID, b.Name = "b", "Perc"
	for i := range PadsPerBank {
		a.Pads[i] = Pad{ID: fmt.Sprintf("a%d", i), Mode: ModeOneShot, Volume: 1}
		b.Pads[i] = Pad{ID: fmt.Sprintf("b%d", i), Mode: ModeOneShot, Volume: 1}
	}
	a.Pads[0].Sample = "kick.wav"
	a.Pads[0].Release = 0.1
	a.Pads[1].Sample = "hat-closed.wav"
	a.Pads[1].ChokeGroup = intp(1)
	a.Pads[1].Release = 0.02
	a.Pads[2].Sample = "hat-open.wav"
	a.Pads[2].ChokeGroup = intp(1)
	a.Pads[3].Sample = "pad.wav"
	a.Pads[3].Mode = ModeGate
	a.Pads[5].Sample = "snare.wav"
	a.Pads[5].Muted = true
	a.Pads[6].Sample = "loop.wav"
	a.Pads[6].Mode = ModeLoop
	a.Pads[6].Release = 0.3
	b.Pads[0].Sample = "clap.wav"
	b.Pads[0].ChokeGroup = intp(1)

	audio := func(id, track string, slot int) Clip {
		return Clip{ID: id, TrackID: track, Slot: slot, Type: ClipAudio, Duration: 4,
			Audio: &AudioClip{Sample: id + ".wav", Gain: 1}}
	}
	midi := func(id, track string, slot int) Clip {
		return Clip{ID: id, TrackID: track, Slot: slot, Type: ClipMIDI, Duration: 8,
			MIDI: &MIDIClip{Channel: 2, Notes: 16}}
	}

	return Composition{
		ID:         "set",
		Name:       "Test Set",
		ActiveBank: "a",
		Banks:      []Bank{a, b},
		Tracks:     []Track{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}},
		Clips: []Clip{
			audio("c1", "t1", 0),
			audio("c2", "t1", 1),
			midi("c3", "t2", 0),
			midi("c4", "t2", 1),
			audio("c5", "t3", 1),
		},
		Scenes: []Scene{
			{ID: "s0", Name: "Intro", Slot: 0},
			{ID: "s1", Name: "Drop", Slot: 1, Tempo: floatp(140)},
		},
	}
}

func testSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(testComposition())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

type harness struct {
	c   *Controller
	eng *fakeEngine
	tr  *fakeTransport
}

func startController(t *testing.T, opts Options, ss StateSync) harness {
	t.Helper()
	if opts.Quantize == "" {
		opts.Quantize = QuantizeNone
	}
	h := harness{eng: newFakeEngine(), tr: newFakeTransport()}
	h.c = New(testSession(t), h.eng, h.tr, ss, opts)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})
	return h
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (h harness) trigger(t *testing.T, id string, kind InputKind) {
	t.Helper()
	if err := h.c.Trigger(testCtx(t), id, kind); err != nil {
		t.Fatalf("Trigger(%s, %s): %v", id, kind, err)
	}
}

func (h harness) settle(t *testing.T) {
	t.Helper()
	if err := h.c.Settle(testCtx(t)); err != nil {
		t.Fatalf("Settle: %v", err)
	}
}

func (h harness) poll(t *testing.T) {
	t.Helper()
	if err := h.c.Poll(testCtx(t)); err != nil {
		t.Fatalf("Poll: %v", err)
	}
}

func (h harness) state(t *testing.T, id string) PlaybackState {
	t.Helper()
	st, err := h.c.State(testCtx(t), id)
	if err != nil {
		t.Fatalf("State(%s): %v", id, err)
	}
	return st
}

func (h harness) expectStatus(t *testing.T, id string, want Status) {
	t.Helper()
	if got := h.state(t, id).Status; got != want {
		t.Errorf("%s status = %s, want %s", id, got, want)
	}
}

func (h harness) notice(t *testing.T) Notice {
	t.Helper()
	select {
	case n := <-h.c.Notices():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notice")
	}
	return Notice{}
}
