package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go-launcher/launch"
	"go-launcher/theme"
)

type trigger struct {
	id   string
	kind launch.InputKind
}

type fakeLauncher struct {
	sess     *launch.Session
	states   map[string]launch.PlaybackState
	quantize launch.Quantize
	triggers []trigger
	stopped  []string
	stopAll  int
	notices  chan launch.Notice
	fail     error
	loaded   []launch.Composition
}

func newFakeLauncher(t *testing.T) *fakeLauncher {
	s, err := launch.NewSession(launch.Demo("demo"))
	if err != nil {
		t.Fatal(err)
	}
	return &fakeLauncher{
		sess:     s,
		states:   map[string]launch.PlaybackState{},
		quantize: launch.QuantizeBar,
		notices:  make(chan launch.Notice, 1),
	}
}

func (f *fakeLauncher) Trigger(ctx context.Context, id string, kind launch.InputKind) error {
	f.triggers = append(f.triggers, trigger{id, kind})
	return f.fail
}

func (f *fakeLauncher) TriggerBatch(ctx context.Context, events ...launch.TriggerEvent) []error {
	errs := make([]error, len(events))
	for i, ev := range events {
		errs[i] = f.Trigger(ctx, ev.ID, ev.Kind)
	}
	return errs
}

func (f *fakeLauncher) SelectBank(ctx context.Context, id string) error {
	next, err := launch.Reduce(f.sess, launch.SelectBank(id))
	if err == nil {
		f.sess = next
	}
	return err
}

func (f *fakeLauncher) SetPadMuted(ctx context.Context, id string, muted bool) error {
	next, err := launch.Reduce(f.sess, launch.SetPadMuted(id, muted))
	if err == nil {
		f.sess = next
	}
	return err
}

func (f *fakeLauncher) LoadComposition(ctx context.Context, comp launch.Composition) error {
	s, err := launch.NewSession(comp)
	if err != nil {
		return err
	}
	f.sess = s
	f.loaded = append(f.loaded, comp)
	return nil
}

func (f *fakeLauncher) StopAll(ctx context.Context) error {
	f.stopAll++
	return nil
}

func (f *fakeLauncher) StopTrack(ctx context.Context, id string) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeLauncher) SetQuantize(ctx context.Context, q launch.Quantize) error {
	f.quantize = q
	return nil
}

func (f *fakeLauncher) Quantize(ctx context.Context) (launch.Quantize, error) {
	return f.quantize, nil
}

func (f *fakeLauncher) Session(ctx context.Context) (*launch.Session, error) {
	return f.sess, nil
}

func (f *fakeLauncher) Snapshot(ctx context.Context) (map[string]launch.PlaybackState, error) {
	return f.states, nil
}

func (f *fakeLauncher) Watch() <-chan struct{} { return make(chan struct{}) }
func (f *fakeLauncher) Notices() <-chan launch.Notice { return f.notices }

type fakeClock struct {
	running bool
	tempo   float64
}

func (c *fakeClock) Toggle() bool { c.running = !c.running; return c.running }
func (c *fakeClock) Running() bool { return c.running }
func (c *fakeClock) SetTempo(bpm float64) { c.tempo = bpm }
func (c *fakeClock) Tempo() float64 { return c.tempo }
func (c *fakeClock) Bar() (int, int) { return 2, 3 }

type memStore struct {
	saved []launch.Composition
}

func (s *memStore) Load(id string) (launch.Composition, error) {
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].ID == id {
			return s.saved[i], nil
		}
	}
	return launch.Composition{}, errors.New("no saves for " + id)
}

func (s *memStore) Save(c launch.Composition) error { s.saved = append(s.saved, c); return nil }

func newTestModel(t *testing.T) (Model, *fakeLauncher, *fakeClock, *memStore) {
	f := newFakeLauncher(t)
	clock := &fakeClock{tempo: 120}
	store := &memStore{}
	m := NewModel(Deps{Launcher: f, Clock: clock, Theme: theme.Default(), Store: store})
	return m, f, clock, store
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func TestPadKeyPressesThenReleases(t *testing.T) {
	m, f, _, _ := newTestModel(t)

	m, cmd := press(m, runes("x"))
	if len(f.triggers) != 1 || f.triggers[0] != (trigger{"a-01", launch.Press}) {
		t.Fatalf("triggers = %+v, want a-01 press", f.triggers)
	}
	if cmd == nil {
		t.Fatal("pad key returned no release command")
	}

	press(m, releaseMsg("a-01"))
	if f.triggers[1] != (trigger{"a-01", launch.Release}) {
		t.Errorf("second trigger = %+v, want a-01 release", f.triggers[1])
	}
}

func TestSessionKeys(t *testing.T) {
	m, f, _, _ := newTestModel(t)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	if len(f.triggers) != 1 || f.triggers[0] != (trigger{"bass-2", launch.Click}) {
		t.Errorf("triggers = %+v, want bass-2 click", f.triggers)
	}

	m, _ = press(m, runes("g"))
	if f.triggers[1] != (trigger{"verse", launch.Click}) {
		t.Errorf("scene trigger = %+v, want verse", f.triggers[1])
	}

	press(m, tea.KeyMsg{Type: tea.KeyBackspace}, runes("X"))
	if len(f.stopped) != 1 || f.stopped[0] != "bass" || f.stopAll != 1 {
		t.Errorf("stopped = %v stopAll = %d", f.stopped, f.stopAll)
	}
}

func TestCursorStaysOnGrid(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	for range 10 {
		m, _ = press(m, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyUp})
	}
	if m.cursorTrack != 0 || m.cursorSlot != 0 {
		t.Errorf("cursor = %d,%d, want 0,0", m.cursorTrack, m.cursorSlot)
	}
	for range 10 {
		m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyDown})
	}
	if m.cursorTrack != 3 || m.cursorSlot != 3 {
		t.Errorf("cursor = %d,%d, want 3,3", m.cursorTrack, m.cursorSlot)
	}
}

func TestTransportAndSettingsKeys(t *testing.T) {
	m, f, clock, store := newTestModel(t)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeySpace}, runes("+"), runes("]"), runes("b"))
	if !clock.running || clock.tempo != 125 {
		t.Errorf("clock running=%v tempo=%v, want running at 125", clock.running, clock.tempo)
	}
	if f.quantize != launch.QuantizeTwoBars {
		t.Errorf("quantize = %s, want 2 bars", f.quantize)
	}
	if f.sess.ActiveBankID() != "b" {
		t.Errorf("active bank = %s, want b", f.sess.ActiveBankID())
	}

	m, _ = press(m, runes("z"), runes("m"))
	if pad, _, _ := f.sess.Pad("b-00"); !pad.Muted {
		t.Error("m did not mute the last pad")
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if len(store.saved) != 1 || store.saved[0].ActiveBank != "b" {
		t.Errorf("saved = %d, want current set", len(store.saved))
	}
	if !strings.Contains(m.View(), "saved demo") {
		t.Error("view missing save status")
	}
}

func TestReloadLoadsLastSave(t *testing.T) {
	m, f, _, store := newTestModel(t)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if len(f.loaded) != 0 || len(m.notices) != 1 {
		t.Fatalf("reload without a save: loaded=%d notices=%d, want 0 and 1", len(f.loaded), len(m.notices))
	}

	saved := launch.Demo("demo")
	saved.Name = "Saved Set"
	store.saved = append(store.saved, saved)
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if len(f.loaded) != 1 || f.loaded[0].Name != "Saved Set" {
		t.Fatalf("loaded = %d, want the saved set", len(f.loaded))
	}
	if m.sess.Composition().Name != "Saved Set" {
		t.Errorf("session name = %q, want Saved Set", m.sess.Composition().Name)
	}
	if !strings.Contains(m.View(), "reloaded demo") {
		t.Error("view missing reload status")
	}
}

func TestStepQuantize(t *testing.T) {
	if got := stepQuantize(launch.QuantizeNone, -1); got != launch.QuantizeNone {
		t.Errorf("step below none = %s", got)
	}
	if got := stepQuantize(launch.QuantizeFourBars, 1); got != launch.QuantizeFourBars {
		t.Errorf("step above 4 bars = %s", got)
	}
	if got := stepQuantize(launch.QuantizeQuarter, 1); got != launch.QuantizeHalf {
		t.Errorf("step from 1/4 = %s, want 1/2", got)
	}
}

func TestNoticesShown(t *testing.T) {
	m, f, _, _ := newTestModel(t)

	for i := range 5 {
		m, _ = press(m, noticeMsg(launch.Notice{EntityID: "drums-1", Message: "engine down", At: time.Unix(int64(i), 0)}))
	}
	if len(m.notices) != maxNotices {
		t.Errorf("notices = %d, want %d", len(m.notices), maxNotices)
	}

	f.fail = errors.New("boom")
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	last := m.notices[len(m.notices)-1]
	if last.EntityID != "drums-1" || last.Err == nil {
		t.Errorf("last notice = %+v, want local trigger failure", last)
	}
	if !strings.Contains(m.View(), "engine down") {
		t.Error("view missing notice text")
	}
}

func TestViewShowsState(t *testing.T) {
	m, f, _, _ := newTestModel(t)
	f.states["drums-1"] = launch.PlaybackState{Status: launch.StatusPlaying, Progress: 0.5}
	m, _ = press(m, changedMsg{})

	view := m.View()
	for _, want := range []string{"Pads · Drums", "Session", "Build 124", "q:1 bar", "▶"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m, _ = press(m, runes("?"))
	if !strings.Contains(m.View(), "launch scene row") {
		t.Error("help view missing key descriptions")
	}

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil || m.View() != "" {
		t.Error("ctrl+c did not quit")
	}
}

func TestSampleName(t *testing.T) {
	if got := sampleName("samples/a/kick.wav"); got != "kick" {
		t.Errorf("sampleName = %q, want kick", got)
	}
	if got := sampleName(""); got != "-" {
		t.Errorf("sampleName empty = %q", got)
	}
}
