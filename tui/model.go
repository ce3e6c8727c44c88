package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-launcher/debug"
	"go-launcher/launch"
	"go-launcher/midi"
	"go-launcher/surface"
	"go-launcher/theme"
	"go-launcher/widgets"
)

const (
	// terminals report no key-up, so keyboard pads are held this long
	gateHold   = 250 * time.Millisecond
	frameRate  = 30
	maxNotices = 3
	cellWidth  = 12
	padWidth   = 11
)

// Launcher is the part of the trigger controller the TUI drives
type Launcher interface {
	surface.Launcher
	Trigger(ctx context.Context, id string, kind launch.InputKind) error
	StopTrack(ctx context.Context, trackID string) error
	SetQuantize(ctx context.Context, q launch.Quantize) error
	Quantize(ctx context.Context) (launch.Quantize, error)
	SetPadMuted(ctx context.Context, padID string, muted bool) error
	LoadComposition(ctx context.Context, comp launch.Composition) error
	Notices() <-chan launch.Notice
}

// Clock is the transport the TUI starts, stops and retempos
type Clock interface {
	Toggle() bool
	Running() bool
	SetTempo(bpm float64)
	Tempo() float64
	Bar() (bar, beat int)
}

// Deps wires the model. Devices, Surface and Store are optional.
type Deps struct {
	Ctx      context.Context
	Launcher Launcher
	Clock    Clock
	Theme    *theme.Theme
	Devices  *midi.DeviceManager
	Surface  *surface.Surface
	Store    launch.ConfigStore
}

type Model struct {
	deps  Deps
	keys  keyMap
	watch <-chan struct{}

	sess     *launch.Session
	states   map[string]launch.PlaybackState
	quantize launch.Quantize

	cursorTrack int
	cursorSlot  int
	lastPad     string
	notices     []launch.Notice
	controller  string // connected launchpad id
	showHelp    bool
	quitting    bool
	status      string
}

type changedMsg struct{}

type frameMsg time.Time

type noticeMsg launch.Notice

type releaseMsg string

type DeviceEventMsg midi.DeviceEvent

func NewModel(d Deps) Model {
	if d.Ctx == nil {
		d.Ctx = context.Background()
	}
	if d.Theme == nil {
		d.Theme = theme.Default()
	}
	m := Model{
		deps:  d,
		keys:  defaultKeyMap(),
		watch: d.Launcher.Watch(),
	}
	m.refresh()
	return m
}

func (m Model) waitChange() tea.Cmd {
	return func() tea.Msg {
		<-m.watch
		return changedMsg{}
	}
}

func (m Model) waitNotice() tea.Cmd {
	return func() tea.Msg {
		n, ok := <-m.deps.Launcher.Notices()
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitChange(), m.waitNotice(), frame()}
	if m.deps.Devices != nil {
		cmds = append(cmds, ListenForDevices(m.deps.Devices))
	}
	return tea.Batch(cmds...)
}

// refresh pulls configuration and launch state from the controller
func (m *Model) refresh() {
	ctx := m.deps.Ctx
	if s, err := m.deps.Launcher.Session(ctx); err == nil {
		m.sess = s
	}
	if st, err := m.deps.Launcher.Snapshot(ctx); err == nil {
		m.states = st
	}
	if q, err := m.deps.Launcher.Quantize(ctx); err == nil {
		m.quantize = q
	}
	if m.sess != nil {
		m.cursorTrack = min(m.cursorTrack, max(len(m.sess.Tracks())-1, 0))
		m.cursorSlot = min(m.cursorSlot, max(m.sess.Slots()-1, 0))
	}
}

func (m *Model) report(id string, err error) {
	if err == nil {
		return
	}
	m.addNotice(launch.Notice{EntityID: id, Err: err, Message: launch.Describe(err), At: time.Now()})
}

func (m *Model) addNotice(n launch.Notice) {
	m.notices = append(m.notices, n)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case changedMsg:
		m.refresh()
		return m, m.waitChange()

	case frameMsg:
		m.refresh()
		return m, frame()

	case noticeMsg:
		m.addNotice(launch.Notice(msg))
		return m, m.waitNotice()

	case releaseMsg:
		m.report(string(msg), m.deps.Launcher.Trigger(m.deps.Ctx, string(msg), launch.Release))

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			if m.deps.Surface != nil {
				m.deps.Surface.Attach(event.Controller)
			}
			if event.Controller.Type() == midi.ControllerLaunchpad {
				m.controller = event.ID
			}
		case midi.DeviceDisconnected:
			if m.deps.Surface != nil {
				m.deps.Surface.Detach(event.ID)
			}
			if m.controller == event.ID {
				m.controller = ""
			}
		}
		return m, ListenForDevices(m.deps.Devices)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := m.deps.Ctx
	k := m.keys

	if key.Matches(msg, k.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.sess == nil {
		return m, nil
	}

	for i, b := range k.Pads {
		if key.Matches(msg, b) {
			id := m.sess.ActiveBank().Pads[i].ID
			m.lastPad = id
			if err := m.deps.Launcher.Trigger(ctx, id, launch.Press); err != nil {
				m.report(id, err)
				return m, nil
			}
			return m, tea.Tick(gateHold, func(time.Time) tea.Msg { return releaseMsg(id) })
		}
	}

	tracks := m.sess.Tracks()
	switch {
	case key.Matches(msg, k.Up):
		m.cursorSlot = max(m.cursorSlot-1, 0)
	case key.Matches(msg, k.Down):
		m.cursorSlot = min(m.cursorSlot+1, max(m.sess.Slots()-1, 0))
	case key.Matches(msg, k.Left):
		m.cursorTrack = max(m.cursorTrack-1, 0)
	case key.Matches(msg, k.Right):
		m.cursorTrack = min(m.cursorTrack+1, max(len(tracks)-1, 0))

	case key.Matches(msg, k.Launch):
		if m.cursorTrack < len(tracks) {
			if clip, ok := m.sess.ClipAt(tracks[m.cursorTrack].ID, m.cursorSlot); ok {
				m.report(clip.ID, m.deps.Launcher.Trigger(ctx, clip.ID, launch.Click))
			}
		}
	case key.Matches(msg, k.Scene):
		if sc, ok := m.sess.SceneAt(m.cursorSlot); ok {
			m.report(sc.ID, m.deps.Launcher.Trigger(ctx, sc.ID, launch.Click))
		}
	case key.Matches(msg, k.StopTrack):
		if m.cursorTrack < len(tracks) {
			id := tracks[m.cursorTrack].ID
			m.report(id, m.deps.Launcher.StopTrack(ctx, id))
		}
	case key.Matches(msg, k.StopAll):
		m.report("", m.deps.Launcher.StopAll(ctx))

	case key.Matches(msg, k.Play):
		if m.deps.Clock.Toggle() {
			debug.Log("tui", "transport start")
		}
	case key.Matches(msg, k.TempoUp):
		m.deps.Clock.SetTempo(m.deps.Clock.Tempo() + 5)
	case key.Matches(msg, k.TempoDown):
		m.deps.Clock.SetTempo(m.deps.Clock.Tempo() - 5)
	case key.Matches(msg, k.QuantizeNext):
		m.report("", m.deps.Launcher.SetQuantize(ctx, stepQuantize(m.quantize, 1)))
	case key.Matches(msg, k.QuantizePrev):
		m.report("", m.deps.Launcher.SetQuantize(ctx, stepQuantize(m.quantize, -1)))

	case key.Matches(msg, k.NextBank):
		banks := m.sess.Banks()
		i := slices.IndexFunc(banks, func(b launch.Bank) bool { return b.ID == m.sess.ActiveBankID() })
		next := banks[(i+1)%len(banks)]
		m.report(next.ID, m.deps.Launcher.SelectBank(ctx, next.ID))
	case key.Matches(msg, k.Mute):
		if pad, _, ok := m.sess.Pad(m.lastPad); ok {
			m.report(pad.ID, m.deps.Launcher.SetPadMuted(ctx, pad.ID, !pad.Muted))
		}
	case key.Matches(msg, k.Save):
		m.save()
	case key.Matches(msg, k.Reload):
		m.reload()
	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m *Model) save() {
	if m.deps.Store == nil {
		m.status = "no store configured"
		return
	}
	comp := m.sess.Composition()
	if err := m.deps.Store.Save(comp); err != nil {
		m.report(comp.ID, err)
		return
	}
	m.status = "saved " + comp.ID
}

// reload replaces the live set with its newest save
func (m *Model) reload() {
	if m.deps.Store == nil {
		m.status = "no store configured"
		return
	}
	id := m.sess.Composition().ID
	comp, err := m.deps.Store.Load(id)
	if err != nil {
		m.report(id, err)
		return
	}
	if err := m.deps.Launcher.LoadComposition(m.deps.Ctx, comp); err != nil {
		m.report(id, err)
		return
	}
	m.lastPad = ""
	m.status = "reloaded " + id
}

func stepQuantize(q launch.Quantize, dir int) launch.Quantize {
	i := slices.Index(launch.QuantizeSettings, q)
	i = min(max(i+dir, 0), len(launch.QuantizeSettings)-1)
	return launch.QuantizeSettings[i]
}

func (m Model) statusOf(id string, fallback launch.Status) launch.PlaybackState {
	if st, ok := m.states[id]; ok && st.Status != "" {
		return st
	}
	return launch.PlaybackState{Status: fallback}
}

func (m Model) View() string {
	if m.quitting || m.sess == nil {
		return ""
	}
	th := m.deps.Theme

	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())
	titleStyle := lipgloss.NewStyle().Foreground(th.FG()).Bold(true)

	playState := "STOP"
	if m.deps.Clock.Running() {
		playState = "PLAY"
	}
	bar, beat := m.deps.Clock.Bar()
	deviceStatus := ""
	if m.controller != "" {
		deviceStatus = "  LP:X"
	}
	header := headerStyle.Render(fmt.Sprintf("go-launcher  %s  %3.0fbpm  %3d.%d  q:%s%s",
		playState, m.deps.Clock.Tempo(), bar, beat, m.quantize, deviceStatus))

	pads := titleStyle.Render("Pads · "+m.sess.ActiveBank().Name) + "\n" + m.padsView()
	session := titleStyle.Render("Session") + "\n" + m.sessionView()

	f := surface.Render(m.sess, m.states, th)
	grid, right := f.Colors()
	var top [surface.GridSize][3]uint8
	for i, led := range f.TopRow {
		top[i] = led.Color
	}
	mirror := titleStyle.Render("Launchpad") + "\n" + widgets.RenderPadGrid(grid, &top, &right) + "\n" +
		strings.Join([]string{
			widgets.RenderLegendItem(th.StatusRGB(launch.StatusPlaying), "playing", "sounding"),
			widgets.RenderLegendItem(th.StatusRGB(launch.StatusQueued), "queued", "starts on the grid"),
			widgets.RenderLegendItem(th.StatusRGB(launch.StatusStopping), "stopping", "stops on the grid"),
		}, "\n")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, pads, "   ", session, "   ", mirror))
	out.WriteString("\n\n")

	for _, n := range m.notices {
		out.WriteString(warnStyle.Render(fmt.Sprintf("%s %s: %s", n.At.Format("15:04:05"), n.EntityID, n.Message)))
		out.WriteString("\n")
	}
	if m.status != "" {
		out.WriteString(dimStyle.Render(m.status))
		out.WriteString("\n")
	}

	if m.showHelp {
		out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(m.keys.sections())))
	} else {
		out.WriteString(dimStyle.Render("zxcv asdf qwer 1234:pads  arrows:move  enter:clip  g:scene  space:play  +/-:tempo  [/]:quantize  b:bank  ?:help"))
	}
	return out.String()
}

func (m Model) padsView() string {
	th := m.deps.Theme
	bank := m.sess.ActiveBank()
	var rows []string
	for r := surface.PadCols - 1; r >= 0; r-- {
		var cells []string
		for c := range surface.PadCols {
			i := r*surface.PadCols + c
			pad := bank.Pads[i]
			st := m.statusOf(pad.ID, pad.BaseStatus()).Status
			sym := th.StatusSymbol(st)
			if st == launch.StatusPlaying {
				sym = th.Symbols.PadPlaying
			}
			label := padKeys[i] + " " + widgets.Truncate(sampleName(pad.Sample), padWidth-4)
			cells = append(cells, widgets.RenderCell(th.StatusColor(st), sym, label, padWidth, pad.ID == m.lastPad))
		}
		rows = append(rows, strings.Join(cells, ""))
	}
	return strings.Join(rows, "\n")
}

func (m Model) sessionView() string {
	th := m.deps.Theme
	tracks := m.sess.Tracks()
	dim := lipgloss.NewStyle().Foreground(th.Muted()).Width(cellWidth)

	var head []string
	for _, t := range tracks {
		head = append(head, dim.Render(widgets.Truncate(t.ID, cellWidth-1)))
	}
	head = append(head, dim.Render("scene"))
	rows := []string{strings.Join(head, "")}

	for slot := range m.sess.Slots() {
		var cells []string
		for ti, t := range tracks {
			cursor := ti == m.cursorTrack && slot == m.cursorSlot
			clip, ok := m.sess.ClipAt(t.ID, slot)
			if !ok {
				cells = append(cells, widgets.RenderCell(th.Muted(), th.Symbols.SlotEmpty, "", cellWidth, cursor))
				continue
			}
			st := m.statusOf(clip.ID, launch.StatusIdle)
			label := widgets.Truncate(clip.ID, cellWidth-3)
			if st.Status == launch.StatusPlaying || st.Status == launch.StatusStopping {
				label = widgets.RenderProgress(st.Progress, cellWidth-3)
			}
			cells = append(cells, widgets.RenderCell(th.StatusColor(st.Status), th.StatusSymbol(st.Status), label, cellWidth, cursor))
		}
		if sc, ok := m.sess.SceneAt(slot); ok {
			name := sc.Name
			if sc.Tempo != nil {
				name = fmt.Sprintf("%s %.0f", name, *sc.Tempo)
			}
			cells = append(cells, lipgloss.NewStyle().Foreground(th.Accent()).Render("▷ "+name))
		}
		rows = append(rows, strings.Join(cells, ""))
	}
	return strings.Join(rows, "\n")
}

// sampleName strips directories and extension from a sample path
func sampleName(path string) string {
	if path == "" {
		return "-"
	}
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.LastIndex(path, "."); i > 0 {
		path = path[:i]
	}
	return path
}
