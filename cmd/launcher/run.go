package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-launcher/config"
	"go-launcher/debug"
	"go-launcher/engine"
	"go-launcher/launch"
	"go-launcher/midi"
	"go-launcher/statesync"
	"go-launcher/store"
	"go-launcher/surface"
	"go-launcher/theme"
	"go-launcher/transport"
	"go-launcher/tui"
)

func loadConfig() (*config.Config, error) {
	if flags.configPath != "" {
		return config.LoadFrom(flags.configPath)
	}
	return config.Load()
}

func saveConfig(cfg *config.Config) error {
	if flags.configPath != "" {
		return cfg.SaveTo(flags.configPath)
	}
	return cfg.Save()
}

func openStore() (*store.FileStore, error) {
	root := flags.storeRoot
	if root == "" {
		var err error
		if root, err = store.DefaultRoot(); err != nil {
			return nil, err
		}
	}
	return store.NewFileStore(root), nil
}

// openSet loads the newest save of id, or a fresh demo when it was never saved
func openSet(st launch.ConfigStore, id string) (launch.Composition, error) {
	comp, err := st.Load(id)
	if errors.Is(err, store.ErrNoSaves) {
		debug.Log("app", "no saves for %s, starting from demo", id)
		return launch.Demo(id), nil
	}
	return comp, err
}

// applyFlags lets command line flags win over config and environment
func applyFlags(cfg *config.Config) {
	if flags.engine != "" {
		cfg.Engine.Kind = config.EngineKind(flags.engine)
	}
	if flags.port != "" {
		cfg.Engine.PortName = flags.port
	}
	if flags.syncPort != 0 {
		cfg.Sync.ListenPort = flags.syncPort
	}
	if len(flags.peers) > 0 {
		cfg.Sync.Peers = flags.peers
	}
	if flags.set != "" {
		cfg.UI.LastComposition = flags.set
	}
	if cfg.UI.LastComposition == "" {
		cfg.UI.LastComposition = "demo"
	}
}

func controllerOptions(cfg *config.Config) (launch.Options, error) {
	opts := launch.DefaultOptions()
	q, err := launch.ParseQuantize(cfg.Launch.Quantize)
	if err != nil {
		return opts, err
	}
	opts.Quantize = q
	if cfg.Launch.ClipRelease > 0 {
		opts.ClipRelease = cfg.Launch.ClipRelease
	}
	opts.EngineTimeout = cfg.EngineTimeout()
	opts.PollInterval = cfg.PollInterval()
	return opts, nil
}

// openEngine connects the configured engine. The MIDI bridge is returned
// separately so it can be silenced on exit.
func openEngine(cfg *config.Config, sess *launch.Session) (launch.EngineBridge, *engine.MIDIBridge, error) {
	switch cfg.Engine.Kind {
	case config.EngineOSC:
		debug.Log("app", "osc engine %s:%d", cfg.Engine.OSCHost, cfg.Engine.OSCPort)
		return engine.DialOSC(cfg.Engine.OSCHost, cfg.Engine.OSCPort), nil, nil
	case config.EngineMIDI, "":
		port := cfg.Engine.PortName
		if port == "" {
			port = firstEnginePort()
		}
		if port == "" {
			return nil, nil, errors.New("no MIDI output for the engine; pass --port or use --engine osc")
		}
		b, err := engine.OpenMIDIBridge(port, engine.NewSessionMapper(sess, engine.GetKit(cfg.Engine.Kit)))
		if err != nil {
			return nil, nil, err
		}
		debug.Log("app", "midi engine on %s", port)
		return b, b, nil
	}
	return nil, nil, fmt.Errorf("unknown engine kind %q", cfg.Engine.Kind)
}

// firstEnginePort skips Launchpad ports, which only drive LEDs
func firstEnginePort() string {
	for _, p := range gomidi.GetOutPorts() {
		if !strings.Contains(strings.ToLower(p.String()), "launchpad") {
			return p.String()
		}
	}
	return ""
}

func runLauncher(cmd *cobra.Command, args []string) error {
	if flags.logPath != "" {
		if err := debug.Enable(flags.logPath); err != nil {
			return err
		}
		defer debug.Disable()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)

	st, err := openStore()
	if err != nil {
		return err
	}
	comp, err := openSet(st, cfg.UI.LastComposition)
	if err != nil {
		return err
	}
	sess, err := launch.NewSession(comp)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge, midiBridge, err := openEngine(cfg, sess)
	if err != nil {
		return err
	}

	hub := statesync.NewHub()
	defer hub.Close()
	if cfg.Sync.ListenPort > 0 || len(cfg.Sync.Peers) > 0 {
		listen := ""
		if cfg.Sync.ListenPort > 0 {
			listen = fmt.Sprintf(":%d", cfg.Sync.ListenPort)
		}
		peer, err := statesync.NewPeer(hub, listen, cfg.Sync.Peers)
		if err != nil {
			return err
		}
		go func() {
			if err := peer.Serve(ctx); err != nil {
				debug.Warn("sync", "peer stopped: %v", err)
			}
		}()
	}

	opts, err := controllerOptions(cfg)
	if err != nil {
		return err
	}
	clock := transport.NewClock(float64(cfg.UI.LastTempo), 4)
	ctrl := launch.New(sess, bridge, clock, hub, opts)
	go ctrl.Run(ctx)

	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		debug.Warn("app", "palette: %v", err)
	}
	th := theme.New(palette)

	devices := midi.NewDeviceManager(cfg.KeyboardPorts()...)
	go devices.Run(ctx)
	surf := surface.New(ctrl, th)
	go surf.Run(ctx)

	m := tui.NewModel(tui.Deps{
		Ctx:      ctx,
		Launcher: ctrl,
		Clock:    clock,
		Theme:    th,
		Devices:  devices,
		Surface:  surf,
		Store:    st,
	})
	_, runErr := tea.NewProgram(m, tea.WithAltScreen()).Run()

	if err := ctrl.StopAll(ctx); err != nil {
		debug.Log("app", "stop all on exit: %v", err)
	}
	if midiBridge != nil {
		midiBridge.Panic()
	}
	cfg.UI.LastTempo = int(clock.Tempo())
	if err := saveConfig(cfg); err != nil {
		debug.Warn("app", "save config: %v", err)
	}
	return runErr
}
