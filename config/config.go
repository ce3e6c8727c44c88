package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
)

// ControllerType identifies the kind of controller
type ControllerType string

const (
	ControllerLaunchpadX    ControllerType = "launchpad-x"
	ControllerLaunchpadMini ControllerType = "launchpad-mini"
	ControllerLaunchpadPro  ControllerType = "launchpad-pro"
	ControllerKeyboard      ControllerType = "keyboard"
)

// ControllerConfig defines a saved controller configuration
type ControllerConfig struct {
	PortName    string         `json:"portName"`
	Type        ControllerType `json:"type"`
	AutoConnect bool           `json:"autoConnect"`
}

// EngineKind selects the engine bridge
type EngineKind string

const (
	EngineMIDI EngineKind = "midi"
	EngineOSC  EngineKind = "osc"
)

// EngineConfig points the launcher at the audio engine
type EngineConfig struct {
	Kind      EngineKind `json:"kind"`
	PortName  string     `json:"portName,omitempty"` // midi output
	Kit       string     `json:"kit,omitempty"`      // pad note map
	OSCHost   string     `json:"oscHost,omitempty"`
	OSCPort   int        `json:"oscPort,omitempty"`
	TimeoutMs int        `json:"timeoutMs,omitempty"`
}

// SyncConfig mirrors launch state to other launcher processes over OSC
type SyncConfig struct {
	ListenPort int      `json:"listenPort,omitempty"` // 0 disables
	Peers      []string `json:"peers,omitempty"`      // host:port
}

// LaunchConfig tunes the trigger controller
type LaunchConfig struct {
	Quantize       string  `json:"quantize"`
	ClipRelease    float64 `json:"clipRelease"`
	PollIntervalMs int     `json:"pollIntervalMs,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	LastTempo       int    `json:"lastTempo,omitempty"`
	LastComposition string `json:"lastComposition,omitempty"`
	Palette         string `json:"palette,omitempty"` // GIMP .gpl, empty for built-in
}

// Config is the main configuration structure
type Config struct {
	Controllers []ControllerConfig `json:"controllers,omitempty"`
	Engine      EngineConfig       `json:"engine"`
	Sync        SyncConfig         `json:"sync,omitempty"`
	Launch      LaunchConfig       `json:"launch"`
	UI          UIConfig           `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Controllers: []ControllerConfig{
			{
				PortName:    "Launchpad X LPX MIDI",
				Type:        ControllerLaunchpadX,
				AutoConnect: true,
			},
		},
		Engine: EngineConfig{
			Kind:      EngineMIDI,
			Kit:       "gm",
			OSCHost:   "127.0.0.1",
			OSCPort:   57120,
			TimeoutMs: 2000,
		},
		Launch: LaunchConfig{
			Quantize:       "1 bar",
			ClipRelease:    0.05,
			PollIntervalMs: 5,
		},
		UI: UIConfig{
			LastTempo: 120,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-launcher"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path over the defaults
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, fault.Wrap(err, fmsg.With("read config"))
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("parse config", "config.json is not valid JSON"))
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides settings from LAUNCHER_* environment variables
func (c *Config) ApplyEnv() {
	c.Engine.Kind = EngineKind(envStr("LAUNCHER_ENGINE", string(c.Engine.Kind)))
	c.Engine.PortName = envStr("LAUNCHER_ENGINE_PORT", c.Engine.PortName)
	c.Engine.OSCPort = envInt("LAUNCHER_OSC_PORT", c.Engine.OSCPort)
	c.Launch.Quantize = envStr("LAUNCHER_QUANTIZE", c.Launch.Quantize)
	c.Sync.ListenPort = envInt("LAUNCHER_SYNC_PORT", c.Sync.ListenPort)
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fault.Wrap(err, fmsg.With("create config dir"))
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fault.Wrap(err, fmsg.With("encode config"))
	}

	return os.WriteFile(path, data, 0644)
}

// EngineTimeout bounds a single engine call
func (c *Config) EngineTimeout() time.Duration {
	if c.Engine.TimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Engine.TimeoutMs) * time.Millisecond
}

// PollInterval is the longest the trigger loop sleeps between transport reads
func (c *Config) PollInterval() time.Duration {
	if c.Launch.PollIntervalMs <= 0 {
		return 5 * time.Millisecond
	}
	return time.Duration(c.Launch.PollIntervalMs) * time.Millisecond
}

// FindController finds a controller config by port name
func (c *Config) FindController(portName string) *ControllerConfig {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == portName {
			return &c.Controllers[i]
		}
	}
	return nil
}

// AddController adds or updates a controller config
func (c *Config) AddController(ctrl ControllerConfig) {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == ctrl.PortName {
			c.Controllers[i] = ctrl
			return
		}
	}
	c.Controllers = append(c.Controllers, ctrl)
}

// AutoConnectControllers returns controllers with autoConnect enabled
func (c *Config) AutoConnectControllers() []ControllerConfig {
	var result []ControllerConfig
	for _, ctrl := range c.Controllers {
		if ctrl.AutoConnect {
			result = append(result, ctrl)
		}
	}
	return result
}

// KeyboardPorts lists auto-connect keyboard input ports
func (c *Config) KeyboardPorts() []string {
	var ports []string
	for _, ctrl := range c.AutoConnectControllers() {
		if ctrl.Type == ControllerKeyboard {
			ports = append(ports, ctrl.PortName)
		}
	}
	return ports
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
