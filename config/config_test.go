package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"LAUNCHER_ENGINE", "LAUNCHER_ENGINE_PORT", "LAUNCHER_OSC_PORT",
		"LAUNCHER_QUANTIZE", "LAUNCHER_SYNC_PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Engine.Kind != EngineMIDI {
		t.Errorf("Engine.Kind = %q, want midi", cfg.Engine.Kind)
	}
	if cfg.Launch.Quantize != "1 bar" {
		t.Errorf("Launch.Quantize = %q, want 1 bar", cfg.Launch.Quantize)
	}
	if cfg.EngineTimeout() != 2*time.Second {
		t.Errorf("EngineTimeout = %v, want 2s", cfg.EngineTimeout())
	}
	if cfg.PollInterval() != 5*time.Millisecond {
		t.Errorf("PollInterval = %v, want 5ms", cfg.PollInterval())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.Engine.Kind = EngineOSC
	cfg.Sync.Peers = []string{"10.0.0.2:9000"}
	cfg.AddController(ControllerConfig{PortName: "Launchpad Mini", Type: ControllerLaunchpadMini})
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.Engine.Kind != EngineOSC {
		t.Errorf("Engine.Kind = %q, want osc", got.Engine.Kind)
	}
	if len(got.Sync.Peers) != 1 {
		t.Errorf("Sync.Peers = %v", got.Sync.Peers)
	}
	if got.FindController("Launchpad Mini") == nil {
		t.Error("saved controller missing")
	}
	if n := len(got.AutoConnectControllers()); n != 1 {
		t.Errorf("AutoConnectControllers = %d, want 1", n)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LAUNCHER_ENGINE", "osc")
	t.Setenv("LAUNCHER_QUANTIZE", "1/4")
	t.Setenv("LAUNCHER_SYNC_PORT", "9100")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Kind != EngineOSC {
		t.Errorf("Engine.Kind = %q, want osc", cfg.Engine.Kind)
	}
	if cfg.Launch.Quantize != "1/4" {
		t.Errorf("Launch.Quantize = %q, want 1/4", cfg.Launch.Quantize)
	}
	if cfg.Sync.ListenPort != 9100 {
		t.Errorf("Sync.ListenPort = %d, want 9100", cfg.Sync.ListenPort)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom accepted invalid JSON")
	}
}

func TestKeyboardPorts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AddController(ControllerConfig{PortName: "Keystation 49", Type: ControllerKeyboard, AutoConnect: true})
	cfg.AddController(ControllerConfig{PortName: "Old Keys", Type: ControllerKeyboard})

	ports := cfg.KeyboardPorts()
	if len(ports) != 1 || ports[0] != "Keystation 49" {
		t.Errorf("KeyboardPorts = %v, want [Keystation 49]", ports)
	}
}
