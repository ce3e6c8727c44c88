package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-launcher/debug"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// PortLister returns the names of the current input and output ports
type PortLister func() (ins, outs []string)

// Opener connects to a controller given its input and (optional) output port
type Opener func(kind ControllerType, in, out string) (Controller, error)

// DeviceManager handles hot-plug detection of MIDI controllers
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
	keyboards   map[string]bool

	list PortLister
	open Opener
}

// NewDeviceManager watches the system MIDI ports. Launchpads are found by
// name, keyboards only when their input port is listed.
func NewDeviceManager(keyboardPorts ...string) *DeviceManager {
	return newDeviceManager(systemPorts, openSystem, keyboardPorts)
}

func newDeviceManager(list PortLister, open Opener, keyboardPorts []string) *DeviceManager {
	kb := make(map[string]bool, len(keyboardPorts))
	for _, name := range keyboardPorts {
		kb[name] = true
	}
	return &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		keyboards:   kb,
		list:        list,
		open:        open,
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// GetLaunchpad returns the first connected Launchpad (or nil)
func (dm *DeviceManager) GetLaunchpad() Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	for _, c := range dm.controllers {
		if c.Type() == ControllerLaunchpad {
			return c
		}
	}
	return nil
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	type portsResult struct {
		ins, outs []string
	}

	// CoreMIDI can hang while listing ports
	ch := make(chan portsResult, 1)
	go func() {
		ins, outs := dm.list()
		ch <- portsResult{ins, outs}
	}()

	var ports portsResult
	select {
	case ports = <-ch:
	case <-time.After(3 * time.Second):
		debug.Warn("midi", "port scan timed out")
		return
	}

	seen := make(map[string]bool)
	for _, in := range ports.ins {
		kind := dm.classify(in)
		if kind == ControllerUnknown {
			continue
		}
		seen[in] = true

		dm.mu.RLock()
		_, exists := dm.controllers[in]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		out := ""
		if kind == ControllerLaunchpad {
			out = matchingOut(in, ports.outs)
		}
		c, err := dm.open(kind, in, out)
		if err != nil {
			debug.Log("midi", "open %s: %v", in, err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[in] = c
		dm.mu.Unlock()
		debug.Log("midi", "connected %s %s", kind, in)
		trySend(dm.events, DeviceEvent{Type: DeviceConnected, Controller: c, ID: in})
	}

	dm.mu.Lock()
	var gone []string
	for id := range dm.controllers {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	for _, id := range gone {
		dm.controllers[id].Close()
		delete(dm.controllers, id)
		debug.Log("midi", "disconnected %s", id)
		trySend(dm.events, DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
	dm.mu.Unlock()
}

func (dm *DeviceManager) classify(port string) ControllerType {
	switch {
	case isLaunchpad(port):
		return ControllerLaunchpad
	case dm.keyboards[port]:
		return ControllerKeyboard
	}
	return ControllerUnknown
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}

func matchingOut(in string, outs []string) string {
	for _, out := range outs {
		if strings.EqualFold(out, in) {
			return out
		}
	}
	return ""
}

func systemPorts() (ins, outs []string) {
	for _, p := range gomidi.GetInPorts() {
		ins = append(ins, p.String())
	}
	for _, p := range gomidi.GetOutPorts() {
		outs = append(outs, p.String())
	}
	return ins, outs
}

func openSystem(kind ControllerType, in, out string) (Controller, error) {
	inPort, err := gomidi.FindInPort(in)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("find input "+in))
	}
	if kind == ControllerKeyboard {
		return NewKeyboardController(in, inPort)
	}
	if out == "" {
		return NewLaunchpadController(in, inPort, nil)
	}
	outPort, err := gomidi.FindOutPort(out)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("find output "+out))
	}
	return NewLaunchpadController(in, inPort, outPort)
}
