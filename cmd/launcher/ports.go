package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-launcher/midi"
	"go-launcher/theme"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listPorts(cmd)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report controllers as they connect and echo pad presses",
	Long: `watch runs the device manager until interrupted. Connected Launchpads
light up with the palette and every press is printed with its grid position.`,
	RunE: runWatch,
}

func init() {
	portsCmd.AddCommand(watchCmd)
}

func listPorts(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		fmt.Fprintln(out, "=== MIDI Input Ports ===")
		for i, p := range r.ins {
			fmt.Fprintf(out, "  %d: %s\n", i, p.String())
		}
		fmt.Fprintln(out, "\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Fprintf(out, "  %d: %s\n", i, p.String())
		}
		return nil
	case <-time.After(3 * time.Second):
		return fmt.Errorf("listing MIDI ports timed out (on macOS: sudo killall coreaudiod midiserver)")
	}
}

// sweep paints the palette left to right across the grid
func sweep(p *theme.Palette) []midi.LEDUpdate {
	var updates []midi.LEDUpdate
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			c := p.Lookup(float64(col) / 7)
			updates = append(updates, midi.LEDUpdate{Row: row, Col: col, Color: c})
		}
	}
	return updates
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	palette, _ := theme.LoadOrDefault(cfg.UI.Palette)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dm := midi.NewDeviceManager(cfg.KeyboardPorts()...)
	go dm.Run(ctx)

	fmt.Fprintln(out, "Watching for controllers. Ctrl+C to exit.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-dm.Events():
			if !ok {
				return nil
			}
			stamp := time.Now().Format("15:04:05")
			if ev.Type == midi.DeviceDisconnected {
				fmt.Fprintf(out, "[%s] disconnected %s\n", stamp, ev.ID)
				continue
			}
			fmt.Fprintf(out, "[%s] connected %s (%s)\n", stamp, ev.ID, ev.Controller.Type())
			if ev.Controller.Type() == midi.ControllerLaunchpad {
				if err := ev.Controller.SetLEDBatch(sweep(palette)); err != nil {
					fmt.Fprintf(out, "  LED test failed: %v\n", err)
				}
			}
			go echo(ctx, cmd, ev.Controller)
		}
	}
}

func echo(ctx context.Context, cmd *cobra.Command, c midi.Controller) {
	out := cmd.OutOrStdout()
	pads, notes := c.PadEvents(), c.NoteEvents()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-pads:
			if !ok {
				return
			}
			if ev.Pressed {
				fmt.Fprintf(out, "  %s pad row=%d col=%d vel=%d\n", c.ID(), ev.Row, ev.Col, ev.Velocity)
			}
		case ev, ok := <-notes:
			if !ok {
				return
			}
			if ev.Pressed {
				fmt.Fprintf(out, "  %s note=%d vel=%d ch=%d\n", c.ID(), ev.Note, ev.Velocity, ev.Channel)
			}
		}
	}
}
