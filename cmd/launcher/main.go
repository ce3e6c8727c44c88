package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"go-launcher/launch"
)

var flags struct {
	configPath string
	storeRoot  string
	set        string
	engine     string
	port       string
	logPath    string
	syncPort   int
	peers      []string
}

var rootCmd = &cobra.Command{
	Use:   "launcher",
	Short: "Pad and clip launcher for live sets",
	Long: `launcher triggers sample pads and session clips from the terminal or a
Launchpad X, with choke groups, one clip per track and launch quantization.

Sound comes from an external engine: a MIDI instrument or an OSC sampler.`,
	SilenceUsage: true,
	RunE:         runLauncher,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.config/go-launcher/config.json)")
	pf.StringVar(&flags.storeRoot, "store", "", "folder holding saved sets (default ~/.config/go-launcher/sets)")
	pf.StringVarP(&flags.logPath, "log", "l", "", "write debug logs to file (empty disables)")

	f := rootCmd.Flags()
	f.StringVarP(&flags.set, "set", "s", "", "set to open (default: last used, or a new demo)")
	f.StringVarP(&flags.engine, "engine", "e", "", "engine kind: midi or osc")
	f.StringVarP(&flags.port, "port", "p", "", "MIDI output port for the midi engine")
	f.IntVar(&flags.syncPort, "sync-port", 0, "UDP port to receive launch state from peers")
	f.StringSliceVar(&flags.peers, "peer", nil, "host:port of a peer launcher (repeatable)")

	rootCmd.AddCommand(portsCmd, newCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, launch.Describe(err))
		os.Exit(1)
	}
}
