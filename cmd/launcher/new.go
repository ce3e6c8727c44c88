package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go-launcher/launch"
	"go-launcher/store"
)

var newForce bool

var newCmd = &cobra.Command{
	Use:   "new [id]",
	Short: "Create a set from the demo layout",
	Long: `new saves the demo layout (two pad banks, four tracks, four scenes) under
id so it can be edited and opened with --set. Without id a random one is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		id, err = createSet(st, id, newForce)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", id)
		return nil
	},
}

func init() {
	newCmd.Flags().BoolVarP(&newForce, "force", "f", false, "add a save even if the set exists")
}

func createSet(st *store.FileStore, id string, force bool) (string, error) {
	if id == "" {
		id = uuid.NewString()[:8]
	}
	if !force {
		saves, err := st.ListSaves(id)
		if err != nil {
			return "", err
		}
		if len(saves) > 0 {
			return "", fmt.Errorf("set %s already exists (use --force)", id)
		}
	}
	if err := st.Save(launch.Demo(id)); err != nil {
		return "", err
	}
	return id, nil
}
