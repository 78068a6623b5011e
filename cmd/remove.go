package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bedrockmgr/bedrockmgr/world"
)

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:     "remove [name]",
	Short:   "Remove an installed pack from the server target",
	Aliases: []string{"delete", "uninstall"},
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		backend := OpenBackend()
		defer backend.Close()
		registry := world.NewRegistry(backend)

		addon, err := resolveAddon(backend, args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Drop the pack from every world's load order before deleting
		// its files, so no world references a missing pack.
		worlds, err := registry.Worlds()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		for _, name := range worlds {
			if err := registry.Disable(addon, name); err != nil {
				fmt.Printf("Failed to disable %s in world %s: %v\n", addon.Name, name, err)
				os.Exit(1)
			}
		}

		if err := backend.DeleteTree(addon.Path); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Removed %s (%s %s)\n", addon.Name, addon.Type, addon.Version)
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
