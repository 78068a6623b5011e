package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bedrockmgr/bedrockmgr/core"
	"github.com/bedrockmgr/bedrockmgr/settings"
	"github.com/bedrockmgr/bedrockmgr/world"
)

// worldsCmd represents the worlds command
var worldsCmd = &cobra.Command{
	Use:   "worlds",
	Short: "List the worlds on the server target",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		backend := OpenBackend()
		defer backend.Close()
		registry := world.NewRegistry(backend)

		worlds, err := registry.Worlds()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if len(worlds) == 0 {
			fmt.Println("The server target has no worlds.")
			return
		}
		for _, name := range worlds {
			bp := registry.EnabledCount(name, core.PackTypeBehavior)
			rp := registry.EnabledCount(name, core.PackTypeResource)
			fmt.Printf("%s (%d behavior, %d resource packs enabled)\n", name, bp, rp)
		}
	},
}

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Disable packs that are installed in both the production and development directories",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		backend := OpenBackend()
		defer backend.Close()
		registry := world.NewRegistry(backend)

		var production, staging []core.Addon
		for _, t := range []core.PackType{core.PackTypeBehavior, core.PackTypeResource} {
			p, err := core.ScanPacks(backend, t, false)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			s, err := core.ScanPacks(backend, t, true)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			production = append(production, p...)
			staging = append(staging, s...)
		}

		// Packs that ship with the server are never reconciled away.
		defaults := settings.DefaultPackUUIDs()
		production = dropDefaults(production, defaults)
		staging = dropDefaults(staging, defaults)

		removed, err := registry.Reconcile(production, staging)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if len(removed) == 0 {
			fmt.Println("No duplicate packs found.")
			return
		}
		fmt.Printf("Disabled %d duplicate pack(s):\n", len(removed))
		for _, id := range removed {
			fmt.Println("  " + id)
		}
	},
}

func dropDefaults(addons []core.Addon, defaults map[string]bool) []core.Addon {
	if len(defaults) == 0 {
		return addons
	}
	kept := addons[:0]
	for _, a := range addons {
		if !defaults[a.UUID] {
			kept = append(kept, a)
		}
	}
	return kept
}

func init() {
	rootCmd.AddCommand(worldsCmd)
	rootCmd.AddCommand(reconcileCmd)
}
