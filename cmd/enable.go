package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bedrockmgr/bedrockmgr/world"
)

// enableCmd represents the enable command
var enableCmd = &cobra.Command{
	Use:   "enable [name]",
	Short: "Enable a pack in a world's load order",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		backend := OpenBackend()
		defer backend.Close()
		registry := world.NewRegistry(backend)

		addon, err := resolveAddon(backend, args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		worldName := requireWorld(registry)
		if err := registry.Enable(addon, worldName); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Enabled %s in world %s\n", addon.Name, worldName)
	},
}

// disableCmd represents the disable command
var disableCmd = &cobra.Command{
	Use:   "disable [name]",
	Short: "Disable a pack in a world's load order",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		backend := OpenBackend()
		defer backend.Close()
		registry := world.NewRegistry(backend)

		addon, err := resolveAddon(backend, args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		worldName := requireWorld(registry)
		if err := registry.Disable(addon, worldName); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Disabled %s in world %s\n", addon.Name, worldName)
	},
}

// requireWorld resolves the --world flag. With a single world on the
// target the flag may be omitted.
func requireWorld(registry *world.Registry) string {
	if name := viper.GetString("world"); name != "" {
		return name
	}
	worlds, err := registry.Worlds()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if len(worlds) == 1 {
		return worlds[0]
	}
	if len(worlds) == 0 {
		fmt.Println("The server target has no worlds.")
	} else {
		fmt.Println("Multiple worlds found, pass --world with one of: " + strings.Join(worlds, ", "))
	}
	os.Exit(1)
	return ""
}

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
}
