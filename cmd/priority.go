package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bedrockmgr/bedrockmgr/world"
)

var priorityUp bool
var priorityDown bool

// priorityCmd represents the priority command
var priorityCmd = &cobra.Command{
	Use:   "priority [name]",
	Short: "Move an enabled pack up or down in a world's load order",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if priorityUp == priorityDown {
			fmt.Println("Pass exactly one of --up or --down.")
			os.Exit(1)
		}
		direction := 1
		if priorityUp {
			direction = -1
		}

		backend := OpenBackend()
		defer backend.Close()
		registry := world.NewRegistry(backend)

		addon, err := resolveAddon(backend, args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		worldName := requireWorld(registry)
		if err := registry.MovePriority(addon, worldName, direction); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		pos, _ := registry.Position(addon, worldName)
		count := registry.EnabledCount(worldName, addon.Type)
		fmt.Printf("%s is now at position %d of %d in world %s\n", addon.Name, pos+1, count, worldName)
	},
}

func init() {
	priorityCmd.Flags().BoolVar(&priorityUp, "up", false, "Move the pack one position earlier in the load order")
	priorityCmd.Flags().BoolVar(&priorityDown, "down", false, "Move the pack one position later in the load order")
	rootCmd.AddCommand(priorityCmd)
}
