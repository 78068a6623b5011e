package cmd

import (
	"fmt"
	"os"

	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
)

var openIcon bool

// openCmd represents the open command
var openCmd = &cobra.Command{
	Use:   "open [name]",
	Short: "Open an installed pack's project page or icon",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		backend := OpenBackend()
		defer backend.Close()

		addon, err := resolveAddon(backend, args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		if openIcon {
			if addon.IconPath == "" {
				fmt.Printf("%s has no pack icon.\n", addon.Name)
				os.Exit(1)
			}
			// For remote targets this downloads the icon into the local
			// cache first.
			local, err := backend.LocalCopy(addon.IconPath)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			if err := open.Start(local); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			return
		}

		if addon.URL == "" {
			fmt.Printf("%s does not declare a project URL in its manifest.\n", addon.Name)
			os.Exit(1)
		}
		fmt.Println("Opening", addon.URL)
		if err := open.Start(addon.URL); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	openCmd.Flags().BoolVar(&openIcon, "icon", false, "Open the pack's icon instead of its project page")
	rootCmd.AddCommand(openCmd)
}
