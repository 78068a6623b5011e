package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/bedrockmgr/bedrockmgr/core"
	"github.com/bedrockmgr/bedrockmgr/settings"
	"github.com/bedrockmgr/bedrockmgr/world"
)

var listType string
var listSearch string

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all installed packs on the server target",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		backend := OpenBackend()
		defer backend.Close()

		addons, err := scanAllPacks(backend)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if err := world.NewRegistry(backend).MarkEnabled(addons); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		switch strings.ToLower(listType) {
		case "", "all":
		case "behavior", "bp":
			addons = filterType(addons, core.PackTypeBehavior)
		case "resource", "rp":
			addons = filterType(addons, core.PackTypeResource)
		default:
			fmt.Println("Unknown pack type:", listType)
			os.Exit(1)
		}

		if listSearch != "" {
			names := make([]string, len(addons))
			for i, a := range addons {
				names[i] = a.Name
			}
			var matched []core.Addon
			for _, m := range fuzzy.Find(listSearch, names) {
				matched = append(matched, addons[m.Index])
			}
			addons = matched
		}

		if len(addons) == 0 {
			fmt.Println("No packs installed.")
			return
		}
		defaults := settings.DefaultPackUUIDs()
		for _, a := range addons {
			fmt.Println(formatAddon(a, defaults[a.UUID]))
		}
	},
}

func scanAllPacks(fs core.TargetFS) ([]core.Addon, error) {
	var all []core.Addon
	for _, t := range []core.PackType{core.PackTypeBehavior, core.PackTypeResource} {
		for _, staging := range []bool{false, true} {
			packs, err := core.ScanPacks(fs, t, staging)
			if err != nil {
				return nil, fmt.Errorf("failed to scan %s: %w", core.PackDir(t, staging), err)
			}
			all = append(all, packs...)
		}
	}
	return all, nil
}

func filterType(addons []core.Addon, t core.PackType) []core.Addon {
	var out []core.Addon
	for _, a := range addons {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func formatAddon(a core.Addon, isDefault bool) string {
	state := "   "
	if a.Enabled {
		state = "on "
	}
	var tags []string
	if strings.Contains(a.Path, "development_") {
		tags = append(tags, "dev")
	}
	if isDefault {
		tags = append(tags, "default")
	}
	suffix := ""
	if len(tags) > 0 {
		suffix = " (" + strings.Join(tags, ", ") + ")"
	}
	tag := "RP"
	if a.Type == core.PackTypeBehavior {
		tag = "BP"
	}
	return fmt.Sprintf("[%s] %s %s %s%s", state, tag, a.Name, a.Version, suffix)
}

func init() {
	listCmd.Flags().StringVarP(&listType, "type", "t", "all", "Only list packs of one type (behavior/resource)")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Fuzzy filter the listed packs by name")
	rootCmd.AddCommand(listCmd)
}
