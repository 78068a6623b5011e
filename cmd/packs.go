package cmd

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/dixonwille/wmenu.v4"

	"github.com/bedrockmgr/bedrockmgr/core"
	"github.com/bedrockmgr/bedrockmgr/transfer"
)

// resolveAddon finds one installed pack by name, folder name or UUID.
// When several installed packs share the queried name the user picks one
// from a menu.
func resolveAddon(backend transfer.Backend, query string) (core.Addon, error) {
	addons, err := scanAllPacks(backend)
	if err != nil {
		return core.Addon{}, err
	}
	if len(addons) == 0 {
		return core.Addon{}, errors.New("no packs are installed on the server target")
	}

	var matches []core.Addon
	for _, a := range addons {
		if strings.EqualFold(a.UUID, query) || strings.EqualFold(a.Name, query) ||
			strings.EqualFold(folderName(a), query) {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return core.Addon{}, fmt.Errorf("no installed pack matches %q", query)
	case 1:
		return matches[0], nil
	}

	// Create menu for the user to choose the intended pack
	menu := wmenu.NewMenu("Choose a number:")
	menu.Option("Cancel", nil, false, nil)
	for i, a := range matches {
		label := fmt.Sprintf("%s (%s %s, %s)", a.Name, a.Type, a.Version, folderName(a))
		menu.Option(label, a, i == 0, nil)
	}
	var picked core.Addon
	menu.Action(func(menuRes []wmenu.Opt) error {
		if len(menuRes) != 1 || menuRes[0].Value == nil {
			return errors.New("pack selection cancelled")
		}
		addon, ok := menuRes[0].Value.(core.Addon)
		if !ok {
			return errors.New("error converting interface from wmenu")
		}
		picked = addon
		return nil
	})
	if err := menu.Run(); err != nil {
		return core.Addon{}, err
	}
	return picked, nil
}

func folderName(a core.Addon) string {
	if i := strings.LastIndex(a.Path, "/"); i >= 0 {
		return a.Path[i+1:]
	}
	return a.Path
}
