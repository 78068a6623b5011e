package cmd

import (
	"fmt"
	"os"

	"github.com/bedrockmgr/bedrockmgr/settings"
	"github.com/bedrockmgr/bedrockmgr/transfer"
)

// OpenBackend loads the configured target and builds its backend, exiting
// with a message when nothing usable is configured. Shared by command
// packages.
func OpenBackend() transfer.Backend {
	target, err := settings.LoadTarget()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	backend, err := target.Backend()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if !backend.Configured() {
		fmt.Println("No server target configured; run \"bedrockmgr target set\" first.")
		os.Exit(1)
	}
	return backend
}
