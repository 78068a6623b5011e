package main

import (
	"github.com/bedrockmgr/bedrockmgr/cmd"
)

func main() {
	cmd.Execute()
}
