// Package main is the entry point for playengine.
package main

import (
	"github.com/playengine/playengine/cmd"
	"github.com/playengine/playengine/config"
	"github.com/playengine/playengine/log"
	"github.com/playengine/playengine/resolve"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	// Expired resolutions are swept in the background.
	go resolve.CollectGarbage()

	cmd.Execute()
}
