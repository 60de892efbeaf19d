package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"plus4/emu"
)

func main() {
	cli := parseArgs(os.Args[1:])

	cfg, err := emu.LoadConfig(cli.Config)
	checkf(err, "failed to load configuration")

	switch cli.mode {
	case renderMode:
		checkf(renderMain(cli.Render, cfg), "render failed")
	case sidplayMode:
		checkf(sidplayMain(cli.SIDPlay, cfg), "sidplay failed")
	case snapshotSaveMode:
		checkf(snapshotSaveMain(cli.Snapshot.Save, cfg), "snapshot failed")
	case snapshotInfoMode:
		checkf(snapshotInfoMain(cli.Snapshot.Info, cfg), "snapshot failed")
	case versionMode:
		printVersion()
	}
}

func printVersion() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("plus4", version)
}
