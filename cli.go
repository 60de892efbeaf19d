package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"plus4/emu/log"
)

type mode byte

const (
	renderMode       mode = iota // Run frames and write video/audio
	sidplayMode                  // Play a SID write dump
	snapshotSaveMode             // Run frames and save a snapshot
	snapshotInfoMode             // Show snapshot contents
	versionMode                  // Show plus4 version
)

type (
	CLI struct {
		Render   Render   `cmd:"" help:"Run the machine and write frames and audio." default:"withargs"`
		SIDPlay  SIDPlay  `cmd:"" help:"Play a SID register write dump into a WAV file." name:"sidplay"`
		Snapshot Snapshot `cmd:"" help:"Save or inspect machine snapshots."`
		Version  Version  `cmd:"" help:"Show plus4 version."`

		Log    logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
		Config string     `help:"${config_help}" type:"existingfile" placeholder:"FILE"`

		mode mode
	}

	// Machine setup shared by commands running the machine.
	Setup struct {
		Script   string `name:"script" help:"${script_help}" type:"existingfile" placeholder:"FILE"`
		Program  string `name:"prg" help:"Load a PRG file into RAM." type:"existingfile" placeholder:"FILE"`
		Snapshot string `name:"load" help:"Start from a machine snapshot." type:"existingfile" placeholder:"FILE"`
		NTSC     bool   `name:"ntsc" help:"Start in NTSC mode."`
		SID      string `name:"sid" help:"SID card model (6581, 8580 or none), overrides the configuration." placeholder:"MODEL"`
	}

	Render struct {
		Setup `embed:""`

		Frames     int      `name:"frames" help:"Number of frames to run." default:"50"`
		PNG        string   `name:"png" help:"Write the last frame as PNG." type:"path" placeholder:"FILE"`
		FramesDir  string   `name:"frames-dir" help:"Write every frame as PNG into DIR." type:"path" placeholder:"DIR"`
		WAV        string   `name:"wav" help:"Write the audio output as WAV." type:"path" placeholder:"FILE"`
		Scale      int      `name:"scale" help:"Scale factor of PNG frames, overrides the configuration." default:"0"`
		CPUProfile string   `name:"cpuprofile" help:"${cpuprofile_help}" type:"path"`
		Trace      *outfile `name:"trace" help:"Write a per-frame raster trace." placeholder:"FILE|stdout|stderr"`
	}

	SIDPlay struct {
		Dump  string `arg:"" name:"/path/to/dump.json" help:"JSON script with the SID writes." type:"existingfile"`
		WAV   string `arg:"" name:"/path/to/out.wav" help:"Output WAV file." type:"path"`
		Tail  int    `name:"tail" help:"Frames to run after the last write." default:"50"`
		Model string `name:"model" help:"SID model (6581 or 8580), overrides the configuration." placeholder:"MODEL"`
	}

	Snapshot struct {
		Save SnapshotSave `cmd:"" help:"Run the machine and save a snapshot."`
		Info SnapshotInfo `cmd:"" help:"Show the contents of a snapshot."`
	}

	SnapshotSave struct {
		Setup `embed:""`

		Out    string `arg:"" name:"/path/to/snapshot" help:"Output snapshot file." type:"path"`
		Frames int    `name:"frames" help:"Number of frames to run before saving." default:"50"`
	}

	SnapshotInfo struct {
		Path string `arg:"" name:"/path/to/snapshot" type:"existingfile"`
	}

	Version struct{}
)

var vars = kong.Vars{
	"config_help":     "Configuration file. (default: config.toml in the user configuration directory)",
	"script_help":     "JSON script of timed register writes, replacing the CPU.",
	"cpuprofile_help": "Write CPU profile to file.",
	"log_help":        "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("plus4"),
		kong.Description("Commodore Plus/4 TED and SID emulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch ctx.Command() {
	case "sidplay </path/to/dump.json> </path/to/out.wav>":
		cfg.mode = sidplayMode
	case "snapshot save </path/to/snapshot>":
		cfg.mode = snapshotSaveMode
	case "snapshot info </path/to/snapshot>":
		cfg.mode = snapshotInfoMode
	case "version":
		cfg.mode = versionMode
	default:
		cfg.mode = renderMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
	var strs []string
	for _, m := range log.ModuleNames() {
		strs = append(strs, "    - "+m)
	}

	fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
