package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime/pprof"
	"slices"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"golang.org/x/sync/errgroup"

	"plus4/emu"
	"plus4/emu/log"
	"plus4/hw"
)

// newMachine builds the machine described by cfg with the overrides of s,
// and loads its ROMs, snapshot, program and write script.
func newMachine(s Setup, cfg emu.Config, onFrame func(*image.RGBA)) (*hw.Machine, error) {
	switch s.SID {
	case "":
	case "none":
		cfg.Sound.SIDEnabled = false
	case "6581", "8580":
		cfg.Sound.SIDEnabled = true
		cfg.Sound.SIDModel = s.SID
	default:
		return nil, fmt.Errorf("invalid SID model %q", s.SID)
	}
	if s.NTSC {
		cfg.Machine.NTSC = true
	}

	hwcfg, err := cfg.HardwareConfig()
	if err != nil {
		return nil, err
	}
	m, err := hw.NewMachine(hwcfg, onFrame)
	if err != nil {
		return nil, err
	}
	roms, err := cfg.ROMs.Load()
	if err != nil {
		return nil, err
	}
	if err := m.LoadROMs(roms); err != nil {
		return nil, err
	}

	if s.Snapshot != "" {
		f, err := os.Open(s.Snapshot)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := m.LoadState(f); err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
	}

	if s.Program != "" {
		f, err := os.Open(s.Program)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := m.TED.LoadProgram(f); err != nil {
			return nil, err
		}
	}

	if s.Script != "" {
		script, err := loadScript(s.Script)
		if err != nil {
			return nil, err
		}
		m.SetCPU(hw.NewScriptCPU(m.TED, script.Writes))
		if len(script.SID) > 0 {
			if err := m.PlaySIDScript(script.SID); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func loadScript(path string) (*hw.Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return hw.DecodeScript(f)
}

// renderMain runs the machine for the requested number of frames. The
// emulation runs on its own goroutine, frames and audio are encoded by two
// others.
func renderMain(args Render, cfg emu.Config) error {
	if args.CPUProfile != "" {
		f, err := os.Create(args.CPUProfile)
		checkf(err, "failed to create cpu profile file")
		checkf(pprof.StartCPUProfile(f), "failed to start cpu profile")
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
			fmt.Println("CPU profile written to", args.CPUProfile)
		}()
	}
	if args.Trace != nil {
		defer args.Trace.Close()
	}

	scale := cfg.Video.Scale
	if args.Scale != 0 {
		scale = args.Scale
	}

	frames := make(chan image.RGBA)
	out := hw.NewOutput(hw.OutputConfig{
		Width:           hw.ScreenWidth,
		Height:          hw.ScreenHeight,
		NumVideoBuffers: 3,
		FrameOutCh:      frames,
	})
	m, err := newMachine(args.Setup, cfg, out.PushFrame)
	if err != nil {
		out.Close()
		return err
	}

	samples := make(chan []int16, 8)
	var g errgroup.Group
	g.Go(func() error {
		defer out.Close()
		defer close(samples)
		for i := range args.Frames {
			s := m.RunFrame()
			samples <- slices.Clone(s)
			if args.Trace != nil {
				fmt.Fprintf(args.Trace, "frame %d: line %d column %d ntsc=%t\n",
					i, m.TED.VideoLine(), m.TED.VideoColumn(), m.TED.IsNTSC())
			}
		}
		log.ModEmu.InfoZ("render done").Int("frames", args.Frames).End()
		return nil
	})
	g.Go(func() error {
		return writeFrames(frames, args.PNG, args.FramesDir, scale, cfg.Video.Smooth)
	})
	g.Go(func() error {
		return writeWAV(samples, args.WAV, int(m.Audio.SampleRate()))
	})
	return g.Wait()
}

// sidplayMain renders the SID writes of a script, plus some frames to let
// the last notes fade out.
func sidplayMain(args SIDPlay, cfg emu.Config) error {
	script, err := loadScript(args.Dump)
	if err != nil {
		return err
	}
	if len(script.SID) == 0 {
		return errors.New("no SID writes in " + args.Dump)
	}

	cfg.Sound.SIDEnabled = true
	if args.Model != "" {
		cfg.Sound.SIDModel = args.Model
	}
	hwcfg, err := cfg.HardwareConfig()
	if err != nil {
		return err
	}
	m, err := hw.NewMachine(hwcfg, nil)
	if err != nil {
		return err
	}
	if err := m.PlaySIDScript(script.SID); err != nil {
		return err
	}
	log.ModSID.InfoZ("playing SID dump").
		Int("writes", len(script.SID)).
		Stringer("model", hwcfg.SID.Model).
		End()

	samples := make(chan []int16, 8)
	var g errgroup.Group
	g.Go(func() error {
		defer close(samples)
		for !m.SIDScriptDone() {
			samples <- slices.Clone(m.RunFrame())
		}
		for range args.Tail {
			samples <- slices.Clone(m.RunFrame())
		}
		return nil
	})
	g.Go(func() error {
		return writeWAV(samples, args.WAV, int(m.Audio.SampleRate()))
	})
	return g.Wait()
}

func snapshotSaveMain(args SnapshotSave, cfg emu.Config) error {
	m, err := newMachine(args.Setup, cfg, nil)
	if err != nil {
		return err
	}
	for range args.Frames {
		m.RunFrame()
	}

	f, err := os.Create(args.Out)
	if err != nil {
		return err
	}
	if err := m.SaveState(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func snapshotInfoMain(args SnapshotInfo, cfg emu.Config) error {
	cfg.Sound.SIDEnabled = true
	hwcfg, err := cfg.HardwareConfig()
	if err != nil {
		return err
	}
	m, err := hw.NewMachine(hwcfg, nil)
	if err != nil {
		return err
	}
	f, err := os.Open(args.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := m.LoadState(f); err != nil {
		return err
	}

	t := m.TED
	fmt.Printf("raster:   line %d, column %d\n", t.VideoLine(), t.VideoColumn())
	fmt.Printf("standard: %s\n", map[bool]string{false: "PAL", true: "NTSC"}[t.IsNTSC()])
	fmt.Printf("RAM:      %dK\n", t.RAMSegments()*16)
	printRegs("TED", 0xFF00, func(i int) uint8 { return t.Register(i) }, 0x20)
	if m.SID != nil {
		st := m.SID.State()
		printRegs("SID", 0xFD40, func(i int) uint8 { return st.Registers[i] }, 0x19)
	}
	return nil
}

func printRegs(name string, base int, reg func(int) uint8, n int) {
	fmt.Printf("%s registers:", name)
	for i := range n {
		if i%8 == 0 {
			fmt.Printf("\n  %04X:", base+i)
		}
		fmt.Printf(" %02X", reg(i))
	}
	fmt.Println()
}

// writeFrames encodes the frames received on ch as PNG files, either every
// frame into dir, or the last one into path. It drains ch even after an
// error.
func writeFrames(ch <-chan image.RGBA, path, dir string, scale int, smooth bool) error {
	var (
		err  error
		last *image.RGBA
		n    int
	)
	if dir != "" {
		err = os.MkdirAll(dir, 0755)
	}
	for img := range ch {
		if err != nil {
			continue
		}
		if dir != "" {
			err = writePNG(filepath.Join(dir, fmt.Sprintf("frame-%04d.png", n)), hw.Scale(&img, scale, smooth))
		}
		if path != "" {
			// the frame buffer is reused once the emulation moves on
			last = hw.Scale(&img, scale, smooth)
			if last == &img {
				last = &image.RGBA{Pix: slices.Clone(img.Pix), Stride: img.Stride, Rect: img.Rect}
			}
		}
		n++
	}
	if err == nil && path != "" && last != nil {
		err = writePNG(path, last)
	}
	return err
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeWAV writes the 16-bit mono samples received on ch into a WAV file at
// path, or discards them if path is empty. It drains ch even after an
// error.
func writeWAV(ch <-chan []int16, path string, sampleRate int) error {
	if path == "" {
		for range ch {
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		for range ch {
		}
		return err
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	nsamples := 0
	for s := range ch {
		if err != nil {
			continue
		}
		buf.Data = buf.Data[:0]
		for _, v := range s {
			buf.Data = append(buf.Data, int(v))
		}
		err = enc.Write(buf)
		nsamples += len(s)
	}
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	log.ModSound.InfoZ("wav written").
		String("path", path).
		Int("samples", nsamples).
		Duration("duration", samplesDuration(nsamples, sampleRate)).
		End()
	return err
}

func samplesDuration(n, sampleRate int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}
