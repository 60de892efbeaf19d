package emu

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"plus4/emu/log"
	"plus4/hw"
	"plus4/hw/sid"
)

type Config struct {
	Machine MachineConfig `toml:"machine"`
	ROMs    ROMConfig     `toml:"roms"`
	Sound   SoundConfig   `toml:"sound"`
	Video   VideoConfig   `toml:"video"`
}

type MachineConfig struct {
	RAMSize         int    `toml:"ram_kb"`
	NTSC            bool   `toml:"ntsc"`
	ClockMultiplier int    `toml:"cpu_clock_multiplier"`
	RAMPattern      uint64 `toml:"ram_pattern"`
}

// ROMConfig holds the paths of the ROM images, empty paths leave the
// corresponding segment empty.
type ROMConfig struct {
	Basic      string `toml:"basic"`
	Kernal     string `toml:"kernal"`
	FunctionLo string `toml:"function_lo"`
	FunctionHi string `toml:"function_hi"`
	Cart1Lo    string `toml:"cart1_lo"`
	Cart1Hi    string `toml:"cart1_hi"`
	Cart2Lo    string `toml:"cart2_lo"`
	Cart2Hi    string `toml:"cart2_hi"`
}

type SoundConfig struct {
	SampleRate        uint32  `toml:"sample_rate"`
	Volume            float64 `toml:"volume"`
	SIDEnabled        bool    `toml:"sid_enabled"`
	SIDModel          string  `toml:"sid_model"`
	SIDFilter         bool    `toml:"sid_filter"`
	SIDExternalFilter bool    `toml:"sid_external_filter"`
}

type VideoConfig struct {
	Scale  int  `toml:"scale"`
	Smooth bool `toml:"smooth"`
}

// DefaultConfig returns the configuration used for keys absent from the
// configuration file.
func DefaultConfig() Config {
	def := hw.DefaultConfig
	return Config{
		Machine: MachineConfig{
			RAMSize:         def.RAMSize,
			ClockMultiplier: def.ClockMultiplier,
			RAMPattern:      def.RAMPattern,
		},
		Sound: SoundConfig{
			SampleRate: def.SampleRate,
			Volume:     def.Volume,
			SIDEnabled: def.SID.Enabled,
			SIDModel:   def.SID.Model.String(),
			SIDFilter:  def.SID.Filter,
		},
		Video: VideoConfig{Scale: 2},
	}
}

var ConfigDir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("plus4")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

// LoadConfig loads the configuration from path, or from the plus4 config
// directory if path is empty. A missing file yields the default
// configuration.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = filepath.Join(ConfigDir(), cfgFilename)
	}
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		log.ModEmu.DebugZ("no config file, using defaults").String("path", path).End()
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.ModEmu.WarnZ("unknown config key").String("key", key.String()).String("path", path).End()
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, or into the plus4 config directory if path
// is empty.
func SaveConfig(cfg Config, path string) error {
	if path == "" {
		path = filepath.Join(ConfigDir(), cfgFilename)
	}
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, buf, 0644)
}

// HardwareConfig converts the configuration into the machine settings.
func (cfg Config) HardwareConfig() (hw.Config, error) {
	var model sid.ChipModel
	switch cfg.Sound.SIDModel {
	case "6581":
		model = sid.MOS6581
	case "8580", "":
		model = sid.MOS8580
	default:
		return hw.Config{}, fmt.Errorf("invalid SID model %q (want 6581 or 8580)", cfg.Sound.SIDModel)
	}
	if cfg.Sound.Volume < 0 || cfg.Sound.Volume > 1 {
		return hw.Config{}, fmt.Errorf("invalid volume %v (want 0-1)", cfg.Sound.Volume)
	}
	if m := cfg.Machine.ClockMultiplier; m < 1 || m > 100 {
		return hw.Config{}, fmt.Errorf("invalid CPU clock multiplier %d (want 1-100)", m)
	}

	return hw.Config{
		RAMSize:         cfg.Machine.RAMSize,
		RAMPattern:      cfg.Machine.RAMPattern,
		NTSC:            cfg.Machine.NTSC,
		ClockMultiplier: cfg.Machine.ClockMultiplier,
		SID: hw.SIDConfig{
			Enabled:        cfg.Sound.SIDEnabled,
			Model:          model,
			Filter:         cfg.Sound.SIDFilter,
			ExternalFilter: cfg.Sound.SIDExternalFilter,
		},
		SampleRate: cfg.Sound.SampleRate,
		Volume:     cfg.Sound.Volume,
	}, nil
}

// Load reads the ROM images, indexed by segment number.
func (rc ROMConfig) Load() ([8][]byte, error) {
	var roms [8][]byte
	paths := [8]string{
		hw.ROMBasic:      rc.Basic,
		hw.ROMKernal:     rc.Kernal,
		hw.ROMFunctionLo: rc.FunctionLo,
		hw.ROMFunctionHi: rc.FunctionHi,
		hw.ROMCart1Lo:    rc.Cart1Lo,
		hw.ROMCart1Hi:    rc.Cart1Hi,
		hw.ROMCart2Lo:    rc.Cart2Lo,
		hw.ROMCart2Hi:    rc.Cart2Hi,
	}
	for seg, path := range paths {
		if path == "" {
			continue
		}
		buf, err := os.ReadFile(path)
		if err != nil {
			return roms, fmt.Errorf("ROM: %w", err)
		}
		roms[seg] = buf
	}
	return roms, nil
}
