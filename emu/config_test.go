package emu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"plus4/hw"
	"plus4/hw/sid"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.toml", `
[machine]
ram_kb = 256
ntsc = true
ram_pattern = 0x76543210

[roms]
kernal = "/roms/kernal.rom"

[sound]
sid_model = "6581"
volume = 0.5
`)
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultConfig()
	want.Machine.RAMSize = 256
	want.Machine.NTSC = true
	want.Machine.RAMPattern = 0x76543210
	want.ROMs.Kernal = "/roms/kernal.rom"
	want.Sound.SIDModel = "6581"
	want.Sound.Volume = 0.5
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigSyntaxError(t *testing.T) {
	path := writeFile(t, "config.toml", "[machine\nram_kb = 64\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig succeeded")
	}
}

func TestSaveConfig(t *testing.T) {
	want := DefaultConfig()
	want.Video.Scale = 3
	want.Sound.SIDExternalFilter = true

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveConfig(want, path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestHardwareConfig(t *testing.T) {
	cfg := DefaultConfig()
	got, err := cfg.HardwareConfig()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(hw.DefaultConfig, got); diff != "" {
		t.Errorf("default hardware config mismatch (-want +got):\n%s", diff)
	}

	cfg.Sound.SIDModel = "6581"
	got, err = cfg.HardwareConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got.SID.Model != sid.MOS6581 {
		t.Errorf("SID model = %v, want 6581", got.SID.Model)
	}

	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"SID model", func(c *Config) { c.Sound.SIDModel = "8581" }},
		{"volume", func(c *Config) { c.Sound.Volume = 1.5 }},
		{"clock multiplier", func(c *Config) { c.Machine.ClockMultiplier = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(&cfg)
			if _, err := cfg.HardwareConfig(); err == nil {
				t.Error("HardwareConfig succeeded")
			}
		})
	}
}

func TestLoadROMs(t *testing.T) {
	dir := t.TempDir()
	kernal := filepath.Join(dir, "kernal.rom")
	if err := os.WriteFile(kernal, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}

	roms, err := ROMConfig{Kernal: kernal}.Load()
	if err != nil {
		t.Fatal(err)
	}
	for seg, data := range roms {
		switch seg {
		case hw.ROMKernal:
			if diff := cmp.Diff([]byte{1, 2, 3}, data); diff != "" {
				t.Errorf("kernal mismatch (-want +got):\n%s", diff)
			}
		default:
			if data != nil {
				t.Errorf("segment %d loaded, want nil", seg)
			}
		}
	}

	if _, err := (ROMConfig{Basic: filepath.Join(dir, "missing.rom")}).Load(); err == nil {
		t.Error("Load succeeded with a missing file")
	}
}
