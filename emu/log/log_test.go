package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestModuleByName(t *testing.T) {
	for _, name := range []string{"ted", "sid", "mem", "snapshot"} {
		mod, ok := ModuleByName(name)
		if !ok {
			t.Fatalf("module %q not found", name)
		}
		if mod.String() != name {
			t.Errorf("mod.String() = %q, want %q", mod.String(), name)
		}
	}
	if _, ok := ModuleByName("<error>"); ok {
		t.Errorf("placeholder module name should not resolve")
	}
}

func TestDebugMask(t *testing.T) {
	defer DisableDebugModules(ModuleMaskAll)

	if ModTED.DebugZ("x") != nil {
		t.Fatalf("debug entry should be nil when the module is not enabled")
	}
	if ModTED.WarnZ("x") == nil {
		t.Fatalf("warnings should always be enabled")
	}

	EnableDebugModules(ModTED.Mask())
	if ModTED.DebugZ("x") == nil {
		t.Fatalf("debug entry should not be nil once the module is enabled")
	}
	if ModSID.DebugZ("x") != nil {
		t.Fatalf("enabling a module should not enable others")
	}
}

func TestEntryZOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer DisableDebugModules(ModuleMaskAll)

	EnableDebugModules(ModSound.Mask())
	ModSound.DebugZ("sample").
		Hex8("reg", 0x0e).
		Hex16("addr", 0xff0e).
		Int("value", -3).
		Bool("dac", true).
		Raster("pos", 204, 101).
		Error("err", errors.New("boom")).
		End()

	out := buf.String()
	for _, want := range []string{"sample", "reg=0e", "addr=ff0e", "value=-3", "dac=true", "204:101", "err=boom", "_mod=sound"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestNilEntryZ(t *testing.T) {
	var z *EntryZ
	z.String("a", "b").Hex8("c", 1).End()
}
