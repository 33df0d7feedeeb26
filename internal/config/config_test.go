package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"teemscan/internal/cdef"
	"teemscan/internal/consistency"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "[teem]\npath = \"teem\"\n")
	deep := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	path, ok, err := Find(deep)
	if err != nil || !ok {
		t.Fatalf("Find = (%q, %v, %v)", path, ok, err)
	}
	if path != filepath.Join(root, FileName) {
		t.Errorf("path = %q", path)
	}
}

func TestResolveWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv(ArchEnv, "linux.amd64")
	dir := t.TempDir()
	cfg, err := Resolve(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
	if cfg.Teem.Path != dir || cfg.Teem.Arch != "linux.amd64" {
		t.Errorf("teem = %+v", cfg.Teem)
	}
	if diff := cmp.Diff(DefaultLibraries, cfg.Scan.Libraries); diff != "" {
		t.Errorf("libraries (-want +got):\n%s", diff)
	}
	if cfg.Toolchain.Make != "make" || cfg.Toolchain.Nm != "nm" {
		t.Errorf("toolchain = %+v", cfg.Toolchain)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(ArchEnv, "ignored")
	root := t.TempDir()
	path := filepath.Join(root, FileName)
	writeFile(t, path, `
[teem]
path = "teem"
arch = "darwin.64"

[scan]
libraries = ["nrrd", "gage"]
drop_underscore = false
jobs = 3
extra_types = ["gageFoo"]

[scan.aliases]
gage = ["gg"]

[[scan.exception]]
lib = "gage"
pattern = "_gageHidden"

[toolchain]
make = "gmake"

[cdef]
out = "out/cdef"
gates = ["HINTER"]

[headers]
nrrd = ["nrrdDefines.h", "nrrdEnums.h", "nrrd.h"]

[[fixup]]
header = "gage.h"
kind = "remove-line"
marker = "GAGE_MAP(GAGE_DECLARE)"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Teem.Path != filepath.Join(root, "teem") || cfg.Teem.Arch != "darwin.64" {
		t.Errorf("teem = %+v", cfg.Teem)
	}
	if cfg.Scan.DropUnderscore || cfg.Scan.Jobs != 3 {
		t.Errorf("scan = %+v", cfg.Scan)
	}
	if diff := cmp.Diff([]consistency.Exception{{Lib: "gage", Pattern: "_gageHidden"}}, cfg.Scan.Exceptions); diff != "" {
		t.Errorf("exceptions (-want +got):\n%s", diff)
	}
	if got := cfg.Scan.Aliases["ten"]; len(got) != 1 || got[0] != "tend" {
		t.Errorf("default alias lost: %v", cfg.Scan.Aliases)
	}
	if got := cfg.Scan.Aliases["gage"]; len(got) != 1 || got[0] != "gg" {
		t.Errorf("aliases = %v", cfg.Scan.Aliases)
	}
	if cfg.Toolchain.Make != "gmake" || cfg.Toolchain.Nm != "nm" {
		t.Errorf("toolchain = %+v", cfg.Toolchain)
	}
	if cfg.Cdef.Out != filepath.Join(root, "out", "cdef") {
		t.Errorf("cdef out = %q", cfg.Cdef.Out)
	}
	if diff := cmp.Diff([]string{"nrrdDefines.h", "nrrdEnums.h", "nrrd.h"}, cfg.HeadersFor("nrrd")); diff != "" {
		t.Errorf("headers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"gage.h"}, cfg.HeadersFor("gage")); diff != "" {
		t.Errorf("default headers (-want +got):\n%s", diff)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatal(err)
	}
	if got := reg.Lookup("gage.h"); len(got) != 1 {
		t.Errorf("gage.h fixups = %v", got)
	}
	pull := reg.Lookup("pull.h")
	if len(pull) != 1 {
		t.Fatalf("pull.h fixups = %v", pull)
	}
	if g, ok := pull[0].(cdef.GateBlocks); !ok || len(g.Names) != 1 || g.Names[0] != "HINTER" {
		t.Errorf("pull.h gates = %#v", pull[0])
	}

	archive, err := cfg.Archive("nrrd")
	if err != nil {
		t.Fatal(err)
	}
	if archive != filepath.Join(root, "teem", "arch", "darwin.64", "lib", "libnrrd.a") {
		t.Errorf("archive = %q", archive)
	}
	hdr, err := cfg.HeaderDir()
	if err != nil {
		t.Fatal(err)
	}
	if hdr != filepath.Join(root, "teem", "arch", "darwin.64", "include", "teem") {
		t.Errorf("header dir = %q", hdr)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[teem\n", "failed to parse TOML"},
		{"unknown key", "[scan]\nlibs = [\"nrrd\"]\n", "unknown keys: scan.libs"},
		{"jobs", "[scan]\njobs = 0\n", "[scan].jobs must be positive"},
		{"empty path", "[teem]\npath = \" \"\n", "empty [teem].path"},
		{"empty libraries", "[scan]\nlibraries = []\n", "empty [scan].libraries"},
		{"exception", "[[scan.exception]]\nlib = \"ten\"\n", "needs lib and pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			writeFile(t, path, tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBadFixupSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "[[fixup]]\nheader = \"x.h\"\nkind = \"explode\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Registry(); err == nil {
		t.Error("expected registry error")
	}
}

func TestArchMissing(t *testing.T) {
	t.Setenv(ArchEnv, "")
	cfg, err := Resolve(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.ArchDir(); !errors.Is(err, ErrNoArch) {
		t.Errorf("ArchDir error = %v", err)
	}
	if _, err := cfg.Archive("nrrd"); !errors.Is(err, ErrNoArch) {
		t.Errorf("Archive error = %v", err)
	}
}

func TestCheckLayout(t *testing.T) {
	t.Setenv(ArchEnv, "linux.amd64")
	root := t.TempDir()
	for _, d := range []string{"src/nrrd", "arch/linux.amd64"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	cfg, err := Resolve(root, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.CheckLayout("nrrd"); err != nil {
		t.Errorf("CheckLayout(nrrd) = %v", err)
	}
	if err := cfg.CheckLayout("gage"); err == nil {
		t.Error("expected missing library error")
	}
	cfg.Teem.Arch = "other"
	if err := cfg.CheckLayout("nrrd"); err == nil {
		t.Error("expected missing arch error")
	}
}

func TestDefaultHeaders(t *testing.T) {
	cfg := Default()
	if diff := cmp.Diff([]string{"tenMacros.h", "ten.h"}, cfg.HeadersFor("ten")); diff != "" {
		t.Errorf("ten headers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"air.h"}, cfg.HeadersFor("air")); diff != "" {
		t.Errorf("air headers (-want +got):\n%s", diff)
	}
}
