// Package config loads teemscan.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"teemscan/internal/cdef"
	"teemscan/internal/consistency"
	"teemscan/internal/symtab"
)

// FileName is the config file searched for by Find.
const FileName = "teemscan.toml"

// ArchEnv names the environment variable used when [teem].arch is unset.
const ArchEnv = "TEEM_ARCH"

// DefaultLibraries lists the Teem libraries in dependency order.
var DefaultLibraries = []string{
	"air", "hest", "biff", "nrrd", "ell", "moss", "unrrdu", "alan", "tijk", "gage", "dye",
	"bane", "limn", "echo", "hoover", "seek", "ten", "elf", "pull", "coil", "push", "mite", "meet",
}

// Config is the decoded teemscan.toml merged over defaults.
type Config struct {
	// Path is the file the config was read from, "" for built-in defaults.
	Path string `toml:"-"`
	Root string `toml:"-"`

	Teem      TeemConfig          `toml:"teem"`
	Scan      ScanConfig          `toml:"scan"`
	Toolchain ToolchainConfig     `toml:"toolchain"`
	Cdef      CdefConfig          `toml:"cdef"`
	Headers   map[string][]string `toml:"headers"`
	Fixups    []cdef.FixupSpec    `toml:"fixup"`
}

type TeemConfig struct {
	Path    string `toml:"path"`
	Arch    string `toml:"arch"`
	Install string `toml:"install"` // по умолчанию arch/<arch>
}

type ScanConfig struct {
	Libraries      []string                `toml:"libraries"`
	BiffExempt     []string                `toml:"biff_exempt"`
	VoidExceptions []string                `toml:"void_exceptions"`
	DropUnderscore bool                    `toml:"drop_underscore"`
	Jobs           int                     `toml:"jobs"`
	ExtraTypes     []string                `toml:"extra_types"`
	Aliases        map[string][]string     `toml:"aliases"`
	Exceptions     []consistency.Exception `toml:"exception"`
}

type ToolchainConfig struct {
	Make string `toml:"make"`
	Nm   string `toml:"nm"`
}

type CdefConfig struct {
	Out   string   `toml:"out"`
	Gates []string `toml:"gates"` // имена PULL_* для pull.h
}

// Default returns the configuration that reproduces the stock Teem behaviour.
func Default() *Config {
	return &Config{
		Teem: TeemConfig{Path: "."},
		Scan: ScanConfig{
			Libraries:      slices.Clone(DefaultLibraries),
			BiffExempt:     slices.Clone(consistency.DefaultBiffExempt),
			DropUnderscore: symtab.DropUnderscoreDefault(),
			Jobs:           max(1, runtime.NumCPU()/2),
			Aliases:        cloneAliases(symtab.DefaultAliases),
			Exceptions:     slices.Clone(consistency.DefaultExceptions),
		},
		Toolchain: ToolchainConfig{Make: "make", Nm: "nm"},
		Cdef:      CdefConfig{Out: "cdef", Gates: []string{"HINTER", "TANCOVAR", "PHIST"}},
		Headers: map[string][]string{
			"nrrd": {"nrrdDefines.h", "nrrdEnums.h", "nrrd.h"},
			"ten":  {"tenMacros.h", "ten.h"},
		},
	}
}

// Find walks up from startDir to locate teemscan.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Resolve loads explicit when set, otherwise the nearest teemscan.toml above
// startDir, otherwise the defaults. The environment is applied last.
func Resolve(startDir, explicit string) (*Config, error) {
	path := explicit
	if path == "" {
		found, ok, err := Find(startDir)
		if err != nil {
			return nil, err
		}
		if !ok {
			cfg := Default()
			if err := cfg.finish(startDir); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		path = found
	}
	return Load(path)
}

// Load decodes path and merges the keys it defines over the defaults.
func Load(path string) (*Config, error) {
	var file Config
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("scan", "jobs") && file.Scan.Jobs < 1 {
		return nil, fmt.Errorf("%s: [scan].jobs must be positive", path)
	}
	if meta.IsDefined("teem", "path") && strings.TrimSpace(file.Teem.Path) == "" {
		return nil, fmt.Errorf("%s: empty [teem].path", path)
	}
	if meta.IsDefined("scan", "libraries") && len(file.Scan.Libraries) == 0 {
		return nil, fmt.Errorf("%s: empty [scan].libraries", path)
	}
	for i, e := range file.Scan.Exceptions {
		if e.Lib == "" || e.Pattern == "" {
			return nil, fmt.Errorf("%s: [[scan.exception]] #%d needs lib and pattern", path, i+1)
		}
	}

	cfg := Default()
	cfg.merge(&file, meta)
	cfg.Path = path
	if err := cfg.finish(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) merge(f *Config, meta toml.MetaData) {
	if meta.IsDefined("teem", "path") {
		c.Teem.Path = f.Teem.Path
	}
	if meta.IsDefined("teem", "arch") {
		c.Teem.Arch = f.Teem.Arch
	}
	if meta.IsDefined("teem", "install") {
		c.Teem.Install = f.Teem.Install
	}

	if meta.IsDefined("scan", "libraries") {
		c.Scan.Libraries = f.Scan.Libraries
	}
	if meta.IsDefined("scan", "biff_exempt") {
		c.Scan.BiffExempt = f.Scan.BiffExempt
	}
	if meta.IsDefined("scan", "void_exceptions") {
		c.Scan.VoidExceptions = f.Scan.VoidExceptions
	}
	if meta.IsDefined("scan", "drop_underscore") {
		c.Scan.DropUnderscore = f.Scan.DropUnderscore
	}
	if meta.IsDefined("scan", "jobs") {
		c.Scan.Jobs = f.Scan.Jobs
	}
	c.Scan.ExtraTypes = append(c.Scan.ExtraTypes, f.Scan.ExtraTypes...)
	// алиасы дополняют встроенные, исключения заменяют
	for lib, names := range f.Scan.Aliases {
		c.Scan.Aliases[lib] = names
	}
	if meta.IsDefined("scan", "exception") {
		c.Scan.Exceptions = f.Scan.Exceptions
	}

	if meta.IsDefined("toolchain", "make") {
		c.Toolchain.Make = f.Toolchain.Make
	}
	if meta.IsDefined("toolchain", "nm") {
		c.Toolchain.Nm = f.Toolchain.Nm
	}
	if meta.IsDefined("cdef", "out") {
		c.Cdef.Out = f.Cdef.Out
	}
	if meta.IsDefined("cdef", "gates") {
		c.Cdef.Gates = f.Cdef.Gates
	}
	for lib, hdrs := range f.Headers {
		c.Headers[lib] = hdrs
	}
	c.Fixups = append(c.Fixups, f.Fixups...)
}

// finish resolves relative paths against root and applies TEEM_ARCH.
func (c *Config) finish(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	c.Root = abs
	c.Teem.Path = c.abs(c.Teem.Path)
	if c.Teem.Arch == "" {
		c.Teem.Arch = os.Getenv(ArchEnv)
	}
	if c.Teem.Install != "" {
		c.Teem.Install = c.abs(c.Teem.Install)
	}
	c.Cdef.Out = c.abs(c.Cdef.Out)
	return nil
}

func (c *Config) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// ErrNoArch is returned when neither [teem].arch nor TEEM_ARCH is set.
var ErrNoArch = errors.New("environment variable " + ArchEnv + " not set")

// ArchDir is <teem>/arch/<arch>.
func (c *Config) ArchDir() (string, error) {
	if c.Teem.Arch == "" {
		return "", ErrNoArch
	}
	return filepath.Join(c.Teem.Path, "arch", c.Teem.Arch), nil
}

// InstallDir is where "make install" puts headers and archives.
func (c *Config) InstallDir() (string, error) {
	if c.Teem.Install != "" {
		return c.Teem.Install, nil
	}
	return c.ArchDir()
}

// HeaderDir holds installed headers (<install>/include/teem).
func (c *Config) HeaderDir() (string, error) {
	dir, err := c.InstallDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "include", "teem"), nil
}

// Archive is the static library of lib.
func (c *Config) Archive(lib string) (string, error) {
	dir, err := c.InstallDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lib", "lib"+lib+".a"), nil
}

// LibDir is the source directory of lib.
func (c *Config) LibDir(lib string) string {
	return filepath.Join(c.Teem.Path, "src", lib)
}

// CheckLayout verifies that the Teem checkout has the expected shape for lib.
func (c *Config) CheckLayout(lib string) error {
	for _, sub := range []string{"arch", "src"} {
		if !isDir(filepath.Join(c.Teem.Path, sub)) {
			return fmt.Errorf("need %s to be dir with \"arch\" and \"src\" subdirs", c.Teem.Path)
		}
	}
	if !isDir(c.LibDir(lib)) {
		return fmt.Errorf("do not see library %q subdir in \"src\" subdir", lib)
	}
	arch, err := c.ArchDir()
	if err != nil {
		return err
	}
	if !isDir(arch) {
		return fmt.Errorf("do not see %q subdir for %s %q", arch, ArchEnv, c.Teem.Arch)
	}
	return nil
}

// HeadersFor lists the installed headers of lib, defaulting to <lib>.h.
func (c *Config) HeadersFor(lib string) []string {
	if h, ok := c.Headers[lib]; ok && len(h) > 0 {
		return h
	}
	return []string{lib + ".h"}
}

// Registry is the default fix-up registry with the configured gates and
// [[fixup]] entries appended.
func (c *Config) Registry() (cdef.Registry, error) {
	reg := cdef.DefaultRegistry()
	if len(c.Cdef.Gates) > 0 {
		reg["pull.h"] = []cdef.Fixup{cdef.GateBlocks{Prefix: "PULL_", Names: c.Cdef.Gates}}
	}
	extra, err := cdef.RegistryFromSpecs(c.Fixups)
	if err != nil {
		return nil, err
	}
	return reg.With(extra), nil
}

// KnownLibrary reports whether lib is one of the configured libraries.
func (c *Config) KnownLibrary(lib string) bool {
	return slices.Contains(c.Scan.Libraries, lib)
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}

func cloneAliases(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}
