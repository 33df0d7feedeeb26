package cdef

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

// ErrMarkerMissing is wrapped by fix-ups whose anchor line is absent.
var ErrMarkerMissing = errors.New("marker not found")

// Fixup is one library specific edit applied after the generic passes.
type Fixup interface {
	Apply(header string, lines []string) ([]string, error)
	String() string
}

// StaleFixupError means a header no longer has the shape a fix-up expects.
type StaleFixupError struct {
	Header string
	Fixup  string
	Err    error
}

func (e *StaleFixupError) Error() string {
	return fmt.Sprintf("%s: fix-up %s is stale: %v", e.Header, e.Fixup, e.Err)
}

func (e *StaleFixupError) Unwrap() error { return e.Err }

func (e *StaleFixupError) DiagCode() diag.Code { return diag.CdefStaleFixup }

func (e *StaleFixupError) DiagLocation() source.Location { return source.Location{Path: e.Header} }

// DropAll removes Count lines starting at every line equal to Marker.
// An absent marker is not an error.
type DropAll struct {
	Marker string
	Count  int
}

func (f DropAll) Apply(_ string, lines []string) ([]string, error) {
	for {
		idx := slices.Index(lines, f.Marker)
		if idx < 0 {
			return lines, nil
		}
		if idx+f.Count > len(lines) {
			return nil, fmt.Errorf("block of %d lines at %q runs past end of header", f.Count, f.Marker)
		}
		lines = slices.Delete(lines, idx, idx+f.Count)
	}
}

func (f DropAll) String() string { return fmt.Sprintf("drop-all(%q, %d)", f.Marker, f.Count) }

// DropBlock removes Count lines starting at the first line equal to Marker and
// puts Insert in their place.
type DropBlock struct {
	Marker string
	Count  int
	Insert []string
}

func (f DropBlock) Apply(_ string, lines []string) ([]string, error) {
	idx := slices.Index(lines, f.Marker)
	if idx < 0 {
		return nil, fmt.Errorf("%q: %w", f.Marker, ErrMarkerMissing)
	}
	if idx+f.Count > len(lines) {
		return nil, fmt.Errorf("block of %d lines at %q runs past end of header", f.Count, f.Marker)
	}
	lines = slices.Delete(lines, idx, idx+f.Count)
	return slices.Insert(lines, idx, f.Insert...), nil
}

func (f DropBlock) String() string {
	if len(f.Insert) == 0 {
		return fmt.Sprintf("drop-block(%q, %d)", f.Marker, f.Count)
	}
	return fmt.Sprintf("drop-block(%q, %d, +%d)", f.Marker, f.Count, len(f.Insert))
}

// RemoveLine removes the first line equal to Text.
type RemoveLine struct {
	Text string
}

func (f RemoveLine) Apply(_ string, lines []string) ([]string, error) {
	idx := slices.Index(lines, f.Text)
	if idx < 0 {
		return nil, fmt.Errorf("%q: %w", f.Text, ErrMarkerMissing)
	}
	return slices.Delete(lines, idx, idx+1), nil
}

func (f RemoveLine) String() string { return fmt.Sprintf("remove-line(%q)", f.Text) }

// ReplaceToken substitutes Old with New on every line. Used to put back the
// expansion of a multi-line macro that StripMacros removed.
type ReplaceToken struct {
	Old string
	New string
}

func (f ReplaceToken) Apply(_ string, lines []string) ([]string, error) {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.ReplaceAll(l, f.Old, f.New)
	}
	return out, nil
}

func (f ReplaceToken) String() string { return fmt.Sprintf("replace-token(%q)", f.Old) }

// GateBlocks resolves gates named Prefix+Name and reduces their #if blocks.
type GateBlocks struct {
	Prefix string
	Names  []string
}

func (f GateBlocks) Apply(header string, lines []string) ([]string, error) {
	gates, rest, err := ResolveGates(header, f.Prefix, f.Names, lines)
	if err != nil {
		return nil, err
	}
	return ReduceGates(f.Prefix, gates, rest), nil
}

func (f GateBlocks) String() string {
	return fmt.Sprintf("gates(%s{%s})", f.Prefix, strings.Join(f.Names, ","))
}

// GenericFixups run on every header, before the library table.
var GenericFixups = []Fixup{
	DropAll{Marker: "#ifdef __cplusplus", Count: 3},
	DropAll{Marker: "#if defined(_WIN32) && !defined(__CYGWIN__) && !defined(TEEM_STATIC)", Count: 9},
}

// Registry maps a header file name to its ordered fix-ups.
type Registry map[string][]Fixup

// Lookup returns the fix-ups for header, or nil.
func (r Registry) Lookup(header string) []Fixup {
	if r == nil {
		return nil
	}
	return r[header]
}

// With returns a copy of r with extra appended per header.
func (r Registry) With(extra Registry) Registry {
	out := make(Registry, len(r)+len(extra))
	for h, fs := range r {
		out[h] = slices.Clone(fs)
	}
	for h, fs := range extra {
		out[h] = append(out[h], fs...)
	}
	return out
}

// echoObjectMatter is the body of the ECHO_OBJECT_MATTER macro.
const echoObjectMatter = "unsigned char matter; echoCol_t rgba[4]; " +
	"echoCol_t mat[ECHO_MATTER_PARM_NUM]; Nrrd *ntext"

// DefaultRegistry returns the fix-ups the Teem headers need.
func DefaultRegistry() Registry {
	return Registry{
		"air.h": {
			DropBlock{
				Marker: "#if defined(_WIN32) && !defined(__CYGWIN__) && !defined(__MINGW32__)",
				Count:  15,
				Insert: []string{
					"typedef unsigned long long airULLong;",
					"typedef signed long long airLLong;",
				},
			},
			DropBlock{Marker: "#if !defined(TEEM_NON_CMAKE)", Count: 3},
			DropBlock{
				Marker: "#if defined(_WIN32) || defined(__ECC) || defined(AIR_EXISTS_MACRO_FAILS) /* NrrdIO-hack-002 */",
				Count:  5,
			},
		},
		"biff.h": {
			DropAll{Marker: "#ifdef __GNUC__", Count: 3},
		},
		"nrrd.h": {
			DropBlock{Marker: "#if 0 /* float == nrrdResample_t; */", Count: 9},
		},
		"alan.h": {
			DropBlock{Marker: "#if 1 /* float == alan_t */", Count: 9, Insert: []string{"typedef float alan_t;"}},
		},
		"bane.h": {
			RemoveLine{Text: "BANE_GKMS_MAP(BANE_GKMS_DECLARE)"},
		},
		"limn.h": {
			RemoveLine{Text: "LIMN_MAP(LIMN_DECLARE)"},
		},
		"echo.h": {
			DropBlock{Marker: "#if 1 /* float == echoPos_t */", Count: 7, Insert: []string{"typedef float echoPos_t;"}},
			DropBlock{Marker: "#if 1 /* float == echoCol_t */", Count: 7, Insert: []string{"typedef float echoCol_t;"}},
			ReplaceToken{Old: "ECHO_OBJECT_MATTER", New: echoObjectMatter},
		},
		"ten.h": {
			RemoveLine{Text: "TEND_MAP(TEND_DECLARE)"},
		},
		"pull.h": {
			GateBlocks{Prefix: "PULL_", Names: []string{"HINTER", "TANCOVAR", "PHIST"}},
		},
		"coil.h": {
			DropBlock{Marker: "#if 1 /* float == coil_t */", Count: 9, Insert: []string{"typedef float coil_t;"}},
		},
		"mite.h": {
			DropBlock{Marker: "#if 0 /* float == mite_t */", Count: 10, Insert: []string{"typedef double mite_t;"}},
		},
		"meet.h": {
			// пары #if/#endif вокруг экспериментальных библиотек
			DropAll{Marker: "#if defined(TEEM_BUILD_EXPERIMENTAL_LIBS)", Count: 1},
			DropAll{Marker: "#endif", Count: 1},
		},
	}
}

// FixupSpec is the declarative form of a fix-up, as read from teemscan.toml.
type FixupSpec struct {
	Header string   `toml:"header"`
	Kind   string   `toml:"kind"`
	Marker string   `toml:"marker"`
	Count  int      `toml:"count"`
	Insert []string `toml:"insert"`
	Old    string   `toml:"old"`
	New    string   `toml:"new"`
	Prefix string   `toml:"prefix"`
	Names  []string `toml:"names"`
}

// Build turns the spec into a Fixup.
func (s FixupSpec) Build() (Fixup, error) {
	switch s.Kind {
	case "drop-all":
		if s.Marker == "" || s.Count <= 0 {
			return nil, fmt.Errorf("fixup for %s: drop-all needs marker and count", s.Header)
		}
		return DropAll{Marker: s.Marker, Count: s.Count}, nil
	case "drop-block":
		if s.Marker == "" || s.Count <= 0 {
			return nil, fmt.Errorf("fixup for %s: drop-block needs marker and count", s.Header)
		}
		return DropBlock{Marker: s.Marker, Count: s.Count, Insert: s.Insert}, nil
	case "remove-line":
		if s.Marker == "" {
			return nil, fmt.Errorf("fixup for %s: remove-line needs marker", s.Header)
		}
		return RemoveLine{Text: s.Marker}, nil
	case "replace-token":
		if s.Old == "" {
			return nil, fmt.Errorf("fixup for %s: replace-token needs old", s.Header)
		}
		return ReplaceToken{Old: s.Old, New: s.New}, nil
	case "gates":
		if s.Prefix == "" || len(s.Names) == 0 {
			return nil, fmt.Errorf("fixup for %s: gates needs prefix and names", s.Header)
		}
		return GateBlocks{Prefix: s.Prefix, Names: s.Names}, nil
	default:
		return nil, fmt.Errorf("fixup for %s: unknown kind %q", s.Header, s.Kind)
	}
}

// RegistryFromSpecs builds a Registry from declarative specs, keeping order.
func RegistryFromSpecs(specs []FixupSpec) (Registry, error) {
	reg := make(Registry)
	for _, s := range specs {
		if s.Header == "" {
			return nil, fmt.Errorf("fixup of kind %q has no header", s.Kind)
		}
		f, err := s.Build()
		if err != nil {
			return nil, err
		}
		reg[s.Header] = append(reg[s.Header], f)
	}
	return reg, nil
}
