package decls

import (
	"fmt"

	"teemscan/internal/diag"
	"teemscan/internal/source"
	"teemscan/internal/symtab"
)

// Visibility says where a function is declared.
type Visibility uint8

const (
	Public  Visibility = iota + 1 // <lib>.h
	Private                       // private<Lib>.h
	Static                        // nowhere, defined static
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Private:
		return "private"
	case Static:
		return "static"
	default:
		return "unknown"
	}
}

func (v Visibility) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Visibility) UnmarshalText(b []byte) error {
	switch string(b) {
	case "public":
		*v = Public
	case "private":
		*v = Private
	case "static":
		*v = Static
	default:
		return fmt.Errorf("decls: bad visibility %q", b)
	}
	return nil
}

// Decl is a declaration expected to have a definition in the library.
type Decl struct {
	Name       string          `json:"name" yaml:"name" msgpack:"name"`
	Kind       symtab.Kind     `json:"kind" yaml:"kind" msgpack:"kind"` // FuncExternal or DataExternal
	Visibility Visibility      `json:"visibility" yaml:"visibility" msgpack:"visibility"`
	Loc        source.Location `json:"location" yaml:"location" msgpack:"location"`
}

// Set holds declarations by name, in header order.
type Set struct {
	byName map[string]Decl
	order  []string
}

func NewSet() *Set {
	return &Set{byName: make(map[string]Decl)}
}

// Add records d; a redeclaration keeps the first position and the latest value.
func (s *Set) Add(d Decl) {
	if _, ok := s.byName[d.Name]; !ok {
		s.order = append(s.order, d.Name)
	}
	s.byName[d.Name] = d
}

func (s *Set) Lookup(name string) (Decl, bool) {
	d, ok := s.byName[name]
	return d, ok
}

func (s *Set) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

func (s *Set) Len() int { return len(s.order) }

// Decls returns declarations in header order.
func (s *Set) Decls() []Decl {
	out := make([]Decl, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byName[n])
	}
	return out
}

// ParseError reports a declaration line that could not be reduced to a name.
type ParseError struct {
	Code    diag.Code
	Header  string
	Line    int // 1-based
	Text    string
	Reduced string
}

func (e *ParseError) Error() string {
	if e.Code == diag.DeclKernelShape {
		return fmt.Sprintf("%s:%d: kernel def |%s| of unexpected form", e.Header, e.Line, e.Text)
	}
	return fmt.Sprintf("%s:%d: confused about |%s| from |%s|", e.Header, e.Line, e.Reduced, e.Text)
}

func (e *ParseError) DiagCode() diag.Code { return e.Code }

func (e *ParseError) DiagLocation() source.Location { return source.At(e.Header, e.Line) }
