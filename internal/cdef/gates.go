package cdef

import (
	"fmt"
	"regexp"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

// Gate is a named binary switch resolved from a `#define <PREFIX><NAME> 0|1` line.
type Gate struct {
	Name string
	On   bool
}

// GateError reports a gate that is not defined exactly once in the
// recognised form.
type GateError struct {
	Header string
	Gate   string
	Count  int // найденные определения
}

func (e *GateError) Error() string {
	if e.Count > 1 {
		return fmt.Sprintf("#define %s appears %d times in %s, want exactly one", e.Gate, e.Count, e.Header)
	}
	return fmt.Sprintf("did not see #define %s in expected form in %s", e.Gate, e.Header)
}

func (e *GateError) DiagCode() diag.Code { return diag.CdefGate }

func (e *GateError) DiagLocation() source.Location { return source.Location{Path: e.Header} }

// ResolveGates finds the defining line of every gate and returns the gates
// together with the lines minus those definitions. Each gate must be defined
// exactly once as `#define <PREFIX><NAME> 0` or `... 1`; anything else is a
// *GateError.
func ResolveGates(header, prefix string, names []string, lines []string) ([]Gate, []string, error) {
	gates := make([]Gate, 0, len(names))
	drop := make(map[int]bool, len(names))
	for _, name := range names {
		full := prefix + name
		defRe := regexp.MustCompile(`^#define ` + regexp.QuoteMeta(full) + ` *([01])$`)
		found, count := -1, 0
		on := false
		for i, line := range lines {
			m := defRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			count++
			found, on = i, m[1] == "1"
		}
		if count != 1 {
			return nil, nil, &GateError{Header: header, Gate: full, Count: count}
		}
		drop[found] = true
		gates = append(gates, Gate{Name: name, On: on})
	}
	rest := make([]string, 0, len(lines)-len(drop))
	for i, line := range lines {
		if !drop[i] {
			rest = append(rest, line)
		}
	}
	return gates, rest, nil
}

// ReduceGates keeps or drops the lines between `#if <PREFIX><NAME>` and the
// next `#endif` according to the gate value. The delimiter lines survive as
// comments. Pairs do not nest.
func ReduceGates(prefix string, gates []Gate, lines []string) []string {
	open := make(map[string]bool, len(gates))
	for _, g := range gates {
		open["#if "+prefix+g.Name] = g.On
	}
	out := make([]string, 0, len(lines))
	copying := true
	for _, line := range lines {
		if on, ok := open[line]; ok {
			copying = on
			out = append(out, "/* "+line+" */")
			continue
		}
		if line == "#endif" {
			copying = true
			out = append(out, "/* "+line+" */")
			continue
		}
		if copying {
			out = append(out, line)
		}
	}
	return out
}
