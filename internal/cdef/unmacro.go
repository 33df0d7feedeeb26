package cdef

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

// ErrUnterminatedMacro is wrapped by MacroError.
var ErrUnterminatedMacro = errors.New("unterminated multi-line macro")

// MacroError reports input that ends inside a continued #define.
type MacroError struct {
	Header string
	Line   int // 1-based line of the opening #define
	Text   string
}

func (e *MacroError) Error() string {
	return fmt.Sprintf("%s:%d: %v: |%s|", e.Header, e.Line, ErrUnterminatedMacro, e.Text)
}

func (e *MacroError) Unwrap() error { return ErrUnterminatedMacro }

func (e *MacroError) DiagCode() diag.Code { return diag.CdefUnterminated }

func (e *MacroError) DiagLocation() source.Location {
	return source.At(e.Header, e.Line)
}

var macroContinuedRe = regexp.MustCompile(`^#define +.*\\$`)

type macroState uint8

const (
	macroCopying macroState = iota
	macroSkipping
)

// StripMacros removes every multi-line #define: the opening line, all continued
// lines, and the first line that is not continued.
func StripMacros(lines []string) ([]string, error) {
	out := make([]string, 0, len(lines))
	state := macroCopying
	start := -1
	for i, line := range lines {
		switch state {
		case macroCopying:
			if macroContinuedRe.MatchString(line) {
				state = macroSkipping
				start = i
				continue
			}
			out = append(out, line)
		case macroSkipping:
			if !strings.HasSuffix(line, `\`) {
				// последняя строка макроса тоже выкидывается
				state = macroCopying
			}
		}
	}
	if state == macroSkipping {
		return nil, &MacroError{Line: start + 1, Text: lines[start]}
	}
	return out, nil
}
