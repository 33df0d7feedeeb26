package symtab

import (
	"fmt"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

// ParseError aborts parsing of a symbol dump. Text is the dump line verbatim.
type ParseError struct {
	Code   diag.Code
	Dump   string // имя дампа, например "nm libnrrd.a"
	Line   int    // 1-based line in the dump
	File   string // archive member, "" when unknown
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	where := e.File
	if where == "" {
		where = "unknown member"
	}
	return fmt.Sprintf("%s:%d: %s: |%s| in %s", e.Dump, e.Line, e.Reason, e.Text, where)
}

func (e *ParseError) DiagCode() diag.Code { return e.Code }

func (e *ParseError) DiagLocation() source.Location { return source.At(e.Dump, e.Line) }
