// Package consistency reconciles the symbols defined in a library archive
// with the declarations in its headers and queues functions for the biff scan.
package consistency

import (
	"fmt"
	"regexp"
	"slices"

	"go.uber.org/zap"

	"teemscan/internal/decls"
	"teemscan/internal/diag"
	"teemscan/internal/source"
	"teemscan/internal/symtab"
)

// Exception names undeclared symbols of a library that are fine.
type Exception struct {
	Lib     string `toml:"lib"`
	Pattern string `toml:"pattern"` // anchored at the start of the symbol name
}

// DefaultExceptions are declared through macros in private headers, or only used by demos.
var DefaultExceptions = []Exception{
	{Lib: "unrrdu", Pattern: `unrrdu_\w+Cmd`},
	{Lib: "ten", Pattern: `tend_\w+Cmd`},
	{Lib: "bane", Pattern: `baneGkms_\w+Cmd`},
	{Lib: "limn", Pattern: `limnPu_\w+Cmd`},
	{Lib: "ten", Pattern: `_tenQGL_`},
}

// DefaultBiffExempt are libraries below biff that cannot use it.
var DefaultBiffExempt = []string{"air", "biff", "hest"}

// QueueItem is a function to scan for biff usage.
type QueueItem struct {
	Func       string
	File       string // <member>.c
	Visibility decls.Visibility
}

// Options configure Check.
type Options struct {
	Lib        string
	Biff       bool // queue functions for the biff scan
	BiffExempt []string
	Exceptions []Exception
	Reporter   diag.Reporter
	Logger     *zap.Logger
}

// Result of a check.
type Result struct {
	Queue []QueueItem
}

// LocalDeclaredError: a static function appears in a header.
type LocalDeclaredError struct {
	Lib  string
	Name string
	Decl source.Location
}

func (e *LocalDeclaredError) Error() string {
	return fmt.Sprintf("static function %s is declared in a %s header (%s)", e.Name, e.Lib, e.Decl)
}

func (e *LocalDeclaredError) DiagCode() diag.Code { return diag.ConLocalDeclared }

func (e *LocalDeclaredError) DiagLocation() source.Location { return e.Decl }

// Check walks the symbols in dump order, then the declarations in header
// order. Findings go to opts.Reporter; only a declared static function aborts.
func Check(syms *symtab.Table, ds *decls.Set, opts Options) (Result, error) {
	rep := opts.Reporter
	if rep == nil {
		rep = diag.NopReporter{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	exempt := opts.BiffExempt
	if exempt == nil {
		exempt = DefaultBiffExempt
	}
	exc, err := compileExceptions(opts.Lib, opts.Exceptions)
	if err != nil {
		return Result{}, err
	}
	archive := "lib" + opts.Lib + ".a"

	var res Result
	for _, sym := range syms.Symbols() {
		loc := source.Location{Path: archive}
		if sym.File != "" {
			loc = source.Location{Path: sym.File}
		}
		d, declared := ds.Lookup(sym.Name)

		if sym.Kind == symtab.DataExternal {
			diag.ReportInfo(rep, diag.SymGlobalData, loc,
				fmt.Sprintf("%s lib has global variable %s", opts.Lib, sym.Name)).Emit()
		}
		if sym.Kind == symtab.FuncLocal && declared {
			return res, &LocalDeclaredError{Lib: opts.Lib, Name: sym.Name, Decl: d.Loc}
		}
		if opts.Biff && sym.Kind.IsFunc() && !slices.Contains(exempt, opts.Lib) {
			vis := decls.Static
			if declared {
				vis = d.Visibility
			}
			res.Queue = append(res.Queue, QueueItem{Func: sym.Name, File: sym.File, Visibility: vis})
		}

		if declared {
			if d.Kind == sym.Kind || (sym.Kind == symtab.DataConst && d.Kind == symtab.DataExternal) {
				log.Debug("agree", zap.String("symbol", sym.Name))
				continue
			}
			diag.ReportWarning(rep, diag.ConKindMismatch, d.Loc,
				fmt.Sprintf("decl/defn disagree on type of %s (nm %s vs .h %s)", sym.Name, sym.Kind, d.Kind)).
				WithNote(loc, "defined here").
				Emit()
			continue
		}
		if sym.Kind == symtab.FuncLocal || matchesAny(exc, sym.Name) {
			continue
		}
		diag.ReportWarning(rep, diag.ConUndeclared, loc,
			fmt.Sprintf("lib%s %s symbol %s not declared", opts.Lib, sym.Kind, sym.Name)).Emit()
	}

	for _, d := range ds.Decls() {
		if _, ok := syms.Lookup(d.Name); !ok {
			diag.ReportWarning(rep, diag.ConUndefined, d.Loc,
				fmt.Sprintf("some %s .h declares %s but not defined in lib", opts.Lib, d.Name)).Emit()
		}
	}
	return res, nil
}

func compileExceptions(lib string, list []Exception) ([]*regexp.Regexp, error) {
	if list == nil {
		list = DefaultExceptions
	}
	var out []*regexp.Regexp
	for _, e := range list {
		if e.Lib != lib {
			continue
		}
		re, err := regexp.Compile(`^(?:` + e.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("exception %q for %s: %w", e.Pattern, e.Lib, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchesAny(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
