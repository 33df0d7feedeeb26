package symtab

import (
	"fmt"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

var (
	// "libnrrd.a(read.o):" (BSD nm) или "read.o:" (GNU nm)
	memberBSDRe = regexp.MustCompile(`^[^()]+\(([^)]+)\.o\):$`)
	memberGNURe = regexp.MustCompile(`^(\S+)\.o:$`)
	undefRe     = regexp.MustCompile(`^ + U `)
	ignoredRe   = regexp.MustCompile(`^[0-9a-fA-F]+ [ds] `)
	definedRe   = regexp.MustCompile(`^[0-9a-fA-F]+ ([tTDS]) (.*)$`)
	libTagRe    = regexp.MustCompile(`^([a-z]+)[_A-Z0-9]`)
)

// DefaultAliases are library name tags accepted besides the library itself.
var DefaultAliases = map[string][]string{
	"ten": {"tend"},
}

// DropUnderscoreDefault reports whether the platform nm prefixes C names with '_'.
func DropUnderscoreDefault() bool {
	return runtime.GOOS == "darwin"
}

// Options control Parse.
type Options struct {
	Lib            string
	Dump           string // name used in locations, defaults to "nm lib<Lib>.a"
	DropUnderscore bool
	Aliases        map[string][]string
	Reporter       diag.Reporter
}

// Parse reads nm output for the archive of opts.Lib. The first line is
// skipped. Curious lines become SymCurious warnings; naming violations abort
// with *ParseError.
func Parse(text string, opts Options) (*Table, error) {
	p := parser{opts: opts, table: NewTable()}
	if p.opts.Dump == "" {
		p.opts.Dump = "nm lib" + opts.Lib + ".a"
	}
	if p.opts.Aliases == nil {
		p.opts.Aliases = DefaultAliases
	}
	lines := source.SplitText(text)
	for i, line := range lines {
		if i == 0 {
			continue
		}
		if err := p.line(i+1, line); err != nil {
			return nil, err
		}
	}
	return p.table, nil
}

type parser struct {
	opts    Options
	table   *Table
	curFile string
}

func (p *parser) fail(code diag.Code, lineNo int, text, reason string) error {
	return &ParseError{Code: code, Dump: p.opts.Dump, Line: lineNo, File: p.curFile, Text: text, Reason: reason}
}

func (p *parser) line(lineNo int, line string) error {
	if m := memberBSDRe.FindStringSubmatch(line); m != nil {
		p.curFile = m[1] + ".c"
		return nil
	}
	if m := memberGNURe.FindStringSubmatch(line); m != nil {
		p.curFile = m[1] + ".c"
		return nil
	}
	if line == "" {
		p.curFile = ""
		return nil
	}
	if undefRe.MatchString(line) || ignoredRe.MatchString(line) {
		return nil
	}
	m := definedRe.FindStringSubmatch(line)
	if m == nil {
		if p.opts.Reporter != nil {
			diag.ReportWarning(p.opts.Reporter, diag.SymCurious, source.At(p.opts.Dump, lineNo),
				fmt.Sprintf("curious symbol %q in %s", line, p.member())).Emit()
		}
		return nil
	}
	kind, name := Kind(m[1][0]), m[2]
	if p.opts.DropUnderscore {
		if !strings.HasPrefix(name, "_") {
			return p.fail(diag.SymMalformed, lineNo, line, "malformed (no leading underscore)")
		}
		name = name[1:]
	}
	if name == "" {
		return p.fail(diag.SymMalformed, lineNo, line, "malformed")
	}
	if kind != FuncLocal {
		if err := p.checkLibrary(lineNo, line, name); err != nil {
			return err
		}
	}
	p.table.Add(Symbol{Name: name, Kind: kind, File: p.curFile})
	return nil
}

func (p *parser) checkLibrary(lineNo int, line, name string) error {
	lib := p.opts.Lib
	if !strings.HasPrefix(name, lib) && !strings.HasPrefix(name, "_"+lib) {
		return p.fail(diag.SymPrefixViolation, lineNo, line,
			fmt.Sprintf("symbol %s does not start with %s or _%s", name, lib, lib))
	}
	m := libTagRe.FindStringSubmatch(strings.TrimPrefix(name, "_"))
	if m == nil {
		return p.fail(diag.SymUnparsableLibraryTag, lineNo, line,
			fmt.Sprintf("can't parse library name from symbol name %s", name))
	}
	if tag := m[1]; tag != lib && !slices.Contains(p.opts.Aliases[lib], tag) {
		return p.fail(diag.SymLibraryNameMismatch, lineNo, line,
			fmt.Sprintf("symbol name %s implies library name %q != %q", name, tag, lib))
	}
	return nil
}

func (p *parser) member() string {
	if p.curFile == "" {
		return "unknown member"
	}
	return p.curFile
}
