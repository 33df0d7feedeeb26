package biff

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"teemscan/internal/decls"
	"teemscan/internal/diag"
	"teemscan/internal/source"
)

// Return is one (usage, error return expression) pair seen in a body.
type Return struct {
	Usage Usage  `json:"usage" yaml:"usage" msgpack:"usage"`
	Expr  string `json:"expr" yaml:"expr" msgpack:"expr"`
}

// Record is what the scan learned about one function definition.
type Record struct {
	Func       string           `json:"func" yaml:"func" msgpack:"func"`
	File       string           `json:"file" yaml:"file" msgpack:"file"`
	Line       int              `json:"line" yaml:"line" msgpack:"line"`             // 0-based line that should carry the annotation
	DefLine    int              `json:"def_line" yaml:"def_line" msgpack:"def_line"` // 0-based line starting with "Func("
	Visibility decls.Visibility `json:"visibility" yaml:"visibility" msgpack:"visibility"`
	Usage      Usage            `json:"usage" yaml:"usage" msgpack:"usage"`
	Returns    []string         `json:"returns,omitempty" yaml:"returns,omitempty" msgpack:"returns,omitempty"`
	GateParam  int              `json:"gate_param,omitempty" yaml:"gate_param,omitempty" msgpack:"gate_param,omitempty"`
	Intro      string           `json:"intro" yaml:"intro" msgpack:"intro"`
	Annotation string           `json:"annotation" yaml:"annotation" msgpack:"annotation"`
}

// Scanner finds function definitions in the .c files of one library and
// infers their biff usage. It relies on clang-format layout: the function name
// starts the definition line, the return type sits on the line before, and
// the body closes with a lone "}".
type Scanner struct {
	Lib      string // lower-case library name; the expected biff key is its upper case
	Dir      string
	FileSet  *source.FileSet
	Reporter diag.Reporter
	Logger   *zap.Logger
}

var paramsRe = regexp.MustCompile(`^.+?\((.+?)\)`)

// Scan looks for the definition of fn in file (relative to Dir). A nil record
// with a nil error means there is nothing to annotate: the definition is
// missing or ambiguous, and a warning was reported. Protocol violations
// return *ScanError.
func (s *Scanner) Scan(fn, file string, vis decls.Visibility) (*Record, error) {
	path := file
	if s.Dir != "" && !filepath.IsAbs(file) {
		path = filepath.Join(s.Dir, file)
	}
	f, err := s.fileSet().LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("biff scan %s: %w", fn, err)
	}
	lines := f.Lines
	n := len(lines)

	def := -1
	for i, l := range lines {
		if !strings.HasPrefix(l, fn+"(") {
			continue
		}
		if def == -1 {
			def = i
			continue
		}
		diag.ReportWarning(s.reporter(), diag.BiffAmbiguousDef, f.Location(def),
			fmt.Sprintf("two lines in %s seem to define %s; bailing", file, fn)).
			WithNote(f.Location(i), "also here").
			Emit()
		return nil, nil
	}
	if def == -1 {
		// static functions are often defined by macros
		if vis == decls.Static {
			return nil, nil
		}
		return nil, &ScanError{File: f.Path, Reason: "could not find " + fn + " defined in " + file, Code: diag.BiffDefinitionNotFound}
	}
	s.logger().Debug("found definition", zap.String("func", fn), zap.Int("line", def+1))

	idx := def
	intro := lines[def]
	for !strings.HasSuffix(intro, "{") {
		idx++
		if idx >= n {
			return nil, s.fail(f, def, lines[def], "hit end of file looking for { starting "+fn+" defn")
		}
		intro += " " + strings.TrimLeft(lines[idx], " \t")
	}

	var rets []Return
	for idx < n && lines[idx] != "}" {
		usage, key, reason := ClassifyCall(lines[idx])
		if reason != "" {
			return nil, s.fail(f, idx, strings.TrimLeft(lines[idx], " \t"), reason)
		}
		if usage != UsageNone {
			if want := strings.ToUpper(s.Lib); key != want {
				diag.ReportWarning(s.reporter(), diag.BiffKeyMismatch, f.Location(idx),
					fmt.Sprintf("uses biff key %q != %q", key, want)).Emit()
			}
			var rl string
			for {
				idx++
				if idx >= n {
					return nil, s.fail(f, n-1, "", "hit end of file looking for return in "+fn)
				}
				rl = strings.TrimLeft(lines[idx], " \t")
				// return в комментарии: функции с goto end
				if strings.HasPrefix(rl, "return ") || strings.HasPrefix(rl, "/* return ") {
					break
				}
			}
			expr, ok := returnExpr(rl)
			if !ok {
				return nil, s.fail(f, idx, lines[idx], "confusing return line")
			}
			r := Return{Usage: usage, Expr: expr}
			if !slices.Contains(rets, r) {
				rets = append(rets, r)
			}
		}
		idx++
		if idx == n {
			return nil, s.fail(f, n-1, "", "hit end of file looking for } ending "+fn+" defn")
		}
	}

	rec := &Record{
		Func:       fn,
		File:       file,
		Line:       def - 1,
		DefLine:    def,
		Visibility: vis,
		Intro:      intro,
	}
	if err := s.reduce(f, rec, rets); err != nil {
		return nil, err
	}
	a := FromRecord(rec)
	rec.Annotation = a.String()
	if !a.Trivial() {
		diag.ReportInfo(s.reporter(), diag.BiffNotable, f.Location(rec.Line),
			fmt.Sprintf("/* %s */ <-- %s", rec.Annotation, intro)).Emit()
	}
	return rec, nil
}

// reduce folds the (usage, return) pairs into rec.
func (s *Scanner) reduce(f *source.File, rec *Record, rets []Return) error {
	if len(rets) == 0 {
		rec.Usage = UsageNone
		return nil
	}
	if len(rets) > 1 {
		for _, r := range rets[1:] {
			if r.Usage != rets[0].Usage {
				return s.fail(f, rec.DefLine, "", fmt.Sprintf("function %s uses a combination of biffAdd/Move and biffMaybeAdd/Move", rec.Func))
			}
		}
		diag.ReportInfo(s.reporter(), diag.BiffMultipleReturns, f.Location(rec.DefLine),
			fmt.Sprintf("multiple different returns in %s: %s", rec.Func, formatReturns(rets))).Emit()
	}
	rec.Usage = rets[0].Usage
	if rec.Usage == UsageMaybe {
		p, err := gateParam(rec.Intro)
		if err != "" {
			return s.fail(f, rec.DefLine, rec.Intro, rec.Func+" "+err)
		}
		rec.GateParam = p
	}
	if len(rets) > 2 {
		return s.fail(f, rec.DefLine, "", fmt.Sprintf("have %d > 2 different error return values", len(rets)))
	}
	if len(rets) == 2 && rec.Usage == UsageMaybe {
		return s.fail(f, rec.DefLine, "", `cannot currently handle "maybe" with 2 different error return values`)
	}
	rec.Returns = make([]string, len(rets))
	for i, r := range rets {
		rec.Returns[i] = r.Expr
	}
	return nil
}

// gateParam returns the 1-based position of the useBiff parameter in intro.
func gateParam(intro string) (int, string) {
	m := paramsRe.FindStringSubmatch(intro)
	if m == nil {
		return 0, "can't parse parameters from declaration start"
	}
	found := 0
	for i, p := range strings.Split(m[1], ",") {
		if !slices.Contains(strings.Split(strings.TrimSpace(p), " "), "useBiff") {
			continue
		}
		if found != 0 {
			return 0, `seems to have multiple "useBiff" parms`
		}
		found = i + 1
	}
	if found == 0 {
		return 0, `uses biffMaybe but no "useBiff" parameter`
	}
	return found, ""
}

// returnExpr extracts E from "...return E;".
func returnExpr(line string) (string, bool) {
	i := strings.Index(line, "return ")
	if i < 0 {
		return "", false
	}
	rest := line[i+len("return "):]
	j := strings.LastIndex(rest, ";")
	if j < 1 {
		return "", false
	}
	return rest[:j], true
}

func formatReturns(rets []Return) string {
	parts := make([]string, len(rets))
	for i, r := range rets {
		parts[i] = r.Usage.String() + ":" + r.Expr
	}
	return strings.Join(parts, ", ")
}

func (s *Scanner) fail(f *source.File, idx int, text, reason string) error {
	return &ScanError{File: f.Path, Line: idx + 1, Text: text, Reason: reason}
}

func (s *Scanner) fileSet() *source.FileSet {
	if s.FileSet == nil {
		s.FileSet = source.NewFileSet()
	}
	return s.FileSet
}

func (s *Scanner) reporter() diag.Reporter {
	if s.Reporter == nil {
		return diag.NopReporter{}
	}
	return s.Reporter
}

func (s *Scanner) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
