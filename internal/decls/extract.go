package decls

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"teemscan/internal/diag"
	"teemscan/internal/source"
	"teemscan/internal/symtab"
)

var (
	kernelCommentRe = regexp.MustCompile(`^.+?(/\*.+?)$`)
	oneCommentRe    = regexp.MustCompile(`^.+?(/\*.+?\*/)`)
	arrayRe         = regexp.MustCompile(`^.+?(\[[^\[\]]+?\])`)
	openArgsRe      = regexp.MustCompile(`^.+(\([^()]+)$`)
	funcPtrArgRe    = regexp.MustCompile(`^.*?\(.+?(\*\(.+?\)\(.+?\))`)
	argsRe          = regexp.MustCompile(`^.+?(\([^()]+\))`)
	macroArgsRe     = regexp.MustCompile(`^.+?(\([A-Z]+_ARGS\(\)\))`)
	funcPtrNameRe   = regexp.MustCompile(`^.*?(\(\*[^ )]+\))`)
	hooverBeginRe   = regexp.MustCompile(`^hoover\w+Begin;`)
	hooverEndRe     = regexp.MustCompile(`^hoover\w+End;`)
)

const (
	externC      = `extern "C" {`
	kernelPrefix = "  *const nrrdKernel"
	kernelListed = "const NrrdKernel"
)

// PublicHeader is the file name of the public header of lib.
func PublicHeader(lib string) string { return lib + ".h" }

// PrivateHeader is the file name of the private header of lib: "nrrd" -> "privateNrrd.h".
func PrivateHeader(lib string) string {
	return "private" + cases.Title(language.Und).String(lib) + ".h"
}

// Extractor isolates declared names from the headers of one library.
type Extractor struct {
	Lib        string
	Vocabulary []string
	Logger     *zap.Logger
}

// NewExtractor uses the built-in vocabulary plus extra types.
func NewExtractor(lib string, logger *zap.Logger, extraTypes ...string) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{Lib: lib, Vocabulary: Vocabulary(extraTypes...), Logger: logger}
}

// ExtractDir reads <lib>.h and, when present, private<Lib>.h from dir
// through the line cache fs.
func (x *Extractor) ExtractDir(fs *source.FileSet, dir string) (*Set, error) {
	hdrs := []string{PublicHeader(x.Lib)}
	if _, err := os.Stat(filepath.Join(dir, PrivateHeader(x.Lib))); err == nil {
		hdrs = append(hdrs, PrivateHeader(x.Lib))
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	x.logger().Info("scanning declarations", zap.String("lib", x.Lib), zap.Strings("headers", hdrs))

	set := NewSet()
	for i, hdr := range hdrs {
		f, err := fs.LoadFile(filepath.Join(dir, hdr))
		if err != nil {
			return nil, err
		}
		vis := Private
		if i == 0 {
			vis = Public
		}
		if err := x.Header(hdr, vis, f.Lines, set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Header adds the declarations of one header to set. Lines are not modified.
func (x *Extractor) Header(header string, vis Visibility, lines []string, set *Set) error {
	prefix := "extern "
	if vis == Public {
		prefix = strings.ToUpper(x.Lib) + "_EXPORT "
	}
	// только первая строка `extern "C" {`; номера строк считаем по исходному файлу
	skip := slices.Index(lines, externC)

	for i, raw := range lines {
		if i == skip {
			continue
		}
		lineNo := i + 1
		line := source.TrimRight(raw)
		if header == "nrrd.h" && strings.HasPrefix(line, kernelPrefix) {
			k, ok := kernelLine(line[1:])
			if !ok {
				return &ParseError{Code: diag.DeclKernelShape, Header: header, Line: lineNo, Text: raw}
			}
			line = "NRRD_EXPORT " + kernelListed + k
		}
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		rest := strings.TrimPrefix(line, prefix)
		if rest == kernelListed {
			continue
		}
		name, kind, ok := classify(x.reduce(rest))
		if !ok {
			return &ParseError{Code: diag.DeclUnparsable, Header: header, Line: lineNo, Text: raw, Reduced: x.reduce(rest)}
		}
		set.Add(Decl{Name: name, Kind: kind, Visibility: vis, Loc: source.At(header, lineNo)})
	}
	return nil
}

// kernelLine turns one entry of the nrrd kernel list into a complete declaration tail.
func kernelLine(l string) (string, bool) {
	if m := kernelCommentRe.FindStringSubmatch(l); m != nil {
		l = source.TrimRight(strings.ReplaceAll(l, m[1], ""))
	}
	if strings.HasSuffix(l, ",") {
		l = l[:len(l)-1] + ";"
	}
	return l, strings.HasSuffix(l, ";")
}

// reduce strips types, comments, array bounds and argument lists from a
// declaration until only the name and a shape suffix like "();" or "[];" remain.
// Every substitution replaces all occurrences of the matched text.
func (x *Extractor) reduce(l string) string {
	for _, t := range x.Vocabulary {
		l = strings.ReplaceAll(l, t+" ", "")
	}
	if m := oneCommentRe.FindStringSubmatch(l); m != nil {
		l = source.TrimRight(strings.ReplaceAll(l, m[1], ""))
	}
	for m := arrayRe.FindStringSubmatch(l); m != nil; m = arrayRe.FindStringSubmatch(l) {
		l = source.TrimRight(strings.ReplaceAll(l, m[1], "[]"))
	}
	if m := openArgsRe.FindStringSubmatch(l); m != nil {
		l = strings.ReplaceAll(l, m[1], "();")
	}
	for m := funcPtrArgRe.FindStringSubmatch(l); m != nil; m = funcPtrArgRe.FindStringSubmatch(l) {
		l = source.TrimRight(strings.ReplaceAll(l, m[1], "XX"))
	}
	for m := argsRe.FindStringSubmatch(l); m != nil; m = argsRe.FindStringSubmatch(l) {
		l = strings.ReplaceAll(l, m[1], "()")
	}
	if m := macroArgsRe.FindStringSubmatch(l); m != nil {
		l = strings.ReplaceAll(l, m[1], "()")
	}
	if m := funcPtrNameRe.FindStringSubmatch(l); m != nil {
		l = strings.ReplaceAll(l, m[1], m[1][2:len(m[1])-1])
	}
	if strings.HasSuffix(l, "()") {
		l += ";"
	}
	// второй заход для многострочных объявлений вроде airArrayPointerCB
	if m := openArgsRe.FindStringSubmatch(l); m != nil {
		l = strings.ReplaceAll(l, m[1], "();")
	}
	if strings.HasPrefix(l, "airArrayStructCB") {
		l = "airArrayStructCB();"
	}
	l = strings.TrimPrefix(l, "*")
	return strings.TrimPrefix(l, "*")
}

// classify reads the declared name and kind off a reduced line; first match wins.
func classify(l string) (string, symtab.Kind, bool) {
	for _, s := range []struct {
		suffix string
		kind   symtab.Kind
	}{
		{"[][][];", symtab.DataExternal},
		{"[][]();", symtab.DataExternal},
		{"[]();", symtab.DataExternal},
		{"[][];", symtab.DataExternal},
		{"[];", symtab.DataExternal},
		{"();", symtab.FuncExternal},
	} {
		if strings.HasSuffix(l, s.suffix) {
			return l[:len(l)-len(s.suffix)], s.kind, true
		}
	}
	// typedef'ed function types declared as variables
	if strings.HasPrefix(l, "gageScl3PFilter") ||
		hooverBeginRe.MatchString(l) || hooverEndRe.MatchString(l) || l == "hooverStubSample;" {
		return l[:len(l)-1], symtab.FuncExternal, true
	}
	if strings.HasSuffix(l, ";") {
		return l[:len(l)-1], symtab.DataExternal, true
	}
	return "", 0, false
}

func (x *Extractor) logger() *zap.Logger {
	if x.Logger == nil {
		return zap.NewNop()
	}
	return x.Logger
}
