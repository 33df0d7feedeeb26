package cdef

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"teemscan/internal/trace"
)

// Section is the sanitized text of one header.
type Section struct {
	Header string
	Lines  []string
}

// Banner opens every generated cdef file.
func Banner(lib string) string {
	return fmt.Sprintf(`
/* NOTE: This file is a *very* hacked up version of the original
teem/%s.h, generated by teemscan cdef to declare the %s API to
CFFI, within its many limitations, specifically lacking a C pre-processor
(so no #include directives, and only certain #defines). */
 `, lib, lib)
}

// Render assembles the cdef file of lib from its sections.
func Render(lib string, sections []Section) []byte {
	var b bytes.Buffer
	b.WriteString(Banner(lib))
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "/* =========== %s =========== */\n", sec.Header)
		for _, l := range sec.Lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	return b.Bytes()
}

// FileName is the output name for lib.
func FileName(lib string) string {
	return "cdef_" + lib + ".h"
}

// ErrStale is returned in check mode when the output on disk differs.
var ErrStale = errors.New("cdef output is stale")

// Writer generates cdef_<lib>.h files from installed headers.
type Writer struct {
	Sanitizer *Sanitizer
	HeaderDir string
	OutDir    string
	Headers   func(lib string) []string
	// Check compares with the existing output instead of writing it.
	Check  bool
	Logger *zap.Logger
}

// Result describes one generated file.
type Result struct {
	Lib     string
	Path    string
	Headers int
	Lines   int
	Changed bool
}

// Generate sanitizes every header of lib and writes (or checks) the output.
// Identical output is not rewritten.
func (w *Writer) Generate(ctx context.Context, lib string) (Result, error) {
	ctx, span := trace.Start(trace.WithLibrary(ctx, lib), trace.ScopeLibrary, "cdef")
	defer span.End("")

	res := Result{Lib: lib, Path: filepath.Join(w.OutDir, FileName(lib))}
	headers := []string{lib + ".h"}
	if w.Headers != nil {
		headers = w.Headers(lib)
	}
	sections := make([]Section, 0, len(headers))
	for _, hdr := range headers {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		// #nosec G304 -- header names come from configuration
		raw, err := os.ReadFile(filepath.Join(w.HeaderDir, hdr))
		if err != nil {
			return res, fmt.Errorf("cdef %s: %w", lib, err)
		}
		lines, err := w.Sanitizer.SanitizeText(hdr, string(raw))
		if err != nil {
			return res, fmt.Errorf("cdef %s: %w", lib, err)
		}
		sections = append(sections, Section{Header: hdr, Lines: lines})
		res.Lines += len(lines)
	}
	res.Headers = len(sections)

	data := Render(lib, sections)
	// #nosec G304 -- output path is built from configuration
	old, err := os.ReadFile(res.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return res, fmt.Errorf("cdef %s: %w", lib, err)
	}
	res.Changed = err != nil || !bytes.Equal(old, data)
	span.WithExtra("changed", fmt.Sprint(res.Changed))

	if w.Check {
		if res.Changed {
			return res, fmt.Errorf("%s: %w", res.Path, ErrStale)
		}
		return res, nil
	}
	if !res.Changed {
		w.logger().Info("cdef unchanged", zap.String("path", res.Path))
		return res, nil
	}
	if err := os.MkdirAll(w.OutDir, 0o755); err != nil {
		return res, fmt.Errorf("cdef %s: %w", lib, err)
	}
	if err := os.WriteFile(res.Path, data, 0o644); err != nil { // #nosec G306 -- generated header is meant to be readable
		return res, fmt.Errorf("cdef %s: %w", lib, err)
	}
	w.logger().Info("wrote cdef", zap.String("path", res.Path), zap.Int("headers", res.Headers), zap.Int("lines", res.Lines))
	return res, nil
}

func (w *Writer) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}
