package diagfmt

import (
	"os"
	"path/filepath"

	"teemscan/internal/source"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps short or relative paths and shortens long absolute ones.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	BaseDir   string // для PathModeRelative, по умолчанию cwd
	ShowNotes bool
	Summary   bool // итоговая строка "N errors, M warnings"
}

// JSONOpts configures JSON and msgpack output of diagnostics.
type JSONOpts struct {
	PathMode     PathMode
	BaseDir      string
	Max          int // обрезка вывода, не Bag
	IncludeNotes bool
}

func formatPath(path string, mode PathMode, baseDir string) string {
	if path == "" {
		return ""
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := source.AbsolutePath(path); err == nil {
			return abs
		}
	case PathModeRelative:
		if baseDir == "" {
			if wd, err := os.Getwd(); err == nil {
				baseDir = wd
			}
		}
		if rel, err := source.RelativePath(path, baseDir); err == nil {
			return rel
		}
	case PathModeBasename:
		return source.BaseName(path)
	case PathModeAuto:
		if len(path) >= 40 && filepath.IsAbs(path) {
			return source.BaseName(path)
		}
	}
	return path
}

func formatLocation(loc source.Location, mode PathMode, baseDir string) string {
	loc.Path = formatPath(loc.Path, mode, baseDir)
	return loc.String()
}
