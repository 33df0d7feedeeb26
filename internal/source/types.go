package source

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"
)

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32 // просто ID источника
	// FileFlags encodes metadata about a source file.
	FileFlags uint8 // метаданные
)

const (
	// FileVirtual indicates the file was added from memory (test, stdin, etc.).
	FileVirtual FileFlags = 1 << iota // добавлен не с диска (тест, stdin)
	FileHadBOM
	FileNormalizedCRLF
)

// ErrLineRange is returned when an edit targets a line outside the buffer.
var ErrLineRange = errors.New("line index out of range")

// File is the cached line buffer of one source file.
// Lines are right-trimmed on load; edits replace whole lines and never shift indices.
type File struct {
	ID    FileID
	Path  string
	Lines []string
	Hash  [32]byte
	Flags FileFlags

	edits int
}

// Location points at a 1-based line of a file. Line 0 means the file as a whole.
type Location struct {
	Path string `json:"path" yaml:"path" msgpack:"path"`
	Line uint32 `json:"line,omitempty" yaml:"line,omitempty" msgpack:"line,omitempty"`
}

func (l Location) String() string {
	if l.Line == 0 {
		return l.Path
	}
	return fmt.Sprintf("%s:%d", l.Path, l.Line)
}

// Len returns the number of lines.
func (f *File) Len() int {
	return len(f.Lines)
}

// Line returns the 0-based line idx, or "" when idx is out of range.
func (f *File) Line(idx int) string {
	if idx < 0 || idx >= len(f.Lines) {
		return ""
	}
	return f.Lines[idx]
}

// Replace overwrites line idx. Replacing a line with identical text is not counted as an edit.
func (f *File) Replace(idx int, text string) error {
	if idx < 0 || idx >= len(f.Lines) {
		return fmt.Errorf("%s: %w: %d", f.Path, ErrLineRange, idx)
	}
	if f.Lines[idx] == text {
		return nil
	}
	f.Lines[idx] = text
	f.edits++
	return nil
}

// Edits reports how many lines were replaced since load.
func (f *File) Edits() int {
	return f.edits
}

// Modified is true once at least one line was replaced.
func (f *File) Modified() bool {
	return f.edits > 0
}

// Location converts a 0-based line index into a Location.
func (f *File) Location(idx int) Location {
	if idx < 0 {
		return Location{Path: f.Path}
	}
	return At(f.Path, idx+1)
}

// Bytes renders the buffer back to text with a trailing newline after every line.
func (f *File) Bytes() []byte {
	var b strings.Builder
	for _, l := range f.Lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// LineNo converts a 1-based int line number for a Location; out of range values become 0.
func LineNo(n int) uint32 {
	line, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0
	}
	return line
}

// At is a shorthand for a Location at a 1-based line.
func At(path string, line int) Location {
	return Location{Path: path, Line: LineNo(line)}
}
