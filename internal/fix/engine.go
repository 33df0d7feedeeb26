package fix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

// ErrNoFixes is returned when no edit was applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// LineEdit replaces one whole line of a cached file. Edits never insert or
// delete lines, so indices stay valid for the whole pass.
type LineEdit struct {
	ID      string
	Code    diag.Code
	Path    string
	Line    int    // 0-based
	OldText string // если не пусто, строка должна совпадать
	NewText string
	Func    string
}

// AppliedEdit records a successfully applied edit.
type AppliedEdit struct {
	ID   string
	Code diag.Code
	Loc  source.Location
	Func string
}

// SkippedEdit captures an edit that was not applied, with a reason.
type SkippedEdit struct {
	ID     string
	Loc    source.Location
	Reason string
}

// ApplyResult aggregates applied and skipped edits.
type ApplyResult struct {
	Applied []AppliedEdit
	Skipped []SkippedEdit
}

type candidate struct {
	edit  LineEdit
	order int
}

// Apply puts edits into the cached buffers of fs, in (path, line, order) order.
// A second edit of a line already edited in this call is skipped as a
// conflict; an edit whose OldText no longer matches is skipped as stale.
// Nothing is written to disk; see Flush.
func Apply(fs *source.FileSet, edits []LineEdit) (*ApplyResult, error) {
	result := &ApplyResult{
		Applied: make([]AppliedEdit, 0, len(edits)),
		Skipped: make([]SkippedEdit, 0),
	}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}
	if len(edits) == 0 {
		return result, ErrNoFixes
	}

	cands := make([]candidate, len(edits))
	for i, e := range edits {
		if e.ID == "" {
			e.ID = fmt.Sprintf("%s-%s-%d", e.Code.ID(), source.BaseName(e.Path), e.Line+1)
		}
		cands[i] = candidate{edit: e, order: i}
	}
	sortCandidates(cands)

	touched := make(map[string]map[int]bool)
	for _, c := range cands {
		e := c.edit
		loc := source.At(e.Path, e.Line+1)
		skip := func(reason string) {
			result.Skipped = append(result.Skipped, SkippedEdit{ID: e.ID, Loc: loc, Reason: reason})
		}

		file, ok := fs.GetByPath(e.Path)
		if !ok {
			skip("file not loaded")
			continue
		}
		if touched[e.Path][e.Line] {
			skip("conflicts with previously applied edit")
			continue
		}
		if e.Line < 0 || e.Line >= file.Len() {
			skip("edit line out of range")
			continue
		}
		if e.OldText != "" && file.Line(e.Line) != e.OldText {
			skip("existing text does not match expected content")
			continue
		}
		if err := file.Replace(e.Line, e.NewText); err != nil {
			return result, err
		}
		if touched[e.Path] == nil {
			touched[e.Path] = make(map[int]bool)
		}
		touched[e.Path][e.Line] = true
		result.Applied = append(result.Applied, AppliedEdit{ID: e.ID, Code: e.Code, Loc: loc, Func: e.Func})
	}

	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i].edit, cands[j].edit
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return cands[i].order < cands[j].order
	})
}

// FileChange summarises one written file.
type FileChange struct {
	Path      string // исходный файл, он не меняется
	Output    string
	EditCount int
}

// AnnotatedPath is where the edited copy of path is written: foo.c -> foo-annote.c.
func AnnotatedPath(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path + "-annote"
	}
	return strings.TrimSuffix(path, ext) + "-annote" + ext
}

// Flush writes every modified file of fs next to its original under
// AnnotatedPath. Originals are never written; virtual files stay in memory.
func Flush(ctx context.Context, fs *source.FileSet) ([]FileChange, error) {
	modified := fs.Modified()
	changes := make([]FileChange, 0, len(modified))
	for _, file := range modified {
		if err := ctx.Err(); err != nil {
			return changes, err
		}
		if file.Flags&source.FileVirtual != 0 {
			continue
		}
		out := AnnotatedPath(file.Path)
		if out == file.Path {
			return changes, fmt.Errorf("fix: refusing to overwrite %s", file.Path)
		}
		mode := os.FileMode(0o644)
		if info, err := os.Stat(file.Path); err == nil {
			mode = info.Mode().Perm()
		}
		if err := os.WriteFile(out, file.Bytes(), mode); err != nil {
			return changes, fmt.Errorf("write %s: %w", out, err)
		}
		changes = append(changes, FileChange{
			Path:      file.Path,
			Output:    out,
			EditCount: file.Edits(),
		})
	}
	return changes, nil
}
