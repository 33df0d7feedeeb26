package fix

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

func TestApplyReplacesLines(t *testing.T) {
	fs := source.NewFileSet()
	fs.AddVirtual("a.c", []byte("int\nfooA(void) {\nint\nfooB(void) {\n"))

	res, err := Apply(fs, []LineEdit{
		{Code: diag.AnnAdded, Path: "a.c", Line: 2, OldText: "int", NewText: "int /* Biff: 1 */", Func: "fooB"},
		{Code: diag.AnnAdded, Path: "a.c", Line: 0, OldText: "int", NewText: "int /* Biff: nope */", Func: "fooA"},
	})
	require.NoError(t, err)
	require.Len(t, res.Applied, 2)
	// порядок применения по строкам, не по порядку передачи
	require.Equal(t, "fooA", res.Applied[0].Func)
	require.Equal(t, "a.c:1", res.Applied[0].Loc.String())
	require.Equal(t, "ANN5003-a.c-3", res.Applied[1].ID)

	f, _ := fs.GetByPath("a.c")
	require.Equal(t, "int /* Biff: nope */", f.Line(0))
	require.Equal(t, 2, f.Edits())
}

func TestApplySkipsConflictsAndStale(t *testing.T) {
	fs := source.NewFileSet()
	fs.AddVirtual("a.c", []byte("int\nfoo(void) {\n"))

	res, err := Apply(fs, []LineEdit{
		{ID: "first", Path: "a.c", Line: 0, NewText: "int /* one */"},
		{ID: "second", Path: "a.c", Line: 0, NewText: "int /* two */"},
		{ID: "stale", Path: "a.c", Line: 1, OldText: "bar(void) {", NewText: "x"},
		{ID: "range", Path: "a.c", Line: 9, NewText: "x"},
		{ID: "missing", Path: "b.c", Line: 0, NewText: "x"},
	})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)

	reasons := map[string]string{}
	for _, s := range res.Skipped {
		reasons[s.ID] = s.Reason
	}
	require.Equal(t, map[string]string{
		"second":  "conflicts with previously applied edit",
		"stale":   "existing text does not match expected content",
		"range":   "edit line out of range",
		"missing": "file not loaded",
	}, reasons)
}

func TestApplyNothing(t *testing.T) {
	fs := source.NewFileSet()
	_, err := Apply(fs, nil)
	require.True(t, errors.Is(err, ErrNoFixes))

	fs.AddVirtual("a.c", []byte("int\n"))
	res, err := Apply(fs, []LineEdit{{Path: "a.c", Line: 0, NewText: "int"}})
	// та же строка: правка применена, но файл не считается изменённым
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	require.Empty(t, fs.Modified())
}

func TestAnnotatedPath(t *testing.T) {
	tests := map[string]string{
		"/src/nrrd/read.c":  "/src/nrrd/read-annote.c",
		"sub.dir/x.c":       "sub.dir/x-annote.c",
		"Makefile":          "Makefile-annote",
		"ten/tendAnvol.c":   "ten/tendAnvol-annote.c",
	}
	for in, want := range tests {
		if got := AnnotatedPath(in); got != want {
			t.Errorf("AnnotatedPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFlushWritesSiblingOnly(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "read.c")
	content := "int\nnrrdRead(Nrrd *nrrd) {\n  return 0;\n}\n"
	require.NoError(t, os.WriteFile(orig, []byte(content), 0o600))
	untouched := filepath.Join(dir, "write.c")
	require.NoError(t, os.WriteFile(untouched, []byte("int\n"), 0o644))

	fs := source.NewFileSet()
	_, err := fs.Load(orig)
	require.NoError(t, err)
	_, err = fs.Load(untouched)
	require.NoError(t, err)
	fs.AddVirtual("virtual.c", []byte("int\n"))

	_, err = Apply(fs, []LineEdit{
		{Path: orig, Line: 0, OldText: "int", NewText: "int /* Biff: 1 */"},
		{Path: "virtual.c", Line: 0, NewText: "int /* Biff: 1 */"},
	})
	require.NoError(t, err)

	changes, err := Flush(context.Background(), fs)
	require.NoError(t, err)
	require.Equal(t, []FileChange{{Path: orig, Output: filepath.Join(dir, "read-annote.c"), EditCount: 1}}, changes)

	got, err := os.ReadFile(orig)
	require.NoError(t, err)
	require.Equal(t, content, string(got))

	annotated, err := os.ReadFile(changes[0].Output)
	require.NoError(t, err)
	require.Equal(t, "int /* Biff: 1 */\nnrrdRead(Nrrd *nrrd) {\n  return 0;\n}\n", string(annotated))

	info, err := os.Stat(changes[0].Output)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(filepath.Join(dir, "write-annote.c"))
	require.True(t, os.IsNotExist(err))
}

func TestFlushCancelled(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "a.c")
	require.NoError(t, os.WriteFile(orig, []byte("int\n"), 0o644))
	fs := source.NewFileSet()
	_, err := fs.Load(orig)
	require.NoError(t, err)
	_, err = Apply(fs, []LineEdit{{Path: orig, Line: 0, NewText: "long"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Flush(ctx, fs)
	require.ErrorIs(t, err, context.Canceled)
}
