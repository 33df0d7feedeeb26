package driver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"teemscan/internal/cdef"
	"teemscan/internal/config"
	"teemscan/internal/pipeline"
)

func installHeaders(t *testing.T, cfg *config.Config, files map[string]string) {
	t.Helper()
	dir, err := cfg.HeaderDir()
	require.NoError(t, err)
	for name, content := range files {
		writeFile(t, filepath.Join(dir, name), content)
	}
}

func TestGenerateCdef(t *testing.T) {
	cfg := teemTree(t)
	installHeaders(t, cfg, map[string]string{"gage.h": gageHeader})
	var statuses []pipeline.Status
	sink := pipeline.FuncSink(func(e pipeline.Event) { statuses = append(statuses, e.Status) })

	w, err := NewCdefWriter(CdefOptions{Config: cfg})
	require.NoError(t, err)
	results, err := GenerateCdef(context.Background(), w, []string{"gage"}, sink)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Changed)
	require.Equal(t, []pipeline.Status{pipeline.StatusWorking, pipeline.StatusDone}, statuses)

	out := readFile(t, filepath.Join(cfg.Cdef.Out, "cdef_gage.h"))
	require.Contains(t, out, "extern int gageThingSet(int val);")
	require.NotContains(t, out, "GAGE_EXPORT")

	// check mode: up to date, then stale
	check, err := NewCdefWriter(CdefOptions{Config: cfg, Check: true})
	require.NoError(t, err)
	_, err = GenerateCdef(context.Background(), check, []string{"gage"}, nil)
	require.NoError(t, err)

	installHeaders(t, cfg, map[string]string{"gage.h": gageHeader + "GAGE_EXPORT int gageMore(int a);\n"})
	results, err = GenerateCdef(context.Background(), check, []string{"gage"}, nil)
	require.ErrorIs(t, err, cdef.ErrStale)
	require.Len(t, results, 1)
}

func TestGenerateCdefStopsOnMissingHeader(t *testing.T) {
	cfg := teemTree(t)
	installHeaders(t, cfg, map[string]string{"gage.h": gageHeader})
	w, err := NewCdefWriter(CdefOptions{Config: cfg, OutDir: t.TempDir()})
	require.NoError(t, err)

	results, err := GenerateCdef(context.Background(), w, []string{"gage", "hoover", "ten"}, nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, cdef.ErrStale)
	require.Len(t, results, 1)
}

func TestNewCdefWriterNeedsArch(t *testing.T) {
	cfg := teemTree(t)
	cfg.Teem.Arch = ""
	_, err := NewCdefWriter(CdefOptions{Config: cfg})
	require.ErrorIs(t, err, config.ErrNoArch)
}

func TestLibsForHeaders(t *testing.T) {
	cfg := config.Default()
	libs := []string{"air", "nrrd", "ten"}
	tests := []struct {
		headers []string
		want    []string
	}{
		{[]string{"nrrdEnums.h"}, []string{"nrrd"}},
		{[]string{"air.h", "tenMacros.h"}, []string{"air", "ten"}},
		{[]string{"gage.h"}, []string{}},
		{[]string{"nrrd.h", "nrrdDefines.h"}, []string{"nrrd"}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, LibsForHeaders(cfg, libs, tt.headers), "headers %v", tt.headers)
	}
}
