package main

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"teemscan/internal/config"
	"teemscan/internal/version"
)

func TestParseTriState(t *testing.T) {
	cases := []struct {
		in      string
		want    triState
		wantErr bool
	}{
		{"", triAuto, false},
		{"auto", triAuto, false},
		{" ON ", triOn, false},
		{"always", triOn, false},
		{"false", triOff, false},
		{"never", triOff, false},
		{"sometimes", "", true},
	}
	for _, tc := range cases {
		got, err := parseTriState(tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestUIModeSet(t *testing.T) {
	m := uiModeAuto
	require.NoError(t, m.Set("off"))
	require.Equal(t, uiModeOff, m)
	require.False(t, shouldUseTUI(m))
	require.ErrorContains(t, m.Set("maybe"), "--ui")
}

func TestOutputFormatSet(t *testing.T) {
	f := newOutputFormat("pretty", "pretty", "json", "msgpack")
	require.Equal(t, "pretty", f.String())
	require.NoError(t, f.Set("JSON"))
	require.Equal(t, "json", f.String())

	err := f.Set("yaml")
	require.ErrorContains(t, err, "pretty|json|msgpack")
	require.Equal(t, "json", f.String())
}

func TestPickLibraries(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.Libraries = []string{"air", "biff", "nrrd", "gage"}

	cases := []struct {
		name    string
		args    []string
		all     bool
		want    []string
		wantErr string
	}{
		{name: "all", all: true, want: []string{"air", "biff", "nrrd", "gage"}},
		{name: "named", args: []string{"gage", "nrrd", "gage"}, want: []string{"gage", "nrrd"}},
		{name: "all with names", args: []string{"gage"}, all: true, wantErr: "--all"},
		{name: "none", wantErr: "no libraries"},
		{name: "unknown", args: []string{"ten"}, wantErr: `unknown library "ten"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pickLibraries(cfg, tc.args, tc.all)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("libraries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderVersionJSON(&buf, version.Info{Version: "1.2.3", GitCommit: "abc"}))
	require.JSONEq(t, `{"tool":"teemscan","version":"1.2.3","git_commit":"abc"}`, buf.String())
}
