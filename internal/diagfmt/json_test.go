package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"
)

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleBag(), JSONOpts{PathMode: PathModeBasename, IncludeNotes: true}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 4 || len(out.Diagnostics) != 4 {
		t.Fatalf("count = %d/%d", out.Count, len(out.Diagnostics))
	}
	amb := out.Diagnostics[1]
	want := DiagnosticJSON{
		Severity: "WARNING",
		Code:     "BIF4002",
		Title:    "Several definitions of function",
		Message:  "two lines in ctx.c seem to define gageTwice; bailing",
		Location: LocationJSON{File: "ctx.c", Line: 3},
		Notes:    []NoteJSON{{Message: "also here", Location: LocationJSON{File: "ctx.c", Line: 8}}},
	}
	if diff := cmp.Diff(want, amb); diff != "" {
		t.Errorf("diagnostic mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONMaxAndNotes(t *testing.T) {
	out := BuildDiagnosticsOutput(sampleBag(), JSONOpts{Max: 2})
	if out.Count != 2 {
		t.Errorf("count = %d, want 2", out.Count)
	}
	for _, d := range out.Diagnostics {
		if len(d.Notes) != 0 {
			t.Errorf("notes included without IncludeNotes: %+v", d)
		}
	}
}

func TestMsgpackMatchesJSON(t *testing.T) {
	opts := JSONOpts{PathMode: PathModeAbsolute, IncludeNotes: true}
	var buf bytes.Buffer
	if err := Msgpack(&buf, sampleBag(), opts); err != nil {
		t.Fatal(err)
	}
	var got DiagnosticsOutput
	if err := msgpack.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(BuildDiagnosticsOutput(sampleBag(), opts), got); diff != "" {
		t.Errorf("msgpack mismatch (-want +got):\n%s", diff)
	}
}
