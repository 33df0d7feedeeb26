package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFilters(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeLibrary, false},
		{LevelLibrary, ScopeLibrary, true},
		{LevelLibrary, ScopeItem, false},
		{LevelDebug, ScopeItem, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "phase", "LIBRARY", "debug"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestStartNestsSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelLibrary, FormatNDJSON)
	ctx := WithTracer(context.Background(), tr)

	ctx, pass := Start(ctx, ScopeDriver, "scan")
	_, lib := Start(WithLibrary(ctx, "nrrd"), ScopeLibrary, "scan")
	lib.WithExtra("symbols", "12").End("")
	_, item := Start(ctx, ScopeItem, "sym:nrrdNew")
	item.End("")
	pass.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 events, got %d:\n%s", len(lines), buf.String())
	}
	var begin jsonEvent
	if err := json.Unmarshal([]byte(lines[1]), &begin); err != nil {
		t.Fatal(err)
	}
	if begin.Lib != "nrrd" || begin.ParentID != pass.ID() {
		t.Fatalf("library span not nested under driver: %+v", begin)
	}
	var end jsonEvent
	if err := json.Unmarshal([]byte(lines[2]), &end); err != nil {
		t.Fatal(err)
	}
	if end.Kind != "end" || end.Lib != "nrrd" || end.Extra["symbols"] != "12" {
		t.Fatalf("unexpected end event: %+v", end)
	}
	var last jsonEvent
	if err := json.Unmarshal([]byte(lines[3]), &last); err != nil {
		t.Fatal(err)
	}
	if last.Lib != "" {
		t.Fatalf("library tag leaked to the driver span: %+v", last)
	}
}

func TestPointInheritsLibrary(t *testing.T) {
	r := NewRingTracer(4, LevelDebug)
	ctx := WithLibrary(WithTracer(context.Background(), r), "gage")
	ctx, s := Start(ctx, ScopePass, "biff")
	Point(ctx, ScopeItem, "biff:gageProbe", "1")
	s.End("")

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %+v", snap)
	}
	pt := snap[1]
	if pt.Kind != KindPoint || pt.Lib != "gage" || pt.ParentID != s.ID() {
		t.Fatalf("unexpected point %+v", pt)
	}
	if !strings.Contains(string(FormatEvent(&pt, FormatText)), "[gage] ") {
		t.Fatalf("text format misses library: %q", FormatEvent(&pt, FormatText))
	}
}

func TestNopSpanIsInert(t *testing.T) {
	ctx, s := Start(context.Background(), ScopeDriver, "scan")
	if s.ID() != 0 {
		t.Fatalf("expected inert span")
	}
	if CurrentSpan(ctx).SpanID != 0 {
		t.Fatalf("inert span leaked into context")
	}
	if d := s.WithExtra("k", "v").End(""); d != 0 {
		t.Fatalf("inert span reported duration %v", d)
	}
}

func TestRingWrapsAndDumps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	for _, name := range []string{"a", "b", "c", "d"} {
		Point(ctx, ScopeItem, name, "")
	}
	snap := r.Snapshot()
	if len(snap) != 3 || snap[0].Name != "b" || snap[2].Name != "d" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	var buf bytes.Buffer
	dumped, err := DumpRecent(NewMultiTracer(LevelDebug, NewStreamTracer(&bytes.Buffer{}, LevelDebug, FormatText), r), &buf, FormatText)
	if err != nil || !dumped {
		t.Fatalf("DumpRecent = %v, %v", dumped, err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 3 {
		t.Fatalf("expected 3 dumped lines, got %d", got)
	}
	if dumped, _ := DumpRecent(Nop, &buf, FormatText); dumped {
		t.Fatal("nop tracer cannot dump")
	}
}

func TestFormatTextSortsExtra(t *testing.T) {
	ev := &Event{Kind: KindSpanEnd, Name: "cdef", Extra: map[string]string{"z": "1", "a": "2"}}
	out := string(FormatEvent(ev, FormatText))
	if !strings.Contains(out, "\u2190 cdef {a=2, z=1}") {
		t.Fatalf("unexpected text event %q", out)
	}
}
