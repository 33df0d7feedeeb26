package diag

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"teemscan/internal/source"
)

func TestWriteShort(t *testing.T) {
	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     ConKindMismatch,
			Message:  "decl/defn disagree on type of nrrdFoo\n(nm T vs .h D)",
			Primary:  source.Location{Path: "./src/nrrd/nrrd.h", Line: 12},
			Notes: []Note{
				{Loc: source.Location{Path: "src/nrrd/foo.c"}, Msg: "defined here"},
			},
		},
		{
			Severity: SevInfo,
			Code:     SymGlobalData,
			Message:  "nrrd lib has global variable nrrdStateVerbose",
			Primary:  source.Location{Path: "src/nrrd/defaultsNrrd.c"},
		},
		{
			Severity: SevError,
			Code:     BiffProtocol,
			Message:  "no biff usage found",
		},
	}

	want := "-:0: error BIF4901: no biff usage found\n" +
		"src/nrrd/defaultsNrrd.c:0: info SYM1002: nrrd lib has global variable nrrdStateVerbose\n" +
		"src/nrrd/foo.c:0: note CON3003: defined here\n" +
		"src/nrrd/nrrd.h:12: warning CON3003: decl/defn disagree on type of nrrdFoo (nm T vs .h D)\n"

	var b strings.Builder
	if err := WriteShort(&b, diags, true); err != nil {
		t.Fatal(err)
	}
	if got := b.String(); got != want {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\ngot:\n%s", want, got)
	}

	b.Reset()
	if err := WriteShort(&b, diags[:1], false); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(b.String(), "note") {
		t.Fatalf("notes must be skipped: %q", b.String())
	}
}

type fakeFatal struct{}

func (fakeFatal) Error() string                 { return "did not see #define PULL_HINTER" }
func (fakeFatal) DiagCode() Code                { return CdefGate }
func (fakeFatal) DiagLocation() source.Location { return source.Location{Path: "pull.h"} }

func TestFromErrorKeepsWrappedCode(t *testing.T) {
	err := fmt.Errorf("cdef pull: %w", fakeFatal{})
	d := FromError(err)
	if d.Code != CdefGate || d.Severity != SevError || d.Primary.Path != "pull.h" {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if d.Message != "cdef pull: did not see #define PULL_HINTER" {
		t.Fatalf("unexpected message %q", d.Message)
	}

	plain := FromError(errors.New("boom"))
	if plain.Code != UnknownCode {
		t.Fatalf("expected unknown code, got %v", plain.Code)
	}
}

func TestCodeClasses(t *testing.T) {
	if !SymPrefixViolation.Fatal() || ConUndeclared.Fatal() {
		t.Fatal("fatal class detection is off")
	}
	if got := BiffKeyMismatch.ID(); got != "BIF4001" {
		t.Fatalf("unexpected id %q", got)
	}
}

func TestBagSortAndDedup(t *testing.T) {
	bag := NewBag(0)
	r := BagReporter{Bag: bag}
	ReportWarning(r, ConUndeclared, source.Location{Path: "b.c", Line: 2}, "x").Emit()
	ReportWarning(r, ConUndeclared, source.Location{Path: "a.c", Line: 9}, "y").Emit()
	ReportError(r, BiffProtocol, source.Location{Path: "a.c", Line: 9}, "z").Emit()
	ReportWarning(r, ConUndeclared, source.Location{Path: "b.c", Line: 2}, "x").Emit()

	bag.Dedup()
	bag.Sort()
	items := bag.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 items after dedup, got %d", len(items))
	}
	if items[0].Code != BiffProtocol || items[1].Message != "y" || items[2].Primary.Path != "b.c" {
		t.Fatalf("unexpected order: %+v", items)
	}
	if !bag.HasErrors() {
		t.Fatal("expected HasErrors")
	}
}

func TestBagLimit(t *testing.T) {
	bag := NewBag(1)
	if !bag.Add(Diagnostic{Message: "a"}) {
		t.Fatal("first add must succeed")
	}
	if bag.Add(Diagnostic{Message: "b"}) {
		t.Fatal("second add must hit the limit")
	}
}
