package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(10)
	r := diag.BagReporter{Bag: bag}
	diag.ReportWarning(r, diag.BiffKeyMismatch, source.At("/home/user/teem/src/gage/sclprint.c", 14), `uses biff key "NRRD" != "GAGE"`).Emit()
	diag.ReportWarning(r, diag.BiffAmbiguousDef, source.At("/home/user/teem/src/gage/ctx.c", 3), "two lines in ctx.c seem to define gageTwice; bailing").
		WithNote(source.At("/home/user/teem/src/gage/ctx.c", 8), "also here").
		Emit()
	diag.ReportInfo(r, diag.SymGlobalData, source.Location{}, "gage lib has global variable gageDefVerbose").Emit()
	bag.Add(diag.FromError(&fakeFatal{}))
	bag.Sort()
	return bag
}

type fakeFatal struct{}

func (*fakeFatal) Error() string { return "ctx.c:9: confusing biff: |biffGetDone(GAGE);|" }
func (*fakeFatal) DiagCode() diag.Code { return diag.BiffProtocol }
func (*fakeFatal) DiagLocation() source.Location {
	return source.At("/home/user/teem/src/gage/ctx.c", 9)
}

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	bag := sampleBag()
	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/teem/src/gage/sclprint.c:14:"},
		{"relative", PathModeRelative, "gage/sclprint.c:14:"},
		{"basename", PathModeBasename, "sclprint.c:14:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Pretty(&buf, bag, PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/teem/src"})
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains("\n"+buf.String(), "\n"+tt.contains) {
				t.Errorf("expected %q in:\n%s", tt.contains, buf.String())
			}
		})
	}
}

func TestPrettyLines(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{PathMode: PathModeBasename, ShowNotes: true, Summary: true}); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"INFO    SYM1002: gage lib has global variable gageDefVerbose",
		"ctx.c:3: WARNING BIF4002: two lines in ctx.c seem to define gageTwice; bailing",
		"    note: ctx.c:8: also here",
		"ctx.c:9: ERROR   BIF4901: ctx.c:9: confusing biff: |biffGetDone(GAGE);|",
		"sclprint.c:14: WARNING BIF4001: uses biff key \"NRRD\" != \"GAGE\"",
		"1 error, 2 warnings",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyColor(t *testing.T) {
	var plain, colored bytes.Buffer
	bag := sampleBag()
	if err := Pretty(&plain, bag, PrettyOpts{}); err != nil {
		t.Fatal(err)
	}
	if err := Pretty(&colored, bag, PrettyOpts{Color: true}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Error("plain output has escape codes")
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Error("colored output has no escape codes")
	}
}
