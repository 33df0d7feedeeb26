package symtab

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"teemscan/internal/diag"
)

const macDump = `
libnrrd.a(read.o):
                 U _airFree
0000000000000000 T _nrrdLoad
0000000000000120 t __nrrdReadHelper
0000000000000300 d _someStaticData
0000000000000400 s _ltmp1
0000000000000010 D _nrrdStateVerboseIO
0000000000000020 S _nrrdTypeSize
0000000000000500 W _weirdWeakThing

libnrrd.a(write.o):
0000000000000000 T __nrrdWriteDataRaw
0000000000000100 T _nrrdSave
`

func TestParseMac(t *testing.T) {
	bag := diag.NewBag(0)
	tab, err := Parse(macDump, Options{Lib: "nrrd", DropUnderscore: true, Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Symbol{
		{Name: "nrrdLoad", Kind: FuncExternal, File: "read.c"},
		{Name: "_nrrdReadHelper", Kind: FuncLocal, File: "read.c"},
		{Name: "nrrdStateVerboseIO", Kind: DataExternal, File: "read.c"},
		{Name: "nrrdTypeSize", Kind: DataConst, File: "read.c"},
		{Name: "_nrrdWriteDataRaw", Kind: FuncExternal, File: "write.c"},
		{Name: "nrrdSave", Kind: FuncExternal, File: "write.c"},
	}
	if diff := cmp.Diff(want, tab.Symbols()); diff != "" {
		t.Fatalf("symbols mismatch (-want +got):\n%s", diff)
	}
	if got := bag.Count(diag.SymCurious); got != 1 {
		t.Fatalf("expected 1 curious-symbol warning, got %d", got)
	}
	if d := bag.Items()[0]; d.Primary.Line != 10 || d.Severity != diag.SevWarning {
		t.Fatalf("unexpected curious diagnostic %+v", d)
	}
}

func TestParseLinux(t *testing.T) {
	dump := "\nnio.o:\n0000000000000000 T nrrdIoStateNew\n                 U free\n"
	tab, err := Parse(dump, Options{Lib: "nrrd"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s, ok := tab.Lookup("nrrdIoStateNew")
	if !ok || s.File != "nio.c" || s.Kind != FuncExternal {
		t.Fatalf("unexpected lookup %+v %v", s, ok)
	}
}

func TestParseAliases(t *testing.T) {
	dump := "\n0000000000000000 T tend_anvolCmd\n0000000000000000 T tenTensorCheck\n"
	tab, err := Parse(dump, Options{Lib: "ten"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff([]string{"tend_anvolCmd", "tenTensorCheck"}, tab.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	// без алиаса тот же символ фатален
	_, err = Parse(dump, Options{Lib: "ten", Aliases: map[string][]string{}})
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Code != diag.SymLibraryNameMismatch {
		t.Fatalf("expected library-name mismatch, got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		dump   string
		under  bool
		code   diag.Code
		line   int
		reason string
	}{
		{
			name:  "missing underscore",
			dump:  "\n0000000000000000 T nrrdLoad\n",
			under: true,
			code:  diag.SymMalformed,
			line:  2,
		},
		{
			name: "prefix violation",
			dump: "\nlibnrrd.a(x.o):\n0000000000000000 T airFree\n",
			code: diag.SymPrefixViolation,
			line: 3,
		},
		{
			name: "unparsable tag",
			dump: "\n0000000000000000 D nrrd\n",
			code: diag.SymUnparsableLibraryTag,
			line: 2,
		},
		{
			name: "other library",
			dump: "\n0000000000000000 T nrrdxLoad\n",
			code: diag.SymLibraryNameMismatch,
			line: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.dump, Options{Lib: "nrrd", DropUnderscore: tt.under})
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if pe.Code != tt.code || pe.Line != tt.line {
				t.Fatalf("got %s at line %d, want %s at line %d", pe.Code.ID(), pe.Line, tt.code.ID(), tt.line)
			}
			if got := diag.FromError(err); got.Code != tt.code || got.Primary.Line != uint32(tt.line) {
				t.Fatalf("FromError lost code or location: %+v", got)
			}
		})
	}
}

func TestLocalFunctionsSkipPrefixCheck(t *testing.T) {
	tab, err := Parse("\n0000000000000000 t helper\n", Options{Lib: "nrrd"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tab.Len() != 1 {
		t.Fatalf("expected one symbol, got %d", tab.Len())
	}
}

func TestKindText(t *testing.T) {
	var k Kind
	if err := k.UnmarshalText([]byte("S")); err != nil || k != DataConst {
		t.Fatalf("UnmarshalText(S) = %v, %v", k, err)
	}
	if err := k.UnmarshalText([]byte("W")); err == nil {
		t.Fatal("expected error for W")
	}
	if !FuncLocal.IsFunc() || DataExternal.IsFunc() {
		t.Fatal("IsFunc misclassifies")
	}
}
