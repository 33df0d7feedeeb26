package diag

import (
	"fmt"
)

type Code uint16

// Коды x900 и выше - фатальные классы: они приходят из ошибок, а не из Reporter.
const (
	UnknownCode Code = 0

	// Таблица символов (nm)
	SymInfo                 Code = 1000
	SymCurious              Code = 1001
	SymGlobalData           Code = 1002
	SymPrefixViolation      Code = 1901
	SymMalformed            Code = 1902
	SymLibraryNameMismatch  Code = 1903
	SymUnparsableLibraryTag Code = 1904

	// Объявления в заголовках
	DeclInfo        Code = 2000
	DeclUnparsable  Code = 2901
	DeclKernelShape Code = 2902

	// Согласованность объявлений и определений
	ConInfo             Code = 3000
	ConUndeclared       Code = 3001
	ConUndefined        Code = 3002
	ConKindMismatch     Code = 3003
	ConLocalDeclared    Code = 3901
	ConToolchainFailure Code = 3902

	// Biff scan
	BiffInfo               Code = 4000
	BiffKeyMismatch        Code = 4001
	BiffAmbiguousDef       Code = 4002
	BiffMultipleReturns    Code = 4004
	BiffNotable            Code = 4005
	BiffProtocol           Code = 4901
	BiffDefinitionNotFound Code = 4902

	// Аннотации
	AnnInfo        Code = 5000
	AnnRefused     Code = 5001
	AnnOverwritten Code = 5002
	AnnAdded       Code = 5003
	AnnWritten     Code = 5004
	AnnVoidUses    Code = 5901

	// cdef
	CdefInfo         Code = 6000
	CdefStaleFixup   Code = 6901
	CdefGate         Code = 6902
	CdefUnterminated Code = 6903

	// ввод/вывод
	IOInfo  Code = 7000
	IOError Code = 7001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:             "Unknown error",
		SymInfo:                 "Symbol table information",
		SymCurious:              "Curious symbol",
		SymGlobalData:           "Library has global variable",
		SymPrefixViolation:      "Symbol does not start with library name",
		SymMalformed:            "Malformed symbol line",
		SymLibraryNameMismatch:  "Symbol implies another library",
		SymUnparsableLibraryTag: "Cannot parse library name from symbol",
		DeclInfo:                "Declaration information",
		DeclUnparsable:          "Unparsable declaration",
		DeclKernelShape:         "Kernel declaration of unexpected form",
		ConInfo:                 "Consistency information",
		ConUndeclared:           "Symbol not declared",
		ConUndefined:            "Declaration not defined",
		ConKindMismatch:         "Declaration and definition disagree",
		ConLocalDeclared:        "Static function declared in header",
		ConToolchainFailure:     "Toolchain invocation failed",
		BiffInfo:                "Biff scan information",
		BiffKeyMismatch:         "Biff key differs from library key",
		BiffAmbiguousDef:        "Several definitions of function",
		BiffMultipleReturns:     "Several error return values",
		BiffNotable:             "Non-trivial biff usage",
		BiffProtocol:            "Biff usage cannot be annotated",
		BiffDefinitionNotFound:  "Function definition not found",
		AnnInfo:                 "Annotation information",
		AnnRefused:              "Existing comment left untouched",
		AnnOverwritten:          "Existing comment overwritten",
		AnnAdded:                "Annotation added",
		AnnWritten:              "Annotated copy written",
		AnnVoidUses:             "Void function uses biff",
		CdefInfo:                "cdef information",
		CdefStaleFixup:          "Library fix-up marker not found",
		CdefGate:                "Conditional gate not defined",
		CdefUnterminated:        "Unterminated multi-line macro",
		IOInfo:                  "I/O information",
		IOError:                 "I/O error",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SYM%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("DEC%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CON%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("BIF%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("ANN%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("CDF%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Fatal reports whether the code belongs to a fatal class.
func (c Code) Fatal() bool {
	return int(c)%1000 >= 900
}

// MarshalText renders the stable ID.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.ID()), nil
}
