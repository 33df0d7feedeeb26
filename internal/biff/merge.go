package biff

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

// Level controls how far the annotator may go.
type Level int

const (
	LevelOff       Level = iota
	LevelScan            // report only
	LevelAdd             // add missing annotations, never touch existing comments
	LevelOverwrite       // also replace foreign comments and stale annotations
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelScan:
		return "scan"
	case LevelAdd:
		return "add"
	case LevelOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Outcome of merging a proposed annotation into a line.
type Outcome uint8

const (
	Unchanged Outcome = iota
	Added
	Overwritten
	Refused
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Overwritten:
		return "overwritten"
	case Refused:
		return "refused"
	default:
		return "unknown"
	}
}

// DefaultVoidExceptions may return void and still call biff: the PNG error
// handlers report through setjmp/longjmp.
var DefaultVoidExceptions = []string{"_nrrdErrorHandlerPNG", "_nrrdWarningHandlerPNG"}

// MergeResult is the new text of the annotation line.
type MergeResult struct {
	Line    string
	Outcome Outcome
	// OldComment is the comment found on the line, if any.
	OldComment string
	Reason     string
}

// Changed reports whether the line must be rewritten.
func (r MergeResult) Changed() bool {
	return r.Outcome == Added || r.Outcome == Overwritten
}

// VoidUsesError: a function returning void cannot report a biff error.
type VoidUsesError struct {
	Func       string
	Loc        source.Location
	Qualifiers []string
	Annotation string
}

func (e *VoidUsesError) Error() string {
	return fmt.Sprintf("%s (for %s) returns %q but uses biff (annote=%s)", e.Loc, e.Func, e.Qualifiers, e.Annotation)
}

func (e *VoidUsesError) DiagCode() diag.Code { return diag.AnnVoidUses }

func (e *VoidUsesError) DiagLocation() source.Location { return e.Loc }

var (
	trailingCommentRe = regexp.MustCompile(`^.+?(/\*.*\*/)`)
	notedCommentRe    = regexp.MustCompile(`^/\*(.+?)(#.*)\*/`)
)

// Merger applies a Level to annotation lines.
type Merger struct {
	Level          Level
	VoidExceptions []string
}

// Merge folds annote (the bare "Biff? ..." text) into line, the line holding
// the return type of fn. loc is used for error reporting only.
func (m Merger) Merge(line, annote, fn string, loc source.Location) (MergeResult, error) {
	ncmt := "/* " + annote + " */"
	confirmed := strings.Replace(annote, "Biff?", "Biff:", 1)
	res := MergeResult{Line: line, Outcome: Unchanged}

	mm := trailingCommentRe.FindStringSubmatch(line)
	if mm == nil {
		doesBiff := !isNope(annote)
		quals := strings.Split(strings.ReplaceAll(strings.TrimSpace(line), "void *", "void*"), " ")
		isVoid := slices.Contains(quals, "void")
		if isVoid && doesBiff && !slices.Contains(m.voidExceptions(), fn) {
			return res, &VoidUsesError{Func: fn, Loc: loc, Qualifiers: quals, Annotation: annote}
		}
		// static без biff: норма, не аннотируем
		if !isVoid && (!slices.Contains(quals, "static") || doesBiff) {
			res.Line = line + " " + ncmt
			res.Outcome = Added
		}
		return res, nil
	}

	ocmt := mm[1]
	res.OldComment = ocmt
	switch {
	case !strings.HasPrefix(ocmt, "/* Biff"):
		return m.overwrite(res, ocmt, ncmt, "has a comment that isn't a Biff annotation"), nil
	case ocmt == ncmt, ocmt == "/* "+confirmed+" */":
		return res, nil
	}
	if nm := notedCommentRe.FindStringSubmatch(ocmt); nm != nil {
		onote := strings.TrimSpace(nm[1])
		if onote == annote || onote == confirmed {
			return res, nil
		}
		return m.overwrite(res, ocmt, ncmt, fmt.Sprintf("has an annotation with note %q that really differs from %q", nm[2], annote)), nil
	}
	return m.overwrite(res, ocmt, ncmt, "has a comment that maybe is a Biff annotation"), nil
}

func (m Merger) overwrite(res MergeResult, ocmt, ncmt, reason string) MergeResult {
	if m.Level < LevelOverwrite {
		res.Outcome = Refused
		res.Reason = fmt.Sprintf("%s, refusing to touch it at level %d", reason, int(m.Level))
		return res
	}
	line := strings.ReplaceAll(res.Line, ocmt, ncmt)
	res.Reason = reason
	if line != res.Line {
		res.Line = line
		res.Outcome = Overwritten
	}
	return res
}

func (m Merger) voidExceptions() []string {
	if m.VoidExceptions == nil {
		return DefaultVoidExceptions
	}
	return m.VoidExceptions
}

func isNope(annote string) bool {
	return annote == "Biff? nope" || annote == "Biff? (private) nope"
}
