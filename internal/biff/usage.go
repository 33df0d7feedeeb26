package biff

import (
	"fmt"
	"regexp"
	"strings"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

// Usage is how a function body uses biff.
type Usage uint8

const (
	UsageNone   Usage = iota
	UsageAlways       // biffAdd*, biffMove*
	UsageMaybe        // biffMaybeAdd*, guarded by a useBiff parameter
)

func (u Usage) String() string {
	switch u {
	case UsageNone:
		return "none"
	case UsageAlways:
		return "always"
	case UsageMaybe:
		return "maybe"
	default:
		return "unknown"
	}
}

func (u Usage) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

var (
	maybeKeyRe  = regexp.MustCompile(`^biff\w+\(useBiff, (\w+),`)
	alwaysKeyRe = regexp.MustCompile(`^biff\w+\((\w+),`)
)

// ScanError aborts the scan of a library: the code breaks the conventions
// the scanner relies on.
type ScanError struct {
	File   string
	Line   int // 1-based
	Text   string
	Reason string
	Code   diag.Code // 0 means BiffProtocol
}

func (e *ScanError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s:%d: %s: |%s|", e.File, e.Line, e.Reason, e.Text)
}

func (e *ScanError) DiagCode() diag.Code {
	if e.Code == 0 {
		return diag.BiffProtocol
	}
	return e.Code
}

func (e *ScanError) DiagLocation() source.Location { return source.At(e.File, e.Line) }

// ClassifyCall inspects one body line. Only the call forms below count; the
// prefix match covers both biffAdd and biffAddf. key is the biff key
// argument, "" for UsageNone.
func ClassifyCall(line string) (usage Usage, key string, reason string) {
	s := strings.TrimLeft(line, " \t")
	var re *regexp.Regexp
	switch {
	case strings.HasPrefix(s, "biffMaybeAdd"):
		usage, re = UsageMaybe, maybeKeyRe
	case strings.HasPrefix(s, "biffAdd"), strings.HasPrefix(s, "biffMove"):
		usage, re = UsageAlways, alwaysKeyRe
	case strings.HasPrefix(s, "biff"):
		return UsageNone, "", "confusing biff"
	default:
		return UsageNone, "", ""
	}
	m := re.FindStringSubmatch(s)
	if m == nil {
		return UsageNone, "", "unparsable biff call"
	}
	return usage, m[1], ""
}

func (u *Usage) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none":
		*u = UsageNone
	case "always":
		*u = UsageAlways
	case "maybe":
		*u = UsageMaybe
	default:
		return fmt.Errorf("biff: bad usage %q", b)
	}
	return nil
}
