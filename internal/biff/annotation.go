package biff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"teemscan/internal/decls"
)

// Annotation is the content of a `/* Biff: ... */` comment.
//
//	Biff: nope                 no biff usage
//	Biff: 1                    always, error return 1
//	Biff: 0|NULL               always, two error returns
//	Biff: maybe:3:0            biff only when parameter 3 (useBiff) is true
//	Biff? (private) 1          proposed by the scanner, not yet confirmed
//	Biff: 1 # note             trailing free-form note
type Annotation struct {
	Tentative bool     `json:"tentative,omitempty" yaml:"tentative,omitempty" msgpack:"tentative,omitempty"` // "Biff?" rather than "Biff:"
	Private   bool     `json:"private,omitempty" yaml:"private,omitempty" msgpack:"private,omitempty"`
	Usage     Usage    `json:"usage" yaml:"usage" msgpack:"usage"`
	Returns   []string `json:"returns,omitempty" yaml:"returns,omitempty" msgpack:"returns,omitempty"`
	GateParam int      `json:"gate_param,omitempty" yaml:"gate_param,omitempty" msgpack:"gate_param,omitempty"` // 1-based, only for UsageMaybe
	Note      string   `json:"note,omitempty" yaml:"note,omitempty" msgpack:"note,omitempty"`
}

// String renders the canonical form, without the comment delimiters.
func (a Annotation) String() string {
	var b strings.Builder
	if a.Tentative {
		b.WriteString("Biff? ")
	} else {
		b.WriteString("Biff: ")
	}
	if a.Private {
		b.WriteString("(private) ")
	}
	switch {
	case a.Usage == UsageNone || len(a.Returns) == 0:
		b.WriteString("nope")
	case a.Usage == UsageMaybe:
		fmt.Fprintf(&b, "maybe:%d:%s", a.GateParam, a.Returns[0])
	default:
		b.WriteString(strings.Join(a.Returns, "|"))
	}
	if a.Note != "" {
		b.WriteString(" # ")
		b.WriteString(a.Note)
	}
	return b.String()
}

// Comment wraps the annotation in comment delimiters.
func (a Annotation) Comment() string {
	return "/* " + a.String() + " */"
}

// Trivial reports the common cases that are not worth logging: no usage, or
// a single error return of 1.
func (a Annotation) Trivial() bool {
	if a.Usage == UsageNone {
		return true
	}
	return a.Usage == UsageAlways && len(a.Returns) == 1 && a.Returns[0] == "1"
}

// FromRecord builds the tentative annotation for a scanned function.
func FromRecord(r *Record) Annotation {
	return Annotation{
		Tentative: true,
		Private:   r.Visibility == decls.Private,
		Usage:     r.Usage,
		Returns:   r.Returns,
		GateParam: r.GateParam,
	}
}

var (
	annotationRe = regexp.MustCompile(`^Biff([:?]) +(\(private\) +)?([^#]*?) *(?:# *(.*?))?$`)
	maybeRe      = regexp.MustCompile(`^maybe:([0-9]+):(.+)$`)
)

// ParseAnnotation reads an annotation, with or without the `/* */` delimiters.
func ParseAnnotation(text string) (Annotation, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "/*") && strings.HasSuffix(s, "*/") {
		s = strings.TrimSpace(s[2 : len(s)-2])
	}
	m := annotationRe.FindStringSubmatch(s)
	if m == nil {
		return Annotation{}, fmt.Errorf("not a biff annotation: %q", text)
	}
	a := Annotation{
		Tentative: m[1] == "?",
		Private:   m[2] != "",
		Note:      strings.TrimSpace(m[4]),
	}
	body := m[3]
	switch {
	case body == "nope":
		a.Usage = UsageNone
	case strings.HasPrefix(body, "maybe:"):
		mm := maybeRe.FindStringSubmatch(body)
		if mm == nil {
			return Annotation{}, fmt.Errorf("malformed maybe annotation: %q", text)
		}
		n, err := strconv.Atoi(mm[1])
		if err != nil || n < 1 {
			return Annotation{}, fmt.Errorf("bad useBiff parameter in %q", text)
		}
		a.Usage, a.GateParam, a.Returns = UsageMaybe, n, []string{mm[2]}
	case body == "":
		return Annotation{}, fmt.Errorf("empty biff annotation: %q", text)
	default:
		a.Usage = UsageAlways
		a.Returns = strings.Split(body, "|")
		if len(a.Returns) > 2 {
			return Annotation{}, fmt.Errorf("more than two error returns in %q", text)
		}
		for _, r := range a.Returns {
			if r == "" {
				return Annotation{}, fmt.Errorf("empty error return in %q", text)
			}
		}
	}
	return a, nil
}
