package cdef

import (
	"regexp"
	"strings"
)

// Rule is one entry of the line classification cascade. Every rule drops the
// lines it matches; a line no rule matches is kept.
type Rule struct {
	Name  string
	Match func(line string) bool
}

var (
	includeRe     = regexp.MustCompile(`^# *include `)
	defineStrRe   = regexp.MustCompile(`^#define +\S+ +"[^"]+"`)
	defineCharRe  = regexp.MustCompile(`^#define +\S+ +'.'`)
	defineFloatRe = regexp.MustCompile(`^#define +\S+ +[0-9]+\.[0-9]+`)
	defineAliasRe = regexp.MustCompile(`^#define +\S+ +[a-zA-Z_]+$`)
	macroStartRe  = regexp.MustCompile(`^#define +\S+ *\([^)]+\) +\S*?\([^)]+?\).*?$`)
	defineParenA  = regexp.MustCompile(`^#define +\S+ +\(.*?\)$`)
	defineParenB  = regexp.MustCompile(`^#define +\S+ +\([^()]*?\([^()]*?\)[^()]*?\)$`)
	exportRe      = regexp.MustCompile(`^[A-Z]+_EXPORT `)
)

// Rules is the classification cascade in priority order. Later rules assume
// the earlier ones already removed their targets, so the order is part of the
// behaviour.
var Rules = []Rule{
	{Name: "guard-or-include", Match: func(l string) bool {
		return strings.Contains(l, "HAS_BEEN_INCLUDED") || includeRe.MatchString(l)
	}},
	{Name: "define-string", Match: defineStrRe.MatchString},
	{Name: "define-char", Match: defineCharRe.MatchString},
	{Name: "define-float", Match: defineFloatRe.MatchString},
	{Name: "define-alias", Match: defineAliasRe.MatchString},
	{Name: "one-line-macro", Match: func(l string) bool {
		return macroStartRe.MatchString(l) && !strings.HasSuffix(l, `\`)
	}},
	{Name: "define-paren", Match: func(l string) bool {
		return defineParenA.MatchString(l) || defineParenB.MatchString(l)
	}},
	{Name: "define-other-paren", Match: func(l string) bool {
		return strings.HasPrefix(l, "#define") && strings.Contains(l, "(")
	}},
}

// ClassifyLine runs the cascade on one line. It returns the line to keep, with
// a leading LIB_EXPORT rewritten to extern, or "" and the name of the rule that
// dropped it.
func ClassifyLine(line string) (kept, rule string) {
	for _, r := range Rules {
		if r.Match(line) {
			return "", r.Name
		}
	}
	return exportRe.ReplaceAllString(line, "extern "), ""
}
