package biff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"teemscan/internal/decls"
)

func TestAnnotationString(t *testing.T) {
	tests := []struct {
		a    Annotation
		want string
	}{
		{Annotation{Tentative: true}, "Biff? nope"},
		{Annotation{Tentative: true, Private: true}, "Biff? (private) nope"},
		{Annotation{Usage: UsageAlways, Returns: []string{"1"}}, "Biff: 1"},
		{Annotation{Usage: UsageAlways, Returns: []string{"0", "NULL"}}, "Biff: 0|NULL"},
		{Annotation{Tentative: true, Private: true, Usage: UsageMaybe, Returns: []string{"1"}, GateParam: 3}, "Biff? (private) maybe:3:1"},
		{Annotation{Usage: UsageAlways, Returns: []string{"1"}, Note: "sets errno too"}, "Biff: 1 # sets errno too"},
	}
	for _, tt := range tests {
		if got := tt.a.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestAnnotationTrivial(t *testing.T) {
	tests := []struct {
		a    Annotation
		want bool
	}{
		{Annotation{}, true},
		{Annotation{Private: true}, true},
		{Annotation{Usage: UsageAlways, Returns: []string{"1"}}, true},
		{Annotation{Usage: UsageAlways, Returns: []string{"NULL"}}, false},
		{Annotation{Usage: UsageAlways, Returns: []string{"1", "2"}}, false},
		{Annotation{Usage: UsageMaybe, Returns: []string{"1"}, GateParam: 1}, false},
	}
	for _, tt := range tests {
		if got := tt.a.Trivial(); got != tt.want {
			t.Errorf("%q Trivial() = %v, want %v", tt.a, got, tt.want)
		}
	}
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		in   string
		want Annotation
	}{
		{"Biff: 1", Annotation{Usage: UsageAlways, Returns: []string{"1"}}},
		{"/* Biff: nope */", Annotation{}},
		{"Biff? (private) maybe:3:0", Annotation{Tentative: true, Private: true, Usage: UsageMaybe, Returns: []string{"0"}, GateParam: 3}},
		{"Biff: 0|NULL # see README", Annotation{Usage: UsageAlways, Returns: []string{"0", "NULL"}, Note: "see README"}},
		{"  /* Biff:  AIR_NAN */  ", Annotation{Usage: UsageAlways, Returns: []string{"AIR_NAN"}}},
	}
	for _, tt := range tests {
		got, err := ParseAnnotation(tt.in)
		if err != nil {
			t.Errorf("ParseAnnotation(%q): %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("ParseAnnotation(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestParseAnnotationRoundTrip(t *testing.T) {
	for _, s := range []string{
		"Biff: 1",
		"Biff? nope",
		"Biff: (private) NULL",
		"Biff: 0|NULL # see README",
		"Biff? (private) maybe:2:1",
	} {
		a, err := ParseAnnotation(s)
		if err != nil {
			t.Fatalf("ParseAnnotation(%q): %v", s, err)
		}
		if got := a.String(); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}

func TestParseAnnotationErrors(t *testing.T) {
	for _, s := range []string{
		"returns 1 on error",
		"Biff:",
		"Biff: maybe:x:1",
		"Biff: maybe:0:1",
		"Biff: 1|2|3",
		"Biff: 1|",
	} {
		if _, err := ParseAnnotation(s); err == nil {
			t.Errorf("ParseAnnotation(%q) succeeded", s)
		}
	}
}

func TestFromRecord(t *testing.T) {
	rec := &Record{Visibility: decls.Private, Usage: UsageMaybe, Returns: []string{"1"}, GateParam: 4}
	if got := FromRecord(rec).String(); got != "Biff? (private) maybe:4:1" {
		t.Errorf("got %q", got)
	}
	rec = &Record{Visibility: decls.Static}
	if got := FromRecord(rec).Comment(); got != "/* Biff? nope */" {
		t.Errorf("got %q", got)
	}
}
