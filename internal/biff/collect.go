package biff

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"teemscan/internal/source"
)

// Entry is one annotated definition found in a library's sources.
type Entry struct {
	Func       string          `json:"func" yaml:"func" msgpack:"func"`
	Loc        source.Location `json:"location" yaml:"location" msgpack:"location"`
	Annotation Annotation      `json:"annotation" yaml:"annotation" msgpack:"annotation"`
	Text       string          `json:"text" yaml:"text" msgpack:"text"`
}

var (
	annotCommentRe = regexp.MustCompile(`/\*\s*(Biff[:?][^*]*?)\s*\*/`)
	defNameRe      = regexp.MustCompile(`^(\w+)\(`)
)

// Collect reads every .c file of dir (annotated copies excluded) and returns
// the annotated definitions sorted by function name. Annotations that do not
// parse are returned in bad and skipped.
func Collect(fs *source.FileSet, dir string) (entries []Entry, bad []error, err error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.c"))
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		if _, serr := os.Stat(dir); serr != nil {
			return nil, nil, serr
		}
	}
	for _, p := range paths {
		if strings.HasSuffix(p, "-annote.c") {
			continue
		}
		f, lerr := fs.LoadFile(p)
		if lerr != nil {
			return nil, nil, lerr
		}
		for i := 0; i+1 < f.Len(); i++ {
			m := annotCommentRe.FindStringSubmatch(f.Line(i))
			if m == nil {
				continue
			}
			nm := defNameRe.FindStringSubmatch(f.Line(i + 1))
			if nm == nil {
				continue
			}
			a, perr := ParseAnnotation(m[1])
			if perr != nil {
				bad = append(bad, fmt.Errorf("%s: %w", f.Location(i), perr))
				continue
			}
			entries = append(entries, Entry{Func: nm[1], Loc: f.Location(i), Annotation: a, Text: m[1]})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Func < entries[j].Func })
	return entries, bad, nil
}
