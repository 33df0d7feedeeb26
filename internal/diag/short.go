package diag

import (
	"cmp"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
)

// shortLine is one row of the short listing; notes get their own rows.
type shortLine struct {
	path string
	line uint32
	sev  string
	code string
	msg  string
}

// WriteShort writes one "path:line: severity CODE: message" row per
// diagnostic, ordered by location. The ordering does not depend on the
// order in which libraries finished, so the listing diffs cleanly between
// runs.
func WriteShort(w io.Writer, diags []Diagnostic, withNotes bool) error {
	rows := make([]shortLine, 0, len(diags))
	for i := range diags {
		d := &diags[i]
		rows = append(rows, shortLine{
			path: cleanPath(d.Primary.Path),
			line: d.Primary.Line,
			sev:  strings.ToLower(d.Severity.String()),
			code: d.Code.ID(),
			msg:  oneLine(d.Message),
		})
		if !withNotes {
			continue
		}
		for _, n := range d.Notes {
			rows = append(rows, shortLine{
				path: cleanPath(n.Loc.Path),
				line: n.Loc.Line,
				sev:  "note",
				code: d.Code.ID(),
				msg:  oneLine(n.Msg),
			})
		}
	}
	slices.SortStableFunc(rows, func(a, b shortLine) int {
		return cmp.Or(
			cmp.Compare(a.path, b.path),
			cmp.Compare(a.line, b.line),
			cmp.Compare(a.code, b.code),
			cmp.Compare(a.msg, b.msg),
		)
	})
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s:%d: %s %s: %s\n", r.path, r.line, r.sev, r.code, r.msg); err != nil {
			return err
		}
	}
	return nil
}

func cleanPath(path string) string {
	if path == "" {
		return "-"
	}
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

// oneLine схлопывает переводы строк в пробелы.
func oneLine(msg string) string {
	return strings.Join(strings.Fields(msg), " ")
}
