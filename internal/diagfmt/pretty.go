package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"teemscan/internal/diag"
)

const severityWidth = len("WARNING")

type palette struct {
	sev  map[diag.Severity]*color.Color
	code *color.Color
	loc  *color.Color
	note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan),
		},
		code: color.New(color.Faint),
		loc:  color.New(color.Bold),
		note: color.New(color.FgBlue),
	}
	for _, c := range p.sev {
		setColor(c, enabled)
	}
	setColor(p.code, enabled)
	setColor(p.loc, enabled)
	setColor(p.note, enabled)
	return p
}

func setColor(c *color.Color, enabled bool) {
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее), по строке на diag:
// <path>:<line>: <SEV> <CODE>: <Message>
// затем Notes с отступом.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	var errs, warns int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
		loc := formatLocation(d.Primary, opts.PathMode, opts.BaseDir)
		sev := runewidth.FillRight(d.Severity.String(), severityWidth)
		line := fmt.Sprintf("%s: %s %s: %s", p.loc.Sprint(loc), p.sev[d.Severity].Sprint(sev), p.code.Sprint(d.Code.ID()), d.Message)
		if loc == "" {
			line = fmt.Sprintf("%s %s: %s", p.sev[d.Severity].Sprint(sev), p.code.Sprint(d.Code.ID()), d.Message)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			nloc := formatLocation(n.Loc, opts.PathMode, opts.BaseDir)
			if _, err := fmt.Fprintf(w, "    %s %s: %s\n", p.note.Sprint("note:"), nloc, n.Msg); err != nil {
				return err
			}
		}
	}
	if opts.Summary {
		if _, err := fmt.Fprintln(w, summary(errs, warns)); err != nil {
			return err
		}
	}
	return nil
}

func summary(errs, warns int) string {
	parts := make([]string, 0, 2)
	parts = append(parts, plural(errs, "error"), plural(warns, "warning"))
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
