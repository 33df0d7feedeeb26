package main

import (
	"fmt"
	"io"
	"time"

	"teemscan/internal/diag"
	"teemscan/internal/diagfmt"
	"teemscan/internal/driver"
	"teemscan/internal/observ"
	"teemscan/internal/pipeline"
)

func renderDiagnostics(out io.Writer, bag *diag.Bag, format string, fullPath bool, baseDir string) error {
	mode := diagfmt.PathModeRelative
	if fullPath {
		mode = diagfmt.PathModeAbsolute
	}
	switch format {
	case "pretty":
		return diagfmt.Pretty(out, bag, diagfmt.PrettyOpts{
			Color:     colorEnabled(),
			PathMode:  mode,
			BaseDir:   baseDir,
			ShowNotes: true,
			Summary:   true,
		})
	case "json":
		return diagfmt.JSON(out, bag, diagfmt.JSONOpts{PathMode: mode, BaseDir: baseDir, IncludeNotes: true})
	case "msgpack":
		return diagfmt.Msgpack(out, bag, diagfmt.JSONOpts{PathMode: mode, BaseDir: baseDir, IncludeNotes: true})
	case "short":
		return diag.WriteShort(out, bag.Items(), true)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// printTimings пишет время этапов по библиотекам и общий отчёт таймера.
func printTimings(out io.Writer, results []*driver.LibraryResult, timer *observ.Timer) {
	for _, r := range results {
		if r == nil {
			continue
		}
		fmt.Fprintf(out, "%s:", r.Lib)
		for _, st := range pipeline.Stages {
			if r.Timings.Has(st) {
				fmt.Fprintf(out, " %s %.1f ms", st, toMillis(r.Timings.Duration(st)))
			}
		}
		fmt.Fprintf(out, " (total %.1f ms)\n", toMillis(r.Timings.Sum(pipeline.Stages...)))
	}
	fmt.Fprint(out, timer.Summary())
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
