// Package driver runs the per-library passes: build, symbol dump,
// declarations, consistency check and biff annotation.
package driver

import (
	"go.uber.org/zap"

	"teemscan/internal/biff"
	"teemscan/internal/config"
	"teemscan/internal/diag"
	"teemscan/internal/logging"
	"teemscan/internal/observ"
	"teemscan/internal/pipeline"
	"teemscan/internal/source"
)

// Options are shared by every library of one run. Nothing here is mutated
// by a scan.
type Options struct {
	Config    *config.Config
	Toolchain Toolchain
	// BiffLevel: 0 off, 1 scan only, 2 add annotations, 3 also overwrite.
	BiffLevel biff.Level
	Clean     bool
	// NMFile replaces build + nm with a saved dump. Only valid for one library.
	NMFile         string
	MaxDiagnostics int
	Logger         *zap.Logger
	Sink           pipeline.ProgressSink
	Timer          *observ.Timer
}

// Context is the state of one library scan: its own line cache and
// diagnostics bag.
type Context struct {
	Lib      string
	Opts     *Options
	FileSet  *source.FileSet
	Bag      *diag.Bag
	Reporter diag.Reporter
	Logger   *zap.Logger
	Timings  pipeline.Timings
}

// NewContext prepares a Context for lib.
func NewContext(lib string, opts *Options) *Context {
	bag := diag.NewBag(opts.MaxDiagnostics)
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		Lib:      lib,
		Opts:     opts,
		FileSet:  source.NewFileSetWithBase(opts.Config.LibDir(lib)),
		Bag:      bag,
		Reporter: diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		Logger:   logging.ForLibrary(log, lib),
	}
}

func (c *Context) emit(stage pipeline.Stage, status pipeline.Status, detail string) {
	pipeline.Emit(c.Opts.Sink, pipeline.Event{Lib: c.Lib, Stage: stage, Status: status, Detail: detail})
}
