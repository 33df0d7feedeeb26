package driver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"teemscan/internal/cdef"
	"teemscan/internal/config"
	"teemscan/internal/pipeline"
	"teemscan/internal/trace"
)

// CdefOptions configure cdef generation.
type CdefOptions struct {
	Config    *config.Config
	OutDir    string // по умолчанию [cdef].out
	Check     bool
	Verbosity int
	Logger    *zap.Logger
	Sink      pipeline.ProgressSink
}

// NewCdefWriter builds the writer for the installed headers of cfg.
func NewCdefWriter(opts CdefOptions) (*cdef.Writer, error) {
	cfg := opts.Config
	hdrDir, err := cfg.HeaderDir()
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	out := opts.OutDir
	if out == "" {
		out = cfg.Cdef.Out
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &cdef.Writer{
		Sanitizer: cdef.NewSanitizer(reg, log, opts.Verbosity),
		HeaderDir: hdrDir,
		OutDir:    out,
		Headers:   cfg.HeadersFor,
		Check:     opts.Check,
		Logger:    log,
	}, nil
}

// GenerateCdef writes cdef_<lib>.h for every lib. A stale file in check mode
// does not stop the others; any other error does.
func GenerateCdef(ctx context.Context, w *cdef.Writer, libs []string, sink pipeline.ProgressSink) ([]cdef.Result, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "cdef")
	defer span.End("")

	results := make([]cdef.Result, 0, len(libs))
	var stale error
	for _, lib := range libs {
		pipeline.Emit(sink, pipeline.Event{Lib: lib, Stage: pipeline.StageCdef, Status: pipeline.StatusWorking})
		res, err := w.Generate(ctx, lib)
		if err != nil && errors.Is(err, cdef.ErrStale) {
			stale = multierr.Append(stale, err)
			pipeline.Emit(sink, pipeline.Event{Lib: lib, Stage: pipeline.StageCdef, Status: pipeline.StatusError, Err: err})
			results = append(results, res)
			continue
		}
		if err != nil {
			pipeline.Emit(sink, pipeline.Event{Lib: lib, Stage: pipeline.StageCdef, Status: pipeline.StatusError, Err: err})
			return results, multierr.Append(stale, err)
		}
		pipeline.Emit(sink, pipeline.Event{
			Lib: lib, Stage: pipeline.StageCdef, Status: pipeline.StatusDone,
			Detail: fmt.Sprintf("%d lines", res.Lines),
		})
		results = append(results, res)
	}
	return results, stale
}

// LibsForHeaders maps changed header names back to the libraries whose
// cdef output includes them.
func LibsForHeaders(cfg *config.Config, libs []string, headers []string) []string {
	out := make([]string, 0, len(libs))
	for _, lib := range libs {
		for _, h := range cfg.HeadersFor(lib) {
			if slices.Contains(headers, h) {
				out = append(out, lib)
				break
			}
		}
	}
	return out
}

// WatchCdef regenerates cdef output of libs whenever one of their installed
// headers settles after a change. It blocks until ctx is cancelled.
func WatchCdef(ctx context.Context, w *cdef.Writer, cfg *config.Config, libs []string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	watcher := &cdef.Watcher{
		Dir:    w.HeaderDir,
		Logger: log,
		OnChange: func(ctx context.Context, headers []string) error {
			affected := LibsForHeaders(cfg, libs, headers)
			if len(affected) == 0 {
				return nil
			}
			log.Info("headers changed", zap.String("headers", strings.Join(headers, " ")), zap.Strings("libs", affected))
			_, err := GenerateCdef(ctx, w, affected, nil)
			return err
		},
	}
	return watcher.Run(ctx)
}
