package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"teemscan/internal/biff"
	"teemscan/internal/consistency"
	"teemscan/internal/decls"
	"teemscan/internal/diag"
	"teemscan/internal/fix"
	"teemscan/internal/pipeline"
	"teemscan/internal/source"
	"teemscan/internal/symtab"
	"teemscan/internal/trace"
)

// LibraryResult is what one library scan produced. Bag holds every
// diagnostic, including the fatal one when Err is set.
type LibraryResult struct {
	Lib     string
	Bag     *diag.Bag
	Symbols int
	Decls   int
	Queued  int
	Records []*biff.Record
	Applied int
	Changes []fix.FileChange
	Timings pipeline.Timings
	Err     error
}

// ScanLibrary runs every stage for lib. The returned result is never nil;
// the error is the fatal one that stopped the scan.
func ScanLibrary(ctx context.Context, lib string, opts *Options) (*LibraryResult, error) {
	c := NewContext(lib, opts)
	res := &LibraryResult{Lib: lib, Bag: c.Bag}

	ctx, span := trace.Start(trace.WithLibrary(ctx, lib), trace.ScopeLibrary, "scan")
	err := c.run(ctx, res)
	if err != nil {
		res.Err = err
		if !errors.Is(err, context.Canceled) {
			c.Bag.Add(diag.FromError(err))
		}
		span.WithExtra("error", err.Error())
		// ошибка могла случиться до первого этапа
		pipeline.Emit(opts.Sink, pipeline.Event{Lib: lib, Status: pipeline.StatusError, Err: err})
	}
	span.End("")
	res.Timings = c.Timings
	return res, err
}

func (c *Context) run(ctx context.Context, res *LibraryResult) error {
	opts := c.Opts
	cfg := opts.Config
	libDir := cfg.LibDir(c.Lib)
	c.Logger.Info("========== scanning " + c.Lib)

	if opts.NMFile == "" {
		if err := cfg.CheckLayout(c.Lib); err != nil {
			return err
		}
	} else if st, err := os.Stat(libDir); err != nil || !st.IsDir() {
		return fmt.Errorf("do not see library %q subdir in \"src\" subdir", c.Lib)
	}

	if opts.NMFile == "" {
		err := c.stage(ctx, pipeline.StageBuild, func(ctx context.Context) (string, error) {
			return "", opts.Toolchain.Build(ctx, libDir, opts.Clean)
		})
		if err != nil {
			return err
		}
	} else {
		c.emit(pipeline.StageBuild, pipeline.StatusSkipped, "--nm-file")
	}

	var syms *symtab.Table
	err := c.stage(ctx, pipeline.StageSymbols, func(ctx context.Context) (string, error) {
		dump, dumpName, err := c.symbolDump(ctx)
		if err != nil {
			return "", err
		}
		syms, err = symtab.Parse(dump, symtab.Options{
			Lib:            c.Lib,
			Dump:           dumpName,
			DropUnderscore: cfg.Scan.DropUnderscore,
			Aliases:        cfg.Scan.Aliases,
			Reporter:       c.Reporter,
		})
		if err != nil {
			return "", err
		}
		return strconv.Itoa(syms.Len()) + " symbols", nil
	})
	if err != nil {
		return err
	}
	res.Symbols = syms.Len()

	var ds *decls.Set
	err = c.stage(ctx, pipeline.StageDecls, func(context.Context) (string, error) {
		var err error
		ds, err = decls.NewExtractor(c.Lib, c.Logger, cfg.Scan.ExtraTypes...).ExtractDir(c.FileSet, libDir)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(ds.Len()) + " declarations", nil
	})
	if err != nil {
		return err
	}
	res.Decls = ds.Len()

	var checked consistency.Result
	err = c.stage(ctx, pipeline.StageCheck, func(context.Context) (string, error) {
		var err error
		checked, err = consistency.Check(syms, ds, consistency.Options{
			Lib:        c.Lib,
			Biff:       opts.BiffLevel >= biff.LevelScan,
			BiffExempt: cfg.Scan.BiffExempt,
			Exceptions: cfg.Scan.Exceptions,
			Reporter:   c.Reporter,
			Logger:     c.Logger,
		})
		return "", err
	})
	if err != nil {
		return err
	}
	res.Queued = len(checked.Queue)

	if opts.BiffLevel < biff.LevelScan || len(checked.Queue) == 0 {
		c.emit(pipeline.StageBiff, pipeline.StatusSkipped, "")
		c.emit(pipeline.StageFlush, pipeline.StatusSkipped, "")
		return nil
	}

	var edits []fix.LineEdit
	err = c.stage(ctx, pipeline.StageBiff, func(ctx context.Context) (string, error) {
		var err error
		res.Records, edits, err = c.scanBiff(ctx, libDir, checked.Queue)
		return fmt.Sprintf("%d scanned", len(res.Records)), err
	})
	if err != nil {
		return err
	}

	if opts.BiffLevel < biff.LevelAdd || len(edits) == 0 {
		c.emit(pipeline.StageFlush, pipeline.StatusSkipped, "")
		return nil
	}
	return c.stage(ctx, pipeline.StageFlush, func(ctx context.Context) (string, error) {
		applied, err := fix.Apply(c.FileSet, edits)
		if err != nil && !errors.Is(err, fix.ErrNoFixes) {
			return "", err
		}
		for _, sk := range applied.Skipped {
			c.Logger.Warn("annotation not applied", zap.String("id", sk.ID), zap.Stringer("loc", sk.Loc), zap.String("reason", sk.Reason))
		}
		res.Applied = len(applied.Applied)
		changes, err := fix.Flush(ctx, c.FileSet)
		res.Changes = changes
		if err != nil {
			return "", err
		}
		for _, ch := range changes {
			diag.ReportInfo(c.Reporter, diag.AnnWritten, source.Location{Path: ch.Output},
				fmt.Sprintf("wrote %d annotations in %s", ch.EditCount, ch.Output)).Emit()
		}
		return fmt.Sprintf("%d files", len(changes)), nil
	})
}

// symbolDump returns the nm output of the library archive, or the saved dump
// given by --nm-file, with the name used in diagnostics.
func (c *Context) symbolDump(ctx context.Context) (string, string, error) {
	if c.Opts.NMFile != "" {
		raw, err := os.ReadFile(c.Opts.NMFile)
		if err != nil {
			return "", "", fmt.Errorf("read symbol dump: %w", err)
		}
		return string(raw), c.Opts.NMFile, nil
	}
	archive, err := c.Opts.Config.Archive(c.Lib)
	if err != nil {
		return "", "", err
	}
	c.Logger.Info("running nm", zap.String("archive", archive))
	out, err := c.Opts.Toolchain.SymbolDump(ctx, archive)
	if err != nil {
		return "", "", err
	}
	return out, "nm " + filepath.Base(archive), nil
}

// scanBiff scans every queued function and, at level 2 and up, turns the merged
// annotation lines into edits.
func (c *Context) scanBiff(ctx context.Context, libDir string, queue []consistency.QueueItem) ([]*biff.Record, []fix.LineEdit, error) {
	sc := biff.Scanner{
		Lib:      c.Lib,
		Dir:      libDir,
		FileSet:  c.FileSet,
		Reporter: c.Reporter,
		Logger:   c.Logger,
	}
	merger := biff.Merger{Level: c.Opts.BiffLevel, VoidExceptions: c.Opts.Config.Scan.VoidExceptions}

	records := make([]*biff.Record, 0, len(queue))
	var edits []fix.LineEdit
	for _, q := range queue {
		if err := ctx.Err(); err != nil {
			return records, edits, err
		}
		rec, err := sc.Scan(q.Func, q.File, q.Visibility)
		if err != nil {
			return records, edits, err
		}
		if rec == nil {
			continue
		}
		records = append(records, rec)
		trace.Point(ctx, trace.ScopeItem, "biff:"+rec.Func, rec.Annotation)
		if c.Opts.BiffLevel < biff.LevelAdd {
			continue
		}

		f, ok := c.FileSet.GetByPath(filepath.Join(libDir, q.File))
		if !ok {
			return records, edits, fmt.Errorf("biff %s: %s not loaded", q.Func, q.File)
		}
		if rec.Line < 0 {
			diag.ReportWarning(c.Reporter, diag.AnnRefused, f.Location(rec.DefLine),
				fmt.Sprintf("%s is defined on the first line, no room for an annotation", q.Func)).Emit()
			continue
		}
		loc := f.Location(rec.Line)
		line := f.Line(rec.Line)
		mr, err := merger.Merge(line, rec.Annotation, rec.Func, loc)
		if err != nil {
			return records, edits, err
		}
		switch mr.Outcome {
		case biff.Refused:
			diag.ReportWarning(c.Reporter, diag.AnnRefused, loc, fmt.Sprintf("%s %s", q.Func, mr.Reason)).Emit()
		case biff.Overwritten:
			diag.ReportInfo(c.Reporter, diag.AnnOverwritten, loc,
				fmt.Sprintf("%s %s; deleting old comment %s", q.Func, mr.Reason, mr.OldComment)).Emit()
		case biff.Added:
			diag.ReportInfo(c.Reporter, diag.AnnAdded, loc, fmt.Sprintf("/* %s */ for %s", rec.Annotation, q.Func)).Emit()
		}
		if !mr.Changed() {
			continue
		}
		code := diag.AnnAdded
		if mr.Outcome == biff.Overwritten {
			code = diag.AnnOverwritten
		}
		edits = append(edits, fix.LineEdit{
			ID:      rec.Func,
			Code:    code,
			Path:    f.Path,
			Line:    rec.Line,
			OldText: line,
			NewText: mr.Line,
			Func:    rec.Func,
		})
	}
	return records, edits, nil
}

// stage wraps fn with progress events, a pass span and a timer phase.
func (c *Context) stage(ctx context.Context, stage pipeline.Stage, fn func(context.Context) (string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := trace.Start(ctx, trace.ScopePass, string(stage))
	done := c.Opts.Timer.Track(c.Lib + "/" + string(stage))
	c.emit(stage, pipeline.StatusWorking, "")
	start := time.Now()

	detail, err := fn(ctx)
	elapsed := time.Since(start)
	c.Timings.Set(stage, elapsed)
	done(detail)
	span.End(detail)

	evt := pipeline.Event{Lib: c.Lib, Stage: stage, Status: pipeline.StatusDone, Detail: detail, Elapsed: elapsed}
	if err != nil {
		evt.Status = pipeline.StatusError
		evt.Err = err
	}
	pipeline.Emit(c.Opts.Sink, evt)
	return err
}
