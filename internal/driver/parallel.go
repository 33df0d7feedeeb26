package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"teemscan/internal/diag"
	"teemscan/internal/pipeline"
	"teemscan/internal/trace"
)

// ScanLibraries сканирует библиотеки параллельно, не более jobs одновременно.
// Первая фатальная ошибка отменяет остальные библиотеки; результаты
// возвращаются в порядке libs, включая отменённые.
func ScanLibraries(ctx context.Context, libs []string, opts *Options, jobs int) ([]*LibraryResult, error) {
	if len(libs) == 0 {
		return nil, nil
	}
	if opts.NMFile != "" && len(libs) > 1 {
		return nil, fmt.Errorf("--nm-file needs exactly one library, got %d", len(libs))
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	ctx, span := trace.Start(ctx, trace.ScopeDriver, "scan")
	defer span.End("")

	// make в общем дереве не реентерабелен
	shared := *opts
	if opts.Toolchain != nil {
		shared.Toolchain = lockedToolchain{mu: &sync.Mutex{}, next: opts.Toolchain}
	}

	for _, lib := range libs {
		pipeline.Emit(opts.Sink, pipeline.Event{Lib: lib, Status: pipeline.StatusQueued})
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]*LibraryResult, len(libs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(libs)))

	for i, lib := range libs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = cancelled(lib, err, opts)
				return nil
			}
			res, err := ScanLibrary(gctx, lib, &shared)
			results[i] = res
			if err == nil {
				return nil
			}
			if errors.Is(err, context.Canceled) && ctx.Err() == nil {
				// отменена соседом, ошибку вернёт он
				return nil
			}
			return fmt.Errorf("%s: %w", lib, err)
		})
	}

	err := g.Wait()
	if err != nil {
		span.WithExtra("error", err.Error())
		if opts.Logger != nil {
			opts.Logger.Error("scan stopped", zap.Error(err))
		}
	}
	return results, err
}

func cancelled(lib string, err error, opts *Options) *LibraryResult {
	pipeline.Emit(opts.Sink, pipeline.Event{Lib: lib, Status: pipeline.StatusError, Err: err})
	return &LibraryResult{Lib: lib, Bag: diag.NewBag(opts.MaxDiagnostics), Err: err}
}

// MergeBags собирает диагностики всех библиотек в один отсортированный Bag.
func MergeBags(results []*LibraryResult) *diag.Bag {
	out := diag.NewBag(0)
	for _, r := range results {
		if r != nil && r.Bag != nil {
			out.Merge(r.Bag)
		}
	}
	out.Sort()
	return out
}
