package cdef

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a header must stay quiet before regeneration.
const DefaultDebounce = 300 * time.Millisecond

// Watcher regenerates cdef output when installed headers change.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	Logger   *zap.Logger
	// OnChange receives the base names of headers that settled since the last call.
	OnChange func(ctx context.Context, headers []string) error

	pending map[string]time.Time
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
// Errors returned by OnChange are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}

	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w.pending = make(map[string]time.Time)

	tick := time.NewTicker(debounce / 3)
	defer tick.Stop()

	log.Info("watching headers", zap.String("dir", w.Dir))
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".h") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("header event", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			w.pending[filepath.Base(ev.Name)] = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))

		case <-tick.C:
			settled := w.settled(time.Now(), debounce)
			if len(settled) == 0 || w.OnChange == nil {
				continue
			}
			if err := w.OnChange(ctx, settled); err != nil {
				log.Error("regeneration failed", zap.Strings("headers", settled), zap.Error(err))
			}
		}
	}
}

func (w *Watcher) settled(now time.Time, debounce time.Duration) []string {
	out := make([]string, 0)
	for name, at := range w.pending {
		if now.Sub(at) >= debounce {
			out = append(out, name)
			delete(w.pending, name)
		}
	}
	sort.Strings(out)
	return out
}
