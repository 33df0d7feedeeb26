package cdef

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcherSettles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	changed := make(chan []string, 4)
	w := &Watcher{
		Dir:      dir,
		Debounce: 30 * time.Millisecond,
		OnChange: func(_ context.Context, headers []string) error {
			changed <- headers
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// ждём, пока watcher подпишется на каталог
	var got []string
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
wait:
	for {
		select {
		case got = <-changed:
			break wait
		case <-tick.C:
			require.NoError(t, os.WriteFile(filepath.Join(dir, "nrrd.h"), []byte("int a;\n"), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
		case <-deadline:
			cancel()
			<-done
			t.Fatal("watcher never reported a change")
		}
	}
	require.Equal(t, []string{"nrrd.h"}, got)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherSettled(t *testing.T) {
	now := time.Now()
	w := &Watcher{pending: map[string]time.Time{
		"b.h": now.Add(-time.Second),
		"a.h": now.Add(-time.Second),
		"c.h": now,
	}}
	require.Equal(t, []string{"a.h", "b.h"}, w.settled(now, 100*time.Millisecond))
	require.Equal(t, []string{"c.h"}, w.settled(now.Add(time.Second), 100*time.Millisecond))
	require.Empty(t, w.settled(now.Add(2*time.Second), 100*time.Millisecond))
}

func TestWatcherMissingDir(t *testing.T) {
	w := &Watcher{Dir: filepath.Join(t.TempDir(), "absent")}
	require.Error(t, w.Run(context.Background()))
}
