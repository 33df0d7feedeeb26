package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"teemscan/internal/config"
)

const gageHeader = `#ifndef GAGE_HAS_BEEN_INCLUDED
#define GAGE_HAS_BEEN_INCLUDED
GAGE_EXPORT int gageThingSet(int val);
GAGE_EXPORT int gageAlready(int a);
GAGE_EXPORT int gageNeverDefined(int a);
#endif
`

const gagePrivate = `extern int _gageProbe(int useBiff, double x);
`

const gageSource = `#include "gage.h"
#include "privateGage.h"

int
gageThingSet(int val) {
  static const char me[] = "gageThingSet";

  if (!val) {
    biffAddf(GAGE, "%s: got zero", me);
    return 1;
  }
  return 0;
}

int
_gageProbe(int useBiff, double x) {
  static const char me[] = "_gageProbe";

  if (x < 0) {
    biffMaybeAddf(useBiff, GAGE, "%s: bad position %g", me, x);
    return 2;
  }
  return 0;
}

int /* Biff: 1 */
gageAlready(int a) {
  static const char me[] = "gageAlready";

  if (a) {
    biffAddf(GAGE, "%s: oops", me);
    return 1;
  }
  return 0;
}

static int
_gageHelper(int x) {
  return x;
}
`

const gageDump = `
probe.o:
0000000000000000 T gageThingSet
0000000000000040 T _gageProbe
0000000000000080 T gageAlready
00000000000000c0 t _gageHelper
                 U biffAddf
                 U biffMaybeAddf
`

// teemTree lays out <root>/src/<lib> and <root>/arch/linux with the gage
// sources above; extra libraries get empty source directories.
func teemTree(t *testing.T, extra ...string) *config.Config {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"arch/linux/lib", "arch/linux/include/teem", "src/gage"} {
		mustMkdir(t, filepath.Join(root, dir))
	}
	for _, lib := range extra {
		mustMkdir(t, filepath.Join(root, "src", lib))
	}
	writeFile(t, filepath.Join(root, "src/gage/gage.h"), gageHeader)
	writeFile(t, filepath.Join(root, "src/gage/privateGage.h"), gagePrivate)
	writeFile(t, filepath.Join(root, "src/gage/probe.c"), gageSource)

	cfg := config.Default()
	cfg.Root = root
	cfg.Teem.Path = root
	cfg.Teem.Arch = "linux"
	cfg.Scan.DropUnderscore = false
	cfg.Cdef.Out = filepath.Join(root, "cdef")
	return cfg
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// fakeToolchain отдаёт заранее заданные дампы nm по имени архива.
type fakeToolchain struct {
	mu        sync.Mutex
	dumps     map[string]string
	dumpErr   map[string]error
	blockDump map[string]bool // ждать отмены контекста
	buildTime time.Duration

	builds    []string
	active    int
	maxActive int
}

func (f *fakeToolchain) Build(ctx context.Context, dir string, clean bool) error {
	f.mu.Lock()
	f.builds = append(f.builds, filepath.Base(dir))
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()
	if f.buildTime > 0 {
		select {
		case <-time.After(f.buildTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeToolchain) SymbolDump(ctx context.Context, archive string) (string, error) {
	name := filepath.Base(archive)
	if f.blockDump[name] {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := f.dumpErr[name]; err != nil {
		return "", err
	}
	dump, ok := f.dumps[name]
	if !ok {
		return "", errors.New("no such archive " + name)
	}
	return dump, nil
}

func (f *fakeToolchain) built() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.builds...)
}
