package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func fakeClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(10 * time.Millisecond)
		return now
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(time.Unix(0, 0))

	a := tm.Begin("nrrd/symbols") // t=10
	b := tm.Begin("nrrd/decls")   // t=20
	tm.End(b, "")                 // t=30
	tm.End(a, "312 symbols")      // t=40
	tm.End(99, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %d", len(r.Phases))
	}
	if r.Phases[0].DurationMS != 30 || r.Phases[1].DurationMS != 10 {
		t.Errorf("durations = %+v", r.Phases)
	}
	if r.WallMS != 30 {
		t.Errorf("wall = %v, want 30", r.WallMS)
	}
	s := tm.Summary()
	if !strings.Contains(s, "nrrd/symbols") || !strings.Contains(s, "// 312 symbols") || !strings.Contains(s, "wall") {
		t.Errorf("summary:\n%s", s)
	}
}

func TestTimerTrackConcurrent(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for _, lib := range []string{"air", "nrrd", "gage", "ten"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := tm.Track(lib + "/check")
			done("ok")
		}()
	}
	wg.Wait()
	if got := len(tm.Report().Phases); got != 4 {
		t.Errorf("phases = %d, want 4", got)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.Track("x")("")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Errorf("nil timer report = %+v", r)
	}
}
