// Package prof wraps pprof and runtime tracing for the CLI flags
// --cpu-profile, --mem-profile and --runtime-trace.
package prof

import (
	"os"
	"runtime"
	"runtime/pprof"
	rtrace "runtime/trace"

	"go.uber.org/multierr"
)

// Paths selects the profiles to record. Empty paths are skipped.
type Paths struct {
	CPU   string
	Mem   string
	Trace string
}

// Enabled reports whether any profile is requested.
func (p Paths) Enabled() bool {
	return p.CPU != "" || p.Mem != "" || p.Trace != ""
}

// Session is a running set of profiles. Stop is idempotent.
type Session struct {
	paths     Paths
	cpuFile   *os.File
	traceFile *os.File
	stopped   bool
}

// Start begins CPU profiling and runtime tracing as requested. The heap
// profile is written by Stop.
func Start(p Paths) (*Session, error) {
	s := &Session{paths: p}
	if p.CPU != "" {
		f, err := os.Create(p.CPU)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		s.cpuFile = f
	}
	if p.Trace != "" {
		f, err := os.Create(p.Trace)
		if err == nil {
			err = rtrace.Start(f)
			if err != nil {
				_ = f.Close()
			}
		}
		if err != nil {
			// cpu profile уже идёт
			s.stopCPU()
			return nil, err
		}
		s.traceFile = f
	}
	return s, nil
}

func (s *Session) stopCPU() error {
	if s.cpuFile == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := s.cpuFile.Close()
	s.cpuFile = nil
	return err
}

// Stop ends the running profiles and writes the heap profile.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true

	var err error
	if s.traceFile != nil {
		rtrace.Stop()
		err = multierr.Append(err, s.traceFile.Close())
		s.traceFile = nil
	}
	err = multierr.Append(err, s.stopCPU())
	if s.paths.Mem != "" {
		err = multierr.Append(err, writeHeap(s.paths.Mem))
	}
	return err
}

func writeHeap(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
