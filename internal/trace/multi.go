package trace

import (
	"io"

	"go.uber.org/multierr"
)

// MultiTracer fans events out to several tracers.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{tracers: tracers, level: level}
}

func (t *MultiTracer) Emit(ev *Event) {
	if ev.Seq == 0 {
		ev.Seq = NextSeq()
	}
	for _, tr := range t.tracers {
		cp := *ev
		tr.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error {
	var err error
	for _, tr := range t.tracers {
		err = multierr.Append(err, tr.Flush())
	}
	return err
}

func (t *MultiTracer) Close() error {
	var err error
	for _, tr := range t.tracers {
		err = multierr.Append(err, tr.Close())
	}
	return err
}

// Dump delegates to the first tracer that keeps events in memory.
func (t *MultiTracer) Dump(w io.Writer, format Format) error {
	for _, tr := range t.tracers {
		if d, ok := tr.(Dumper); ok {
			return d.Dump(w, format)
		}
	}
	return nil
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }
