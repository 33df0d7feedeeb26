// Package pipeline describes the per-library progress events of a scan.
package pipeline

import "time"

// Stage describes a high-level pass over one library.
type Stage string

const (
	// StageBuild runs make / make install.
	StageBuild Stage = "build"
	// StageSymbols reads the nm dump.
	StageSymbols Stage = "symbols"
	// StageDecls reads the headers.
	StageDecls Stage = "decls"
	// StageCheck cross-checks symbols and declarations.
	StageCheck Stage = "check"
	// StageBiff scans function bodies and merges annotations.
	StageBiff Stage = "biff"
	// StageFlush writes the annotated copies.
	StageFlush Stage = "flush"
	// StageCdef writes cdef_<lib>.h.
	StageCdef Stage = "cdef"
)

// Stages lists the scan stages in execution order.
var Stages = []Stage{StageBuild, StageSymbols, StageDecls, StageCheck, StageBiff, StageFlush}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the library is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage is running.
	StatusWorking Status = "working"
	// StatusDone indicates the stage finished.
	StatusDone Status = "done"
	// StatusSkipped indicates the stage was not needed (no --biff, --nm-file).
	StatusSkipped Status = "skipped"
	// StatusError indicates the stage failed.
	StatusError Status = "error"
)

// Event reports progress for a library (or for the whole run when Lib is empty).
type Event struct {
	Lib     string
	Stage   Stage
	Status  Status
	Detail  string
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Emit sends evt to sink when there is one.
func Emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
