package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	globalSeq   atomic.Uint64
	globalSpans atomic.Uint64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 { return globalSeq.Add(1) }

// Span tracks one logical operation between Start and End.
type Span struct {
	tracer  Tracer
	sc      SpanContext
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

// Start begins a span under the current span of ctx and returns a context
// carrying it. A disabled tracer or a scope below the tracer level yields an
// inert span and ctx unchanged.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	t := FromContext(ctx)
	parent := CurrentSpan(ctx)
	if !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return ctx, &Span{tracer: Nop}
	}
	s := &Span{
		tracer:  t,
		sc:      SpanContext{SpanID: globalSpans.Add(1), Lib: parent.Lib},
		parent:  parent.SpanID,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	t.Emit(s.event(KindSpanBegin, s.started, ""))
	return withSpan(ctx, s.sc), s
}

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	return &Event{
		Time:     at,
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.sc.SpanID,
		ParentID: s.parent,
		Lib:      s.sc.Lib,
		Name:     s.name,
		Detail:   detail,
	}
}

// End emits the end event and returns the span duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return 0
	}
	now := time.Now()
	ev := s.event(KindSpanEnd, now, detail)
	ev.Extra = s.extra
	s.tracer.Emit(ev)
	return now.Sub(s.started)
}

// WithExtra attaches a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID, 0 for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.sc.SpanID
}
