package trace

import "context"

type ctxKey struct{}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

// SpanContext is what a child span inherits: its parent and the library
// being worked on. Libraries are scanned concurrently, so the library tag is
// the only way to untangle an interleaved trace.
type SpanContext struct {
	SpanID uint64
	Lib    string
}

type spanCtxKey struct{}

// CurrentSpan returns the active span of ctx; the zero value means none.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	sc, _ := ctx.Value(spanCtxKey{}).(SpanContext)
	return sc
}

// WithLibrary tags every span started from the returned context with lib.
func WithLibrary(ctx context.Context, lib string) context.Context {
	sc := CurrentSpan(ctx)
	sc.Lib = lib
	return context.WithValue(ctx, spanCtxKey{}, sc)
}

func withSpan(ctx context.Context, sc SpanContext) context.Context {
	return context.WithValue(ctx, spanCtxKey{}, sc)
}
