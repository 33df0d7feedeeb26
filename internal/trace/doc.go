// Package trace records spans of a teemscan run: the driver, its passes,
// per-library work and, at debug level, single symbols and functions.
//
// Tracers travel through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePass, "symbols")
//	defer span.End("")
//
// Spans started below trace.WithLibrary(ctx, "nrrd") carry the library
// name, in text output as a "[nrrd]" prefix.
//
// A ring tracer keeps the most recent events in memory; the driver dumps it
// when a library scan fails.
package trace
