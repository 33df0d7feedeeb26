// Package diag defines the diagnostic model shared by every pass of teemscan.
//
// # Purpose
//
//   - Provide deterministic, serialisable records for findings produced by the
//     symbol table parser, the header declaration extractor, the consistency
//     checker, the biff scanner and the annotation merger.
//   - Offer light-weight utilities (Reporter, Bag) that let passes emit
//     diagnostics without coupling to storage or formatting.
//
// # Scope
//
// Package diag does no formatting beyond the stable short form in golden.go,
// and no IO. Rendering lives in internal/diagfmt.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning, Error (severity.go).
//   - Code – numeric identifier with a stable string ID (codes.go).
//   - Message – short text; raw input lines are quoted verbatim between bars.
//   - Primary – source.Location of the offending line (1-based, 0 = whole file).
//   - Notes – optional secondary locations.
//
// Codes whose last three digits are 900 or higher name fatal classes. They are
// never emitted through a Reporter; they come from typed errors implementing
// Fatal and are turned into diagnostics by FromError when the CLI reports a
// failed library.
//
// # Emitting diagnostics
//
// Passes receive a Reporter and use ReportWarning / ReportInfo builders:
//
//	diag.ReportWarning(r, diag.ConUndeclared, loc, msg).WithNote(defLoc, "defined here").Emit()
//
// BagReporter collects into a Bag, which supports sorting and deduplication.
package diag
