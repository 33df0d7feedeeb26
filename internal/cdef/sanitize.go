package cdef

import (
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	"teemscan/internal/source"
)

// Sanitizer turns one header into the declaration stream a limited C
// declaration parser accepts.
type Sanitizer struct {
	Registry  Registry
	Logger    *zap.Logger
	Verbosity int
}

// NewSanitizer returns a Sanitizer over reg. A nil logger is replaced by a no-op one.
func NewSanitizer(reg Registry, logger *zap.Logger, verbosity int) *Sanitizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sanitizer{Registry: reg, Logger: logger, Verbosity: verbosity}
}

// SanitizeText is Sanitize over raw header text.
func (s *Sanitizer) SanitizeText(header, text string) ([]string, error) {
	return s.Sanitize(header, source.SplitText(text))
}

// Sanitize runs, in order: right trim, StripMacros, the ClassifyLine cascade,
// GenericFixups and the fix-ups registered for header.
//
// Fix-ups are strict: a missing marker aborts with *StaleFixupError (or
// *GateError). The one exception is input that is earlier Sanitize output:
// the generic passes change nothing and the fix-up's own result is visible
// (see leftover), so a second run reproduces the first.
func (s *Sanitizer) Sanitize(header string, lines []string) ([]string, error) {
	log := s.logger().With(zap.String("header", header))

	trimmed := make([]string, len(lines))
	for i, l := range lines {
		trimmed[i] = source.TrimRight(l)
	}

	stripped, err := StripMacros(trimmed)
	if err != nil {
		var me *MacroError
		if errors.As(err, &me) {
			me.Header = header
		}
		return nil, err
	}

	kept := make([]string, 0, len(stripped))
	for _, line := range stripped {
		out, rule := ClassifyLine(line)
		if rule != "" {
			if s.Verbosity >= 2 {
				log.Debug("dropping line", zap.String("rule", rule), zap.String("line", line))
			}
			continue
		}
		if out == "" {
			continue
		}
		if s.Verbosity >= 3 && strings.HasPrefix(out, "#define") {
			log.Debug("keeping #define", zap.String("line", out))
		}
		kept = append(kept, out)
	}

	for _, f := range GenericFixups {
		if kept, err = f.Apply(header, kept); err != nil {
			return nil, &StaleFixupError{Header: header, Fixup: f.String(), Err: err}
		}
	}
	raw := !slices.Equal(kept, trimmed)

	for _, f := range s.Registry.Lookup(header) {
		next, err := f.Apply(header, slices.Clone(kept))
		if err != nil {
			var ge *GateError
			missing := errors.Is(err, ErrMarkerMissing) || errors.As(err, &ge)
			if missing && !raw && leftover(f, kept) {
				log.Debug("header already sanitized, skipping fix-up", zap.Stringer("fixup", f))
				continue
			}
			if ge != nil {
				return nil, ge
			}
			return nil, &StaleFixupError{Header: header, Fixup: f.String(), Err: err}
		}
		kept = next
	}
	return kept, nil
}

// leftover reports whether lines carry the visible result of an earlier f.
// Gates leave their delimiters as comments, drop-blocks leave their inserted
// lines. Pure deletions leave nothing, so for them the export rewrite
// (`extern `) is taken as proof of a previous pass.
func leftover(f Fixup, lines []string) bool {
	switch f := f.(type) {
	case GateBlocks:
		for _, name := range f.Names {
			if slices.Contains(lines, "/* #if "+f.Prefix+name+" */") {
				return true
			}
		}
		return false
	case DropBlock:
		if len(f.Insert) > 0 {
			return containsRun(lines, f.Insert)
		}
	}
	return slices.ContainsFunc(lines, func(l string) bool {
		return strings.HasPrefix(l, "extern ")
	})
}

// containsRun reports whether run appears in lines as consecutive elements.
func containsRun(lines, run []string) bool {
	for i := 0; i+len(run) <= len(lines); i++ {
		if slices.Equal(lines[i:i+len(run)], run) {
			return true
		}
	}
	return false
}

func (s *Sanitizer) logger() *zap.Logger {
	if s == nil || s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
