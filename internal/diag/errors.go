package diag

import (
	"errors"

	"teemscan/internal/source"
)

// Fatal is implemented by errors that abort the current unit of work and
// point at the offending input line.
type Fatal interface {
	error
	DiagCode() Code
	DiagLocation() source.Location
}

// FromError converts err into an Error diagnostic, keeping the code and
// location of the first Fatal in its chain.
func FromError(err error) Diagnostic {
	var f Fatal
	if errors.As(err, &f) {
		return NewError(f.DiagCode(), f.DiagLocation(), err.Error())
	}
	return NewError(UnknownCode, source.Location{}, err.Error())
}
