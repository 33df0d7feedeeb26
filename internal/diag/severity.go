package diag

import "fmt"

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// MarshalText keeps json/yaml output human readable.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the String form back.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "INFO":
		*s = SevInfo
	case "WARNING":
		*s = SevWarning
	case "ERROR":
		*s = SevError
	default:
		return fmt.Errorf("unknown severity %q", string(b))
	}
	return nil
}
