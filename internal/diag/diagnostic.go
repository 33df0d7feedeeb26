package diag

import (
	"teemscan/internal/source"
)

type Note struct {
	Loc source.Location `json:"location" yaml:"location" msgpack:"location"`
	Msg string          `json:"message" yaml:"message" msgpack:"message"`
}

type Diagnostic struct {
	Severity Severity        `json:"severity" yaml:"severity" msgpack:"severity"`
	Code     Code            `json:"code" yaml:"code" msgpack:"code"`
	Message  string          `json:"message" yaml:"message" msgpack:"message"`
	Primary  source.Location `json:"location" yaml:"location" msgpack:"location"`
	Notes    []Note          `json:"notes,omitempty" yaml:"notes,omitempty" msgpack:"notes,omitempty"`
}
