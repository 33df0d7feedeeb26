package driver

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"teemscan/internal/biff"
	"teemscan/internal/config"
	"teemscan/internal/source"
)

// AnnotationTable is the exported list of annotated functions of a library.
type AnnotationTable struct {
	Lib     string       `json:"lib" yaml:"lib" msgpack:"lib"`
	Entries []biff.Entry `json:"entries" yaml:"entries" msgpack:"entries"`
}

// Annotations collects the biff annotations already present in the sources
// of lib. Unparsable annotations are returned separately.
func Annotations(cfg *config.Config, lib string) (AnnotationTable, []error, error) {
	dir := cfg.LibDir(lib)
	entries, bad, err := biff.Collect(source.NewFileSetWithBase(dir), dir)
	if err != nil {
		return AnnotationTable{}, nil, fmt.Errorf("annotations %s: %w", lib, err)
	}
	if entries == nil {
		entries = []biff.Entry{}
	}
	return AnnotationTable{Lib: lib, Entries: entries}, bad, nil
}

// WriteAnnotations encodes t as json, yaml or msgpack.
func WriteAnnotations(w io.Writer, t AnnotationTable, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return err
		}
		return enc.Close()
	case "msgpack":
		enc := msgpack.NewEncoder(w)
		enc.UseCompactInts(true)
		return enc.Encode(t)
	default:
		return fmt.Errorf("unknown annotations format %q", format)
	}
}
