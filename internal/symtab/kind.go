package symtab

import "fmt"

// Kind is the nm symbol class of a definition.
type Kind byte

const (
	FuncLocal    Kind = 't' // static function
	FuncExternal Kind = 'T'
	DataExternal Kind = 'D' // global variable
	DataConst    Kind = 'S' // global const
)

func (k Kind) String() string { return string(rune(k)) }

// IsFunc reports whether k is one of the function kinds.
func (k Kind) IsFunc() bool { return k == FuncLocal || k == FuncExternal }

func (k Kind) MarshalText() ([]byte, error) { return []byte{byte(k)}, nil }

func (k *Kind) UnmarshalText(b []byte) error {
	if len(b) != 1 {
		return fmt.Errorf("symtab: bad kind %q", b)
	}
	switch v := Kind(b[0]); v {
	case FuncLocal, FuncExternal, DataExternal, DataConst:
		*k = v
		return nil
	}
	return fmt.Errorf("symtab: bad kind %q", b)
}

// Symbol is one definition found in the library archive.
type Symbol struct {
	Name string `json:"name" yaml:"name" msgpack:"name"`
	Kind Kind   `json:"kind" yaml:"kind" msgpack:"kind"`
	File string `json:"file,omitempty" yaml:"file,omitempty" msgpack:"file,omitempty"` // <member>.c
}

// Table maps symbol names to definitions and remembers dump order.
type Table struct {
	byName map[string]Symbol
	order  []string
}

func NewTable() *Table {
	return &Table{byName: make(map[string]Symbol)}
}

// Add records s. A repeated name keeps its first position and takes the latest value.
func (t *Table) Add(s Symbol) {
	if _, ok := t.byName[s.Name]; !ok {
		t.order = append(t.order, s.Name)
	}
	t.byName[s.Name] = s
}

func (t *Table) Lookup(name string) (Symbol, bool) {
	s, ok := t.byName[name]
	return s, ok
}

func (t *Table) Len() int { return len(t.order) }

// Names returns symbol names in dump order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}

// Symbols returns all symbols in dump order.
func (t *Table) Symbols() []Symbol {
	out := make([]Symbol, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, t.byName[n])
	}
	return out
}
