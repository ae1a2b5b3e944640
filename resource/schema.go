package resource

import (
	"fmt"
	"strings"
)

// Column type names.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeAny    = "any"
)

// Column describes one field of a record.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Schema is an ordered list of columns.
type Schema struct {
	Columns []Column `json:"columns" yaml:"columns"`
}

// NewSchema builds a schema from column names, each of type any.
func NewSchema(names ...string) *Schema {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: TypeAny}
	}
	return &Schema{Columns: cols}
}

// ColumnCount returns the number of columns; zero for a nil schema.
func (s *Schema) ColumnCount() int {
	if s == nil {
		return 0
	}
	return len(s.Columns)
}

// Index returns the position of the named column or -1.
func (s *Schema) Index(name string) int {
	if s == nil {
		return -1
	}
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// Project returns a schema holding only the named columns, in the given order.
func (s *Schema) Project(names []string) (*Schema, []int, error) {
	out := &Schema{Columns: make([]Column, 0, len(names))}
	idx := make([]int, 0, len(names))
	for _, n := range names {
		i := s.Index(n)
		if i < 0 {
			return nil, nil, fmt.Errorf("unknown column %q", n)
		}
		out.Columns = append(out.Columns, s.Columns[i])
		idx = append(idx, i)
	}
	return out, idx, nil
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	return &Schema{Columns: append([]Column(nil), s.Columns...)}
}

// Equal reports whether both schemas have the same column names and types.
func (s *Schema) Equal(o *Schema) bool {
	if s.ColumnCount() != o.ColumnCount() {
		return false
	}
	for i := range s.Columns {
		if s.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	if s == nil {
		return "<nil>"
	}
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.Name + " " + c.Type
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
