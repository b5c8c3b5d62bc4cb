// Package table provides an ordered column-oriented dataset with the four
// primitives the processing engine depends on: slice, select, count, and
// file-backed read/write (single-file and streaming sink modes).
package table

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrLengthMismatch  = errors.New("table: column lengths differ")
	ErrDuplicateColumn = errors.New("table: duplicate column name")
	ErrColumnNotFound  = errors.New("table: column not found")
	ErrSchemaMismatch  = errors.New("table: schema mismatch")
	ErrKindMismatch    = errors.New("table: column kind mismatch")
	ErrRowsUnknown     = errors.New("table: row count not recorded in header")
)

// Kind is the type of a column's values.
type Kind int

// Column kinds.
const (
	KindInt64 Kind = iota
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Column is a named, typed value vector. Exactly one of Ints or Strs is
// populated, matching Kind.
type Column struct {
	Name string
	Kind Kind
	Ints []int64
	Strs []string
}

// Int64Column creates an int64 column.
func Int64Column(name string, vals []int64) Column {
	return Column{Name: name, Kind: KindInt64, Ints: vals}
}

// StringColumn creates a string column.
func StringColumn(name string, vals []string) Column {
	return Column{Name: name, Kind: KindString, Strs: vals}
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	if c.Kind == KindString {
		return len(c.Strs)
	}

	return len(c.Ints)
}

func (c Column) slice(offset, length int) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == KindString {
		out.Strs = c.Strs[offset : offset+length]
	} else {
		out.Ints = c.Ints[offset : offset+length]
	}

	return out
}

// Table is an ordered set of equal-length columns.
type Table struct {
	cols []Column
	rows int
}

// New creates a table from columns, validating equal lengths and unique names.
func New(cols ...Column) (*Table, error) {
	rows := 0
	seen := make(map[string]bool, len(cols))

	for i, c := range cols {
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}

		seen[c.Name] = true

		if i == 0 {
			rows = c.Len()

			continue
		}

		if c.Len() != rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrLengthMismatch, c.Name, c.Len(), rows)
		}
	}

	return &Table{cols: cols, rows: rows}, nil
}

// Empty creates a zero-row table with the given schema.
func Empty(fields ...Field) *Table {
	cols := make([]Column, len(fields))
	for i, f := range fields {
		cols[i] = Column{Name: f.Name, Kind: f.Kind}
	}

	return &Table{cols: cols}
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return t.rows
}

// Schema returns the ordered field descriptors.
func (t *Table) Schema() []Field {
	fields := make([]Field, len(t.cols))
	for i, c := range t.cols {
		fields[i] = Field{Name: c.Name, Kind: c.Kind}
	}

	return fields
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.cols {
		if c.Name == name {
			return c, true
		}
	}

	return Column{}, false
}

// Ints returns the values of a named int64 column.
func (t *Table) Ints(name string) ([]int64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}

	if c.Kind != KindInt64 {
		return nil, fmt.Errorf("%w: %q is %s", ErrKindMismatch, name, c.Kind)
	}

	return c.Ints, nil
}

// Strings returns the values of a named string column.
func (t *Table) Strings(name string) ([]string, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}

	if c.Kind != KindString {
		return nil, fmt.Errorf("%w: %q is %s", ErrKindMismatch, name, c.Kind)
	}

	return c.Strs, nil
}

// Slice returns rows [offset, offset+length), clamped to the table bounds.
// The result shares backing arrays with the receiver.
func (t *Table) Slice(offset, length int) *Table {
	if offset < 0 {
		offset = 0
	}

	if offset > t.rows {
		offset = t.rows
	}

	if length < 0 || offset+length > t.rows {
		length = t.rows - offset
	}

	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.slice(offset, length)
	}

	return &Table{cols: cols, rows: length}
}

// Select returns a table with only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))

	for _, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}

		cols = append(cols, c)
	}

	return &Table{cols: cols, rows: t.rows}, nil
}

// Concat appends tables with identical schemas into one materialized table.
// Zero tables yield nil; callers needing a schema should pass at least one.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, nil
	}

	first := tables[0]
	out := make([]Column, len(first.cols))

	for i, c := range first.cols {
		out[i] = Column{Name: c.Name, Kind: c.Kind}
	}

	rows := 0

	for _, t := range tables {
		if err := sameSchema(first, t); err != nil {
			return nil, err
		}

		rows += t.rows

		for i, c := range t.cols {
			if c.Kind == KindString {
				out[i].Strs = append(out[i].Strs, c.Strs...)
			} else {
				out[i].Ints = append(out[i].Ints, c.Ints...)
			}
		}
	}

	return &Table{cols: out, rows: rows}, nil
}

func sameSchema(a, b *Table) error {
	if len(a.cols) != len(b.cols) {
		return fmt.Errorf("%w: %d columns vs %d", ErrSchemaMismatch, len(a.cols), len(b.cols))
	}

	for i := range a.cols {
		if a.cols[i].Name != b.cols[i].Name || a.cols[i].Kind != b.cols[i].Kind {
			return fmt.Errorf("%w: column %d is %s %q vs %s %q",
				ErrSchemaMismatch, i, a.cols[i].Kind, a.cols[i].Name, b.cols[i].Kind, b.cols[i].Name)
		}
	}

	return nil
}
