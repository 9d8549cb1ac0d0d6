// Package expr implements smfdb's expression tree and the row/chunk
// shapes it evaluates against: a small sum type of expression variants
// (field reference, literal, cast, comparison, boolean conjunction,
// arithmetic, aggregate, subquery, set membership, vector distance),
// each able to produce a types.Value for one Tuple, plus a columnar
// Chunk for evaluating an expression across many rows at once.
package expr

import (
	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// FieldRef names one column by table and field name. Table may be empty
// for a field that is unambiguous without qualification.
type FieldRef struct {
	Table string
	Field string
}

func (r FieldRef) String() string {
	if r.Table == "" {
		return r.Field
	}
	return r.Table + "." + r.Field
}

// Tuple is one bound row: a schema of FieldRefs paired positionally with
// their values. Binder/exec operators that project, join, or aggregate
// build new Tuples with a new Schema rather than mutating one in place.
type Tuple struct {
	Schema []FieldRef
	Values []types.Value
}

// NewTuple pairs schema and values; both must be the same length.
func NewTuple(schema []FieldRef, values []types.Value) *Tuple {
	return &Tuple{Schema: schema, Values: values}
}

// indexOf finds the schema position for (table, field). An empty table
// matches any table name: the first schema entry with that field name
// wins, and a name shared by several entries is not reported as
// ambiguous.
func (t *Tuple) indexOf(table, field string) int {
	if table != "" {
		for i, r := range t.Schema {
			if r.Table == table && r.Field == field {
				return i
			}
		}
		return -1
	}
	for i, r := range t.Schema {
		if r.Field == field {
			return i
		}
	}
	return -1
}

// Get looks up a field by table+name, returning (NULL Value, false) if
// not found.
func (t *Tuple) Get(table, field string) (types.Value, bool) {
	i := t.indexOf(table, field)
	if i < 0 {
		return types.NewNull(types.Undefined), false
	}
	return t.Values[i], true
}

// At returns the value at a fixed schema position.
func (t *Tuple) At(i int) types.Value { return t.Values[i] }

// Len reports the tuple's arity.
func (t *Tuple) Len() int { return len(t.Values) }

// Column is one named vector of values: a vertical slice of a Chunk.
type Column struct {
	Ref    FieldRef
	Values []types.Value
}

// Chunk is a columnar batch of rows sharing one schema, the per-chunk
// vectorized-evaluation primitive spec.md's Non-goals reserve room for
// ("vectorised execution beyond per-chunk primitives" is the excluded
// part; the chunk shape itself is in scope).
type Chunk struct {
	Columns []Column
}

// NewChunk builds an empty chunk with the given column schema.
func NewChunk(refs []FieldRef) *Chunk {
	cols := make([]Column, len(refs))
	for i, r := range refs {
		cols[i] = Column{Ref: r}
	}
	return &Chunk{Columns: cols}
}

// Append adds one row's values to the chunk, one per column in order.
func (c *Chunk) Append(row []types.Value) error {
	if len(row) != len(c.Columns) {
		return rc.Errorf(rc.InvalidArgument, "chunk row has %d values, schema has %d columns", len(row), len(c.Columns))
	}
	for i, v := range row {
		c.Columns[i].Values = append(c.Columns[i].Values, v)
	}
	return nil
}

// RowCount returns how many rows the chunk currently holds.
func (c *Chunk) RowCount() int {
	if len(c.Columns) == 0 {
		return 0
	}
	return len(c.Columns[0].Values)
}

// Tuple materializes row i of the chunk as a standalone Tuple.
func (c *Chunk) Tuple(i int) *Tuple {
	schema := make([]FieldRef, len(c.Columns))
	values := make([]types.Value, len(c.Columns))
	for j, col := range c.Columns {
		schema[j] = col.Ref
		values[j] = col.Values[i]
	}
	return &Tuple{Schema: schema, Values: values}
}

// ColumnByRef returns the chunk's column matching ref, or nil.
func (c *Chunk) ColumnByRef(ref FieldRef) *Column {
	for i := range c.Columns {
		if c.Columns[i].Ref == ref {
			return &c.Columns[i]
		}
	}
	return nil
}
