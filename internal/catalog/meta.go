// Package catalog holds smfdb's table metadata: FieldMeta, IndexMeta,
// and TableMeta, plus their JSON on-disk representation. It generalizes
// a schema-struct pattern from DDL-diffing inputs to the engine's own
// authoritative schema store.
package catalog

import (
	"smfdb/internal/types"
)

// FieldMeta describes one column of a table: its name, type, byte
// offset/length within a record, nullability, and visibility. Hidden
// fields (e.g. future transaction metadata columns) are never exposed
// to tuples.
type FieldMeta struct {
	Name     string        `json:"name"`
	Type     types.AttrType `json:"type"`
	Offset   int           `json:"offset"`
	Length   int           `json:"length"`
	Nullable bool          `json:"nullable"`
	Visible  bool          `json:"visible"`
	FieldID  int           `json:"field_id"`
}

// IndexMeta describes a B+tree index: its name, the ordered list of
// field names whose bytes form the composite key, and uniqueness.
type IndexMeta struct {
	Name       string   `json:"name"`
	FieldNames []string `json:"field_names"`
	IsUnique   bool     `json:"is_unique"`
}

// StorageFormat selects a table's physical page layout.
type StorageFormat string

const (
	RowFormat StorageFormat = "row"
	PAXFormat StorageFormat = "pax"
)

// TableMeta is the authoritative schema for one table: its id, name,
// ordered fields, ordered indexes, storage format, and the fixed
// record size every record of this table must have.
type TableMeta struct {
	TableID       int32         `json:"table_id"`
	Name          string        `json:"name"`
	Fields        []*FieldMeta  `json:"fields"`
	Indexes       []*IndexMeta  `json:"indexes"`
	StorageFormat StorageFormat `json:"storage_format"`
	RecordSize    int           `json:"record_size"`
	PrimaryKeys   []string      `json:"primary_keys,omitempty"`
}

// FieldByName returns the visible or hidden field with the given name,
// or nil if none matches.
func (tm *TableMeta) FieldByName(name string) *FieldMeta {
	for _, f := range tm.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// VisibleFields returns the fields exposed to tuples, in declared order.
func (tm *TableMeta) VisibleFields() []*FieldMeta {
	out := make([]*FieldMeta, 0, len(tm.Fields))
	for _, f := range tm.Fields {
		if f.Visible {
			out = append(out, f)
		}
	}
	return out
}

// IndexByName returns the named index, or nil.
func (tm *TableMeta) IndexByName(name string) *IndexMeta {
	for _, ix := range tm.Indexes {
		if ix.Name == name {
			return ix
		}
	}
	return nil
}

// IndexesOn returns every index whose field list begins with fieldName
// as its first column, used by the physical planner's index-prefix
// search.
func (tm *TableMeta) IndexesOn(fieldName string) []*IndexMeta {
	var out []*IndexMeta
	for _, ix := range tm.Indexes {
		if len(ix.FieldNames) > 0 && ix.FieldNames[0] == fieldName {
			out = append(out, ix)
		}
	}
	return out
}

// computeRecordSize sums the lengths of every field, hidden fields
// included; for metadata with only visible fields this equals the sum
// of the visible field lengths.
func computeRecordSize(fields []*FieldMeta) int {
	size := 0
	for _, f := range fields {
		size += f.Length
	}
	return size
}

// NewTableMeta lays out offsets for fields in declaration order and
// returns a TableMeta with RecordSize computed from them.
func NewTableMeta(tableID int32, name string, fields []*FieldMeta, format StorageFormat) *TableMeta {
	offset := 0
	for i, f := range fields {
		f.FieldID = i
		f.Offset = offset
		offset += f.Length
	}
	return &TableMeta{
		TableID:       tableID,
		Name:          name,
		Fields:        fields,
		StorageFormat: format,
		RecordSize:    computeRecordSize(fields),
	}
}
