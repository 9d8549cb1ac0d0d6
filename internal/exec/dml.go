package exec

import (
	"smfdb/internal/catalog"
	"smfdb/internal/expr"
	"smfdb/internal/planner/physical"
	"smfdb/internal/storage/table"
	"smfdb/internal/types"
)

// InsertOp evaluates and writes each of Spec.Rows into Spec.Table,
// with no input operator (a VALUES list has no relational source).
type InsertOp struct {
	Spec *physical.InsertOp

	tbl     *table.Table
	fields  []*catalog.FieldMeta
	n       int64
	started bool
}

func NewInsertOp(spec *physical.InsertOp) *InsertOp { return &InsertOp{Spec: spec} }

func (o *InsertOp) Open(ctx *Context) error {
	tbl, err := ctx.Catalog.Table(o.Spec.Table.Meta.Name)
	if err != nil {
		return err
	}
	o.tbl = tbl
	o.fields = o.Spec.Table.Meta.Fields
	return nil
}

func (o *InsertOp) Next() (*Row, error) {
	if o.started {
		return nil, nil
	}
	o.started = true
	for _, rowExprs := range o.Spec.Rows {
		values, err := buildFullRow(o.Spec.Table.Meta, o.Spec.Columns, rowExprs)
		if err != nil {
			return nil, err
		}
		data, texts, err := EncodeRow(o.fields, values)
		if err != nil {
			return nil, err
		}
		if _, err := o.tbl.InsertRecord(data, texts); err != nil {
			return nil, err
		}
		o.n++
	}
	return &Row{Tuple: rowCountTuple(o.n)}, nil
}

func (o *InsertOp) Close() error { return nil }

// buildFullRow evaluates rowExprs (already cast to each target
// column's declared type by the binder) and scatters them into a
// full-width row aligned to tm.Fields order, defaulting every
// unmentioned field (including hidden ones) to NULL.
func buildFullRow(tm *catalog.TableMeta, columns []*catalog.FieldMeta, rowExprs []expr.Expression) ([]types.Value, error) {
	byID := make(map[int]types.Value, len(columns))
	for i, col := range columns {
		v, err := rowExprs[i].GetValue(nil)
		if err != nil {
			return nil, err
		}
		byID[col.FieldID] = v
	}
	out := make([]types.Value, len(tm.Fields))
	for i, f := range tm.Fields {
		if v, ok := byID[f.FieldID]; ok {
			out[i] = v
		} else {
			out[i] = types.NewNull(f.Type)
		}
	}
	return out, nil
}

// rowCountTuple wraps a DML statement's affected-row count as a
// one-column, one-row result, the shape internal/session reports back
// to a client.
func rowCountTuple(n int64) *expr.Tuple {
	return expr.NewTuple(
		[]expr.FieldRef{{Field: "rows_affected"}},
		[]types.Value{types.NewInt(int32(n))},
	)
}

// UpdateOp applies Assignments to every row Input produces, writing
// each changed row back through the table it came from.
type UpdateOp struct {
	Spec  *physical.UpdateOp
	Input Operator

	n       int64
	started bool
}

func NewUpdateOp(spec *physical.UpdateOp, input Operator) *UpdateOp {
	return &UpdateOp{Spec: spec, Input: input}
}

func (o *UpdateOp) Open(ctx *Context) error { return o.Input.Open(ctx) }

func (o *UpdateOp) Next() (*Row, error) {
	if o.started {
		return nil, nil
	}
	o.started = true
	fields := o.Spec.Table.Meta.Fields
	for {
		row, err := o.Input.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		values := make([]types.Value, len(fields))
		for i, f := range fields {
			if v, ok := row.Tuple.Get(o.Spec.Table.RefName(), f.Name); ok {
				values[i] = v
			} else {
				values[i] = types.NewNull(f.Type)
			}
		}
		for _, a := range o.Spec.Assignments {
			v, err := a.Value.GetValue(row.Tuple)
			if err != nil {
				return nil, err
			}
			values[a.Field.FieldID] = v
		}
		data, texts, err := EncodeRow(fields, values)
		if err != nil {
			return nil, err
		}
		if err := row.Src.UpdateRecord(row.RID, data, texts); err != nil {
			return nil, err
		}
		o.n++
	}
	return &Row{Tuple: rowCountTuple(o.n)}, nil
}

func (o *UpdateOp) Close() error { return o.Input.Close() }

// DeleteOp removes every row Input produces from the table it came
// from.
type DeleteOp struct {
	Spec  *physical.DeleteOp
	Input Operator

	n       int64
	started bool
}

func NewDeleteOp(spec *physical.DeleteOp, input Operator) *DeleteOp {
	return &DeleteOp{Spec: spec, Input: input}
}

func (o *DeleteOp) Open(ctx *Context) error { return o.Input.Open(ctx) }

func (o *DeleteOp) Next() (*Row, error) {
	if o.started {
		return nil, nil
	}
	o.started = true
	for {
		row, err := o.Input.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		if err := row.Src.DeleteRecord(row.RID); err != nil {
			return nil, err
		}
		o.n++
	}
	return &Row{Tuple: rowCountTuple(o.n)}, nil
}

func (o *DeleteOp) Close() error { return o.Input.Close() }
