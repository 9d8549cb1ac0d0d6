package exec

import (
	"smfdb/internal/binder"
	"smfdb/internal/expr"
	"smfdb/internal/planner/physical"
	"smfdb/internal/types"
)

// ProjectOp evaluates Fields against each of Input's rows, producing
// an output tuple whose schema is the projection's display names.
type ProjectOp struct {
	Spec  *physical.ProjectOp
	Input Operator
}

func NewProjectOp(spec *physical.ProjectOp, input Operator) *ProjectOp {
	return &ProjectOp{Spec: spec, Input: input}
}

func (o *ProjectOp) Open(ctx *Context) error { return o.Input.Open(ctx) }

func (o *ProjectOp) Next() (*Row, error) {
	row, err := o.Input.Next()
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	tuple, err := projectTuple(o.Spec.Fields, row.Tuple)
	if err != nil {
		return nil, err
	}
	return &Row{Tuple: tuple, RID: row.RID, Src: row.Src}, nil
}

func (o *ProjectOp) Close() error { return o.Input.Close() }

func projectTuple(fields []binder.BoundField, in *expr.Tuple) (*expr.Tuple, error) {
	schema := make([]expr.FieldRef, len(fields))
	values := make([]types.Value, len(fields))
	for i, f := range fields {
		v, err := f.Expr.GetValue(in)
		if err != nil {
			return nil, err
		}
		schema[i] = expr.FieldRef{Field: f.Name}
		values[i] = v
	}
	return expr.NewTuple(schema, values), nil
}
