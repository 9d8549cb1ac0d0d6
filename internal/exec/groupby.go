package exec

import (
	"smfdb/internal/expr"
	"smfdb/internal/planner/physical"
	"smfdb/internal/types"
)

// groupFieldRef names a GROUP BY key's output column: its own FieldRef
// when it's a bare column reference, or a synthetic unqualified label
// built from its text for anything more complex (`GROUP BY a+1`).
func groupFieldRef(e expr.Expression) expr.FieldRef {
	if fe, ok := e.(*expr.FieldExpr); ok {
		return fe.Ref
	}
	return expr.FieldRef{Field: e.String()}
}

func newAggregators(aggs []*expr.AggregateExpr) []*expr.Aggregator {
	out := make([]*expr.Aggregator, len(aggs))
	for i, a := range aggs {
		argType := a.Typ
		if a.Arg != nil {
			argType = a.Arg.ValueType()
		}
		out[i] = expr.NewAggregator(a.Op, argType)
	}
	return out
}

func accumulate(aggs []*expr.AggregateExpr, accs []*expr.Aggregator, tuple *expr.Tuple) error {
	for i, a := range aggs {
		var v types.Value
		if a.Arg == nil {
			v = types.NewBool(true) // COUNT(*): never NULL, so every row counts
		} else {
			var err error
			v, err = a.Arg.GetValue(tuple)
			if err != nil {
				return err
			}
		}
		if err := accs[i].Accumulate(v); err != nil {
			return err
		}
	}
	return nil
}

func evaluateGroup(aggs []*expr.AggregateExpr, accs []*expr.Aggregator, keyRefs []expr.FieldRef, keyValues []types.Value) (*expr.Tuple, error) {
	schema := make([]expr.FieldRef, 0, len(keyRefs)+len(aggs))
	values := make([]types.Value, 0, len(keyRefs)+len(aggs))
	schema = append(schema, keyRefs...)
	values = append(values, keyValues...)
	for i, a := range aggs {
		v, err := accs[i].Evaluate()
		if err != nil {
			return nil, err
		}
		schema = append(schema, expr.FieldRef{Field: a.Label})
		values = append(values, v)
	}
	return expr.NewTuple(schema, values), nil
}

// ScalarGroupByOp computes one aggregate row over all of Input with no
// GROUP BY keys, emitted even when Input produced zero rows.
type ScalarGroupByOp struct {
	Spec  *physical.ScalarGroupByOp
	Input Operator

	emitted bool
}

func NewScalarGroupByOp(spec *physical.ScalarGroupByOp, input Operator) *ScalarGroupByOp {
	return &ScalarGroupByOp{Spec: spec, Input: input}
}

func (o *ScalarGroupByOp) Open(ctx *Context) error { return o.Input.Open(ctx) }

func (o *ScalarGroupByOp) Next() (*Row, error) {
	if o.emitted {
		return nil, nil
	}
	o.emitted = true

	accs := newAggregators(o.Spec.Aggregates)
	for {
		row, err := o.Input.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		if err := accumulate(o.Spec.Aggregates, accs, row.Tuple); err != nil {
			return nil, err
		}
	}

	tuple, err := evaluateGroup(o.Spec.Aggregates, accs, nil, nil)
	if err != nil {
		return nil, err
	}
	ok, err := evalBool(o.Spec.Having, tuple)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Row{Tuple: tuple}, nil
}

func (o *ScalarGroupByOp) Close() error { return o.Input.Close() }

// HashGroupByOp buckets Input's rows by GroupExprs into an in-memory
// hash table of Aggregators, then emits one row per distinct key.
type HashGroupByOp struct {
	Spec  *physical.HashGroupByOp
	Input Operator

	rows []*expr.Tuple
	pos  int
}

func NewHashGroupByOp(spec *physical.HashGroupByOp, input Operator) *HashGroupByOp {
	return &HashGroupByOp{Spec: spec, Input: input}
}

type groupBucket struct {
	keyValues []types.Value
	accs      []*expr.Aggregator
}

func (o *HashGroupByOp) Open(ctx *Context) error {
	if err := o.Input.Open(ctx); err != nil {
		return err
	}

	keyRefs := make([]expr.FieldRef, len(o.Spec.GroupExprs))
	for i, g := range o.Spec.GroupExprs {
		keyRefs[i] = groupFieldRef(g)
	}

	buckets := make(map[string]*groupBucket)
	var order []string
	for {
		row, err := o.Input.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		keyValues := make([]types.Value, len(o.Spec.GroupExprs))
		for i, g := range o.Spec.GroupExprs {
			v, err := g.GetValue(row.Tuple)
			if err != nil {
				return err
			}
			keyValues[i] = v
		}
		key, err := groupKeyString(keyValues)
		if err != nil {
			return err
		}
		b, ok := buckets[key]
		if !ok {
			b = &groupBucket{keyValues: keyValues, accs: newAggregators(o.Spec.Aggregates)}
			buckets[key] = b
			order = append(order, key)
		}
		if err := accumulate(o.Spec.Aggregates, b.accs, row.Tuple); err != nil {
			return err
		}
	}

	for _, key := range order {
		b := buckets[key]
		tuple, err := evaluateGroup(o.Spec.Aggregates, b.accs, keyRefs, b.keyValues)
		if err != nil {
			return err
		}
		ok, err := evalBool(o.Spec.Having, tuple)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		o.rows = append(o.rows, tuple)
	}
	return nil
}

func (o *HashGroupByOp) Next() (*Row, error) {
	if o.pos >= len(o.rows) {
		return nil, nil
	}
	t := o.rows[o.pos]
	o.pos++
	return &Row{Tuple: t}, nil
}

func (o *HashGroupByOp) Close() error { return o.Input.Close() }

// groupKeyString builds a map key from a group's key values; unlike a
// join key, NULL is a valid (and distinct) group rather than a
// never-matching one, so NULL components are encoded as their own tag.
func groupKeyString(values []types.Value) (string, error) {
	var b []byte
	for _, v := range values {
		if v.IsNull() {
			b = append(b, 0, 0)
			continue
		}
		b = append(b, byte(v.Type())+1)
		b = append(b, []byte(v.GetString())...)
		b = append(b, 0)
	}
	return string(b), nil
}
