package exec

import (
	"smfdb/internal/expr"
	"smfdb/internal/planner/physical"
	"smfdb/internal/types"
)

// mergeTuples concatenates two tuples' schemas and values into one,
// the shape every join produces for its downstream operators.
func mergeTuples(l, r *expr.Tuple) *expr.Tuple {
	schema := make([]expr.FieldRef, 0, l.Len()+r.Len())
	values := make([]types.Value, 0, l.Len()+r.Len())
	schema = append(schema, l.Schema...)
	schema = append(schema, r.Schema...)
	for i := 0; i < l.Len(); i++ {
		values = append(values, l.At(i))
	}
	for i := 0; i < r.Len(); i++ {
		values = append(values, r.At(i))
	}
	return expr.NewTuple(schema, values)
}

// NestedLoopJoinOp probes Right once per Left row, per spec.md §4.11:
// for each left row, rewind right and emit every combined row whose On
// condition (nil for a cross join) evaluates true.
type NestedLoopJoinOp struct {
	Spec *physical.NestedLoopJoinOp

	left, right Operator
	ctx         *Context
	curLeft     *Row
}

func NewNestedLoopJoinOp(spec *physical.NestedLoopJoinOp, left, right Operator) *NestedLoopJoinOp {
	return &NestedLoopJoinOp{Spec: spec, left: left, right: right}
}

func (o *NestedLoopJoinOp) Open(ctx *Context) error {
	o.ctx = ctx
	if err := o.left.Open(ctx); err != nil {
		return err
	}
	return o.right.Open(ctx)
}

func (o *NestedLoopJoinOp) Next() (*Row, error) {
	for {
		if o.curLeft == nil {
			row, err := o.left.Next()
			if err != nil {
				return nil, err
			}
			if row == nil {
				return nil, nil
			}
			o.curLeft = row
			if err := o.right.Close(); err != nil {
				return nil, err
			}
			if err := o.right.Open(o.ctx); err != nil {
				return nil, err
			}
		}

		rightRow, err := o.right.Next()
		if err != nil {
			return nil, err
		}
		if rightRow == nil {
			o.curLeft = nil
			continue
		}

		merged := mergeTuples(o.curLeft.Tuple, rightRow.Tuple)
		ok, err := evalBool(o.Spec.On, merged)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		return &Row{Tuple: merged}, nil
	}
}

func (o *NestedLoopJoinOp) Close() error {
	err1 := o.left.Close()
	err2 := o.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// HashJoinOp builds an in-memory hash table over every Right row keyed
// by RightKeys, then probes it once per Left row using LeftKeys;
// chosen only for a pure equi-join, per spec.md §4.11.
type HashJoinOp struct {
	Spec *physical.HashJoinOp

	left, right Operator
	buckets     map[string][]*expr.Tuple
	curLeft     *Row
	candidates  []*expr.Tuple
	ci          int
}

func NewHashJoinOp(spec *physical.HashJoinOp, left, right Operator) *HashJoinOp {
	return &HashJoinOp{Spec: spec, left: left, right: right}
}

func (o *HashJoinOp) Open(ctx *Context) error {
	if err := o.left.Open(ctx); err != nil {
		return err
	}
	if err := o.right.Open(ctx); err != nil {
		return err
	}
	o.buckets = make(map[string][]*expr.Tuple)
	for {
		row, err := o.right.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		key, ok, err := hashKey(o.Spec.RightKeys, row.Tuple)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		o.buckets[key] = append(o.buckets[key], row.Tuple)
	}
	return nil
}

func (o *HashJoinOp) Next() (*Row, error) {
	for {
		if o.curLeft == nil || o.ci >= len(o.candidates) {
			row, err := o.left.Next()
			if err != nil {
				return nil, err
			}
			if row == nil {
				return nil, nil
			}
			key, ok, err := hashKey(o.Spec.LeftKeys, row.Tuple)
			if err != nil {
				return nil, err
			}
			o.curLeft = row
			if ok {
				o.candidates = o.buckets[key]
			} else {
				o.candidates = nil
			}
			o.ci = 0
			continue
		}
		right := o.candidates[o.ci]
		o.ci++
		return &Row{Tuple: mergeTuples(o.curLeft.Tuple, right)}, nil
	}
}

func (o *HashJoinOp) Close() error {
	err1 := o.left.Close()
	err2 := o.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// hashKey builds a string key from keys evaluated against tuple. ok is
// false if any component is NULL, since SQL equality never matches
// NULL to anything, including another NULL.
func hashKey(keys []expr.Expression, tuple *expr.Tuple) (key string, ok bool, err error) {
	var b []byte
	for _, k := range keys {
		v, err := k.GetValue(tuple)
		if err != nil {
			return "", false, err
		}
		if v.IsNull() {
			return "", false, nil
		}
		b = append(b, byte(v.Type()))
		b = append(b, []byte(v.GetString())...)
		b = append(b, 0)
	}
	return string(b), true, nil
}
