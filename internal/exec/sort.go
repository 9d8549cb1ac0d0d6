package exec

import (
	"sort"

	"smfdb/internal/expr"
	"smfdb/internal/planner/physical"
	"smfdb/internal/types"
)

// SortOp drains Input entirely, orders the rows by Keys, then streams
// them out; ORDER BY has no logical-algebra meaning (spec.md §4.8), so
// this only ever exists at the top of a physical SELECT tree.
type SortOp struct {
	Spec  *physical.SortOp
	Input Operator

	rows []*Row
	pos  int
	err  error
}

func NewSortOp(spec *physical.SortOp, input Operator) *SortOp {
	return &SortOp{Spec: spec, Input: input}
}

func (o *SortOp) Open(ctx *Context) error {
	if err := o.Input.Open(ctx); err != nil {
		return err
	}
	for {
		row, err := o.Input.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		o.rows = append(o.rows, row)
	}
	sort.SliceStable(o.rows, func(i, j int) bool {
		less, err := o.less(o.rows[i].Tuple, o.rows[j].Tuple)
		if err != nil {
			o.err = err
		}
		return less
	})
	return o.err
}

func (o *SortOp) less(a, b *expr.Tuple) (bool, error) {
	for _, key := range o.Spec.Keys {
		av, err := key.Expr.GetValue(a)
		if err != nil {
			return false, err
		}
		bv, err := key.Expr.GetValue(b)
		if err != nil {
			return false, err
		}
		c, err := compareOrderable(av, bv)
		if err != nil {
			return false, err
		}
		if c == 0 {
			continue
		}
		if key.Desc {
			return c > 0, nil
		}
		return c < 0, nil
	}
	return false, nil
}

// compareOrderable places NULLs first, matching MySQL's ORDER BY
// default, then defers to the value's own type comparison.
func compareOrderable(a, b types.Value) (int, error) {
	if a.IsNull() && b.IsNull() {
		return 0, nil
	}
	if a.IsNull() {
		return -1, nil
	}
	if b.IsNull() {
		return 1, nil
	}
	return types.Compare(a, b)
}

func (o *SortOp) Next() (*Row, error) {
	if o.pos >= len(o.rows) {
		return nil, nil
	}
	r := o.rows[o.pos]
	o.pos++
	return r, nil
}

func (o *SortOp) Close() error { return o.Input.Close() }

// LimitOp caps its input at N rows; spec.md's grammar has no OFFSET,
// so N alone is all there is to enforce.
type LimitOp struct {
	Spec  *physical.LimitOp
	Input Operator

	n int64
}

func NewLimitOp(spec *physical.LimitOp, input Operator) *LimitOp {
	return &LimitOp{Spec: spec, Input: input}
}

func (o *LimitOp) Open(ctx *Context) error { return o.Input.Open(ctx) }

func (o *LimitOp) Next() (*Row, error) {
	if o.n >= o.Spec.N {
		return nil, nil
	}
	row, err := o.Input.Next()
	if err != nil || row == nil {
		return row, err
	}
	o.n++
	return row, nil
}

func (o *LimitOp) Close() error { return o.Input.Close() }
