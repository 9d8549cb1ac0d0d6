package exec

import (
	"smfdb/internal/planner/physical"
	"smfdb/internal/rc"
)

// Build turns a physical operator tree into a live Volcano Operator
// tree, recursing into children first since every exec operator's
// constructor takes its already-built input operator(s).
func Build(op physical.Operator) (Operator, error) {
	switch n := op.(type) {
	case *physical.TableScanOp:
		return NewTableScanOp(n), nil

	case *physical.IndexScanOp:
		return NewIndexScanOp(n), nil

	case *physical.FilterOp:
		in, err := Build(n.Input)
		if err != nil {
			return nil, err
		}
		return NewFilterOp(n, in), nil

	case *physical.ProjectOp:
		in, err := Build(n.Input)
		if err != nil {
			return nil, err
		}
		return NewProjectOp(n, in), nil

	case *physical.NestedLoopJoinOp:
		left, err := Build(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := Build(n.Right)
		if err != nil {
			return nil, err
		}
		return NewNestedLoopJoinOp(n, left, right), nil

	case *physical.HashJoinOp:
		left, err := Build(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := Build(n.Right)
		if err != nil {
			return nil, err
		}
		return NewHashJoinOp(n, left, right), nil

	case *physical.ScalarGroupByOp:
		in, err := Build(n.Input)
		if err != nil {
			return nil, err
		}
		return NewScalarGroupByOp(n, in), nil

	case *physical.HashGroupByOp:
		in, err := Build(n.Input)
		if err != nil {
			return nil, err
		}
		return NewHashGroupByOp(n, in), nil

	case *physical.SortOp:
		in, err := Build(n.Input)
		if err != nil {
			return nil, err
		}
		return NewSortOp(n, in), nil

	case *physical.LimitOp:
		in, err := Build(n.Input)
		if err != nil {
			return nil, err
		}
		return NewLimitOp(n, in), nil

	case *physical.InsertOp:
		return NewInsertOp(n), nil

	case *physical.UpdateOp:
		in, err := Build(n.Input)
		if err != nil {
			return nil, err
		}
		return NewUpdateOp(n, in), nil

	case *physical.DeleteOp:
		in, err := Build(n.Input)
		if err != nil {
			return nil, err
		}
		return NewDeleteOp(n, in), nil

	default:
		return nil, rc.Errorf(rc.Internal, "exec: no builder for physical operator %T", op)
	}
}

// FilterOp applies a post-scan/post-join predicate, the exec-level
// counterpart of physical.FilterOp (built only when rewrite couldn't
// push a conjunct all the way to a scan or join).
type FilterOp struct {
	Spec  *physical.FilterOp
	Input Operator
}

func NewFilterOp(spec *physical.FilterOp, input Operator) *FilterOp {
	return &FilterOp{Spec: spec, Input: input}
}

func (o *FilterOp) Open(ctx *Context) error { return o.Input.Open(ctx) }

func (o *FilterOp) Next() (*Row, error) {
	for {
		row, err := o.Input.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, nil
		}
		ok, err := passesFilter(o.Spec.Filter, row.Tuple)
		if err != nil {
			return nil, err
		}
		if ok {
			return row, nil
		}
	}
}

func (o *FilterOp) Close() error { return o.Input.Close() }
