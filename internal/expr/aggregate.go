package expr

import (
	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// AggOp enumerates the supported aggregate functions.
type AggOp int

const (
	AggSum AggOp = iota
	AggCount
	AggAvg
	AggMax
	AggMin
)

func (op AggOp) String() string {
	switch op {
	case AggSum:
		return "SUM"
	case AggCount:
		return "COUNT"
	case AggAvg:
		return "AVG"
	case AggMax:
		return "MAX"
	case AggMin:
		return "MIN"
	default:
		return "?"
	}
}

// UnboundAggregateExpr is an aggregate call before binding resolves its
// argument expression (and, for COUNT(*), recognizes the star).
type UnboundAggregateExpr struct {
	Op  AggOp
	Arg Expression // nil for COUNT(*)
}

func (e *UnboundAggregateExpr) Kind() Kind               { return KindUnboundAggregate }
func (e *UnboundAggregateExpr) ValueType() types.AttrType { return types.Undefined }
func (e *UnboundAggregateExpr) GetValue(*Tuple) (types.Value, error) {
	return types.Value{}, rc.Errorf(rc.Internal, "unbound aggregate %s must be resolved by the binder", e.Op)
}
func (e *UnboundAggregateExpr) GetInvolvedTables() []string {
	if e.Arg == nil {
		return nil
	}
	return e.Arg.GetInvolvedTables()
}
func (e *UnboundAggregateExpr) Equal(other Expression) bool {
	o, ok := other.(*UnboundAggregateExpr)
	if !ok || o.Op != e.Op {
		return false
	}
	if e.Arg == nil {
		return o.Arg == nil
	}
	return o.Arg != nil && o.Arg.Equal(e.Arg)
}
func (e *UnboundAggregateExpr) Copy() Expression {
	c := &UnboundAggregateExpr{Op: e.Op}
	if e.Arg != nil {
		c.Arg = e.Arg.Copy()
	}
	return c
}
func (e *UnboundAggregateExpr) String() string {
	if e.Arg == nil {
		return e.Op.String() + "(*)"
	}
	return e.Op.String() + "(" + e.Arg.String() + ")"
}

// AggregateExpr is a bound aggregate call: it reads its already-computed
// scalar out of a post-aggregation tuple at Label rather than
// recomputing anything itself — per-group accumulation is the
// Aggregator's job, driven by the exec layer's group-by operator.
type AggregateExpr struct {
	Op    AggOp
	Arg   Expression // nil for COUNT(*)
	Typ   types.AttrType
	Label string // the FieldRef.Field an AggregateOp binds its output column to
}

func (e *AggregateExpr) Kind() Kind               { return KindAggregate }
func (e *AggregateExpr) ValueType() types.AttrType { return e.Typ }
func (e *AggregateExpr) GetValue(tuple *Tuple) (types.Value, error) {
	v, ok := tuple.Get("", e.Label)
	if !ok {
		return types.Value{}, rc.Errorf(rc.SchemaFieldNotExist, "aggregate result %s not present in tuple", e.Label)
	}
	return v, nil
}
func (e *AggregateExpr) GetInvolvedTables() []string {
	if e.Arg == nil {
		return nil
	}
	return e.Arg.GetInvolvedTables()
}
func (e *AggregateExpr) Equal(other Expression) bool {
	o, ok := other.(*AggregateExpr)
	if !ok || o.Op != e.Op || o.Label != e.Label {
		return false
	}
	if e.Arg == nil {
		return o.Arg == nil
	}
	return o.Arg != nil && o.Arg.Equal(e.Arg)
}
func (e *AggregateExpr) Copy() Expression {
	c := &AggregateExpr{Op: e.Op, Typ: e.Typ, Label: e.Label}
	if e.Arg != nil {
		c.Arg = e.Arg.Copy()
	}
	return c
}
func (e *AggregateExpr) String() string {
	if e.Arg == nil {
		return e.Op.String() + "(*)"
	}
	return e.Op.String() + "(" + e.Arg.String() + ")"
}

// Aggregator is the per-group running accumulator driving one aggregate
// column: Accumulate feeds it one row's argument value at a time (NULL
// values are skipped, matching every original_source Aggregator
// subclass), and Evaluate produces the final result. AVG tracks a
// running sum and count and divides at evaluation time, coercing the
// result to FLOAT regardless of the summed type, exactly as
// AvgAggregator::evaluate does.
type Aggregator struct {
	op       AggOp
	valType  types.AttrType
	sum      types.Value
	sumInit  bool
	count    int64
	extreme  types.Value
	hasValue bool
}

// NewAggregator builds an Aggregator for op over arguments of valType
// (the argument's static type; COUNT ignores it).
func NewAggregator(op AggOp, valType types.AttrType) *Aggregator {
	return &Aggregator{op: op, valType: valType}
}

// Accumulate folds one row's value into the running aggregate. Passing
// a NULL value is always a no-op except that it still counts toward
// nothing — matching SUM/AVG/MAX/MIN's NULL-skip and COUNT's
// NULL-exclusion.
func (a *Aggregator) Accumulate(v types.Value) error {
	switch a.op {
	case AggCount:
		if !v.IsNull() {
			a.count++
		}
		return nil
	case AggSum, AggAvg:
		if v.IsNull() {
			return nil
		}
		if !a.sumInit {
			a.sum = v
			a.sumInit = true
		} else {
			sum, err := types.DataTypeFor(a.sum.Type()).Arith(types.Add, a.sum, v)
			if err != nil {
				return err
			}
			a.sum = sum
		}
		a.count++
		return nil
	case AggMax:
		if v.IsNull() {
			return nil
		}
		if !a.hasValue {
			a.extreme, a.hasValue = v, true
			return nil
		}
		c, err := types.Compare(v, a.extreme)
		if err != nil {
			return err
		}
		if c > 0 {
			a.extreme = v
		}
		return nil
	case AggMin:
		if v.IsNull() {
			return nil
		}
		if !a.hasValue {
			a.extreme, a.hasValue = v, true
			return nil
		}
		c, err := types.Compare(v, a.extreme)
		if err != nil {
			return err
		}
		if c < 0 {
			a.extreme = v
		}
		return nil
	default:
		return rc.Errorf(rc.Unimplemented, "unsupported aggregate op %v", a.op)
	}
}

// Evaluate produces the aggregate's final value: NULL if no non-NULL
// input was ever accumulated (except COUNT, which is 0 over an empty
// group), AVG always as FLOAT = sum/count.
func (a *Aggregator) Evaluate() (types.Value, error) {
	switch a.op {
	case AggCount:
		return types.NewInt(int32(a.count)), nil
	case AggSum:
		if !a.sumInit {
			return types.NewNull(a.valType), nil
		}
		return a.sum, nil
	case AggAvg:
		if !a.sumInit || a.count == 0 {
			return types.NewNull(types.FloatType), nil
		}
		return types.DataTypeFor(a.sum.Type()).Arith(types.Div, a.sum, types.NewFloat(float32(a.count)))
	case AggMax, AggMin:
		if !a.hasValue {
			return types.NewNull(a.valType), nil
		}
		return a.extreme, nil
	default:
		return types.Value{}, rc.Errorf(rc.Unimplemented, "unsupported aggregate op %v", a.op)
	}
}

// ResultType reports the aggregate's static result type: AVG is always
// FLOAT, COUNT is always INT, SUM/MAX/MIN keep the argument's type.
func ResultType(op AggOp, argType types.AttrType) types.AttrType {
	switch op {
	case AggCount:
		return types.IntType
	case AggAvg:
		return types.FloatType
	default:
		return argType
	}
}
