package expr

import (
	"math"

	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// DistanceOp enumerates the VECTOR distance/similarity functions.
type DistanceOp int

const (
	DistanceL2 DistanceOp = iota
	DistanceCosine
	DistanceInnerProduct
)

func (op DistanceOp) String() string {
	switch op {
	case DistanceL2:
		return "L2_DISTANCE"
	case DistanceCosine:
		return "COSINE_DISTANCE"
	case DistanceInnerProduct:
		return "INNER_PRODUCT"
	default:
		return "?"
	}
}

// DistanceFunctionExpr computes a scalar FLOAT distance/similarity
// between two equal-dimension VECTOR expressions.
type DistanceFunctionExpr struct {
	Op          DistanceOp
	Left, Right Expression
}

func (e *DistanceFunctionExpr) Kind() Kind               { return KindDistance }
func (e *DistanceFunctionExpr) ValueType() types.AttrType { return types.FloatType }

func (e *DistanceFunctionExpr) GetValue(tuple *Tuple) (types.Value, error) {
	lv, err := e.Left.GetValue(tuple)
	if err != nil {
		return types.Value{}, err
	}
	rv, err := e.Right.GetValue(tuple)
	if err != nil {
		return types.Value{}, err
	}
	if lv.IsNull() || rv.IsNull() {
		return types.NewNull(types.FloatType), nil
	}
	a, b := lv.GetVector(), rv.GetVector()
	if a == nil || b == nil {
		return types.Value{}, rc.Errorf(rc.SchemaFieldTypeMismatch, "%s requires two VECTOR operands", e.Op)
	}
	if len(a) != len(b) {
		return types.Value{}, rc.Errorf(rc.InvalidArgument, "vector dimension mismatch: %d vs %d", len(a), len(b))
	}

	switch e.Op {
	case DistanceL2:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return types.NewFloat(float32(math.Sqrt(sum))), nil
	case DistanceInnerProduct:
		var sum float64
		for i := range a {
			sum += float64(a[i]) * float64(b[i])
		}
		return types.NewFloat(float32(sum)), nil
	case DistanceCosine:
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return types.NewNull(types.FloatType), nil
		}
		cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
		return types.NewFloat(float32(1 - cos)), nil
	default:
		return types.Value{}, rc.Errorf(rc.Unimplemented, "unsupported distance function %v", e.Op)
	}
}

func (e *DistanceFunctionExpr) GetInvolvedTables() []string {
	return dedupTables(append(e.Left.GetInvolvedTables(), e.Right.GetInvolvedTables()...))
}

func (e *DistanceFunctionExpr) Equal(other Expression) bool {
	o, ok := other.(*DistanceFunctionExpr)
	return ok && o.Op == e.Op && o.Left.Equal(e.Left) && o.Right.Equal(e.Right)
}

func (e *DistanceFunctionExpr) Copy() Expression {
	return &DistanceFunctionExpr{Op: e.Op, Left: e.Left.Copy(), Right: e.Right.Copy()}
}

func (e *DistanceFunctionExpr) String() string {
	return e.Op.String() + "(" + e.Left.String() + ", " + e.Right.String() + ")"
}
