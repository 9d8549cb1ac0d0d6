package expr

import (
	"smfdb/internal/types"
)

// ArithmeticExpr evaluates a binary (or, for Negative, unary) arithmetic
// operator. Result-type promotion follows original_source's type rules:
// VECTOR if either operand is VECTOR, INT if both operands are INT and
// the operator isn't division, FLOAT otherwise.
type ArithmeticExpr struct {
	Op          types.ArithOp
	Left, Right Expression // Right is nil for Negative
}

func (e *ArithmeticExpr) Kind() Kind { return KindArithmetic }

func (e *ArithmeticExpr) ValueType() types.AttrType {
	lt := e.Left.ValueType()
	if lt == types.VectorType {
		return types.VectorType
	}
	if e.Op == types.Negative {
		if lt == types.IntType {
			return types.IntType
		}
		return types.FloatType
	}
	rt := e.Right.ValueType()
	if rt == types.VectorType {
		return types.VectorType
	}
	if lt == types.IntType && rt == types.IntType && e.Op != types.Div {
		return types.IntType
	}
	return types.FloatType
}

func (e *ArithmeticExpr) GetValue(tuple *Tuple) (types.Value, error) {
	lv, err := e.Left.GetValue(tuple)
	if err != nil {
		return types.Value{}, err
	}
	if e.Op == types.Negative {
		if lv.IsNull() {
			return types.NewNull(e.ValueType()), nil
		}
		return types.DataTypeFor(lv.Type()).Arith(types.Negative, lv, types.Value{})
	}
	rv, err := e.Right.GetValue(tuple)
	if err != nil {
		return types.Value{}, err
	}
	if lv.IsNull() || rv.IsNull() {
		return types.NewNull(e.ValueType()), nil
	}
	return types.DataTypeFor(lv.Type()).Arith(e.Op, lv, rv)
}

func (e *ArithmeticExpr) GetInvolvedTables() []string {
	tabs := e.Left.GetInvolvedTables()
	if e.Right != nil {
		tabs = append(tabs, e.Right.GetInvolvedTables()...)
	}
	return dedupTables(tabs)
}

func (e *ArithmeticExpr) Equal(other Expression) bool {
	o, ok := other.(*ArithmeticExpr)
	if !ok || o.Op != e.Op || !o.Left.Equal(e.Left) {
		return false
	}
	if e.Right == nil {
		return o.Right == nil
	}
	return o.Right != nil && o.Right.Equal(e.Right)
}

func (e *ArithmeticExpr) Copy() Expression {
	c := &ArithmeticExpr{Op: e.Op, Left: e.Left.Copy()}
	if e.Right != nil {
		c.Right = e.Right.Copy()
	}
	return c
}

func (e *ArithmeticExpr) String() string {
	sym := map[types.ArithOp]string{types.Add: "+", types.Sub: "-", types.Mul: "*", types.Div: "/", types.Negative: "-"}[e.Op]
	if e.Op == types.Negative {
		return sym + e.Left.String()
	}
	return e.Left.String() + " " + sym + " " + e.Right.String()
}
