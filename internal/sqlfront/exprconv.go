package sqlfront

import (
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"

	"smfdb/internal/expr"
	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// convertExpr translates one TiDB expression AST node into smfdb's
// unbound expr.Expression tree. Only the subset of the TiDB expression
// grammar spec.md's SQL surface actually needs is handled; anything
// else reports Unimplemented rather than silently mistranslating.
func convertExpr(node ast.ExprNode) (expr.Expression, error) {
	switch n := node.(type) {
	case *ast.ColumnNameExpr:
		return &expr.UnboundFieldExpr{Table: n.Name.Table.O, Field: n.Name.Name.O}, nil

	case ast.ValueExpr:
		return convertValueExpr(n)

	case *ast.ParenthesesExpr:
		return convertExpr(n.Expr)

	case *ast.BinaryOperationExpr:
		return convertBinaryOp(n)

	case *ast.UnaryOperationExpr:
		return convertUnaryOp(n)

	case *ast.IsNullExpr:
		inner, err := convertExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		op := expr.OpIsNull
		if n.Not {
			op = expr.OpIsNotNull
		}
		return &expr.ComparisonExpr{Op: op, Left: inner}, nil

	case *ast.IsTruthExpr:
		inner, err := convertExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		want := n.True != 0
		if n.Not {
			want = !want
		}
		return &expr.ComparisonExpr{Op: expr.OpEq, Left: inner, Right: &expr.ValueExpr{Val: types.NewBool(want)}}, nil

	case *ast.AggregateFuncExpr:
		return convertAggregate(n)

	case *ast.FuncCallExpr:
		return convertFuncCall(n)

	case *ast.SubqueryExpr:
		sel, ok := n.Query.(*ast.SelectStmt)
		if !ok {
			return nil, rc.Errorf(rc.Unimplemented, "unsupported subquery shape")
		}
		return newSubqueryPlaceholder(sel), nil

	case *ast.ExistsSubqueryExpr:
		sub, ok := n.Sel.(*ast.SubqueryExpr)
		if !ok {
			return nil, rc.Errorf(rc.Unimplemented, "EXISTS requires a subquery operand")
		}
		sel, ok := sub.Query.(*ast.SelectStmt)
		if !ok {
			return nil, rc.Errorf(rc.Unimplemented, "unsupported EXISTS subquery shape")
		}
		return newExistsPlaceholder(sel, n.Not), nil

	case *ast.PatternInExpr:
		return convertPatternIn(n)

	case *ast.PatternLikeOrIlikeExpr:
		return convertLike(n)

	default:
		return nil, rc.Errorf(rc.Unimplemented, "unsupported expression syntax (%T)", node)
	}
}

func convertValueExpr(n ast.ValueExpr) (expr.Expression, error) {
	v := n.GetValue()
	if v == nil {
		return &expr.ValueExpr{Val: types.NewNull(types.Undefined)}, nil
	}
	switch x := v.(type) {
	case int64:
		return &expr.ValueExpr{Val: types.NewInt(int32(x))}, nil
	case uint64:
		return &expr.ValueExpr{Val: types.NewInt(int32(x))}, nil
	case float64:
		return &expr.ValueExpr{Val: types.NewFloat(float32(x))}, nil
	case float32:
		return &expr.ValueExpr{Val: types.NewFloat(x)}, nil
	case string:
		return &expr.ValueExpr{Val: types.NewText(x)}, nil
	case bool:
		return &expr.ValueExpr{Val: types.NewBool(x)}, nil
	default:
		// Fall back to the literal's textual form (decimals, binary
		// literals, etc. restore to a parseable string representation).
		return &expr.ValueExpr{Val: types.NewText(exprToString(n))}, nil
	}
}

func convertBinaryOp(n *ast.BinaryOperationExpr) (expr.Expression, error) {
	l, err := convertExpr(n.L)
	if err != nil {
		return nil, err
	}
	r, err := convertExpr(n.R)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case opcode.EQ:
		return &expr.ComparisonExpr{Op: expr.OpEq, Left: l, Right: r}, nil
	case opcode.NE:
		return &expr.ComparisonExpr{Op: expr.OpNe, Left: l, Right: r}, nil
	case opcode.LT:
		return &expr.ComparisonExpr{Op: expr.OpLt, Left: l, Right: r}, nil
	case opcode.LE:
		return &expr.ComparisonExpr{Op: expr.OpLe, Left: l, Right: r}, nil
	case opcode.GT:
		return &expr.ComparisonExpr{Op: expr.OpGt, Left: l, Right: r}, nil
	case opcode.GE:
		return &expr.ComparisonExpr{Op: expr.OpGe, Left: l, Right: r}, nil
	case opcode.LogicAnd:
		return &expr.ConjunctionExpr{Op: expr.ConjAnd, Children: []expr.Expression{l, r}}, nil
	case opcode.LogicOr:
		return &expr.ConjunctionExpr{Op: expr.ConjOr, Children: []expr.Expression{l, r}}, nil
	case opcode.Plus:
		return &expr.ArithmeticExpr{Op: types.Add, Left: l, Right: r}, nil
	case opcode.Minus:
		return &expr.ArithmeticExpr{Op: types.Sub, Left: l, Right: r}, nil
	case opcode.Mul:
		return &expr.ArithmeticExpr{Op: types.Mul, Left: l, Right: r}, nil
	case opcode.Div:
		return &expr.ArithmeticExpr{Op: types.Div, Left: l, Right: r}, nil
	default:
		return nil, rc.Errorf(rc.Unimplemented, "unsupported binary operator %v", n.Op)
	}
}

func convertUnaryOp(n *ast.UnaryOperationExpr) (expr.Expression, error) {
	v, err := convertExpr(n.V)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case opcode.Minus:
		return &expr.ArithmeticExpr{Op: types.Negative, Left: v}, nil
	case opcode.Not, opcode.Not2:
		// NOT x == (x = FALSE), evaluated through the comparison path so
		// NULL still propagates per SQL three-valued logic.
		return &expr.ComparisonExpr{Op: expr.OpEq, Left: v, Right: &expr.ValueExpr{Val: types.NewBool(false)}}, nil
	case opcode.Plus:
		return v, nil
	default:
		return nil, rc.Errorf(rc.Unimplemented, "unsupported unary operator %v", n.Op)
	}
}

func convertAggregate(n *ast.AggregateFuncExpr) (expr.Expression, error) {
	op, ok := aggOpFor(n.F)
	if !ok {
		return nil, rc.Errorf(rc.Unimplemented, "unsupported aggregate function %s", n.F)
	}
	if len(n.Args) == 0 {
		return &expr.UnboundAggregateExpr{Op: op}, nil
	}
	arg, err := convertExpr(n.Args[0])
	if err != nil {
		return nil, err
	}
	if _, isStar := arg.(*expr.StarExpr); isStar {
		return &expr.UnboundAggregateExpr{Op: op}, nil
	}
	return &expr.UnboundAggregateExpr{Op: op, Arg: arg}, nil
}

func aggOpFor(name string) (expr.AggOp, bool) {
	switch name {
	case "sum":
		return expr.AggSum, true
	case "count":
		return expr.AggCount, true
	case "avg":
		return expr.AggAvg, true
	case "max":
		return expr.AggMax, true
	case "min":
		return expr.AggMin, true
	default:
		return 0, false
	}
}

// convertFuncCall handles the VECTOR distance functions; any other
// function is unsupported. CAST(...) is not a function call in the TiDB
// AST and convertExpr has no case for it, so it is rejected as
// unsupported syntax.
func convertFuncCall(n *ast.FuncCallExpr) (expr.Expression, error) {
	switch n.FnName.L {
	case "l2_distance", "cosine_distance", "inner_product":
		if len(n.Args) != 2 {
			return nil, rc.Errorf(rc.InvalidArgument, "%s takes exactly two arguments", n.FnName.L)
		}
		l, err := convertExpr(n.Args[0])
		if err != nil {
			return nil, err
		}
		r, err := convertExpr(n.Args[1])
		if err != nil {
			return nil, err
		}
		var op expr.DistanceOp
		switch n.FnName.L {
		case "l2_distance":
			op = expr.DistanceL2
		case "cosine_distance":
			op = expr.DistanceCosine
		case "inner_product":
			op = expr.DistanceInnerProduct
		}
		return &expr.DistanceFunctionExpr{Op: op, Left: l, Right: r}, nil
	default:
		return nil, rc.Errorf(rc.Unimplemented, "unsupported function %s", n.FnName.O)
	}
}

func convertPatternIn(n *ast.PatternInExpr) (expr.Expression, error) {
	left, err := convertExpr(n.Expr)
	if err != nil {
		return nil, err
	}
	if n.Sel != nil {
		sub, ok := n.Sel.(*ast.SubqueryExpr)
		if !ok {
			return nil, rc.Errorf(rc.Unimplemented, "unsupported IN subquery shape")
		}
		sel, ok := sub.Query.(*ast.SelectStmt)
		if !ok {
			return nil, rc.Errorf(rc.Unimplemented, "unsupported IN subquery shape")
		}
		return newInPlaceholder(left, sel, n.Not), nil
	}
	// A literal list `x IN (1, 2, 3)` desugars to an OR-chain of
	// equalities so it reuses ComparisonExpr/ConjunctionExpr rather than
	// needing its own evaluation path.
	eqs := make([]expr.Expression, 0, len(n.List))
	for _, item := range n.List {
		rv, err := convertExpr(item)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, &expr.ComparisonExpr{Op: expr.OpEq, Left: left, Right: rv})
	}
	if len(eqs) == 1 {
		if n.Not {
			return negate(eqs[0]), nil
		}
		return eqs[0], nil
	}
	or := &expr.ConjunctionExpr{Op: expr.ConjOr, Children: eqs}
	if n.Not {
		return negate(or), nil
	}
	return or, nil
}

func negate(e expr.Expression) expr.Expression {
	return &expr.ComparisonExpr{Op: expr.OpEq, Left: e, Right: &expr.ValueExpr{Val: types.NewBool(false)}}
}

func convertLike(n *ast.PatternLikeOrIlikeExpr) (expr.Expression, error) {
	left, err := convertExpr(n.Expr)
	if err != nil {
		return nil, err
	}
	pattern, err := convertExpr(n.Pattern)
	if err != nil {
		return nil, err
	}
	op := expr.OpLike
	if n.Not {
		op = expr.OpNotLike
	}
	return &expr.ComparisonExpr{Op: op, Left: left, Right: pattern}, nil
}

func exprToString(n ast.ExprNode) string {
	return restoreNode(n)
}
