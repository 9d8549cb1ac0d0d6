package expr

import (
	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// CompOp enumerates the comparison operators ComparisonExpr dispatches
// on. Like/NotLike do simple SQL '%'/'_' wildcard matching over CHAR/
// TEXT operands.
type CompOp int

const (
	OpEq CompOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIsNull
	OpIsNotNull
	OpLike
	OpNotLike
)

func (op CompOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	case OpLike:
		return "LIKE"
	case OpNotLike:
		return "NOT LIKE"
	default:
		return "?"
	}
}

// ComparisonExpr evaluates to a BOOLEAN. Right is nil for the unary
// IS NULL / IS NOT NULL operators.
type ComparisonExpr struct {
	Op          CompOp
	Left, Right Expression
}

func (e *ComparisonExpr) Kind() Kind               { return KindComparison }
func (e *ComparisonExpr) ValueType() types.AttrType { return types.BoolType }

func (e *ComparisonExpr) GetValue(tuple *Tuple) (types.Value, error) {
	lv, err := e.Left.GetValue(tuple)
	if err != nil {
		return types.Value{}, err
	}

	if e.Op == OpIsNull {
		return types.NewBool(lv.IsNull()), nil
	}
	if e.Op == OpIsNotNull {
		return types.NewBool(!lv.IsNull()), nil
	}

	rv, err := e.Right.GetValue(tuple)
	if err != nil {
		return types.Value{}, err
	}

	// SQL three-valued logic: any NULL operand makes the comparison
	// itself NULL, represented here as a NULL BOOLEAN.
	if lv.IsNull() || rv.IsNull() {
		return types.NewNull(types.BoolType), nil
	}

	switch e.Op {
	case OpLike, OpNotLike:
		matched := likeMatch(lv.GetString(), rv.GetString())
		if e.Op == OpNotLike {
			matched = !matched
		}
		return types.NewBool(matched), nil
	}

	c, err := types.Compare(lv, rv)
	if err != nil {
		return types.Value{}, err
	}
	var result bool
	switch e.Op {
	case OpEq:
		result = c == 0
	case OpNe:
		result = c != 0
	case OpLt:
		result = c < 0
	case OpLe:
		result = c <= 0
	case OpGt:
		result = c > 0
	case OpGe:
		result = c >= 0
	default:
		return types.Value{}, rc.Errorf(rc.Unimplemented, "unsupported comparison operator %v", e.Op)
	}
	return types.NewBool(result), nil
}

func (e *ComparisonExpr) GetInvolvedTables() []string {
	tabs := e.Left.GetInvolvedTables()
	if e.Right != nil {
		tabs = append(tabs, e.Right.GetInvolvedTables()...)
	}
	return dedupTables(tabs)
}

func (e *ComparisonExpr) Equal(other Expression) bool {
	o, ok := other.(*ComparisonExpr)
	if !ok || o.Op != e.Op {
		return false
	}
	if !o.Left.Equal(e.Left) {
		return false
	}
	if e.Right == nil {
		return o.Right == nil
	}
	return o.Right != nil && o.Right.Equal(e.Right)
}

func (e *ComparisonExpr) Copy() Expression {
	c := &ComparisonExpr{Op: e.Op, Left: e.Left.Copy()}
	if e.Right != nil {
		c.Right = e.Right.Copy()
	}
	return c
}

func (e *ComparisonExpr) String() string {
	if e.Right == nil {
		return e.Left.String() + " " + e.Op.String()
	}
	return e.Left.String() + " " + e.Op.String() + " " + e.Right.String()
}

// likeMatch implements SQL LIKE with '%' (any run) and '_' (one char)
// wildcards via a standard DP over pattern/text.
func likeMatch(s, pattern string) bool {
	sb, pb := []rune(s), []rune(pattern)
	dp := make([][]bool, len(sb)+1)
	for i := range dp {
		dp[i] = make([]bool, len(pb)+1)
	}
	dp[0][0] = true
	for j := 1; j <= len(pb); j++ {
		if pb[j-1] == '%' {
			dp[0][j] = dp[0][j-1]
		}
	}
	for i := 1; i <= len(sb); i++ {
		for j := 1; j <= len(pb); j++ {
			switch pb[j-1] {
			case '%':
				dp[i][j] = dp[i-1][j] || dp[i][j-1]
			case '_':
				dp[i][j] = dp[i-1][j-1]
			default:
				dp[i][j] = dp[i-1][j-1] && sb[i-1] == pb[j-1]
			}
		}
	}
	return dp[len(sb)][len(pb)]
}

// ConjOp enumerates AND/OR for ConjunctionExpr.
type ConjOp int

const (
	ConjAnd ConjOp = iota
	ConjOr
)

// ConjunctionExpr combines two or more boolean children with AND/OR,
// short-circuiting and honoring SQL three-valued NULL propagation.
type ConjunctionExpr struct {
	Op       ConjOp
	Children []Expression
}

func (e *ConjunctionExpr) Kind() Kind               { return KindConjunction }
func (e *ConjunctionExpr) ValueType() types.AttrType { return types.BoolType }

func (e *ConjunctionExpr) GetValue(tuple *Tuple) (types.Value, error) {
	sawNull := false
	for _, c := range e.Children {
		v, err := c.GetValue(tuple)
		if err != nil {
			return types.Value{}, err
		}
		if v.IsNull() {
			sawNull = true
			continue
		}
		b := v.GetBool()
		if e.Op == ConjAnd && !b {
			return types.NewBool(false), nil
		}
		if e.Op == ConjOr && b {
			return types.NewBool(true), nil
		}
	}
	if sawNull {
		return types.NewNull(types.BoolType), nil
	}
	return types.NewBool(e.Op == ConjAnd), nil
}

func (e *ConjunctionExpr) GetInvolvedTables() []string {
	var tabs []string
	for _, c := range e.Children {
		tabs = append(tabs, c.GetInvolvedTables()...)
	}
	return dedupTables(tabs)
}

func (e *ConjunctionExpr) Equal(other Expression) bool {
	o, ok := other.(*ConjunctionExpr)
	if !ok || o.Op != e.Op || len(o.Children) != len(e.Children) {
		return false
	}
	for i := range e.Children {
		if !o.Children[i].Equal(e.Children[i]) {
			return false
		}
	}
	return true
}

func (e *ConjunctionExpr) Copy() Expression {
	children := make([]Expression, len(e.Children))
	for i, c := range e.Children {
		children[i] = c.Copy()
	}
	return &ConjunctionExpr{Op: e.Op, Children: children}
}

func (e *ConjunctionExpr) String() string {
	sep := " AND "
	if e.Op == ConjOr {
		sep = " OR "
	}
	s := ""
	for i, c := range e.Children {
		if i > 0 {
			s += sep
		}
		s += c.String()
	}
	return s
}

func dedupTables(tabs []string) []string {
	if len(tabs) < 2 {
		return tabs
	}
	seen := make(map[string]struct{}, len(tabs))
	out := tabs[:0]
	for _, t := range tabs {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
