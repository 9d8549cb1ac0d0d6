package expr

import (
	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// SubqueryRunner executes a bound subquery plan for one outer tuple and
// returns the single-column result set it produces. internal/exec/
// subquery implements this (with its own LRU result cache); expr only
// depends on the interface, so the expression tree never imports the
// executor package that in turn depends on expr.
type SubqueryRunner interface {
	Run(outer *Tuple) ([]types.Value, error)
}

// SubqueryExpr is a scalar subquery: it must produce exactly one row
// (zero rows evaluates to NULL; more than one row is an error, matching
// SQL scalar-subquery semantics).
type SubqueryExpr struct {
	Runner SubqueryRunner
	Typ    types.AttrType
	Text   string // the original SQL text, for String()/debugging
}

func (e *SubqueryExpr) Kind() Kind               { return KindSubquery }
func (e *SubqueryExpr) ValueType() types.AttrType { return e.Typ }
func (e *SubqueryExpr) GetValue(tuple *Tuple) (types.Value, error) {
	rows, err := e.Runner.Run(tuple)
	if err != nil {
		return types.Value{}, err
	}
	switch len(rows) {
	case 0:
		return types.NewNull(e.Typ), nil
	case 1:
		return rows[0], nil
	default:
		return types.Value{}, rc.Errorf(rc.SQLSyntax, "scalar subquery returned %d rows, expected at most 1", len(rows))
	}
}
func (e *SubqueryExpr) GetInvolvedTables() []string { return nil }
func (e *SubqueryExpr) Equal(other Expression) bool {
	o, ok := other.(*SubqueryExpr)
	return ok && o.Text == e.Text
}
func (e *SubqueryExpr) Copy() Expression { c := *e; return &c }
func (e *SubqueryExpr) String() string   { return "(" + e.Text + ")" }

// InExpr evaluates `Left [NOT] IN (subquery)`.
type InExpr struct {
	Left   Expression
	Runner SubqueryRunner
	Not    bool
	Text   string
}

func (e *InExpr) Kind() Kind               { return KindIn }
func (e *InExpr) ValueType() types.AttrType { return types.BoolType }
func (e *InExpr) GetValue(tuple *Tuple) (types.Value, error) {
	lv, err := e.Left.GetValue(tuple)
	if err != nil {
		return types.Value{}, err
	}
	if lv.IsNull() {
		return types.NewNull(types.BoolType), nil
	}
	rows, err := e.Runner.Run(tuple)
	if err != nil {
		return types.Value{}, err
	}
	sawNull := false
	for _, rv := range rows {
		if rv.IsNull() {
			sawNull = true
			continue
		}
		c, err := types.Compare(lv, rv)
		if err != nil {
			return types.Value{}, err
		}
		if c == 0 {
			return types.NewBool(!e.Not), nil
		}
	}
	if sawNull {
		// SQL: `x IN (...NULL...)` is UNKNOWN unless x matched something.
		return types.NewNull(types.BoolType), nil
	}
	return types.NewBool(e.Not), nil
}
func (e *InExpr) GetInvolvedTables() []string { return e.Left.GetInvolvedTables() }
func (e *InExpr) Equal(other Expression) bool {
	o, ok := other.(*InExpr)
	return ok && o.Not == e.Not && o.Text == e.Text && o.Left.Equal(e.Left)
}
func (e *InExpr) Copy() Expression { return &InExpr{Left: e.Left.Copy(), Runner: e.Runner, Not: e.Not, Text: e.Text} }
func (e *InExpr) String() string {
	if e.Not {
		return e.Left.String() + " NOT IN (" + e.Text + ")"
	}
	return e.Left.String() + " IN (" + e.Text + ")"
}

// ExistsExpr evaluates `[NOT] EXISTS (subquery)`. Unlike IN/scalar
// subqueries it never checks column count, matching
// subquery_executor.cpp's check_single_column=false path.
type ExistsExpr struct {
	Runner SubqueryRunner
	Not    bool
	Text   string
}

func (e *ExistsExpr) Kind() Kind               { return KindExists }
func (e *ExistsExpr) ValueType() types.AttrType { return types.BoolType }
func (e *ExistsExpr) GetValue(tuple *Tuple) (types.Value, error) {
	rows, err := e.Runner.Run(tuple)
	if err != nil {
		return types.Value{}, err
	}
	exists := len(rows) > 0
	if e.Not {
		exists = !exists
	}
	return types.NewBool(exists), nil
}
func (e *ExistsExpr) GetInvolvedTables() []string { return nil }
func (e *ExistsExpr) Equal(other Expression) bool {
	o, ok := other.(*ExistsExpr)
	return ok && o.Not == e.Not && o.Text == e.Text
}
func (e *ExistsExpr) Copy() Expression { c := *e; return &c }
func (e *ExistsExpr) String() string {
	if e.Not {
		return "NOT EXISTS (" + e.Text + ")"
	}
	return "EXISTS (" + e.Text + ")"
}
