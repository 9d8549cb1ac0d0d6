package sqlfront

import (
	"github.com/pingcap/tidb/pkg/parser/ast"

	"smfdb/internal/expr"
	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// The three placeholder expression nodes below carry an unbound nested
// SelectStmt through internal/expr's Expression interface so sqlfront
// can hand binder one uniform tree. None of them are evaluable on
// their own: internal/binder binds each nested SELECT and replaces the
// placeholder with a BoundSubqueryExpr / BoundInExpr / BoundExistsExpr,
// and internal/exec/subquery later swaps those for runner-backed
// expr.SubqueryExpr / expr.InExpr / expr.ExistsExpr before execution.

// SubqueryPlaceholder stands in for a scalar or row subquery.
type SubqueryPlaceholder struct {
	Query *SelectStmt
	Text  string
	Err   error // set when the nested SELECT itself failed to convert
}

func newSubqueryPlaceholder(sel *ast.SelectStmt) *SubqueryPlaceholder {
	q, text, err := convertSelectForSubquery(sel)
	return &SubqueryPlaceholder{Query: q, Text: text, Err: err}
}

func (p *SubqueryPlaceholder) Kind() expr.Kind               { return expr.KindSubquery }
func (p *SubqueryPlaceholder) ValueType() types.AttrType     { return types.Undefined }
func (p *SubqueryPlaceholder) GetInvolvedTables() []string   { return nil }
func (p *SubqueryPlaceholder) Copy() expr.Expression         { return p }
func (p *SubqueryPlaceholder) String() string                { return "(" + p.Text + ")" }
func (p *SubqueryPlaceholder) Equal(o expr.Expression) bool  { op, ok := o.(*SubqueryPlaceholder); return ok && op == p }
func (p *SubqueryPlaceholder) GetValue(*expr.Tuple) (types.Value, error) {
	return types.Value{}, rc.Errorf(rc.Internal, "subquery %q was never bound to a plan", p.Text)
}

// ExistsPlaceholder stands in for `[NOT] EXISTS (subquery)`.
type ExistsPlaceholder struct {
	Query *SelectStmt
	Not   bool
	Text  string
	Err   error
}

func newExistsPlaceholder(sel *ast.SelectStmt, not bool) *ExistsPlaceholder {
	q, text, err := convertSelectForSubquery(sel)
	return &ExistsPlaceholder{Query: q, Not: not, Text: text, Err: err}
}

func (p *ExistsPlaceholder) Kind() expr.Kind             { return expr.KindExists }
func (p *ExistsPlaceholder) ValueType() types.AttrType   { return types.BoolType }
func (p *ExistsPlaceholder) GetInvolvedTables() []string { return nil }
func (p *ExistsPlaceholder) Copy() expr.Expression       { return p }
func (p *ExistsPlaceholder) String() string {
	if p.Not {
		return "NOT EXISTS (" + p.Text + ")"
	}
	return "EXISTS (" + p.Text + ")"
}
func (p *ExistsPlaceholder) Equal(o expr.Expression) bool {
	op, ok := o.(*ExistsPlaceholder)
	return ok && op == p
}
func (p *ExistsPlaceholder) GetValue(*expr.Tuple) (types.Value, error) {
	return types.Value{}, rc.Errorf(rc.Internal, "subquery %q was never bound to a plan", p.Text)
}

// InPlaceholder stands in for `Left [NOT] IN (subquery)`.
type InPlaceholder struct {
	Left  expr.Expression
	Query *SelectStmt
	Not   bool
	Text  string
	Err   error
}

func newInPlaceholder(left expr.Expression, sel *ast.SelectStmt, not bool) *InPlaceholder {
	q, text, err := convertSelectForSubquery(sel)
	return &InPlaceholder{Left: left, Query: q, Not: not, Text: text, Err: err}
}

func (p *InPlaceholder) Kind() expr.Kind             { return expr.KindIn }
func (p *InPlaceholder) ValueType() types.AttrType   { return types.BoolType }
func (p *InPlaceholder) GetInvolvedTables() []string { return p.Left.GetInvolvedTables() }
func (p *InPlaceholder) Copy() expr.Expression {
	return &InPlaceholder{Left: p.Left.Copy(), Query: p.Query, Not: p.Not, Text: p.Text}
}
func (p *InPlaceholder) String() string {
	if p.Not {
		return p.Left.String() + " NOT IN (" + p.Text + ")"
	}
	return p.Left.String() + " IN (" + p.Text + ")"
}
func (p *InPlaceholder) Equal(o expr.Expression) bool {
	op, ok := o.(*InPlaceholder)
	return ok && op == p
}
func (p *InPlaceholder) GetValue(*expr.Tuple) (types.Value, error) {
	return types.Value{}, rc.Errorf(rc.Internal, "subquery %q was never bound to a plan", p.Text)
}

// convertSelectForSubquery converts a nested SELECT and also renders
// its restored SQL text for diagnostics and for the subquery nodes'
// String/Equal. A conversion failure is carried in the returned error
// rather than raised here, so it surfaces as a bind error pointing at
// the enclosing statement instead of an opaque parse panic.
func convertSelectForSubquery(sel *ast.SelectStmt) (*SelectStmt, string, error) {
	text := restoreNode(sel)
	q, err := convertSelectStmt(sel)
	if err != nil {
		return nil, text, err
	}
	return q, text, nil
}
