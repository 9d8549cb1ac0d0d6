package binder

import (
	"smfdb/internal/expr"
	"smfdb/internal/rc"
	"smfdb/internal/sqlfront"
	"smfdb/internal/types"
)

// BoundSubqueryExpr/BoundInExpr/BoundExistsExpr carry a fully bound
// nested BoundSelect through the expression tree between binding and
// physical planning. internal/exec builds the actual subquery runner
// (a full CREATE_STMT->LOGICAL->REWRITE->PHYSICAL pipeline over
// Query, cached per internal/exec/subquery's policy) and replaces each
// of these with the corresponding real expr.SubqueryExpr/InExpr/
// ExistsExpr before the outer plan is opened.
type BoundSubqueryExpr struct {
	Query *BoundSelect
	Typ   types.AttrType
	Text  string
}

func (e *BoundSubqueryExpr) Kind() expr.Kind               { return expr.KindSubquery }
func (e *BoundSubqueryExpr) ValueType() types.AttrType     { return e.Typ }
func (e *BoundSubqueryExpr) GetInvolvedTables() []string   { return nil }
func (e *BoundSubqueryExpr) Copy() expr.Expression         { c := *e; return &c }
func (e *BoundSubqueryExpr) String() string                { return "(" + e.Text + ")" }
func (e *BoundSubqueryExpr) Equal(o expr.Expression) bool  { op, ok := o.(*BoundSubqueryExpr); return ok && op == e }
func (e *BoundSubqueryExpr) GetValue(*expr.Tuple) (types.Value, error) {
	return types.Value{}, rc.Errorf(rc.Internal, "subquery %q was not wired to an executor", e.Text)
}

type BoundExistsExpr struct {
	Query *BoundSelect
	Not   bool
	Text  string
}

func (e *BoundExistsExpr) Kind() expr.Kind             { return expr.KindExists }
func (e *BoundExistsExpr) ValueType() types.AttrType   { return types.BoolType }
func (e *BoundExistsExpr) GetInvolvedTables() []string { return nil }
func (e *BoundExistsExpr) Copy() expr.Expression       { c := *e; return &c }
func (e *BoundExistsExpr) String() string {
	if e.Not {
		return "NOT EXISTS (" + e.Text + ")"
	}
	return "EXISTS (" + e.Text + ")"
}
func (e *BoundExistsExpr) Equal(o expr.Expression) bool { op, ok := o.(*BoundExistsExpr); return ok && op == e }
func (e *BoundExistsExpr) GetValue(*expr.Tuple) (types.Value, error) {
	return types.Value{}, rc.Errorf(rc.Internal, "subquery %q was not wired to an executor", e.Text)
}

type BoundInExpr struct {
	Left  expr.Expression
	Query *BoundSelect
	Not   bool
	Text  string
}

func (e *BoundInExpr) Kind() expr.Kind             { return expr.KindIn }
func (e *BoundInExpr) ValueType() types.AttrType   { return types.BoolType }
func (e *BoundInExpr) GetInvolvedTables() []string { return e.Left.GetInvolvedTables() }
func (e *BoundInExpr) Copy() expr.Expression {
	return &BoundInExpr{Left: e.Left.Copy(), Query: e.Query, Not: e.Not, Text: e.Text}
}
func (e *BoundInExpr) String() string {
	if e.Not {
		return e.Left.String() + " NOT IN (" + e.Text + ")"
	}
	return e.Left.String() + " IN (" + e.Text + ")"
}
func (e *BoundInExpr) Equal(o expr.Expression) bool { op, ok := o.(*BoundInExpr); return ok && op == e }
func (e *BoundInExpr) GetValue(*expr.Tuple) (types.Value, error) {
	return types.Value{}, rc.Errorf(rc.Internal, "subquery %q was not wired to an executor", e.Text)
}

func (b *Binder) bindSubqueryPlaceholder(p *sqlfront.SubqueryPlaceholder, sc *scope, ac *aggCounter) (expr.Expression, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	bound, err := b.bindCorrelated(p.Query, sc)
	if err != nil {
		return nil, err
	}
	if len(bound.Fields) != 1 {
		return nil, rc.Errorf(rc.SQLSyntax, "subquery must return exactly one column, got %d", len(bound.Fields))
	}
	return &BoundSubqueryExpr{Query: bound, Typ: bound.Fields[0].Expr.ValueType(), Text: p.Text}, nil
}

func (b *Binder) bindExistsPlaceholder(p *sqlfront.ExistsPlaceholder, sc *scope, ac *aggCounter) (expr.Expression, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	bound, err := b.bindCorrelated(p.Query, sc)
	if err != nil {
		return nil, err
	}
	return &BoundExistsExpr{Query: bound, Not: p.Not, Text: p.Text}, nil
}

func (b *Binder) bindInPlaceholder(p *sqlfront.InPlaceholder, sc *scope, ac *aggCounter) (expr.Expression, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	left, err := b.bindExpr(p.Left, sc, ac)
	if err != nil {
		return nil, err
	}
	bound, err := b.bindCorrelated(p.Query, sc)
	if err != nil {
		return nil, err
	}
	if len(bound.Fields) != 1 {
		return nil, rc.Errorf(rc.SQLSyntax, "IN subquery must return exactly one column, got %d", len(bound.Fields))
	}
	return &BoundInExpr{Left: left, Query: bound, Not: p.Not, Text: p.Text}, nil
}

// bindCorrelated binds a nested SELECT with the outer scope's tables
// also visible (so an inner WHERE clause may reference an outer
// column), matching spec.md C12's correlated-subquery support. Inner
// and outer tables share one scope with no priority between them: a
// bare column name that both an inner and an outer table have is
// rejected as ambiguous, the same as any other clash.
func (b *Binder) bindCorrelated(sel *sqlfront.SelectStmt, outer *scope) (*BoundSelect, error) {
	fromMeta, err := b.cat.TableMeta(sel.From.Table)
	if err != nil {
		return nil, err
	}
	inner := &scope{tables: []BoundTable{{Alias: sel.From.Alias, Meta: fromMeta}}}
	for _, j := range sel.Joins {
		jm, err := b.cat.TableMeta(j.Right.Table)
		if err != nil {
			return nil, err
		}
		inner.tables = append(inner.tables, BoundTable{Alias: j.Right.Alias, Meta: jm})
	}
	combined := &scope{tables: append(append([]BoundTable{}, inner.tables...), outer.tables...)}
	return b.bindSelectWithScope(sel, combined, len(inner.tables))
}

// bindSelectWithScope is BindSelect's body parameterized over a
// pre-built scope (ownTables counts how many of sc.tables belong to
// this statement's own FROM/JOIN, the rest being outer correlation
// context), so BindSelect and bindCorrelated share one implementation.
func (b *Binder) bindSelectWithScope(s *sqlfront.SelectStmt, sc *scope, ownTables int) (*BoundSelect, error) {
	out := &BoundSelect{From: sc.tables[0]}
	for _, bt := range sc.tables[1:ownTables] {
		out.Joins = append(out.Joins, BoundJoin{Table: bt})
	}

	ac := &aggCounter{}
	var err error

	for i, j := range s.Joins {
		var on expr.Expression
		if j.On != nil {
			on, err = b.bindExpr(j.On, sc, ac)
			if err != nil {
				return nil, err
			}
		}
		out.Joins[i].On = on
	}

	for _, f := range s.Fields {
		if f.Star != nil {
			exprs, err := sc.expandStar(f.Star.Table)
			if err != nil {
				return nil, err
			}
			for _, e := range exprs {
				out.Fields = append(out.Fields, BoundField{Expr: e, Name: fieldDisplayName(e)})
			}
			continue
		}
		be, err := b.bindExpr(f.Expr, sc, ac)
		if err != nil {
			return nil, err
		}
		name := f.As
		if name == "" {
			name = fieldDisplayName(be)
		}
		out.Fields = append(out.Fields, BoundField{Expr: be, Name: name})
	}

	if s.Where != nil {
		w, err := b.bindExpr(s.Where, sc, ac)
		if err != nil {
			return nil, err
		}
		out.Where = &FilterStmt{Root: w}
	}

	for _, g := range s.GroupBy {
		ge, err := b.bindExpr(g, sc, ac)
		if err != nil {
			return nil, err
		}
		out.GroupBy = append(out.GroupBy, ge)
	}

	if s.Having != nil {
		h, err := b.bindExpr(s.Having, sc, ac)
		if err != nil {
			return nil, err
		}
		out.Having = h
	}

	for _, o := range s.OrderBy {
		oe, err := b.bindExpr(o.Expr, sc, ac)
		if err != nil {
			return nil, err
		}
		out.OrderBy = append(out.OrderBy, BoundOrderItem{Expr: oe, Desc: o.Desc})
	}

	out.Limit = s.Limit

	if err := checkAggregateGrouping(out); err != nil {
		return nil, err
	}
	out.Aggregates = collectAggregates(out)
	return out, nil
}
