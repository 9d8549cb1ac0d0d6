// Package binder resolves an unbound internal/sqlfront statement tree
// against live table schema, replacing every UnboundField/StarExpr/
// UnboundAggregateExpr in the expression tree with its bound
// counterpart (FieldExpr/a flat field list/AggregateExpr) and producing
// the Bound* statement shapes internal/planner/logical consumes.
//
// A FilterObj in the system this generalizes from came in one of
// several shapes (Field, Value, ValueList, Subquery, Expression); here
// every one of those is already just an internal/expr.Expression
// variant, so FilterStmt below is a thin named wrapper around the
// bound WHERE tree rather than a second parallel structure.
package binder

import (
	"sort"

	"smfdb/internal/catalog"
	"smfdb/internal/expr"
	"smfdb/internal/rc"
	"smfdb/internal/sqlfront"
	"smfdb/internal/types"
)

// Catalog is the subset of schema lookup the binder needs. session's
// live table registry implements it.
type Catalog interface {
	TableMeta(name string) (*catalog.TableMeta, error)
}

// Binder resolves sqlfront statements against a Catalog.
type Binder struct {
	cat Catalog
}

func New(cat Catalog) *Binder { return &Binder{cat: cat} }

// BoundTable is one resolved FROM/JOIN table, addressable in the
// expression tree under its alias (or its own name, absent an alias).
type BoundTable struct {
	Alias string
	Meta  *catalog.TableMeta
}

func (t BoundTable) RefName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Meta.Name
}

// scope resolves UnboundFieldExpr against the set of BoundTables
// currently visible, enforcing spec.md C7's ambiguity rule: a bare
// field name must be unique among all visible fields; a qualified name
// must name an in-scope table.
type scope struct {
	tables []BoundTable
}

func (s *scope) byRef(table string) (*BoundTable, error) {
	for i := range s.tables {
		if s.tables[i].RefName() == table {
			return &s.tables[i], nil
		}
	}
	return nil, rc.Errorf(rc.SchemaTableNotExist, "table %q not in scope", table)
}

func (s *scope) resolveField(table, field string) (expr.FieldRef, *catalog.FieldMeta, error) {
	if table != "" {
		bt, err := s.byRef(table)
		if err != nil {
			return expr.FieldRef{}, nil, err
		}
		fm := bt.Meta.FieldByName(field)
		if fm == nil || !fm.Visible {
			return expr.FieldRef{}, nil, rc.Errorf(rc.SchemaFieldNotExist, "unknown field %s.%s", table, field)
		}
		return expr.FieldRef{Table: bt.RefName(), Field: field}, fm, nil
	}

	var found *BoundTable
	var fm *catalog.FieldMeta
	for i := range s.tables {
		if cand := s.tables[i].Meta.FieldByName(field); cand != nil && cand.Visible {
			if found != nil {
				return expr.FieldRef{}, nil, rc.Errorf(rc.SchemaFieldNotExist, "field %s is ambiguous among in-scope tables", field)
			}
			found = &s.tables[i]
			fm = cand
		}
	}
	if found == nil {
		return expr.FieldRef{}, nil, rc.Errorf(rc.SchemaFieldNotExist, "unknown field %s", field)
	}
	return expr.FieldRef{Table: found.RefName(), Field: field}, fm, nil
}

func (s *scope) expandStar(table string) ([]expr.Expression, error) {
	if table != "" {
		bt, err := s.byRef(table)
		if err != nil {
			return nil, err
		}
		return fieldsOf(*bt), nil
	}
	var out []expr.Expression
	for _, bt := range s.tables {
		out = append(out, fieldsOf(bt)...)
	}
	return out, nil
}

func fieldsOf(bt BoundTable) []expr.Expression {
	var out []expr.Expression
	for _, fm := range bt.Meta.VisibleFields() {
		out = append(out, &expr.FieldExpr{Ref: expr.FieldRef{Table: bt.RefName(), Field: fm.Name}, Typ: fm.Type})
	}
	return out
}

// FilterStmt wraps a bound boolean expression tree (a WHERE or ON
// clause) and exposes its top-level AND conjuncts, which
// internal/planner/rewrite decomposes for pushdown.
type FilterStmt struct {
	Root expr.Expression // nil means "no filter"
}

func (f *FilterStmt) Conjuncts() []expr.Expression {
	if f == nil || f.Root == nil {
		return nil
	}
	conj, ok := f.Root.(*expr.ConjunctionExpr)
	if !ok || conj.Op != expr.ConjAnd {
		return []expr.Expression{f.Root}
	}
	return conj.Children
}

// BoundField is one resolved projection item.
type BoundField struct {
	Expr expr.Expression
	Name string // output column name
}

// BoundJoin is one resolved `JOIN table ON cond` step.
type BoundJoin struct {
	Table BoundTable
	On    expr.Expression // nil means cross join
}

// BoundOrderItem is one resolved ORDER BY key.
type BoundOrderItem struct {
	Expr expr.Expression
	Desc bool
}

// BoundSelect is a fully resolved SELECT: every field reference is a
// FieldExpr, every aggregate call is an AggregateExpr, and Aggregates
// lists them once each (by Label) for the logical planner's GroupBy
// node to drive.
type BoundSelect struct {
	From       BoundTable
	Joins      []BoundJoin
	Fields     []BoundField
	Where      *FilterStmt
	GroupBy    []expr.Expression
	Having     expr.Expression
	OrderBy    []BoundOrderItem
	Limit      *int64
	Aggregates []*expr.AggregateExpr
}

// Tables returns every table referenced, driving table first.
func (b *BoundSelect) Tables() []BoundTable {
	out := make([]BoundTable, 0, 1+len(b.Joins))
	out = append(out, b.From)
	for _, j := range b.Joins {
		out = append(out, j.Table)
	}
	return out
}

type BoundAssignment struct {
	Field *catalog.FieldMeta
	Value expr.Expression
}

type BoundInsert struct {
	Table   BoundTable
	Columns []*catalog.FieldMeta // declared order if the statement omitted a column list
	Rows    [][]expr.Expression
}

type BoundUpdate struct {
	Table       BoundTable
	Assignments []BoundAssignment
	Where       *FilterStmt
}

type BoundDelete struct {
	Table BoundTable
	Where *FilterStmt
}

// aggCounter generates stable, unique Labels for bound aggregates
// within one statement so the group-by operator and the expressions
// reading its output agree on field names.
type aggCounter struct{ n int }

func (c *aggCounter) next() string {
	c.n++
	return "__agg" + itoa(c.n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// BindSelect resolves a sqlfront.SelectStmt into a BoundSelect.
func (b *Binder) BindSelect(s *sqlfront.SelectStmt) (*BoundSelect, error) {
	fromMeta, err := b.cat.TableMeta(s.From.Table)
	if err != nil {
		return nil, err
	}
	sc := &scope{tables: []BoundTable{{Alias: s.From.Alias, Meta: fromMeta}}}
	for _, j := range s.Joins {
		jm, err := b.cat.TableMeta(j.Right.Table)
		if err != nil {
			return nil, err
		}
		sc.tables = append(sc.tables, BoundTable{Alias: j.Right.Alias, Meta: jm})
	}
	return b.bindSelectWithScope(s, sc, len(sc.tables))
}

func fieldDisplayName(e expr.Expression) string {
	if fe, ok := e.(*expr.FieldExpr); ok {
		return fe.Ref.Field
	}
	return e.String()
}

// checkAggregateGrouping enforces spec.md C7's mixing rule: aggregate
// and scalar expressions mix freely in the projection only when every
// non-aggregated column referenced also appears in GROUP BY.
func checkAggregateGrouping(sel *BoundSelect) error {
	hasAgg := false
	walkAggregates(sel, func(*expr.AggregateExpr) { hasAgg = true })
	if !hasAgg && len(sel.GroupBy) == 0 {
		return nil
	}
	grouped := make(map[string]struct{}, len(sel.GroupBy))
	for _, g := range sel.GroupBy {
		if fe, ok := g.(*expr.FieldExpr); ok {
			grouped[fe.Ref.String()] = struct{}{}
		}
	}
	var offender error
	for _, f := range sel.Fields {
		checkFieldGrouping(f.Expr, grouped, &offender)
		if offender != nil {
			return offender
		}
	}
	return nil
}

func checkFieldGrouping(e expr.Expression, grouped map[string]struct{}, offender *error) {
	switch n := e.(type) {
	case *expr.AggregateExpr:
		return
	case *expr.FieldExpr:
		if _, ok := grouped[n.Ref.String()]; !ok {
			*offender = rc.Errorf(rc.SQLSyntax, "column %s must appear in GROUP BY or be used in an aggregate function", n.Ref)
		}
	case *expr.ComparisonExpr:
		checkFieldGrouping(n.Left, grouped, offender)
		if n.Right != nil {
			checkFieldGrouping(n.Right, grouped, offender)
		}
	case *expr.ArithmeticExpr:
		checkFieldGrouping(n.Left, grouped, offender)
		if n.Right != nil {
			checkFieldGrouping(n.Right, grouped, offender)
		}
	case *expr.ConjunctionExpr:
		for _, c := range n.Children {
			checkFieldGrouping(c, grouped, offender)
		}
	case *expr.CastExpr:
		checkFieldGrouping(n.Inner, grouped, offender)
	}
}

func walkAggregates(sel *BoundSelect, visit func(*expr.AggregateExpr)) {
	for _, f := range sel.Fields {
		walkExprAggregates(f.Expr, visit)
	}
	if sel.Having != nil {
		walkExprAggregates(sel.Having, visit)
	}
	for _, o := range sel.OrderBy {
		walkExprAggregates(o.Expr, visit)
	}
}

func walkExprAggregates(e expr.Expression, visit func(*expr.AggregateExpr)) {
	switch n := e.(type) {
	case *expr.AggregateExpr:
		visit(n)
	case *expr.ComparisonExpr:
		walkExprAggregates(n.Left, visit)
		if n.Right != nil {
			walkExprAggregates(n.Right, visit)
		}
	case *expr.ArithmeticExpr:
		walkExprAggregates(n.Left, visit)
		if n.Right != nil {
			walkExprAggregates(n.Right, visit)
		}
	case *expr.ConjunctionExpr:
		for _, c := range n.Children {
			walkExprAggregates(c, visit)
		}
	case *expr.CastExpr:
		walkExprAggregates(n.Inner, visit)
	}
}

// collectAggregates gathers every distinct AggregateExpr (by Label)
// referenced anywhere in sel, in a stable order, for the GroupBy
// operator to build one Aggregator column per entry.
func collectAggregates(sel *BoundSelect) []*expr.AggregateExpr {
	seen := map[string]*expr.AggregateExpr{}
	var order []string
	visit := func(a *expr.AggregateExpr) {
		if _, ok := seen[a.Label]; !ok {
			seen[a.Label] = a
			order = append(order, a.Label)
		}
	}
	walkAggregates(sel, visit)
	sort.Strings(order)
	out := make([]*expr.AggregateExpr, 0, len(order))
	for _, l := range order {
		out = append(out, seen[l])
	}
	return out
}

// bindExpr resolves an unbound expression tree in scope sc, replacing
// UnboundFieldExpr/UnboundAggregateExpr with bound forms and recursing
// into every composite node. Subquery placeholders are bound too,
// their nested SELECT fully resolved, producing a BoundSubqueryExpr
// that internal/exec later wires to a live SubqueryRunner.
func (b *Binder) bindExpr(e expr.Expression, sc *scope, ac *aggCounter) (expr.Expression, error) {
	switch n := e.(type) {
	case *expr.UnboundFieldExpr:
		ref, fm, err := sc.resolveField(n.Table, n.Field)
		if err != nil {
			return nil, err
		}
		return &expr.FieldExpr{Ref: ref, Typ: fm.Type}, nil

	case *expr.StarExpr:
		return nil, rc.Errorf(rc.SQLSyntax, "* is only valid as a top-level projection item")

	case *expr.ValueExpr:
		return n, nil

	case *expr.CastExpr:
		inner, err := b.bindExpr(n.Inner, sc, ac)
		if err != nil {
			return nil, err
		}
		return &expr.CastExpr{Inner: inner, Target: n.Target}, nil

	case *expr.ComparisonExpr:
		left, err := b.bindExpr(n.Left, sc, ac)
		if err != nil {
			return nil, err
		}
		var right expr.Expression
		if n.Right != nil {
			right, err = b.bindExpr(n.Right, sc, ac)
			if err != nil {
				return nil, err
			}
		}
		return insertImplicitCast(&expr.ComparisonExpr{Op: n.Op, Left: left, Right: right}), nil

	case *expr.ConjunctionExpr:
		children := make([]expr.Expression, len(n.Children))
		for i, c := range n.Children {
			bc, err := b.bindExpr(c, sc, ac)
			if err != nil {
				return nil, err
			}
			children[i] = bc
		}
		return &expr.ConjunctionExpr{Op: n.Op, Children: children}, nil

	case *expr.ArithmeticExpr:
		left, err := b.bindExpr(n.Left, sc, ac)
		if err != nil {
			return nil, err
		}
		out := &expr.ArithmeticExpr{Op: n.Op, Left: left}
		if n.Right != nil {
			out.Right, err = b.bindExpr(n.Right, sc, ac)
			if err != nil {
				return nil, err
			}
		}
		return out, nil

	case *expr.DistanceFunctionExpr:
		left, err := b.bindExpr(n.Left, sc, ac)
		if err != nil {
			return nil, err
		}
		right, err := b.bindExpr(n.Right, sc, ac)
		if err != nil {
			return nil, err
		}
		return &expr.DistanceFunctionExpr{Op: n.Op, Left: left, Right: right}, nil

	case *expr.UnboundAggregateExpr:
		var arg expr.Expression
		var err error
		argType := types.Undefined
		if n.Arg != nil {
			arg, err = b.bindExpr(n.Arg, sc, ac)
			if err != nil {
				return nil, err
			}
			argType = arg.ValueType()
		}
		return &expr.AggregateExpr{Op: n.Op, Arg: arg, Typ: expr.ResultType(n.Op, argType), Label: ac.next()}, nil

	case *sqlfront.SubqueryPlaceholder:
		return b.bindSubqueryPlaceholder(n, sc, ac)
	case *sqlfront.ExistsPlaceholder:
		return b.bindExistsPlaceholder(n, sc, ac)
	case *sqlfront.InPlaceholder:
		return b.bindInPlaceholder(n, sc, ac)

	default:
		return e, nil
	}
}

// insertImplicitCast matches spec.md C8's cast_cost rule: an equality/
// ordering comparison between a CHAR operand and a numeric operand
// promotes the CHAR side to FLOAT (MySQL-style string-to-number
// coercion) rather than failing to bind.
func insertImplicitCast(c *expr.ComparisonExpr) *expr.ComparisonExpr {
	if c.Right == nil {
		return c
	}
	lt, rt := c.Left.ValueType(), c.Right.ValueType()
	if lt == rt {
		return c
	}
	if isNumeric(lt) && rt == types.CharType {
		c.Right = &expr.CastExpr{Inner: c.Right, Target: types.FloatType}
	} else if isNumeric(rt) && lt == types.CharType {
		c.Left = &expr.CastExpr{Inner: c.Left, Target: types.FloatType}
	}
	return c
}

func isNumeric(t types.AttrType) bool {
	return t == types.IntType || t == types.FloatType
}
