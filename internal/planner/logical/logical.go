// Package logical builds the logical operator tree spec.md §4.8
// describes: a table-at-a-time algebra (TableGet, Predicate, Join,
// GroupBy, Project, Insert, Update, Delete, Calc, Explain) built
// directly from a bound statement, with no access-method or join-
// algorithm choices made yet — those are internal/planner/physical's
// job. ORDER BY/LIMIT aren't separate logical nodes (spec.md's operator
// list doesn't name them); they ride along on SelectPlan and become
// physical-only Sort/Limit operators during physical planning, since
// neither affects the logical algebra's result set, only its order/
// cardinality of presentation.
package logical

import (
	"smfdb/internal/binder"
	"smfdb/internal/catalog"
	"smfdb/internal/expr"
)

// OpKind tags a LogicalOperator's concrete variant.
type OpKind int

const (
	OpTableGet OpKind = iota
	OpPredicate
	OpJoin
	OpGroupBy
	OpProject
	OpInsert
	OpUpdate
	OpDelete
	OpCalc
	OpExplain
)

// Operator is one node of the logical tree.
type Operator interface {
	Kind() OpKind
	Children() []Operator
	String() string
}

// TableGetOp reads every visible row of one table. Filter is nil until
// internal/planner/rewrite pushes a single-table predicate down onto
// it; the physical planner then uses Filter to pick an IndexScan when
// it covers an indexed prefix, or otherwise applies it as a post-scan
// filter.
type TableGetOp struct {
	Table  binder.BoundTable
	Filter *binder.FilterStmt
}

func (o *TableGetOp) Kind() OpKind         { return OpTableGet }
func (o *TableGetOp) Children() []Operator { return nil }
func (o *TableGetOp) String() string       { return "TableGet(" + o.Table.RefName() + ")" }

// PredicateOp filters Input's rows by Filter.
type PredicateOp struct {
	Input  Operator
	Filter *binder.FilterStmt
}

func (o *PredicateOp) Kind() OpKind         { return OpPredicate }
func (o *PredicateOp) Children() []Operator { return []Operator{o.Input} }
func (o *PredicateOp) String() string       { return "Predicate(" + o.Filter.Root.String() + ")" }

// JoinOp combines Left and Right by On; a left-deep tree of JoinOps
// represents a multi-table FROM clause, matching spec.md §4.8.
type JoinOp struct {
	Left, Right Operator
	On          expr.Expression // nil for a cross join
}

func (o *JoinOp) Kind() OpKind         { return OpJoin }
func (o *JoinOp) Children() []Operator { return []Operator{o.Left, o.Right} }
func (o *JoinOp) String() string {
	if o.On == nil {
		return "Join(cross)"
	}
	return "Join(" + o.On.String() + ")"
}

// GroupByOp drives one Aggregator per entry in Aggregates, grouped by
// GroupExprs (empty GroupExprs means one implicit whole-input group),
// then applies Having to the grouped rows.
type GroupByOp struct {
	Input      Operator
	GroupExprs []expr.Expression
	Aggregates []*expr.AggregateExpr
	Having     expr.Expression
}

func (o *GroupByOp) Kind() OpKind         { return OpGroupBy }
func (o *GroupByOp) Children() []Operator { return []Operator{o.Input} }
func (o *GroupByOp) String() string       { return "GroupBy" }

// ProjectOp evaluates Fields against each of Input's rows.
type ProjectOp struct {
	Input  Operator
	Fields []binder.BoundField
}

func (o *ProjectOp) Kind() OpKind         { return OpProject }
func (o *ProjectOp) Children() []Operator { return []Operator{o.Input} }
func (o *ProjectOp) String() string       { return "Project" }

// InsertOp has no input; it materializes Rows directly into Table.
type InsertOp struct {
	Table   binder.BoundTable
	Columns []*catalog.FieldMeta
	Rows    [][]expr.Expression
}

func (o *InsertOp) Kind() OpKind         { return OpInsert }
func (o *InsertOp) Children() []Operator { return nil }
func (o *InsertOp) String() string       { return "Insert(" + o.Table.RefName() + ")" }

// UpdateOp applies Assignments to every row Input produces.
type UpdateOp struct {
	Input       Operator
	Table       binder.BoundTable
	Assignments []binder.BoundAssignment
}

func (o *UpdateOp) Kind() OpKind         { return OpUpdate }
func (o *UpdateOp) Children() []Operator { return []Operator{o.Input} }
func (o *UpdateOp) String() string       { return "Update(" + o.Table.RefName() + ")" }

// DeleteOp removes every row Input produces.
type DeleteOp struct {
	Input Operator
	Table binder.BoundTable
}

func (o *DeleteOp) Kind() OpKind         { return OpDelete }
func (o *DeleteOp) Children() []Operator { return []Operator{o.Input} }
func (o *DeleteOp) String() string       { return "Delete(" + o.Table.RefName() + ")" }

// CalcOp evaluates a fixed row of scalar expressions with no table
// input, e.g. `SELECT 1+1`. smf-db's grammar always requires a FROM
// clause (spec.md §6), so CalcOp exists only to complete spec.md's
// named operator set; nothing currently constructs one.
type CalcOp struct {
	Exprs []expr.Expression
}

func (o *CalcOp) Kind() OpKind         { return OpCalc }
func (o *CalcOp) Children() []Operator { return nil }
func (o *CalcOp) String() string       { return "Calc" }

// ExplainOp wraps a plan for EXPLAIN output without executing it. Like
// CalcOp, nothing currently constructs one: internal/sqlfront's grammar
// doesn't parse an EXPLAIN statement yet, so this exists only to
// complete spec.md §4.8's named operator set.
type ExplainOp struct {
	Input Operator
}

func (o *ExplainOp) Kind() OpKind         { return OpExplain }
func (o *ExplainOp) Children() []Operator { return []Operator{o.Input} }
func (o *ExplainOp) String() string       { return "Explain" }

// SelectPlan is the logical tree for one SELECT plus the ORDER BY/
// LIMIT metadata the physical planner turns into Sort/Limit operators.
type SelectPlan struct {
	Root    Operator
	OrderBy []binder.BoundOrderItem
	Limit   *int64
}

// BuildSelect assembles TableGet/Join, Predicate, GroupBy, and Project
// nodes from a bound SELECT, in that fixed bottom-up order.
func BuildSelect(sel *binder.BoundSelect) *SelectPlan {
	var root Operator = &TableGetOp{Table: sel.From}
	for _, j := range sel.Joins {
		root = &JoinOp{Left: root, Right: &TableGetOp{Table: j.Table}, On: j.On}
	}

	if sel.Where != nil {
		root = &PredicateOp{Input: root, Filter: sel.Where}
	}

	if len(sel.Aggregates) > 0 || len(sel.GroupBy) > 0 {
		root = &GroupByOp{Input: root, GroupExprs: sel.GroupBy, Aggregates: sel.Aggregates, Having: sel.Having}
	}

	root = &ProjectOp{Input: root, Fields: sel.Fields}

	return &SelectPlan{Root: root, OrderBy: sel.OrderBy, Limit: sel.Limit}
}

// BuildInsert wraps a bound INSERT with no input operator.
func BuildInsert(ins *binder.BoundInsert) Operator {
	return &InsertOp{Table: ins.Table, Columns: ins.Columns, Rows: ins.Rows}
}

// BuildUpdate builds TableGet [+ Predicate] + Update.
func BuildUpdate(upd *binder.BoundUpdate) Operator {
	var root Operator = &TableGetOp{Table: upd.Table}
	if upd.Where != nil {
		root = &PredicateOp{Input: root, Filter: upd.Where}
	}
	return &UpdateOp{Input: root, Table: upd.Table, Assignments: upd.Assignments}
}

// BuildDelete builds TableGet [+ Predicate] + Delete.
func BuildDelete(del *binder.BoundDelete) Operator {
	var root Operator = &TableGetOp{Table: del.Table}
	if del.Where != nil {
		root = &PredicateOp{Input: root, Filter: del.Where}
	}
	return &DeleteOp{Input: root, Table: del.Table}
}
