// Package physical turns a rewritten logical.Operator tree into a
// physical operator tree by choosing access methods and algorithms:
// TableScan vs IndexScan (by longest covered index prefix), nested-loop
// vs hash join (gated by the session's hash_join_on flag and whether
// the join condition is a pure equi-join), and scalar vs hash group-by
// (scalar when there's no GROUP BY at all). This mirrors spec.md
// §4.10's decision points; internal/exec turns the chosen tree into
// live Volcano iterators.
package physical

import (
	"smfdb/internal/binder"
	"smfdb/internal/catalog"
	"smfdb/internal/expr"
	"smfdb/internal/planner/logical"
)

// Kind tags a physical operator's concrete variant.
type Kind int

const (
	KindTableScan Kind = iota
	KindIndexScan
	KindFilter
	KindProject
	KindNestedLoopJoin
	KindHashJoin
	KindScalarGroupBy
	KindHashGroupBy
	KindInsert
	KindUpdate
	KindDelete
	KindSort
	KindLimit
)

// Operator is one physical tree node.
type Operator interface {
	Kind() Kind
	Children() []Operator
}

// TableScanOp reads every row of Table via a full heap scan, applying
// Filter (if any) as a post-scan check.
type TableScanOp struct {
	Table  binder.BoundTable
	Filter *binder.FilterStmt
}

func (o *TableScanOp) Kind() Kind         { return KindTableScan }
func (o *TableScanOp) Children() []Operator { return nil }

// IndexScanOp reads Table through Index, using Filter's leading
// conjuncts on Index's key prefix to bound the scan range; Residual
// holds whatever of Filter the index range didn't already satisfy
// exactly (applied as a post-scan check, same as TableScanOp.Filter).
type IndexScanOp struct {
	Table    binder.BoundTable
	Index    *catalog.IndexMeta
	Bounds   []IndexBound
	Residual *binder.FilterStmt
}

// IndexBound is one resolved equality/range bound on a leading prefix
// column of the chosen index.
type IndexBound struct {
	Field string
	Eq    expr.Expression // non-nil for an equality bound
	Lo    expr.Expression // inclusive lower bound, or nil
	Hi    expr.Expression // inclusive upper bound, or nil
}

func (o *IndexScanOp) Kind() Kind         { return KindIndexScan }
func (o *IndexScanOp) Children() []Operator { return nil }

// FilterOp applies Filter to Input's rows; built only when Predicate
// rewriting couldn't push a conjunct all the way down to a scan/join.
type FilterOp struct {
	Input  Operator
	Filter *binder.FilterStmt
}

func (o *FilterOp) Kind() Kind         { return KindFilter }
func (o *FilterOp) Children() []Operator { return []Operator{o.Input} }

// ProjectOp evaluates Fields against Input's rows.
type ProjectOp struct {
	Input  Operator
	Fields []binder.BoundField
}

func (o *ProjectOp) Kind() Kind         { return KindProject }
func (o *ProjectOp) Children() []Operator { return []Operator{o.Input} }

// NestedLoopJoinOp probes Right once per Left row, per spec.md §4.11.
type NestedLoopJoinOp struct {
	Left, Right Operator
	On          expr.Expression
}

func (o *NestedLoopJoinOp) Kind() Kind         { return KindNestedLoopJoin }
func (o *NestedLoopJoinOp) Children() []Operator { return []Operator{o.Left, o.Right} }

// HashJoinOp builds an in-memory hash table over Right keyed by
// RightKeys, then probes it once per Left row using LeftKeys; chosen
// only for a pure equi-join (every On conjunct is a field=field
// equality across the two sides) when the session's hash_join_on flag
// allows it.
type HashJoinOp struct {
	Left, Right         Operator
	LeftKeys, RightKeys []expr.Expression
}

func (o *HashJoinOp) Kind() Kind         { return KindHashJoin }
func (o *HashJoinOp) Children() []Operator { return []Operator{o.Left, o.Right} }

// ScalarGroupByOp computes one aggregate row over all of Input with no
// GROUP BY keys.
type ScalarGroupByOp struct {
	Input      Operator
	Aggregates []*expr.AggregateExpr
	Having     expr.Expression
}

func (o *ScalarGroupByOp) Kind() Kind         { return KindScalarGroupBy }
func (o *ScalarGroupByOp) Children() []Operator { return []Operator{o.Input} }

// HashGroupByOp buckets Input's rows by GroupExprs into an in-memory
// hash table of Aggregators, then emits one row per distinct key.
type HashGroupByOp struct {
	Input      Operator
	GroupExprs []expr.Expression
	Aggregates []*expr.AggregateExpr
	Having     expr.Expression
}

func (o *HashGroupByOp) Kind() Kind         { return KindHashGroupBy }
func (o *HashGroupByOp) Children() []Operator { return []Operator{o.Input} }

type InsertOp struct {
	Table   binder.BoundTable
	Columns []*catalog.FieldMeta
	Rows    [][]expr.Expression
}

func (o *InsertOp) Kind() Kind         { return KindInsert }
func (o *InsertOp) Children() []Operator { return nil }

type UpdateOp struct {
	Input       Operator
	Table       binder.BoundTable
	Assignments []binder.BoundAssignment
}

func (o *UpdateOp) Kind() Kind         { return KindUpdate }
func (o *UpdateOp) Children() []Operator { return []Operator{o.Input} }

type DeleteOp struct {
	Input Operator
	Table binder.BoundTable
}

func (o *DeleteOp) Kind() Kind         { return KindDelete }
func (o *DeleteOp) Children() []Operator { return []Operator{o.Input} }

// SortOp and LimitOp have no logical counterpart (spec.md §4.8 doesn't
// name them); the physical planner attaches them directly on top of a
// SELECT's Project node from SelectPlan.OrderBy/Limit.
type SortOp struct {
	Input Operator
	Keys  []binder.BoundOrderItem
}

func (o *SortOp) Kind() Kind         { return KindSort }
func (o *SortOp) Children() []Operator { return []Operator{o.Input} }

type LimitOp struct {
	Input Operator
	N     int64
}

func (o *LimitOp) Kind() Kind         { return KindLimit }
func (o *LimitOp) Children() []Operator { return []Operator{o.Input} }

// Options carries the session-level knobs physical planning consults:
// hash_join_on gates whether an equi-join may become a HashJoinOp at
// all (spec.md §9's first open question — resolved here as an opt-in
// flag, default false, documented in DESIGN.md).
type Options struct {
	HashJoinOn bool
}

// Build converts a rewritten logical tree into a physical tree.
func Build(op logical.Operator, opts Options) Operator {
	switch n := op.(type) {
	case *logical.TableGetOp:
		return buildScan(n, opts)

	case *logical.PredicateOp:
		return &FilterOp{Input: Build(n.Input, opts), Filter: n.Filter}

	case *logical.JoinOp:
		return buildJoin(n, opts)

	case *logical.GroupByOp:
		return buildGroupBy(n, opts)

	case *logical.ProjectOp:
		return &ProjectOp{Input: Build(n.Input, opts), Fields: n.Fields}

	case *logical.InsertOp:
		return &InsertOp{Table: n.Table, Columns: n.Columns, Rows: n.Rows}

	case *logical.UpdateOp:
		return &UpdateOp{Input: Build(n.Input, opts), Table: n.Table, Assignments: n.Assignments}

	case *logical.DeleteOp:
		return &DeleteOp{Input: Build(n.Input, opts), Table: n.Table}

	default:
		return nil
	}
}

// BuildSelect builds a SELECT's physical tree, attaching Sort/Limit on
// top of the projected rows per plan.OrderBy/plan.Limit.
func BuildSelect(plan *logical.SelectPlan, opts Options) Operator {
	root := Build(plan.Root, opts)
	if len(plan.OrderBy) > 0 {
		root = &SortOp{Input: root, Keys: plan.OrderBy}
	}
	if plan.Limit != nil {
		root = &LimitOp{Input: root, N: *plan.Limit}
	}
	return root
}

func buildScan(n *logical.TableGetOp, opts Options) Operator {
	if n.Filter == nil {
		return &TableScanOp{Table: n.Table}
	}
	if ix, bounds, residual := chooseIndex(n.Table, n.Filter); ix != nil {
		return &IndexScanOp{Table: n.Table, Index: ix, Bounds: bounds, Residual: residual}
	}
	return &TableScanOp{Table: n.Table, Filter: n.Filter}
}

// chooseIndex picks the index whose leading column prefix is covered
// by the most leading equality conjuncts of filter's top-level AND,
// matching spec.md §4.10's "longest covered index prefix" rule.
func chooseIndex(table binder.BoundTable, filter *binder.FilterStmt) (*catalog.IndexMeta, []IndexBound, *binder.FilterStmt) {
	conjuncts := filter.Conjuncts()
	eq := make(map[string]expr.Expression, len(conjuncts))
	src := make(map[string]expr.Expression, len(conjuncts))
	used := make(map[expr.Expression]bool, len(conjuncts))
	for _, c := range conjuncts {
		cmp, ok := c.(*expr.ComparisonExpr)
		if !ok || cmp.Op != expr.OpEq {
			continue
		}
		if fe, ok := cmp.Left.(*expr.FieldExpr); ok && fe.Ref.Table == table.RefName() {
			if _, isField := cmp.Right.(*expr.FieldExpr); !isField {
				eq[fe.Ref.Field], src[fe.Ref.Field] = cmp.Right, c
			}
		} else if fe, ok := cmp.Right.(*expr.FieldExpr); ok && fe.Ref.Table == table.RefName() {
			if _, isField := cmp.Left.(*expr.FieldExpr); !isField {
				eq[fe.Ref.Field], src[fe.Ref.Field] = cmp.Left, c
			}
		}
	}
	if len(eq) == 0 {
		return nil, nil, nil
	}

	var best *catalog.IndexMeta
	var bestLen int
	for _, ix := range table.Meta.Indexes {
		n := 0
		for _, fn := range ix.FieldNames {
			if _, ok := eq[fn]; !ok {
				break
			}
			n++
		}
		if n > bestLen {
			best, bestLen = ix, n
		}
	}
	if best == nil {
		return nil, nil, nil
	}

	var bounds []IndexBound
	for _, fn := range best.FieldNames[:bestLen] {
		bounds = append(bounds, IndexBound{Field: fn, Eq: eq[fn]})
		used[src[fn]] = true
	}

	var residual []expr.Expression
	for _, c := range conjuncts {
		if used[c] {
			continue
		}
		residual = append(residual, c)
	}
	var rf *binder.FilterStmt
	if len(residual) > 0 {
		root := residual[0]
		if len(residual) > 1 {
			root = &expr.ConjunctionExpr{Op: expr.ConjAnd, Children: residual}
		}
		rf = &binder.FilterStmt{Root: root}
	}
	return best, bounds, rf
}

func buildJoin(n *logical.JoinOp, opts Options) Operator {
	left, right := Build(n.Left, opts), Build(n.Right, opts)
	if opts.HashJoinOn {
		if lk, rk, ok := equiJoinKeys(n.On, logical.Tables(n.Left), logical.Tables(n.Right)); ok {
			return &HashJoinOp{Left: left, Right: right, LeftKeys: lk, RightKeys: rk}
		}
	}
	return &NestedLoopJoinOp{Left: left, Right: right, On: n.On}
}

// equiJoinKeys reports whether on is a pure conjunction of field=field
// equalities each spanning exactly one leftTables column and one
// rightTables column, per spec.md §4.10's hash-join eligibility test.
func equiJoinKeys(on expr.Expression, leftTables, rightTables []string) (left, right []expr.Expression, ok bool) {
	if on == nil {
		return nil, nil, false
	}
	var conjuncts []expr.Expression
	if conj, isConj := on.(*expr.ConjunctionExpr); isConj && conj.Op == expr.ConjAnd {
		conjuncts = conj.Children
	} else {
		conjuncts = []expr.Expression{on}
	}
	for _, c := range conjuncts {
		cmp, isCmp := c.(*expr.ComparisonExpr)
		if !isCmp || cmp.Op != expr.OpEq {
			return nil, nil, false
		}
		lf, lok := cmp.Left.(*expr.FieldExpr)
		rf, rok := cmp.Right.(*expr.FieldExpr)
		if !lok || !rok {
			return nil, nil, false
		}
		switch {
		case logical.ContainsAll(leftTables, []string{lf.Ref.Table}) && logical.ContainsAll(rightTables, []string{rf.Ref.Table}):
			left = append(left, lf)
			right = append(right, rf)
		case logical.ContainsAll(leftTables, []string{rf.Ref.Table}) && logical.ContainsAll(rightTables, []string{lf.Ref.Table}):
			left = append(left, rf)
			right = append(right, lf)
		default:
			return nil, nil, false
		}
	}
	return left, right, true
}

func buildGroupBy(n *logical.GroupByOp, opts Options) Operator {
	input := Build(n.Input, opts)
	if len(n.GroupExprs) == 0 {
		return &ScalarGroupByOp{Input: input, Aggregates: n.Aggregates, Having: n.Having}
	}
	return &HashGroupByOp{Input: input, GroupExprs: n.GroupExprs, Aggregates: n.Aggregates, Having: n.Having}
}
