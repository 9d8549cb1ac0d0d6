// Package rewrite implements spec.md §4.9's one rewrite pass:
// bottom-up predicate pushdown. A WHERE clause's top-level AND
// conjuncts are decomposed and each one is pushed as far down the
// logical tree as its referenced tables allow — onto a single
// TableGetOp when it names exactly that table, or folded into the ON
// condition of the deepest JoinOp whose two sides together cover every
// table it names.
// Conjuncts that can't be pushed (because they reference a
// not-yet-joined table, or were never part of a decomposable AND)
// remain in a PredicateOp, shrunk to just what's left, or removed
// entirely if everything pushed.
package rewrite

import (
	"smfdb/internal/binder"
	"smfdb/internal/expr"
	"smfdb/internal/planner/logical"
)

// Rewrite applies predicate pushdown to root and returns the rewritten
// tree. Non-PredicateOp nodes are rewritten recursively but otherwise
// left structurally alone.
func Rewrite(root logical.Operator) logical.Operator {
	switch n := root.(type) {
	case *logical.PredicateOp:
		input := Rewrite(n.Input)
		conjuncts := n.Filter.Conjuncts()
		var remaining []expr.Expression
		for _, c := range conjuncts {
			pushed, newInput := pushDown(input, c)
			if pushed {
				input = newInput
				continue
			}
			remaining = append(remaining, c)
		}
		if len(remaining) == 0 {
			return input
		}
		return &logical.PredicateOp{Input: input, Filter: &binder.FilterStmt{Root: conjoin(remaining)}}

	case *logical.JoinOp:
		return &logical.JoinOp{Left: Rewrite(n.Left), Right: Rewrite(n.Right), On: n.On}

	case *logical.GroupByOp:
		return &logical.GroupByOp{Input: Rewrite(n.Input), GroupExprs: n.GroupExprs, Aggregates: n.Aggregates, Having: n.Having}

	case *logical.ProjectOp:
		return &logical.ProjectOp{Input: Rewrite(n.Input), Fields: n.Fields}

	case *logical.UpdateOp:
		return &logical.UpdateOp{Input: Rewrite(n.Input), Table: n.Table, Assignments: n.Assignments}

	case *logical.DeleteOp:
		return &logical.DeleteOp{Input: Rewrite(n.Input), Table: n.Table}

	case *logical.ExplainOp:
		return &logical.ExplainOp{Input: Rewrite(n.Input)}

	default:
		return root
	}
}

// pushDown attempts to attach conjunct to the deepest node of op that
// it can legally filter at (a TableGetOp naming exactly its table, or
// a JoinOp whose combined table set contains every table conjunct
// names).
func pushDown(op logical.Operator, conjunct expr.Expression) (bool, logical.Operator) {
	want := conjunct.GetInvolvedTables()

	switch n := op.(type) {
	case *logical.TableGetOp:
		if len(want) == 1 && want[0] == n.Table.RefName() {
			return true, &logical.TableGetOp{Table: n.Table, Filter: andInto(n.Filter, conjunct)}
		}
		return false, op

	case *logical.JoinOp:
		leftTables := logical.Tables(n.Left)
		if logical.ContainsAll(leftTables, want) {
			if ok, newLeft := pushDown(n.Left, conjunct); ok {
				return true, &logical.JoinOp{Left: newLeft, Right: n.Right, On: n.On}
			}
		}
		rightTables := logical.Tables(n.Right)
		if logical.ContainsAll(rightTables, want) {
			if ok, newRight := pushDown(n.Right, conjunct); ok {
				return true, &logical.JoinOp{Left: n.Left, Right: newRight, On: n.On}
			}
		}
		all := append(append([]string{}, leftTables...), rightTables...)
		if logical.ContainsAll(all, want) {
			on := conjunct
			if n.On != nil {
				on = &expr.ConjunctionExpr{Op: expr.ConjAnd, Children: []expr.Expression{n.On, conjunct}}
			}
			return true, &logical.JoinOp{Left: n.Left, Right: n.Right, On: on}
		}
		return false, op

	default:
		return false, op
	}
}

func andInto(f *binder.FilterStmt, conjunct expr.Expression) *binder.FilterStmt {
	if f == nil || f.Root == nil {
		return &binder.FilterStmt{Root: conjunct}
	}
	return &binder.FilterStmt{Root: &expr.ConjunctionExpr{Op: expr.ConjAnd, Children: []expr.Expression{f.Root, conjunct}}}
}

func conjoin(exprs []expr.Expression) expr.Expression {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return &expr.ConjunctionExpr{Op: expr.ConjAnd, Children: exprs}
}
