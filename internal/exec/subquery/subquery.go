// Package subquery wires spec.md C12's subquery executor: it replaces
// the bind-time placeholders internal/binder leaves behind
// (BoundSubqueryExpr/BoundInExpr/BoundExistsExpr) with real,
// runner-backed expr.SubqueryExpr/InExpr/ExistsExpr values, each
// driving its own CREATE_STMT->LOGICAL->REWRITE->PHYSICAL->EXEC
// pipeline over the nested BoundSelect, result-cached per distinct
// outer-row parameterization the way subquery_executor.cpp's own cache
// avoids re-running an uncorrelated (or identically-parameterized)
// subquery for every outer row.
//
// Correlation is resolved by literal substitution, not by merging
// tuples across execution levels: before a Runner plans its query for
// a given outer row, every FieldExpr referencing a table outside the
// query's own FROM/JOIN list is replaced with a ValueExpr holding that
// outer row's value, so the nested plan is ordinary executable SQL. A
// subquery nested two levels deep that references the *outermost*
// query's columns (skipping its immediate parent) is not resolved by
// this substitution — each Runner only ever sees its immediate outer
// tuple — a deliberate scope cut; spec.md's own subquery examples are
// single-level correlated.
package subquery

import (
	"container/list"
	"sync"

	"smfdb/internal/binder"
	"smfdb/internal/exec"
	"smfdb/internal/expr"
	"smfdb/internal/planner/logical"
	"smfdb/internal/planner/physical"
	"smfdb/internal/planner/rewrite"
	"smfdb/internal/rc"
	"smfdb/internal/types"
)

// cache is a small LRU of outer-row parameterization -> result rows,
// grounded on subquery_executor.cpp's single-entry-eviction cache
// policy but generalized to bounded-size LRU eviction (spec.md's
// Design Notes call the original's "evict the first entry" policy out
// as worth improving). Hand-rolled over container/list + map rather
// than a third-party LRU: no complete example repo in the corpus
// imports one with exercised source attached (some go.mod manifests
// list github.com/hashicorp/golang-lru as a transitive dependency of
// an unrelated tool, but none of the corpus actually calls it), and a
// bounded map+list is a handful of lines for a cache this small.
type cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type cacheEntry struct {
	key    string
	values [][]types.Value
}

func newCache(capacity int) *cache {
	return &cache{capacity: capacity, ll: list.New(), items: make(map[string]*list.Element)}
}

func (c *cache) get(key string) ([][]types.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).values, true
}

func (c *cache) put(key string, values [][]types.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).values = values
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&cacheEntry{key: key, values: values})
	c.items[key] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

const defaultCacheCapacity = 64

// Runner plans and executes one nested BoundSelect per outer row,
// implementing expr.SubqueryRunner.
type Runner struct {
	ctx         *exec.Context
	opts        physical.Options
	query       *binder.BoundSelect
	innerTables map[string]bool
	cache       *cache
}

// NewRunner builds a Runner for query, run against ctx with opts
// carrying the session's physical-planning choices (e.g. hash_join_on).
// query's own expression trees must already be resolved (no remaining
// BoundSubqueryExpr/BoundInExpr/BoundExistsExpr placeholders) — use
// ResolveSelect to produce such a query.
func NewRunner(ctx *exec.Context, opts physical.Options, query *binder.BoundSelect) *Runner {
	inner := map[string]bool{query.From.RefName(): true}
	for _, j := range query.Joins {
		inner[j.Table.RefName()] = true
	}
	return &Runner{ctx: ctx, opts: opts, query: query, innerTables: inner, cache: newCache(defaultCacheCapacity)}
}

// Run executes the subquery for one outer row, substituting any
// reference to a table outside the subquery's own FROM/JOIN with a
// literal drawn from outer, then planning and running the resulting
// plan fresh (or serving it from cache when an identical
// parameterization was already run).
func (r *Runner) Run(outer *expr.Tuple) ([]types.Value, error) {
	// A query that specializes against an empty outer row references no
	// outer column, so all of its calls share the nil-outer cache entry.
	keyOuter := outer
	if _, e := specializeSelect(r.query, r.innerTables, &expr.Tuple{}); e == nil {
		keyOuter = nil
	}
	key, err := cacheKey(keyOuter)
	if err != nil {
		return nil, err
	}
	if rows, ok := r.cache.get(key); ok {
		return flatten(rows), nil
	}

	specialized, err := specializeSelect(r.query, r.innerTables, outer)
	if err != nil {
		return nil, err
	}

	plan := logical.BuildSelect(specialized)
	plan.Root = rewrite.Rewrite(plan.Root)
	physOp := physical.BuildSelect(plan, r.opts)

	op, err := exec.Build(physOp)
	if err != nil {
		return nil, err
	}
	execRows, err := exec.DrainAll(op, r.ctx)
	if err != nil {
		return nil, err
	}

	rows := make([][]types.Value, len(execRows))
	for i, row := range execRows {
		rows[i] = row.Tuple.Values
	}
	r.cache.put(key, rows)
	return flatten(rows), nil
}

// flatten extracts each row's first column, the shape
// expr.SubqueryExpr/InExpr expect; ExistsExpr only checks len(rows), so
// the values themselves don't matter for that caller.
func flatten(rows [][]types.Value) []types.Value {
	out := make([]types.Value, len(rows))
	for i, r := range rows {
		if len(r) > 0 {
			out[i] = r[0]
		} else {
			out[i] = types.NewNull(types.BoolType)
		}
	}
	return out
}

// cacheKey encodes outer's values into a stable string; Run passes a
// nil outer for an uncorrelated subquery, so every call shares one
// cache entry.
func cacheKey(outer *expr.Tuple) (string, error) {
	if outer == nil {
		return "", nil
	}
	var b []byte
	for _, v := range outer.Values {
		b = append(b, byte(v.Type()))
		if v.IsNull() {
			b = append(b, 0)
			continue
		}
		b = append(b, 1)
		b = append(b, v.GetString()...)
		b = append(b, 0)
	}
	return string(b), nil
}

// specializeSelect returns a shallow copy of sel with every expression
// tree's outer-table FieldExprs replaced by literal values from outer.
func specializeSelect(sel *binder.BoundSelect, innerTables map[string]bool, outer *expr.Tuple) (*binder.BoundSelect, error) {
	out := *sel
	var err error

	if sel.Where != nil {
		root, e := substitute(sel.Where.Root, innerTables, outer)
		if e != nil {
			return nil, e
		}
		out.Where = &binder.FilterStmt{Root: root}
	}
	if sel.Having != nil {
		out.Having, err = substitute(sel.Having, innerTables, outer)
		if err != nil {
			return nil, err
		}
	}
	out.Fields = make([]binder.BoundField, len(sel.Fields))
	for i, f := range sel.Fields {
		ex, e := substitute(f.Expr, innerTables, outer)
		if e != nil {
			return nil, e
		}
		out.Fields[i] = binder.BoundField{Expr: ex, Name: f.Name}
	}
	out.GroupBy = make([]expr.Expression, len(sel.GroupBy))
	for i, g := range sel.GroupBy {
		ge, e := substitute(g, innerTables, outer)
		if e != nil {
			return nil, e
		}
		out.GroupBy[i] = ge
	}
	out.Joins = make([]binder.BoundJoin, len(sel.Joins))
	for i, j := range sel.Joins {
		on := j.On
		if on != nil {
			var e error
			on, e = substitute(on, innerTables, outer)
			if e != nil {
				return nil, e
			}
		}
		out.Joins[i] = binder.BoundJoin{Table: j.Table, On: on}
	}
	return &out, nil
}

// substitute rewrites e, replacing every FieldExpr whose table isn't
// among innerTables with a literal value read from outer.
func substitute(e expr.Expression, innerTables map[string]bool, outer *expr.Tuple) (expr.Expression, error) {
	switch n := e.(type) {
	case *expr.FieldExpr:
		if innerTables[n.Ref.Table] {
			return n, nil
		}
		v, ok := outer.Get(n.Ref.Table, n.Ref.Field)
		if !ok {
			return nil, rc.Errorf(rc.Internal, "correlated column %s not present in outer row", n.Ref)
		}
		return &expr.ValueExpr{Val: v}, nil

	case *expr.ComparisonExpr:
		left, err := substitute(n.Left, innerTables, outer)
		if err != nil {
			return nil, err
		}
		var right expr.Expression
		if n.Right != nil {
			right, err = substitute(n.Right, innerTables, outer)
			if err != nil {
				return nil, err
			}
		}
		return &expr.ComparisonExpr{Op: n.Op, Left: left, Right: right}, nil

	case *expr.ConjunctionExpr:
		children := make([]expr.Expression, len(n.Children))
		for i, c := range n.Children {
			rc2, err := substitute(c, innerTables, outer)
			if err != nil {
				return nil, err
			}
			children[i] = rc2
		}
		return &expr.ConjunctionExpr{Op: n.Op, Children: children}, nil

	case *expr.ArithmeticExpr:
		left, err := substitute(n.Left, innerTables, outer)
		if err != nil {
			return nil, err
		}
		var right expr.Expression
		if n.Right != nil {
			right, err = substitute(n.Right, innerTables, outer)
			if err != nil {
				return nil, err
			}
		}
		return &expr.ArithmeticExpr{Op: n.Op, Left: left, Right: right}, nil

	case *expr.CastExpr:
		inner, err := substitute(n.Inner, innerTables, outer)
		if err != nil {
			return nil, err
		}
		return &expr.CastExpr{Inner: inner, Target: n.Target}, nil

	case *expr.DistanceFunctionExpr:
		left, err := substitute(n.Left, innerTables, outer)
		if err != nil {
			return nil, err
		}
		right, err := substitute(n.Right, innerTables, outer)
		if err != nil {
			return nil, err
		}
		return &expr.DistanceFunctionExpr{Op: n.Op, Left: left, Right: right}, nil

	case *expr.AggregateExpr:
		if n.Arg == nil {
			return n, nil
		}
		arg, err := substitute(n.Arg, innerTables, outer)
		if err != nil {
			return nil, err
		}
		return &expr.AggregateExpr{Op: n.Op, Arg: arg, Typ: n.Typ, Label: n.Label}, nil

	case *expr.SubqueryExpr, *expr.InExpr, *expr.ExistsExpr:
		// Already resolved to a runner-backed node: its own Runner
		// receives whatever outer tuple the enclosing operator passes
		// at evaluation time, so nothing to substitute here. See the
		// package doc's note on single-level correlation.
		return n, nil

	default:
		return n, nil
	}
}

// Resolve replaces e's BoundSubqueryExpr/BoundInExpr/BoundExistsExpr
// placeholders (and those nested inside their own queries, recursively)
// with real runner-backed expr nodes.
func Resolve(ctx *exec.Context, opts physical.Options, e expr.Expression) (expr.Expression, error) {
	switch n := e.(type) {
	case *binder.BoundSubqueryExpr:
		q, err := ResolveSelect(ctx, opts, n.Query)
		if err != nil {
			return nil, err
		}
		return &expr.SubqueryExpr{Runner: NewRunner(ctx, opts, q), Typ: n.Typ, Text: n.Text}, nil

	case *binder.BoundInExpr:
		left, err := Resolve(ctx, opts, n.Left)
		if err != nil {
			return nil, err
		}
		q, err := ResolveSelect(ctx, opts, n.Query)
		if err != nil {
			return nil, err
		}
		return &expr.InExpr{Left: left, Runner: NewRunner(ctx, opts, q), Not: n.Not, Text: n.Text}, nil

	case *binder.BoundExistsExpr:
		q, err := ResolveSelect(ctx, opts, n.Query)
		if err != nil {
			return nil, err
		}
		return &expr.ExistsExpr{Runner: NewRunner(ctx, opts, q), Not: n.Not, Text: n.Text}, nil

	case *expr.ComparisonExpr:
		left, err := Resolve(ctx, opts, n.Left)
		if err != nil {
			return nil, err
		}
		var right expr.Expression
		if n.Right != nil {
			right, err = Resolve(ctx, opts, n.Right)
			if err != nil {
				return nil, err
			}
		}
		return &expr.ComparisonExpr{Op: n.Op, Left: left, Right: right}, nil

	case *expr.ConjunctionExpr:
		children := make([]expr.Expression, len(n.Children))
		for i, c := range n.Children {
			rc2, err := Resolve(ctx, opts, c)
			if err != nil {
				return nil, err
			}
			children[i] = rc2
		}
		return &expr.ConjunctionExpr{Op: n.Op, Children: children}, nil

	case *expr.ArithmeticExpr:
		left, err := Resolve(ctx, opts, n.Left)
		if err != nil {
			return nil, err
		}
		var right expr.Expression
		if n.Right != nil {
			right, err = Resolve(ctx, opts, n.Right)
			if err != nil {
				return nil, err
			}
		}
		return &expr.ArithmeticExpr{Op: n.Op, Left: left, Right: right}, nil

	case *expr.CastExpr:
		inner, err := Resolve(ctx, opts, n.Inner)
		if err != nil {
			return nil, err
		}
		return &expr.CastExpr{Inner: inner, Target: n.Target}, nil

	case *expr.DistanceFunctionExpr:
		left, err := Resolve(ctx, opts, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := Resolve(ctx, opts, n.Right)
		if err != nil {
			return nil, err
		}
		return &expr.DistanceFunctionExpr{Op: n.Op, Left: left, Right: right}, nil

	case *expr.AggregateExpr:
		if n.Arg == nil {
			return n, nil
		}
		arg, err := Resolve(ctx, opts, n.Arg)
		if err != nil {
			return nil, err
		}
		return &expr.AggregateExpr{Op: n.Op, Arg: arg, Typ: n.Typ, Label: n.Label}, nil

	default:
		return e, nil
	}
}

// ResolveSelect returns a copy of sel with every expression tree
// resolved (see Resolve).
func ResolveSelect(ctx *exec.Context, opts physical.Options, sel *binder.BoundSelect) (*binder.BoundSelect, error) {
	out := *sel
	var err error

	if sel.Where != nil {
		root, e := Resolve(ctx, opts, sel.Where.Root)
		if e != nil {
			return nil, e
		}
		out.Where = &binder.FilterStmt{Root: root}
	}
	if sel.Having != nil {
		out.Having, err = Resolve(ctx, opts, sel.Having)
		if err != nil {
			return nil, err
		}
	}
	out.Fields = make([]binder.BoundField, len(sel.Fields))
	for i, f := range sel.Fields {
		ex, e := Resolve(ctx, opts, f.Expr)
		if e != nil {
			return nil, e
		}
		out.Fields[i] = binder.BoundField{Expr: ex, Name: f.Name}
	}
	out.GroupBy = make([]expr.Expression, len(sel.GroupBy))
	for i, g := range sel.GroupBy {
		ge, e := Resolve(ctx, opts, g)
		if e != nil {
			return nil, e
		}
		out.GroupBy[i] = ge
	}
	out.Joins = make([]binder.BoundJoin, len(sel.Joins))
	for i, j := range sel.Joins {
		on := j.On
		if on != nil {
			var e error
			on, e = Resolve(ctx, opts, on)
			if e != nil {
				return nil, e
			}
		}
		out.Joins[i] = binder.BoundJoin{Table: j.Table, On: on}
	}
	return &out, nil
}

// ResolveFilter resolves a standalone FilterStmt (UPDATE/DELETE's WHERE
// clause), which can't embed Resolve's recursion inside a BoundSelect.
func ResolveFilter(ctx *exec.Context, opts physical.Options, f *binder.FilterStmt) (*binder.FilterStmt, error) {
	if f == nil {
		return nil, nil
	}
	root, err := Resolve(ctx, opts, f.Root)
	if err != nil {
		return nil, err
	}
	return &binder.FilterStmt{Root: root}, nil
}
