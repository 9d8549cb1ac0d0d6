package session

import (
	"smfdb/internal/binder"
	"smfdb/internal/exec"
	"smfdb/internal/exec/subquery"
	"smfdb/internal/planner/logical"
	"smfdb/internal/planner/physical"
	"smfdb/internal/planner/rewrite"
	"smfdb/internal/rc"
	"smfdb/internal/sqlfront"
	"smfdb/internal/types"
)

// Result is one statement's outcome: either a tuple stream (Columns +
// Rows, from a SELECT or SHOW INDEX) or a scalar row count (from
// INSERT/UPDATE/DELETE/DDL), never both.
type Result struct {
	Columns      []string
	Rows         [][]types.Value
	RowsAffected int64
}

// Session is one connection's state: its own SQL parser and bound
// statement binder (both stateless enough to share, but kept per
// session to match internal/sqlfront.Parser's not-concurrency-safe
// contract), the variables SET has changed, and the Database it's
// attached to.
type Session struct {
	DB     *Database
	parser *sqlfront.Parser
	binder *binder.Binder

	// HashJoinOn mirrors original_source's session-scoped
	// hash_join_on flag (spec.md §9's first open question): off by
	// default, so joins run as nested-loop unless a client opts in
	// with `SET hash_join_on = true`.
	HashJoinOn bool
}

// New creates a session attached to db.
func New(db *Database) *Session {
	return &Session{
		DB:     db,
		parser: sqlfront.NewParser(),
		binder: binder.New(db),
	}
}

// Execute parses and runs exactly one SQL statement.
func (s *Session) Execute(sql string) (*Result, error) {
	stmt, err := s.Parse(sql)
	if err != nil {
		return nil, err
	}
	return s.ExecuteStmt(stmt)
}

// Parse converts sql into its unbound statement form without running
// it, letting a caller (internal/server's advisory check, in
// particular) inspect a statement before deciding whether to execute
// it.
func (s *Session) Parse(sql string) (sqlfront.Stmt, error) {
	return s.parser.ParseOne(sql)
}

// ExecuteStmt binds, plans, and runs one already-parsed statement.
func (s *Session) ExecuteStmt(stmt sqlfront.Stmt) (*Result, error) {
	ctx := &exec.Context{Catalog: s.DB}

	switch st := stmt.(type) {
	case *sqlfront.SelectStmt:
		return s.execSelect(ctx, st)

	case *sqlfront.InsertStmt:
		bound, err := s.binder.BindInsert(st)
		if err != nil {
			return nil, err
		}
		op, err := exec.Build(physical.Build(logical.BuildInsert(bound), s.physicalOpts()))
		if err != nil {
			return nil, err
		}
		return drainAffected(op, ctx)

	case *sqlfront.UpdateStmt:
		bound, err := s.binder.BindUpdate(st)
		if err != nil {
			return nil, err
		}
		bound.Where, err = subquery.ResolveFilter(ctx, s.physicalOpts(), bound.Where)
		if err != nil {
			return nil, err
		}
		plan := rewrite.Rewrite(logical.BuildUpdate(bound))
		op, err := exec.Build(physical.Build(plan, s.physicalOpts()))
		if err != nil {
			return nil, err
		}
		return drainAffected(op, ctx)

	case *sqlfront.DeleteStmt:
		bound, err := s.binder.BindDelete(st)
		if err != nil {
			return nil, err
		}
		bound.Where, err = subquery.ResolveFilter(ctx, s.physicalOpts(), bound.Where)
		if err != nil {
			return nil, err
		}
		plan := rewrite.Rewrite(logical.BuildDelete(bound))
		op, err := exec.Build(physical.Build(plan, s.physicalOpts()))
		if err != nil {
			return nil, err
		}
		return drainAffected(op, ctx)

	case *sqlfront.CreateTableStmt:
		bound, err := s.binder.BindCreateTable(st)
		if err != nil {
			return nil, err
		}
		if _, err := exec.ExecCreateTable(ctx, bound); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case *sqlfront.DropTableStmt:
		bound, err := s.binder.BindDropTable(st)
		if err != nil {
			return nil, err
		}
		if _, err := exec.ExecDropTable(ctx, bound); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case *sqlfront.CreateIndexStmt:
		bound, err := s.binder.BindCreateIndex(st)
		if err != nil {
			return nil, err
		}
		if _, err := exec.ExecCreateIndex(ctx, bound); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case *sqlfront.DropIndexStmt:
		bound, err := s.binder.BindDropIndex(st)
		if err != nil {
			return nil, err
		}
		if _, err := exec.ExecDropIndex(ctx, bound); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case *sqlfront.ShowIndexStmt:
		bound, err := s.binder.BindShowIndex(st)
		if err != nil {
			return nil, err
		}
		rows, err := exec.ExecShowIndex(ctx, bound)
		if err != nil {
			return nil, err
		}
		return rowsToResult(rows), nil

	case *sqlfront.SetStmt:
		bound, err := s.binder.BindSet(st)
		if err != nil {
			return nil, err
		}
		if err := s.applySet(bound); err != nil {
			return nil, err
		}
		return &Result{}, nil

	default:
		return nil, rc.Errorf(rc.Unimplemented, "unsupported statement type %T", stmt)
	}
}

func (s *Session) execSelect(ctx *exec.Context, st *sqlfront.SelectStmt) (*Result, error) {
	bound, err := s.binder.BindSelect(st)
	if err != nil {
		return nil, err
	}
	bound, err = subquery.ResolveSelect(ctx, s.physicalOpts(), bound)
	if err != nil {
		return nil, err
	}
	logicalPlan := logical.BuildSelect(bound)
	logicalPlan.Root = rewrite.Rewrite(logicalPlan.Root)
	physOp := physical.BuildSelect(logicalPlan, s.physicalOpts())

	op, err := exec.Build(physOp)
	if err != nil {
		return nil, err
	}
	rows, err := exec.DrainAll(op, ctx)
	if err != nil {
		return nil, err
	}

	var columns []string
	for _, f := range bound.Fields {
		columns = append(columns, f.Name)
	}
	out := make([][]types.Value, len(rows))
	for i, r := range rows {
		out[i] = r.Tuple.Values
	}
	return &Result{Columns: columns, Rows: out}, nil
}

func (s *Session) physicalOpts() physical.Options {
	return physical.Options{HashJoinOn: s.HashJoinOn}
}

func drainAffected(op exec.Operator, ctx *exec.Context) (*Result, error) {
	rows, err := exec.DrainAll(op, ctx)
	if err != nil {
		return nil, err
	}
	var n int64
	if len(rows) == 1 {
		n = int64(rows[0].Tuple.At(0).GetInt())
	}
	return &Result{RowsAffected: n}, nil
}

func rowsToResult(rows []*exec.Row) *Result {
	var columns []string
	out := make([][]types.Value, len(rows))
	for i, r := range rows {
		if i == 0 {
			for _, ref := range r.Tuple.Schema {
				columns = append(columns, ref.Field)
			}
		}
		out[i] = r.Tuple.Values
	}
	return &Result{Columns: columns, Rows: out}
}

// applySet validates and applies a recognized session variable;
// unrecognized names are rejected rather than silently ignored, since
// a typo'd `SET` should surface immediately instead of looking like it
// took effect.
func (s *Session) applySet(st *sqlfront.SetStmt) error {
	switch st.Name {
	case "hash_join_on":
		s.HashJoinOn = st.Value == "1" || st.Value == "true" || st.Value == "ON" || st.Value == "on"
		return nil
	default:
		return rc.Errorf(rc.InvalidArgument, "unknown session variable %q", st.Name)
	}
}
