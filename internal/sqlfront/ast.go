// Package sqlfront wraps the TiDB SQL parser, converting its AST into
// smfdb's own unbound statement shapes: a small, local AST built out of
// internal/expr's unbound expression variants (UnboundFieldExpr,
// UnboundAggregateExpr, ...) so internal/binder has one expression tree
// to resolve rather than two. The TiDB parser itself is the explicitly
// out-of-scope "external parser/lexer" spec.md carves out of the hard
// core (spec.md §1) — this package is the seam where that external
// dependency meets smfdb's own engine.
package sqlfront

import (
	"smfdb/internal/expr"
	"smfdb/internal/types"
)

// Stmt is the sum type of every statement sqlfront can produce.
type Stmt interface{ isStmt() }

// TableRef names a table with an optional alias, e.g. `orders AS o`.
type TableRef struct {
	Table string
	Alias string
}

// JoinClause is one `JOIN <table> ON <cond>` step chained onto a FROM
// clause; an empty On means a cross/comma join.
type JoinClause struct {
	Right TableRef
	On    expr.Expression
}

// SelectField is one projected item: either Expr (aliased by As) or,
// for `*`/`t.*`, Star set instead.
type SelectField struct {
	Expr expr.Expression
	As   string
	Star *expr.StarExpr
}

// OrderByItem is one ORDER BY key.
type OrderByItem struct {
	Expr expr.Expression
	Desc bool
}

// SelectStmt is an unbound `SELECT ... FROM ... [WHERE] [GROUP BY]
// [HAVING] [ORDER BY] [LIMIT]`.
type SelectStmt struct {
	From    TableRef
	Joins   []JoinClause
	Fields  []SelectField
	Where   expr.Expression
	GroupBy []expr.Expression
	Having  expr.Expression
	OrderBy []OrderByItem
	Limit   *int64
}

func (*SelectStmt) isStmt() {}

// InsertStmt is an unbound `INSERT INTO t (cols) VALUES (...), (...)`.
type InsertStmt struct {
	Table   string
	Columns []string // empty means "all columns, declared order"
	Rows    [][]expr.Expression
}

func (*InsertStmt) isStmt() {}

// Assignment is one `col = expr` pair in an UPDATE's SET list.
type Assignment struct {
	Column string
	Value  expr.Expression
}

// UpdateStmt is an unbound `UPDATE t SET ... [WHERE ...]`.
type UpdateStmt struct {
	Table       string
	Assignments []Assignment
	Where       expr.Expression
}

func (*UpdateStmt) isStmt() {}

// DeleteStmt is an unbound `DELETE FROM t [WHERE ...]`.
type DeleteStmt struct {
	Table string
	Where expr.Expression
}

func (*DeleteStmt) isStmt() {}

// ColumnDef is one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name       string
	Type       types.AttrType
	Length     int // CHAR(n)/VECTOR(n) dimension; 0 uses the type's default width
	Nullable   bool
	PrimaryKey bool
}

// IndexDef is one inline or table-level index/unique/primary constraint
// named within a CREATE TABLE statement.
type IndexDef struct {
	Name    string
	Columns []string
	Unique  bool
	Primary bool
}

// CreateTableStmt is an unbound `CREATE TABLE t (...)`.
type CreateTableStmt struct {
	Table   string
	Columns []ColumnDef
	Indexes []IndexDef
}

func (*CreateTableStmt) isStmt() {}

// DropTableStmt is `DROP TABLE t`.
type DropTableStmt struct{ Table string }

func (*DropTableStmt) isStmt() {}

// CreateIndexStmt is `CREATE [UNIQUE] INDEX name ON t (cols)`.
type CreateIndexStmt struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

func (*CreateIndexStmt) isStmt() {}

// DropIndexStmt is `DROP INDEX name ON t`.
type DropIndexStmt struct {
	Name  string
	Table string
}

func (*DropIndexStmt) isStmt() {}

// ShowIndexStmt is `SHOW INDEX FROM t`.
type ShowIndexStmt struct{ Table string }

func (*ShowIndexStmt) isStmt() {}

// SetStmt is `SET name = value`, used for session variables such as
// hash_join_on.
type SetStmt struct {
	Name  string
	Value string
}

func (*SetStmt) isStmt() {}
