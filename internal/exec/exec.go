// Package exec implements the Volcano-style iterator engine spec.md
// §4.11 describes: every physical.Operator becomes an Operator here
// with Open/Next/Close, pulling one Row at a time from its children.
// Row carries the originating table and RID alongside its Tuple so
// Update/Delete (which always sit directly above a single-table scan,
// never a join, per the grammar) can write back through the same
// table.Table the row came from.
package exec

import (
	"smfdb/internal/catalog"
	"smfdb/internal/expr"
	"smfdb/internal/storage/recordfile"
	"smfdb/internal/storage/table"
)

// Row is one tuple flowing through the operator tree, plus enough
// provenance (Src, RID) for a DML operator directly above a scan to
// write back to the table it was read from.
type Row struct {
	Tuple *expr.Tuple
	RID   recordfile.RID
	Src   *table.Table
}

// Catalog opens and creates the physical table handles a running
// query touches; internal/session's database registry implements it.
// DDL operations take shape-only descriptions (not a fully-built
// TableMeta) because Catalog owns table-ID allocation and on-disk
// schema persistence.
type Catalog interface {
	Table(name string) (*table.Table, error)
	CreateTable(name string, fields []*catalog.FieldMeta, format catalog.StorageFormat) (*table.Table, error)
	DropTable(name string) error
	CreateIndex(tableName, indexName string, fieldNames []string, unique bool) error
	DropIndex(tableName, indexName string) error
}

// Context is the per-statement execution environment threaded through
// Open. Subquery evaluation doesn't hang off Context: internal/exec/
// subquery resolves each SubqueryExpr/InExpr/ExistsExpr to carry its
// own dedicated Runner at plan-resolution time (one nested query, one
// Runner), since a statement can contain several unrelated subqueries
// that a single shared Context-level runner couldn't distinguish.
type Context struct {
	Catalog Catalog
}

// Operator is the Volcano iterator contract every physical node
// implements: Open readies state, Next returns the next row (nil, nil
// at end of input), Close releases resources. Callers must Close even
// after an error from Open/Next.
type Operator interface {
	Open(ctx *Context) error
	Next() (*Row, error)
	Close() error
}

// DrainAll pulls every row from op until EOF and returns them all; it
// drives SELECT, INSERT/UPDATE/DELETE and each subquery run.
func DrainAll(op Operator, ctx *Context) ([]*Row, error) {
	defer op.Close()
	if err := op.Open(ctx); err != nil {
		return nil, err
	}
	var out []*Row
	for {
		row, err := op.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return out, nil
		}
		out = append(out, row)
	}
}
