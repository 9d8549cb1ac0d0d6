package exec

import (
	"smfdb/internal/catalog"
	"smfdb/internal/expr"
	"smfdb/internal/sqlfront"
	"smfdb/internal/types"
)

// ExecCreateTable translates a validated CREATE TABLE statement into
// FieldMeta/IndexMeta descriptions and asks the catalog to materialize
// them; DDL has no logical/physical operator form (spec.md's DDL
// statements carry no expression tree), so it's executed directly from
// the bound sqlfront AST.
func ExecCreateTable(ctx *Context, s *sqlfront.CreateTableStmt) (*Row, error) {
	fields := make([]*catalog.FieldMeta, len(s.Columns))
	for i, c := range s.Columns {
		fields[i] = &catalog.FieldMeta{
			Name:     c.Name,
			Type:     c.Type,
			Length:   FieldWidth(c.Type, c.Length),
			Nullable: c.Nullable,
			Visible:  true,
		}
	}

	if _, err := ctx.Catalog.CreateTable(s.Table, fields, catalog.RowFormat); err != nil {
		return nil, err
	}
	for _, ix := range s.Indexes {
		if err := ctx.Catalog.CreateIndex(s.Table, ix.Name, ix.Columns, ix.Unique || ix.Primary); err != nil {
			return nil, err
		}
	}
	return &Row{Tuple: rowCountTuple(0)}, nil
}

func ExecDropTable(ctx *Context, s *sqlfront.DropTableStmt) (*Row, error) {
	if err := ctx.Catalog.DropTable(s.Table); err != nil {
		return nil, err
	}
	return &Row{Tuple: rowCountTuple(0)}, nil
}

func ExecCreateIndex(ctx *Context, s *sqlfront.CreateIndexStmt) (*Row, error) {
	if err := ctx.Catalog.CreateIndex(s.Table, s.Name, s.Columns, s.Unique); err != nil {
		return nil, err
	}
	return &Row{Tuple: rowCountTuple(0)}, nil
}

func ExecDropIndex(ctx *Context, s *sqlfront.DropIndexStmt) (*Row, error) {
	if err := ctx.Catalog.DropIndex(s.Table, s.Name); err != nil {
		return nil, err
	}
	return &Row{Tuple: rowCountTuple(0)}, nil
}

// ExecShowIndex lists one row per indexed column: (Table, Non_unique,
// Key_name, Seq_in_index, Column_name), where Non_unique is 0 for a
// unique index and 1 otherwise, and Seq_in_index is the column's
// 1-based position within the composite key.
func ExecShowIndex(ctx *Context, s *sqlfront.ShowIndexStmt) ([]*Row, error) {
	tbl, err := ctx.Catalog.Table(s.Table)
	if err != nil {
		return nil, err
	}
	schema := []expr.FieldRef{
		{Field: "Table"}, {Field: "Non_unique"}, {Field: "Key_name"}, {Field: "Seq_in_index"}, {Field: "Column_name"},
	}
	var rows []*Row
	for _, ix := range tbl.Meta.Indexes {
		nonUnique := int32(1)
		if ix.IsUnique {
			nonUnique = 0
		}
		for pos, fn := range ix.FieldNames {
			values := []types.Value{
				types.NewChars(s.Table, len(s.Table)),
				types.NewInt(nonUnique),
				types.NewChars(ix.Name, len(ix.Name)),
				types.NewInt(int32(pos + 1)),
				types.NewChars(fn, len(fn)),
			}
			rows = append(rows, &Row{Tuple: expr.NewTuple(schema, values)})
		}
	}
	return rows, nil
}
