package sqlfront

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"

	"smfdb/internal/rc"
	"smfdb/internal/types"
)

func convertCreateTableStmt(n *ast.CreateTableStmt) (*CreateTableStmt, error) {
	out := &CreateTableStmt{Table: n.Table.Name.O}

	for _, col := range n.Cols {
		cd, err := convertColumnDef(col)
		if err != nil {
			return nil, err
		}
		out.Columns = append(out.Columns, cd)
	}

	for _, cons := range n.Constraints {
		idx, err := convertConstraint(cons)
		if err != nil {
			return nil, err
		}
		if idx != nil {
			out.Indexes = append(out.Indexes, *idx)
		}
	}

	if !hasPrimaryKey(out) {
		return nil, rc.Errorf(rc.SchemaFieldMissing, "table %q has no PRIMARY KEY", out.Table)
	}

	return out, nil
}

func hasPrimaryKey(t *CreateTableStmt) bool {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Primary {
			return true
		}
	}
	return false
}

func convertColumnDef(col *ast.ColumnDef) (ColumnDef, error) {
	attrType, length, err := attrTypeFromFieldType(col.Tp)
	if err != nil {
		return ColumnDef{}, err
	}
	cd := ColumnDef{Name: col.Name.Name.O, Type: attrType, Length: length, Nullable: true}

	for _, opt := range col.Options {
		switch opt.Tp {
		case ast.ColumnOptionNotNull:
			cd.Nullable = false
		case ast.ColumnOptionNull:
			cd.Nullable = true
		case ast.ColumnOptionPrimaryKey:
			cd.PrimaryKey = true
			cd.Nullable = false
		default:
			// DEFAULT, AUTO_INCREMENT, COMMENT, etc. have no equivalent
			// in the storage layer's fixed-width record format and are
			// accepted syntactically but otherwise ignored.
		}
	}

	return cd, nil
}

// fieldType is the subset of *parser/types.FieldType's method set this
// package relies on; declared as an interface so this file only needs
// the TiDB parser's ast.ColumnDef.Tp, not a second direct import of its
// internal types package for the concrete struct name.
type fieldType interface {
	String() string
	GetFlen() int
}

func attrTypeFromFieldType(tp fieldType) (types.AttrType, int, error) {
	raw := strings.ToLower(tp.String())
	name := raw
	if i := strings.IndexByte(raw, '('); i >= 0 {
		name = raw[:i]
	}
	name = strings.TrimSpace(strings.Fields(name)[0])

	switch {
	case strings.HasPrefix(name, "int"), strings.HasPrefix(name, "tinyint"),
		strings.HasPrefix(name, "smallint"), strings.HasPrefix(name, "bigint"),
		strings.HasPrefix(name, "mediumint"):
		return types.IntType, 0, nil
	case strings.HasPrefix(name, "float"), strings.HasPrefix(name, "double"),
		strings.HasPrefix(name, "decimal"), strings.HasPrefix(name, "numeric"):
		return types.FloatType, 0, nil
	case name == "bool" || name == "boolean":
		return types.BoolType, 0, nil
	case name == "date" || name == "datetime" || name == "timestamp":
		return types.DateType, 0, nil
	case name == "char" || name == "varchar":
		length := tp.GetFlen()
		if length <= 0 {
			length = 1
		}
		return types.CharType, length, nil
	case name == "text" || name == "longtext" || name == "mediumtext":
		return types.TextType, 0, nil
	case name == "vector":
		length := tp.GetFlen()
		return types.VectorType, length, nil
	default:
		return types.Undefined, 0, rc.Errorf(rc.Unimplemented, "unsupported column type %q", raw)
	}
}

func convertConstraint(c *ast.Constraint) (*IndexDef, error) {
	switch c.Tp {
	case ast.ConstraintPrimaryKey:
		return &IndexDef{Name: "PRIMARY", Columns: keyColumnNames(c.Keys), Primary: true, Unique: true}, nil
	case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		return &IndexDef{Name: constraintName(c, "uniq"), Columns: keyColumnNames(c.Keys), Unique: true}, nil
	case ast.ConstraintIndex, ast.ConstraintKey:
		return &IndexDef{Name: constraintName(c, "idx"), Columns: keyColumnNames(c.Keys)}, nil
	case ast.ConstraintForeignKey:
		// Referential integrity enforcement is out of scope; the
		// constraint is accepted but produces no index.
		return nil, nil
	case ast.ConstraintFulltext, ast.ConstraintCheck:
		return nil, rc.Errorf(rc.Unimplemented, "unsupported table constraint")
	default:
		return nil, rc.Errorf(rc.Unimplemented, "unsupported table constraint")
	}
}

func constraintName(c *ast.Constraint, fallback string) string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Keys) > 0 {
		return fallback + "_" + c.Keys[0].Column.Name.O
	}
	return fallback
}

func keyColumnNames(keys []*ast.IndexPartSpecification) []string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.Column.Name.O)
	}
	return names
}

func convertCreateIndexStmt(n *ast.CreateIndexStmt) (*CreateIndexStmt, error) {
	return &CreateIndexStmt{
		Name:    n.IndexName,
		Table:   n.Table.Name.O,
		Columns: keyColumnNames(n.IndexPartSpecifications),
		Unique:  n.KeyType == ast.IndexKeyTypeUnique,
	}, nil
}

func convertDropIndexStmt(n *ast.DropIndexStmt) (*DropIndexStmt, error) {
	return &DropIndexStmt{Name: n.IndexName, Table: n.Table.Name.O}, nil
}

func convertDropTableStmt(n *ast.DropTableStmt) (*DropTableStmt, error) {
	if len(n.Tables) != 1 {
		return nil, rc.Errorf(rc.Unimplemented, "DROP TABLE supports exactly one table at a time")
	}
	return &DropTableStmt{Table: n.Tables[0].Name.O}, nil
}

func convertShowStmt(n *ast.ShowStmt) (Stmt, error) {
	if n.Tp != ast.ShowIndex {
		return nil, rc.Errorf(rc.Unimplemented, "unsupported SHOW statement")
	}
	return &ShowIndexStmt{Table: n.Table.Name.O}, nil
}

func convertSetStmt(n *ast.SetStmt) (Stmt, error) {
	if len(n.Variables) != 1 {
		return nil, rc.Errorf(rc.Unimplemented, "SET supports exactly one variable assignment at a time")
	}
	v := n.Variables[0]
	val, ok := v.Value.(ast.ValueExpr)
	if !ok {
		return nil, rc.Errorf(rc.Unimplemented, "SET requires a literal value")
	}
	return &SetStmt{Name: v.Name, Value: valueExprToString(val)}, nil
}

func valueExprToString(v ast.ValueExpr) string {
	val := v.GetValue()
	if s, ok := val.(string); ok {
		return s
	}
	return restoreNode(v)
}
