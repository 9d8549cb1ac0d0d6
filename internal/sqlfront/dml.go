package sqlfront

import (
	"github.com/pingcap/tidb/pkg/parser/ast"

	"smfdb/internal/expr"
	"smfdb/internal/rc"
)

func convertSelectStmt(sel *ast.SelectStmt) (*SelectStmt, error) {
	if sel.From == nil {
		return nil, rc.Errorf(rc.Unimplemented, "SELECT without FROM is unsupported")
	}

	from, joins, err := convertTableRefs(sel.From.TableRefs)
	if err != nil {
		return nil, err
	}

	out := &SelectStmt{From: from, Joins: joins}

	if sel.Where != nil {
		out.Where, err = convertExpr(sel.Where)
		if err != nil {
			return nil, err
		}
	}

	if sel.Fields != nil {
		for _, f := range sel.Fields.Fields {
			sf, err := convertSelectField(f)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, sf)
		}
	}

	if sel.GroupBy != nil {
		for _, item := range sel.GroupBy.Items {
			ge, err := convertExpr(item.Expr)
			if err != nil {
				return nil, err
			}
			out.GroupBy = append(out.GroupBy, ge)
		}
	}

	if sel.Having != nil {
		out.Having, err = convertExpr(sel.Having.Expr)
		if err != nil {
			return nil, err
		}
	}

	if sel.OrderBy != nil {
		for _, item := range sel.OrderBy.Items {
			oe, err := convertExpr(item.Expr)
			if err != nil {
				return nil, err
			}
			out.OrderBy = append(out.OrderBy, OrderByItem{Expr: oe, Desc: item.Desc})
		}
	}

	if sel.Limit != nil {
		n, ok := sel.Limit.Count.(ast.ValueExpr)
		if !ok {
			return nil, rc.Errorf(rc.Unimplemented, "LIMIT requires a literal row count")
		}
		lv, err := convertValueExpr(n)
		if err != nil {
			return nil, err
		}
		limit := int64(lv.(*expr.ValueExpr).Val.GetInt())
		out.Limit = &limit
	}

	return out, nil
}

// convertTableRefs flattens a (possibly nested) join tree into a single
// driving table plus an ordered list of joins, matching how
// internal/planner/logical builds left-deep join trees.
func convertTableRefs(node ast.ResultSetNode) (TableRef, []JoinClause, error) {
	switch n := node.(type) {
	case *ast.TableSource:
		ref, err := tableRefFromSource(n)
		return ref, nil, err

	case *ast.Join:
		if n.Right == nil {
			return convertTableRefs(n.Left)
		}
		leftRef, leftJoins, err := convertTableRefs(n.Left)
		if err != nil {
			return TableRef{}, nil, err
		}
		rightRef, rightJoins, err := convertTableRefs(n.Right)
		if err != nil {
			return TableRef{}, nil, err
		}
		if len(rightJoins) > 0 {
			return TableRef{}, nil, rc.Errorf(rc.Unimplemented, "nested join trees on the right side of a join are unsupported")
		}
		var on expr.Expression
		if n.On != nil {
			on, err = convertExpr(n.On.Expr)
			if err != nil {
				return TableRef{}, nil, err
			}
		}
		joins := append(leftJoins, JoinClause{Right: rightRef, On: on})
		return leftRef, joins, nil

	default:
		return TableRef{}, nil, rc.Errorf(rc.Unimplemented, "unsupported FROM clause shape (%T)", node)
	}
}

func tableRefFromSource(n *ast.TableSource) (TableRef, error) {
	tn, ok := n.Source.(*ast.TableName)
	if !ok {
		return TableRef{}, rc.Errorf(rc.Unimplemented, "only plain table references are supported in FROM")
	}
	ref := TableRef{Table: tn.Name.O}
	if n.AsName.O != "" {
		ref.Alias = n.AsName.O
	}
	return ref, nil
}

func convertSelectField(f *ast.SelectField) (SelectField, error) {
	if f.WildCard != nil {
		return SelectField{Star: &expr.StarExpr{Table: f.WildCard.Table.O}}, nil
	}
	e, err := convertExpr(f.Expr)
	if err != nil {
		return SelectField{}, err
	}
	sf := SelectField{Expr: e}
	if f.AsName.O != "" {
		sf.As = f.AsName.O
	}
	return sf, nil
}

func convertInsertStmt(n *ast.InsertStmt) (*InsertStmt, error) {
	tn, ok := n.Table.TableRefs.Left.(*ast.TableSource).Source.(*ast.TableName)
	if !ok {
		return nil, rc.Errorf(rc.Unimplemented, "INSERT requires a plain table target")
	}
	out := &InsertStmt{Table: tn.Name.O}
	for _, c := range n.Columns {
		out.Columns = append(out.Columns, c.Name.O)
	}
	if n.Select != nil {
		return nil, rc.Errorf(rc.Unimplemented, "INSERT ... SELECT is unsupported")
	}
	for _, row := range n.Lists {
		vals := make([]expr.Expression, 0, len(row))
		for _, item := range row {
			ve, err := convertExpr(item)
			if err != nil {
				return nil, err
			}
			vals = append(vals, ve)
		}
		out.Rows = append(out.Rows, vals)
	}
	return out, nil
}

func convertUpdateStmt(n *ast.UpdateStmt) (*UpdateStmt, error) {
	ref, joins, err := convertTableRefs(n.TableRefs.TableRefs)
	if err != nil {
		return nil, err
	}
	if len(joins) > 0 {
		return nil, rc.Errorf(rc.Unimplemented, "UPDATE with a join target is unsupported")
	}
	out := &UpdateStmt{Table: ref.Table}
	for _, a := range n.List {
		ve, err := convertExpr(a.Expr)
		if err != nil {
			return nil, err
		}
		out.Assignments = append(out.Assignments, Assignment{Column: a.Column.Name.O, Value: ve})
	}
	if n.Where != nil {
		out.Where, err = convertExpr(n.Where)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func convertDeleteStmt(n *ast.DeleteStmt) (*DeleteStmt, error) {
	ref, joins, err := convertTableRefs(n.TableRefs.TableRefs)
	if err != nil {
		return nil, err
	}
	if len(joins) > 0 {
		return nil, rc.Errorf(rc.Unimplemented, "DELETE with a join target is unsupported")
	}
	out := &DeleteStmt{Table: ref.Table}
	if n.Where != nil {
		out.Where, err = convertExpr(n.Where)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
