package binder

import (
	"smfdb/internal/catalog"
	"smfdb/internal/expr"
	"smfdb/internal/rc"
	"smfdb/internal/sqlfront"
)

// BindInsert resolves an INSERT statement: an explicit column list is
// checked against the table's visible fields and kept in the order the
// statement lists it (InsertOp places each value by FieldID); an
// omitted list defaults to every visible field in declared order,
// matching spec.md C7's InsertStmt::create.
func (b *Binder) BindInsert(s *sqlfront.InsertStmt) (*BoundInsert, error) {
	tm, err := b.cat.TableMeta(s.Table)
	if err != nil {
		return nil, err
	}
	bt := BoundTable{Meta: tm}

	cols := s.Columns
	var fields []*catalog.FieldMeta
	if len(cols) == 0 {
		fields = tm.VisibleFields()
	} else {
		fields = make([]*catalog.FieldMeta, len(cols))
		seen := make(map[string]bool, len(cols))
		for i, name := range cols {
			if seen[name] {
				return nil, rc.Errorf(rc.SQLSyntax, "column %q specified twice in INSERT column list", name)
			}
			seen[name] = true
			fm := tm.FieldByName(name)
			if fm == nil || !fm.Visible {
				return nil, rc.Errorf(rc.SchemaFieldNotExist, "unknown column %q", name)
			}
			fields[i] = fm
		}
	}

	sc := &scope{tables: []BoundTable{bt}}
	ac := &aggCounter{}
	rows := make([][]expr.Expression, len(s.Rows))
	for ri, row := range s.Rows {
		if len(row) != len(fields) {
			return nil, rc.Errorf(rc.SchemaFieldMissing, "row %d has %d values, expected %d", ri, len(row), len(fields))
		}
		bound := make([]expr.Expression, len(row))
		for ci, v := range row {
			bv, err := b.bindExpr(v, sc, ac)
			if err != nil {
				return nil, err
			}
			bound[ci] = &expr.CastExpr{Inner: bv, Target: fields[ci].Type}
		}
		rows[ri] = bound
	}

	return &BoundInsert{Table: bt, Columns: fields, Rows: rows}, nil
}

// BindUpdate resolves an UPDATE's SET list against the table's visible
// fields, rejecting unknown or duplicate target columns, and binds its
// WHERE clause in the table's own scope.
func (b *Binder) BindUpdate(s *sqlfront.UpdateStmt) (*BoundUpdate, error) {
	tm, err := b.cat.TableMeta(s.Table)
	if err != nil {
		return nil, err
	}
	bt := BoundTable{Meta: tm}
	sc := &scope{tables: []BoundTable{bt}}
	ac := &aggCounter{}

	seen := make(map[string]bool, len(s.Assignments))
	assigns := make([]BoundAssignment, len(s.Assignments))
	for i, a := range s.Assignments {
		if seen[a.Column] {
			return nil, rc.Errorf(rc.SQLSyntax, "column %q assigned twice", a.Column)
		}
		seen[a.Column] = true
		fm := tm.FieldByName(a.Column)
		if fm == nil || !fm.Visible {
			return nil, rc.Errorf(rc.SchemaFieldNotExist, "unknown column %q", a.Column)
		}
		val, err := b.bindExpr(a.Value, sc, ac)
		if err != nil {
			return nil, err
		}
		assigns[i] = BoundAssignment{Field: fm, Value: &expr.CastExpr{Inner: val, Target: fm.Type}}
	}

	out := &BoundUpdate{Table: bt, Assignments: assigns}
	if s.Where != nil {
		w, err := b.bindExpr(s.Where, sc, ac)
		if err != nil {
			return nil, err
		}
		out.Where = &FilterStmt{Root: w}
	}
	return out, nil
}

// BindDelete resolves a DELETE's target table and WHERE clause.
func (b *Binder) BindDelete(s *sqlfront.DeleteStmt) (*BoundDelete, error) {
	tm, err := b.cat.TableMeta(s.Table)
	if err != nil {
		return nil, err
	}
	bt := BoundTable{Meta: tm}
	out := &BoundDelete{Table: bt}
	if s.Where != nil {
		sc := &scope{tables: []BoundTable{bt}}
		w, err := b.bindExpr(s.Where, sc, &aggCounter{})
		if err != nil {
			return nil, err
		}
		out.Where = &FilterStmt{Root: w}
	}
	return out, nil
}
