package binder

import (
	"smfdb/internal/rc"
	"smfdb/internal/sqlfront"
)

// BindCreateTable validates that the target table does not already
// exist and that no column name repeats; DDL statements carry no
// expression tree to resolve, so sqlfront's own shape is returned
// unchanged once validated.
func (b *Binder) BindCreateTable(s *sqlfront.CreateTableStmt) (*sqlfront.CreateTableStmt, error) {
	if _, err := b.cat.TableMeta(s.Table); err == nil {
		return nil, rc.Errorf(rc.ConstraintViolation, "table %q already exists", s.Table)
	} else if rc.CodeOf(err) != rc.SchemaTableNotExist {
		return nil, err
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if seen[c.Name] {
			return nil, rc.Errorf(rc.SQLSyntax, "column %q declared twice", c.Name)
		}
		seen[c.Name] = true
	}
	for _, idx := range s.Indexes {
		for _, col := range idx.Columns {
			if !seen[col] {
				return nil, rc.Errorf(rc.SchemaFieldNotExist, "index %q references unknown column %q", idx.Name, col)
			}
		}
	}
	return s, nil
}

// BindDropTable validates the target table exists.
func (b *Binder) BindDropTable(s *sqlfront.DropTableStmt) (*sqlfront.DropTableStmt, error) {
	if _, err := b.cat.TableMeta(s.Table); err != nil {
		return nil, err
	}
	return s, nil
}

// BindCreateIndex validates the target table and every indexed column
// exist and aren't already covered by an index of the same name.
func (b *Binder) BindCreateIndex(s *sqlfront.CreateIndexStmt) (*sqlfront.CreateIndexStmt, error) {
	tm, err := b.cat.TableMeta(s.Table)
	if err != nil {
		return nil, err
	}
	if tm.IndexByName(s.Name) != nil {
		return nil, rc.Errorf(rc.ConstraintViolation, "index %q already exists on table %q", s.Name, s.Table)
	}
	for _, col := range s.Columns {
		if fm := tm.FieldByName(col); fm == nil || !fm.Visible {
			return nil, rc.Errorf(rc.SchemaFieldNotExist, "unknown column %q", col)
		}
	}
	return s, nil
}

// BindDropIndex validates the target table and index exist.
func (b *Binder) BindDropIndex(s *sqlfront.DropIndexStmt) (*sqlfront.DropIndexStmt, error) {
	tm, err := b.cat.TableMeta(s.Table)
	if err != nil {
		return nil, err
	}
	if tm.IndexByName(s.Name) == nil {
		return nil, rc.Errorf(rc.SchemaFieldMissing, "index %q does not exist on table %q", s.Name, s.Table)
	}
	return s, nil
}

// BindShowIndex validates the target table exists.
func (b *Binder) BindShowIndex(s *sqlfront.ShowIndexStmt) (*sqlfront.ShowIndexStmt, error) {
	if _, err := b.cat.TableMeta(s.Table); err != nil {
		return nil, err
	}
	return s, nil
}

// BindSet passes SET statements through unchanged; internal/session
// validates and applies recognized variable names (hash_join_on, etc.)
// since the binder has no session-state dependency.
func (b *Binder) BindSet(s *sqlfront.SetStmt) (*sqlfront.SetStmt, error) {
	return s, nil
}
