package server

import "smfdb/internal/sqlfront"

// destructiveWarning returns a non-empty advisory message for
// statements that discard data, grounded on the teacher's
// internal/apply StatementAnalyzer (which classifies DROP TABLE/DROP
// INDEX/DELETE as destructive before a migration file is applied
// against a live database). Here the classification runs against
// smfdb's own already-parsed Stmt rather than re-invoking the TiDB
// parser a second time over the same text, since internal/sqlfront has
// already done that parse; only the classification judgment is kept.
func destructiveWarning(stmt sqlfront.Stmt) string {
	switch stmt.(type) {
	case *sqlfront.DropTableStmt:
		return "DROP TABLE will permanently delete the table and all its data"
	case *sqlfront.DropIndexStmt:
		return "DROP INDEX removes the index; queries that relied on it fall back to a table scan"
	case *sqlfront.DeleteStmt:
		return "DELETE will remove rows from the table"
	default:
		return ""
	}
}
