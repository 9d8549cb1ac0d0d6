package server

import (
	"fmt"
	"strings"

	"smfdb/internal/session"
)

// FormatResult renders a Session Result as the tab-separated text
// smfdbd writes back to a connection: a header line plus one line per
// row for a tuple stream, or a single "Query OK" line for a row-count
// result, matching the plain textual output the session/CLI layer
// spec.md leaves as an external interface would produce.
func FormatResult(res *session.Result) string {
	if res.Columns == nil {
		return fmt.Sprintf("Query OK, %d row(s) affected", res.RowsAffected)
	}

	var b strings.Builder
	b.WriteString(strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		b.WriteByte('\n')
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = v.GetString()
		}
		b.WriteString(strings.Join(parts, "\t"))
	}
	if len(res.Rows) == 0 {
		b.WriteString("\nEmpty set")
	}
	return b.String()
}
