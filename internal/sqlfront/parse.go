package sqlfront

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"smfdb/internal/rc"
)

// Parser wraps a TiDB SQL parser instance. It is not safe for
// concurrent use by multiple goroutines, matching the underlying
// parser.Parser's own contract; internal/session keeps one per
// connection.
type Parser struct {
	p *parser.Parser
}

func NewParser() *Parser {
	return &Parser{p: parser.New()}
}

// Parse splits sql (one or more `;`-separated statements) and converts
// each into smfdb's unbound Stmt tree.
func (ps *Parser) Parse(sql string) ([]Stmt, error) {
	nodes, _, err := ps.p.Parse(sql, "", "")
	if err != nil {
		return nil, rc.Errorf(rc.SQLSyntax, "%s", err.Error())
	}
	stmts := make([]Stmt, 0, len(nodes))
	for _, node := range nodes {
		s, err := convertStmt(node)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// ParseOne parses exactly one statement, the common case for the
// interactive client and single-statement network requests.
func (ps *Parser) ParseOne(sql string) (Stmt, error) {
	stmts, err := ps.Parse(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, rc.Errorf(rc.SQLSyntax, "expected exactly one statement, got %d", len(stmts))
	}
	return stmts[0], nil
}

func convertStmt(node ast.StmtNode) (Stmt, error) {
	switch n := node.(type) {
	case *ast.SelectStmt:
		return convertSelectStmt(n)
	case *ast.InsertStmt:
		return convertInsertStmt(n)
	case *ast.UpdateStmt:
		return convertUpdateStmt(n)
	case *ast.DeleteStmt:
		return convertDeleteStmt(n)
	case *ast.CreateTableStmt:
		return convertCreateTableStmt(n)
	case *ast.DropTableStmt:
		return convertDropTableStmt(n)
	case *ast.CreateIndexStmt:
		return convertCreateIndexStmt(n)
	case *ast.DropIndexStmt:
		return convertDropIndexStmt(n)
	case *ast.ShowStmt:
		return convertShowStmt(n)
	case *ast.SetStmt:
		return convertSetStmt(n)
	default:
		return nil, rc.Errorf(rc.Unimplemented, "unsupported statement type (%T)", node)
	}
}

// restoreNode renders an AST node back to SQL text, used for subquery
// text and for literal values the conversion above doesn't model
// directly (decimals, binary/hex literals).
func restoreNode(node ast.Node) string {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := node.Restore(ctx); err != nil {
		return ""
	}
	return sb.String()
}
