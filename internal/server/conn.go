package server

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"strings"

	"smfdb/internal/session"
)

// endOfResponse terminates every response smfdbd writes, so a client
// that only reads lines (cmd/smfdb, or a raw `nc`) knows where one
// statement's output ends and the prompt for the next one begins.
const endOfResponse = "\x04"

// handleConn runs one client's statement loop: accumulate input lines
// until a `;`-terminated statement is seen (mirroring
// line_reader.cpp's read-until-terminator shape, the session/CLI layer
// spec.md explicitly treats as an external interface), execute it
// against a fresh per-connection Session, and write back a rendered
// result. EXIT/QUIT/BYE never reach internal/sqlfront's parser (it has
// no statement kind for them); the connection loop recognizes them
// directly and closes the connection.
func (s *Server) handleConn(ctx context.Context, conn net.Conn, connID int64) {
	log := s.log.With("conn", connID, "remote", conn.RemoteAddr().String())
	log.Info("connection opened")
	defer func() {
		_ = conn.Close()
		log.Info("connection closed")
	}()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	sess := session.New(s.db)
	sess.HashJoinOn = s.cfg.HashJoinOn

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	var pending strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			trimmed := strings.TrimSpace(line)
			if pending.Len() == 0 && isExitCommand(trimmed) {
				writeLine(writer, "bye")
				writeLine(writer, endOfResponse)
				_ = writer.Flush()
				return
			}
			pending.WriteString(line)
			if strings.HasSuffix(trimmed, ";") {
				s.runStatement(sess, log, writer, strings.TrimSpace(pending.String()))
				pending.Reset()
			}
		}
		if err != nil {
			if pending.Len() > 0 {
				s.runStatement(sess, log, writer, strings.TrimSpace(pending.String()))
			}
			return
		}
	}
}

func (s *Server) runStatement(sess *session.Session, log *slog.Logger, w *bufio.Writer, sql string) {
	sql = strings.TrimSuffix(sql, ";")
	if strings.TrimSpace(sql) == "" {
		writeLine(w, endOfResponse)
		_ = w.Flush()
		return
	}
	stmt, err := sess.Parse(sql)
	if err != nil {
		log.Warn("statement failed to parse", "sql", sql, "err", err)
		writeLine(w, "ERROR: "+err.Error())
		writeLine(w, endOfResponse)
		_ = w.Flush()
		return
	}
	if warning := destructiveWarning(stmt); warning != "" {
		log.Warn("destructive statement", "sql", sql, "advisory", warning)
	}

	res, err := sess.ExecuteStmt(stmt)
	if err != nil {
		log.Warn("statement failed", "sql", sql, "err", err)
		writeLine(w, "ERROR: "+err.Error())
		writeLine(w, endOfResponse)
		_ = w.Flush()
		return
	}
	writeLine(w, FormatResult(res))
	writeLine(w, endOfResponse)
	_ = w.Flush()
}

func isExitCommand(s string) bool {
	s = strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(s), ";"))
	return s == "EXIT" || s == "QUIT" || s == "BYE"
}

func writeLine(w *bufio.Writer, s string) {
	_, _ = w.WriteString(s)
	_, _ = w.WriteString("\n")
}
