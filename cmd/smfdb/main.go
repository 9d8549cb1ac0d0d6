// Package main is smfdb, the REPL client: it connects to a running
// smfdbd, reads SQL from stdin one statement at a time (accumulating
// lines until a terminating `;`, the same read-until-terminator shape
// line_reader.cpp uses), and prints back whatever text the server
// sends.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const endOfResponse = "\x04"

func main() {
	var addr string
	var execOnce string

	rootCmd := &cobra.Command{
		Use:   "smfdb",
		Short: "smfdb SQL client",
		Long:  `smfdb connects to a running smfdbd server and runs SQL statements interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", addr, err)
			}
			defer func() { _ = conn.Close() }()

			reader := bufio.NewReader(conn)

			if execOnce != "" {
				resp, err := sendStatement(conn, reader, execOnce)
				if err != nil {
					return fmt.Errorf("failed to run statement: %w", err)
				}
				fmt.Println(resp)
				return nil
			}

			return runREPL(conn, reader)
		},
	}

	rootCmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:6789", "smfdbd address to connect to")
	rootCmd.Flags().StringVarP(&execOnce, "execute", "e", "", "Run a single statement and exit")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runREPL(conn net.Conn, reader *bufio.Reader) error {
	stdin := bufio.NewScanner(os.Stdin)
	var pending strings.Builder

	prompt := func() {
		if pending.Len() == 0 {
			fmt.Print("smfdb> ")
		} else {
			fmt.Print("    -> ")
		}
	}

	prompt()
	for stdin.Scan() {
		line := stdin.Text()
		trimmed := strings.TrimSpace(line)

		if pending.Len() == 0 {
			upper := strings.ToUpper(strings.TrimSuffix(trimmed, ";"))
			if upper == "EXIT" || upper == "QUIT" || upper == "BYE" {
				resp, err := sendStatement(conn, reader, trimmed)
				if err == nil {
					fmt.Println(resp)
				}
				return nil
			}
		}

		pending.WriteString(line)
		pending.WriteByte('\n')

		if strings.HasSuffix(trimmed, ";") {
			resp, err := sendStatement(conn, reader, strings.TrimSpace(pending.String()))
			pending.Reset()
			if err != nil {
				return fmt.Errorf("connection error: %w", err)
			}
			fmt.Println(resp)
		}
		prompt()
	}
	fmt.Println()
	return stdin.Err()
}

// sendStatement writes one statement to conn and reads lines back
// until the server's end-of-response sentinel.
func sendStatement(conn net.Conn, reader *bufio.Reader, stmt string) (string, error) {
	if _, err := fmt.Fprintln(conn, stmt); err != nil {
		return "", err
	}

	var out strings.Builder
	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimRight(line, "\n")
		if trimmed == endOfResponse {
			break
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(trimmed)
		if err != nil {
			break
		}
	}
	return out.String(), nil
}
