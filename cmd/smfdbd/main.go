// Package main is smfdbd, the server binary: it loads a data directory
// and serves the SQL surface over a line-oriented TCP protocol.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smfdb/internal/server"
)

func main() {
	var configPath string
	var listenAddr string
	var dataDir string
	var hashJoinOn bool

	rootCmd := &cobra.Command{
		Use:   "smfdbd",
		Short: "smfdb database server",
		Long:  `smfdbd serves the smfdb SQL engine over a line-oriented TCP protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := server.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if cmd.Flags().Changed("hash-join-on") {
				cfg.HashJoinOn = hashJoinOn
			}

			logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

			srv, err := server.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
			defer func() {
				if err := srv.Close(); err != nil {
					logger.Error("failed to close server", "err", err)
				}
			}()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Serve(ctx); err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a TOML server config file")
	rootCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Address to listen on (overrides config)")
	rootCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory for table files (overrides config)")
	rootCmd.Flags().BoolVar(&hashJoinOn, "hash-join-on", false, "Default hash_join_on setting for new connections (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
