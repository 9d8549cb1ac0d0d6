// Package server is smfdb's network front end: spec.md §1 carves the
// session/networking layer out of the hard engine core and treats it
// only as an external collaborator, so this package stays a thin,
// line-oriented text protocol rather than a byte-exact MySQL wire
// implementation — one internal/session.Session per connection, fed a
// statement at a time.
package server

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"smfdb/internal/rc"
	"smfdb/internal/session"
)

// Server owns the shared Database every connection's Session binds
// statements against, and the listener that hands out connections.
type Server struct {
	cfg Config
	db  *session.Database
	log *slog.Logger

	nextConnID atomic.Int64
}

// New opens cfg.DataDir's table registry and returns a Server ready to
// Serve. It does not start listening; call Serve for that.
func New(cfg Config, log *slog.Logger) (*Server, error) {
	db, err := session.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, db: db, log: log}, nil
}

// Close closes every table handle the server's Database has opened.
func (s *Server) Close() error {
	return s.db.Close()
}

// Serve listens on cfg.ListenAddr and runs one goroutine per accepted
// connection, fanned out and error-collected with errgroup the way a
// Volcano-style accept loop needs a clean way to stop every
// in-flight connection goroutine together when ctx is cancelled: one
// goroutine closes the listener on cancellation, one accepts, and each
// connection gets its own goroutine under the same group so Serve
// returns only once everything has unwound.
func (s *Server) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return rc.Wrap(rc.IOErrOpen, err, "listen on %s", s.cfg.ListenAddr)
	}
	s.log.Info("smfdbd listening", "addr", s.cfg.ListenAddr, "data_dir", s.cfg.DataDir)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-gctx.Done():
					return nil
				default:
					return rc.Wrap(rc.IOErrRead, err, "accept connection")
				}
			}
			connID := s.nextConnID.Add(1)
			g.Go(func() error {
				s.handleConn(gctx, conn, connID)
				return nil
			})
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
