// Package server is a minimal Minecraft host server whose connections are
// intercepted by a protocol.Runtime.
//
// It drives clients through the handshake, status, login, configuration and
// play phases far enough to join an empty world, chat and stay connected.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/go-logr/logr"
	"github.com/pires/go-proxyproto"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/atomic"

	"go.minekube.com/intercept/pkg/config"
	"go.minekube.com/intercept/pkg/internal/addrquota"
	"go.minekube.com/intercept/pkg/netmc"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/protocol"
	"go.minekube.com/intercept/pkg/util/componentutil"
	"go.minekube.com/intercept/pkg/util/errs"
	"go.minekube.com/intercept/pkg/util/favicon"
)

// Server accepts Minecraft clients.
type Server struct {
	cfg     *config.Config
	runtime *protocol.Runtime
	version *proto.Version
	motd    *component.Text
	favicon favicon.Favicon

	connectionsQuota *addrquota.Quota
	loginsQuota      *addrquota.Quota

	players atomic.Int32
	runOnce atomic.Bool

	mu    sync.Mutex // Protects following field
	conns map[*netmc.Conn]struct{}
	wg    sync.WaitGroup
}

// ErrAlreadyRun is returned by Serve if the server was already run.
var ErrAlreadyRun = errors.New("server was already run, create a new one")

var shutdownReason = &component.Text{Content: "Server is shutting down"}

// New takes a config that should have been validated by
// config.Validate and returns a new Server.
// The runtime must have been created for the configured protocol.
func New(cfg *config.Config, runtime *protocol.Runtime) (*Server, error) {
	v, err := cfg.Version()
	if err != nil {
		return nil, err
	}
	motd, err := componentutil.ParseTextComponent(cfg.Motd)
	if err != nil {
		return nil, fmt.Errorf("error parsing motd: %w", err)
	}
	var icon favicon.Favicon
	if cfg.Favicon != "" {
		if icon, err = favicon.Parse(cfg.Favicon); err != nil {
			return nil, err
		}
	}
	return &Server{
		cfg:              cfg,
		runtime:          runtime,
		version:          v,
		motd:             motd,
		favicon:          icon,
		connectionsQuota: newQuota(cfg.Quota.Connections),
		loginsQuota:      newQuota(cfg.Quota.Logins),
		conns:            map[*netmc.Conn]struct{}{},
	}, nil
}

func newQuota(q config.QuotaSettings) *addrquota.Quota {
	if !q.Enabled {
		return nil
	}
	return addrquota.NewQuota(q.OPS, q.Burst, q.MaxEntries)
}

// PlayerCount returns the number of players in the play phase.
func (s *Server) PlayerCount() int { return int(s.players.Load()) }

// Serve listens on the configured bind address and serves clients until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Bind)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves clients accepted from ln until ctx is canceled.
// All connections are disconnected and ln is closed on return.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	if !s.runOnce.CompareAndSwap(false, true) {
		_ = ln.Close()
		return ErrAlreadyRun
	}
	log := logr.FromContextOrDiscard(ctx).WithName("server")
	ctx = logr.NewContext(ctx, log)

	if s.cfg.ProxyProtocol {
		ln = &proxyproto.Listener{Listener: ln}
	}
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.shutdown(log)

	log.Info("listening for connections", "addr", ln.Addr().String(), "version", s.version.String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errs.IsConnClosedErr(err) {
				// Listener was closed
				return nil
			}
			return fmt.Errorf("error accepting new connection: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleRawConn(ctx, conn)
		}()
	}
}

// handleRawConn handles a just-accepted connection that
// has not had any I/O performed on it yet.
func (s *Server) handleRawConn(ctx context.Context, raw net.Conn) {
	if s.connectionsQuota != nil && s.connectionsQuota.Blocked(raw.RemoteAddr()) {
		_ = raw.Close()
		logr.FromContextOrDiscard(ctx).V(1).Info("connection exceeded the rate limit",
			"remoteAddr", raw.RemoteAddr().String())
		return
	}

	// Connections outlive ctx until shutdown disconnected them.
	conn, start := netmc.NewConn(context.WithoutCancel(ctx), raw, netmc.Options{
		Direction:        proto.ServerBound,
		ReadTimeout:      s.cfg.ReadTimeout,
		WriteTimeout:     s.cfg.ConnectionTimeout,
		CompressionLevel: s.cfg.Compression.Level,
		Trace:            s.cfg.Telemetry.Tracing.Enabled,
	})
	if err := s.runtime.Attach(conn); err != nil {
		conn.Log().Error(err, "could not attach interception handler")
		_ = conn.Close()
		return
	}
	conn.SetSessionHandler(newHandshakeSession(s, conn))

	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	start()
}

func (s *Server) track(conn *netmc.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false // shut down
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn *netmc.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) shutdown(log logr.Logger) {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	log.Info("disconnecting all connections", "count", len(conns))
	for conn := range conns {
		conn.Disconnect(shutdownReason)
	}
	s.wg.Wait()
	log.Info("finished shutdown")
}
