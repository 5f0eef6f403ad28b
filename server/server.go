// Package server implements spec component G: the accept loop, one
// worker per accepted client, and the shutdown contract.
//
// Grounded on the teacher's server/server.go — an HTTPServer struct
// owning a *tableflip.Upgrader and a Start/Stop lifecycle — but built
// around a raw net.Listener and per-connection workers instead of
// net/http, since spec's wire protocol (absolute-form request lines,
// CONNECT tunneling) is below the http.Handler abstraction. Graceful
// shutdown additionally resolves spec §9's open question: workers are
// tracked in an errgroup so Close can join them (bounded by
// conf.ShutdownGrace) before the cache is torn down, rather than the
// source's drop-everything sigint_handler.
package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cloudflare/tableflip"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arielsalem/cacheproxy/cache"
	"github.com/arielsalem/cacheproxy/conf"
	"github.com/arielsalem/cacheproxy/metrics"
	perr "github.com/arielsalem/cacheproxy/pkg/errors"
	"github.com/arielsalem/cacheproxy/relay"
	"github.com/arielsalem/cacheproxy/request"
	"github.com/arielsalem/cacheproxy/respond"
	"github.com/arielsalem/cacheproxy/tunnel"
)

// Server owns the listening socket, the shared cache, and the
// in-flight worker group.
type Server struct {
	bc    *conf.Bootstrap
	cache *cache.Cache
	log   *zap.Logger

	flip     *tableflip.Upgrader
	listener net.Listener
	workers  errgroup.Group
	ready    chan struct{}

	throughput *metrics.Throughput
}

// New builds a Server. The cache is an explicit object threaded in by
// the caller (spec §9's "re-architect as an explicit object" note),
// not process-wide global state.
func New(bc *conf.Bootstrap, c *cache.Cache, log *zap.Logger) (*Server, error) {
	flip, err := tableflip.New(tableflip.Options{})
	if err != nil {
		return nil, err
	}

	return &Server{
		bc:         bc,
		cache:      c,
		log:        log,
		flip:       flip,
		ready:      make(chan struct{}),
		throughput: metrics.NewThroughput(10*time.Second, time.Second),
	}, nil
}

// Ready closes once the listener is bound, so callers (tests, health
// checks) can wait for Addr to become valid.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener's address. Only valid after Ready
// has closed.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ListenAndServe binds bc.Addr and runs the accept loop until ctx is
// canceled or Close is called. Each accepted connection is handed to
// its own worker goroutine, tracked in an errgroup so Close can join
// them.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.flip.Listen("tcp", s.bc.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	if err := s.flip.Ready(); err != nil {
		return err
	}
	close(s.ready)

	s.log.Info("listening", zap.String("addr", s.bc.Addr))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if isClosed(err) {
				return nil
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}

		metrics.ConnectionsTotal.Inc()
		metrics.ActiveWorkers.Inc()
		s.workers.Go(func() error {
			defer metrics.ActiveWorkers.Dec()
			s.handleConnection(conn)
			return nil
		})
	}
}

// Close stops accepting, waits up to bc.ShutdownGrace for in-flight
// workers to drain, then tears the cache down. This is the "join
// outstanding workers, then deinit" resolution of spec §9's open
// question.
func (s *Server) Close() error {
	if s.listener != nil {
		_ = s.listener.Close()
	}

	drained := make(chan struct{})
	go func() {
		_ = s.workers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(s.bc.ShutdownGrace):
		s.log.Warn("shutdown grace period elapsed with workers still in flight")
	}

	s.throughput.Close()
	s.cache.Close()
	s.log.Info("cache_deinit() and shutdown complete. Bye!")
	return nil
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	connLog := s.log.With(
		zap.String("conn_id", uuid.New().String()),
		zap.String("remote", conn.RemoteAddr().String()),
	)
	connLog.Info("connection accepted")
	r := bufio.NewReader(conn)

	req, err := request.Read(r, s.bc.MaxLine, s.bc.MaxHeaders)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// Premature EOF (before or mid-request): close silently, per
			// spec §7 — nothing is logged to the wire, but we still trace
			// it for operators.
			connLog.Debug("request read ended without a full request", zap.Error(err))
			return
		}
		// A malformed or overlong request or header line gets a 400 page.
		s.respondError(bufio.NewWriter(conn), perr.BadRequest(err.Error()), connLog)
		return
	}

	start := time.Now()
	w := bufio.NewWriter(conn)

	if strings.EqualFold(req.Method, "CONNECT") {
		host, port := splitConnectTarget(req.URI)
		if err := tunnel.Relay(conn, w, host, port); err != nil {
			s.respondError(w, err, connLog)
			metrics.RequestsTotal.WithLabelValues("CONNECT", "error").Inc()
			return
		}
		metrics.RequestsTotal.WithLabelValues("CONNECT", "ok").Inc()
		s.throughput.Mark()
		connLog.Info("tunnel closed", zap.String("host", host), zap.String("port", port), zap.Duration("dur", time.Since(start)))
		return
	}

	res, err := relay.Relay(s.cache, w, req, s.bc.UserAgent)
	if err != nil {
		s.respondError(w, err, connLog)
		metrics.RequestsTotal.WithLabelValues(req.Method, "error").Inc()
		return
	}

	metrics.RequestsTotal.WithLabelValues(req.Method, "ok").Inc()
	s.throughput.Mark()
	connLog.Info("relay complete",
		zap.String("method", req.Method),
		zap.String("uri", req.URI),
		zap.Bool("cache_hit", res.CacheHit),
		zap.Bool("cached", res.Cached),
		zap.Int("bytes", res.BytesFromOrigin),
		zap.Duration("dur", time.Since(start)),
	)
}

func (s *Server) respondError(w *bufio.Writer, err error, log *zap.Logger) {
	wireErr, ok := err.(*perr.Error)
	if !ok {
		// A plain error ends the connection without an error page.
		log.Warn("request failed", zap.Error(err))
		return
	}
	log.Warn("request failed", zap.Int("code", wireErr.Code), zap.Error(wireErr))
	if werr := respond.Error(w, wireErr); werr != nil {
		log.Debug("failed to write error page", zap.Error(werr))
	}
}

// splitConnectTarget extracts host:port from a CONNECT target,
// defaulting port to 443 per spec §4.F.
func splitConnectTarget(target string) (host, port string) {
	if i := strings.IndexByte(target, ':'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, "443"
}

func isClosed(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}
