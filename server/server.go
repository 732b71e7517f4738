package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/petrel-ftp/petrel/auth"
)

// Server is the Petrel FTP server.
//
// It listens for control connections and runs each admitted one as a
// session goroutine. Admission is governed by the session registry: at most
// one session per client IP and at most maxSessions in total; everything
// else is refused with a 421 before the greeting.
//
// Lifecycle:
//  1. Create with NewServer()
//  2. Start with ListenAndServe() or Serve()
//  3. Stop with Shutdown(ctx), which kicks live sessions and waits
type Server struct {
	// addr is the TCP address to listen on (e.g., ":2121").
	addr string

	// fs is the filesystem tree served to clients.
	fs afero.Fs

	// creds authenticates logins and answers permission queries.
	creds *auth.Store

	logger *slog.Logger

	// banner is the text of the 220 greeting.
	banner string

	// publicHost, when set, overrides the address advertised in PASV
	// replies. Useful behind NAT.
	publicHost string

	// idleTimeout closes sessions that sit silent between commands.
	idleTimeout time.Duration

	// dataTimeout bounds passive accepts, active connects, and each
	// read/write chunk during a transfer.
	dataTimeout time.Duration

	maxSessions int

	// pasvMinPort/pasvMaxPort is the inclusive passive port range.
	// Both zero means ephemeral ports.
	pasvMinPort int
	pasvMaxPort int

	// bandwidthLimit caps per-session throughput in bytes/second.
	// Zero means unlimited.
	bandwidthLimit int64

	// allowForeignPort disables the PORT anti-bounce check.
	allowForeignPort bool

	// failureDelay is slept before each failed-login reply.
	failureDelay time.Duration

	// throttle counts failed logins per IP and trips the disconnect.
	throttle *auth.Throttle

	// metrics receives counters; nil disables collection.
	metrics Collector

	// host provides the machine facilities behind SITE DF/FREE/GC and
	// SHUTDOWN.
	host Host

	// diskPath is the path SITE DF reports on.
	diskPath string

	reg     *registry
	ports   *portPool
	started time.Time

	// bindHost is the local address passive listeners bind to, derived
	// from the control listener. Empty means all interfaces.
	bindHost string

	mu         sync.Mutex
	listener   net.Listener
	inShutdown atomic.Bool
	wg         sync.WaitGroup
}

// NewServer creates an FTP server for the given address. The credential
// store and the filesystem are required; everything else has defaults
// matching a small standalone deployment:
//
//   - banner "Petrel FTP", idle timeout 5m, data timeout 10s
//   - at most 10 sessions, one per client IP
//   - passive ports 49152-49407
//   - 1s delay per failed login, disconnect after 10 failures in 5m
func NewServer(addr string, options ...Option) (*Server, error) {
	s := &Server{
		addr:         addr,
		logger:       slog.Default(),
		banner:       "Petrel FTP",
		idleTimeout:  5 * time.Minute,
		dataTimeout:  10 * time.Second,
		maxSessions:  10,
		pasvMinPort:  49152,
		pasvMaxPort:  49407,
		failureDelay: time.Second,
		throttle:     auth.NewThrottle(10, 5*time.Minute),
		diskPath:     "/",
	}

	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.creds == nil {
		return nil, fmt.Errorf("credential store is required (use WithCredentials)")
	}
	if s.fs == nil {
		return nil, fmt.Errorf("filesystem is required (use WithFilesystem)")
	}
	if s.host == nil {
		s.host = newDefaultHost(s.logger)
	}

	s.reg = newRegistry(s.maxSessions)
	if s.pasvMinPort > 0 {
		s.ports = newPortPool(s.pasvMinPort, s.pasvMaxPort)
	}
	s.started = time.Now()

	return s, nil
}

// ListenAndServe starts the FTP server on the configured address and
// blocks until the server stops or an error occurs.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.logger.Info("ftp_server_listening", "addr", s.addr)
	return s.Serve(ln)
}

// Serve accepts control connections on l and blocks until the listener is
// closed. After Shutdown it returns ErrServerClosed.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.inShutdown.Load() {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	s.bindHost = listenHost(l)

	defer func() {
		s.mu.Lock()
		if s.listener == l {
			s.listener = nil
		}
		s.mu.Unlock()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.inShutdown.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			s.logger.Error("accept_error", "error", err)
			continue
		}

		s.admit(conn)
	}
}

// admit registers the connection as a session and starts its goroutine, or
// refuses it with a 421 when the registry is full or the peer IP already
// holds a session.
func (s *Server) admit(conn net.Conn) {
	sess := newSession(s, conn)

	if err := s.reg.add(sess); err != nil {
		s.logger.Warn("connection_refused",
			"remote_ip", sess.remoteIP,
			"reason", err.Error(),
			"sessions", s.reg.len(),
		)
		s.recordConnection(ConnRefused)
		fmt.Fprintf(conn, "421 %s\r\n", replyTooManyConns)
		conn.Close()
		return
	}

	s.recordConnection(ConnAccepted)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.serve()
	}()
}

// Shutdown stops the server: it closes the listener, kicks every live
// session, and waits for their goroutines to drain or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}

	for _, sess := range s.reg.snapshot() {
		sess.kick()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// listenHost extracts the host part of the listener address for passive
// data listeners to bind to. Unspecified addresses (0.0.0.0, ::) collapse
// to "" so the data listeners also bind all interfaces.
func listenHost(l net.Listener) string {
	h, _, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		return ""
	}
	if ip := net.ParseIP(h); ip != nil && ip.IsUnspecified() {
		return ""
	}
	return h
}
