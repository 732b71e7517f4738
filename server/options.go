package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/petrel-ftp/petrel/auth"
)

// Option is a functional option for configuring an FTP server.
type Option func(*Server) error

// WithCredentials sets the credential store used to authenticate logins.
// This option is required.
//
// Example:
//
//	creds := auth.NewStore()
//	creds.Register("felicia:friday")
//	s, _ := server.NewServer(":2121",
//	    server.WithCredentials(creds),
//	    server.WithFilesystem(fs),
//	)
func WithCredentials(store *auth.Store) Option {
	return func(s *Server) error {
		s.creds = store
		return nil
	}
}

// WithFilesystem sets the filesystem the server serves. This option is
// required. Use afero.NewBasePathFs to expose a directory of the real
// filesystem, or afero.NewMemMapFs for an in-memory tree.
func WithFilesystem(fs afero.Fs) Option {
	return func(s *Server) error {
		s.fs = fs
		return nil
	}
}

// WithLogger sets a custom logger for the server.
// If not specified, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithBanner sets the text of the 220 greeting sent when a connection is
// accepted. The default is "Petrel FTP".
func WithBanner(banner string) Option {
	return func(s *Server) error {
		s.banner = banner
		return nil
	}
}

// WithPublicHost sets the IP address or hostname advertised in PASV
// replies. Use this when the server sits behind NAT and the control
// connection's local address is not reachable from clients. If not set,
// the control connection's local address is advertised.
func WithPublicHost(host string) Option {
	return func(s *Server) error {
		s.publicHost = host
		return nil
	}
}

// WithIdleTimeout sets how long a session may sit between commands before
// the server closes it as if it had sent QUIT. Zero disables the timeout.
// The default is 5 minutes.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) error {
		s.idleTimeout = d
		return nil
	}
}

// WithDataTimeout bounds how long the server waits for the client on the
// data channel: the passive accept, the active connect, and each read or
// write during a transfer. The default is 10 seconds.
func WithDataTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d <= 0 {
			return fmt.Errorf("data timeout must be positive, got %v", d)
		}
		s.dataTimeout = d
		return nil
	}
}

// WithMaxSessions caps the number of simultaneous sessions. Connections
// beyond the cap are refused with a 421 before the greeting. The default
// is 10.
func WithMaxSessions(max int) Option {
	return func(s *Server) error {
		if max < 1 {
			return fmt.Errorf("max sessions must be at least 1, got %d", max)
		}
		s.maxSessions = max
		return nil
	}
}

// WithPassivePorts sets the inclusive port range PASV allocates data
// listeners from. The default is 49152-49407. Passing 0, 0 lets the
// kernel pick ephemeral ports instead.
func WithPassivePorts(min, max int) Option {
	return func(s *Server) error {
		if min == 0 && max == 0 {
			s.pasvMinPort, s.pasvMaxPort = 0, 0
			return nil
		}
		if min < 1 || max > 65535 || min > max {
			return fmt.Errorf("invalid passive port range %d-%d", min, max)
		}
		s.pasvMinPort, s.pasvMaxPort = min, max
		return nil
	}
}

// WithBandwidthLimit caps per-session transfer throughput in bytes per
// second. Zero, the default, means unlimited.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(s *Server) error {
		if bytesPerSecond < 0 {
			return fmt.Errorf("bandwidth limit must not be negative, got %d", bytesPerSecond)
		}
		s.bandwidthLimit = bytesPerSecond
		return nil
	}
}

// WithAllowForeignPort disables the anti-bounce check on PORT, allowing
// the client to direct data connections at hosts other than the control
// connection's peer. Off by default.
func WithAllowForeignPort(allow bool) Option {
	return func(s *Server) error {
		s.allowForeignPort = allow
		return nil
	}
}

// WithMetrics sets the collector that receives command, transfer,
// connection and authentication counters. Nil, the default, disables
// collection.
func WithMetrics(c Collector) Option {
	return func(s *Server) error {
		s.metrics = c
		return nil
	}
}

// WithHost sets the host-facilities collaborator behind SITE DF, FREE, GC
// and SHUTDOWN. If not set, a default host.New is used.
func WithHost(h Host) Option {
	return func(s *Server) error {
		s.host = h
		return nil
	}
}

// WithDiskPath sets the path SITE DF reports on. It should name the
// filesystem holding the served tree. The default is "/".
func WithDiskPath(path string) Option {
	return func(s *Server) error {
		s.diskPath = path
		return nil
	}
}

// WithFailureDelay sets the pause inserted before every failed-login
// reply. The default is 1 second.
func WithFailureDelay(d time.Duration) Option {
	return func(s *Server) error {
		if d < 0 {
			return fmt.Errorf("failure delay must not be negative, got %v", d)
		}
		s.failureDelay = d
		return nil
	}
}

// WithLoginLimit disconnects a client after limit failed logins within
// window, counted per IP. A limit of 0 disables the cut-off. The default
// is 10 failures in 5 minutes.
func WithLoginLimit(limit int, window time.Duration) Option {
	return func(s *Server) error {
		s.throttle = auth.NewThrottle(limit, window)
		return nil
	}
}
