package server

import (
	"errors"
	"io/fs"
	"net"
)

// ErrServerClosed is returned by Serve and ListenAndServe after Shutdown.
var ErrServerClosed = errors.New("ftp: server closed")

// Sentinel errors for the failure modes the command engine maps onto reply
// lines. Credential errors live in package auth.
var (
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrNotImplemented    = errors.New("not implemented")
	ErrNoSuchPath        = errors.New("no such path")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrDataTimeout       = errors.New("data connection timeout")
	ErrDataRefused       = errors.New("data connection refused")
	ErrShuttingDown      = errors.New("server shutting down")
	ErrSyntax            = errors.New("syntax error")
)

// Registry refusal reasons; both collapse to one 421 on the wire.
var (
	errTooManySessions = errors.New("session limit reached")
	errDuplicatePeer   = errors.New("peer already has a session")
)

// errNoDataChannel marks a transfer verb issued before PASV or PORT.
var errNoDataChannel = errors.New("no data channel negotiated")

// replyError folds an error from a handler into a single reply line. Every
// failure a handler can surface ends here, so clients always see exactly one
// terminal reply per command.
func (s *session) replyError(err error) {
	switch {
	case errors.Is(err, ErrNotLoggedIn):
		s.reply(530, replyNotLoggedIn)
	case errors.Is(err, ErrResourceExhausted):
		s.reply(425, "No passive ports available.")
	case errors.Is(err, ErrDataTimeout):
		s.reply(425, "Data connection timed out.")
	case errors.Is(err, ErrDataRefused):
		s.reply(425, replyNoDataConn)
	case errors.Is(err, errNoDataChannel):
		s.reply(425, "Use PASV or PORT first.")
	case errors.Is(err, ErrInvalidAddress):
		s.reply(501, "Invalid address.")
	case errors.Is(err, ErrPermissionDenied):
		s.reply(550, replyNoAccess)
	case errors.Is(err, ErrNotImplemented):
		s.reply(502, replyNotImplemented)
	case errors.Is(err, ErrShuttingDown):
		s.reply(421, replyShuttingDown)
	case errors.Is(err, ErrSyntax):
		s.reply(501, "Invalid parameter.")
	case errors.Is(err, ErrNoSuchPath), errors.Is(err, fs.ErrNotExist):
		s.reply(550, "No such file or directory.")
	case errors.Is(err, fs.ErrPermission):
		s.reply(550, replyNoAccess)
	default:
		s.reply(451, replyLocalError)
	}
}

// isTimeout reports whether err is a network timeout, which the control loop
// treats as client idleness.
func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
