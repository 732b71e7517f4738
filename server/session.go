package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/petrel-ftp/petrel/auth"
)

// MaxCommandLength is the maximum length of a control line.
const MaxCommandLength = 4096

var errLineTooLong = errors.New("command line too long")

// loginState tracks where a session is in the USER/PASS exchange.
type loginState int

const (
	stateUnauthenticated loginState = iota
	stateNameGiven                  // USER accepted, waiting for PASS
	stateAuthenticated
)

// session is one control connection, run as a sequential state machine in
// its own goroutine: read a line, dispatch, write exactly one terminal
// reply, repeat until QUIT, idle timeout or a dead socket. Nothing outside
// the goroutine touches a session except kick, which limits itself to
// closing sockets and canceling the context.
type session struct {
	server *Server
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	id       string
	remoteIP string

	state        loginState
	pendingUser  string
	cred         *auth.Credential
	cwd          string
	transferType string
	renameFrom   string

	// closing is set by handlers (QUIT, a tripped login throttle, the
	// shutdown gate) to end the session after the current reply.
	closing bool

	// lastCode remembers the code of the most recent reply for metrics.
	lastCode int

	connected    time.Time
	lastActivity atomic.Int64

	// limiter caps transfer throughput; nil means unlimited.
	limiter *rate.Limiter

	// mu guards the data-channel endpoints, which kick closes from
	// another goroutine.
	mu           sync.Mutex
	dataMode     dataMode
	pasvListener net.Listener
	activeAddr   string
	dataConn     net.Conn
}

func newSession(server *Server, conn net.Conn) *session {
	remoteIP, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		remoteIP = conn.RemoteAddr().String()
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	s := &session{
		server:       server,
		conn:         conn,
		reader:       bufio.NewReader(newTelnetReader(conn)),
		writer:       bufio.NewWriter(conn),
		log:          server.logger.With("session_id", id, "remote_ip", remoteIP),
		ctx:          ctx,
		cancel:       cancel,
		id:           id,
		remoteIP:     remoteIP,
		cwd:          "/",
		transferType: "I",
		connected:    time.Now(),
	}

	if server.bandwidthLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(server.bandwidthLimit), int(server.bandwidthLimit))
	}

	s.touch()
	return s
}

// serve is the session loop. One command is in flight at any time; the next
// line is not read until the previous reply has been written.
func (s *session) serve() {
	defer s.teardown()

	s.log.Info("session_started")
	s.reply(220, s.server.banner)

	for {
		if idle := s.server.idleTimeout; idle > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(idle))
		}

		line, err := s.readLine()
		if err != nil {
			switch {
			case errors.Is(err, errLineTooLong):
				s.reply(500, "Command line too long.")
			case isTimeout(err):
				s.log.Info("session_idle_timeout", "user", s.username())
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				// Client hung up, or we were kicked.
			default:
				s.log.Warn("control_read_error", "user", s.username(), "error", err)
			}
			return
		}

		verb, arg := parseCommand(line)
		if verb == "" {
			continue
		}

		s.touch()
		if s.dispatch(verb, arg) {
			return
		}
	}
}

// readLine reads one control line, up to but not including the newline.
func (s *session) readLine() (string, error) {
	var line []byte
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '\n' {
			return string(line), nil
		}
		if len(line) >= MaxCommandLength {
			return "", errLineTooLong
		}
		line = append(line, b)
	}
}

// parseCommand splits a control line into an upper-cased verb and its
// argument. An empty line yields an empty verb.
func parseCommand(line string) (verb, arg string) {
	line = strings.TrimRight(line, "\r")
	parts := strings.SplitN(line, " ", 2)
	verb = strings.ToUpper(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}
	return verb, arg
}

// dispatch runs one command through the verb table and reports whether the
// session should end. Gating that applies to every verb lives here rather
// than in the handlers: the pre-login allowlist, argument presence, and the
// rename-staging reset.
func (s *session) dispatch(verb, arg string) (done bool) {
	logArg := arg
	if verb == "PASS" {
		logArg = "***"
	}
	s.log.Debug("command_received", "user", s.username(), "verb", verb, "arg", logArg)

	def, ok := commandTable[verb]
	if !ok {
		s.reply(502, replyNotImplemented)
		return false
	}

	if !def.preAuth && s.state != stateAuthenticated {
		s.replyError(ErrNotLoggedIn)
		s.server.recordCommand(verb, s.lastCode)
		return false
	}

	if def.needsArg && arg == "" {
		s.reply(501, "Command requires an argument.")
		s.server.recordCommand(verb, s.lastCode)
		return false
	}

	// RNTO must directly follow RNFR; any other verb abandons the staged
	// source.
	if verb != "RNTO" {
		s.renameFrom = ""
	}

	s.runHandler(def, verb, arg)
	s.server.recordCommand(verb, s.lastCode)
	return s.closing
}

// runHandler isolates handler panics: a panicking command becomes a 451
// reply and the session lives on.
func (s *session) runHandler(def commandDef, verb, arg string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("handler_panic", "verb", verb, "panic", r)
			s.reply(451, replyLocalError)
		}
	}()

	if err := def.handler(s, arg); err != nil {
		s.replyError(err)
	}
}

// reply sends a single-line response.
func (s *session) reply(code int, message string) {
	s.lastCode = code
	fmt.Fprintf(s.writer, "%d %s\r\n", code, message)
	s.writer.Flush()
}

// replyLines sends a multiline response: every line carries the code with a
// dash except the last, which closes the reply.
func (s *session) replyLines(code int, lines []string) {
	s.lastCode = code
	for i, line := range lines {
		sep := "-"
		if i == len(lines)-1 {
			sep = " "
		}
		fmt.Fprintf(s.writer, "%d%s%s\r\n", code, sep, line)
	}
	s.writer.Flush()
}

// teardown runs once, at the end of the session goroutine.
func (s *session) teardown() {
	s.cancel()
	s.closeDataEndpoints()
	s.conn.Close()
	s.server.reg.remove(s)
	s.server.recordConnection(ConnClosed)
	s.log.Info("session_closed",
		"user", s.username(),
		"duration_ms", time.Since(s.connected).Milliseconds(),
	)
}

// kick closes the session's sockets from outside its goroutine. The session
// goroutine notices the dead control connection and tears itself down.
func (s *session) kick() {
	s.cancel()
	s.closeDataEndpoints()
	s.conn.Close()
}

func (s *session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// idle reports how long the session has sat since its last command or
// transfer chunk.
func (s *session) idle() time.Duration {
	return time.Since(time.Unix(0, s.lastActivity.Load()))
}

func (s *session) username() string {
	if s.cred != nil {
		return s.cred.Username
	}
	return ""
}
