package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// dataMode is the negotiation state of a session's data channel.
type dataMode int

const (
	dataNone    dataMode = iota
	dataPassive          // PASV accepted, listener waiting for the client
	dataActive           // PORT accepted, dial deferred to the transfer
)

// portPool hands out passive listener ports from a fixed range. Allocation
// is serialized and rotates through the range so concurrent sessions are
// never offered the same port; a port still held by an open listener fails
// to bind and is skipped.
type portPool struct {
	mu       sync.Mutex
	min, max int
	next     int
}

func newPortPool(min, max int) *portPool {
	return &portPool{min: min, max: max, next: min}
}

// listen binds a TCP listener on the next free port of the range, trying
// each port at most once. All ports busy yields ErrResourceExhausted.
func (p *portPool) listen(host string) (net.Listener, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	span := p.max - p.min + 1
	for i := 0; i < span; i++ {
		port := p.next
		p.next++
		if p.next > p.max {
			p.next = p.min
		}

		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return ln, nil
		}
	}
	return nil, fmt.Errorf("ports %d-%d all in use: %w", p.min, p.max, ErrResourceExhausted)
}

// listenData opens a passive data listener, from the port pool when one is
// configured and on an ephemeral port otherwise.
func (s *Server) listenData() (net.Listener, error) {
	if s.ports != nil {
		return s.ports.listen(s.bindHost)
	}
	return net.Listen("tcp", net.JoinHostPort(s.bindHost, "0"))
}

// enterPassive opens a data listener and records it, discarding any
// endpoint left from an earlier PASV or PORT. The returned address is what
// the 227 reply advertises; the client's connection is not accepted until a
// transfer verb calls acquireData.
func (s *session) enterPassive() (net.IP, int, error) {
	s.closeDataEndpoints()

	ln, err := s.server.listenData()
	if err != nil {
		return nil, 0, err
	}

	port := ln.Addr().(*net.TCPAddr).Port

	s.mu.Lock()
	s.pasvListener = ln
	s.dataMode = dataPassive
	s.mu.Unlock()

	s.log.Debug("passive_listener_opened", "port", port)
	return s.advertisedIP(), port, nil
}

// enterActive records the callback address from a PORT argument, deferring
// the dial to the transfer verb. Unless foreign ports are allowed, the
// address must be the control connection's peer, which blocks FTP bounce
// relaying.
func (s *session) enterActive(arg string) error {
	ip, port, err := parsePortArg(arg)
	if err != nil {
		return err
	}

	if !s.server.allowForeignPort && ip.String() != s.remoteIP {
		s.log.Warn("port_target_rejected", "user", s.username(), "target_ip", ip.String())
		return fmt.Errorf("callback %s does not match peer %s: %w", ip, s.remoteIP, ErrInvalidAddress)
	}

	s.closeDataEndpoints()

	s.mu.Lock()
	s.activeAddr = net.JoinHostPort(ip.String(), strconv.Itoa(port))
	s.dataMode = dataActive
	s.mu.Unlock()

	return nil
}

// parsePortArg decodes the RFC 959 h1,h2,h3,h4,p1,p2 address pair.
func parsePortArg(arg string) (net.IP, int, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 6 {
		return nil, 0, fmt.Errorf("want 6 comma-separated octets, got %d: %w", len(parts), ErrInvalidAddress)
	}

	nums := make([]int, 6)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 255 {
			return nil, 0, fmt.Errorf("octet %q out of range: %w", part, ErrInvalidAddress)
		}
		nums[i] = n
	}

	port := nums[4]*256 + nums[5]
	if port == 0 {
		return nil, 0, fmt.Errorf("port 0 not usable: %w", ErrInvalidAddress)
	}

	ip := net.IPv4(byte(nums[0]), byte(nums[1]), byte(nums[2]), byte(nums[3]))
	return ip, port, nil
}

// encodeHostPort renders an address as the h1,h2,h3,h4,p1,p2 pair used in
// the 227 reply.
func encodeHostPort(ip net.IP, port int) string {
	v4 := ip.To4()
	if v4 == nil {
		v4 = net.IPv4zero.To4()
	}
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", v4[0], v4[1], v4[2], v4[3], port/256, port%256)
}

// advertisedIP picks the address PASV tells the client to connect to: the
// configured public host when set, otherwise the control connection's local
// address.
func (s *session) advertisedIP() net.IP {
	if h := s.server.publicHost; h != "" {
		if ip := net.ParseIP(h); ip != nil {
			return ip
		}
		addrs, err := net.LookupIP(h)
		if err == nil {
			for _, a := range addrs {
				if v4 := a.To4(); v4 != nil {
					return v4
				}
			}
		}
		s.log.Warn("public_host_unresolvable", "public_host", h, "error", err)
	}

	if addr, ok := s.conn.LocalAddr().(*net.TCPAddr); ok {
		return addr.IP
	}
	return net.IPv4zero
}

// acquireData completes the negotiated data channel: it accepts the pending
// passive connection or dials the recorded active address. Either way the
// negotiation state is consumed; the next transfer needs a fresh PASV or
// PORT. The wait is bounded by the server's data timeout.
func (s *session) acquireData() (net.Conn, error) {
	s.mu.Lock()
	mode := s.dataMode
	ln := s.pasvListener
	target := s.activeAddr
	s.mu.Unlock()

	var conn net.Conn
	var err error

	switch mode {
	case dataPassive:
		if tcp, ok := ln.(*net.TCPListener); ok {
			_ = tcp.SetDeadline(time.Now().Add(s.server.dataTimeout))
		}
		conn, err = ln.Accept()
		if err != nil {
			s.closeDataEndpoints()
			if isTimeout(err) {
				return nil, ErrDataTimeout
			}
			return nil, err
		}

	case dataActive:
		d := net.Dialer{Timeout: s.server.dataTimeout}
		conn, err = d.DialContext(s.ctx, "tcp", target)
		if err != nil {
			s.closeDataEndpoints()
			if isTimeout(err) {
				return nil, ErrDataTimeout
			}
			return nil, fmt.Errorf("dialing %s: %w", target, ErrDataRefused)
		}

	default:
		return nil, errNoDataChannel
	}

	s.mu.Lock()
	if s.pasvListener != nil {
		s.pasvListener.Close()
		s.pasvListener = nil
	}
	s.activeAddr = ""
	s.dataMode = dataNone
	s.dataConn = conn
	s.mu.Unlock()

	// A kick that raced the accept has already closed everything it saw;
	// do not hand a live socket to a dying session.
	if s.ctx.Err() != nil {
		conn.Close()
		return nil, s.ctx.Err()
	}

	return conn, nil
}

// releaseDataConn closes the data connection after a transfer.
func (s *session) releaseDataConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataConn != nil {
		s.dataConn.Close()
		s.dataConn = nil
	}
}

// closeDataEndpoints discards all data-channel state: the passive listener,
// any open data connection, and the recorded active address. Safe to call
// from outside the session goroutine.
func (s *session) closeDataEndpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pasvListener != nil {
		s.pasvListener.Close()
		s.pasvListener = nil
	}
	if s.dataConn != nil {
		s.dataConn.Close()
		s.dataConn = nil
	}
	s.activeAddr = ""
	s.dataMode = dataNone
}
