package server

import (
	"sync"
	"sync/atomic"
)

// registry tracks live sessions keyed by the peer's IP address. One control
// connection per address: a second connection from the same IP is refused at
// accept time, as is any connection past the session cap. The registry also
// carries the shutdown flag set by SITE SHUTDOWN, which blocks new logins
// for everyone but uid 0.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	max      int
	shutdown atomic.Bool
}

func newRegistry(max int) *registry {
	return &registry{
		sessions: make(map[string]*session),
		max:      max,
	}
}

// add claims the slot for s.remoteIP. It fails when the cap is reached or
// the address already holds a session.
func (r *registry) add(s *session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.sessions) >= r.max {
		return errTooManySessions
	}
	if _, ok := r.sessions[s.remoteIP]; ok {
		return errDuplicatePeer
	}
	r.sessions[s.remoteIP] = s
	return nil
}

// remove releases the slot, but only if s still holds it. A session kicked
// and replaced must not evict its successor.
func (r *registry) remove(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.remoteIP] == s {
		delete(r.sessions, s.remoteIP)
	}
}

func (r *registry) get(ip string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[ip]
	return s, ok
}

func (r *registry) snapshot() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) requestShutdown() {
	r.shutdown.Store(true)
}

func (r *registry) shuttingDown() bool {
	return r.shutdown.Load()
}
