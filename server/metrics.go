package server

import "time"

// Connection lifecycle events passed to Collector.RecordConnection.
const (
	// ConnAccepted is recorded when a control connection is admitted.
	ConnAccepted = "accepted"
	// ConnRefused is recorded when a connection is turned away at accept
	// time, either because the session cap is reached or because the peer
	// IP already holds a session.
	ConnRefused = "refused"
	// ConnClosed is recorded when a session ends for any reason.
	ConnClosed = "closed"
)

// Transfer directions passed to Collector.RecordTransfer.
const (
	TransferDownload = "download"
	TransferUpload   = "upload"
)

// Collector receives counters from the server as commands, transfers,
// connections and login attempts happen. Implementations must be safe for
// concurrent use and should be non-blocking; the metrics package provides a
// Prometheus-backed one. A nil Collector disables collection.
type Collector interface {
	// RecordCommand is called once per dispatched command with the verb
	// and the numeric code of the reply that ended it.
	RecordCommand(verb string, code int)

	// RecordTransfer is called after each RETR or STOR attempt.
	// direction is TransferDownload or TransferUpload; ok is false when
	// the transfer was aborted by a data-channel error.
	RecordTransfer(direction string, bytes int64, duration time.Duration, ok bool)

	// RecordConnection is called with ConnAccepted, ConnRefused or
	// ConnClosed as control connections come and go.
	RecordConnection(event string)

	// RecordAuthentication is called once per PASS attempt.
	RecordAuthentication(ok bool)
}

func (s *Server) recordCommand(verb string, code int) {
	if s.metrics != nil {
		s.metrics.RecordCommand(verb, code)
	}
}

func (s *Server) recordTransfer(direction string, bytes int64, duration time.Duration, ok bool) {
	if s.metrics != nil {
		s.metrics.RecordTransfer(direction, bytes, duration, ok)
	}
}

func (s *Server) recordConnection(event string) {
	if s.metrics != nil {
		s.metrics.RecordConnection(event)
	}
}

func (s *Server) recordAuthentication(ok bool) {
	if s.metrics != nil {
		s.metrics.RecordAuthentication(ok)
	}
}
