package server

import (
	"bufio"
	"io"
)

// Telnet control bytes that may appear on the FTP control channel.
const (
	telnetIAC  = 0xFF
	telnetWILL = 0xFB
	telnetWONT = 0xFC
	telnetDO   = 0xFD
	telnetDONT = 0xFE
)

// telnetReader strips Telnet command sequences from the control stream
// before line parsing sees them. Clients send IAC negotiation bytes ahead of
// some commands; an escaped IAC IAC pair passes through as a literal 0xFF.
type telnetReader struct {
	src *bufio.Reader
}

func newTelnetReader(r io.Reader) *telnetReader {
	return &telnetReader{src: bufio.NewReader(r)}
}

func (t *telnetReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		// Return early with what we have rather than blocking on the
		// network for more.
		if n > 0 && t.src.Buffered() == 0 {
			return n, nil
		}

		b, err := t.src.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return n, err
		}

		if b != telnetIAC {
			p[n] = b
			n++
			continue
		}

		next, err := t.src.ReadByte()
		if err != nil {
			return n, err
		}
		switch next {
		case telnetIAC:
			p[n] = telnetIAC
			n++
		case telnetWILL, telnetWONT, telnetDO, telnetDONT:
			// Three-byte sequence; swallow the option byte too.
			if _, err := t.src.ReadByte(); err != nil {
				return n, err
			}
		default:
			// Two-byte command, already consumed.
		}
	}
	return n, nil
}
