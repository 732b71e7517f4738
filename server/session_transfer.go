package server

import (
	"io"
	"net"
	"strings"
	"time"
)

// transferChunk is the copy buffer size for data transfers. Per-chunk
// deadlines on the data socket keep a stalled peer from pinning the session
// past the data timeout.
const transferChunk = 32 * 1024

// handleTYPE accepts the type codes of RFC 959 but transfers stay binary
// regardless; ASCII line-ending conversion is deliberately not performed.
func (s *session) handleTYPE(arg string) error {
	switch strings.ToUpper(arg) {
	case "A", "A N":
		s.transferType = "A"
	case "I", "L 8":
		s.transferType = "I"
	default:
		s.reply(504, "Invalid type.")
		return nil
	}
	s.reply(200, "Always in binary mode.")
	return nil
}

func (s *session) handleMODE(arg string) error {
	if strings.ToUpper(arg) == "S" {
		s.reply(200, replyOK)
	} else {
		s.reply(504, "Transfer mode not supported.")
	}
	return nil
}

func (s *session) handleSTRU(arg string) error {
	if strings.ToUpper(arg) == "F" {
		s.reply(200, replyOK)
	} else {
		s.reply(504, "File structure not supported.")
	}
	return nil
}

func (s *session) handlePASV(string) error {
	ip, port, err := s.enterPassive()
	if err != nil {
		return err
	}
	s.reply(227, "Entering passive mode ="+encodeHostPort(ip, port))
	return nil
}

func (s *session) handlePORT(arg string) error {
	if err := s.enterActive(arg); err != nil {
		return err
	}
	s.reply(200, replyOK)
	return nil
}

func (s *session) handleRETR(arg string) error {
	p := s.resolvePath(arg)

	info, err := s.server.fs.Stat(p)
	if err != nil || info.IsDir() {
		s.reply(550, replyNoSuchFile)
		return nil
	}
	file, err := s.server.fs.Open(p)
	if err != nil {
		s.reply(550, replyNoSuchFile)
		return nil
	}
	defer file.Close()

	conn, err := s.acquireData()
	if err != nil {
		return err
	}
	defer s.releaseDataConn()

	s.reply(150, "Transferring file.")

	start := time.Now()
	n, err := s.copyData(conn, file, conn)
	duration := time.Since(start)

	if err != nil {
		s.logTransfer("RETR", p, n, duration, err)
		s.server.recordTransfer(TransferDownload, n, duration, false)
		s.reply(426, replyTransferAbort)
		return nil
	}

	s.logTransfer("RETR", p, n, duration, nil)
	s.server.recordTransfer(TransferDownload, n, duration, true)
	s.reply(226, replyTransferDone)
	return nil
}

func (s *session) handleSTOR(arg string) error {
	p := s.resolvePath(arg)
	if err := s.requireWrite(p); err != nil {
		return err
	}

	file, err := s.server.fs.Create(p)
	if err != nil {
		return err
	}
	defer file.Close()

	conn, err := s.acquireData()
	if err != nil {
		return err
	}
	defer s.releaseDataConn()

	s.reply(150, "Transferring file.")

	start := time.Now()
	n, err := s.copyData(file, conn, conn)
	duration := time.Since(start)

	if err != nil {
		// The partial file stays; the client can STOR again.
		s.logTransfer("STOR", p, n, duration, err)
		s.server.recordTransfer(TransferUpload, n, duration, false)
		s.reply(426, replyTransferAbort)
		return nil
	}

	s.logTransfer("STOR", p, n, duration, nil)
	s.server.recordTransfer(TransferUpload, n, duration, true)
	s.reply(226, replyTransferDone)
	return nil
}

// copyData moves bytes between the filesystem and the data connection in
// chunks, refreshing the data socket's deadline per chunk, counting each
// chunk as session activity, and honoring the bandwidth limiter when one is
// set.
func (s *session) copyData(dst io.Writer, src io.Reader, dconn net.Conn) (int64, error) {
	size := transferChunk
	if s.limiter != nil && s.limiter.Burst() < size {
		size = s.limiter.Burst()
	}
	buf := make([]byte, size)

	var total int64
	for {
		_ = dconn.SetDeadline(time.Now().Add(s.server.dataTimeout))

		n, rerr := src.Read(buf)
		if n > 0 {
			if s.limiter != nil {
				if err := s.limiter.WaitN(s.ctx, n); err != nil {
					return total, err
				}
			}
			w, werr := dst.Write(buf[:n])
			total += int64(w)
			s.touch()
			if werr != nil {
				return total, werr
			}
			if w < n {
				return total, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return total, nil
			}
			return total, rerr
		}
	}
}

func (s *session) logTransfer(op, path string, bytes int64, duration time.Duration, err error) {
	if err != nil {
		s.log.Warn("transfer_aborted",
			"user", s.username(),
			"operation", op,
			"path", path,
			"bytes", bytes,
			"error", err,
		)
		return
	}
	s.log.Info("transfer_complete",
		"user", s.username(),
		"operation", op,
		"path", path,
		"bytes", bytes,
		"duration_ms", duration.Milliseconds(),
	)
}
