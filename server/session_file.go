package server

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// resolvePath maps a client-supplied path onto the served tree: relative
// paths hang off the working directory, and cleaning keeps the result
// rooted, so ".." can never climb above "/". An empty argument means the
// working directory itself.
func (s *session) resolvePath(arg string) string {
	if arg == "" {
		return s.cwd
	}
	if strings.HasPrefix(arg, "/") {
		return path.Clean(arg)
	}
	return path.Join(s.cwd, arg)
}

// requireWrite returns ErrPermissionDenied unless the logged-in credential
// may modify p: uid 0 and gid 10 anywhere, gid 100 inside its home, nobody
// else.
func (s *session) requireWrite(p string) error {
	if s.cred == nil || !s.cred.CanWrite(p) {
		return ErrPermissionDenied
	}
	return nil
}

func (s *session) handleCWD(arg string) error {
	p := s.resolvePath(arg)
	info, err := s.server.fs.Stat(p)
	if err != nil || !info.IsDir() {
		s.reply(550, replyNoSuchDir)
		return nil
	}
	s.cwd = p
	s.reply(250, p)
	return nil
}

func (s *session) handleCDUP(string) error {
	return s.handleCWD("..")
}

func (s *session) handleLIST(arg string) error {
	return s.streamListing(arg, false)
}

func (s *session) handleNLST(arg string) error {
	return s.streamListing(arg, true)
}

// streamListing sends a directory over the data channel, either as bare
// names or as long-format lines.
func (s *session) streamListing(arg string, namesOnly bool) error {
	p := s.resolvePath(arg)

	entries, err := afero.ReadDir(s.server.fs, p)
	if err != nil {
		return err
	}

	conn, err := s.acquireData()
	if err != nil {
		return err
	}
	defer s.releaseDataConn()

	s.reply(150, p)

	now := time.Now()
	for _, entry := range entries {
		line := entry.Name()
		if !namesOnly {
			line = formatListEntry(entry, now)
		}
		if _, err := fmt.Fprintf(conn, "%s\r\n", line); err != nil {
			s.log.Warn("listing_aborted", "user", s.username(), "path", p, "error", err)
			s.reply(426, replyTransferAbort)
			return nil
		}
	}

	s.reply(226, "Directory list sent.")
	return nil
}

func (s *session) handleDELE(arg string) error {
	p := s.resolvePath(arg)
	if err := s.requireWrite(p); err != nil {
		return err
	}

	info, err := s.server.fs.Stat(p)
	if err != nil || info.IsDir() {
		s.reply(550, replyNoSuchFile)
		return nil
	}
	if err := s.server.fs.Remove(p); err != nil {
		s.reply(550, replyNoSuchFile)
		return nil
	}

	s.log.Info("file_deleted", "user", s.username(), "path", p)
	s.reply(250, replyOK)
	return nil
}

func (s *session) handleMKD(arg string) error {
	p := s.resolvePath(arg)
	if err := s.requireWrite(p); err != nil {
		return err
	}

	if err := s.server.fs.Mkdir(p, 0o755); err != nil {
		s.reply(550, "Failed to create directory.")
		return nil
	}

	s.log.Info("directory_created", "user", s.username(), "path", p)
	s.reply(250, fmt.Sprintf("\"%s\"", p))
	return nil
}

func (s *session) handleRMD(arg string) error {
	p := s.resolvePath(arg)
	if err := s.requireWrite(p); err != nil {
		return err
	}

	info, err := s.server.fs.Stat(p)
	if err != nil || !info.IsDir() {
		s.reply(550, "No such directory or directory not empty.")
		return nil
	}
	// Not every afero backend refuses to remove a populated directory,
	// so check emptiness here rather than relying on Remove.
	entries, err := afero.ReadDir(s.server.fs, p)
	if err != nil || len(entries) > 0 {
		s.reply(550, "No such directory or directory not empty.")
		return nil
	}
	if err := s.server.fs.Remove(p); err != nil {
		s.reply(550, "No such directory or directory not empty.")
		return nil
	}

	s.log.Info("directory_removed", "user", s.username(), "path", p)
	s.reply(250, replyOK)
	return nil
}

// handleRNFR stages the rename source. Dispatch clears the staging on any
// following verb except RNTO.
func (s *session) handleRNFR(arg string) error {
	p := s.resolvePath(arg)
	if err := s.requireWrite(p); err != nil {
		return err
	}
	if _, err := s.server.fs.Stat(p); err != nil {
		return err
	}

	s.renameFrom = p
	s.reply(350, "Ready for RNTO.")
	return nil
}

func (s *session) handleRNTO(arg string) error {
	if s.renameFrom == "" {
		s.reply(503, "RNFR required first.")
		return nil
	}

	src := s.renameFrom
	s.renameFrom = ""

	dst := s.resolvePath(arg)
	if err := s.requireWrite(dst); err != nil {
		return err
	}
	if err := s.server.fs.Rename(src, dst); err != nil {
		return err
	}

	s.log.Info("file_renamed", "user", s.username(), "from", src, "to", dst)
	s.reply(250, replyOK)
	return nil
}
