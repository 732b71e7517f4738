package server

import (
	"fmt"
	"slices"
	"strings"

	"github.com/petrel-ftp/petrel/auth"
)

// handleSITE fans out to the administration subcommands. DF, FREE, GC, WHO
// and HASHPASS are open to any logged-in user; KICK and SHUTDOWN demand a
// privileged credential (uid 0 or gid 0) and refuse with no side effects
// otherwise.
func (s *session) handleSITE(arg string) error {
	sub, rest, _ := strings.Cut(arg, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(sub) {
	case "df":
		return s.siteDF()
	case "free":
		return s.siteFree()
	case "gc":
		return s.siteGC()
	case "who":
		return s.siteWho()
	case "hashpass":
		return s.siteHashpass(rest)
	case "kick":
		return s.siteKick(rest)
	case "shutdown":
		return s.siteShutdown(rest)
	default:
		s.reply(502, "SITE command not implemented.")
		return nil
	}
}

// siteDF reports space on the filesystem holding the served tree, df-style.
func (s *session) siteDF() error {
	u, err := s.server.host.DiskUsage(s.server.diskPath)
	if err != nil {
		return err
	}
	s.replyLines(211, []string{
		"Filesystem      Size      Used     Avail   Use%",
		fmt.Sprintf("%-10s %8dK %8dK %8dK   %3d%%",
			s.server.diskPath, u.Size/1024, u.Used/1024, u.Avail/1024, u.UsedPercent()),
		"End.",
	})
	return nil
}

// siteFree reports the process heap in the same tabular shape as DF.
func (s *session) siteFree() error {
	m := s.server.host.MemoryUsage()
	s.replyLines(211, []string{
		"Memory          Size      Used     Avail   Use%",
		fmt.Sprintf("%-10s %8dK %8dK %8dK   %3d%%",
			"heap", m.Size/1024, m.Used/1024, m.Avail/1024, m.UsedPercent()),
		"End.",
	})
	return nil
}

// siteGC forces a collection cycle and reports the free heap afterwards.
func (s *session) siteGC() error {
	freed := s.server.host.Reclaim()
	avail := s.server.host.MemoryUsage().Avail
	s.log.Debug("heap_reclaimed", "user", s.username(), "freed_bytes", freed)
	s.reply(211, fmt.Sprintf("Garbage collected. %d bytes free.", avail))
	return nil
}

// siteWho lists the live sessions: peer address, login, and idle time.
func (s *session) siteWho() error {
	sessions := s.server.reg.snapshot()

	rows := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		user := sess.username()
		if user == "" {
			user = "-"
		}
		rows = append(rows, fmt.Sprintf("%-15s  %-12s  %4ds idle",
			sess.remoteIP, user, int(sess.idle().Seconds())))
	}
	slices.Sort(rows)

	lines := append([]string{"Connected sessions:"}, rows...)
	lines = append(lines, "End.")
	s.replyLines(211, lines)
	return nil
}

// siteHashpass turns a password into a digest ready to paste into a
// credential entry. The password is everything after the subcommand, so it
// may contain spaces.
func (s *session) siteHashpass(password string) error {
	if password == "" {
		s.reply(501, "Usage: SITE HASHPASS <password>")
		return nil
	}
	digest, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	s.reply(211, digest)
	return nil
}

// siteKick disconnects the session held by an IP address. The reply goes
// out before the sockets close so that kicking your own address still
// answers.
func (s *session) siteKick(ip string) error {
	if !s.cred.Privileged() {
		return ErrPermissionDenied
	}
	if ip == "" {
		s.reply(501, "Usage: SITE KICK <ip>")
		return nil
	}

	victim, ok := s.server.reg.get(ip)
	if !ok {
		s.reply(501, "No such session.")
		return nil
	}

	s.log.Warn("session_kicked", "user", s.username(), "target_ip", ip)
	s.reply(211, "Kicked "+ip+".")
	victim.kick()
	return nil
}

// siteShutdown flags the registry so new logins are refused for everyone
// but uid 0, flushes filesystems, and with -h or -r delegates the halt or
// restart to the host hooks. Sessions already connected stay up.
func (s *session) siteShutdown(flag string) error {
	if !s.cred.Privileged() {
		return ErrPermissionDenied
	}

	var notice string
	switch flag {
	case "":
		notice = "Shutdown requested. New logins disabled."
	case "-h":
		notice = "Shutdown requested. Halting."
	case "-r":
		notice = "Shutdown requested. Restarting."
	default:
		s.reply(501, "Usage: SITE SHUTDOWN [-h|-r]")
		return nil
	}

	s.server.reg.requestShutdown()
	s.server.host.Sync()
	s.log.Warn("shutdown_requested", "user", s.username(), "flag", flag)
	s.reply(211, notice)

	switch flag {
	case "-h":
		s.server.host.Halt()
	case "-r":
		s.server.host.Restart()
	}
	return nil
}
