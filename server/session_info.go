package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func (s *session) handleSYST(string) error {
	s.reply(215, "UNIX Type: L8")
	return nil
}

func (s *session) handleFEAT(string) error {
	s.replyLines(211, []string{
		"Extensions supported:",
		"SIZE",
		"End.",
	})
	return nil
}

func (s *session) handleNOOP(string) error {
	s.reply(200, "Take your time. I'll wait.")
	return nil
}

// handleHELP lists the verb table, eight verbs per row.
func (s *session) handleHELP(string) error {
	lines := []string{"Commands supported:"}
	verbs := commandVerbs()
	for len(verbs) > 0 {
		row := verbs
		if len(row) > 8 {
			row = row[:8]
		}
		lines = append(lines, strings.Join(row, " "))
		verbs = verbs[len(row):]
	}
	lines = append(lines, "End.")
	s.replyLines(214, lines)
	return nil
}

func (s *session) handleOPTS(arg string) error {
	if strings.ToUpper(arg) == "UTF8 ON" {
		s.reply(200, "Always in UTF8 mode.")
		return nil
	}
	s.reply(501, "Unknown option.")
	return nil
}

func (s *session) handlePWD(string) error {
	s.reply(257, fmt.Sprintf("\"%s\"", s.cwd))
	return nil
}

// handleSTAT without an argument reports the server; with a path it stats
// the path on the control channel, 213 for a file and 211 for a directory.
func (s *session) handleSTAT(arg string) error {
	if arg == "" {
		s.replyLines(211, s.serverStatus())
		return nil
	}

	info, err := s.server.fs.Stat(s.resolvePath(arg))
	if err != nil {
		return err
	}
	if info.IsDir() {
		s.reply(211, arg)
	} else {
		s.reply(213, arg)
	}
	return nil
}

func (s *session) serverStatus() []string {
	now := time.Now()
	hostname, _ := os.Hostname()

	up := now.Sub(s.server.started)
	days := int(up.Hours()) / 24
	hours := int(up.Hours()) % 24
	mins := int(up.Minutes()) % 60

	return []string{
		s.server.banner,
		"Connected to: " + hostname,
		"System date: " + formatListTime(now, now),
		fmt.Sprintf("Uptime: %d days, %02d:%02d", days, hours, mins),
		"Logged in as: " + s.username(),
		fmt.Sprintf("TYPE: %s, FORM: Nonprint; STRUcture: File; transfer MODE: Stream", s.transferType),
		"End.",
	}
}

func (s *session) handleSIZE(arg string) error {
	info, err := s.server.fs.Stat(s.resolvePath(arg))
	if err != nil || info.IsDir() {
		s.reply(550, replyNoSuchFile)
		return nil
	}
	s.reply(213, strconv.FormatInt(info.Size(), 10))
	return nil
}
