package server

import "time"

// handleUSER records the claimed name and asks for the password. Issued
// mid-session it restarts the login exchange, dropping the current
// identity.
func (s *session) handleUSER(user string) error {
	s.pendingUser = user
	s.cred = nil
	s.state = stateNameGiven
	s.reply(331, "Password required for "+user+".")
	return nil
}

// handlePASS finishes the login exchange. Failures are indistinguishable on
// the wire whether the username or the password was wrong, each one costs
// the client the failure delay, and an IP that keeps failing is cut off.
// Once shutdown has been requested, only uid 0 may still log in.
func (s *session) handlePASS(pass string) error {
	if s.state != stateNameGiven {
		s.reply(503, "Login with USER first.")
		return nil
	}

	user := s.pendingUser
	s.pendingUser = ""

	cred, err := s.server.creds.Authenticate(user, pass)

	if s.server.reg.shuttingDown() && (err != nil || cred.UID != 0) {
		s.log.Warn("login_rejected_shutdown", "user", user)
		s.state = stateUnauthenticated
		s.closing = true
		return ErrShuttingDown
	}

	if err != nil {
		s.state = stateUnauthenticated
		s.server.recordAuthentication(false)
		s.log.Warn("authentication_failed", "user", user, "reason", err.Error())

		if d := s.server.failureDelay; d > 0 {
			time.Sleep(d)
		}
		if s.server.throttle.Failure(s.remoteIP) {
			s.log.Warn("login_throttled", "user", user)
			s.closing = true
			s.reply(421, "Too many failed logins. Bye.")
			return nil
		}

		s.reply(430, "Invalid username or password.")
		return nil
	}

	s.cred = cred
	s.state = stateAuthenticated
	s.cwd = "/"
	s.server.throttle.Success(s.remoteIP)
	s.server.recordAuthentication(true)
	s.log.Info("authentication_success", "user", cred.Username, "uid", cred.UID, "gid", cred.GID)

	s.reply(230, "Login successful.")
	return nil
}

// handleQUIT says goodbye and ends the session.
func (s *session) handleQUIT(string) error {
	if s.cred != nil {
		s.reply(221, "Bye, "+s.cred.Username+".")
	} else {
		s.reply(221, "Bye.")
	}
	s.closing = true
	return nil
}
