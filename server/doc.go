// Package server implements the Petrel FTP engine: the per-connection
// command state machine, the passive/active data-channel negotiator, and the
// session registry.
//
// # Overview
//
// The server is built for small hosts. Each control connection runs in its
// own goroutine as a sequential state machine: read a line, dispatch the
// verb, write exactly one reply, repeat until QUIT, idle timeout, or a fatal
// control-socket error. One session is admitted per client IP, and the total
// session count is capped.
//
// File access goes through an afero.Fs, so the served tree can be a real
// directory (afero.NewBasePathFs) or an in-memory filesystem in tests.
// Credentials and write permissions come from an auth.Store built before the
// server starts.
//
// # Getting started
//
//	creds := auth.NewStore()
//	if err := creds.Register("felicia:friday"); err != nil {
//	    log.Fatal(err)
//	}
//
//	fs := afero.NewBasePathFs(afero.NewOsFs(), "/srv/ftp")
//	s, err := server.NewServer(":2121",
//	    server.WithCredentials(creds),
//	    server.WithFilesystem(fs),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(s.ListenAndServe())
//
// For graceful shutdown, run ListenAndServe in a goroutine and call
// Shutdown(ctx) from another.
//
// # Command set
//
// The verb table covers the practical RFC 959 subset (USER, PASS, QUIT,
// SYST, FEAT, NOOP, HELP, OPTS, PWD, STAT, SIZE, CWD, CDUP, TYPE, MODE,
// STRU, PASV, PORT, LIST, NLST, RETR, STOR, DELE, MKD, RMD, RNFR, RNTO)
// plus SITE administration: DF, FREE, GC, WHO, HASHPASS, KICK and SHUTDOWN.
// EPSV and EPRT are recognized but answered with 502. Transfers are always
// binary; TYPE A is accepted and ignored.
//
// Before login only USER, PASS, QUIT, SYST and FEAT are accepted. Write
// commands additionally consult the credential's permission policy (uid 0
// and gid 10 write anywhere, gid 100 writes inside its home directory,
// everyone else is read-only), and SITE KICK/SHUTDOWN require uid 0 or
// gid 0.
//
// # Passive mode
//
// PASV allocates ports from a shared, serialized pool (default 49152-49407)
// so concurrent sessions never advertise the same port. Behind NAT, set
// WithPublicHost to control the address in the 227 reply.
package server
