package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/petrel-ftp/petrel/auth"
	"github.com/petrel-ftp/petrel/internal/ftptest"
)

// testCredentials builds the account fixtures shared by the integration
// tests, one per rung of the permission ladder:
//
//	root      uid 0   gid 0    privileged, writes anywhere
//	operator  uid 50  gid 10   wheel: writes anywhere, not privileged
//	felicia   uid 1001 gid 100 users: writes inside /felicia
//	guest     nobody           read-only
func testCredentials(t *testing.T) *auth.Store {
	t.Helper()
	store := auth.NewStore()
	for _, spec := range []string{
		"root:" + testDigest(t, "toor") + ":0:0:Super User:/:/bin/nologin",
		"operator:" + testDigest(t, "wheel") + ":50:10:Operator:/:/bin/nologin",
		"felicia:" + testDigest(t, "pass") + ":1001:100:Felicia:/felicia:/bin/nologin",
		"guest:guest",
	} {
		require.NoError(t, store.Register(spec))
	}
	return store
}

func testDigest(t *testing.T, password string) string {
	t.Helper()
	digest, err := auth.HashPassword(password)
	require.NoError(t, err)
	return digest
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer runs a server on an ephemeral loopback port with the test
// fixtures and returns it with its address. Later options override the
// fixture defaults, so tests can swap in their own store, filesystem or
// limits. The server is shut down when the test ends.
func startServer(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	base := []Option{
		WithCredentials(testCredentials(t)),
		WithFilesystem(afero.NewMemMapFs()),
		WithLogger(testLogger()),
		WithFailureDelay(0),
		WithPassivePorts(0, 0),
	}

	srv, err := NewServer(ln.Addr().String(), append(base, opts...)...)
	require.NoError(t, err)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, ErrServerClosed) {
			t.Logf("server stopped: %v", err)
		}
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return srv, ln.Addr().String()
}

// dial connects to addr and registers the connection for cleanup.
func dial(t *testing.T, addr string) *ftptest.Client {
	t.Helper()
	c, err := ftptest.Dial(addr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// dialFrom is dial with a chosen local IP, so tests can present distinct
// peers to the one-session-per-IP registry.
func dialFrom(t *testing.T, addr, localIP string) *ftptest.Client {
	t.Helper()
	c, err := ftptest.DialFrom(addr, localIP)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// login drives the USER/PASS exchange and requires it to succeed.
func login(t *testing.T, c *ftptest.Client, user, pass string) {
	t.Helper()
	code, msg, err := c.Login(user, pass)
	require.NoError(t, err)
	require.Equal(t, 230, code, "login reply: %s", msg)
}

// waitForSessions blocks until the registry holds exactly n sessions,
// bridging the gap between a closed socket and the server-side teardown.
func waitForSessions(t *testing.T, srv *Server, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return srv.reg.len() == n
	}, 5*time.Second, 10*time.Millisecond)
}
