package server

import (
	"fmt"
	"net/textproto"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-ftp/petrel/internal/ftptest"
)

// TestServerIntegration drives one session through the whole verb surface:
// navigation, upload, download, listings, metadata, rename and removal.
func TestServerIntegration(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	_, addr := startServer(t, WithFilesystem(fs), WithBanner("petrel test"))

	c := dial(t, addr)
	code, msg := c.Greeting()
	require.Equal(t, 220, code)
	require.Equal(t, "petrel test", msg)

	login(t, c, "root", "toor")

	testNavigation(t, c)
	testUploadDownload(t, c, fs)
	testListings(t, c)
	testMetadata(t, c)
	testRename(t, c)
	testRemoval(t, c, fs)

	require.NoError(t, c.Quit())
}

func testNavigation(t *testing.T, c *ftptest.Client) {
	code, msg, err := c.Cmd("PWD")
	require.NoError(t, err)
	assert.Equal(t, 257, code)
	assert.Equal(t, `"/"`, msg)

	code, msg, err = c.Cmd("MKD /inbox")
	require.NoError(t, err)
	assert.Equal(t, 250, code)
	assert.Equal(t, `"/inbox"`, msg)

	code, msg, err = c.Cmd("CWD /inbox")
	require.NoError(t, err)
	assert.Equal(t, 250, code)
	assert.Equal(t, "/inbox", msg)

	code, msg, err = c.Cmd("PWD")
	require.NoError(t, err)
	assert.Equal(t, 257, code)
	assert.Equal(t, `"/inbox"`, msg)

	// CDUP from the root stays at the root.
	code, _, err = c.Cmd("CDUP")
	require.NoError(t, err)
	assert.Equal(t, 250, code)
	code, _, err = c.Cmd("CDUP")
	require.NoError(t, err)
	assert.Equal(t, 250, code)

	code, msg, err = c.Cmd("PWD")
	require.NoError(t, err)
	assert.Equal(t, 257, code)
	assert.Equal(t, `"/"`, msg)

	code, msg, err = c.Cmd("CWD /missing")
	require.NoError(t, err)
	assert.Equal(t, 550, code)
	assert.Equal(t, "No such directory.", msg)
}

func testUploadDownload(t *testing.T, c *ftptest.Client, fs afero.Fs) {
	content := []byte("Hello, FTP World!")

	require.NoError(t, c.Upload("/inbox/hello.txt", content))

	onDisk, err := afero.ReadFile(fs, "/inbox/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, content, onDisk)

	back, err := c.Download("/inbox/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, content, back)

	// Relative paths resolve against the working directory.
	code, _, err := c.Cmd("CWD /inbox")
	require.NoError(t, err)
	require.Equal(t, 250, code)

	back, err = c.Download("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, content, back)

	// Overwrites replace the previous content.
	require.NoError(t, c.Upload("hello.txt", []byte("rewritten")))
	back, err = c.Download("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("rewritten"), back)

	require.NoError(t, c.Upload("hello.txt", content))

	_, err = c.Download("nobody-home.txt")
	assertReplyCode(t, err, 550)
}

func testListings(t *testing.T, c *ftptest.Client) {
	data, err := c.List("/inbox")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\r\n")
	require.Len(t, lines, 1)
	line := lines[0]
	assert.True(t, strings.HasPrefix(line, "-rw-r--r--  1  root  root"), "unexpected listing line: %q", line)
	assert.Contains(t, line, fmt.Sprintf("%10d", len("Hello, FTP World!")))
	assert.True(t, strings.HasSuffix(line, "  hello.txt"), "unexpected listing line: %q", line)

	names, err := c.Nlst("/inbox")
	require.NoError(t, err)
	assert.Equal(t, "hello.txt\r\n", string(names))

	// A directory entry lists with a trailing slash and zero size.
	data, err = c.List("/")
	require.NoError(t, err)
	assert.Contains(t, string(data), "drwxr-xr-x")
	assert.Contains(t, string(data), "inbox/")

	_, err = c.List("/missing")
	assertReplyCode(t, err, 550)
}

func testMetadata(t *testing.T, c *ftptest.Client) {
	code, msg, err := c.Cmd("SIZE /inbox/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, 213, code)
	assert.Equal(t, "17", msg)

	code, msg, err = c.Cmd("SIZE /inbox")
	require.NoError(t, err)
	assert.Equal(t, 550, code)
	assert.Equal(t, "No such file.", msg)

	code, _, err = c.Cmd("STAT /inbox/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, 213, code)

	code, _, err = c.Cmd("STAT /inbox")
	require.NoError(t, err)
	assert.Equal(t, 211, code)
}

func testRename(t *testing.T, c *ftptest.Client) {
	code, msg, err := c.Cmd("RNFR /inbox/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, 350, code)
	assert.Equal(t, "Ready for RNTO.", msg)

	code, _, err = c.Cmd("RNTO /inbox/renamed.txt")
	require.NoError(t, err)
	assert.Equal(t, 250, code)

	back, err := c.Download("/inbox/renamed.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello, FTP World!", string(back))

	// RNTO without a pending RNFR is a sequence error.
	code, msg, err = c.Cmd("RNTO /inbox/again.txt")
	require.NoError(t, err)
	assert.Equal(t, 503, code)
	assert.Equal(t, "RNFR required first.", msg)

	// Any verb between RNFR and RNTO abandons the staged source.
	code, _, err = c.Cmd("RNFR /inbox/renamed.txt")
	require.NoError(t, err)
	require.Equal(t, 350, code)
	code, _, err = c.Cmd("NOOP")
	require.NoError(t, err)
	require.Equal(t, 200, code)
	code, _, err = c.Cmd("RNTO /inbox/too-late.txt")
	require.NoError(t, err)
	assert.Equal(t, 503, code)

	code, _, err = c.Cmd("RNFR /inbox/missing.txt")
	require.NoError(t, err)
	assert.Equal(t, 550, code)
}

func testRemoval(t *testing.T, c *ftptest.Client, fs afero.Fs) {
	// RMD refuses a directory that still has content.
	code, msg, err := c.Cmd("RMD /inbox")
	require.NoError(t, err)
	assert.Equal(t, 550, code)
	assert.Equal(t, "No such directory or directory not empty.", msg)

	code, _, err = c.Cmd("DELE /inbox/renamed.txt")
	require.NoError(t, err)
	assert.Equal(t, 250, code)

	_, err = fs.Stat("/inbox/renamed.txt")
	assert.Error(t, err)

	code, msg, err = c.Cmd("DELE /inbox/renamed.txt")
	require.NoError(t, err)
	assert.Equal(t, 550, code)
	assert.Equal(t, "No such file.", msg)

	// DELE refuses directories; RMD is the verb for those.
	code, _, err = c.Cmd("DELE /inbox")
	require.NoError(t, err)
	assert.Equal(t, 550, code)

	code, _, err = c.Cmd("RMD /inbox")
	require.NoError(t, err)
	assert.Equal(t, 250, code)

	_, err = fs.Stat("/inbox")
	assert.Error(t, err)
}

// assertReplyCode unwraps the textproto error a helper returns when the
// server answers with an unexpected code.
func assertReplyCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var perr *textproto.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, code, perr.Code)
}
