package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-ftp/petrel/auth"
	"github.com/petrel-ftp/petrel/internal/config"
)

// runCommand executes the CLI with args and returns its stdout. The flag
// variables are package state shared across invocations, so they are reset
// when the test ends. Tests using this must not run in parallel.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = ""
		initForce = false
		versionShort = false
	})

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	return buf.String(), execErr
}

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petrel.yaml")

	out, err := runCommand(t, "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	def := config.Default()
	assert.Equal(t, def.Server.Port, cfg.Server.Port)
	assert.Equal(t, def.Root, cfg.Root)
	assert.Equal(t, def.Server.Banner, cfg.Server.Banner)

	// A second init must not clobber the file.
	_, err = runCommand(t, "--config", path, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCommand(t, "--config", path, "init", "--force")
	require.NoError(t, err)
}

func TestHashpassArgument(t *testing.T) {
	out, err := runCommand(t, "hashpass", "hunter2")
	require.NoError(t, err)

	digest := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(digest, auth.DigestPrefix), digest)
	assert.True(t, auth.VerifyPassword("hunter2", digest))
	assert.False(t, auth.VerifyPassword("wrong", digest))
}

func TestHashpassRejectsEmpty(t *testing.T) {
	_, err := runCommand(t, "hashpass", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestUsersListsAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petrel.yaml")

	cfg := config.Default()
	cfg.Auth.Credentials = []string{
		"felicia:$5a$0123456789abcdef$deadbeef:1001:100:Felicia:/felicia:/bin/nologin",
		"guest:guest",
	}
	require.NoError(t, config.Save(cfg, path))

	out, err := runCommand(t, "--config", path, "users")
	require.NoError(t, err)

	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "felicia")
	assert.Contains(t, out, "1001")
	assert.Contains(t, out, "/felicia")
	assert.Contains(t, out, "guest")
	assert.Contains(t, out, "65534")
	assert.NotContains(t, out, "$5a$", "digests must never be printed")
}

func TestUsersEmptyConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petrel.yaml")
	require.NoError(t, config.Save(config.Default(), path))

	out, err := runCommand(t, "--config", path, "users")
	require.NoError(t, err)
	assert.Contains(t, out, "No credentials configured.")
}

func TestUsersMalformedEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petrel.yaml")

	cfg := config.Default()
	cfg.Auth.Credentials = []string{"only:five:fields:in:this"}
	require.NoError(t, config.Save(cfg, path))

	_, err := runCommand(t, "--config", path, "users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.credentials[0]")
}

func TestVersionOutput(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "petreld "+Version)
	assert.Contains(t, out, "Go version")

	out, err = runCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestSubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "hashpass", "users", "init", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
