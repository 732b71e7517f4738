package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterShortForm(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Register("felicia:mypassword"))

	cred, err := store.Authenticate("felicia", "mypassword")
	require.NoError(t, err)
	assert.Equal(t, "felicia", cred.Username)
	assert.Equal(t, NobodyUID, cred.UID)
	assert.Equal(t, NobodyGID, cred.GID)
	assert.Equal(t, "/", cred.Home)
}

func TestRegisterLongForm(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Register("root:toor:0:0:Super User:/:/bin/nologin"))

	cred, err := store.Authenticate("root", "toor")
	require.NoError(t, err)
	assert.Equal(t, 0, cred.UID)
	assert.Equal(t, 0, cred.GID)
	assert.Equal(t, "Super User", cred.Comment)
	assert.Equal(t, "/", cred.Home)
	assert.Equal(t, "/bin/nologin", cred.Shell)
}

func TestRegisterDigestedPassword(t *testing.T) {
	digest, err := HashPassword("hunter2")
	require.NoError(t, err)

	store := NewStore()
	require.NoError(t, store.Register("felicia:"+digest+":1001:100:Felicia:/home/felicia:/bin/sh"))

	cred, err := store.Authenticate("felicia", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "/home/felicia", cred.Home)

	_, err = store.Authenticate("felicia", "hunter3")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestRegisterMalformed(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"one field", "felicia"},
		{"three fields", "felicia:pass:extra"},
		{"six fields", "a:b:1:2:c:/home/a"},
		{"eight fields", "a:b:1:2:c:/home/a:/bin/sh:extra"},
		{"empty username short", ":pass"},
		{"empty username long", ":pass:1:2:c:/h:/bin/sh"},
		{"uid not a number", "a:b:ten:2:c:/h:/bin/sh"},
		{"gid not a number", "a:b:1:two:c:/h:/bin/sh"},
		{"negative uid", "a:b:-1:2:c:/h:/bin/sh"},
		{"signed gid", "a:b:1:+2:c:/h:/bin/sh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			err := store.Register(tt.spec)
			assert.ErrorIs(t, err, ErrMalformedCredential)
			assert.Zero(t, store.Len())
		})
	}
}

// Re-registering a username replaces the earlier record.
func TestRegisterLastWriteWins(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Register("felicia:first"))
	require.NoError(t, store.Register("felicia:second:0:0:Now Root:/:/bin/sh"))
	assert.Equal(t, 1, store.Len())

	_, err := store.Authenticate("felicia", "first")
	assert.ErrorIs(t, err, ErrBadCredentials)

	cred, err := store.Authenticate("felicia", "second")
	require.NoError(t, err)
	assert.Equal(t, 0, cred.UID)
}

// An unknown username and a wrong password must be indistinguishable to the
// caller.
func TestAuthenticateUniformFailure(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Register("felicia:mypassword"))

	_, unknownErr := store.Authenticate("nobody-here", "whatever")
	_, wrongErr := store.Authenticate("felicia", "wrong")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.ErrorIs(t, unknownErr, ErrBadCredentials)
	assert.ErrorIs(t, wrongErr, ErrBadCredentials)
}

func TestCanWrite(t *testing.T) {
	tests := []struct {
		name string
		cred Credential
		path string
		want bool
	}{
		{"root anywhere", Credential{UID: 0, GID: 0}, "/etc/passwd", true},
		{"wheel anywhere", Credential{UID: 1000, GID: 10}, "/srv/shared/file", true},
		{"users inside home", Credential{UID: 1001, GID: 100, Home: "/home/felicia"}, "/home/felicia/notes.txt", true},
		{"users home itself", Credential{UID: 1001, GID: 100, Home: "/home/felicia"}, "/home/felicia", true},
		{"users outside home", Credential{UID: 1001, GID: 100, Home: "/home/felicia"}, "/etc/passwd", false},
		{"users sibling prefix", Credential{UID: 1001, GID: 100, Home: "/home/f"}, "/home/foo", false},
		{"users home is root", Credential{UID: 1001, GID: 100, Home: "/"}, "/anywhere", true},
		{"nobody read-only", Credential{UID: NobodyUID, GID: NobodyGID, Home: "/"}, "/upload.bin", false},
		{"gid 0 alone does not write", Credential{UID: 1000, GID: 0}, "/etc/passwd", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cred.CanWrite(tt.path))
		})
	}
}

func TestAccess(t *testing.T) {
	root := Credential{UID: 0}
	nobody := Credential{UID: NobodyUID, GID: NobodyGID}

	assert.Equal(t, AllowWrite, root.Access("/etc/passwd"))
	assert.Equal(t, AllowRead, nobody.Access("/etc/passwd"))
	assert.Equal(t, "write", AllowWrite.String())
	assert.Equal(t, "read", AllowRead.String())
	assert.Equal(t, "deny", Deny.String())
}

func TestPrivileged(t *testing.T) {
	assert.True(t, (&Credential{UID: 0, GID: 1000}).Privileged())
	assert.True(t, (&Credential{UID: 1000, GID: 0}).Privileged())
	assert.False(t, (&Credential{UID: 1000, GID: 10}).Privileged())
	assert.False(t, (&Credential{UID: NobodyUID, GID: NobodyGID}).Privileged())
}
