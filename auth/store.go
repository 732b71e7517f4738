package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
)

// Defaults applied to short-form credentials, matching the "nobody" account
// convention.
const (
	NobodyUID   = 65534
	NobodyGID   = 65534
	DefaultHome = "/"
)

// Group IDs with meaning to the write-permission policy.
const (
	wheelGID = 10
	usersGID = 100
)

var (
	// ErrMalformedCredential is returned by Register for strings that are
	// neither the 2-field nor the 7-field passwd form.
	ErrMalformedCredential = errors.New("malformed credential")

	// ErrBadCredentials is returned for unknown users and wrong passwords
	// alike, so a caller probing the server cannot tell the two apart.
	ErrBadCredentials = errors.New("invalid username or password")
)

// decoyDigest is verified when the username is unknown so that failed logins
// take comparable time whether or not the account exists.
var decoyDigest = DigestPrefix +
	base64.StdEncoding.EncodeToString(make([]byte, saltLength)) + "$" +
	base64.StdEncoding.EncodeToString(make([]byte, 32))

// Credential is one user record, mirroring the seven fields of a passwd
// line. Digest holds either a $5a$ password digest or a cleartext password.
type Credential struct {
	Username string
	Digest   string
	UID      int
	GID      int
	Comment  string
	Home     string
	Shell    string
}

// Permission classifies what a credential may do to a path. Reads are always
// granted to authenticated sessions; Deny is only ever the answer for
// writes, so Permission returns AllowRead where a write would be refused.
type Permission int

const (
	Deny Permission = iota
	AllowRead
	AllowWrite
)

func (p Permission) String() string {
	switch p {
	case AllowRead:
		return "read"
	case AllowWrite:
		return "write"
	default:
		return "deny"
	}
}

// Store holds registered credentials in memory. Registration happens at
// startup; lookups are safe for concurrent use by the session goroutines.
type Store struct {
	mu    sync.RWMutex
	users map[string]*Credential
}

// NewStore returns an empty credential store.
func NewStore() *Store {
	return &Store{users: make(map[string]*Credential)}
}

// Register parses spec and adds it to the store. Registering a username that
// already exists replaces the earlier record.
func (s *Store) Register(spec string) error {
	cred, err := ParseCredential(spec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.users[cred.Username] = cred
	s.mu.Unlock()
	return nil
}

// Len reports the number of registered credentials.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Authenticate verifies username and password against the store. Unknown
// users and wrong passwords both return ErrBadCredentials.
func (s *Store) Authenticate(username, password string) (*Credential, error) {
	s.mu.RLock()
	cred, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		VerifyPassword(password, decoyDigest)
		return nil, ErrBadCredentials
	}
	if !VerifyPassword(password, cred.Digest) {
		return nil, ErrBadCredentials
	}
	return cred, nil
}

// ParseCredential parses a credential string without registering it. Two
// forms are accepted:
//
//	user:password
//	user:digest:uid:gid:comment:home:shell
//
// The short form fills in the nobody uid/gid and a home of "/". Anything
// with a different field count, an empty username, or a uid/gid that is not
// a non-negative integer is rejected with ErrMalformedCredential.
func ParseCredential(spec string) (*Credential, error) {
	fields := strings.Split(spec, ":")
	switch len(fields) {
	case 2:
		if fields[0] == "" {
			return nil, fmt.Errorf("%w: empty username", ErrMalformedCredential)
		}
		return &Credential{
			Username: fields[0],
			Digest:   fields[1],
			UID:      NobodyUID,
			GID:      NobodyGID,
			Home:     DefaultHome,
		}, nil
	case 7:
		if fields[0] == "" {
			return nil, fmt.Errorf("%w: empty username", ErrMalformedCredential)
		}
		uid, err := parseID(fields[2])
		if err != nil {
			return nil, fmt.Errorf("%w: uid %q", ErrMalformedCredential, fields[2])
		}
		gid, err := parseID(fields[3])
		if err != nil {
			return nil, fmt.Errorf("%w: gid %q", ErrMalformedCredential, fields[3])
		}
		return &Credential{
			Username: fields[0],
			Digest:   fields[1],
			UID:      uid,
			GID:      gid,
			Comment:  fields[4],
			Home:     normalizeHome(fields[5]),
			Shell:    fields[6],
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d fields", ErrMalformedCredential, len(fields))
	}
}

func parseID(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func normalizeHome(p string) string {
	if p == "" {
		return DefaultHome
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// CanWrite reports whether the credential may create, modify or delete the
// file at p, which must be an absolute server path. uid 0 writes anywhere,
// members of wheel (gid 10) write anywhere, members of users (gid 100) write
// inside their home directory, and everyone else is read-only.
func (c *Credential) CanWrite(p string) bool {
	switch {
	case c.UID == 0:
		return true
	case c.GID == wheelGID:
		return true
	case c.GID == usersGID:
		return withinDir(c.Home, p)
	default:
		return false
	}
}

// Access classifies p for the credential: AllowWrite where CanWrite holds,
// AllowRead otherwise. Reads are never refused for authenticated sessions.
func (c *Credential) Access(p string) Permission {
	if c.CanWrite(p) {
		return AllowWrite
	}
	return AllowRead
}

// Privileged reports whether the credential may run administrative SITE
// commands such as kick and shutdown.
func (c *Credential) Privileged() bool {
	return c.UID == 0 || c.GID == 0
}

// withinDir reports whether p is dir itself or a path inside it. Both sides
// are cleaned first so a prefix like "/home/f" does not match "/home/foo".
func withinDir(dir, p string) bool {
	dir = path.Clean(dir)
	p = path.Clean(p)
	if dir == "/" {
		return strings.HasPrefix(p, "/")
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}
