package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
)

// DigestPrefix marks password digests produced by HashPassword. Stored
// passwords without it are treated as cleartext.
const DigestPrefix = "$5a$"

const (
	saltLength      = 16
	stretchedLength = 2 * aes.BlockSize
)

// HashPassword derives a salted digest of password suitable for storing in a
// credential record. The result has the form $5a$<base64 salt>$<base64
// digest>: a random 16-byte salt and the password key an AES-256-CBC pass
// (key SHA-256(salt||password), IV the salt itself) over a fixed 32-byte
// zero plaintext, and the digest is the SHA-256 of that ciphertext.
// Verification recomputes the digest from the salt, so the cleartext
// password is never stored.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	digest, err := computeDigest(salt, password)
	if err != nil {
		return "", err
	}
	return DigestPrefix +
		base64.StdEncoding.EncodeToString(salt) + "$" +
		base64.StdEncoding.EncodeToString(digest), nil
}

// VerifyPassword reports whether password matches stored. A stored value
// with the $5a$ prefix is decoded and the digest recomputed from its salt;
// anything else is compared as cleartext. Both comparisons are constant
// time, and malformed digests simply verify false.
func VerifyPassword(password, stored string) bool {
	if !strings.HasPrefix(stored, DigestPrefix) {
		return constantTimeEqual(password, stored)
	}
	rest := stored[len(DigestPrefix):]
	sep := strings.IndexByte(rest, '$')
	if sep < 0 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(rest[:sep])
	if err != nil || len(salt) != saltLength {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(rest[sep+1:])
	if err != nil {
		return false
	}
	got, err := computeDigest(salt, password)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

func computeDigest(salt []byte, password string) ([]byte, error) {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	block, err := aes.NewCipher(h.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	stretched := make([]byte, stretchedLength)
	cipher.NewCBCEncrypter(block, salt).CryptBlocks(stretched, make([]byte, stretchedLength))
	digest := sha256.Sum256(stretched)
	return digest[:], nil
}

// constantTimeEqual compares two strings without leaking where they differ
// or, via the usual length shortcut, how long the stored value is.
func constantTimeEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
