// Package auth implements the in-memory credential store and the password
// digest scheme used by the Petrel FTP server.
//
// Credentials are registered from passwd-style strings before the server
// starts serving. Two forms are accepted: the short "user:password" form and
// the full 7-field "user:digest:uid:gid:comment:home:shell" form. The uid and
// gid drive the write-permission policy and the privilege gate for
// administrative SITE commands.
//
// Password digests use a salted SHA-256/AES-CBC construction with the "$5a$"
// prefix; stored values without that prefix are treated as cleartext and
// compared in constant time. HashPassword produces digests, VerifyPassword
// checks them, and SITE HASHPASS exposes HashPassword to logged-in users.
package auth
