package server

// Reply texts shared between handlers. Single-use texts stay inline at their
// call sites; these are the ones several handlers need to agree on.
const (
	replyOK             = "OK."
	replyNoAccess       = "No access."
	replyNoSuchFile     = "No such file."
	replyNoSuchDir      = "No such directory."
	replyNotImplemented = "Command not implemented."
	replyTooManyConns   = "Too many connections."
	replyShuttingDown   = "Server is shutting down. Try again later."
	replyNoDataConn     = "Could not open data connection."
	replyTransferAbort  = "Data connection closed. Transfer aborted."
	replyTransferDone   = "Transfer finished."
	replyNotLoggedIn    = "Please log in with USER and PASS."
	replyLocalError     = "Requested action aborted: local error in processing."
)
