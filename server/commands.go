package server

import "slices"

// commandClass names what a verb does to the served tree. Write-class
// handlers consult the credential's permission policy for the affected
// path(s) through requireWrite; the other classes never mutate anything.
type commandClass int

const (
	classAccess commandClass = iota // login exchange and session end
	classInfo                       // replies built from session or file metadata
	classNav                        // working-directory movement
	classMode                       // transfer parameter bookkeeping
	classData                       // data-channel negotiation
	classRead                       // streams file or listing data out
	classWrite                      // mutates the served tree
	classSite                       // SITE administration
)

type handlerFunc func(*session, string) error

// commandDef is one row of the verb table. preAuth marks the few verbs a
// client may use before logging in; needsArg rejects bare verbs with a 501
// before the handler runs.
type commandDef struct {
	handler  handlerFunc
	class    commandClass
	preAuth  bool
	needsArg bool
}

// commandTable is the single dispatch point for the engine. Auth gating and
// argument presence are declared here and enforced centrally in dispatch,
// so individual handlers start from a known session state. Verbs absent
// from the table draw a 502.
//
// Populated in init to break the initialization cycle through handleHELP,
// which reads the table via commandVerbs.
var commandTable map[string]commandDef

func init() {
	commandTable = map[string]commandDef{
		// Access control
		"USER": {handler: (*session).handleUSER, class: classAccess, preAuth: true, needsArg: true},
		"PASS": {handler: (*session).handlePASS, class: classAccess, preAuth: true},
		"QUIT": {handler: (*session).handleQUIT, class: classAccess, preAuth: true},

		// Information
		"SYST": {handler: (*session).handleSYST, class: classInfo, preAuth: true},
		"FEAT": {handler: (*session).handleFEAT, class: classInfo, preAuth: true},
		"NOOP": {handler: (*session).handleNOOP, class: classInfo},
		"HELP": {handler: (*session).handleHELP, class: classInfo},
		"OPTS": {handler: (*session).handleOPTS, class: classInfo, needsArg: true},
		"PWD":  {handler: (*session).handlePWD, class: classInfo},
		"XPWD": {handler: (*session).handlePWD, class: classInfo},
		"STAT": {handler: (*session).handleSTAT, class: classInfo},
		"SIZE": {handler: (*session).handleSIZE, class: classInfo, needsArg: true},

		// Navigation
		"CWD":  {handler: (*session).handleCWD, class: classNav, needsArg: true},
		"XCWD": {handler: (*session).handleCWD, class: classNav, needsArg: true},
		"CDUP": {handler: (*session).handleCDUP, class: classNav},
		"XCUP": {handler: (*session).handleCDUP, class: classNav},

		// Transfer parameters
		"TYPE": {handler: (*session).handleTYPE, class: classMode, needsArg: true},
		"MODE": {handler: (*session).handleMODE, class: classMode, needsArg: true},
		"STRU": {handler: (*session).handleSTRU, class: classMode, needsArg: true},

		// Data channel negotiation
		"PASV": {handler: (*session).handlePASV, class: classData},
		"PORT": {handler: (*session).handlePORT, class: classData, needsArg: true},
		"EPSV": {handler: (*session).handleNotImplemented, class: classData},
		"EPRT": {handler: (*session).handleNotImplemented, class: classData},

		// Reads
		"LIST": {handler: (*session).handleLIST, class: classRead},
		"NLST": {handler: (*session).handleNLST, class: classRead},
		"RETR": {handler: (*session).handleRETR, class: classRead, needsArg: true},

		// Writes
		"STOR": {handler: (*session).handleSTOR, class: classWrite, needsArg: true},
		"DELE": {handler: (*session).handleDELE, class: classWrite, needsArg: true},
		"MKD":  {handler: (*session).handleMKD, class: classWrite, needsArg: true},
		"XMKD": {handler: (*session).handleMKD, class: classWrite, needsArg: true},
		"RMD":  {handler: (*session).handleRMD, class: classWrite, needsArg: true},
		"XRMD": {handler: (*session).handleRMD, class: classWrite, needsArg: true},
		"RNFR": {handler: (*session).handleRNFR, class: classWrite, needsArg: true},
		"RNTO": {handler: (*session).handleRNTO, class: classWrite, needsArg: true},

		// Administration
		"SITE": {handler: (*session).handleSITE, class: classSite, needsArg: true},
	}
}

// handleNotImplemented answers verbs the server recognizes but does not
// support, such as the extended address pair EPSV/EPRT.
func (s *session) handleNotImplemented(string) error {
	return ErrNotImplemented
}

// commandVerbs returns the verbs of the table sorted, for HELP.
func commandVerbs() []string {
	verbs := make([]string, 0, len(commandTable))
	for verb := range commandTable {
		verbs = append(verbs, verb)
	}
	slices.Sort(verbs)
	return verbs
}
