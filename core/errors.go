package core

import "errors"

// Call-boundary failures. Reply recovers these into the error text of a
// ReturnEvent; they never escape an agent call.
var (
	ErrUnknownAgent      = errors.New("unknown agent")
	ErrTransportFailure  = errors.New("transport failure")
	ErrAnswerFailure     = errors.New("answer failure")
	ErrUnknownProtocol   = errors.New("unknown protocol")
	ErrCallDepthExceeded = errors.New("call depth exceeded")
)

// Structural failures. These surface immediately at the enclosing boundary:
// an HTTP 400, a rejected request or a failed startup.
var (
	ErrBadRequest            = errors.New("bad request")
	ErrProtocolMismatch      = errors.New("protocol mismatch")
	ErrMissingKey            = errors.New("missing key")
	ErrUnknownImplementation = errors.New("unknown implementation")
	ErrDuplicateAgent        = errors.New("duplicate agent")
	ErrCycle                 = errors.New("cyclic agent graph")
	ErrInvalidEvent          = errors.New("invalid event")
)
