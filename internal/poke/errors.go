package poke

import "errors"

// Delivery failure taxonomy. The HTTP layer collapses all of these into one
// fixed failure response; they stay distinct for logging and the audit trail.
var (
	// ErrMalformedRequest means the request body could not be decoded.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrRoomNotFound means no joined or known room matched the target.
	ErrRoomNotFound = errors.New("room not found")

	// ErrJoinTimeout means a pending invite was not accepted within the
	// join-wait ceiling.
	ErrJoinTimeout = errors.New("timed out waiting to join room")

	// ErrAuthRejected means the inbound poke failed the room's auth gate.
	// Deliberately detail-free: callers must not reveal whether a token
	// exists.
	ErrAuthRejected = errors.New("incorrect authentication token")

	// ErrSendRejected means the send-allowed policy refused the room
	// (blocked, or over the member ceiling). Fails silently to callers.
	ErrSendRejected = errors.New("send rejected by policy")
)
