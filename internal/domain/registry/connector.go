package registry

import "github.com/google/uuid"

// Connector is one live socket of a user. The concrete implementation lives
// in the transport layer; the registry only routes bytes at it.
type Connector interface {
	ID() uuid.UUID
	UserID() int32
	// Send enqueues an encoded frame without blocking. False means the
	// outbound buffer is saturated or the session is closed.
	Send(payload []byte) bool
	// Close terminates the session and releases its resources.
	Close()
}
