//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=../mocks/mock_core.go -package=mocks
package core

// SessionID identifies one signaling connection for its whole lifetime.
type SessionID string

// Frame is a raw text payload written to or read from a connection.
type Frame []byte

// SignalConnection is the write side of a participant's transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues a frame without blocking. It fails when the
	// connection is closed or its outbound buffer is full.
	TrySend(Frame) error
	IsOpen() bool
	Close()
}

// Transport is a full-duplex connection handed to the hub by an adapter.
type Transport interface {
	SignalConnection
	// Receive blocks until the next inbound frame or a transport error.
	Receive() (Frame, error)
	// Reject closes the connection with a policy-violation reason.
	Reject(reason string)
}
