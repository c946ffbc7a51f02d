package core

import "errors"

// Errors a SignalConnection reports from TrySend.
var (
	ErrClosed       = errors.New("connection closed")
	ErrBackpressure = errors.New("backpressure")
)
