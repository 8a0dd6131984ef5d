package transport

import (
	"errors"
	"fmt"
)

// ErrNeitherErrorNorPayloadReceived is delivered to a subscriber when a
// well-formed result frame for its id carries neither payload nor error.
var ErrNeitherErrorNorPayloadReceived = errors.New("neither error nor payload received")

// NetworkError wraps a socket-level disconnect error. It is broadcast to
// all subscribers and retained as the transport's sticky error until the
// next successful connect.
type NetworkError struct {
	Inner error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("websocket network error: %v", e.Inner)
}

func (e *NetworkError) Unwrap() error {
	return e.Inner
}
