package protocol

import (
	"fmt"
)

// UnprocessedMessageError is returned when an inbound frame cannot be
// mapped to a known message kind. It retains the raw frame text.
type UnprocessedMessageError struct {
	Raw []byte
}

func (e *UnprocessedMessageError) Error() string {
	return fmt.Sprintf("unprocessed message: %s", e.Raw)
}

func NewUnprocessedMessageError(raw []byte) *UnprocessedMessageError {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &UnprocessedMessageError{Raw: cp}
}
