package transport

import (
	"strconv"

	"github.com/rs/xid"
	"go.uber.org/atomic"
)

// MessageIdentifierCreator produces a unique string id per outbound
// operation.
type MessageIdentifierCreator interface {
	NextMessageID() string
}

// SequencingMessageIdentifierCreator issues "1", "2", "3", ... It is the
// default.
type SequencingMessageIdentifierCreator struct {
	seq atomic.Int64
}

func (c *SequencingMessageIdentifierCreator) NextMessageID() string {
	return strconv.FormatInt(c.seq.Inc(), 10)
}

// RandomMessageIdentifierCreator issues globally unique ids. Useful when
// several transports feed ids into a shared consumer.
type RandomMessageIdentifierCreator struct{}

func (RandomMessageIdentifierCreator) NextMessageID() string {
	return xid.New().String()
}
