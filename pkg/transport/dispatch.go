package transport

import (
	"github.com/jensneuse/abstractlogger"

	"github.com/kkpan11/graphql-ws-transport/pkg/protocol"
)

// processMessage runs on the serial task for every inbound text frame.
func (t *WebSocketTransport) processMessage(data []byte) {
	parsed, err := protocol.Parse(data)
	if err != nil {
		t.log.Debug("transport.processMessage", abstractlogger.Error(err))
		t.registry.BroadcastError(err)
		return
	}

	switch parsed.Type {
	case protocol.MessageTypeData, protocol.MessageTypeNext, protocol.MessageTypeError:
		if parsed.ID == "" {
			t.registry.BroadcastError(protocol.NewUnprocessedMessageError(data))
			return
		}
		switch {
		case parsed.Err != nil:
			t.registry.DispatchError(parsed.ID, parsed.Err)
		case parsed.Payload != nil:
			t.registry.Dispatch(parsed.ID, parsed.Payload)
		default:
			t.registry.DispatchError(parsed.ID, ErrNeitherErrorNorPayloadReceived)
		}

	case protocol.MessageTypeComplete:
		if parsed.ID == "" {
			t.registry.BroadcastError(protocol.NewUnprocessedMessageError(data))
			return
		}
		t.registry.CompleteIfOneShot(parsed.ID)

	case protocol.MessageTypeConnectionAck:
		t.acked.Store(true)
		t.drainQueue()

	case protocol.MessageTypeConnectionKeepAlive, protocol.MessageTypeStartAck, protocol.MessageTypePong:
		// these prove the socket is live
		t.drainQueue()

	case protocol.MessageTypePing:
		t.writePong()
		t.drainQueue()

	default:
		// echoes of outbound kinds
		t.registry.BroadcastError(protocol.NewUnprocessedMessageError(data))
	}
}

func (t *WebSocketTransport) writePong() {
	data, err := (&protocol.Message{Type: protocol.MessageTypePong}).Encode()
	if err != nil {
		return
	}
	// pong bypasses the queue, the server expects it regardless of ack
	t.socket.WriteText(data)
}
