package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
)

// Message is a single outbound control or data frame before encoding.
type Message struct {
	ID      string
	Type    string
	Payload json.RawMessage
}

type envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes the message into the canonical {id?, type, payload?}
// JSON text frame.
func (m *Message) Encode() ([]byte, error) {
	if m.Type == "" {
		return nil, fmt.Errorf("encode message: missing type")
	}
	data, err := json.Marshal(envelope{
		ID:      m.ID,
		Type:    m.Type,
		Payload: m.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// ParsedMessage is the decoded form of an inbound text frame.
//
// Err carries a payload-level parse failure for frames whose envelope was
// otherwise well-formed, so the dispatcher can deliver it to the matching
// subscriber as a failure result.
type ParsedMessage struct {
	Type    string
	ID      string
	Payload json.RawMessage
	Err     error
}

// Parse decodes an inbound text frame. Frames without a recognizable type
// fail with an UnprocessedMessageError carrying the raw text; malformed
// payloads surface on ParsedMessage.Err.
func Parse(data []byte) (*ParsedMessage, error) {
	messageType, err := jsonparser.GetString(data, "type")
	if err != nil {
		if err == jsonparser.KeyPathNotFoundError {
			return nil, NewUnprocessedMessageError(data)
		}
		return nil, fmt.Errorf("parse message: %w", err)
	}

	switch messageType {
	case MessageTypeData, MessageTypeNext, MessageTypeError, MessageTypeComplete,
		MessageTypeConnectionAck, MessageTypeConnectionError, MessageTypeConnectionKeepAlive,
		MessageTypeStartAck, MessageTypePing, MessageTypePong,
		MessageTypeConnectionInit, MessageTypeConnectionTerminate,
		MessageTypeStart, MessageTypeStop, MessageTypeSubscribe:
	default:
		return nil, NewUnprocessedMessageError(data)
	}

	parsed := &ParsedMessage{
		Type: messageType,
	}

	if id, err := jsonparser.GetString(data, "id"); err == nil {
		parsed.ID = id
	}

	payload, dataType, _, err := jsonparser.Get(data, "payload")
	switch {
	case err == jsonparser.KeyPathNotFoundError || dataType == jsonparser.Null:
		// no payload
	case err != nil:
		parsed.Err = fmt.Errorf("parse message payload: %w", err)
	default:
		if dataType == jsonparser.String {
			// jsonparser strips the quotes off string values, re-wrap so the
			// payload stays valid JSON
			quoted, err := json.Marshal(string(payload))
			if err != nil {
				parsed.Err = fmt.Errorf("parse message payload: %w", err)
				break
			}
			payload = quoted
		}
		parsed.Payload = json.RawMessage(payload)
	}

	return parsed, nil
}
