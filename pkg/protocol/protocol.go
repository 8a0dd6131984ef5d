// Package protocol implements the message codec for the two GraphQL
// WebSocket sub-protocols. It is pure: no I/O, no state.
package protocol

import (
	"fmt"
)

// Subprotocol selects one of the two supported GraphQL WebSocket
// sub-protocols, negotiated via the Sec-WebSocket-Protocol header.
type Subprotocol string

// websocket sub-protocol:
// https://github.com/apollographql/subscriptions-transport-ws/blob/master/PROTOCOL.md
const (
	SubprotocolGraphQLWS Subprotocol = "graphql-ws"
)

// websocket sub-protocol:
// https://github.com/enisdenjo/graphql-ws/blob/master/PROTOCOL.md
const (
	SubprotocolGraphQLTWS Subprotocol = "graphql-transport-ws"
)

// ParseSubprotocol validates a sub-protocol name. Anything other than the
// two supported sub-protocols yields an InvalidWsSubprotocolError.
func ParseSubprotocol(name string) (Subprotocol, error) {
	switch Subprotocol(name) {
	case SubprotocolGraphQLWS:
		return SubprotocolGraphQLWS, nil
	case SubprotocolGraphQLTWS:
		return SubprotocolGraphQLTWS, nil
	default:
		return "", NewInvalidWsSubprotocolError(name)
	}
}

// client -> server
const (
	MessageTypeConnectionInit      = "connection_init"
	MessageTypeConnectionTerminate = "connection_terminate"
	MessageTypeStart               = "start"
	MessageTypeStop                = "stop"
	MessageTypeSubscribe           = "subscribe"
)

// server -> client
const (
	MessageTypeConnectionAck       = "connection_ack"
	MessageTypeConnectionError     = "connection_error"
	MessageTypeConnectionKeepAlive = "ka"
	MessageTypeStartAck            = "start_ack"
	MessageTypeData                = "data"
	MessageTypeNext                = "next"
	MessageTypeError               = "error"
	MessageTypeComplete            = "complete"
)

// bidirectional, graphql-transport-ws only
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// StartMessageType returns the message type that begins an operation under
// the given sub-protocol.
func StartMessageType(sub Subprotocol) (string, error) {
	switch sub {
	case SubprotocolGraphQLWS:
		return MessageTypeStart, nil
	case SubprotocolGraphQLTWS:
		return MessageTypeSubscribe, nil
	default:
		return "", NewInvalidWsSubprotocolError(string(sub))
	}
}

// StopMessageType returns the message type that ends an operation under the
// given sub-protocol.
func StopMessageType(sub Subprotocol) (string, error) {
	switch sub {
	case SubprotocolGraphQLWS:
		return MessageTypeStop, nil
	case SubprotocolGraphQLTWS:
		return MessageTypeComplete, nil
	default:
		return "", NewInvalidWsSubprotocolError(string(sub))
	}
}

// InvalidWsSubprotocolError is returned when a transport is constructed
// with, or asked to send under, an unsupported sub-protocol.
type InvalidWsSubprotocolError struct {
	InvalidProtocol string
}

func (e InvalidWsSubprotocolError) Error() string {
	return fmt.Sprintf("provided websocket subprotocol '%s' is not supported. The supported subprotocols are graphql-ws and graphql-transport-ws. Please configure your subscriptions with the mentioned subprotocols", e.InvalidProtocol)
}

func NewInvalidWsSubprotocolError(invalidProtocol string) InvalidWsSubprotocolError {
	return InvalidWsSubprotocolError{
		InvalidProtocol: invalidProtocol,
	}
}
