package transport

import (
	"encoding/json"
)

// OperationType classifies a GraphQL operation. Subscriptions are
// long-lived and replayed after reconnects; queries and mutations are
// one-shot.
type OperationType int

const (
	OperationTypeQuery OperationType = iota
	OperationTypeMutation
	OperationTypeSubscription
)

// Operation is a single GraphQL operation to run over the transport.
type Operation struct {
	Query         string
	OperationName string
	Variables     json.RawMessage
	Extensions    json.RawMessage
	Type          OperationType
}

// RequestBodyCreator shapes the GraphQL request JSON for an operation.
type RequestBodyCreator interface {
	RequestBody(operation *Operation) ([]byte, error)
}

type requestBody struct {
	Query         string          `json:"query"`
	OperationName string          `json:"operationName,omitempty"`
	Variables     json.RawMessage `json:"variables,omitempty"`
	Extensions    json.RawMessage `json:"extensions,omitempty"`
}

// DefaultRequestBodyCreator always sends the full query document.
// Automatic persisted queries are never negotiated over this transport.
type DefaultRequestBodyCreator struct{}

func (DefaultRequestBodyCreator) RequestBody(operation *Operation) ([]byte, error) {
	return json.Marshal(requestBody{
		Query:         operation.Query,
		OperationName: operation.OperationName,
		Variables:     operation.Variables,
		Extensions:    operation.Extensions,
	})
}
