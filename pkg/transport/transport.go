// Package transport multiplexes GraphQL operations onto a single
// WebSocket connection under one of the two GraphQL sub-protocols,
// managing the handshake, per-operation result delivery, pre-ack message
// staging and reconnection with subscription replay.
package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jensneuse/abstractlogger"
	"go.uber.org/atomic"

	"github.com/kkpan11/graphql-ws-transport/pkg/protocol"
	"github.com/kkpan11/graphql-ws-transport/pkg/queue"
	"github.com/kkpan11/graphql-ws-transport/pkg/registry"
	"github.com/kkpan11/graphql-ws-transport/pkg/websocket"
)

const (
	stateDisconnected int32 = iota
	stateConnected
	stateFailed
)

const (
	headerClientName    = "apollographql-client-name"
	headerClientVersion = "apollographql-client-version"

	pauseDisconnectTimeout = 2 * time.Second

	processingQueueSize = 128
)

// WebSocketTransport runs many GraphQL operations over one WebSocket
// connection. All mutating work executes on a single serial task; the
// facade methods post onto it and may return before the work ran.
//
// State readable from any goroutine (connection state, ack flag, sticky
// error, reconnect configuration) is held in atomics.
type WebSocketTransport struct {
	socket      websocket.Client
	subprotocol protocol.Subprotocol
	log         abstractlogger.Logger

	bodyCreator RequestBodyCreator
	idCreator   MessageIdentifierCreator
	delegate    Delegate

	state       atomic.Int32
	acked       atomic.Bool
	reconnected atomic.Bool
	reconnect   atomic.Bool
	lastError   atomic.Error

	queue    *queue.MessageQueue
	registry *registry.Registry

	processing chan func()
	done       chan struct{}
	closeOnce  sync.Once

	// accessed on the serial task only
	restoreReconnect    bool
	hasRestoreReconnect bool
	connectingPayload   json.RawMessage
	clientName          string
	clientVersion       string

	reconnectionInterval   time.Duration
	allowSendingDuplicates bool
}

// New creates a transport on top of the given socket client. The
// sub-protocol is fixed at construction; unsupported values fail with an
// InvalidWsSubprotocolError. Unless disabled via WithConnectOnInit, the
// socket connect is initiated before New returns.
func New(socket websocket.Client, subprotocol protocol.Subprotocol, options ...Options) (*WebSocketTransport, error) {
	if _, err := protocol.ParseSubprotocol(string(subprotocol)); err != nil {
		return nil, err
	}

	op := defaultOpts()
	for _, option := range options {
		option(op)
	}

	t := &WebSocketTransport{
		socket:                 socket,
		subprotocol:            subprotocol,
		log:                    op.log,
		bodyCreator:            op.bodyCreator,
		idCreator:              op.idCreator,
		delegate:               op.delegate,
		queue:                  queue.NewMessageQueue(),
		registry:               registry.New(),
		processing:             make(chan func(), processingQueueSize),
		done:                   make(chan struct{}),
		connectingPayload:      op.connectingPayload,
		clientName:             op.clientName,
		clientVersion:          op.clientVersion,
		reconnectionInterval:   op.reconnectionInterval,
		allowSendingDuplicates: op.allowSendingDuplicates,
	}
	t.reconnect.Store(op.reconnect)

	socket.SetDelegate(&socketDelegate{transport: t})
	t.writeIdentificationHeaders()

	go t.run()

	if op.connectOnInit {
		socket.Connect()
	}

	return t, nil
}

func (t *WebSocketTransport) run() {
	for {
		select {
		case fn := <-t.processing:
			fn()
		case <-t.done:
			return
		}
	}
}

// perform posts fn onto the serial task. Work posted after Close is
// dropped.
func (t *WebSocketTransport) perform(fn func()) {
	select {
	case t.processing <- fn:
	case <-t.done:
	}
}

// Send submits an operation and registers its subscriber. The returned id
// identifies the operation for Unsubscribe. A sticky connection error
// fails the send fast without registering the subscriber.
func (t *WebSocketTransport) Send(operation *Operation, subscriber registry.Subscriber) (string, error) {
	if err := t.lastError.Load(); err != nil {
		return "", err
	}

	startType, err := protocol.StartMessageType(t.subprotocol)
	if err != nil {
		return "", err
	}

	body, err := t.bodyCreator.RequestBody(operation)
	if err != nil {
		return "", err
	}

	id := t.idCreator.NextMessageID()
	data, err := (&protocol.Message{ID: id, Type: startType, Payload: body}).Encode()
	if err != nil {
		return "", err
	}

	isSubscription := operation.Type == OperationTypeSubscription

	t.perform(func() {
		if isSubscription {
			t.registry.Register(id, subscriber, data)
		} else {
			t.registry.Register(id, subscriber, nil)
		}
		t.write(data)
	})

	t.log.Debug("transport.Send",
		abstractlogger.String("id", id),
		abstractlogger.String("type", startType),
	)

	return id, nil
}

// Unsubscribe stops the operation and removes its subscriber and any
// retained subscribe message. Calling it twice is indistinguishable from
// calling it once.
func (t *WebSocketTransport) Unsubscribe(id string) {
	stopType, err := protocol.StopMessageType(t.subprotocol)
	if err != nil {
		return
	}
	data, err := (&protocol.Message{ID: id, Type: stopType}).Encode()
	if err != nil {
		return
	}

	t.perform(func() {
		if !t.registry.Has(id) {
			return
		}
		t.write(data)
		t.registry.Remove(id)
	})
}

// Ping writes a native WebSocket ping frame. The completion, if non-nil,
// fires when the matching pong arrives. This is orthogonal to the GraphQL
// ping message of the graphql-transport-ws sub-protocol.
func (t *WebSocketTransport) Ping(data []byte, completion func()) {
	t.socket.WritePing(data, completion)
}

// UpdateHeaders replaces the given headers on the socket request. Header
// changes take effect on the next connect; pass reconnectIfConnected to
// force one immediately.
func (t *WebSocketTransport) UpdateHeaders(headers http.Header, reconnectIfConnected bool) {
	t.perform(func() {
		request := t.socket.Request()
		for name, values := range headers {
			request.Header.Del(name)
			for _, value := range values {
				request.Header.Add(name, value)
			}
		}
		if reconnectIfConnected && t.state.Load() == stateConnected {
			t.reconnectSocket()
		}
	})
}

// UpdateConnectingPayload replaces the connection_init payload used on the
// next handshake; pass reconnectIfConnected to force one immediately.
func (t *WebSocketTransport) UpdateConnectingPayload(payload json.RawMessage, reconnectIfConnected bool) {
	t.perform(func() {
		t.connectingPayload = payload
		if reconnectIfConnected && t.state.Load() == stateConnected {
			t.reconnectSocket()
		}
	})
}

// SetClientIdentification updates the client identification headers on the
// socket request. Takes effect on the next reconnection.
func (t *WebSocketTransport) SetClientIdentification(name, version string) {
	t.perform(func() {
		t.clientName = name
		t.clientVersion = version
		t.writeIdentificationHeaders()
	})
}

// Pause disconnects the socket with a forced 2s timeout and disables
// reconnection until Resume.
func (t *WebSocketTransport) Pause() {
	t.perform(func() {
		t.reconnect.Store(false)
		t.socket.Disconnect(pauseDisconnectTimeout)
	})
}

// Resume connects the socket and restores the reconnect configuration.
func (t *WebSocketTransport) Resume(autoReconnect bool) {
	t.perform(func() {
		t.reconnect.Store(autoReconnect)
		t.socket.Connect()
	})
}

// IsConnected reports whether the socket session is established. It does
// not imply the server has acknowledged the handshake yet.
func (t *WebSocketTransport) IsConnected() bool {
	return t.state.Load() == stateConnected
}

// Error returns the sticky connection error, if any. It is cleared by the
// next successful connect.
func (t *WebSocketTransport) Error() error {
	return t.lastError.Load()
}

// Close sends a best-effort connection_terminate, drops all staged
// messages and subscribers without invoking them, detaches from the socket
// and disconnects it. It blocks until the teardown ran.
func (t *WebSocketTransport) Close() {
	t.perform(func() {
		t.reconnect.Store(false)

		if data, err := (&protocol.Message{Type: protocol.MessageTypeConnectionTerminate}).Encode(); err == nil {
			t.socket.WriteText(data)
		}

		t.queue.Clear()
		t.registry.Clear()
		t.socket.SetDelegate(nil)
		t.socket.Disconnect(0)

		t.closeOnce.Do(func() {
			close(t.done)
		})
	})
	<-t.done
}

func (t *WebSocketTransport) writeIdentificationHeaders() {
	header := t.socket.Request().Header
	if t.clientName != "" {
		header.Set(headerClientName, t.clientName)
	}
	if t.clientVersion != "" {
		header.Set(headerClientVersion, t.clientVersion)
	}
}
