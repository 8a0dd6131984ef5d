package transport

import (
	"encoding/json"
	"time"

	"github.com/jensneuse/abstractlogger"

	"github.com/kkpan11/graphql-ws-transport/pkg/protocol"
)

// handleConnected runs on the serial task for every established socket
// session, first connect and reconnects alike.
func (t *WebSocketTransport) handleConnected() {
	t.lastError.Store(nil)
	t.acked.Store(false)
	t.state.Store(stateConnected)

	t.writeConnectionInit()

	if t.reconnected.Load() {
		t.replaySubscriptions()
		t.notifyDidReconnect()
	} else {
		t.notifyDidConnect()
	}
	t.reconnected.Store(true)
}

// handleDisconnected runs on the serial task for every socket teardown.
//
// An error while already in the failed state is captured but handled no
// further: the socket layer can emit the same failure more than once and
// subscribers must see it exactly once.
func (t *WebSocketTransport) handleDisconnected(err error) {
	if err != nil {
		if t.state.Load() == stateFailed {
			t.lastError.Store(&NetworkError{Inner: err})
			return
		}

		networkErr := &NetworkError{Inner: err}
		t.lastError.Store(networkErr)
		t.state.Store(stateFailed)
		t.acked.Store(false)

		t.log.Debug("transport.handleDisconnected", abstractlogger.Error(err))

		t.registry.BroadcastError(networkErr)
		t.notifyDidDisconnect(networkErr)

		if t.reconnect.Load() {
			t.scheduleReconnect()
		}
		return
	}

	t.lastError.Store(nil)
	t.state.Store(stateDisconnected)
	t.acked.Store(false)

	t.notifyDidDisconnect(nil)

	if t.hasRestoreReconnect {
		// internal reconnect requested by UpdateHeaders or
		// UpdateConnectingPayload: the teardown itself must not be retried,
		// but the follow-up connect happens right away
		t.hasRestoreReconnect = false
		t.reconnect.Store(t.restoreReconnect)
		t.socket.Connect()
		return
	}

	if t.reconnect.Load() {
		t.scheduleReconnect()
	}
}

func (t *WebSocketTransport) scheduleReconnect() {
	time.AfterFunc(t.reconnectionInterval, func() {
		t.perform(func() {
			if !t.reconnect.Load() {
				return
			}
			// a failure during the retry is a fresh disconnect, not a
			// duplicate of the one that got us here
			t.state.CompareAndSwap(stateFailed, stateDisconnected)
			t.socket.Connect()
		})
	})
}

// reconnectSocket tears the socket down with reconnection temporarily
// disabled; handleDisconnected restores the flag and reconnects. Runs on
// the serial task.
func (t *WebSocketTransport) reconnectSocket() {
	t.restoreReconnect = t.reconnect.Load()
	t.hasRestoreReconnect = true
	t.reconnect.Store(false)
	t.socket.Disconnect(0)
}

func (t *WebSocketTransport) writeConnectionInit() {
	payload := t.connectingPayload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	data, err := (&protocol.Message{Type: protocol.MessageTypeConnectionInit, Payload: payload}).Encode()
	if err != nil {
		t.log.Error("transport.writeConnectionInit", abstractlogger.Error(err))
		return
	}
	// the handshake bypasses the queue
	t.socket.WriteText(data)
}

// replaySubscriptions re-issues every retained subscribe message after a
// reconnect. With duplicates disallowed, a message still staged in the
// queue from before the drop is overwritten under its original key instead
// of being staged twice.
func (t *WebSocketTransport) replaySubscriptions() {
	for _, entry := range t.registry.ReplayMessages() {
		if t.allowSendingDuplicates {
			t.write(entry.Message)
			continue
		}
		if key, ok := t.queue.KeyFor(entry.Message); ok {
			t.queue.EnqueueWithKey(key, entry.Message)
			continue
		}
		t.write(entry.Message)
	}
}

// write sends data on the socket once the handshake is acknowledged;
// before that, everything except connection_init and pong is staged in the
// outbound queue.
func (t *WebSocketTransport) write(data []byte) {
	if t.acked.Load() && t.state.Load() == stateConnected {
		t.socket.WriteText(data)
		return
	}
	t.queue.Enqueue(data)
}

func (t *WebSocketTransport) drainQueue() {
	for _, entry := range t.queue.Drain() {
		t.socket.WriteText(entry.Message)
	}
}

func (t *WebSocketTransport) notifyDidConnect() {
	if t.delegate != nil {
		t.delegate.DidConnect()
	}
}

func (t *WebSocketTransport) notifyDidReconnect() {
	if t.delegate != nil {
		t.delegate.DidReconnect()
	}
}

func (t *WebSocketTransport) notifyDidDisconnect(err error) {
	if t.delegate != nil {
		t.delegate.DidDisconnect(err)
	}
}
