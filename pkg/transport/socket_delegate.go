package transport

import (
	"github.com/jensneuse/abstractlogger"
)

// socketDelegate routes socket callbacks onto the transport's serial task.
// It is detached from the socket during Close, before the socket is
// released.
type socketDelegate struct {
	transport *WebSocketTransport
}

func (d *socketDelegate) OnConnect() {
	d.transport.perform(d.transport.handleConnected)
}

func (d *socketDelegate) OnDisconnect(err error) {
	d.transport.perform(func() {
		d.transport.handleDisconnected(err)
	})
}

func (d *socketDelegate) OnText(data []byte) {
	d.transport.perform(func() {
		d.transport.processMessage(data)
	})
}

func (d *socketDelegate) OnBinary(data []byte) {
	d.transport.log.Debug("transport.OnBinary",
		abstractlogger.String("message", "binary frame ignored"),
		abstractlogger.Int("bytes", len(data)),
	)
}

func (d *socketDelegate) OnPing(data []byte) {
	if observer, ok := d.transport.delegate.(PingPongObserver); ok {
		observer.DidReceivePing(data)
	}
}

func (d *socketDelegate) OnPong(data []byte) {
	if observer, ok := d.transport.delegate.(PingPongObserver); ok {
		observer.DidReceivePong(data)
	}
}
