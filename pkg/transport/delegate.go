package transport

// Delegate is notified of transport-level connection lifecycle events.
// DidConnect fires on the first successful connection only; every
// subsequent one fires DidReconnect instead.
type Delegate interface {
	DidConnect()
	DidReconnect()
	DidDisconnect(err error)
}

// PingPongObserver is an optional extension of Delegate for receiving the
// data of native ping and pong frames.
type PingPongObserver interface {
	DidReceivePing(data []byte)
	DidReceivePong(data []byte)
}
