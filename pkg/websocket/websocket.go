// Package websocket defines the socket collaborator consumed by the
// transport and provides a default client built on gorilla/websocket.
package websocket

import (
	"fmt"
	"net/http"
	"time"
)

// Delegate receives connection lifecycle events and inbound frames.
type Delegate interface {
	OnConnect()
	OnDisconnect(err error)
	OnText(data []byte)
	OnBinary(data []byte)
}

// PingPongDelegate is an optional extension of Delegate for observing the
// data of native ping and pong control frames.
type PingPongDelegate interface {
	OnPing(data []byte)
	OnPong(data []byte)
}

// Client is the abstract WebSocket client the transport drives. The
// request is mutable: header changes take effect on the next connect.
type Client interface {
	Request() *http.Request
	Connect()
	Disconnect(forceTimeout time.Duration)
	WriteText(data []byte)
	WritePing(data []byte, completion func())
	SetDelegate(delegate Delegate)
}

// SOCKSProxyable is an optional capability of a Client. Feature-detect it
// with a type assertion; the helpers below do that and degrade to a no-op.
type SOCKSProxyable interface {
	SOCKSProxyEnabled() bool
	SetSOCKSProxyEnabled(enabled bool)
}

// IsSOCKSProxyable reports whether the client supports SOCKS proxying.
func IsSOCKSProxyable(c Client) bool {
	_, ok := c.(SOCKSProxyable)
	return ok
}

// SOCKSProxyEnabled returns false for clients without the capability.
func SOCKSProxyEnabled(c Client) bool {
	p, ok := c.(SOCKSProxyable)
	if !ok {
		return false
	}
	return p.SOCKSProxyEnabled()
}

// SetSOCKSProxyEnabled no-ops for clients without the capability.
func SetSOCKSProxyEnabled(c Client, enabled bool) {
	if p, ok := c.(SOCKSProxyable); ok {
		p.SetSOCKSProxyEnabled(enabled)
	}
}

// NewRequest builds the mutable upgrade request for an endpoint URL.
func NewRequest(endpoint string) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket request: %w", err)
	}
	return req, nil
}

// UpgradeRequestError is returned through OnDisconnect when the server
// refuses the connection upgrade.
type UpgradeRequestError struct {
	URL        string
	StatusCode int
}

func (u *UpgradeRequestError) Error() string {
	return fmt.Sprintf("failed to upgrade connection to %s, status code: %d", u.URL, u.StatusCode)
}
