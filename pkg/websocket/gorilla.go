package websocket

import (
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/jensneuse/abstractlogger"
	"go.uber.org/atomic"
	"golang.org/x/net/proxy"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
)

// GorillaClient is the default Client implementation, backed by
// gorilla/websocket. It supports SOCKS proxying via the proxy-related
// environment variables when enabled.
type GorillaClient struct {
	request     *http.Request
	subprotocol string
	log         abstractlogger.Logger

	mu       sync.Mutex
	conn     *gorilla.Conn
	delegate Delegate
	dialing  bool
	closing  bool

	writeMu sync.Mutex

	pingMu          sync.Mutex
	pingCompletions []func()

	socksProxy atomic.Bool

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

var _ Client = (*GorillaClient)(nil)
var _ SOCKSProxyable = (*GorillaClient)(nil)

func NewGorillaClient(request *http.Request, subprotocol string, log abstractlogger.Logger) *GorillaClient {
	if log == nil {
		log = abstractlogger.NoopLogger
	}
	return &GorillaClient{
		request:          request,
		subprotocol:      subprotocol,
		log:              log,
		HandshakeTimeout: defaultHandshakeTimeout,
		WriteTimeout:     defaultWriteTimeout,
	}
}

func (c *GorillaClient) Request() *http.Request {
	return c.request
}

func (c *GorillaClient) SetDelegate(delegate Delegate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate = delegate
}

func (c *GorillaClient) SOCKSProxyEnabled() bool {
	return c.socksProxy.Load()
}

func (c *GorillaClient) SetSOCKSProxyEnabled(enabled bool) {
	c.socksProxy.Store(enabled)
}

// Connect dials the endpoint asynchronously. The outcome is reported via
// the delegate: OnConnect on success, OnDisconnect(err) on failure.
func (c *GorillaClient) Connect() {
	c.mu.Lock()
	if c.conn != nil || c.dialing {
		c.mu.Unlock()
		return
	}
	c.dialing = true
	c.closing = false
	c.mu.Unlock()

	go c.dial()
}

func (c *GorillaClient) dial() {
	dialer := gorilla.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.HandshakeTimeout,
		Subprotocols:     []string{c.subprotocol},
	}

	if c.socksProxy.Load() {
		socksDialer := proxy.FromEnvironment()
		dialer.NetDial = socksDialer.Dial
	}

	upgradeURL := wsURL(c.request.URL.String())

	conn, upgradeResponse, err := dialer.Dial(upgradeURL, c.request.Header)
	if err != nil {
		if upgradeResponse != nil && upgradeResponse.StatusCode != http.StatusSwitchingProtocols {
			err = &UpgradeRequestError{
				URL:        upgradeURL,
				StatusCode: upgradeResponse.StatusCode,
			}
		}
		c.mu.Lock()
		c.dialing = false
		delegate := c.delegate
		c.mu.Unlock()

		c.log.Debug("websocket.dial", abstractlogger.String("url", upgradeURL), abstractlogger.Error(err))
		if delegate != nil {
			delegate.OnDisconnect(err)
		}
		return
	}

	conn.SetReadLimit(math.MaxInt32)
	conn.SetPingHandler(func(appData string) error {
		if d, ok := c.currentDelegate().(PingPongDelegate); ok {
			d.OnPing([]byte(appData))
		}
		err := conn.WriteControl(gorilla.PongMessage, []byte(appData), time.Now().Add(c.WriteTimeout))
		if err == gorilla.ErrCloseSent {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(appData string) error {
		c.pingMu.Lock()
		var completion func()
		if len(c.pingCompletions) > 0 {
			completion = c.pingCompletions[0]
			c.pingCompletions = c.pingCompletions[1:]
		}
		c.pingMu.Unlock()

		if completion != nil {
			completion()
		}
		if d, ok := c.currentDelegate().(PingPongDelegate); ok {
			d.OnPong([]byte(appData))
		}
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.dialing = false
	delegate := c.delegate
	c.mu.Unlock()

	if delegate != nil {
		delegate.OnConnect()
	}

	c.readPump(conn)
}

func (c *GorillaClient) readPump(conn *gorilla.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			c.teardown(conn, err)
			return
		}
		switch messageType {
		case gorilla.TextMessage:
			if delegate := c.currentDelegate(); delegate != nil {
				delegate.OnText(data)
			}
		case gorilla.BinaryMessage:
			c.log.Debug("websocket.readPump", abstractlogger.String("message", "binary frame received"), abstractlogger.Int("bytes", len(data)))
			if delegate := c.currentDelegate(); delegate != nil {
				delegate.OnBinary(data)
			}
		}
	}
}

func (c *GorillaClient) teardown(conn *gorilla.Conn, err error) {
	_ = conn.Close()

	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	closing := c.closing
	c.conn = nil
	c.closing = false
	delegate := c.delegate
	c.mu.Unlock()

	c.pingMu.Lock()
	c.pingCompletions = nil
	c.pingMu.Unlock()

	if closing || gorilla.IsCloseError(err, gorilla.CloseNormalClosure) {
		err = nil
	}
	if delegate != nil {
		delegate.OnDisconnect(err)
	}
}

// Disconnect sends a close frame. With a forceTimeout the connection is
// torn down after the timeout if the server has not closed it by then;
// without one it is closed immediately after the close frame.
func (c *GorillaClient) Disconnect(forceTimeout time.Duration) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return
	}
	c.closing = true
	c.mu.Unlock()

	message := gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "")
	_ = conn.WriteControl(gorilla.CloseMessage, message, time.Now().Add(c.WriteTimeout))

	if forceTimeout > 0 {
		time.AfterFunc(forceTimeout, func() {
			c.mu.Lock()
			stillOpen := c.conn == conn
			c.mu.Unlock()
			if stillOpen {
				_ = conn.Close()
			}
		})
		return
	}

	_ = conn.Close()
}

// WriteText writes a text frame. Write failures are logged; the resulting
// connection teardown surfaces through OnDisconnect.
func (c *GorillaClient) WriteText(data []byte) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.log.Debug("websocket.WriteText", abstractlogger.String("message", "dropping write, not connected"))
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout))
	if err := conn.WriteMessage(gorilla.TextMessage, data); err != nil {
		c.log.Error("websocket.WriteText", abstractlogger.Error(err))
	}
}

// WritePing writes a native ping control frame. The completion, if any,
// fires when the matching pong arrives.
func (c *GorillaClient) WritePing(data []byte, completion func()) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.log.Debug("websocket.WritePing", abstractlogger.String("message", "dropping ping, not connected"))
		return
	}

	if completion != nil {
		c.pingMu.Lock()
		c.pingCompletions = append(c.pingCompletions, completion)
		c.pingMu.Unlock()
	}

	if err := conn.WriteControl(gorilla.PingMessage, data, time.Now().Add(c.WriteTimeout)); err != nil {
		c.log.Error("websocket.WritePing", abstractlogger.Error(err))
	}
}

func (c *GorillaClient) currentDelegate() Delegate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate
}

// wsURL rewrites http(s) endpoint URLs onto the ws(s) scheme.
func wsURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "https") {
		return "wss" + endpoint[5:]
	}
	if strings.HasPrefix(endpoint, "http") {
		return "ws" + endpoint[4:]
	}
	return endpoint
}
