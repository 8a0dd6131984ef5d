package transport

import (
	"encoding/json"
	"time"

	"github.com/jensneuse/abstractlogger"
)

const defaultReconnectionInterval = 500 * time.Millisecond

type Options func(options *opts)

type opts struct {
	log                    abstractlogger.Logger
	delegate               Delegate
	bodyCreator            RequestBodyCreator
	idCreator              MessageIdentifierCreator
	reconnect              bool
	reconnectionInterval   time.Duration
	allowSendingDuplicates bool
	connectOnInit          bool
	connectingPayload      json.RawMessage
	clientName             string
	clientVersion          string
}

func defaultOpts() *opts {
	return &opts{
		log:                    abstractlogger.NoopLogger,
		bodyCreator:            DefaultRequestBodyCreator{},
		idCreator:              &SequencingMessageIdentifierCreator{},
		reconnectionInterval:   defaultReconnectionInterval,
		allowSendingDuplicates: true,
		connectOnInit:          true,
	}
}

func WithLogger(log abstractlogger.Logger) Options {
	return func(options *opts) {
		options.log = log
	}
}

func WithDelegate(delegate Delegate) Options {
	return func(options *opts) {
		options.delegate = delegate
	}
}

func WithRequestBodyCreator(creator RequestBodyCreator) Options {
	return func(options *opts) {
		options.bodyCreator = creator
	}
}

func WithMessageIdentifierCreator(creator MessageIdentifierCreator) Options {
	return func(options *opts) {
		options.idCreator = creator
	}
}

// WithReconnect configures whether disconnects trigger a reconnection
// attempt.
func WithReconnect(reconnect bool) Options {
	return func(options *opts) {
		options.reconnect = reconnect
	}
}

func WithReconnectionInterval(interval time.Duration) Options {
	return func(options *opts) {
		options.reconnectionInterval = interval
	}
}

// WithAllowSendingDuplicates controls whether subscription replay after a
// reconnect may double-write a subscribe message that is still staged in
// the outbound queue.
func WithAllowSendingDuplicates(allow bool) Options {
	return func(options *opts) {
		options.allowSendingDuplicates = allow
	}
}

// WithConnectOnInit controls whether the transport connects from the
// constructor. Defaults to true.
func WithConnectOnInit(connect bool) Options {
	return func(options *opts) {
		options.connectOnInit = connect
	}
}

// WithConnectingPayload sets the payload of the connection_init message.
func WithConnectingPayload(payload json.RawMessage) Options {
	return func(options *opts) {
		options.connectingPayload = payload
	}
}

func WithClientName(name string) Options {
	return func(options *opts) {
		options.clientName = name
	}
}

func WithClientVersion(version string) Options {
	return func(options *opts) {
		options.clientVersion = version
	}
}
