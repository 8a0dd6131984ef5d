package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/kkpan11/graphql-ws-transport/pkg/protocol"
)

func TestParseSubprotocol(t *testing.T) {
	t.Parallel()

	t.Run("accepts both supported subprotocols", func(t *testing.T) {
		t.Parallel()

		sub, err := protocol.ParseSubprotocol("graphql-ws")
		require.NoError(t, err)
		assert.Equal(t, protocol.SubprotocolGraphQLWS, sub)

		sub, err = protocol.ParseSubprotocol("graphql-transport-ws")
		require.NoError(t, err)
		assert.Equal(t, protocol.SubprotocolGraphQLTWS, sub)
	})

	t.Run("rejects anything else", func(t *testing.T) {
		t.Parallel()

		_, err := protocol.ParseSubprotocol("graphql-sse")
		require.Error(t, err)

		var invalidErr protocol.InvalidWsSubprotocolError
		require.ErrorAs(t, err, &invalidErr)
		assert.Equal(t, "graphql-sse", invalidErr.InvalidProtocol)
	})
}

func TestStartStopMessageTypes(t *testing.T) {
	t.Parallel()

	start, err := protocol.StartMessageType(protocol.SubprotocolGraphQLWS)
	require.NoError(t, err)
	assert.Equal(t, "start", start)

	stop, err := protocol.StopMessageType(protocol.SubprotocolGraphQLWS)
	require.NoError(t, err)
	assert.Equal(t, "stop", stop)

	start, err = protocol.StartMessageType(protocol.SubprotocolGraphQLTWS)
	require.NoError(t, err)
	assert.Equal(t, "subscribe", start)

	stop, err = protocol.StopMessageType(protocol.SubprotocolGraphQLTWS)
	require.NoError(t, err)
	assert.Equal(t, "complete", stop)

	_, err = protocol.StartMessageType(protocol.Subprotocol("bogus"))
	assert.Error(t, err)
}

func TestMessageEncode(t *testing.T) {
	t.Parallel()

	t.Run("full envelope", func(t *testing.T) {
		t.Parallel()

		data, err := (&protocol.Message{
			ID:      "1",
			Type:    protocol.MessageTypeSubscribe,
			Payload: json.RawMessage(`{"query":"subscription { time }"}`),
		}).Encode()
		require.NoError(t, err)

		assert.Equal(t, "1", gjson.GetBytes(data, "id").String())
		assert.Equal(t, "subscribe", gjson.GetBytes(data, "type").String())
		assert.Equal(t, "subscription { time }", gjson.GetBytes(data, "payload.query").String())
	})

	t.Run("omits empty id and payload", func(t *testing.T) {
		t.Parallel()

		data, err := (&protocol.Message{Type: protocol.MessageTypePong}).Encode()
		require.NoError(t, err)
		assert.Equal(t, `{"type":"pong"}`, string(data))
	})

	t.Run("connection_init carries empty object payload", func(t *testing.T) {
		t.Parallel()

		data, err := (&protocol.Message{
			Type:    protocol.MessageTypeConnectionInit,
			Payload: json.RawMessage(`{}`),
		}).Encode()
		require.NoError(t, err)
		assert.Equal(t, `{"type":"connection_init","payload":{}}`, string(data))
	})

	t.Run("missing type fails", func(t *testing.T) {
		t.Parallel()

		_, err := (&protocol.Message{ID: "1"}).Encode()
		assert.Error(t, err)
	})
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	// every outbound kind must decode into an equivalent parse result
	kinds := []string{
		protocol.MessageTypeConnectionInit,
		protocol.MessageTypeConnectionTerminate,
		protocol.MessageTypeStart,
		protocol.MessageTypeSubscribe,
		protocol.MessageTypeStop,
		protocol.MessageTypeComplete,
		protocol.MessageTypePing,
		protocol.MessageTypePong,
	}

	for _, kind := range kinds {
		kind := kind
		t.Run(kind, func(t *testing.T) {
			t.Parallel()

			msg := &protocol.Message{
				ID:      "7",
				Type:    kind,
				Payload: json.RawMessage(`{"value":42}`),
			}
			data, err := msg.Encode()
			require.NoError(t, err)

			parsed, err := protocol.Parse(data)
			require.NoError(t, err)
			assert.Equal(t, kind, parsed.Type)
			assert.Equal(t, "7", parsed.ID)
			assert.JSONEq(t, `{"value":42}`, string(parsed.Payload))
			assert.NoError(t, parsed.Err)
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("recognizes inbound kinds", func(t *testing.T) {
		t.Parallel()

		for _, kind := range []string{"data", "next", "error", "complete", "connection_ack", "ka", "start_ack", "ping", "pong", "connection_error"} {
			parsed, err := protocol.Parse([]byte(`{"type":"` + kind + `"}`))
			require.NoError(t, err, kind)
			assert.Equal(t, kind, parsed.Type)
		}
	})

	t.Run("unknown type fails with the raw text retained", func(t *testing.T) {
		t.Parallel()

		raw := []byte(`{"type":"presence_update","id":"1"}`)
		_, err := protocol.Parse(raw)
		require.Error(t, err)

		var unprocessed *protocol.UnprocessedMessageError
		require.ErrorAs(t, err, &unprocessed)
		assert.Equal(t, raw, unprocessed.Raw)
	})

	t.Run("missing type fails", func(t *testing.T) {
		t.Parallel()

		_, err := protocol.Parse([]byte(`{"id":"1"}`))
		require.Error(t, err)

		var unprocessed *protocol.UnprocessedMessageError
		assert.ErrorAs(t, err, &unprocessed)
	})

	t.Run("malformed frame fails", func(t *testing.T) {
		t.Parallel()

		_, err := protocol.Parse([]byte(`this is not json`))
		assert.Error(t, err)
	})

	t.Run("null payload is treated as absent", func(t *testing.T) {
		t.Parallel()

		parsed, err := protocol.Parse([]byte(`{"type":"next","id":"1","payload":null}`))
		require.NoError(t, err)
		assert.Nil(t, parsed.Payload)
		assert.NoError(t, parsed.Err)
	})

	t.Run("string payload stays valid JSON", func(t *testing.T) {
		t.Parallel()

		parsed, err := protocol.Parse([]byte(`{"type":"next","id":"1","payload":"oops"}`))
		require.NoError(t, err)
		assert.Equal(t, `"oops"`, string(parsed.Payload))
	})
}
