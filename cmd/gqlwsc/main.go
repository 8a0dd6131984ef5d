// Command gqlwsc runs a GraphQL operation against a WebSocket endpoint and
// streams the results to stdout until interrupted. With --subscription=false
// it exits after the first result.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jensneuse/abstractlogger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kkpan11/graphql-ws-transport/pkg/protocol"
	"github.com/kkpan11/graphql-ws-transport/pkg/registry"
	"github.com/kkpan11/graphql-ws-transport/pkg/transport"
	"github.com/kkpan11/graphql-ws-transport/pkg/websocket"
)

var (
	flagURL          string
	flagQuery        string
	flagOperation    string
	flagSubprotocol  string
	flagHeaders      []string
	flagInitPayload  string
	flagReconnect    bool
	flagDebug        bool
	flagSubscription bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "gqlwsc",
		Short:        "GraphQL-over-WebSocket client",
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVar(&flagURL, "url", "", "endpoint URL (http(s) or ws(s) scheme)")
	rootCmd.Flags().StringVar(&flagQuery, "query", "", "GraphQL document to execute")
	rootCmd.Flags().StringVar(&flagOperation, "operation-name", "", "operation name within the document")
	rootCmd.Flags().StringVar(&flagSubprotocol, "protocol", string(protocol.SubprotocolGraphQLTWS), "websocket sub-protocol (graphql-ws or graphql-transport-ws)")
	rootCmd.Flags().StringArrayVar(&flagHeaders, "header", nil, "additional header, name:value, repeatable")
	rootCmd.Flags().StringVar(&flagInitPayload, "init-payload", "", "JSON payload of the connection_init message")
	rootCmd.Flags().BoolVar(&flagReconnect, "reconnect", true, "reconnect on connection loss")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&flagSubscription, "subscription", true, "treat the document as a subscription")

	_ = rootCmd.MarkFlagRequired("url")
	_ = rootCmd.MarkFlagRequired("query")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func logger() abstractlogger.Logger {
	if !flagDebug {
		return abstractlogger.NoopLogger
	}
	zapLogger, err := zap.NewDevelopmentConfig().Build()
	if err != nil {
		panic(err)
	}
	return abstractlogger.NewZapLogger(zapLogger, abstractlogger.DebugLevel)
}

func run(cmd *cobra.Command, args []string) error {
	log := logger()

	sub, err := protocol.ParseSubprotocol(flagSubprotocol)
	if err != nil {
		return err
	}

	request, err := websocket.NewRequest(flagURL)
	if err != nil {
		return err
	}
	for _, header := range flagHeaders {
		name, value, found := strings.Cut(header, ":")
		if !found {
			return fmt.Errorf("invalid header %q, expected name:value", header)
		}
		request.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	client := websocket.NewGorillaClient(request, string(sub), log)

	options := []transport.Options{
		transport.WithLogger(log),
		transport.WithReconnect(flagReconnect),
		transport.WithClientName("gqlwsc"),
	}
	if flagInitPayload != "" {
		options = append(options, transport.WithConnectingPayload(json.RawMessage(flagInitPayload)))
	}

	t, err := transport.New(client, sub, options...)
	if err != nil {
		return err
	}
	defer t.Close()

	operationType := transport.OperationTypeQuery
	if flagSubscription {
		operationType = transport.OperationTypeSubscription
	}

	results := make(chan struct{}, 1)
	id, err := t.Send(&transport.Operation{
		Query:         flagQuery,
		OperationName: flagOperation,
		Type:          operationType,
	}, registry.SubscriberFunc(func(payload []byte, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		fmt.Println(string(payload))
		select {
		case results <- struct{}{}:
		default:
		}
	}))
	if err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	if !flagSubscription {
		select {
		case <-results:
		case <-interrupt:
		}
		t.Unsubscribe(id)
		return nil
	}

	<-interrupt
	t.Unsubscribe(id)
	return nil
}
