// Package wstransport carries reply requests over a websocket connection.
// Each dispatch dials, writes one exchange record, reads one continuation
// record and closes the connection normally.
package wstransport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/logging"
)

const maxMessageBytes = 16 << 20

// Options configures the websocket transport.
type Options struct {
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Transport exchanges records with a websocket endpoint at details["url"].
type Transport struct {
	client *http.Client
	logger logging.Logger
}

var _ core.Transport = (*Transport)(nil)

// New creates a websocket transport.
func New(optFns ...func(o *Options)) *Transport {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Transport{client: opts.HTTPClient, logger: opts.Logger}
}

// Dispatch implements core.Transport. Details are interpreted as by the
// HTTP transport: url, knowledgebase and headers.
func (t *Transport) Dispatch(ctx context.Context, agentID string, log *core.ChatHistory, details core.Details, timeout time.Duration) (*core.ChatHistory, string) {
	cont, err := t.exchange(ctx, agentID, log, details, timeout)
	if err != nil {
		t.logger.Warn("websocket dispatch failed", "agent", agentID, "error", err)
		return core.NewChatHistory(), err.Error()
	}
	return cont, ""
}

func (t *Transport) exchange(ctx context.Context, agentID string, log *core.ChatHistory, details core.Details, timeout time.Duration) (*core.ChatHistory, error) {
	url, ok := details.String("url")
	if !ok {
		return nil, fmt.Errorf("%w: missing url in protocol details", core.ErrTransportFailure)
	}
	if remote, ok := details.String("knowledgebase"); ok {
		agentID = remote
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	header := http.Header{}
	for k, v := range details.StringMap("headers") {
		header.Set(k, v)
	}

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPClient: t.client, HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("%w: websocket connect: %v", core.ErrTransportFailure, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageBytes)

	if err := wsjson.Write(ctx, conn, core.Exchange{Knowledgebase: agentID, ChatHistory: log}); err != nil {
		return nil, fmt.Errorf("%w: websocket write: %v", core.ErrTransportFailure, err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: websocket read: %v", core.ErrTransportFailure, err)
	}

	cont, err := core.DecodeContinuation(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", core.ErrTransportFailure, err)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "")
	return cont, nil
}
