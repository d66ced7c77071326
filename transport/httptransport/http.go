// Package httptransport carries reply requests to agents served over HTTP.
//
// The request body is the Exchange wire record; the response body carries
// the continuation under chat_history.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/logging"
)

const maxResponseBytes = 16 << 20

// Options configures the HTTP transport.
type Options struct {
	Client *http.Client
	Logger logging.Logger
}

// Transport posts exchange records to details["url"].
type Transport struct {
	client *http.Client
	logger logging.Logger
}

var _ core.Transport = (*Transport)(nil)

// New creates an HTTP transport.
func New(optFns ...func(o *Options)) *Transport {
	opts := Options{
		Client: &http.Client{},
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Transport{client: opts.Client, logger: opts.Logger}
}

// Dispatch implements core.Transport.
//
// Recognized details: url (required), knowledgebase (remote identifier,
// defaults to agentID) and headers (extra request headers).
func (t *Transport) Dispatch(ctx context.Context, agentID string, log *core.ChatHistory, details core.Details, timeout time.Duration) (*core.ChatHistory, string) {
	cont, err := t.post(ctx, agentID, log, details, timeout)
	if err != nil {
		t.logger.Warn("http dispatch failed", "agent", agentID, "error", err)
		return core.NewChatHistory(), err.Error()
	}
	return cont, ""
}

func (t *Transport) post(ctx context.Context, agentID string, log *core.ChatHistory, details core.Details, timeout time.Duration) (*core.ChatHistory, error) {
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

	body, err := json.Marshal(core.Exchange{Knowledgebase: agentID, ChatHistory: log})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", core.ErrTransportFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTransportFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range details.StringMap("headers") {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTransportFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s returned status %d: %s", core.ErrTransportFailure, url, resp.StatusCode, bytes.TrimSpace(msg))
	}

	cont, err := core.DecodeContinuation(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", core.ErrTransportFailure, err)
	}
	return cont, nil
}
