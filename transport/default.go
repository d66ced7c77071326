package transport

import (
	"github.com/hupe1980/knowledgenet/logging"
	"github.com/hupe1980/knowledgenet/transport/httptransport"
	"github.com/hupe1980/knowledgenet/transport/mock"
	"github.com/hupe1980/knowledgenet/transport/wstransport"
)

// Protocol names of the built-in transports.
const (
	ProtocolHTTP      = "http"
	ProtocolWebsocket = "websocket"
	ProtocolMock      = "mock"
)

// Default returns a dispatcher with the http, websocket and mock transports.
func Default(logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	d := NewDispatcher(func(o *DispatcherOptions) { o.Logger = logger })
	_ = d.Register(ProtocolHTTP, httptransport.New(func(o *httptransport.Options) { o.Logger = logger }))
	_ = d.Register(ProtocolWebsocket, wstransport.New(func(o *wstransport.Options) { o.Logger = logger }))
	_ = d.Register(ProtocolMock, mock.New())
	return d
}
