package transport

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/logging"
)

// Dispatcher is an explicit registration table mapping protocol names to
// transports. Registration happens at startup; Dispatch is safe for
// concurrent use.
type Dispatcher struct {
	mu         sync.RWMutex
	transports map[string]core.Transport
	logger     logging.Logger
}

var _ core.Dispatcher = (*Dispatcher)(nil)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Logger logging.Logger
}

// NewDispatcher creates an empty table.
func NewDispatcher(optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{transports: map[string]core.Transport{}, logger: opts.Logger}
}

// Register binds name to t, replacing any previous binding. The local
// protocol cannot be registered since local agents never reach a transport.
func (d *Dispatcher) Register(name string, t core.Transport) error {
	if name == "" || name == core.ProtocolLocal {
		return fmt.Errorf("%w: cannot register protocol %q", core.ErrUnknownProtocol, name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transports[name] = t
	return nil
}

// Lookup returns the transport registered under name.
func (d *Dispatcher) Lookup(name string) (core.Transport, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.transports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownProtocol, name)
	}
	return t, nil
}

// Names returns the registered protocol names in sorted order.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.transports))
	for n := range d.transports {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Dispatch implements core.Dispatcher. Unknown protocols and panicking
// transports yield an empty continuation and an error text.
func (d *Dispatcher) Dispatch(ctx context.Context, protocol, agentID string, log *core.ChatHistory, details core.Details, timeout time.Duration) (cont *core.ChatHistory, errText string) {
	t, err := d.Lookup(protocol)
	if err != nil {
		return core.NewChatHistory(), err.Error()
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("transport panicked", "protocol", protocol, "agent", agentID, "panic", r)
			cont, errText = core.NewChatHistory(), fmt.Sprintf("%v: %s transport panicked: %v", core.ErrTransportFailure, protocol, r)
		}
	}()

	cont, errText = t.Dispatch(ctx, agentID, log, details, timeout)
	if cont == nil {
		cont = core.NewChatHistory()
	}
	if errText != "" {
		d.logger.Warn("dispatch failed", "protocol", protocol, "agent", agentID, "error", errText)
	}
	return cont, errText
}
