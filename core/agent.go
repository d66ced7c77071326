package core

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// ProtocolLocal is the protocol of in-process agents. Local agents are
// invoked directly, without serialization or a transport.
const ProtocolLocal = "local"

// Answerer is the single extension point every local agent kind implements:
// produce a continuation and an optional error given a log.
//
// The log passed in is a private copy owned by the answerer. The returned
// continuation holds only the events the answerer produced.
type Answerer interface {
	Answer(ctx context.Context, log *ChatHistory) (*ChatHistory, error)
}

// AnswererFunc adapts a plain function to the Answerer interface.
type AnswererFunc func(ctx context.Context, log *ChatHistory) (*ChatHistory, error)

// Answer implements Answerer.
func (f AnswererFunc) Answer(ctx context.Context, log *ChatHistory) (*ChatHistory, error) {
	return f(ctx, log)
}

// Agent is an addressable party that receives a conversation log and
// produces a continuation.
//
// Reply appends a CallEvent to log, invokes the agent on a copy and returns
// the continuation ending in the matching ReturnEvent. Failures are carried
// in the ReturnEvent's error text and never returned as Go errors.
//
// Agents are constructed once per process and only mutated by SetConnected
// during the wiring phase of materialization.
type Agent interface {
	ID() string
	DisplayName() string
	Description() string
	Protocol() string
	Timeout() time.Duration
	Reply(ctx context.Context, log *ChatHistory, caller string) *ChatHistory
	Connected() Directory
	SetConnected(dir Directory)
}

// Resolver looks up agents by identifier. Directory and the registry
// implement it.
type Resolver interface {
	Lookup(id string) (Agent, error)
}

// Directory maps identifiers to agents. It is used for the per-agent
// connected scope and for snapshots of the public scope.
type Directory map[string]Agent

// NewDirectory builds a directory keyed by each agent's ID. Later entries
// win on duplicate identifiers.
func NewDirectory(agents ...Agent) Directory {
	d := make(Directory, len(agents))
	for _, a := range agents {
		d[a.ID()] = a
	}
	return d
}

// Lookup implements Resolver.
func (d Directory) Lookup(id string) (Agent, error) {
	a, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, id)
	}
	return a, nil
}

// IDs returns the sorted identifiers.
func (d Directory) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a shallow copy of the mapping.
func (d Directory) Clone() Directory {
	c := make(Directory, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Details carries transport-specific connection settings such as a URL.
type Details map[string]any

// String returns the string value stored under key.
func (d Details) String(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok && v != ""
}

// Transport carries a reply request to a non-local agent and back.
//
// Implementations own serialization and failure translation: connection
// failures, malformed responses and timeouts become a non-empty error text
// and an empty continuation. Dispatch must not panic on remote failure.
type Transport interface {
	Dispatch(ctx context.Context, agentID string, log *ChatHistory, details Details, timeout time.Duration) (*ChatHistory, string)
}

// Dispatcher routes a reply request to the Transport registered under protocol.
type Dispatcher interface {
	Dispatch(ctx context.Context, protocol, agentID string, log *ChatHistory, details Details, timeout time.Duration) (*ChatHistory, string)
	// Lookup returns the transport registered under protocol or an error
	// wrapping ErrUnknownProtocol.
	Lookup(protocol string) (Transport, error)
}

// StringMap returns the map stored under key with string values. Both
// map[string]string and decoded map[string]any values are accepted.
func (d Details) StringMap(key string) map[string]string {
	switch v := d[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			if s, ok := val.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}
