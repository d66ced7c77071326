package agent

import (
	"github.com/hupe1980/knowledgenet/core"
)

// NewRemote creates a proxy for an agent reachable over protocol. Calls are
// serialized and carried by the transport registered for protocol in
// dispatcher; details supply the connection settings such as "url".
func NewRemote(id, protocol string, details core.Details, dispatcher core.Dispatcher, optFns ...func(o *Options)) *BaseAgent {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Protocol = protocol
	opts.Details = details
	opts.Transport = dispatcher
	return newBaseAgent(id, nil, opts)
}
