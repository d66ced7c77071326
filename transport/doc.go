// Package transport provides the protocol dispatch table used by agents
// whose protocol is not local.
//
// Each transport owns its serialization and failure translation. The
// subpackages implement HTTP (httptransport), websocket (wstransport) and a
// canned-answer stub (mock). Default wires all three.
package transport
