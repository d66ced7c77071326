package session

import (
	"context"

	"github.com/hupe1980/knowledgenet/core"
)

// Store is an append-only transcript keyed by session identifier.
type Store interface {
	// Append adds the events of log to the session transcript.
	Append(ctx context.Context, sessionID string, log *core.ChatHistory) error
	// Get returns the transcript. Unknown sessions yield an empty log.
	Get(ctx context.Context, sessionID string) (*core.ChatHistory, error)
	// IDs lists the known sessions in sorted order.
	IDs(ctx context.Context) ([]string, error)
	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error
	Close() error
}
