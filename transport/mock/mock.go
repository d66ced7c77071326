// Package mock provides a transport that answers every request with a
// canned proverb. It stands in for a remote agent in demos and tests.
package mock

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hupe1980/knowledgenet/core"
)

// DefaultOriginator is used when details carry no originator.
const DefaultOriginator = "computer"

// Proverbs are the canned answers.
var Proverbs = []string{
	"Early to bed and early to rise, makes a man healthy, wealthy and wise.",
	"A penny saved is a penny earned.",
	"We are the ones we have been waiting for.",
	"May the force be with you.",
}

// Options configures the mock transport.
type Options struct {
	// Seed makes the answer sequence reproducible when non-zero.
	Seed uint64
	// Answers replaces Proverbs.
	Answers []string
}

// Transport is a core.Transport returning one assistant message per call.
type Transport struct {
	mu      sync.Mutex
	rng     *rand.Rand
	answers []string
}

var _ core.Transport = (*Transport)(nil)

// New creates a mock transport.
func New(optFns ...func(o *Options)) *Transport {
	opts := Options{Answers: Proverbs}
	for _, fn := range optFns {
		fn(&opts)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Transport{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), answers: opts.Answers}
}

// Dispatch implements core.Transport.
func (t *Transport) Dispatch(_ context.Context, _ string, _ *core.ChatHistory, details core.Details, _ time.Duration) (*core.ChatHistory, string) {
	originator, ok := details.String("originator")
	if !ok {
		originator = DefaultOriginator
	}
	if len(t.answers) == 0 {
		return core.NewChatHistory(), ""
	}

	t.mu.Lock()
	answer := t.answers[t.rng.IntN(len(t.answers))]
	t.mu.Unlock()

	return core.NewChatHistory(core.NewAssistantMessage(originator, answer)), ""
}
