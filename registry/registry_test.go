package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knowledgenet/agent"
	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/util"
	"github.com/hupe1980/knowledgenet/transport"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	r := New()
	kb := agent.NewFixedAgent("kb", "hi")
	require.NoError(t, r.Register(kb))

	got, err := r.Lookup("kb")
	require.NoError(t, err)
	assert.Same(t, kb, got)

	err = r.Register(agent.NewFixedAgent("kb", "again"))
	assert.ErrorIs(t, err, core.ErrDuplicateAgent)

	_, err = r.Lookup("nope")
	assert.ErrorIs(t, err, core.ErrUnknownAgent)

	assert.Panics(t, func() { r.MustRegister(kb) })
}

func TestRegistry_PublicIsSnapshot(t *testing.T) {
	r := New()
	r.MustRegister(agent.NewFixedAgent("a", ""), agent.NewFixedAgent("b", ""))

	pub := r.Public()
	assert.Equal(t, []string{"a", "b"}, pub.IDs())
	delete(pub, "a")
	assert.Len(t, r.Public(), 2)

	_, err := r.SinglePublic()
	assert.Error(t, err)

	r.Reset()
	assert.Empty(t, r.Public())
	r.MustRegister(agent.NewFixedAgent("only", ""))
	only, err := r.SinglePublic()
	require.NoError(t, err)
	assert.Equal(t, "only", only.ID())
}

func TestRegistry_Keys(t *testing.T) {
	r := New()
	_, err := r.Key("openai_api_key")
	assert.ErrorIs(t, err, core.ErrMissingKey)

	r.SetKey("openai_api_key", "sk-test")
	r.SetKeys(map[string]string{"anthropic_api_key": "ak-test", "empty": ""})

	v, err := r.Key("openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", v)

	_, err = r.Key("empty")
	assert.ErrorIs(t, err, core.ErrMissingKey)
	assert.Equal(t, []string{"anthropic_api_key", "empty", "openai_api_key"}, r.KeyNames())

	r.Reset()
	assert.Empty(t, r.KeyNames())
}

func TestRegistry_Build(t *testing.T) {
	r := New()
	r.SetKey("secret", "s3cr3t")
	r.RegisterKind("fixed", func(_ context.Context, spec AgentSpec, env Env) (core.Agent, error) {
		msg, err := spec.Args.String("message", "")
		if err != nil {
			return nil, err
		}
		secret, _ := spec.Args.String("secret", "")
		return agent.NewFixedAgent(spec.ID, msg+" "+secret, env.AgentOptions(spec)), nil
	})
	r.RegisterKind("broken", func(context.Context, AgentSpec, Env) (core.Agent, error) {
		return nil, errors.New("bad args")
	})
	assert.Equal(t, []string{"broken", "fixed"}, r.Kinds())

	a, err := r.Build(t.Context(), AgentSpec{
		ID:          "kb",
		Name:        "Knowledge Base",
		Description: "answers",
		Timeout:     5 * time.Second,
		Kind:        "fixed",
		Args:        util.Args{"message": "hello"},
		Keys:        []string{"secret"},
	}, Env{})
	require.NoError(t, err)
	assert.Equal(t, "Knowledge Base", a.DisplayName())
	assert.Equal(t, "answers", a.Description())
	assert.Equal(t, 5*time.Second, a.Timeout())
	assert.Equal(t, "hello s3cr3t", a.(*agent.FixedAgent).Message())

	_, err = r.Build(t.Context(), AgentSpec{ID: "x", Kind: "fixed", Keys: []string{"missing"}}, Env{})
	assert.ErrorIs(t, err, core.ErrMissingKey)

	_, err = r.Build(t.Context(), AgentSpec{ID: "x", Kind: "nope"}, Env{})
	assert.ErrorIs(t, err, core.ErrUnknownImplementation)

	_, err = r.Build(t.Context(), AgentSpec{ID: "x", Kind: "broken"}, Env{})
	assert.ErrorContains(t, err, "bad args")

	_, err = r.Build(t.Context(), AgentSpec{Kind: "fixed"}, Env{})
	assert.Error(t, err)
}

func TestRegistry_BuildRemote(t *testing.T) {
	r := New()
	d := transport.Default(nil)

	a, err := r.Build(t.Context(), AgentSpec{ID: "far", Protocol: "mock"}, Env{Dispatcher: d})
	require.NoError(t, err)
	assert.Equal(t, "mock", a.Protocol())

	cont := a.Reply(t.Context(), core.FromString("q"), "user")
	assert.False(t, cont.ReturnedError())
	assert.Len(t, cont.Messages(false), 1)

	_, err = r.Build(t.Context(), AgentSpec{ID: "far", Protocol: "http"}, Env{Dispatcher: d})
	assert.ErrorContains(t, err, "details.url")

	_, err = r.Build(t.Context(), AgentSpec{ID: "far", Protocol: "carrier-pigeon", Details: core.Details{"url": "http://far"}}, Env{Dispatcher: d})
	assert.ErrorIs(t, err, core.ErrUnknownProtocol)

	_, err = r.Build(t.Context(), AgentSpec{ID: "far", Protocol: "mock"}, Env{})
	assert.ErrorIs(t, err, core.ErrUnknownProtocol)
}

func TestDetectCycles(t *testing.T) {
	a := agent.NewFixedAgent("a", "")
	b := agent.NewFixedAgent("b", "")
	c := agent.NewFixedAgent("c", "")
	a.SetConnected(core.NewDirectory(b, c))
	b.SetConnected(core.NewDirectory(c))

	r := New()
	r.MustRegister(a)
	require.NoError(t, r.DetectCycles())

	c.SetConnected(core.NewDirectory(a))
	err := r.DetectCycles()
	require.ErrorIs(t, err, core.ErrCycle)
	assert.Contains(t, err.Error(), "a -> b -> c -> a")
}
