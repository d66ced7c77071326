package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/testutil"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := t.Context()

	empty, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	req := testutil.NewHistoryBuilder().User("hi").Call("user", "kb", 0).Build()
	cont := testutil.NewHistoryBuilder().Assistant("kb", "hello").Return("user", "kb", "").Build()
	require.NoError(t, s.Append(ctx, "s1", req))
	require.NoError(t, s.Append(ctx, "s1", cont))
	require.NoError(t, s.Append(ctx, "s2", core.FromString("other")))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, append(req.Events(), cont.Events()...), got.Events())

	// returned logs are detached
	got.Append(core.NewUserMessage("local only"))
	again, _ := s.Get(ctx, "s1")
	assert.Equal(t, 4, again.Len())

	ids, err := s.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)

	require.NoError(t, s.Delete(ctx, "s1"))
	ids, _ = s.IDs(ctx)
	assert.Equal(t, []string{"s2"}, ids)

	require.NoError(t, s.Close())
}

func TestInMemoryStore(t *testing.T) {
	testStore(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(t.Context(), ":memory:")
	require.NoError(t, err)
	testStore(t, s)
}

func TestSQLiteStore_Persists(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "transcripts.db")

	s, err := NewSQLiteStore(t.Context(), dsn)
	require.NoError(t, err)
	require.NoError(t, s.Append(t.Context(), "s", core.FromString("remember me")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(t.Context(), dsn)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(t.Context(), "s")
	require.NoError(t, err)
	assert.Equal(t, core.FromString("remember me").Events()[0].(core.MessageEvent).MessageText, got.Messages(false)[0].MessageText)
}
