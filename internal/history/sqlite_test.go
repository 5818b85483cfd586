package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "history.db")
	st, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenEmptyURLIsNoop(t *testing.T) {
	st, err := Open("")
	require.NoError(t, err)
	_, ok := st.(Noop)
	assert.True(t, ok)

	require.NoError(t, st.Append(context.Background(), Entry{UserID: "u"}))
	entries, err := st.List(context.Background(), "u", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendAndListNewestFirst(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	for i, prompt := range []string{"first", "second", "third"} {
		require.NoError(t, st.Append(ctx, Entry{
			UserID: "u1", QueryID: "q", Prompt: prompt, Answer: "a",
			Mode: "STATISTICAL", MatchingCount: i, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := st.List(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].Prompt)
	assert.Equal(t, "second", entries[1].Prompt)
}

func TestListIsolatesUsers(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Append(ctx, Entry{UserID: "u1", Prompt: "mine", Answer: "a"}))
	require.NoError(t, st.Append(ctx, Entry{UserID: "u2", Prompt: "theirs", Answer: "a"}))

	entries, err := st.List(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mine", entries[0].Prompt)
}

func TestClear(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Append(ctx, Entry{UserID: "u1", Prompt: "p", Answer: "a"}))
	require.NoError(t, st.Append(ctx, Entry{UserID: "u1", Prompt: "p2", Answer: "a"}))

	removed, err := st.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	entries, err := st.List(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
