package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laila/internal/db"
	"laila/internal/llm"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "sessions", "laila.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())
	return NewStore(database)
}

func TestSaveAndLoad(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureSession(ctx, "s1", "http"))
	require.NoError(t, s.EnsureSession(ctx, "s1", "http"))
	require.NoError(t, s.SaveTurn(ctx, "s1", "first question", "first answer", "m"))
	require.NoError(t, s.SaveTurn(ctx, "s1", "second question", "second answer", ""))

	msgs, err := s.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.UserMessage("first question"), msgs[0])
	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "first answer", msgs[1].Content)
	assert.Equal(t, "second answer", msgs[3].Content)

	other, err := s.LoadHistory(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSaveTurnNeedsSession(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	err := s.SaveTurn(ctx, "missing", "q", "a", "")
	assert.ErrorIs(t, err, ErrUnknownSession)

	msgs, err := s.LoadHistory(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSaveTurnCanceledContextWritesNothing(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSession(ctx, "s1", "http"))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	require.Error(t, s.SaveTurn(canceled, "s1", "q", "a", ""))

	msgs, err := s.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMigrateIsIdempotent(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, database.Migrate())
	require.NoError(t, database.Migrate())
}
