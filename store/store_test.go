package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleybot/parley/directory"
	"github.com/parleybot/parley/history"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "parley.sqlite")
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}

func TestUpsertAndListUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, directory.User{
		Username:    "alice",
		DisplayName: "Alice",
		AddressForm: directory.AddressInformal,
	}))
	require.NoError(t, s.UpsertUser(ctx, directory.User{
		Username:     "bob",
		DisplayName:  "Robert",
		AddressForm:  directory.AddressFormal,
		VoiceEnabled: true,
	}))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.False(t, users[0].VoiceEnabled)
	assert.Equal(t, directory.AddressFormal, users[1].AddressForm)
	assert.True(t, users[1].VoiceEnabled)
}

func TestSetVoiceEnabled(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, directory.User{Username: "alice", DisplayName: "Alice"}))

	require.NoError(t, s.SetVoiceEnabled(ctx, "alice", true))
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.True(t, users[0].VoiceEnabled)

	require.NoError(t, s.SetVoiceEnabled(ctx, "alice", false))
	users, err = s.ListUsers(ctx)
	require.NoError(t, err)
	assert.False(t, users[0].VoiceEnabled)

	assert.Error(t, s.SetVoiceEnabled(ctx, "nobody", true))
}

func TestRegisterChatIsSetOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, directory.User{Username: "alice", DisplayName: "Alice"}))

	require.NoError(t, s.RegisterChat(ctx, "alice", 111))
	// A later registration with a different chat must not move the user.
	require.NoError(t, s.RegisterChat(ctx, "alice", 222))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(111), users[0].ChatID)
}

func TestHistoryWindowRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		role := history.RoleUser
		if i%2 == 1 {
			role = history.RoleAssistant
		}
		require.NoError(t, s.AppendTurn(ctx, history.Turn{
			ChatID:    42,
			Role:      role,
			Content:   string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	// Another chat's turns never leak into the window.
	require.NoError(t, s.AppendTurn(ctx, history.Turn{
		ChatID: 43, Role: history.RoleUser, Content: "other", CreatedAt: base,
	}))

	turns, err := s.RecentTurns(ctx, 42, 10)
	require.NoError(t, err)
	require.Len(t, turns, 10)
	// Most recent first from the backend.
	assert.Equal(t, "l", turns[0].Content)
	assert.Equal(t, "c", turns[9].Content)

	log := history.NewLog(s)
	window, err := log.Recent(ctx, 42)
	require.NoError(t, err)
	require.Len(t, window, 10)
	assert.Equal(t, "c", window[0].Content)
	assert.Equal(t, "l", window[9].Content)
	for i := 1; i < len(window); i++ {
		assert.False(t, window[i].CreatedAt.Before(window[i-1].CreatedAt))
	}
}

func TestClearHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, history.Turn{ChatID: 1, Role: history.RoleUser, Content: "hi"}))
	require.NoError(t, s.ClearHistory(ctx, 1))

	turns, err := s.RecentTurns(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, turns)

	// Idempotent.
	require.NoError(t, s.ClearHistory(ctx, 1))
}

func TestCreatedAtTiesBrokenByInsertOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, s.AppendTurn(ctx, history.Turn{
			ChatID: 5, Role: history.RoleUser, Content: content, CreatedAt: at,
		}))
	}

	turns, err := s.RecentTurns(ctx, 5, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "third", turns[0].Content)
	assert.Equal(t, "second", turns[1].Content)
}
