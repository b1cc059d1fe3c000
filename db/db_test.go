package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-igs"
	"go-igs/db"
)

func open(t *testing.T) *db.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := db.Open(path, 1, 5*time.Second, testLogger(), testLogger())
	require.NoError(t, err)
	go s.Start()
	t.Cleanup(s.Shutdown)
	return s
}

func TestUpsertThenFetchPlayer(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPlayer(ctx, igs.Player{Name: "alice", Secret: "x", Rating: 1500, K: 30}))

	p, ok, err := s.Player(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1500.0, p.Rating)
	assert.Equal(t, 30.0, p.K)
}

func TestPlayerMissingIsNotFound(t *testing.T) {
	s := open(t)
	_, ok, err := s.Player(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGameLifecycle(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPlayer(ctx, igs.Player{Name: "a", Secret: "x", Rating: 1500, K: 30}))
	require.NoError(t, s.UpsertPlayer(ctx, igs.Player{Name: "b", Secret: "x", Rating: 1500, K: 30}))

	gid, err := s.StartGame(ctx, "a", "b", 9, 6.5)
	require.NoError(t, err)
	assert.Greater(t, gid, int64(0))

	require.NoError(t, s.RecordMove(ctx, gid, 0, igs.Move{Text: "e5", RemainMs: 59000, Timestamp: time.Now()}))
	require.NoError(t, s.FinishGame(ctx, gid, igs.WinBy(igs.Black, "Resign")))

	rows, err := s.UnratedGames(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, gid, rows[0].GID)

	require.NoError(t, s.MarkRated(ctx, []int64{gid}))
	rows, err = s.UnratedGames(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 0)
}

func TestHeadToHeadCountsBothDirections(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPlayer(ctx, igs.Player{Name: "a", Secret: "x", Rating: 1500, K: 30}))
	require.NoError(t, s.UpsertPlayer(ctx, igs.Player{Name: "b", Secret: "x", Rating: 1500, K: 30}))

	_, err := s.StartGame(ctx, "a", "b", 9, 6.5)
	require.NoError(t, err)
	_, err = s.StartGame(ctx, "a", "b", 9, 6.5)
	require.NoError(t, err)
	_, err = s.StartGame(ctx, "b", "a", 9, 6.5)
	require.NoError(t, err)

	asWhite, asBlack, err := s.HeadToHead(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, asWhite)
	assert.Equal(t, 1, asBlack)
}
