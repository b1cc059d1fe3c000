package sched_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-igs"
	"go-igs/conf"
	"go-igs/proto"
	"go-igs/rating"
	"go-igs/sched"
)

type fakeDB struct{}

func (fakeDB) String() string { return "fakeDB" }
func (fakeDB) Start()         {}
func (fakeDB) Shutdown()      {}

func (fakeDB) Player(context.Context, string) (igs.Player, bool, error)  { return igs.Player{}, false, nil }
func (fakeDB) UpsertPlayer(context.Context, igs.Player) error            { return nil }
func (fakeDB) Players(context.Context) ([]igs.Player, error)             { return nil, nil }
func (fakeDB) StartGame(context.Context, string, string, int, float64) (int64, error) {
	return 0, nil
}
func (fakeDB) RecordMove(context.Context, int64, int, igs.Move) error { return nil }
func (fakeDB) FinishGame(context.Context, int64, igs.Result) error    { return nil }
func (fakeDB) HeadToHead(context.Context, string, string) (int, int, error) {
	return 0, 0, nil
}
func (fakeDB) UnratedGames(context.Context) ([]rating.GameRow, error) { return nil, nil }
func (fakeDB) MarkRated(context.Context, []int64) error               { return nil }
func (fakeDB) RecentGames(context.Context, int) ([]igs.GameRecord, error) { return nil, nil }
func (fakeDB) GameByID(context.Context, int64) (igs.GameRecord, []igs.Move, bool, error) {
	return igs.GameRecord{}, nil, false, nil
}

func newScheduler(t *testing.T) (*sched.Scheduler, *conf.Config) {
	t.Helper()
	cfg := conf.Default()
	cfg.PresetsPath = ""
	cfg.BadwordsPath = filepath.Join(t.TempDir(), "badwords.txt")
	cfg.KillFilePath = filepath.Join(t.TempDir(), "igs.kill")
	return sched.New(cfg, fakeDB{}, proto.NewRegistry(), proto.NewViewers()), cfg
}

func TestNewSchedulerSatisfiesRoles(t *testing.T) {
	s, _ := newScheduler(t)
	assert.Equal(t, "sched", s.String())
	assert.Empty(t, s.ActiveGames())
}

func TestAbortUnknownGameIsAnError(t *testing.T) {
	s, _ := newScheduler(t)
	assert.Error(t, s.Abort(999))
}

func TestPairRequiresBothSidesWaiting(t *testing.T) {
	s, _ := newScheduler(t)
	err := s.Pair("alice", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not waiting")
}

func TestPairRejectsSelfMatch(t *testing.T) {
	s, _ := newScheduler(t)
	err := s.Pair("alice", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "itself")
}

func TestKillFilePathIsAbsentUntilWritten(t *testing.T) {
	_, cfg := newScheduler(t)
	_, err := os.Stat(cfg.KillFilePath)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, os.WriteFile(cfg.KillFilePath, []byte("x"), 0o644))
	_, err = os.Stat(cfg.KillFilePath)
	assert.NoError(t, err)
}
