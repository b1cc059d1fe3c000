package proto_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-igs"
	"go-igs/conf"
	"go-igs/proto"
	"go-igs/rating"
)

type fakeDB struct {
	players map[string]igs.Player
}

func newFakeDB() *fakeDB { return &fakeDB{players: map[string]igs.Player{}} }

func (f *fakeDB) String() string { return "fakeDB" }
func (f *fakeDB) Start()         {}
func (f *fakeDB) Shutdown()      {}

func (f *fakeDB) Player(ctx context.Context, name string) (igs.Player, bool, error) {
	p, ok := f.players[name]
	return p, ok, nil
}
func (f *fakeDB) UpsertPlayer(ctx context.Context, p igs.Player) error {
	f.players[p.Name] = p
	return nil
}
func (f *fakeDB) Players(ctx context.Context) ([]igs.Player, error) { return nil, nil }
func (f *fakeDB) StartGame(ctx context.Context, white, black string, size int, komi float64) (int64, error) {
	return 1, nil
}
func (f *fakeDB) RecordMove(ctx context.Context, gid int64, ply int, mv igs.Move) error { return nil }
func (f *fakeDB) FinishGame(ctx context.Context, gid int64, result igs.Result) error    { return nil }
func (f *fakeDB) HeadToHead(ctx context.Context, a, b string) (int, int, error)         { return 0, 0, nil }
func (f *fakeDB) UnratedGames(ctx context.Context) ([]rating.GameRow, error)            { return nil, nil }
func (f *fakeDB) MarkRated(ctx context.Context, gids []int64) error                     { return nil }
func (f *fakeDB) RecentGames(ctx context.Context, limit int) ([]igs.GameRecord, error)  { return nil, nil }
func (f *fakeDB) GameByID(ctx context.Context, gid int64) (igs.GameRecord, []igs.Move, bool, error) {
	return igs.GameRecord{}, nil, false, nil
}

func dial(t *testing.T) (server net.Conn, client *bufio.Reader, clientConn net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	return a, bufio.NewReader(b), b
}

func TestLoginHandshakeReachesOK(t *testing.T) {
	cfg := conf.Default()
	cfg.HashPasswords = false
	db := newFakeDB()
	reg := proto.NewRegistry()
	view := proto.NewViewers()

	server, client, clientConn := dial(t)
	defer clientConn.Close()

	sess := proto.NewSession(proto.NewConn(server), cfg, db, reg, view, nil)
	go sess.Serve()

	readLine := func() string {
		clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := client.ReadString('\n')
		require.NoError(t, err)
		return line
	}

	assert.Contains(t, readLine(), "protocol")
	clientConn.Write([]byte("e1 genmove_analyze\r\n"))
	assert.Contains(t, readLine(), "username")
	clientConn.Write([]byte("gopher\r\n"))
	assert.Contains(t, readLine(), "password")
	clientConn.Write([]byte("secret\r\n"))
	assert.Contains(t, readLine(), "ok")
}
