package game_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-igs"
	"go-igs/board"
	"go-igs/game"
)

// scriptedSeat replies with the moves in script, in order, then
// passes forever.
type scriptedSeat struct {
	name   string
	script []string
	i      int
}

func (s *scriptedSeat) Name() string { return s.name }

func (s *scriptedSeat) RequestMove(ctx context.Context, boardText string, remainMs int64) (string, string, error) {
	if s.i >= len(s.script) {
		return "pass", "", nil
	}
	mv := s.script[s.i]
	s.i++
	return mv, "", nil
}

// blockingSeat never replies on its own; it only unblocks when ctx is
// cancelled, standing in for an engine that has stopped responding.
type blockingSeat struct{ name string }

func (s *blockingSeat) Name() string { return s.name }

func (s *blockingSeat) RequestMove(ctx context.Context, boardText string, remainMs int64) (string, string, error) {
	<-ctx.Done()
	return "", "", ctx.Err()
}

func TestTwoPassesEndsGameWithScore(t *testing.T) {
	white := &scriptedSeat{name: "white"}
	black := &scriptedSeat{name: "black"}
	g := game.New(1, 9, 6.5, board.PositionalSuperko, white, black, 60000, 0)

	result := g.Play(context.Background())
	// An empty 9x9 board scores all territory to nobody (no stones to
	// claim it), so the only non-zero term is komi: white wins.
	assert.Equal(t, igs.WinBy(igs.White, "6.5"), result)
}

func TestResignEndsGameImmediately(t *testing.T) {
	white := &scriptedSeat{name: "white", script: []string{"resign"}}
	black := &scriptedSeat{name: "black"}
	g := game.New(2, 9, 6.5, board.PositionalSuperko, white, black, 60000, 0)

	result := g.Play(context.Background())
	assert.Equal(t, igs.WinBy(igs.Black, "Resign"), result)
}

func TestIllegalMoveForfeits(t *testing.T) {
	white := &scriptedSeat{name: "white", script: []string{"zz99"}}
	black := &scriptedSeat{name: "black"}
	g := game.New(3, 9, 6.5, board.PositionalSuperko, white, black, 60000, 0)

	result := g.Play(context.Background())
	assert.Equal(t, igs.WinBy(igs.Black, "white made an illegal move"), result)
}

func TestRequestMoveHasNoPerRequestDeadline(t *testing.T) {
	white := &blockingSeat{name: "white"}
	black := &scriptedSeat{name: "black"}
	g := game.New(4, 9, 6.5, board.PositionalSuperko, white, black, 20, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		g.Play(ctx)
		close(done)
	}()

	// The clock budget (20ms) has long since elapsed; a per-request
	// context.WithTimeout would have cancelled RequestMove and ended
	// the game by now. It must still be running, since the only
	// overrun detection left is the elapsed-time charge on an
	// arriving reply and the scheduler's own periodic sweep.
	select {
	case <-done:
		t.Fatal("game ended without a reply, a sweep call, or an abort")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCheckTimeoutDetectsStalledSide(t *testing.T) {
	white := &blockingSeat{name: "white"}
	black := &scriptedSeat{name: "black"}
	g := game.New(5, 9, 6.5, board.PositionalSuperko, white, black, 50, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan igs.Result, 1)
	go func() { done <- g.Play(ctx) }()

	// Let Play enter RequestMove and record its move-start time.
	time.Sleep(20 * time.Millisecond)

	seat, timedOut := g.CheckTimeout(time.Now().Add(time.Second))
	assert.True(t, timedOut)
	assert.Equal(t, "white", seat.Name())

	g.MarkTimedOut(seat.Name())
	cancel()

	result := <-done
	assert.Equal(t, igs.WinBy(igs.Black, "white forfeits on time"), result)
}

// disconnectingSeat reports ErrSeatDisconnected once, then blocks like
// blockingSeat -- standing in for a session that dropped and is not
// (yet) replaced.
type disconnectingSeat struct {
	name string
	used bool
}

func (s *disconnectingSeat) Name() string { return s.name }

func (s *disconnectingSeat) RequestMove(ctx context.Context, boardText string, remainMs int64) (string, string, error) {
	if !s.used {
		s.used = true
		return "", "", game.ErrSeatDisconnected
	}
	<-ctx.Done()
	return "", "", ctx.Err()
}

func TestDisconnectedSeatRetriesAgainstReplacement(t *testing.T) {
	white := &disconnectingSeat{name: "white"}
	black := &scriptedSeat{name: "black"}
	g := game.New(7, 9, 6.5, board.PositionalSuperko, white, black, 60000, 0)

	done := make(chan igs.Result, 1)
	go func() { done <- g.Play(context.Background()) }()

	// Give Play's first attempt time to observe the disconnect and
	// enter its retry sleep, then attach the reconnected seat -- the
	// same sequence a real login does via Scheduler.AttachRejoined.
	time.Sleep(50 * time.Millisecond)
	g.ReplaceSeat(igs.White, &scriptedSeat{name: "white", script: []string{"pass"}})

	select {
	case result := <-done:
		// White passes once via the replacement seat, black passes
		// once via scriptedSeat's default, ending the game on score
		// rather than a forfeit -- proof Play never gave up on the
		// disconnect.
		assert.Equal(t, igs.WinBy(igs.White, "6.5"), result)
	case <-time.After(time.Second):
		t.Fatal("Play never retried the replaced seat")
	}
}

func TestCheckTimeoutNotYetExpired(t *testing.T) {
	white := &blockingSeat{name: "white"}
	black := &scriptedSeat{name: "black"}
	g := game.New(6, 9, 6.5, board.PositionalSuperko, white, black, 60000, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Play(ctx)
	time.Sleep(10 * time.Millisecond)

	_, timedOut := g.CheckTimeout(time.Now())
	assert.False(t, timedOut)
}
