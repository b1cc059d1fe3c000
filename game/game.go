// Game runtime
//
// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-igs is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-igs. If not, see
// <http://www.gnu.org/licenses/>

// Package game runs one match to completion: it asks each side for a
// move in turn, feeds the reply through the board, keeps the clocks,
// and reports every move to whoever is watching, mirroring the
// coordinator role the teacher's game.go plays for a Kalah game, but
// driven by the Go rules in package board instead of house pits.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-igs"
	"go-igs/board"
)

// Seat is the side of the board a client occupies. A Game never talks
// to a network connection directly; it asks a Seat for a move and
// lets the protocol layer worry about sockets, timeouts on its own
// line, and disconnection.
type Seat interface {
	// Name identifies the seat's player for logging and persistence.
	Name() string

	// RequestMove asks for the next move given the current board
	// text and remaining clock, in milliseconds. It returns the move
	// text ("pass", "resign" or a coordinate) and, optionally, an
	// engine analysis comment. ErrSeatDisconnected makes Play retry
	// this side's seat; any other error ends the game by forfeit.
	RequestMove(ctx context.Context, boardText string, remainMs int64) (mv, analysis string, err error)
}

// Observer is notified as a game progresses, the hook viewer
// broadcast and SGF archival are built on.
type Observer interface {
	MoveMade(g *Game, color igs.Color, mv igs.Move)
	GameOver(g *Game, result igs.Result)
}

// ErrSeatDisconnected is returned by RequestMove when the underlying
// connection is gone. It is not terminal on its own: Play retries the
// same side's seat (which may by then have been swapped in by a
// reconnect, see ReplaceSeat) rather than forfeiting immediately, so a
// dropped connection doesn't end the game before the player has a
// chance to log back in.
var ErrSeatDisconnected = errors.New("seat disconnected")

// disconnectRetryInterval is how long Play waits between re-fetching a
// disconnected side's seat before trying RequestMove again.
const disconnectRetryInterval = 250 * time.Millisecond

// Game is one match in progress.
type Game struct {
	ID      int64
	Board   *board.Board
	White   Seat
	Black   Seat
	ClockMs int64
	clocks  map[igs.Color]*Clock
	Moves   []igs.Move
	Started time.Time

	Observers []Observer

	// mu guards White, Black, moveStarted and abortReason: state a
	// concurrent reconnect (ReplaceSeat) or scheduler sweep
	// (CheckTimeout, MarkTimedOut) touches from outside Play's own
	// goroutine.
	mu          sync.Mutex
	moveStarted time.Time
	abortReason string
}

// colorOf converts a board.Cell (which carries Empty/Border states a
// side-to-move never takes) into the two-valued igs.Color.
func colorOf(c board.Cell) igs.Color {
	if c == board.White {
		return igs.White
	}
	return igs.Black
}

// sinceMs is elapsed time since started, less leewayMs, clamped to
// zero. Play calls it with no leeway to preview a clock reading before
// the move that will actually charge it has arrived.
func sinceMs(started time.Time, leewayMs int64) int64 {
	ms := time.Since(started).Milliseconds() - leewayMs
	if ms < 0 {
		ms = 0
	}
	return ms
}

// New starts a game on a fresh board of the given size/komi.
func New(id int64, size int, komi float64, rule board.KoRule, white, black Seat, clockMs, leewayMs int64) *Game {
	return &Game{
		ID:      id,
		Board:   board.New(size, komi, rule),
		White:   white,
		Black:   black,
		ClockMs: clockMs,
		clocks: map[igs.Color]*Clock{
			igs.White: NewClock(clockMs, leewayMs),
			igs.Black: NewClock(clockMs, leewayMs),
		},
		Started: time.Now(),
	}
}

// ReplaceSeat swaps in seat (a freshly reconnected session) as the
// occupant of color c. Play's retry loop picks up the change the next
// time it re-fetches the side to move's seat, without needing the
// disconnected occupant's blocked RequestMove call to return first.
func (g *Game) ReplaceSeat(c igs.Color, seat Seat) {
	g.mu.Lock()
	if c == igs.White {
		g.White = seat
	} else {
		g.Black = seat
	}
	g.mu.Unlock()
}

// Remaining reports a seat's clock, in milliseconds.
func (g *Game) Remaining(c igs.Color) int64 { return g.clocks[c].Remaining() }

// CheckTimeout is the scheduler's periodic sweep backstop (spec.md
// §4.5 step 1): it debits elapsed time since the side-to-move's
// current request began from that side's clock, without waiting for a
// reply, and reports the responsible seat if the result would be
// negative. It never mutates the clock itself -- only the reply path
// in Play does that -- because the caller is expected to terminate the
// game immediately when this returns true.
func (g *Game) CheckTimeout(now time.Time) (Seat, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.moveStarted.IsZero() {
		return nil, false
	}

	toMove := colorOf(g.Board.ToMove())
	clock := g.clocks[toMove]

	ms := now.Sub(g.moveStarted).Milliseconds() - clock.leewayMs
	if ms < 0 {
		ms = 0
	}
	if clock.remainMs-ms < 0 {
		return g.seatLocked(toMove), true
	}
	return nil, false
}

// MarkTimedOut records that seatName is being terminated by the
// scheduler's sweep rather than an operator abort, so the forfeit
// reason Play reports once ctx is cancelled reads "forfeits on time"
// instead of "Abort by operator".
func (g *Game) MarkTimedOut(seatName string) {
	g.mu.Lock()
	g.abortReason = fmt.Sprintf("%s forfeits on time", seatName)
	g.mu.Unlock()
}

func (g *Game) reasonForAbort() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.abortReason != "" {
		return g.abortReason
	}
	return "Abort by operator"
}

// seatLocked reads the current occupant of c. The caller must already
// hold g.mu (used from CheckTimeout, which takes the lock for the
// whole of its work).
func (g *Game) seatLocked(c igs.Color) Seat {
	if c == igs.White {
		return g.White
	}
	return g.Black
}

// seat reads the current occupant of c, taking g.mu itself. Play uses
// this (never seatLocked) because it does not otherwise hold the lock,
// and a reconnect's ReplaceSeat can swap White/Black concurrently.
func (g *Game) seat(c igs.Color) Seat {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seatLocked(c)
}

// Play runs the game to completion, alternating move requests until
// both sides pass, a side resigns, flags, disconnects, or ctx is
// cancelled (an operator abort). It returns the terminal result.
func (g *Game) Play(ctx context.Context) igs.Result {
	for {
		select {
		case <-ctx.Done():
			return g.forfeit(g.reasonForAbort())
		default:
		}

		toMove := colorOf(g.Board.ToMove())
		clock := g.clocks[toMove]

		// moveStarted is fixed for the whole of this move, including
		// any disconnect/retry below, so the eventual elapsed-time
		// charge reflects true wall-clock time spent waiting on this
		// side, not just the time since its latest reconnect.
		started := time.Now()
		g.mu.Lock()
		g.moveStarted = started
		g.mu.Unlock()

		var seat Seat
		var mv, analysis string
		var err error

		// No per-request deadline: game-clock timeouts are never
		// enforced by a real timer cancelling the pending request.
		// RequestMove blocks until a line arrives, the connection
		// drops, or the game is torn down; overrun is caught only by
		// the elapsed-time charge below, once a reply actually
		// arrives, and by the scheduler's periodic sweep for a side
		// that never replies at all. A disconnected seat is retried
		// against whatever seat occupies the side next (a reconnect
		// swaps it in via ReplaceSeat) rather than forfeiting at
		// once.
	retry:
		for {
			seat = g.seat(toMove)
			// A retry after a disconnect reports remaining clock as of
			// now, not as of when the move started (spec.md's Rejoin:
			// "remaining clock = stored remaining - (now -
			// last-move-start)"), so a reconnecting player sees an
			// accurate genmove deadline.
			remain := clock.Remaining() - sinceMs(started, 0)
			if remain < 0 {
				remain = 0
			}
			mv, analysis, err = seat.RequestMove(ctx, g.Board.String(), remain)
			if !errors.Is(err, ErrSeatDisconnected) {
				break
			}
			select {
			case <-ctx.Done():
				err = ctx.Err()
				break retry
			case <-time.After(disconnectRetryInterval):
			}
		}
		elapsed := time.Since(started)

		if errors.Is(err, context.Canceled) {
			return g.forfeit(g.reasonForAbort())
		}

		if clock.Charge(elapsed) {
			return g.forfeit(fmt.Sprintf("%s forfeits on time", seat.Name()))
		}

		if err != nil {
			return g.forfeit(fmt.Sprintf("%s disconnected", seat.Name()))
		}

		if mv == "resign" {
			return g.finish(igs.WinBy(toMove.Opponent(), "Resign"))
		}

		code := g.Board.Make(mv)
		if code < board.Captured0 {
			return g.forfeit(fmt.Sprintf("%s made an illegal move", seat.Name()))
		}

		move := igs.Move{Text: mv, RemainMs: clock.Remaining(), Analysis: analysis, Timestamp: time.Now()}
		g.Moves = append(g.Moves, move)
		for _, obs := range g.Observers {
			obs.MoveMade(g, toMove, move)
		}

		if g.Board.TwoPass() {
			return g.finish(g.scoreResult())
		}
	}
}

func (g *Game) scoreResult() igs.Result {
	score := float64(g.Board.Score()) - g.Board.Komi()
	if score > 0 {
		return igs.WinBy(igs.Black, fmt.Sprintf("%.1f", score))
	}
	if score < 0 {
		return igs.WinBy(igs.White, fmt.Sprintf("%.1f", -score))
	}
	return igs.ResultDraw
}

func (g *Game) finish(result igs.Result) igs.Result {
	for _, obs := range g.Observers {
		obs.GameOver(g, result)
	}
	return result
}

func (g *Game) forfeit(reason string) igs.Result {
	return g.finish(igs.WinBy(colorOf(g.Board.ToMove()).Opponent(), reason))
}
