// Admin console
//
// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package proto

import (
	"fmt"
	"strings"

	"go-igs"
	"go-igs/game"
)

// ActiveGame is what the admin console's "games" command reports
// about one in-progress match.
type ActiveGame struct {
	GID         int64
	White       string
	Black       string
	Ply         int
	Size        int
	Komi        float64
	WhiteRating string
	BlackRating string
}

// Operator is the subset of the scheduler the admin console drives:
// forcing an immediate pairing, aborting a running game, and listing
// what is currently in progress (spec.md §4.7).
type Operator interface {
	Pair(white, black string) error
	Abort(gid int64) error
	ActiveGames() []ActiveGame

	// Rejoin looks up a live game the named player currently occupies
	// (spec.md §4.2's login-time scan), without disturbing it.
	Rejoin(name string) (g *game.Game, color igs.Color, ok bool)

	// AttachRejoined swaps sess in as the occupant of color in gid's
	// live game. Call it only after the caller has already sent the
	// catch-up setup line: it lets the game's Play loop see the new
	// seat and, if it's that side's turn, reissue genmove, which would
	// otherwise race ahead of the setup line.
	AttachRejoined(gid int64, color igs.Color, sess *Session)

	// LiveGame looks up a still-running game by id, for a viewer's
	// "observe" (spec.md §4.4) against a game that hasn't finished.
	LiveGame(gid int64) (*game.Game, bool)
}

// handleAdminLine parses and executes one admin command, logged in
// over the very same listener and line protocol as a player, the way
// spec.md §4.7 describes and the original ADMIN_USER convention
// worked: same socket, a privileged name.
func (s *Session) handleAdminLine(line string) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return
	}

	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "who":
		s.adminWho()
	case "games":
		s.adminGames()
	case "match":
		s.adminMatch(args)
	case "abort":
		s.adminAbort(args)
	case "quit":
		s.conn.Send("Quit")
		s.Close()
	default:
		s.conn.Send("unknown command")
	}
}

// adminWho implements spec.md §4.7's "who" command: one line per
// logged-in session, "<name> <state> <gid> <rating> <k> <idle-secs>".
// The trailing idle column is not in the original grammar; it is
// appended rather than interleaved so existing parsers of the first
// five fields keep working.
func (s *Session) adminWho() {
	for _, sess := range s.reg.LoggedIn() {
		r, k := sess.Rating()
		s.conn.Send("%s %s %d %s %.0f %d",
			sess.Name(), sess.getState(), sess.idleGID(), igs.Printable(r, k), k, int(sess.IdleFor().Seconds()))
	}
}

func (s *Session) adminGames() {
	for _, g := range s.op.ActiveGames() {
		s.conn.Send("match %d %s %s %d %d %.1f %s %s",
			g.GID, g.White, g.Black, g.Ply, g.Size, g.Komi, g.WhiteRating, g.BlackRating)
	}
}

func (s *Session) adminMatch(args []string) {
	if len(args) != 2 {
		s.conn.Send("usage: match <white> <black>")
		return
	}
	if args[0] == args[1] {
		s.conn.Send("same player %s %s", args[0], args[1])
		return
	}
	if err := s.op.Pair(args[0], args[1]); err != nil {
		s.conn.Send("%s", err)
		return
	}
	s.conn.Send("match %s %s", args[0], args[1])
}

func (s *Session) adminAbort(args []string) {
	if len(args) != 1 {
		s.conn.Send("usage: abort <gid>")
		return
	}
	var gid int64
	if _, err := fmt.Sscanf(args[0], "%d", &gid); err != nil {
		s.conn.Send("bad game")
		return
	}
	if err := s.op.Abort(gid); err != nil {
		s.conn.Send("%s", err)
		return
	}
	s.conn.Send("aborted %d", gid)
}
