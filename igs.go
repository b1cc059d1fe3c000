// Shared domain types
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

// Package igs holds the types shared by every subsystem of the
// tournament server: players, games, moves and match results. It has
// no dependencies of its own so that board, rating, sgf, db, proto,
// game, sched and web can all import it without cycles.
package igs

import (
	"fmt"
	"time"
)

// Color is a side of the board.
type Color bool

const (
	Black Color = false
	White Color = true
)

func (c Color) String() string {
	if c == White {
		return "w"
	}
	return "b"
}

// Opponent returns the other color.
func (c Color) Opponent() Color {
	return !c
}

// Player is a persisted account: a name/password pair with a running
// Elo rating and K-factor. Mirrors spec.md §3's Player record.
type Player struct {
	Name     string
	Secret   string // hashed or plain, per conf.Config.HashPasswords
	Games    int
	Rating   float64
	K        float64
	LastGame time.Time

	// IsAnchor pins Rating after every rated game instead of letting
	// the batch move it; Anchor is the value it is pinned to.
	IsAnchor bool
	Anchor   float64
}

// Anchor is a player whose rating is pinned after every rated game.
type Anchor struct {
	Name   string
	Rating float64
}

// Printable renders a rating the way spec.md §4.6 describes: an
// integer, clamped at zero, suffixed with "?" while K is still high
// (the player is "provisional").
func Printable(rating, k float64) string {
	if rating < 0 {
		rating = 0
	}
	s := fmt.Sprintf("%.0f", rating)
	if k > 16 {
		s += "?"
	}
	return s
}

// GameRecord is a game as read back from storage, finished or not:
// enough to render a viewer's "match" line or an archived "setup"
// reply (spec.md §4.4).
type GameRecord struct {
	GID         int64
	White       string
	Black       string
	WhiteRating string
	BlackRating string
	Size        int
	Komi        float64
	Started     time.Time
	Finished    time.Time // zero if still in progress
	Result      Result    // empty if still in progress
}

// Move is one accepted ply: the move text, the clock remaining for
// the mover immediately after the move was applied, and an optional
// opaque analysis payload (pass-through JSON, never validated beyond
// "is this well-formed JSON").
type Move struct {
	Text      string
	RemainMs  int64
	Analysis  string // raw JSON object text, empty if absent
	Timestamp time.Time
}

// Result is the outcome of a finished game, rendered with the grammar
// from spec.md §6: "(W|B)+(Resign|Time|Illegal|<number>)", "Draw", or
// "Abort".
type Result string

const (
	ResultAbort Result = "Abort"
	ResultDraw  Result = "Draw"
)

// WinBy builds a result string for a decisive game.
func WinBy(winner Color, reason string) Result {
	prefix := "B"
	if winner == White {
		prefix = "W"
	}
	return Result(prefix + "+" + reason)
}

// Score returns the first-character outcome used by the rating batch:
// 1.0 for a win, 0.0 for a loss, 0.5 for anything else (draw, abort).
// `self` is the color whose score is wanted.
func (r Result) Score(self Color) float64 {
	if len(r) == 0 {
		return 0.5
	}
	switch r[0] {
	case 'B':
		if self == Black {
			return 1.0
		}
		return 0.0
	case 'W':
		if self == White {
			return 1.0
		}
		return 0.0
	default:
		return 0.5
	}
}

// Terminal reports whether a result string represents a finished game.
func (r Result) Terminal() bool {
	return r != ""
}
