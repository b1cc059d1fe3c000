// Go rules engine: legality, capture, ko, scoring
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

// Package board implements the Go rules engine: a square board with a
// one-cell sentinel border (the same trick the teacher's Kalah board
// uses for its own border pits), capture by flood-fill, positional or
// simple ko, and Tromp-Taylor area scoring. It never performs I/O and
// holds no clock state -- see package game for that.
package board

import (
	"fmt"
	"strings"
)

// Cell is the content of one board point.
type Cell uint8

const (
	Empty Cell = iota
	Black
	White
	Border
)

func (c Cell) other() Cell {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return c
	}
}

// KoRule selects how repetition is detected.
type KoRule int

const (
	// SimpleKo forbids only immediate reversion to the position
	// before the opponent's last move.
	SimpleKo KoRule = iota
	// PositionalSuperko forbids reverting to any prior snapshot.
	PositionalSuperko
)

// Result codes returned by Make, per spec.md §4.1.
const (
	Captured0      = 0  // legal, no captures (result is >= 0 capture count)
	ErrSuicide     = -1
	ErrKo          = -2
	ErrOccupied    = -3
	ErrMalformed   = -4
)

// legalCols is the letter-digits coordinate alphabet: a-z with i
// skipped, so the 9th letter is j.
const legalCols = "abcdefghjklmnopqrstuvwxyz"

// Board is a square N x N Go board with a sentinel border, indexed by
// a single flat array the way the teacher's Kalah board is flat per
// side. stride is N+2 (border included on every edge).
type Board struct {
	size    int
	stride  int
	cells   []Cell
	komi    float64
	rule    KoRule
	ply     int // even = black to move, odd = white to move
	history [][]Cell
	passes  int // consecutive passes so far
}

// New creates an empty board of the given size and komi.
func New(size int, komi float64, rule KoRule) *Board {
	stride := size + 2
	b := &Board{
		size:   size,
		stride: stride,
		cells:  make([]Cell, stride*stride),
		komi:   komi,
		rule:   rule,
	}
	for y := 0; y < stride; y++ {
		for x := 0; x < stride; x++ {
			if y == 0 || y == stride-1 || x == 0 || x == stride-1 {
				b.cells[y*stride+x] = Border
			}
		}
	}
	b.snapshot()
	return b
}

func (b *Board) index(x, y int) int { return y*b.stride + x }

func (b *Board) snapshot() {
	cp := make([]Cell, len(b.cells))
	copy(cp, b.cells)
	b.history = append(b.history, cp)
}

func (b *Board) sameAs(other []Cell) bool {
	for i, c := range b.cells {
		if c != other[i] {
			return false
		}
	}
	return true
}

// ToMove returns the color whose turn it is: Black on even plies,
// White on odd ones.
func (b *Board) ToMove() Cell {
	if b.ply%2 == 0 {
		return Black
	}
	return White
}

// Ply is the number of moves (including passes) played so far.
func (b *Board) Ply() int { return b.ply }

// parseCoord destructs a move string into board coordinates. Returns
// pass=true for "pass" and ok=false for malformed input.
func (b *Board) parseCoord(mv string) (x, y int, pass, ok bool) {
	mv = strings.TrimSpace(mv)
	if strings.EqualFold(mv, "pass") {
		return 0, 0, true, true
	}
	if len(mv) < 2 {
		return 0, 0, false, false
	}
	col := strings.ToLower(mv[:1])
	ci := strings.Index(legalCols, col)
	if ci < 0 || ci >= b.size {
		return 0, 0, false, false
	}
	var row int
	if _, err := fmt.Sscanf(mv[1:], "%d", &row); err != nil {
		return 0, 0, false, false
	}
	if row < 1 || row > b.size {
		return 0, 0, false, false
	}
	// Row is 1-based counted from the bottom; cells[] is stored
	// top-down with row index 1 at the top, so flip it.
	x = ci + 1
	y = b.size - row + 1
	return x, y, false, true
}

// Make applies mv for the side to move and returns a result code:
// >= 0 is the number of stones captured (0 for a non-capturing move
// or a pass), and a negative ErrXxx constant for illegal input.
func (b *Board) Make(mv string) int {
	x, y, pass, ok := b.parseCoord(mv)
	if !ok {
		return ErrMalformed
	}
	mine := b.colorFor(b.ToMove())

	if pass {
		b.ply++
		b.passes++
		b.snapshot()
		return 0
	}

	idx := b.index(x, y)
	if b.cells[idx] != Empty {
		return ErrOccupied
	}

	pre := make([]Cell, len(b.cells))
	copy(pre, b.cells)

	b.cells[idx] = mine
	captured := 0
	enemy := mine.other()
	for _, n := range b.neighbors(x, y) {
		if b.cells[n] == enemy {
			grp := b.group(n)
			if b.liberties(grp) == 0 {
				captured += len(grp)
				for _, p := range grp {
					b.cells[p] = Empty
				}
			}
		}
	}

	if captured == 0 {
		grp := b.group(idx)
		if b.liberties(grp) == 0 {
			// Suicide: revert and reject.
			copy(b.cells, pre)
			return ErrSuicide
		}
	}

	if b.koViolated(pre) {
		copy(b.cells, pre)
		return ErrKo
	}

	b.ply++
	b.passes = 0
	b.snapshot()
	return captured
}

// koViolated checks the *resulting* position (b.cells, already
// reflecting the move just made) against history according to the
// configured ko rule. pre, the board before the move, is not read
// here; the caller reverts to it on violation.
func (b *Board) koViolated(pre []Cell) bool {
	switch b.rule {
	case PositionalSuperko:
		for _, snap := range b.history {
			if b.sameAs(snap) {
				return true
			}
		}
		return false
	default: // SimpleKo
		// The last snapshot is the position before this move; the one
		// before it is the position before the opponent's last move.
		if len(b.history) < 2 {
			return false
		}
		return b.sameAs(b.history[len(b.history)-2])
	}
}

func (b *Board) colorFor(c Cell) Cell { return c }

func (b *Board) neighbors(x, y int) []int {
	return []int{
		b.index(x-1, y),
		b.index(x+1, y),
		b.index(x, y-1),
		b.index(x, y+1),
	}
}

// group flood-fills the maximal connected group of stones sharing the
// color at idx.
func (b *Board) group(idx int) []int {
	color := b.cells[idx]
	seen := map[int]bool{idx: true}
	queue := []int{idx}
	var out []int
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		x, y := cur%b.stride, cur/b.stride
		for _, n := range b.neighbors(x, y) {
			if seen[n] {
				continue
			}
			if b.cells[n] == color {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return out
}

// liberties counts the empty points adjacent to any stone in group.
func (b *Board) liberties(group []int) int {
	seen := map[int]bool{}
	count := 0
	for _, idx := range group {
		x, y := idx%b.stride, idx/b.stride
		for _, n := range b.neighbors(x, y) {
			if seen[n] {
				continue
			}
			if b.cells[n] == Empty {
				seen[n] = true
				count++
			}
		}
	}
	return count
}

// TwoPass reports whether the last two accepted moves were both pass.
func (b *Board) TwoPass() bool {
	return b.passes >= 2
}

// Score computes the Tromp-Taylor area score (stones + surrounded
// empty territory) and returns black - white, without komi applied;
// the caller subtracts komi to get the signed game result.
func (b *Board) Score() int {
	var black, white int
	visited := make([]bool, len(b.cells))

	for y := 1; y <= b.size; y++ {
		for x := 1; x <= b.size; x++ {
			idx := b.index(x, y)
			switch b.cells[idx] {
			case Black:
				black++
			case White:
				white++
			case Empty:
				if visited[idx] {
					continue
				}
				region, borders := b.emptyRegion(idx, visited)
				switch {
				case borders[Black] && !borders[White]:
					black += len(region)
				case borders[White] && !borders[Black]:
					white += len(region)
				}
			}
		}
	}
	return black - white
}

func (b *Board) emptyRegion(start int, visited []bool) ([]int, map[Cell]bool) {
	queue := []int{start}
	visited[start] = true
	var region []int
	borders := map[Cell]bool{}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		region = append(region, cur)
		x, y := cur%b.stride, cur/b.stride
		for _, n := range b.neighbors(x, y) {
			switch b.cells[n] {
			case Empty:
				if !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			case Black, White:
				borders[b.cells[n]] = true
			}
		}
	}
	return region, borders
}

// Komi returns the configured komi for this board.
func (b *Board) Komi() float64 { return b.komi }

// Size returns the board's edge length.
func (b *Board) Size() int { return b.size }

// String renders the board as a grid, one row per line from the top,
// with X for black, O for white and . for empty; not used on the wire.
func (b *Board) String() string {
	var sb strings.Builder
	for y := 1; y <= b.size; y++ {
		for x := 1; x <= b.size; x++ {
			switch b.cells[b.index(x, y)] {
			case Black:
				sb.WriteByte('X')
			case White:
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
