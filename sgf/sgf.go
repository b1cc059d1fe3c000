// SGF-FF4 serialization of a finished (or in-progress) game
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

// Package sgf serializes a game record to Smart Game Format, FF4,
// Chinese rules, as described in spec.md §6: one property list per
// move carrying a timestamp and optional analysis under a custom CC[]
// property, plus the usual game-info header.
package sgf

import (
	"fmt"
	"strings"
	"time"

	"go-igs"
)

// Record is everything needed to render one game's SGF text.
type Record struct {
	GID           int64
	Size          int
	Komi          float64
	White, Black  string
	WhiteRating   string
	BlackRating   string
	Started       time.Time
	Result        igs.Result // "?" if still in progress
	Moves         []igs.Move
	ErrorComment  string
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `]`, `\]`)
	return s
}

// coordToSGF converts the wire coordinate grammar ("pass" or
// letter-digit, 'i' skipped) into SGF's own letter-letter pair.
// Returns "" for a pass, matching SGF convention of an empty value.
func coordToSGF(mv string, size int) string {
	if strings.EqualFold(mv, "pass") {
		return ""
	}
	if len(mv) < 2 {
		return ""
	}
	const cols = "abcdefghjklmnopqrstuvwxyz"
	ci := strings.Index(cols, strings.ToLower(mv[:1]))
	if ci < 0 {
		return ""
	}
	var row int
	fmt.Sscanf(mv[1:], "%d", &row)
	if row < 1 || row > size {
		return ""
	}
	// SGF coordinates are zero-based letters, top-left origin, y
	// increasing downward; our wire grammar counts rows from the
	// bottom.
	sgfX := byte('a' + ci)
	sgfY := byte('a' + (size - row))
	return string([]byte{sgfX, sgfY})
}

// Render produces the SGF-FF4 text for r.
func Render(r Record) string {
	var sb strings.Builder

	sb.WriteString("(;FF[4]GM[1]CA[UTF-8]AP[go-igs]\n")
	fmt.Fprintf(&sb, "SZ[%d]KM[%.1f]RU[Chinese]\n", r.Size, r.Komi)
	fmt.Fprintf(&sb, "PW[%s]PB[%s]\n", escape(r.White), escape(r.Black))
	if r.WhiteRating != "" {
		fmt.Fprintf(&sb, "WR[%s]", escape(r.WhiteRating))
	}
	if r.BlackRating != "" {
		fmt.Fprintf(&sb, "BR[%s]", escape(r.BlackRating))
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "DT[%s]\n", r.Started.Format("2006-01-02"))
	result := string(r.Result)
	if result == "" {
		result = "?"
	}
	fmt.Fprintf(&sb, "RE[%s]\n", escape(result))
	if r.ErrorComment != "" {
		fmt.Fprintf(&sb, "C[%s]\n", escape(r.ErrorComment))
	}

	color := igs.Black
	for _, mv := range r.Moves {
		tag := "B"
		if color == igs.White {
			tag = "W"
		}
		coord := coordToSGF(mv.Text, r.Size)
		fmt.Fprintf(&sb, ";%s[%s]", tag, coord)
		fmt.Fprintf(&sb, "C[t=%s ms=%d", mv.Timestamp.Format(time.RFC3339), mv.RemainMs)
		sb.WriteString("]")
		if mv.Analysis != "" {
			fmt.Fprintf(&sb, "CC[%s]", escape(mv.Analysis))
		}
		sb.WriteString("\n")
		color = color.Opponent()
	}

	sb.WriteString(")\n")
	return sb.String()
}

// Path returns the on-disk path for a finished game's SGF file,
// following spec.md §6: <htmlDir>/<sgfDir>/YYYY/MM/DD/<gid>.sgf
func Path(htmlDir, sgfDir string, gid int64, when time.Time) string {
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%d.sgf",
		strings.TrimRight(htmlDir, "/"),
		strings.Trim(sgfDir, "/"),
		when.Year(), when.Month(), when.Day(),
		gid)
}
