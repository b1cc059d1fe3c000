// Snapshot file writer
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

// Package web owns the one artifact spec.md §6 asks the server to
// produce for a separate web layer: a flat snapshot file of standings
// and running games, rewritten every round. The teacher's web.go
// renders full HTML pages from a live template set -- out of scope
// here (see SPEC_FULL.md's non-goals) -- but the underlying
// write-then-rename trick that makes its page cache glitch-free is
// exactly what a concurrently-read snapshot file needs too.
package web

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go-igs"
)

// Standing is one player's row in the snapshot.
type Standing struct {
	Name   string
	Rating float64
	K      float64
	Games  int
}

// Running is one in-progress game's row in the snapshot.
type Running struct {
	GID    int64
	White  string
	Black  string
	Size   int
	Komi   float64
}

// Writer rewrites the snapshot file atomically: it renders to a
// temporary file in the same directory and renames it over the
// target, so a reader never observes a partially-written file.
type Writer struct {
	path string
}

// NewWriter targets path as the snapshot file to keep up to date.
func NewWriter(path string) *Writer { return &Writer{path: path} }

// Write renders standings (highest rating first) and the currently
// running games, and atomically replaces the snapshot file.
func (w *Writer) Write(standings []Standing, running []Running) error {
	sorted := append([]Standing(nil), standings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rating > sorted[j].Rating })

	var sb strings.Builder
	for _, s := range sorted {
		fmt.Fprintf(&sb, "player %s %s %d\n", s.Name, igs.Printable(s.Rating, s.K), s.Games)
	}
	for _, r := range running {
		fmt.Fprintf(&sb, "game %d %s %s %d %.1f\n", r.GID, r.White, r.Black, r.Size, r.Komi)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, w.path)
}
