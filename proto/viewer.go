// Viewer broadcast
//
// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package proto

import "sync"

// Viewers is the fan-out hub for spectator connections (protocol
// line "v1...", spec.md §4.4): a viewer is announced every new
// pairing and every finished game, but only receives moves for the
// game it has chosen to observe, same as the teacher's web/ws.go
// broadcasts board updates to its websocket clients, just over the
// plain TCP protocol this server speaks to everyone.
type Viewers struct {
	mu       sync.Mutex
	conn     map[*Conn]struct{}
	observed map[int64]map[*Conn]struct{}
	gidOf    map[*Conn]int64
}

// NewViewers creates an empty hub.
func NewViewers() *Viewers {
	return &Viewers{
		conn:     make(map[*Conn]struct{}),
		observed: make(map[int64]map[*Conn]struct{}),
		gidOf:    make(map[*Conn]int64),
	}
}

// Add registers c as a viewer.
func (v *Viewers) Add(c *Conn) {
	v.mu.Lock()
	v.conn[c] = struct{}{}
	v.mu.Unlock()
}

// Count reports how many viewers are currently connected.
func (v *Viewers) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.conn)
}

// Remove drops c, e.g. once its connection has closed, including
// whatever game it had chosen to observe.
func (v *Viewers) Remove(c *Conn) {
	v.mu.Lock()
	delete(v.conn, c)
	v.unobserveLocked(c)
	v.mu.Unlock()
}

// Observe switches c to watching gid's moves exclusively, replacing
// whatever game it was observing before (spec.md §4.4's "observe
// <gid>").
func (v *Viewers) Observe(c *Conn, gid int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.unobserveLocked(c)
	if v.observed[gid] == nil {
		v.observed[gid] = make(map[*Conn]struct{})
	}
	v.observed[gid][c] = struct{}{}
	v.gidOf[c] = gid
}

// unobserveLocked drops c from whatever gid it last observed. Caller
// must hold v.mu.
func (v *Viewers) unobserveLocked(c *Conn) {
	gid, ok := v.gidOf[c]
	if !ok {
		return
	}
	delete(v.gidOf, c)
	set := v.observed[gid]
	delete(set, c)
	if len(set) == 0 {
		delete(v.observed, gid)
	}
}

// Broadcast sends a formatted line to every registered viewer,
// dropping any connection that fails to accept it.
func (v *Viewers) Broadcast(format string, args ...interface{}) {
	v.mu.Lock()
	targets := make([]*Conn, 0, len(v.conn))
	for c := range v.conn {
		targets = append(targets, c)
	}
	v.mu.Unlock()

	for _, c := range targets {
		if err := c.Send(format, args...); err != nil {
			v.Remove(c)
		}
	}
}

// notify sends a formatted line to only the viewers currently
// observing gid.
func (v *Viewers) notify(gid int64, format string, args ...interface{}) {
	v.mu.Lock()
	set := v.observed[gid]
	targets := make([]*Conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	v.mu.Unlock()

	for _, c := range targets {
		if err := c.Send(format, args...); err != nil {
			v.Remove(c)
		}
	}
}

// MatchStarted announces a new pairing to every viewer, in the same
// "match" line shape a handshake or an observe fallback uses for an
// archived game, with no move history and no result yet.
func (v *Viewers) MatchStarted(gid int64, size int, komi float64, white, whiteRating, black, blackRating string) {
	v.Broadcast("match %d - - %d %.1f %s(%s) %s(%s) -", gid, size, komi, white, whiteRating, black, blackRating)
}

// MoveMade announces one accepted move only to the viewers currently
// observing gid.
func (v *Viewers) MoveMade(gid int64, mv string, remainMs int64) {
	v.notify(gid, "update %d %s %d", gid, mv, remainMs)
}

// GameOver announces a finished game to every viewer (so the "games
// in progress" picture stays current for anyone not observing it),
// then sends a final per-gid update to whoever was actually watching
// before dropping that game's observer set.
func (v *Viewers) GameOver(gid int64, result string, whiteTimeUsedMs, blackTimeUsedMs int64) {
	v.Broadcast("gameover %d %s %d %d", gid, result, whiteTimeUsedMs, blackTimeUsedMs)
	v.notify(gid, "update %d %s", gid, result)

	v.mu.Lock()
	for c := range v.observed[gid] {
		delete(v.gidOf, c)
	}
	delete(v.observed, gid)
	v.mu.Unlock()
}
