// Subsystem registration and lifecycle
//
// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package conf

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go-igs"
	"go-igs/rating"
)

// Manager is anything the daemon starts at boot and stops at
// shutdown: the database workers, the round scheduler, the snapshot
// writer.
type Manager interface {
	fmt.Stringer
	Start()
	Shutdown()
}

// DatabaseManager persists players, games and moves, and answers the
// queries the scheduler and admin console need.
type DatabaseManager interface {
	Manager

	Player(ctx context.Context, name string) (igs.Player, bool, error)
	UpsertPlayer(ctx context.Context, p igs.Player) error
	Players(ctx context.Context) ([]igs.Player, error)

	StartGame(ctx context.Context, white, black string, size int, komi float64) (int64, error)
	RecordMove(ctx context.Context, gid int64, ply int, mv igs.Move) error
	FinishGame(ctx context.Context, gid int64, result igs.Result) error
	HeadToHead(ctx context.Context, a, b string) (asWhite, asBlack int, err error)
	UnratedGames(ctx context.Context) ([]rating.GameRow, error)
	MarkRated(ctx context.Context, gids []int64) error

	// RecentGames returns up to limit finished games, most recent
	// first, for a viewer's handshake (spec.md §4.4).
	RecentGames(ctx context.Context, limit int) ([]igs.GameRecord, error)

	// GameByID looks up one game (live or archived) and its full move
	// list by id, for a viewer's "observe <gid>" against a game that is
	// no longer live.
	GameByID(ctx context.Context, gid int64) (igs.GameRecord, []igs.Move, bool, error)
}

// SchedManager runs the periodic round loop: pairing, rating batches,
// snapshot refresh, badword-list and kill-file checks. It adds no
// methods beyond Manager -- unlike DatabaseManager, nothing outside
// the scheduler itself needs to call into it, so there is no role
// interface to dispatch on in Register, only a name for the concept.
type SchedManager interface {
	Manager
}

// WebManager owns the atomic snapshot file the static site reads. See
// SchedManager's comment: no extra methods, because nothing reaches
// back into it through Config.
type WebManager interface {
	Manager
}

// Register adds a subsystem to the set started by Start. Only
// DatabaseManager gets a dedicated Config handle (c.DB): it is the
// only role other subsystems (the web snapshot refresher) need to
// call back into. SchedManager and WebManager share Manager's method
// set exactly, so a type switch cannot tell them apart from each
// other or from a plain Manager -- they are recorded by registration
// order only.
func (c *Config) Register(m Manager) {
	if c.run {
		panic(fmt.Sprintf("late register: %#v", m))
	}

	if s, ok := m.(DatabaseManager); ok {
		c.DB = s
	}

	c.man = append(c.man, m)
}

// Start launches every registered manager and blocks until an
// interrupt or a caller-triggered shutdown (c.Kill), then stops them
// all in registration order.
func (c *Config) Start() {
	for _, m := range c.man {
		c.Debug.Printf("starting %s", m)
		go m.Start()
	}
	c.run = true

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt)
	select {
	case <-intr:
		c.Debug.Println("caught interrupt")
	case <-c.Ctx.Done():
		c.Debug.Println("requested shutdown")
	}

	c.Debug.Println("waiting for managers to shut down")
	for _, m := range c.man {
		c.Debug.Printf("shutting %s down", m)
		m.Shutdown()
	}
	c.Debug.Println("shutting down")
}
