// Configuration specification and management
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

// Package conf supplies the typed configuration record the rest of
// the server is built against (spec.md §3's Config), the way the
// teacher's conf package splits a TOML-shaped decode target from a
// ready-to-use public struct. Config-file parsing itself lives
// outside the core protocol/game/scheduler subsystems, but a runnable
// daemon needs a concrete loader, so it lives here.
package conf

import (
	"context"
	"io"
	"log"
	"time"

	"go-igs/board"
)

// Config is the process-lifetime, read-only record every other
// package is constructed from.
type Config struct {
	ServerName string

	TCPPort uint

	Board BoardPreset

	ClockMillis int64 // per-player clock budget L
	LeewayMs    int64 // grace period subtracted from measured elapsed, Δ

	DefaultRating float64
	KMin, KMax    float64

	// Rating aging thresholds, in days since a player's first game.
	// They are read from and written to the configuration file; no
	// other part of the server reads them, and K-factors change only
	// through the rating batch.
	ProvisionalDays int
	EstablishedDays int

	KoRule board.KoRule

	HashPasswords bool
	AdminName     string

	AnchorMatchRate float64 // probability an anchor-vs-anchor pair is kept

	// MatchMode gates automatic pairing: "AUTO" lets the scheduler
	// pair waiting sessions every round; anything else leaves pairing
	// entirely to the admin console's "match" command.
	MatchMode string

	SGFSaveInterval int // save an in-progress SGF every N moves, 0 disables
	Gzip            bool

	KillFilePath string
	HTMLDir      string
	SGFDir       string
	SnapshotPath string

	BadwordsPath string
	PresetsPath  string

	// Badwords is the live, reloadable set backing BadwordsPath,
	// shared between the login path (reject at name-validation time)
	// and the scheduler (evict anyone already waiting under a name
	// that newly appears on it).
	Badwords *Badlist

	LiveDBPath    string
	ArchiveDBPath string

	RoundFirstDelay time.Duration
	RoundInterval   time.Duration

	Log   *log.Logger
	Debug *log.Logger

	Ctx  context.Context
	Kill context.CancelFunc

	// DB is filled in by Register as soon as the database subsystem
	// registers; it is the only cross-subsystem handle anything else
	// needs back out of Config (the web snapshot refresher reads it).
	DB DatabaseManager

	man []Manager
	run bool
}

// BoardPreset is one size/komi combination a game can be started with.
type BoardPreset struct {
	Name string
	Size int
	Komi float64
}

// Default returns the built-in configuration used when no file is
// supplied, mirroring the teacher's defaultConfig.
func Default() *Config {
	ctx, cancel := context.WithCancel(context.Background())
	return &Config{
		ServerName: "go-igs",
		TCPPort:    6969,

		Board: BoardPreset{Name: "default", Size: 19, Komi: 7.5},

		ClockMillis: 15 * 60 * 1000,
		LeewayMs:    2000,

		DefaultRating: 1500,
		KMin:          10,
		KMax:          32,

		ProvisionalDays: 30,
		EstablishedDays: 180,

		KoRule: board.PositionalSuperko,

		HashPasswords: true,
		AdminName:     "admin",

		AnchorMatchRate: 0.1,
		MatchMode:       "AUTO",

		SGFSaveInterval: 20,
		Gzip:            false,

		KillFilePath: "igs.kill",
		HTMLDir:      "html",
		SGFDir:       "sgf",
		SnapshotPath: "html/data.txt",

		BadwordsPath: "badwords.txt",
		PresetsPath:  "",
		Badwords:     NewBadlist(),

		LiveDBPath:    "live.db",
		ArchiveDBPath: "archive.db",

		RoundFirstDelay: 45 * time.Second,
		RoundInterval:   15 * time.Second,

		Log:   log.Default(),
		Debug: log.New(io.Discard, "[debug] ", log.Ltime|log.Lshortfile|log.Lmicroseconds),

		Ctx:  ctx,
		Kill: cancel,
	}
}
