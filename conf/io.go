// Configuration file loading and dumping
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
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"go-igs/board"
)

// tomlConf is the TOML-shaped decode target; Config is what the rest
// of the server actually uses. Keeping the two separate lets the file
// format evolve (or grow sections) without every field on Config
// needing a toml tag.
type tomlConf struct {
	Server struct {
		Name string `toml:"name"`
		Port uint   `toml:"port"`
	} `toml:"server"`
	Board struct {
		Name string  `toml:"name"`
		Size int     `toml:"size"`
		Komi float64 `toml:"komi"`
		Ko   string  `toml:"ko"` // "simple" or "superko"
	} `toml:"board"`
	Clock struct {
		Millis   int64 `toml:"millis"`
		LeewayMs int64 `toml:"leeway_ms"`
	} `toml:"clock"`
	Rating struct {
		Default         float64 `toml:"default"`
		KMin            float64 `toml:"k_min"`
		KMax            float64 `toml:"k_max"`
		ProvisionalDays int     `toml:"provisional_days"`
		EstablishedDays int     `toml:"established_days"`
		AnchorMatchRate float64 `toml:"anchor_match_rate"`
		MatchMode       string  `toml:"match_mode"`
	} `toml:"rating"`
	Auth struct {
		HashPasswords bool   `toml:"hash_passwords"`
		AdminName     string `toml:"admin_name"`
	} `toml:"auth"`
	Archive struct {
		SaveInterval int    `toml:"save_interval"`
		Gzip         bool   `toml:"gzip"`
		HTMLDir      string `toml:"html_dir"`
		SGFDir       string `toml:"sgf_dir"`
	} `toml:"archive"`
	Paths struct {
		KillFile string `toml:"kill_file"`
		Snapshot string `toml:"snapshot"`
		Badwords string `toml:"badwords"`
		Presets  string `toml:"presets"`
	} `toml:"paths"`
	Database struct {
		Live    string `toml:"live"`
		Archive string `toml:"archive"`
	} `toml:"database"`
	Round struct {
		FirstDelaySec int `toml:"first_delay_sec"`
		IntervalSec   int `toml:"interval_sec"`
	} `toml:"round"`
}

var (
	debugFlag bool
	dumpFlag  bool
	confFile  = "go-igs.toml"
)

func init() {
	flag.BoolVar(&debugFlag, "debug", debugFlag, "enable debug output")
	flag.BoolVar(&dumpFlag, "dump-config", dumpFlag, "dump configuration to standard output and exit")
	flag.StringVar(&confFile, "conf", confFile, "path to configuration file")
}

func koRuleOf(s string) board.KoRule {
	if s == "simple" {
		return board.SimpleKo
	}
	return board.PositionalSuperko
}

func koRuleName(r board.KoRule) string {
	if r == board.SimpleKo {
		return "simple"
	}
	return "superko"
}

func decode(r io.Reader) (*Config, error) {
	var data tomlConf
	if _, err := toml.NewDecoder(r).Decode(&data); err != nil {
		return nil, err
	}

	c := Default()
	if data.Server.Name != "" {
		c.ServerName = data.Server.Name
	}
	if data.Server.Port != 0 {
		c.TCPPort = data.Server.Port
	}
	if data.Board.Name != "" {
		c.Board = BoardPreset{Name: data.Board.Name, Size: data.Board.Size, Komi: data.Board.Komi}
	}
	if data.Board.Ko != "" {
		c.KoRule = koRuleOf(data.Board.Ko)
	}
	if data.Clock.Millis != 0 {
		c.ClockMillis = data.Clock.Millis
	}
	if data.Clock.LeewayMs != 0 {
		c.LeewayMs = data.Clock.LeewayMs
	}
	if data.Rating.Default != 0 {
		c.DefaultRating = data.Rating.Default
	}
	if data.Rating.KMin != 0 {
		c.KMin = data.Rating.KMin
	}
	if data.Rating.KMax != 0 {
		c.KMax = data.Rating.KMax
	}
	if data.Rating.ProvisionalDays != 0 {
		c.ProvisionalDays = data.Rating.ProvisionalDays
	}
	if data.Rating.EstablishedDays != 0 {
		c.EstablishedDays = data.Rating.EstablishedDays
	}
	if data.Rating.AnchorMatchRate != 0 {
		c.AnchorMatchRate = data.Rating.AnchorMatchRate
	}
	if data.Rating.MatchMode != "" {
		c.MatchMode = data.Rating.MatchMode
	}
	c.HashPasswords = data.Auth.HashPasswords || c.HashPasswords
	if data.Auth.AdminName != "" {
		c.AdminName = data.Auth.AdminName
	}
	if data.Archive.SaveInterval != 0 {
		c.SGFSaveInterval = data.Archive.SaveInterval
	}
	c.Gzip = data.Archive.Gzip
	if data.Archive.HTMLDir != "" {
		c.HTMLDir = data.Archive.HTMLDir
	}
	if data.Archive.SGFDir != "" {
		c.SGFDir = data.Archive.SGFDir
	}
	if data.Paths.KillFile != "" {
		c.KillFilePath = data.Paths.KillFile
	}
	if data.Paths.Snapshot != "" {
		c.SnapshotPath = data.Paths.Snapshot
	}
	if data.Paths.Badwords != "" {
		c.BadwordsPath = data.Paths.Badwords
	}
	if data.Paths.Presets != "" {
		c.PresetsPath = data.Paths.Presets
	}
	if data.Database.Live != "" {
		c.LiveDBPath = data.Database.Live
	}
	if data.Database.Archive != "" {
		c.ArchiveDBPath = data.Database.Archive
	}
	if data.Round.FirstDelaySec != 0 {
		c.RoundFirstDelay = time.Duration(data.Round.FirstDelaySec) * time.Second
	}
	if data.Round.IntervalSec != 0 {
		c.RoundInterval = time.Duration(data.Round.IntervalSec) * time.Second
	}

	return c, nil
}

// Load reads and parses the TOML configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f)
}

// LoadFlags parses the command line (the -conf, -debug and
// -dump-config flags registered in init) and returns the resulting
// configuration, following the teacher's flag-driven bootstrap.
func LoadFlags() *Config {
	if !flag.Parsed() {
		flag.Parse()
	}

	var c *Config
	if _, err := os.Stat(confFile); err == nil {
		c, err = Load(confFile)
		if err != nil {
			log.Print(err)
			c = Default()
		}
	} else {
		c = Default()
	}

	if debugFlag {
		c.Debug.SetOutput(os.Stderr)
	}
	c.Ctx, c.Kill = context.WithCancel(context.Background())

	if dumpFlag {
		if err := c.Dump(os.Stdout); err != nil {
			log.Fatalln("failed to dump configuration:", err)
		}
		os.Exit(0)
	}

	return c
}

// Dump serializes c back into TOML.
func (c *Config) Dump(w io.Writer) error {
	var data tomlConf

	data.Server.Name = c.ServerName
	data.Server.Port = c.TCPPort
	data.Board.Name = c.Board.Name
	data.Board.Size = c.Board.Size
	data.Board.Komi = c.Board.Komi
	data.Board.Ko = koRuleName(c.KoRule)
	data.Clock.Millis = c.ClockMillis
	data.Clock.LeewayMs = c.LeewayMs
	data.Rating.Default = c.DefaultRating
	data.Rating.KMin = c.KMin
	data.Rating.KMax = c.KMax
	data.Rating.ProvisionalDays = c.ProvisionalDays
	data.Rating.EstablishedDays = c.EstablishedDays
	data.Rating.AnchorMatchRate = c.AnchorMatchRate
	data.Rating.MatchMode = c.MatchMode
	data.Auth.HashPasswords = c.HashPasswords
	data.Auth.AdminName = c.AdminName
	data.Archive.SaveInterval = c.SGFSaveInterval
	data.Archive.Gzip = c.Gzip
	data.Archive.HTMLDir = c.HTMLDir
	data.Archive.SGFDir = c.SGFDir
	data.Paths.KillFile = c.KillFilePath
	data.Paths.Snapshot = c.SnapshotPath
	data.Paths.Badwords = c.BadwordsPath
	data.Paths.Presets = c.PresetsPath
	data.Database.Live = c.LiveDBPath
	data.Database.Archive = c.ArchiveDBPath
	data.Round.FirstDelaySec = int(c.RoundFirstDelay / time.Second)
	data.Round.IntervalSec = int(c.RoundInterval / time.Second)

	return toml.NewEncoder(w).Encode(data)
}
