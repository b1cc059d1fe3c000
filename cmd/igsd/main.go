// Entry point
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

package main

import (
	"log"
	"time"

	"go-igs/conf"
	"go-igs/db"
	"go-igs/proto"
	"go-igs/sched"
	"go-igs/web"
)

func main() {
	cfg := conf.LoadFlags()

	store, err := db.Open(cfg.LiveDBPath, 4, 5*time.Second, cfg.Log, cfg.Debug)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	cfg.Register(store)

	server := proto.NewServer(cfg, store)
	cfg.Register(server)

	scheduler := sched.New(cfg, store, server.Reg, server.View)
	server.SetOperator(scheduler)
	cfg.Register(scheduler)

	cfg.Register(web.NewManager(cfg, web.NewWriter(cfg.SnapshotPath), cfg.RoundInterval))

	cfg.Start()
}
