// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package web

import (
	"time"

	"go-igs/conf"
)

// Manager wraps a Writer as a conf.WebManager so it can be started
// and stopped alongside the rest of the subsystems. The scheduler
// still calls Write directly at round boundaries (spec.md §4.5); the
// manager additionally rewrites the snapshot every interval on its own
// ticker.
type Manager struct {
	cfg      *conf.Config
	writer   *Writer
	interval time.Duration
	stop     chan struct{}
}

// NewManager builds a Manager around writer, refreshing every
// interval independent of the scheduler's own round-boundary writes.
func NewManager(cfg *conf.Config, writer *Writer, interval time.Duration) *Manager {
	return &Manager{cfg: cfg, writer: writer, interval: interval, stop: make(chan struct{})}
}

func (m *Manager) String() string { return "web" }

// Start periodically re-derives standings from the database and
// rewrites the snapshot file. These rewrites carry no running-game
// rows.
func (m *Manager) Start() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-m.cfg.Ctx.Done():
			return
		case <-ticker.C:
			m.refresh()
		}
	}
}

func (m *Manager) refresh() {
	if m.cfg.DB == nil {
		return
	}
	players, err := m.cfg.DB.Players(m.cfg.Ctx)
	if err != nil {
		m.cfg.Log.Printf("web: refreshing snapshot: %v", err)
		return
	}
	standings := make([]Standing, 0, len(players))
	for _, p := range players {
		standings = append(standings, Standing{Name: p.Name, Rating: p.Rating, K: p.K, Games: p.Games})
	}
	if err := m.writer.Write(standings, nil); err != nil {
		m.cfg.Log.Printf("web: writing snapshot: %v", err)
	}
}

// Shutdown stops the periodic refresh.
func (m *Manager) Shutdown() { close(m.stop) }

var _ conf.WebManager = (*Manager)(nil)
