// Database management
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

// Package db persists players, games and moves to SQLite, the way
// the teacher's db.go persists Kalah games: database access is never
// called directly, instead every read or write is packaged as a
// DBAction and sent down a channel that a small pool of workers
// drains, so at most one statement per worker runs against the
// database connection at a time.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBAction is a unit of database work: open connection in, bounded
// context in, error out.
type DBAction func(*sql.DB, context.Context) error

//go:embed sql
var sqlDir embed.FS

// Store is a SQLite-backed go-igs.conf.DatabaseManager. It owns one
// *sql.DB, a prepared-statement cache and a pool of workers draining
// a DBAction channel.
type Store struct {
	path    string
	workers int
	timeout time.Duration

	db      *sql.DB
	queries map[string]*sql.Stmt

	act  chan DBAction
	wg   sync.WaitGroup
	log  *log.Logger
	dbg  *log.Logger
}

// Open prepares (but does not yet start the worker pool for) a Store
// backed by the SQLite file at path.
func Open(path string, workers int, timeout time.Duration, logger, debug *log.Logger) (*Store, error) {
	sdb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"journal_mode = WAL",
		"synchronous = normal",
		"foreign_keys = on",
	} {
		if _, err := sdb.Exec("PRAGMA " + pragma + ";"); err != nil {
			sdb.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}

	s := &Store{
		path:    path,
		workers: workers,
		timeout: timeout,
		db:      sdb,
		queries: make(map[string]*sql.Stmt),
		act:     make(chan DBAction, 64),
		log:     logger,
		dbg:     debug,
	}

	if err := s.loadQueries(); err != nil {
		sdb.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) loadQueries() error {
	return fs.WalkDir(sqlDir, "sql", func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		base := path.Base(file)
		data, err := fs.ReadFile(sqlDir, file)
		if err != nil {
			return err
		}

		if strings.HasPrefix(base, "create-") {
			s.dbg.Printf("execute %s", base)
			_, err = s.db.Exec(string(data))
			return err
		}

		s.dbg.Printf("prepare %s", base)
		stmt, err := s.db.Prepare(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		s.queries[strings.TrimSuffix(base, ".sql")] = stmt
		return nil
	})
}

// String satisfies conf.Manager.
func (s *Store) String() string { return fmt.Sprintf("db(%s)", s.path) }

// Start launches the worker pool and blocks until Shutdown closes the
// action channel and every worker has drained it.
func (s *Store) Start() {
	for id := 0; id < s.workers; id++ {
		s.wg.Add(1)
		go s.worker(id)
	}
	s.wg.Wait()
}

func (s *Store) worker(id int) {
	defer s.wg.Done()
	for act := range s.act {
		if act == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := act(s.db, ctx); err != nil && err != sql.ErrNoRows {
			s.log.Printf("db worker %d: %v", id, err)
		}
		cancel()
	}
}

// Shutdown closes the action channel, which drains the workers and
// returns from Start, then closes the underlying connection.
func (s *Store) Shutdown() {
	close(s.act)
	s.wg.Wait()
	s.db.Close()
}

// run submits act and blocks until a worker has executed it,
// returning its error. Used by every synchronous Store method so
// callers never touch s.db directly.
func (s *Store) run(act DBAction) error {
	done := make(chan error, 1)
	s.act <- func(db *sql.DB, ctx context.Context) error {
		err := act(db, ctx)
		done <- err
		return err
	}
	return <-done
}
