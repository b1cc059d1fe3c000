// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package db

import (
	"context"
	"database/sql"
	"time"

	"go-igs"
	"go-igs/rating"
)

// Player looks up a player by name.
func (s *Store) Player(ctx context.Context, name string) (igs.Player, bool, error) {
	var (
		p         igs.Player
		isAnchor  int
		firstSeen time.Time
		lastGame  sql.NullTime
	)

	err := s.run(func(db *sql.DB, ctx context.Context) error {
		row := s.queries["select-player"].QueryRowContext(ctx, name)
		return row.Scan(&p.Name, &p.Secret, &p.Rating, &p.K, &p.Games, &isAnchor, &p.Anchor, &firstSeen, &lastGame)
	})
	if err == sql.ErrNoRows {
		return igs.Player{}, false, nil
	}
	if err != nil {
		return igs.Player{}, false, err
	}
	p.IsAnchor = isAnchor != 0
	if lastGame.Valid {
		p.LastGame = lastGame.Time
	}
	return p, true, nil
}

// Players returns every known player, highest rating first.
func (s *Store) Players(ctx context.Context) ([]igs.Player, error) {
	var out []igs.Player
	err := s.run(func(db *sql.DB, ctx context.Context) error {
		rows, err := s.queries["select-players"].QueryContext(ctx)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				p         igs.Player
				isAnchor  int
				firstSeen time.Time
				lastGame  sql.NullTime
			)
			if err := rows.Scan(&p.Name, &p.Secret, &p.Rating, &p.K, &p.Games, &isAnchor, &p.Anchor, &firstSeen, &lastGame); err != nil {
				return err
			}
			p.IsAnchor = isAnchor != 0
			if lastGame.Valid {
				p.LastGame = lastGame.Time
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

// UpsertPlayer inserts a new player row or updates an existing one's
// mutable fields (secret, rating, K, game count, last-seen time).
func (s *Store) UpsertPlayer(ctx context.Context, p igs.Player) error {
	isAnchor := 0
	if p.IsAnchor {
		isAnchor = 1
	}
	return s.run(func(db *sql.DB, ctx context.Context) error {
		var lastGame interface{}
		if !p.LastGame.IsZero() {
			lastGame = p.LastGame
		}
		_, err := s.queries["upsert-player"].ExecContext(ctx,
			p.Name, p.Secret, p.Rating, p.K, p.Games, isAnchor, p.Anchor, time.Now(), lastGame)
		return err
	})
}

// StartGame records a new game row and returns its assigned id.
func (s *Store) StartGame(ctx context.Context, white, black string, size int, komi float64) (int64, error) {
	var gid int64
	err := s.run(func(db *sql.DB, ctx context.Context) error {
		res, err := s.queries["insert-game"].ExecContext(ctx, white, black, size, komi, time.Now())
		if err != nil {
			return err
		}
		gid, err = res.LastInsertId()
		return err
	})
	return gid, err
}

// RecordMove appends one move to a game's move log.
func (s *Store) RecordMove(ctx context.Context, gid int64, ply int, mv igs.Move) error {
	return s.run(func(db *sql.DB, ctx context.Context) error {
		_, err := s.queries["insert-move"].ExecContext(ctx, gid, ply, mv.Text, mv.RemainMs, mv.Analysis, mv.Timestamp)
		return err
	})
}

// FinishGame marks a game as finished with the given result.
func (s *Store) FinishGame(ctx context.Context, gid int64, result igs.Result) error {
	return s.run(func(db *sql.DB, ctx context.Context) error {
		_, err := s.queries["finish-game"].ExecContext(ctx, time.Now(), string(result), gid)
		return err
	})
}

// UnratedGames returns every finished game not yet folded into a
// rating batch, oldest first.
func (s *Store) UnratedGames(ctx context.Context) ([]rating.GameRow, error) {
	var out []rating.GameRow
	err := s.run(func(db *sql.DB, ctx context.Context) error {
		rows, err := s.queries["select-unrated-games"].QueryContext(ctx)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var row rating.GameRow
			var result string
			if err := rows.Scan(&row.GID, &row.White, &row.Black, &result); err != nil {
				return err
			}
			row.Result = igs.Result(result)
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}

// HeadToHead reports how many archived games were played with a as
// white against b, and with b as white against a, so the pairing
// algorithm can hand the color that has come up less often to
// whichever side drew the short end of it historically.
func (s *Store) HeadToHead(ctx context.Context, a, b string) (asWhite, asBlack int, err error) {
	err = s.run(func(db *sql.DB, ctx context.Context) error {
		row := s.queries["select-head-to-head"].QueryRowContext(ctx, a, b, b, a)
		return row.Scan(&asWhite, &asBlack)
	})
	return asWhite, asBlack, err
}

// MarkRated flags each game id in gids as folded into a rating batch,
// so UnratedGames never returns it again.
func (s *Store) MarkRated(ctx context.Context, gids []int64) error {
	return s.run(func(db *sql.DB, ctx context.Context) error {
		for _, gid := range gids {
			if _, err := s.queries["mark-rated"].ExecContext(ctx, gid); err != nil {
				return err
			}
		}
		return nil
	})
}

// rowScanner is the common subset of *sql.Row and *sql.Rows, so a
// single scan helper can serve both a single-row lookup and a
// multi-row listing.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGameRecord(row rowScanner) (igs.GameRecord, error) {
	var (
		rec      igs.GameRecord
		wr, wk   float64
		br, bk   float64
		started  time.Time
		finished sql.NullTime
		result   sql.NullString
	)
	if err := row.Scan(&rec.GID, &rec.White, &rec.Black, &wr, &wk, &br, &bk,
		&rec.Size, &rec.Komi, &started, &finished, &result); err != nil {
		return igs.GameRecord{}, err
	}
	rec.WhiteRating = igs.Printable(wr, wk)
	rec.BlackRating = igs.Printable(br, bk)
	rec.Started = started
	if finished.Valid {
		rec.Finished = finished.Time
	}
	if result.Valid {
		rec.Result = igs.Result(result.String)
	}
	return rec, nil
}

// RecentGames returns up to limit finished games, most recent first,
// for a viewer's handshake (spec.md §4.4).
func (s *Store) RecentGames(ctx context.Context, limit int) ([]igs.GameRecord, error) {
	var out []igs.GameRecord
	err := s.run(func(db *sql.DB, ctx context.Context) error {
		rows, err := s.queries["select-recent-games"].QueryContext(ctx, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanGameRecord(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	return out, err
}

// GameByID looks up one game by id, live or archived, along with its
// full move list, for a viewer's "observe <gid>" against a game that
// is no longer live.
func (s *Store) GameByID(ctx context.Context, gid int64) (igs.GameRecord, []igs.Move, bool, error) {
	var (
		rec   igs.GameRecord
		found bool
	)
	err := s.run(func(db *sql.DB, ctx context.Context) error {
		row := s.queries["select-game"].QueryRowContext(ctx, gid)
		r, err := scanGameRecord(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		rec, found = r, true
		return nil
	})
	if err != nil || !found {
		return igs.GameRecord{}, nil, found, err
	}

	var moves []igs.Move
	err = s.run(func(db *sql.DB, ctx context.Context) error {
		rows, err := s.queries["select-game-moves"].QueryContext(ctx, gid)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var mv igs.Move
			if err := rows.Scan(&mv.Text, &mv.RemainMs, &mv.Analysis); err != nil {
				return err
			}
			moves = append(moves, mv)
		}
		return rows.Err()
	})
	return rec, moves, true, err
}
