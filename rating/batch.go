// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package rating

import "go-igs"

// GameRow is one unfinalized game as read from the live-state store,
// enough information to run Update for both sides.
type GameRow struct {
	GID          int64
	White, Black string
	Result       igs.Result
}

// Snapshot is the rating state of one player at the start of a batch.
type Snapshot struct {
	Rating   float64
	K        float64
	IsAnchor bool
	Anchor   float64
}

// Batch runs the Elo update for every row in order, folding each
// player's result into the running snapshot map so that a player
// appearing in more than one unfinalized game (possible if the
// archive insert raced the batch) sees each game applied in sequence.
// Returns the updated snapshots, keyed by player name.
func Batch(rows []GameRow, players map[string]Snapshot, bounds Bounds) map[string]Snapshot {
	out := make(map[string]Snapshot, len(players))
	for name, snap := range players {
		out[name] = snap
	}

	for _, row := range rows {
		w, wok := out[row.White]
		b, bok := out[row.Black]
		if !wok || !bok {
			continue
		}

		wSide := Side{Rating: w.Rating, K: w.K, Outcome: row.Result.Score(igs.White), IsAnchor: w.IsAnchor, Anchor: w.Anchor}
		bSide := Side{Rating: b.Rating, K: b.K, Outcome: row.Result.Score(igs.Black), IsAnchor: b.IsAnchor, Anchor: b.Anchor}

		wOut := Update(wSide, bSide, bounds)
		bOut := Update(bSide, wSide, bounds)

		w.Rating, w.K = wOut.Rating, wOut.K
		b.Rating, b.K = bOut.Rating, bOut.K
		out[row.White] = w
		out[row.Black] = b
	}

	return out
}
