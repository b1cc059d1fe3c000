// Elo rating update pipeline
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

// Package rating implements the batched Elo update described in
// spec.md §4.6: per-player K-factor decay, "anchor" players pinned to
// a fixed rating, and the expectation formula itself. It is pure
// arithmetic -- no I/O, no persistence -- the same separation the
// teacher keeps between elo.go (calculation) and db.go (storage).
package rating

import "math"

// Bounds clamps K-factors into [Min, Max].
type Bounds struct {
	Min, Max float64
}

func (b Bounds) clamp(k float64) float64 {
	if k < b.Min {
		return b.Min
	}
	if k > b.Max {
		return b.Max
	}
	return k
}

// Expectation is the standard Elo expected score of `me` against `opp`.
func Expectation(me, opp float64) float64 {
	return 1 / (1 + math.Pow(10, (opp-me)/400))
}

// Side is one player's half of a single finished game, as input to
// Update.
type Side struct {
	Rating   float64
	K        float64
	Outcome  float64 // 1.0 win, 0.0 loss, 0.5 draw/aborted
	IsAnchor bool
	Anchor   float64 // only meaningful if IsAnchor
}

// Outcome is one player's post-game rating and K-factor.
type Outcome struct {
	Rating float64
	K      float64
}

// Update computes the post-game rating and K-factor for one player
// given their opponent, following spec.md §4.6 exactly:
//
//  1. clamp both K's into bounds
//  2. sensitivity share s = (K - Kmin) / (Kmax - Kmin)
//  3. effective K for this game = K * (1 - opponent's s)
//  4. new rating = rating + effectiveK * (outcome - expectation)
//  5. K decays by a factor of 0.02 (K<=32) or 0.04 (K>32), scaled by
//     the opponent's s, floored at Kmin
//  6. anchors are reset to (anchor rating, Kmin) unconditionally
func Update(self, opp Side, bounds Bounds) Outcome {
	k := bounds.clamp(self.K)
	oppK := bounds.clamp(opp.K)

	span := bounds.Max - bounds.Min
	oppShare := 0.0
	if span > 0 {
		oppShare = (oppK - bounds.Min) / span
	}

	effectiveK := k * (1 - oppShare)
	expectation := Expectation(self.Rating, opp.Rating)
	newRating := self.Rating + effectiveK*(self.Outcome-expectation)

	decay := 0.02
	if k > 32 {
		decay = 0.04
	}
	newK := k * (1 - decay*oppShare)
	if newK < bounds.Min {
		newK = bounds.Min
	}

	if self.IsAnchor {
		return Outcome{Rating: self.Anchor, K: bounds.Min}
	}

	return Outcome{Rating: newRating, K: newK}
}
